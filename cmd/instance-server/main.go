/*
 * Copyright (c) 2018 XLAB d.o.o
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command instance-server runs the authority. It issues a fresh public
// key and functional keys for every batch of hashes the compute server
// sends.
package main

import (
	"net"
	"os"

	"github.com/fentec-project/fuzzyfe/authority"
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/fentec-project/fuzzyfe/internal/cmdutil"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "instance-server",
		Usage: "issue functional keys for fuzzy hash comparisons",
		Flags: append([]cli.Flag{
			cmdutil.ConfigFlag,
			&cli.StringFlag{Name: "listen", Usage: "listen `ADDRESS`"},
			&cli.StringFlag{Name: "group", Usage: "group `NAME` for the keys"},
			&cli.StringFlag{Name: "redis", Usage: "Redis `ADDRESS` for shared key counters"},
			&cli.IntFlag{Name: "key-quota", Usage: "functional keys issued at most per compute server and window"},
		}, cmdutil.LogFlags()...),
		Action: run,
	}

	defer glog.Flush()
	if err := app.Run(os.Args); err != nil {
		glog.Exit(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := cmdutil.Setup(c)
	if err != nil {
		return err
	}
	conf := cfg.Authority
	if c.IsSet("listen") {
		conf.Listen = c.String("listen")
	}
	if c.IsSet("group") {
		conf.Group = c.String("group")
	}
	if c.IsSet("redis") {
		conf.Redis.Addr = c.String("redis")
	}
	if c.IsSet("key-quota") {
		conf.KeyQuota = c.Int("key-quota")
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	grp, err := group.ByName(conf.Group)
	if err != nil {
		return err
	}

	limiter, err := authority.NewLimiter(conf)
	if err != nil {
		return err
	}
	if rl, ok := limiter.(*authority.RedisLimiter); ok {
		defer rl.Close()
		glog.Infof("Counting issued keys in Redis at %s", conf.Redis.Addr)
	}
	glog.Infof("Key quota: %d per %v and compute server", conf.KeyQuota, conf.QuotaWindow.Duration)

	lis, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	ctx, stop := cmdutil.SignalContext(c.Context)
	defer stop()
	return authority.NewServer(grp, limiter).Serve(ctx, lis)
}

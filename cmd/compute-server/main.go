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

// Command compute-server runs the compute server over a database of
// fuzzy hashes.
package main

import (
	"net"
	"os"

	"github.com/fentec-project/fuzzyfe/compute"
	"github.com/fentec-project/fuzzyfe/fuzzyhash"
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/fentec-project/fuzzyfe/internal/cmdutil"
	"github.com/fentec-project/fuzzyfe/storage"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "compute-server",
		Usage: "compare encrypted fuzzy hashes with a database",
		Flags: append([]cli.Flag{
			cmdutil.ConfigFlag,
			&cli.StringFlag{Name: "listen", Usage: "listen `ADDRESS`"},
			&cli.StringFlag{Name: "authority", Usage: "instance server `ADDRESS`"},
			&cli.StringFlag{Name: "db", Usage: "SQLite database `FILE`"},
			&cli.StringFlag{Name: "group", Usage: "group `NAME` of the authority keys"},
			&cli.IntFlag{Name: "batch-size", Usage: "hashes compared per public key"},
			&cli.IntFlag{Name: "workers", Usage: "concurrent decryptions"},
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
	conf := cfg.Compute
	if c.IsSet("listen") {
		conf.Listen = c.String("listen")
	}
	if c.IsSet("authority") {
		conf.Authority = c.String("authority")
	}
	if c.IsSet("db") {
		conf.Database = c.String("db")
	}
	if c.IsSet("group") {
		conf.Group = c.String("group")
	}
	if c.IsSet("batch-size") {
		conf.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("workers") {
		conf.Workers = c.Int("workers")
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	grp, err := group.ByName(conf.Group)
	if err != nil {
		return err
	}

	db, err := storage.Open(conf.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	n, err := db.Count(c.Context, fuzzyhash.TypeNilsimsa)
	if err != nil {
		return err
	}
	glog.Infof("Database %s holds %d %s hashes", conf.Database, n, fuzzyhash.TypeNilsimsa)

	srv, err := compute.NewServer(grp, db, compute.NewAuthorityClient(conf.Authority, grp), compute.Options{
		BatchSize: conf.BatchSize,
		Workers:   conf.Workers,
		Timeout:   conf.Timeout.Duration,
	})
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	ctx, stop := cmdutil.SignalContext(c.Context)
	defer stop()
	return srv.Serve(ctx, lis)
}

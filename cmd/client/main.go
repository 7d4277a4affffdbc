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

// Command client computes the Nilsimsa digest of files and prints the
// best similarity score of each to the hashes held by a compute server.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/fentec-project/fuzzyfe/client"
	"github.com/fentec-project/fuzzyfe/fuzzyhash"
	"github.com/fentec-project/fuzzyfe/internal/cmdutil"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "client",
		Usage:     "compare files with the fuzzy hashes of a compute server",
		ArgsUsage: "[FILE...]",
		Flags: append([]cli.Flag{
			cmdutil.ConfigFlag,
			&cli.StringFlag{Name: "server", Usage: "compute server `ADDRESS`"},
			&cli.StringSliceFlag{Name: "digest", Usage: "compare a hex encoded `DIGEST` instead of a file"},
			&cli.Int64Flag{Name: "stop-at", Usage: "end a comparison once the score reaches `SCORE`"},
		}, cmdutil.LogFlags()...),
		Action: run,
	}

	defer glog.Flush()
	if err := app.Run(os.Args); err != nil {
		glog.Exit(err)
	}
}

type query struct {
	name   string
	digest []byte
}

func run(c *cli.Context) error {
	cfg, err := cmdutil.Setup(c)
	if err != nil {
		return err
	}
	conf := cfg.Client
	if c.IsSet("server") {
		conf.Server = c.String("server")
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	typ, err := fuzzyhash.ParseType(conf.Type)
	if err != nil {
		return err
	}

	var queries []query
	for _, s := range c.StringSlice("digest") {
		d, err := hex.DecodeString(s)
		if err != nil {
			return errors.Wrapf(err, "digest %s", s)
		}
		queries = append(queries, query{name: s, digest: d})
	}
	for _, path := range c.Args().Slice() {
		d, err := cmdutil.HashFile(path)
		if err != nil {
			return err
		}
		glog.V(1).Infof("%s: %x", path, d)
		queries = append(queries, query{name: path, digest: d})
	}
	if len(queries) == 0 {
		return errors.New("no file or digest to compare")
	}

	cl := client.New(conf.Server)
	if c.IsSet("stop-at") {
		cl.StopAt(c.Int64("stop-at"))
	}

	for _, q := range queries {
		ctx, cancel := context.WithTimeout(c.Context, conf.Timeout.Duration)
		score, err := cl.Compare(ctx, typ, q.digest)
		cancel()
		switch {
		case errors.Is(err, client.ErrNoScore):
			fmt.Printf("%s\t-\n", q.name)
		case err != nil:
			return errors.Wrap(err, q.name)
		default:
			fmt.Printf("%s\t%d\n", q.name, score)
		}
	}
	return nil
}

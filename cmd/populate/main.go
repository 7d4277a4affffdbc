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

// Command populate fills the compute server database, with the Nilsimsa
// digests of the given files and with random digests.
package main

import (
	"crypto/sha256"
	"os"

	"github.com/fentec-project/fuzzyfe/fuzzyhash"
	"github.com/fentec-project/fuzzyfe/internal/cmdutil"
	"github.com/fentec-project/fuzzyfe/storage"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "populate",
		Usage:     "store fuzzy hashes in the compute server database",
		ArgsUsage: "[FILE...]",
		Flags: append([]cli.Flag{
			cmdutil.ConfigFlag,
			&cli.StringFlag{Name: "db", Usage: "SQLite database `FILE`"},
			&cli.IntFlag{Name: "random", Aliases: []string{"n"}, Usage: "number of random digests to insert"},
			&cli.StringFlag{Name: "seed", Usage: "derive the random digests from `SEED` instead of the system randomness"},
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
	path := cfg.Compute.Database
	if c.IsSet("db") {
		path = c.String("db")
	}

	db, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, file := range c.Args().Slice() {
		d, err := cmdutil.HashFile(file)
		if err != nil {
			return err
		}
		switch err := db.Insert(c.Context, fuzzyhash.TypeNilsimsa, d); {
		case errors.Is(err, storage.ErrDuplicate):
			glog.Warningf("%s: digest %x already stored", file, d)
		case err != nil:
			return errors.Wrap(err, file)
		default:
			glog.V(1).Infof("%s: stored %x", file, d)
		}
	}

	if n := c.Int("random"); n > 0 {
		if c.IsSet("seed") {
			key := sha256.Sum256([]byte(c.String("seed")))
			_, err = db.PopulateSeeded(c.Context, n, &key)
		} else {
			_, err = db.Populate(c.Context, n, nil)
		}
		if err != nil {
			return err
		}
	}

	total, err := db.Count(c.Context, fuzzyhash.TypeNilsimsa)
	if err != nil {
		return err
	}
	glog.Infof("Database %s holds %d %s hashes", path, total, fuzzyhash.TypeNilsimsa)
	return nil
}

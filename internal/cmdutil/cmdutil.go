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

// Package cmdutil holds the flags and setup shared by the binaries.
package cmdutil

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fentec-project/fuzzyfe/config"
	"github.com/fentec-project/fuzzyfe/fuzzyhash"
	_ "github.com/golang/glog" // registers -v and -logtostderr
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// Flags common to all binaries.
var (
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML configuration `FILE`",
		EnvVars: []string{"FUZZYFE_CONFIG"},
	}
	VerbosityFlag = &cli.IntFlag{
		Name:  "v",
		Usage: "log verbosity level",
	}
	LogToStderrFlag = &cli.BoolFlag{
		Name:  "logtostderr",
		Usage: "log to standard error instead of files",
		Value: true,
	}
)

// LogFlags returns the flags forwarded to glog.
func LogFlags() []cli.Flag {
	return []cli.Flag{VerbosityFlag, LogToStderrFlag}
}

// Setup forwards the log flags to glog and loads the configuration.
func Setup(c *cli.Context) (*config.Config, error) {
	if err := flag.Set("v", strconv.Itoa(c.Int(VerbosityFlag.Name))); err != nil {
		return nil, errors.Wrap(err, "set log verbosity")
	}
	if err := flag.Set("logtostderr", strconv.FormatBool(c.Bool(LogToStderrFlag.Name))); err != nil {
		return nil, errors.Wrap(err, "set log output")
	}
	// glog expects the standard flag set to be parsed
	if err := flag.CommandLine.Parse(nil); err != nil {
		return nil, err
	}

	return config.Load(c.String(ConfigFlag.Name))
}

// SignalContext returns a context canceled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// HashFile returns the Nilsimsa digest of the file at path.
func HashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := fuzzyhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return h.Sum(nil), nil
}

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

// Package config holds the configuration of the authority, the compute
// server and the client. All three are read from one YAML file, each
// role from its own section.
//
// Example:
//
//	authority:
//	  listen: ":4242"
//	  group: ristretto255
//	  redis:
//	    addr: localhost:6379
//	compute:
//	  listen: ":4343"
//	  authority: localhost:4242
//	  database: fuzzy_hashes.db
//	client:
//	  server: localhost:4343
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/fentec-project/fuzzyfe/fuzzyhash"
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "duration must be a string")
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", s)
	}
	d.Duration = v
	return nil
}

// Redis configures the shared key quota counters of the authority.
// The authority counts in memory when Addr is empty.
type Redis struct {
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
}

// Authority configures the instance server.
type Authority struct {
	Listen      string   `json:"listen"`
	Group       string   `json:"group"`
	Redis       Redis    `json:"redis,omitempty"`
	// KeyQuota is the number of functional keys issued at most to one
	// compute server within QuotaWindow.
	KeyQuota    int      `json:"key_quota"`
	QuotaWindow Duration `json:"quota_window"`
}

// Compute configures the compute server.
type Compute struct {
	Listen    string   `json:"listen"`
	Authority string   `json:"authority"`
	Database  string   `json:"database"`
	Group     string   `json:"group"`
	BatchSize int      `json:"batch_size"`
	Workers   int      `json:"workers"`
	Timeout   Duration `json:"timeout"`
}

// Client configures the client.
type Client struct {
	Server  string   `json:"server"`
	Type    string   `json:"type"`
	Timeout Duration `json:"timeout"`
}

// Config is the content of a configuration file.
type Config struct {
	Authority Authority `json:"authority"`
	Compute   Compute   `json:"compute"`
	Client    Client    `json:"client"`
}

// Default returns the configuration used for values missing from the file.
func Default() *Config {
	return &Config{
		Authority: Authority{
			Listen:      ":4242",
			Group:       group.Default,
			Redis:       Redis{Prefix: "fuzzyfe:quota:"},
			KeyQuota:    10000000,
			QuotaWindow: Duration{24 * time.Hour},
		},
		Compute: Compute{
			Listen:    ":4343",
			Authority: "localhost:4242",
			Database:  "fuzzy_hashes.db",
			Group:     group.Default,
			BatchSize: fuzzyhash.NilsimsaBits - 1,
			Workers:   runtime.NumCPU(),
			Timeout:   Duration{5 * time.Minute},
		},
		Client: Client{
			Server:  "localhost:4343",
			Type:    string(fuzzyhash.TypeNilsimsa),
			Timeout: Duration{10 * time.Minute},
		},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	if err := Parse(b, cfg); err != nil {
		return nil, errors.Wrapf(err, "config file %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Unknown fields are rejected.
func Parse(b []byte, cfg *Config) error {
	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return errors.Wrap(err, "parse YAML")
	}
	return nil
}

// Validate checks the authority configuration.
func (a *Authority) Validate() error {
	if a.Listen == "" {
		return fmt.Errorf("authority: listen address must be set")
	}
	if _, err := group.ByName(a.Group); err != nil {
		return errors.Wrap(err, "authority")
	}
	if a.KeyQuota < 1 {
		return fmt.Errorf("authority: key_quota must be positive")
	}
	if a.QuotaWindow.Duration <= 0 {
		return fmt.Errorf("authority: quota_window must be positive")
	}
	return nil
}

// Validate checks the compute server configuration.
func (c *Compute) Validate() error {
	if c.Listen == "" || c.Authority == "" {
		return fmt.Errorf("compute: listen and authority addresses must be set")
	}
	if c.Database == "" {
		return fmt.Errorf("compute: database must be set")
	}
	if _, err := group.ByName(c.Group); err != nil {
		return errors.Wrap(err, "compute")
	}
	if c.BatchSize < 1 || c.BatchSize > fuzzyhash.NilsimsaBits-1 {
		return fmt.Errorf("compute: batch_size must be in [1, %d]", fuzzyhash.NilsimsaBits-1)
	}
	if c.Workers < 1 {
		return fmt.Errorf("compute: workers must be positive")
	}
	return nil
}

// Validate checks the client configuration.
func (c *Client) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("client: server address must be set")
	}
	if _, err := fuzzyhash.ParseType(c.Type); err != nil {
		return errors.Wrap(err, "client")
	}
	return nil
}

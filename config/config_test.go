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

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fentec-project/fuzzyfe/config"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fuzzyfe.yaml")
	content := `
authority:
  listen: ":9000"
  group: modp3072
  redis:
    addr: redis:6379
  key_quota: 5000
  quota_window: 1h
compute:
  authority: authority:9000
  workers: 3
  timeout: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	want := config.Default()
	want.Authority.Listen = ":9000"
	want.Authority.Group = "modp3072"
	want.Authority.Redis.Addr = "redis:6379"
	want.Authority.KeyQuota = 5000
	want.Authority.QuotaWindow = config.Duration{Duration: time.Hour}
	want.Compute.Authority = "authority:9000"
	want.Compute.Workers = 3
	want.Compute.Timeout = config.Duration{Duration: 30 * time.Second}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("unexpected configuration (-want +got):\n%s", diff)
	}
	assert.NoError(t, cfg.Authority.Validate())
	assert.NoError(t, cfg.Compute.Validate())
	assert.NoError(t, cfg.Client.Validate())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	var tests = []struct {
		name    string
		content string
	}{
		{name: "unknown field", content: "authority:\n  port: 4242\n"},
		{name: "bad duration", content: "client:\n  timeout: soon\n"},
		{name: "not yaml", content: "authority: [\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(dir, test.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(test.content), 0o600))
			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	cfg, err := config.Load("")
	assert.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.Authority.Group = "p256"
	assert.Error(t, cfg.Authority.Validate())

	cfg = config.Default()
	cfg.Authority.KeyQuota = 0
	assert.Error(t, cfg.Authority.Validate())

	cfg = config.Default()
	cfg.Authority.QuotaWindow = config.Duration{}
	assert.Error(t, cfg.Authority.Validate())

	cfg = config.Default()
	cfg.Compute.BatchSize = 512
	assert.Error(t, cfg.Compute.Validate())
	cfg.Compute.BatchSize = 0
	assert.Error(t, cfg.Compute.Validate())

	cfg = config.Default()
	cfg.Compute.Workers = 0
	assert.Error(t, cfg.Compute.Validate())

	cfg = config.Default()
	cfg.Client.Type = "ssdeep"
	assert.Error(t, cfg.Client.Validate())
}

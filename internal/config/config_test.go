package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/domaindetect/internal/config"
	"github.com/aretw0/domaindetect/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Empty(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "YAML",
			file: "domaindetect.yaml",
			content: `
resolution:
  domainBoundaryPolicy: max
  maxDomainDistance: 4
  upperSortingThreshold: 0.00001
  tieBreak: fewer_domains
cache:
  backend: redis
  redis:
    ttl: 1h
server:
  shutdown_timeout: 3s
`,
		},
		{
			name: "JSON",
			file: "domaindetect.json",
			content: `{
  "resolution": {"domainBoundaryPolicy": "MAX", "maxDomainDistance": 4, "upperSortingThreshold": 1e-5, "tieBreak": "fewer_domains"},
  "cache": {"backend": "redis", "redis": {"ttl": "1h"}},
  "server": {"shutdown_timeout": "3s"}
}`,
		},
		{
			name: "TOML",
			file: "domaindetect.toml",
			content: `
[resolution]
domainBoundaryPolicy = "MAX"
maxDomainDistance = 4
upperSortingThreshold = 1e-5
tieBreak = "fewer_domains"

[cache]
backend = "redis"

[cache.redis]
ttl = "1h"

[server]
shutdown_timeout = "3s"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load(write(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, domain.BoundaryMax, cfg.Resolution.BoundaryPolicy)
			assert.Equal(t, 4, cfg.Resolution.MaxDomainDistance)
			assert.InDelta(t, 1e-5, cfg.Resolution.UpperSortingThreshold, 1e-12)
			assert.Equal(t, domain.TieBreakFewerDomains, cfg.Resolution.TieBreak)
			assert.Equal(t, config.CacheRedis, cfg.Cache.Backend)
			assert.Equal(t, time.Hour, cfg.Cache.Redis.TTL)
			assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)

			// Untouched keys keep their defaults.
			def := config.Default()
			assert.Equal(t, def.Resolution.LowerSortingThreshold, cfg.Resolution.LowerSortingThreshold)
			assert.Equal(t, def.Resolution.AutoextendDomains, cfg.Resolution.AutoextendDomains)
			assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
			assert.Equal(t, ":8080", cfg.Server.Addr)
		})
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unknown key", "c.yaml", "resolution:\n  maxDomainDistanse: 3\n", "maxDomainDistanse"},
		{"bad policy", "c.yaml", "resolution:\n  domainBoundaryPolicy: widest\n", "unknown boundary policy"},
		{"inverted thresholds", "c.json", `{"resolution": {"upperSortingThreshold": 1, "lowerSortingThreshold": 0.5}}`, "upperSortingThreshold"},
		{"unknown backend", "c.yaml", "cache:\n  backend: memcached\n", "cache.backend"},
		{"exclusive aligner", "c.yaml", "aligner:\n  hits_file: h.tsv\n  tool: blastp\n", "mutually exclusive"},
		{"unsupported extension", "c.ini", "x=1", "unsupported config format"},
		{"malformed", "c.json", "{", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(write(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_ValidationIsConfigError(t *testing.T) {
	_, err := config.Load(write(t, "c.yaml", "resolution:\n  maxDomainDistance: -1\n"))
	require.Error(t, err)

	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "maxDomainDistance", cfgErr.Key)
}

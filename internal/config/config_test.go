package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("app:\n  name: test\n"))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Geo.CacheTTL())
	assert.Equal(t, 200*time.Millisecond, cfg.Geo.LookupTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.Recorder.FlushInterval())
	assert.Equal(t, 24*time.Hour, cfg.Cache.TargetTTL())
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestParse_TrustedProxies(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  trusted_proxies:\n    - 10.0.0.0/8\n    - 127.0.0.1\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Server.TrustedProxies)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"未知驱动":       "database:\n  driver: oracle\n",
		"sqlite 缺少路径": "database:\n  driver: sqlite\n",
		"负数 TTL":     "geo:\n  cache_ttl_seconds: -1\n",
		"限流参数为 0":    "rate_limit:\n  enabled: true\n",
		"代理地址非法":     "server:\n  trusted_proxies:\n    - not-an-ip\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "database:\n  driver: sqlite\n  path: ./app.db\ngeo:\n  lookup_timeout_ms: 50\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 50*time.Millisecond, cfg.Geo.LookupTimeout())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

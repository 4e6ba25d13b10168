package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tendril.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom("", nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.Store.Redis.LockTTL)
	assert.Nil(t, cfg.Security.Key())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, `
log_level: debug
store:
  backend: redis
  redis:
    addr: redis:6379
    ttl: 1h
limits:
  max_eval_depth: 64
security:
  mask_labels: [email, phone]
`)
	cfg, err := LoadFrom(path, []string{
		"TENDRIL_STORE_REDIS_DB=2",
		"TENDRIL_HTTP_ADDR=:9090",
		"TENDRIL_LOG_LEVEL=warn",
		"OTHER_VAR=ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over the file")
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, 2, cfg.Store.Redis.DB)
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, "tendril:dialogue:", cfg.Store.Redis.Prefix, "untouched keys keep defaults")
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 64, cfg.Limits.MaxEvalDepth)
	assert.Equal(t, []string{"email", "phone"}, cfg.Security.MaskLabels)
}

func TestLoad_EnvSlice(t *testing.T) {
	cfg, err := LoadFrom("", []string{"TENDRIL_SECURITY_MASK_LABELS=a,b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cfg.Security.MaskLabels)
}

func TestLoad_CatalogsRelativeToFile(t *testing.T) {
	path := writeFile(t, "catalogs: [travel.yaml, /etc/tendril/shop.yaml]\n")
	cfg, err := LoadFrom(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(filepath.Dir(path), "travel.yaml"),
		"/etc/tendril/shop.yaml",
	}, cfg.Catalogs)

	cfg, err = LoadFrom("", []string{"TENDRIL_CATALOGS=a.yaml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yaml"}, cfg.Catalogs)
}

func TestLoad_EncryptionKey(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	cfg, err := LoadFrom("", []string{"TENDRIL_SECURITY_ENCRYPTION_KEY=" + key})
	require.NoError(t, err)
	assert.Len(t, cfg.Security.Key(), 32)

	short := base64.StdEncoding.EncodeToString([]byte("short"))
	_, err = LoadFrom("", []string{"TENDRIL_SECURITY_ENCRYPTION_KEY=" + short})
	assert.ErrorContains(t, err, "aes256")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     []string
		want    string
	}{
		{"unknown level", "log_level: loud", nil, "oneof"},
		{"unknown backend", "store: {backend: s3}", nil, "oneof"},
		{"unknown key", "colour: blue", nil, "colour"},
		{"section as scalar", "store: redis", nil, "must be a section"},
		{"bad duration", "http: {shutdown_timeout: soon}", nil, "shutdown_timeout"},
		{"redis without addr", "store: {backend: redis, redis: {addr: ''}}", nil, "required_for_redis"},
		{"negative limit", "", []string{"TENDRIL_LIMITS_MAX_EVAL_DEPTH=-1"}, "gte"},
		{"broken yaml", "log_level: [", nil, "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(writeFile(t, tt.content), tt.env)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorContains(t, err, "failed to read config")
}

func TestValidationErrors(t *testing.T) {
	_, err := LoadFrom(writeFile(t, "log_format: xml"), nil)
	require.Error(t, err)
	assert.Equal(t, []string{`Config.LogFormat: failed "oneof"`}, ValidationErrors(err))
	assert.Nil(t, ValidationErrors(os.ErrNotExist))
}

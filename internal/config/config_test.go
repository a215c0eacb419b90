package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.Production())
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "X-Trace-ID", cfg.Trace.Header)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
env: production
server:
  addr: ":8080"
  request_timeout: 2s
  crash_on_panic: true
database:
  max_conns: 4
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
	assert.True(t, cfg.Server.CrashOnPanic)
	assert.Equal(t, 4, cfg.Database.MaxConns)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "unset keys keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "env: production\nserver:\n  addr: \":8080\"\n")
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/users")
	t.Setenv("DB_MAX_CONNS", "7")
	t.Setenv("REQUEST_TIMEOUT", "750ms")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EnvTest, cfg.Env)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres://localhost/users", cfg.Database.URL)
	assert.Equal(t, 7, cfg.Database.MaxConns)
	assert.Equal(t, 750*time.Millisecond, cfg.Server.RequestTimeout)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "unknown_env", body: "env: staging\n"},
		{name: "bad_yaml", body: "server: [\n"},
		{name: "zero_pool", body: "database:\n  max_conns: 0\n"},
		{name: "bcrypt_cost", body: "bcrypt_cost: 99\n"},
		{name: "bad_int_env", body: "", env: map[string]string{"DB_MAX_CONNS": "many"}},
		{name: "bad_duration_env", body: "", env: map[string]string{"REQUEST_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

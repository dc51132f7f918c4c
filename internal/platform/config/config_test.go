package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
version: "1"
mode: dev
server:
  addr: ":9090"
  cors_origins: ["http://localhost:3000"]
database:
  driver: sqlite
  path: ./tmp/tools.db
auth:
  jwt_secret: "0123456789abcdef0123"
  token_ttl: 2h
tickets:
  timezone: America/Bogota
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, "sqlite", cfg.DB.Driver)
	require.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	require.Equal(t, 10, cfg.Auth.BcryptCost)
	require.Equal(t, 80, cfg.DB.MaxOpenConns)
	require.Equal(t, "toolcrib.events", cfg.AMQP.Exchange)
	require.Equal(t, "America/Bogota", cfg.TicketLocation().String())
}

func TestParseEnvOverridesSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "override-secret-override-secret")
	t.Setenv("DB_PATH", "/var/lib/tools.db")

	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "override-secret-override-secret", cfg.Auth.JWTSecret)
	require.Equal(t, "/var/lib/tools.db", cfg.DB.Path)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad mode":    "mode: staging\ndatabase: {driver: sqlite, path: x.db}\nauth: {jwt_secret: 0123456789abcdef}\n",
		"bad driver":  "database: {driver: oracle}\nauth: {jwt_secret: 0123456789abcdef}\n",
		"short key":   "database: {driver: sqlite, path: x.db}\nauth: {jwt_secret: short}\n",
		"mysql host":  "database: {driver: mysql}\nauth: {jwt_secret: 0123456789abcdef}\n",
		"bad tz":      "database: {driver: sqlite, path: x.db}\nauth: {jwt_secret: 0123456789abcdef}\ntickets: {timezone: Mars/Olympus}\n",
		"broken yaml": "database: [",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(in))
			require.Error(t, err)
		})
	}
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(sampleYAML), 0o600))

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "dev", cfg.Mode)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

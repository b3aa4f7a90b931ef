package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "web_content/public", cfg.PublicDir)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("STORE_DRIVER", "MONGO")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SESSION_SAMESITE", "strict")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, StoreDriverMongo, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, http.SameSiteStrictMode, cfg.SameSiteMode())
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SESSION_TTL", "forever")

	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_TTL")
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.StoreDriver = "cassandra" },
			wantErr: "unknown STORE_DRIVER",
		},
		{
			name: "production without db password",
			mutate: func(c *Config) {
				c.AppEnv = "production"
				c.DB.Password = ""
			},
			wantErr: "DB_PASSWORD",
		},
		{
			name: "mongo without database",
			mutate: func(c *Config) {
				c.StoreDriver = StoreDriverMongo
				c.Mongo.Database = ""
			},
			wantErr: "MONGO_DATABASE",
		},
		{
			name:    "missing redis",
			mutate:  func(c *Config) { c.Redis.Addr = "" },
			wantErr: "REDIS_ADDR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestDatabaseURL_EscapesPassword(t *testing.T) {
	cfg := &Config{}
	cfg.DB.User = "app"
	cfg.DB.Password = "p@ss word"
	cfg.DB.Host = "db"
	cfg.DB.Port = "5432"
	cfg.DB.Database = "delivery"
	cfg.DB.SSLMode = "disable"

	assert.Equal(t, "postgres://app:p%40ss+word@db:5432/delivery?sslmode=disable", cfg.DatabaseURL())
}

func TestIsProduction(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "production")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())

	cfg.AppEnv = "development"
	assert.False(t, cfg.IsProduction())
}

package config_test

import (
	"testing"
	"time"

	"flowboard/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("JWT_EXPIRY_HOURS", "not-a-number")

	cfg := config.Load()

	assert.Equal(t, "db", cfg.DBHost)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.True(t, cfg.RunMigrations)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_USER", "u")
	t.Setenv("DB_PASSWORD", "p")
	t.Setenv("DB_NAME", "boards")
	t.Setenv("JWT_EXPIRY_HOURS", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("MIGRATIONS", "false")

	cfg := config.Load()

	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, "host=db port=6543 user=u password=p dbname=boards sslmode=disable", cfg.DSN())
	assert.Equal(t, "pgx5://u:p@db:6543/boards?sslmode=disable", cfg.MigrationURL())
}

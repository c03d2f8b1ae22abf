package db

import (
	"testing"

	"github.com/smallbiznis/perks/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect(t *testing.T) {
	dialector, err := Dialect(Config{Type: "sqlite", Name: "perks_test.db"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", dialector.Name())

	_, err = Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	cfg := FromAppConfig(config.Config{
		DBType:        "postgres",
		DBHost:        "db.internal",
		DBPort:        "5432",
		DBName:        "perks",
		DBUser:        "perks",
		DBPassword:    "secret",
		DBSSLMode:     "require",
		DBMaxOpenConn: 10,
	})

	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, "perks", cfg.Name)
	assert.Equal(t, "require", cfg.SSLMode)
	assert.Equal(t, 10, cfg.MaxOpenConn)
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseConfigConnectionString(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "terminal",
		Password: "secret",
		Database: "data_terminal",
		SSLMode:  "require",
	}

	got := cfg.ConnectionString()
	assert.Equal(t, "host=db.internal port=5433 user=terminal password=secret dbname=data_terminal sslmode=require", got)
}

func TestDatabaseConfigConnectionStringFor(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "terminal",
		Password: "pw",
		Database: "data_terminal",
		SSLMode:  "disable",
	}

	got := cfg.ConnectionStringFor("df_p1")
	assert.Contains(t, got, "dbname=df_p1")
	assert.Contains(t, got, "host=localhost")
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresConfigURL(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db.internal",
		Port:     "5432",
		Database: "chess_tracker",
		User:     "tracker",
		Password: "p@ss:word",
	}

	assert.Equal(t,
		"postgres://tracker:p%40ss:word@db.internal:5432/chess_tracker?sslmode=disable",
		cfg.URL())
}

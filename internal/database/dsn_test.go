package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "engine",
		Password: "secret",
		Name:     "folderengine",
		Host:     "db.internal",
		Port:     5433,
	})
	require.NoError(t, err)
	require.Equal(t, "host=db.internal port=5433 user=engine dbname=folderengine password=secret sslmode=disable", dsn)
}

func TestBuildPostgresDSNDefaultsAndOverrides(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:    "engine",
		Name:    "folderengine",
		Options: map[string]string{"sslmode": "require"},
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=localhost")
	require.Contains(t, dsn, "port=5432")
	require.Contains(t, dsn, "sslmode=require")

	_, err = buildPostgresDSN(Config{Name: "folderengine"})
	require.Error(t, err)
}

func TestBuildPostgresDSNPassthrough(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://u:p@host/db"})
	require.NoError(t, err)
	require.Equal(t, "postgres://u:p@host/db", dsn)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "engine",
		Password: "secret",
		Name:     "folderengine",
	})
	require.NoError(t, err)
	require.Equal(t, "engine:secret@tcp(127.0.0.1:3306)/folderengine?charset=utf8mb4&loc=Local&parseTime=True", dsn)

	_, err = buildMySQLDSN(Config{User: "engine"})
	require.Error(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

package main

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/tracker/internal/config"
	"github.com/R3E-Network/tracker/pkg/logger"
)

func stubDatabase(t *testing.T, applyErr error) (sqlmock.Sqlmock, *bool) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	applied := false
	oldOpen, oldApply := openPostgres, applyMigrations
	openPostgres = func(context.Context, string) (*sqlx.DB, error) {
		return sqlx.NewDb(db, "postgres"), nil
	}
	applyMigrations = func(context.Context, *sql.DB) error {
		applied = true
		return applyErr
	}
	t.Cleanup(func() { openPostgres, applyMigrations = oldOpen, oldApply })
	return mock, &applied
}

func TestMigrateClosesPool(t *testing.T) {
	mock, applied := stubDatabase(t, nil)
	mock.ExpectClose()

	cfg := config.DatabaseConfig{DSN: "postgres://tracker@localhost/tracker", MaxOpenConns: 2}
	require.NoError(t, migrate(context.Background(), cfg, logger.NewNop()))

	assert.True(t, *applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateFailureClosesPool(t *testing.T) {
	mock, _ := stubDatabase(t, assert.AnError)
	mock.ExpectClose()

	cfg := config.DatabaseConfig{DSN: "postgres://tracker@localhost/tracker"}
	err := migrate(context.Background(), cfg, logger.NewNop())
	assert.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateRequiresDSN(t *testing.T) {
	err := migrate(context.Background(), config.DatabaseConfig{}, logger.NewNop())
	assert.Error(t, err)
}

func TestOpenDatabaseMemoryMode(t *testing.T) {
	db, err := openDatabase(context.Background(), config.DatabaseConfig{}, false, logger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, db)
}

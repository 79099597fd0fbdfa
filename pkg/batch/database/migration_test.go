package database_test

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"weatheretl/pkg/batch/database"
	"weatheretl/pkg/batch/util/exception"
)

func openSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "batch.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunMigrations_SQLite(t *testing.T) {
	db := openSQLite(t)

	require.NoError(t, database.RunMigrations(db.DB, database.DialectSQLite, false))
	// 二回目は変更なしとして成功する
	require.NoError(t, database.RunMigrations(db.DB, database.DialectSQLite, false))

	var tables []string
	require.NoError(t, db.Select(&tables,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('job_executions', 'step_executions', ?) ORDER BY name",
		database.MigrationsTable))
	assert.Equal(t, []string{database.MigrationsTable, "job_executions", "step_executions"}, tables)

	require.NoError(t, db.Ping(), "the shared connection stays open")
}

func TestRunMigrations_UnsupportedDialect(t *testing.T) {
	db := openSQLite(t)
	err := database.RunMigrations(db.DB, database.DialectSnowflake, false)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfig))
}

func TestDialect(t *testing.T) {
	assert.True(t, database.DialectSQLite.TransactionalDDL())
	assert.True(t, database.DialectRedshift.TransactionalDDL())
	assert.False(t, database.DialectMySQL.TransactionalDDL())
	assert.False(t, database.DialectSnowflake.TransactionalDDL())
	assert.Equal(t, "postgres", database.DialectRedshift.DriverName())
	assert.Equal(t, "REAL", database.DialectSQLite.FloatType())
	assert.False(t, database.DialectSnowflake.SupportsJobRepository())
}

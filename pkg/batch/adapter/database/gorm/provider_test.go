package gorm_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gormadapter "github.com/tigerroll/datalake/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/datalake/pkg/batch/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/datalake/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/datalake/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/datalake/pkg/batch/core/config"
)

func TestRegisteredTypes(t *testing.T) {
	assert.Equal(t, []string{"mysql", "postgres", "sqlite"}, gormadapter.RegisteredTypes())
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := gormadapter.Open(config.RepositoryConfig{Type: "oracle", DSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dialector registered")
}

func TestOpen_EmptySQLitePath(t *testing.T) {
	_, err := gormadapter.Open(config.RepositoryConfig{Type: "sqlite"})
	require.Error(t, err)
}

func TestOpen_SQLite(t *testing.T) {
	db, err := gormadapter.Open(config.RepositoryConfig{
		Type: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "batch.db"),
		Pool: config.PoolConfig{MaxOpenConns: 1},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, sqlDB.Close())
}

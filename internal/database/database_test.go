package database

import (
	"context"
	"testing"

	"rau/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurePool(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: "5432", DBUser: "rau", DBPassword: "pw", DBName: "forum"}
	assert.Equal(t, "host=db port=5432 user=rau password=pw dbname=forum sslmode=disable", PostgresDSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Contains(t, PostgresDSN(cfg), "sslmode=require")
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name            string
		cfg             config.Config
		runSQL, runAuto bool
		wantErr         bool
	}{
		{"hybrid dev", config.Config{Env: "development", DBSchemaMode: "hybrid", StorageBackend: config.BackendPostgres}, true, true, false},
		{"hybrid prod", config.Config{Env: "production", DBSchemaMode: "hybrid", StorageBackend: config.BackendPostgres}, true, false, false},
		{"empty mode is hybrid", config.Config{Env: "production", StorageBackend: config.BackendPostgres}, true, false, false},
		{"sql", config.Config{Env: "development", DBSchemaMode: "sql", StorageBackend: config.BackendPostgres}, true, false, false},
		{"auto dev", config.Config{Env: "development", DBSchemaMode: "auto", StorageBackend: config.BackendPostgres}, false, true, false},
		{"auto prod refused", config.Config{Env: "production", DBSchemaMode: "auto", StorageBackend: config.BackendPostgres}, false, false, true},
		{"auto prod allowed", config.Config{Env: "production", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true, StorageBackend: config.BackendPostgres}, false, true, false},
		{"unknown mode", config.Config{Env: "development", DBSchemaMode: "yolo", StorageBackend: config.BackendPostgres}, false, false, true},
		{"sqlite always auto", config.Config{Env: "production", DBSchemaMode: "sql", StorageBackend: config.BackendSQLite}, false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.runSQL, runSQL)
			assert.Equal(t, tt.runAuto, runAuto)
		})
	}
}

func TestApplySchema_SQLite(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	cfg := &config.Config{Env: "test", StorageBackend: config.BackendSQLite}
	require.NoError(t, ApplySchema(context.Background(), db, cfg))

	status, err := GetSchemaStatus(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.False(t, status.WillRunSQL)
	assert.True(t, status.WillRunAutoMigrate)
}

func TestGetMigrations_Ordered(t *testing.T) {
	ms := GetMigrations()
	require.NotEmpty(t, ms)
	for i := 1; i < len(ms); i++ {
		assert.Less(t, ms[i-1].Version, ms[i].Version)
	}
	assert.Equal(t, "000001_init_schema", ms[0].String())
	require.NotNil(t, GetMigrationByVersion(1))
	assert.NotEmpty(t, GetMigrationByVersion(1).DownScript)
	assert.Nil(t, GetMigrationByVersion(999))

	fold := GetMigrationByVersion(3)
	require.NotNil(t, fold)
	assert.Equal(t, "search_fold_columns", fold.Name)
	assert.Contains(t, fold.UpScript, "name_fold")
	assert.Contains(t, fold.DownScript, "DROP COLUMN IF EXISTS name_fold")
}

func TestValidateAppliedVersions(t *testing.T) {
	assert.NoError(t, validateAppliedVersions(nil, GetMigrations()))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, GetMigrations()))
	assert.Error(t, validateAppliedVersions([]int{1, 42}, GetMigrations()))
}

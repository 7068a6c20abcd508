package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"rau/internal/middleware"

	"gorm.io/gorm"
)

// schemaLockKey serialises migration runs across API replicas sharing one
// Postgres database.
const schemaLockKey int64 = 0x7261755f736368 // "rau_sch"

const createSchemaMigrationsSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	checksum VARCHAR(64) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// SchemaMigration is one applied entry of the schema_migrations log.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for GORM.
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

// Checksum fingerprints the up script so edits to applied migrations are caught.
func (m Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.UpScript))
	return hex.EncodeToString(sum[:])
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

func appliedMigrations(ctx context.Context, db *gorm.DB) ([]SchemaMigration, error) {
	var rows []SchemaMigration
	if err := db.WithContext(ctx).Order("version ASC").Find(&rows).Error; err != nil {
		if isMissingTableError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return rows, nil
}

// AppliedVersions lists applied migration versions in ascending order. A
// database that has never been migrated reports none.
func AppliedVersions(ctx context.Context, db *gorm.DB) ([]int, error) {
	rows, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, err
	}
	versions := make([]int, len(rows))
	for i, row := range rows {
		versions[i] = row.Version
	}
	return versions, nil
}

// RunMigrations applies every pending embedded migration, each in its own
// transaction together with its log row.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return runMigrations(ctx, db, GetMigrations())
}

func runMigrations(ctx context.Context, db *gorm.DB, set []Migration) error {
	if err := db.WithContext(ctx).Exec(createSchemaMigrationsSQL).Error; err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return err
	}
	if err := checkApplied(applied, set); err != nil {
		return err
	}

	done := make(map[int]bool, len(applied))
	for _, row := range applied {
		done[row.Version] = true
	}
	ran := 0
	for _, m := range set {
		if done[m.Version] {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
		ran++
	}
	middleware.Logger.InfoContext(ctx, "Schema up to date", slog.Int("applied_now", ran), slog.Int("total", len(set)))
	return nil
}

// lockSchema takes the transaction-scoped advisory lock on Postgres. Other
// dialects run migrations from a single process.
func lockSchema(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", schemaLockKey).Error; err != nil {
		return fmt.Errorf("lock schema: %w", err)
	}
	return nil
}

func isApplied(tx *gorm.DB, version int) (bool, error) {
	var count int64
	if err := tx.Model(&SchemaMigration{}).Where("version = ?", version).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func applyMigration(ctx context.Context, db *gorm.DB, m Migration) error {
	start := time.Now()
	skipped := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSchema(tx); err != nil {
			return err
		}
		// Another replica may have won the lock first.
		already, err := isApplied(tx, m.Version)
		if err != nil {
			return err
		}
		if already {
			skipped = true
			return nil
		}
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return err
		}
		return tx.Create(&SchemaMigration{
			Version:   m.Version,
			Name:      m.Name,
			Checksum:  m.Checksum(),
			AppliedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return fmt.Errorf("apply migration %s: %w", m.String(), err)
	}
	if skipped {
		middleware.Logger.DebugContext(ctx, "Schema migration applied concurrently", slog.String("migration", m.String()))
		return nil
	}
	middleware.Logger.InfoContext(ctx, "Schema migration applied",
		slog.String("migration", m.String()),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// checkApplied refuses to run against a log that names unknown versions or
// whose checksums no longer match the embedded scripts.
func checkApplied(applied []SchemaMigration, registered []Migration) error {
	versions := make([]int, len(applied))
	for i, row := range applied {
		versions[i] = row.Version
	}
	if err := validateAppliedVersions(versions, registered); err != nil {
		return err
	}

	byVersion := make(map[int]Migration, len(registered))
	for _, m := range registered {
		byVersion[m.Version] = m
	}
	var drifted []string
	for _, row := range applied {
		if m := byVersion[row.Version]; row.Checksum != m.Checksum() {
			drifted = append(drifted, m.String())
		}
	}
	if len(drifted) > 0 {
		return fmt.Errorf("applied migrations were edited after release: %s (add a new migration instead)", strings.Join(drifted, ", "))
	}
	return nil
}

func validateAppliedVersions(applied []int, registered []Migration) error {
	known := make(map[int]struct{}, len(registered))
	for _, m := range registered {
		known[m.Version] = struct{}{}
	}

	var unknown []int
	for _, version := range applied {
		if _, ok := known[version]; !ok {
			unknown = append(unknown, version)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Ints(unknown)
	parts := make([]string, len(unknown))
	for i, version := range unknown {
		parts[i] = fmt.Sprintf("%06d", version)
	}
	return fmt.Errorf("schema_migrations lists versions this build does not know: %s", strings.Join(parts, ", "))
}

// RollbackMigration runs the down script of an applied migration and drops
// its log row in one transaction.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}
	return rollbackMigration(ctx, db, *m)
}

func rollbackMigration(ctx context.Context, db *gorm.DB, m Migration) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockSchema(tx); err != nil {
			return err
		}
		applied, err := isApplied(tx, m.Version)
		if err != nil {
			return err
		}
		if !applied {
			return fmt.Errorf("migration %s has not been applied", m.String())
		}
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("run down script: %w", err)
		}
		return tx.Where("version = ?", m.Version).Delete(&SchemaMigration{}).Error
	})
	if err != nil {
		return fmt.Errorf("rollback migration %s: %w", m.String(), err)
	}
	middleware.Logger.InfoContext(ctx, "Schema migration rolled back", slog.String("migration", m.String()))
	return nil
}

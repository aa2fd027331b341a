package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Connect opens the interaction store. TranslateError is required: the
// repositories lean on gorm.ErrDuplicatedKey to detect redelivered toggles
// and comments. NowFunc pins row timestamps to UTC so dedup expiry
// comparisons never straddle the server timezone.
func Connect(ctx context.Context, databaseURL string, maxConns int32) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 10
	}
	sqlDB.SetMaxOpenConns(int(maxConns))
	// Consumers hold connections in short bursts between polls, so a small
	// idle floor beats the usual half-of-open heuristic.
	idle := int(maxConns) / 4
	if idle < 2 {
		idle = 2
	}
	sqlDB.SetMaxIdleConns(idle)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// RunMigrations applies the embedded schema files in lexical order. Every
// statement is written to be rerunnable (IF NOT EXISTS), so this executes on
// each boot without a version table.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	paths, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	for _, path := range paths {
		raw, readErr := migrationFS.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read migration %s: %w", path, readErr)
		}
		if execErr := db.WithContext(ctx).Exec(string(raw)).Error; execErr != nil {
			return fmt.Errorf("apply migration %s: %w", path, execErr)
		}
	}
	return nil
}

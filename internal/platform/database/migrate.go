package database

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies all pending migrations at startup. The DSN scheme is
// rewritten to pgx5:// so migrate uses the same driver family as the pool.
func RunMigrations(sourceURL, dsn string, logger *slog.Logger) error {
	databaseURL := dsn
	if strings.HasPrefix(databaseURL, "postgres://") {
		databaseURL = "pgx5://" + strings.TrimPrefix(databaseURL, "postgres://")
	} else if strings.HasPrefix(databaseURL, "postgresql://") {
		databaseURL = "pgx5://" + strings.TrimPrefix(databaseURL, "postgresql://")
	}

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", "error", srcErr)
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database handle", "error", dbErr)
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Database schema is up to date")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("Database migrations applied")
	return nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"codebattle/internal/platform/config"
	"codebattle/internal/platform/logger"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

// Connect opens the pool and verifies it. The caller owns the handle and closes it at shutdown.
func Connect(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DBConnStr)
	if err != nil {
		return nil, fmt.Errorf("database.Connect open: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database.Connect ping: %w", err)
	}

	logger.L().Info().Str("host", cfg.DBHost).Msg("connected to PostgreSQL")
	return db, nil
}

func Close(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.L().Error().Err(err).Msg("closing database")
		return
	}
	logger.L().Info().Msg("database connection closed")
}

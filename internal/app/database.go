package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpq" // Registers "nrpostgres" driver
	"github.com/newrelic/go-agent/v3/newrelic"

	"delivery/internal/config"
	"delivery/internal/telemetry"
)

// NewDatabase creates a new PostgreSQL connection pool.
// New Relic's instrumented driver wins when nrApp is set; otherwise the
// OpenTelemetry wrapper is used when tracing is enabled.
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig, nrApp *newrelic.Application, traced bool) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch {
	case nrApp != nil:
		db, err = sql.Open("nrpostgres", cfg.DSN())
	case traced:
		db, err = telemetry.OpenDB("postgres", cfg.DSN())
	default:
		db, err = sql.Open("postgres", cfg.DSN())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pool sizing for a single API replica; the sweep workers share it.
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	// Verify connection.
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"

	"response-dashboard/config"
)

const serviceName = "response-dashboard"

// Database persists service state across restarts. Reports and notifications
// live upstream; the only thing stored here is the previous snapshot's
// counters so the alert decision survives a restart.
type Database struct {
	db *sql.DB
}

// NewDatabase opens the service state database connection.
func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Infof("database connected to %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)

	return &Database{db: db}, nil
}

// NewDatabaseFromConn wraps an existing connection; used by tests.
func NewDatabaseFromConn(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// EnsureStateTable creates the service_state table if it doesn't exist.
func (d *Database) EnsureStateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS service_state (
			service_name VARCHAR(64) PRIMARY KEY,
			pending_count INT NOT NULL DEFAULT 0,
			unseen_count INT NOT NULL DEFAULT 0,
			last_snapshot_seq BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`
	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create service_state table: %w", err)
	}
	return nil
}

// GetCounters returns the previously persisted snapshot counters. A missing
// row yields zeros, not an error.
func (d *Database) GetCounters(ctx context.Context) (pending, unseen int, seq int64, err error) {
	err = d.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(pending_count), 0), COALESCE(MAX(unseen_count), 0), COALESCE(MAX(last_snapshot_seq), 0) FROM service_state WHERE service_name = ?",
		serviceName).Scan(&pending, &unseen, &seq)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to get service state: %w", err)
	}
	return pending, unseen, seq, nil
}

// UpdateCounters persists the latest snapshot counters.
func (d *Database) UpdateCounters(ctx context.Context, pending, unseen int, seq int64) error {
	query := `
		INSERT INTO service_state (service_name, pending_count, unseen_count, last_snapshot_seq, updated_at)
		VALUES (?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE pending_count = ?, unseen_count = ?, last_snapshot_seq = ?, updated_at = NOW()`
	_, err := d.db.ExecContext(ctx, query, serviceName, pending, unseen, seq, pending, unseen, seq)
	if err != nil {
		return fmt.Errorf("failed to update service state: %w", err)
	}
	return nil
}

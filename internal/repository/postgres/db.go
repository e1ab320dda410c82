package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/vendbees/backend-go/internal/config"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 2
	connMaxLifetime = 5 * time.Minute
	// Commands lock one stock row each; more concurrent transactions only queue on the lock
	maxConcurrentTx = 4
)

// DB is the connection pool behind the postgres upstream
type DB struct {
	*sqlx.DB
	tx *semaphore.Weighted
}

// NewDB connects with lib/pq and verifies the server answers
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	return newDB(db), nil
}

// Wrap adapts an already opened connection
func Wrap(db *sql.DB) *DB {
	return newDB(sqlx.NewDb(db, "postgres"))
}

func newDB(db *sqlx.DB) *DB {
	return &DB{DB: db, tx: semaphore.NewWeighted(maxConcurrentTx)}
}

// WithTx runs fn in a transaction, committing when it returns nil
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := db.tx.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for a transaction slot: %w", err)
	}
	defer db.tx.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("postgres: rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

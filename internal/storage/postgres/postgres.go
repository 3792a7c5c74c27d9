// Package postgres persists player affinity in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arcana/internal/config"
)

// Pool owns the pgx connection pool shared by every repository.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool parses cfg, opens the pool and pings the server once.
//
// Precondition: cfg must contain valid database connection parameters.
// Postcondition: Returns a Pool that has answered a ping, or a non-nil error
// with nothing left open.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Pool{pool: pool}, nil
}

// Health pings the server, giving up after timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// StatFields summarizes pool usage as log fields.
func (p *Pool) StatFields() []zap.Field {
	st := p.pool.Stat()
	return []zap.Field{
		zap.Int32("total_conns", st.TotalConns()),
		zap.Int32("idle_conns", st.IdleConns()),
		zap.Int32("acquired_conns", st.AcquiredConns()),
		zap.Int32("max_conns", st.MaxConns()),
	}
}

// Close releases every connection. The Pool is unusable afterwards.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB exposes the raw pool to repositories and tests.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}

// Affinity returns an AffinityRepository over this pool.
func (p *Pool) Affinity(logger *zap.Logger) *AffinityRepository {
	return NewAffinityRepository(p.pool, logger)
}

// inTx runs fn inside a transaction on db, committing when fn returns nil and
// rolling back otherwise.
//
// Postcondition: the transaction is closed when inTx returns.
func inTx(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger, fn func(pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			logger.Error("rollback failed", zap.Error(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

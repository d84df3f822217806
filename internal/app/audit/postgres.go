package audit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"wsrelay/internal/pkg/logx"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	// eventQueueSize bounds the number of presence events waiting to be written.
	eventQueueSize = 256

	// writeTimeout caps a single insert.
	writeTimeout = 5 * time.Second

	insertEventSQL = `INSERT INTO session_events (conn_id, username, event, occurred_at) VALUES ($1, $2, $3, $4)`
)

// execer is the subset of *pgxpool.Pool the recorder writes through.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRecorder writes presence events to the session_events table from a single
// background goroutine so callers never wait on the database.
type PostgresRecorder struct {
	db      execer
	release func()

	events chan Event

	// mu guards closed so Record never sends on a closed channel.
	mu     sync.RWMutex
	closed bool

	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewPostgresRecorder opens a connection pool for dsn, applies the embedded migrations,
// and starts the writer loop.
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	pool, err := newPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return newPostgresRecorder(pool, pool.Close), nil
}

func newPostgresRecorder(db execer, release func()) *PostgresRecorder {
	r := &PostgresRecorder{
		db:      db,
		release: release,
		events:  make(chan Event, eventQueueSize),
		logger:  logx.Component("audit"),
	}

	r.wg.Add(1)
	go r.runWriteLoop()

	return r
}

// newPool initializes a PostgreSQL connection pool and executes database migrations.
func newPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := runMigrations(ctx, sqlDB); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// runMigrations applies all pending migrations from the embedded file system.
func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logx.Info("Presence audit migrations applied successfully.")
	return nil
}

// Record queues ev for writing. Events are dropped when the queue is full or the
// recorder is closed.
func (r *PostgresRecorder) Record(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	select {
	case r.events <- ev:
	default:
		r.logger.Warn().
			Str("conn_id", ev.ConnID).
			Str("event", string(ev.Kind)).
			Msg("Audit queue full, dropping presence event.")
	}
}

func (r *PostgresRecorder) runWriteLoop() {
	defer r.wg.Done()

	for ev := range r.events {
		r.write(ev)
	}
}

func (r *PostgresRecorder) write(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if _, err := r.db.Exec(ctx, insertEventSQL, ev.ConnID, ev.Name, string(ev.Kind), ev.At); err != nil {
		r.logger.Error().
			Err(err).
			Str("conn_id", ev.ConnID).
			Str("username", ev.Name).
			Str("event", string(ev.Kind)).
			Msg("Failed to write presence event.")
	}
}

// Close stops accepting events, flushes the queue, and releases the pool.
func (r *PostgresRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.events)
	r.mu.Unlock()

	r.wg.Wait()

	if r.release != nil {
		r.release()
	}

	r.logger.Info().Msg("Presence audit recorder closed.")
}

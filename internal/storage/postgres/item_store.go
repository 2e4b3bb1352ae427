// Package postgres persists itemized crawl pages in Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/dvsvc-crawler/internal/frontier"
)

// Default table names.
const (
	DefaultItemsTable   = "crawl_item"
	DefaultBatchesTable = "crawl_item_batch"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ErrNotConfigured is returned by a zero or closed store.
var ErrNotConfigured = errors.New("item store is not configured")

// Config controls the Postgres connection pool and table names.
type Config struct {
	DSN             string
	ItemsTable      string
	BatchesTable    string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// ItemStore writes crawl items and batches. It implements frontier.Sink.
type ItemStore struct {
	pool    pool
	items   string
	batches string
}

var _ frontier.Sink = (*ItemStore)(nil)

// NewItemStore connects a pool using cfg.
func NewItemStore(ctx context.Context, cfg Config) (*ItemStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.url is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
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
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewItemStoreWithPool(p, cfg.ItemsTable, cfg.BatchesTable)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewItemStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewItemStoreWithPool(p pool, itemsTable, batchesTable string) (*ItemStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if itemsTable == "" {
		itemsTable = DefaultItemsTable
	}
	if batchesTable == "" {
		batchesTable = DefaultBatchesTable
	}
	for _, name := range []string{itemsTable, batchesTable} {
		if !validTableName.MatchString(name) {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}
	return &ItemStore{pool: p, items: itemsTable, batches: batchesTable}, nil
}

// EnsureSchema creates both tables when they are missing.
func (s *ItemStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return ErrNotConfigured
	}
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[2]s (
	id BIGSERIAL PRIMARY KEY,
	time_batched TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS %[1]s (
	id BIGSERIAL PRIMARY KEY,
	link TEXT NOT NULL,
	pscore DOUBLE PRECISION NOT NULL,
	lscore DOUBLE PRECISION,
	time_queued TIMESTAMPTZ,
	time_crawled TIMESTAMPTZ,
	batch_id BIGINT REFERENCES %[2]s (id)
)`, s.items, s.batches)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *ItemStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Itemize inserts a single unbatched item.
func (s *ItemStore) Itemize(ctx context.Context, item frontier.CrawlItem) error {
	if s == nil || s.pool == nil {
		return ErrNotConfigured
	}
	if _, err := s.insertItem(ctx, s.pool, item, nil); err != nil {
		return err
	}
	return nil
}

// FlushBatch inserts the batch row and then each of its items in one
// transaction.
func (s *ItemStore) FlushBatch(ctx context.Context, batch frontier.Batch) error {
	if s == nil || s.pool == nil {
		return ErrNotConfigured
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}

	var batchID int64
	query := fmt.Sprintf(`INSERT INTO %s (time_batched) VALUES ($1) RETURNING id`, s.batches)
	if err := tx.QueryRow(ctx, query, batch.TimeBatched).Scan(&batchID); err != nil {
		return rollback(ctx, tx, fmt.Errorf("insert batch: %w", err))
	}
	for _, item := range batch.Items {
		if _, err := s.insertItem(ctx, tx, item, &batchID); err != nil {
			return rollback(ctx, tx, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

type rowQuerier interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}

func (s *ItemStore) insertItem(ctx context.Context, q rowQuerier, item frontier.CrawlItem, batchID *int64) (int64, error) {
	query := fmt.Sprintf(`
INSERT INTO %s (
	link,
	pscore,
	lscore,
	time_queued,
	time_crawled,
	batch_id
) VALUES (
	$1,$2,$3,$4,$5,$6
) RETURNING id`, s.items)

	var lscore *float64
	if item.LinkScore != nil {
		v := item.LinkScore.Value
		lscore = &v
	}
	var id int64
	err := q.QueryRow(ctx, query,
		item.Link,
		item.PageScore.Value,
		lscore,
		nullTime(item.TimeQueued),
		nullTime(item.TimeCrawled),
		batchID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert item %s: %w", item.Link, err)
	}
	return id, nil
}

func rollback(ctx context.Context, tx pgx.Tx, cause error) error {
	if err := tx.Rollback(ctx); err != nil {
		return fmt.Errorf("%w (rollback: %v)", cause, err)
	}
	return cause
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

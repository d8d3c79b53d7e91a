// Package sink optionally exports fetched items into Postgres as JSONB
// documents, one row per item, upserted by (source, target, item_key).
package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	errs "socialfetch/pkg/errors"
	"socialfetch/pkg/logger"
)

// Record is one exported item
type Record struct {
	Source    string
	Target    string
	Key       string
	RunID     string
	FetchedAt time.Time
	Doc       interface{}
}

// Sink receives the items of a finished run
type Sink interface {
	Upsert(ctx context.Context, records []Record) error
	Close()
}

// Nop discards everything; used when no DSN is configured
type Nop struct{}

func (Nop) Upsert(context.Context, []Record) error { return nil }
func (Nop) Close()                                 {}

// Records builds one Record per item, keyed by key(item)
func Records[T any](source, target, runID string, items []T, key func(T) string) []Record {
	now := time.Now().UTC()
	out := make([]Record, 0, len(items))
	for _, it := range items {
		out = append(out, Record{
			Source:    source,
			Target:    target,
			Key:       key(it),
			RunID:     runID,
			FetchedAt: now,
			Doc:       it,
		})
	}
	return out
}

const schema = `
CREATE TABLE IF NOT EXISTS socialfetch_items (
  source TEXT NOT NULL,
  target TEXT NOT NULL,
  item_key TEXT NOT NULL,
  run_id TEXT NOT NULL,
  fetched_at TIMESTAMPTZ NOT NULL,
  doc JSONB NOT NULL,
  PRIMARY KEY (source, target, item_key)
);
CREATE INDEX IF NOT EXISTS idx_socialfetch_items_fetched ON socialfetch_items(fetched_at);
CREATE INDEX IF NOT EXISTS idx_socialfetch_items_doc_gin ON socialfetch_items USING GIN (doc);
`

// PGStore writes records into socialfetch_items
type PGStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

var _ Sink = (*PGStore)(nil)

// New connects and creates the table if needed
func New(ctx context.Context, dsn string, log logger.Logger) (*PGStore, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeValidation, err, "invalid postgres DSN")
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to prepare postgres schema")
	}
	return &PGStore{pool: pool, logger: log}, nil
}

// Upsert inserts or replaces records in one batch
func (s *PGStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, r := range records {
		raw, err := json.Marshal(r.Doc)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeParsing, err, "failed to encode record")
		}
		b.Queue(`
INSERT INTO socialfetch_items (source,target,item_key,run_id,fetched_at,doc)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (source,target,item_key) DO UPDATE SET
  run_id=EXCLUDED.run_id, fetched_at=EXCLUDED.fetched_at, doc=EXCLUDED.doc`,
			r.Source, r.Target, r.Key, r.RunID, r.FetchedAt, raw)
	}

	br := s.pool.SendBatch(ctx, b)
	defer br.Close()
	for range records {
		if _, err := br.Exec(); err != nil {
			return errs.Wrap(errs.ErrorTypeNetwork, err, "postgres upsert failed")
		}
	}

	s.logger.WithField("count", len(records)).Info("Exported items to postgres")
	return nil
}

// Docs returns the stored documents for a target, ordered by key
func (s *PGStore) Docs(ctx context.Context, source, target string) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM socialfetch_items WHERE source=$1 AND target=$2 ORDER BY item_key`,
		source, target)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "postgres query failed")
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

// Close releases the pool
func (s *PGStore) Close() {
	s.pool.Close()
}

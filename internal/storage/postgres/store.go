package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"defiScope/internal/storage"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS derived_records (
		collection    TEXT NOT NULL,
		id            TEXT NOT NULL,
		partition_key TEXT NOT NULL,
		sort_key      TEXT COLLATE "C" NOT NULL,
		data          JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS derived_records_partition_sort
		ON derived_records (collection, partition_key, sort_key)`,
}

// Store provides Postgres persistence for derived collections.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (storage.Record, error) {
	record := storage.Record{ID: id}
	row := s.pool.QueryRow(ctx, `
		SELECT partition_key, sort_key, data
		FROM derived_records
		WHERE collection = $1 AND id = $2
	`, collection, id)
	if err := row.Scan(&record.Partition, &record.Sort, &record.Data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Record{}, storage.ErrNotFound
		}
		return storage.Record{}, err
	}
	return record, nil
}

func (s *Store) Query(ctx context.Context, collection, partition string, q storage.Query) ([]storage.Record, error) {
	sql, args := buildQuery(collection, partition, q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []storage.Record
	for rows.Next() {
		var record storage.Record
		if err := rows.Scan(&record.ID, &record.Partition, &record.Sort, &record.Data); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) Put(ctx context.Context, collection string, record storage.Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO derived_records (collection, id, partition_key, sort_key, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (collection, id)
		DO UPDATE SET
			partition_key = EXCLUDED.partition_key,
			sort_key = EXCLUDED.sort_key,
			data = EXCLUDED.data,
			updated_at = now()
	`, collection, record.ID, record.Partition, record.Sort, record.Data)
	return err
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM derived_records WHERE collection = $1 AND id = $2`, collection, id)
	return err
}

func buildQuery(collection, partition string, q storage.Query) (string, []any) {
	var b strings.Builder
	args := []any{collection, partition}

	b.WriteString(`SELECT id, partition_key, sort_key, data FROM derived_records WHERE collection = $1 AND partition_key = $2`)
	if q.GT != "" {
		args = append(args, q.GT)
		fmt.Fprintf(&b, " AND sort_key > $%d", len(args))
	}
	if q.LT != "" {
		args = append(args, q.LT)
		fmt.Fprintf(&b, " AND sort_key < $%d", len(args))
	}
	if q.Ascending {
		b.WriteString(" ORDER BY sort_key ASC, id ASC")
	} else {
		b.WriteString(" ORDER BY sort_key DESC, id DESC")
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/pkg/utils"
)

// maxIDsPerQuery bounds the number of bound parameters in one IN list.
const maxIDsPerQuery = 500

const recordColumns = `id, text, typ, parti, ar, datum, kalla, dok_id, talare, nummer, rubrik, replik`

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		typ TEXT NOT NULL,
		parti TEXT NOT NULL DEFAULT '',
		ar TEXT NOT NULL,
		datum TEXT NOT NULL DEFAULT '',
		kalla TEXT NOT NULL DEFAULT '',
		dok_id TEXT NOT NULL DEFAULT '',
		talare TEXT NOT NULL DEFAULT '',
		nummer INTEGER NOT NULL DEFAULT 0,
		rubrik TEXT NOT NULL DEFAULT '',
		replik TEXT NOT NULL DEFAULT '',
		embedding BLOB,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_ar ON records(ar);
	CREATE INDEX IF NOT EXISTS idx_records_typ_parti ON records(typ, parti);
	CREATE INDEX IF NOT EXISTS idx_records_dok_id ON records(dok_id);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertRecords inserts or replaces records in one transaction.
func (s *SQLiteStorage) UpsertRecords(ctx context.Context, records []*models.Record, embeddings [][]float32) error {
	if embeddings != nil && len(embeddings) != len(records) {
		return fmt.Errorf("upsert: %d records but %d embeddings", len(records), len(embeddings))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (`+recordColumns+`, embedding, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			text = excluded.text, typ = excluded.typ, parti = excluded.parti,
			ar = excluded.ar, datum = excluded.datum, kalla = excluded.kalla,
			dok_id = excluded.dok_id, talare = excluded.talare, nummer = excluded.nummer,
			rubrik = excluded.rubrik, replik = excluded.replik,
			embedding = excluded.embedding, updated_at = excluded.updated_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for i, r := range records {
		var blob []byte
		if embeddings != nil && embeddings[i] != nil {
			blob = utils.Float32sToBytes(embeddings[i])
		}
		m := r.Metadata
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Text, m.Type, m.Party, m.Year, m.Date, m.Source, m.DocID,
			m.Speaker, m.Number, m.Heading, m.Rebuttal, blob, now,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, extra ...any) (*models.Record, error) {
	var r models.Record
	m := &r.Metadata
	dest := append([]any{
		&r.ID, &r.Text, &m.Type, &m.Party, &m.Year, &m.Date, &m.Source,
		&m.DocID, &m.Speaker, &m.Number, &m.Heading, &m.Rebuttal,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecord returns a record by ID, or ErrNotFound.
func (s *SQLiteStorage) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetRecordsByIDs returns the records for ids in the given order; unknown IDs are skipped.
func (s *SQLiteStorage) GetRecordsByIDs(ctx context.Context, ids []string) ([]*models.Record, error) {
	byID := make(map[string]*models.Record, len(ids))
	for start := 0; start < len(ids); start += maxIDsPerQuery {
		end := min(start+maxIDsPerQuery, len(ids))
		batch := ids[start:end]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		query := `SELECT ` + recordColumns + ` FROM records WHERE id IN (` +
			strings.TrimSuffix(strings.Repeat("?, ", len(batch)), ", ") + `)`
		recs, err := s.queryRecords(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			byID[r.ID] = r
		}
	}
	out := make([]*models.Record, 0, len(byID))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetRecords returns every record matching filter in insertion order.
func (s *SQLiteStorage) GetRecords(ctx context.Context, filter models.Filter) ([]*models.Record, error) {
	where, args, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}
	return s.queryRecords(ctx, `SELECT `+recordColumns+` FROM records WHERE `+where+` ORDER BY rowid`, args...)
}

func (s *SQLiteStorage) queryRecords(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// FilterIDs returns the IDs of records matching filter.
func (s *SQLiteStorage) FilterIDs(ctx context.Context, filter models.Filter) ([]string, error) {
	where, args, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM records WHERE `+where+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteRecords removes records matching filter in one transaction and returns their IDs.
func (s *SQLiteStorage) DeleteRecords(ctx context.Context, filter models.Filter) ([]string, error) {
	ids, err := s.FilterIDs(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM records WHERE id = ?`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return nil, fmt.Errorf("delete %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// CountRecords returns the number of records matching filter.
func (s *SQLiteStorage) CountRecords(ctx context.Context, filter models.Filter) (int64, error) {
	where, args, err := compileFilter(filter)
	if err != nil {
		return 0, err
	}
	var count int64
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE `+where, args...).Scan(&count)
	return count, err
}

// ForEach streams all records with their embeddings.
func (s *SQLiteStorage) ForEach(ctx context.Context, fn func(rec *models.Record, embedding []float32) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+`, embedding FROM records ORDER BY rowid`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var blob []byte
		r, err := scanRecord(rows, &blob)
		if err != nil {
			return err
		}
		var vec []float32
		if len(blob) > 0 {
			vec = utils.BytesToFloat32s(blob)
		}
		if err := fn(r, vec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

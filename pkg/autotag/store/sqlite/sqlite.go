// Package sqlite implements store.Store on SQLite via modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/autotag/pkg/autotag/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite database with WAL mode enabled and creates the
// schema if it does not exist.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS product (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	platform TEXT NOT NULL,
	seller_id TEXT NOT NULL,
	sale_name TEXT NOT NULL,
	product_name TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '',
	data TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE(platform, seller_id, sale_name)
);

CREATE TABLE IF NOT EXISTS tag_feedback (
	id TEXT PRIMARY KEY,
	product_id INTEGER NOT NULL,
	original_company TEXT NOT NULL DEFAULT '',
	original_category TEXT NOT NULL DEFAULT '',
	original_tags TEXT NOT NULL DEFAULT '',
	corrected_company TEXT NOT NULL DEFAULT '',
	corrected_category TEXT NOT NULL DEFAULT '',
	corrected_tags TEXT NOT NULL DEFAULT '',
	corrected_product_name TEXT NOT NULL DEFAULT '',
	reviewer_id TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	FOREIGN KEY(product_id) REFERENCES product(id)
);

CREATE INDEX IF NOT EXISTS idx_tag_feedback_created_at ON tag_feedback(created_at);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

const productColumns = `id, platform, seller_id, sale_name, product_name, company, category, tags, data, created_at, updated_at`

// GetProduct returns a product row by id.
func (s *sqliteStore) GetProduct(ctx context.Context, id int64) (store.ProductRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM product WHERE id = ?`, id)
	rec, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return store.ProductRecord{}, false, nil
	}
	if err != nil {
		return store.ProductRecord{}, false, err
	}
	return rec, true, nil
}

// UpsertProduct inserts or updates a product row, keyed by
// (platform, seller_id, sale_name). Returns the row id.
func (s *sqliteStore) UpsertProduct(ctx context.Context, r store.ProductRecord) (int64, error) {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	data := string(r.Data)
	if data == "" {
		data = "{}"
	}

	const stmt = `
INSERT INTO product (platform, seller_id, sale_name, product_name, company, category, tags, data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(platform, seller_id, sale_name) DO UPDATE SET
	product_name=excluded.product_name,
	company=excluded.company,
	category=excluded.category,
	tags=excluded.tags,
	data=excluded.data,
	updated_at=excluded.updated_at
RETURNING id;
`

	var id int64
	err := s.db.QueryRowContext(
		ctx,
		stmt,
		r.Platform,
		r.SellerID,
		r.SaleName,
		r.ProductName,
		r.Company,
		r.Category,
		r.Tags,
		data,
		r.CreatedAt.Format(time.RFC3339),
		r.UpdatedAt.Format(time.RFC3339),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListUntagged returns up to limit rows still missing a tagging field.
func (s *sqliteStore) ListUntagged(ctx context.Context, limit int) ([]store.ProductRecord, error) {
	const q = `SELECT ` + productColumns + ` FROM product
WHERE company = '' OR category = '' OR tags = ''
ORDER BY id LIMIT ?`
	return s.listProducts(ctx, q, limit)
}

// ListTagged returns up to limit fully tagged rows.
func (s *sqliteStore) ListTagged(ctx context.Context, limit int) ([]store.ProductRecord, error) {
	const q = `SELECT ` + productColumns + ` FROM product
WHERE company != '' AND category != '' AND tags != ''
ORDER BY id LIMIT ?`
	return s.listProducts(ctx, q, limit)
}

func (s *sqliteStore) listProducts(ctx context.Context, query string, limit int) ([]store.ProductRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ProductRecord
	for rows.Next() {
		rec, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ApplyTags writes the tagging fields of a product row.
func (s *sqliteStore) ApplyTags(ctx context.Context, id int64, fields store.TagFields) error {
	const stmt = `UPDATE product
SET company = ?, category = ?, tags = ?,
	product_name = CASE WHEN ? != '' THEN ? ELSE product_name END,
	updated_at = ?
WHERE id = ?`

	res, err := s.db.ExecContext(
		ctx,
		stmt,
		fields.Company,
		fields.Category,
		fields.Tags,
		fields.ProductName,
		fields.ProductName,
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RecordFeedback inserts a feedback entry. Entries are append-only.
func (s *sqliteStore) RecordFeedback(ctx context.Context, e store.FeedbackEntry) error {
	const stmt = `
INSERT INTO tag_feedback (id, product_id,
	original_company, original_category, original_tags,
	corrected_company, corrected_category, corrected_tags, corrected_product_name,
	reviewer_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(
		ctx,
		stmt,
		e.ID,
		e.ProductID,
		e.Original.Company,
		e.Original.Category,
		e.Original.Tags,
		e.Corrected.Company,
		e.Corrected.Category,
		e.Corrected.Tags,
		e.Corrected.ProductName,
		e.ReviewerID,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// QueryFeedback returns entries recorded at or after since, oldest first.
func (s *sqliteStore) QueryFeedback(ctx context.Context, since time.Time) ([]store.FeedbackEntry, error) {
	const q = `SELECT id, product_id,
	original_company, original_category, original_tags,
	corrected_company, corrected_category, corrected_tags, corrected_product_name,
	reviewer_id, created_at
FROM tag_feedback WHERE created_at >= ? ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, q, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.FeedbackEntry
	for rows.Next() {
		var e store.FeedbackEntry
		var createdAt string
		err := rows.Scan(
			&e.ID,
			&e.ProductID,
			&e.Original.Company,
			&e.Original.Category,
			&e.Original.Tags,
			&e.Corrected.Company,
			&e.Corrected.Category,
			&e.Corrected.Tags,
			&e.Corrected.ProductName,
			&e.ReviewerID,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			e.CreatedAt = ts
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (store.ProductRecord, error) {
	var rec store.ProductRecord
	var data, createdAt, updatedAt string

	err := row.Scan(
		&rec.ID,
		&rec.Platform,
		&rec.SellerID,
		&rec.SaleName,
		&rec.ProductName,
		&rec.Company,
		&rec.Category,
		&rec.Tags,
		&data,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return store.ProductRecord{}, err
	}

	rec.Data = []byte(data)
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		rec.UpdatedAt = ts
	}
	return rec, nil
}

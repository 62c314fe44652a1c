package store

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// Store is the main interface for persisting and querying product rows
// and tagging feedback. The engine consumes it; marketplace ingestion
// adapters populate it.
type Store interface {
	Close() error

	// Products
	GetProduct(ctx context.Context, id int64) (ProductRecord, bool, error)
	UpsertProduct(ctx context.Context, r ProductRecord) (int64, error)
	ListUntagged(ctx context.Context, limit int) ([]ProductRecord, error)
	ListTagged(ctx context.Context, limit int) ([]ProductRecord, error)
	ApplyTags(ctx context.Context, id int64, fields TagFields) error

	// Feedback
	RecordFeedback(ctx context.Context, e FeedbackEntry) error
	QueryFeedback(ctx context.Context, since time.Time) ([]FeedbackEntry, error)
}

// ProductRecord is one marketplace product row. Company, Category, Tags
// and ProductName stay empty until the record has been tagged.
type ProductRecord struct {
	ID          int64
	Platform    string
	SellerID    string
	SaleName    string
	ProductName string
	Company     string
	Category    string
	Tags        string
	Data        json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Complete reports whether the record carries the three model-predicted
// fields. The canonical product name is an optional enrichment filled in
// by reviewer feedback and does not gate completeness.
func (r ProductRecord) Complete() bool {
	return r.Company != "" && r.Category != "" && r.Tags != ""
}

// TagFields holds the writable tagging fields of a product row.
type TagFields struct {
	Company     string
	Category    string
	Tags        string
	ProductName string
}

// Prediction is the engine's output for one product.
type Prediction struct {
	Company  string
	Category string
	Tags     string
}

// FeedbackEntry records one human correction. Entries are immutable once
// written; retraining reads them and never deletes them.
type FeedbackEntry struct {
	ID         string // ULID
	ProductID  int64
	Original   Prediction
	Corrected  TagFields
	ReviewerID string
	CreatedAt  time.Time
}

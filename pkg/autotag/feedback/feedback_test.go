package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cognicore/autotag/pkg/autotag/store"
	"github.com/cognicore/autotag/pkg/autotag/store/memstore"
)

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	st := memstore.New()
	sys := New(st, zerolog.Nop())
	ctx := context.Background()

	err := sys.Record(ctx, store.FeedbackEntry{ProductID: 1, Corrected: store.TagFields{Category: "액상"}})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := st.QueryFeedback(ctx, time.Time{})
	if err != nil {
		t.Fatalf("QueryFeedback: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("entry should get a generated id")
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("entry should get a timestamp")
	}
}

func TestCountSince(t *testing.T) {
	st := memstore.New()
	sys := New(st, zerolog.Nop())
	ctx := context.Background()

	base := time.Now().UTC()
	st.RecordFeedback(ctx, store.FeedbackEntry{ID: "a", CreatedAt: base.Add(-2 * time.Hour)})
	st.RecordFeedback(ctx, store.FeedbackEntry{ID: "b", CreatedAt: base})
	st.RecordFeedback(ctx, store.FeedbackEntry{ID: "c", CreatedAt: base})

	n, err := sys.CountSince(ctx, base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountSince: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestTrainingSamplesOverlayCorrections(t *testing.T) {
	st := memstore.New()
	sys := New(st, zerolog.Nop())
	ctx := context.Background()

	id, _ := st.UpsertProduct(ctx, store.ProductRecord{
		SaleName: "고드름 입호흡 액상",
		Company:  "기타",
		Category: "기타",
		Tags:     "기타",
	})

	entries := []store.FeedbackEntry{
		{
			ProductID: id,
			Corrected: store.TagFields{Category: "액상", Tags: "입호흡액상|30ml"},
		},
	}

	samples := sys.TrainingSamples(ctx, entries)
	if len(samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(samples))
	}
	got := samples[0]
	if got.Category != "액상" || got.Tags != "입호흡액상|30ml" {
		t.Errorf("corrections not overlaid: %+v", got)
	}
	// Uncorrected fields keep the stored value.
	if got.Company != "기타" {
		t.Errorf("company = %q, want 기타", got.Company)
	}
}

func TestTrainingSamplesDropsUnusableEntries(t *testing.T) {
	st := memstore.New()
	sys := New(st, zerolog.Nop())
	ctx := context.Background()

	id, _ := st.UpsertProduct(ctx, store.ProductRecord{SaleName: "상품"})

	entries := []store.FeedbackEntry{
		// Unresolvable product, empty correction, and one usable entry.
		{ProductID: 9999, Corrected: store.TagFields{Category: "액상"}},
		{ProductID: id},
		{ProductID: id, Corrected: store.TagFields{Category: "액상"}},
	}

	samples := sys.TrainingSamples(ctx, entries)
	if len(samples) != 1 {
		t.Fatalf("samples = %d, want 1", len(samples))
	}
	if samples[0].Category != "액상" {
		t.Errorf("sample = %+v", samples[0])
	}
}

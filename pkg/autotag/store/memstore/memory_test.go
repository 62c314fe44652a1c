package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/cognicore/autotag/pkg/autotag/store"
)

func TestUpsertAssignsIDs(t *testing.T) {
	s := New()
	ctx := context.Background()

	id1, err := s.UpsertProduct(ctx, store.ProductRecord{SaleName: "a"})
	if err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}
	id2, err := s.UpsertProduct(ctx, store.ProductRecord{SaleName: "b"})
	if err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}
	if id1 == id2 {
		t.Errorf("ids should differ, both %d", id1)
	}

	rec, found, err := s.GetProduct(ctx, id1)
	if err != nil || !found {
		t.Fatalf("GetProduct: found=%v err=%v", found, err)
	}
	if rec.SaleName != "a" {
		t.Errorf("sale name = %q, want a", rec.SaleName)
	}
}

func TestGetProductMissing(t *testing.T) {
	s := New()
	_, found, err := s.GetProduct(context.Background(), 99)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if found {
		t.Error("missing product reported as found")
	}
}

func TestListTaggedAndUntagged(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.UpsertProduct(ctx, store.ProductRecord{SaleName: "raw"})
	s.UpsertProduct(ctx, store.ProductRecord{
		SaleName: "done", Company: "고드름", Category: "액상", Tags: "입호흡액상",
	})

	untagged, err := s.ListUntagged(ctx, 10)
	if err != nil {
		t.Fatalf("ListUntagged: %v", err)
	}
	if len(untagged) != 1 || untagged[0].SaleName != "raw" {
		t.Errorf("untagged = %v", untagged)
	}

	tagged, err := s.ListTagged(ctx, 10)
	if err != nil {
		t.Fatalf("ListTagged: %v", err)
	}
	if len(tagged) != 1 || tagged[0].SaleName != "done" {
		t.Errorf("tagged = %v", tagged)
	}
}

func TestApplyTagsCompletesRecord(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, _ := s.UpsertProduct(ctx, store.ProductRecord{SaleName: "raw", ProductName: "원래이름"})
	err := s.ApplyTags(ctx, id, store.TagFields{Company: "고드름", Category: "액상", Tags: "입호흡액상"})
	if err != nil {
		t.Fatalf("ApplyTags: %v", err)
	}

	rec, _, _ := s.GetProduct(ctx, id)
	if !rec.Complete() {
		t.Error("record should be complete after ApplyTags")
	}
	// Empty ProductName in the update keeps the existing name.
	if rec.ProductName != "원래이름" {
		t.Errorf("product name = %q, want 원래이름", rec.ProductName)
	}
}

func TestQueryFeedbackSince(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Now().UTC()
	s.RecordFeedback(ctx, store.FeedbackEntry{ID: "old", CreatedAt: base.Add(-time.Hour)})
	s.RecordFeedback(ctx, store.FeedbackEntry{ID: "new", CreatedAt: base})

	got, err := s.QueryFeedback(ctx, base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("QueryFeedback: %v", err)
	}
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("entries = %v, want only the recent one", got)
	}

	all, err := s.QueryFeedback(ctx, time.Time{})
	if err != nil {
		t.Fatalf("QueryFeedback: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all entries = %d, want 2", len(all))
	}
}

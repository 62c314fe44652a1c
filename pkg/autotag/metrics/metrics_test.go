package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRegisterAndIncrement(t *testing.T) {
	m := New()

	m.ProductsTagged.Inc()
	m.ProductsTagged.Inc()
	m.Retrains.Inc()

	if got := testutil.ToFloat64(m.ProductsTagged); got != 2 {
		t.Errorf("products tagged = %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.Retrains); got != 1 {
		t.Errorf("retrains = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.TaggingErrors); got != 0 {
		t.Errorf("tagging errors = %f, want 0", got)
	}
}

func TestGaugeSet(t *testing.T) {
	m := New()
	m.LastRetrainUnix.Set(1700000000)
	if got := testutil.ToFloat64(m.LastRetrainUnix); got != 1700000000 {
		t.Errorf("gauge = %f", got)
	}
}

func TestDedicatedRegistry(t *testing.T) {
	m := New()
	m.TaggingDuration.Observe(0.05)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "autotag_tagging_duration_seconds" {
			found = true
		}
	}
	if !found {
		t.Error("histogram missing from the dedicated registry")
	}

	// Two instances register independently without collision.
	_ = New()
}

package feature

import (
	"errors"
	"math"
	"testing"

	"github.com/goccy/go-json"

	"github.com/cognicore/autotag/pkg/autotag/internalerr"
)

func sampleInputs() []Input {
	return []Input{
		{
			SaleName: "고드름 깔라만시 입호흡 액상 30ml",
			Platform: "naverCommerce",
			Payload:  json.RawMessage(`{"channelProducts": [{"manufacturerName": "고드름", "sellerTags": [{"text": "액상"}]}]}`),
		},
		{
			SaleName: "아스파이어 지스터스 폐호흡 기기",
			Platform: "cafe24",
			Payload:  json.RawMessage(`{"product_tag": ["기기"], "options": {"has_option": "F"}}`),
		},
	}
}

func TestCombinedExtractorBundleShape(t *testing.T) {
	e := NewCombinedExtractor(DefaultTextConfig(), DefaultAdapters())
	inputs := sampleInputs()
	if err := e.Fit(inputs); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	b, err := e.Extract(inputs[0])
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	flat := b.Flatten()
	names := b.FeatureNames()
	if len(flat) != len(names) {
		t.Fatalf("flattened width %d, names %d", len(flat), len(names))
	}
	if len(flat) != e.Width() {
		t.Fatalf("flattened width %d, extractor width %d", len(flat), e.Width())
	}

	// Absent platform signals read as zero in the flat vector.
	for i, n := range names {
		if n == "cafe24.product_tag_count" && flat[i] != 0 {
			t.Errorf("cafe24 signal = %f for a naver record, want 0", flat[i])
		}
		if n == "naverCommerce.seller_tag_count" && flat[i] != 1 {
			t.Errorf("naverCommerce.seller_tag_count = %f, want 1", flat[i])
		}
	}
}

func TestCombinedExtractorNotFitted(t *testing.T) {
	e := NewCombinedExtractor(DefaultTextConfig(), nil)
	if _, err := e.Extract(Input{SaleName: "액상"}); !errors.Is(err, internalerr.ErrNotFitted) {
		t.Errorf("err = %v, want ErrNotFitted", err)
	}
}

func TestCombinedExtractorSaveLoad(t *testing.T) {
	e := NewCombinedExtractor(DefaultTextConfig(), DefaultAdapters())
	inputs := sampleInputs()
	if err := e.Fit(inputs); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	dir := t.TempDir()
	if err := e.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := NewCombinedExtractor(DefaultTextConfig(), DefaultAdapters())
	if err := restored.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !restored.Fitted() {
		t.Fatal("restored extractor should be fitted")
	}

	a, err := e.Extract(inputs[0])
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	b, err := restored.Extract(inputs[0])
	if err != nil {
		t.Fatalf("Extract after Load: %v", err)
	}

	fa, fb := a.Flatten(), b.Flatten()
	if len(fa) != len(fb) {
		t.Fatalf("widths differ: %d vs %d", len(fa), len(fb))
	}
	for i := range fa {
		if math.Abs(fa[i]-fb[i]) > 1e-12 {
			t.Fatalf("restored feature %d = %f, want %f", i, fb[i], fa[i])
		}
	}
}

package feature

import (
	"errors"
	"reflect"
	"testing"

	"github.com/goccy/go-json"

	"github.com/cognicore/autotag/pkg/autotag/internalerr"
)

func TestStructuralExtractorOneHot(t *testing.T) {
	e := NewStructuralExtractor(DefaultAdapters())

	inputs := []Input{
		{Platform: "naverCommerce", SaleName: "a"},
		{Platform: "cafe24", SaleName: "b"},
		{Platform: "naverCommerce", SaleName: "c"},
	}
	if err := e.Fit(inputs); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	got, err := e.Extract(Input{Platform: "naverCommerce"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	// Platforms sort alphabetically: cafe24, naverCommerce.
	if !reflect.DeepEqual(got.Platforms, []string{"cafe24", "naverCommerce"}) {
		t.Fatalf("platforms = %v", got.Platforms)
	}
	if !reflect.DeepEqual(got.PlatformVector, []int{0, 1}) {
		t.Errorf("one-hot = %v, want [0 1]", got.PlatformVector)
	}
}

func TestStructuralExtractorUnseenPlatformIsZero(t *testing.T) {
	e := NewStructuralExtractor(DefaultAdapters())
	if err := e.Fit([]Input{{Platform: "naverCommerce"}}); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	got, err := e.Extract(Input{Platform: "newMarketplace"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for i, v := range got.PlatformVector {
		if v != 0 {
			t.Errorf("one-hot[%d] = %d for unseen platform, want 0", i, v)
		}
	}
	if len(got.PlatformSpecific) != 0 {
		t.Errorf("unseen platform produced signals: %v", got.PlatformSpecific)
	}
}

func TestStructuralExtractorNotFitted(t *testing.T) {
	e := NewStructuralExtractor(nil)
	if _, err := e.Extract(Input{Platform: "cafe24"}); !errors.Is(err, internalerr.ErrNotFitted) {
		t.Errorf("err = %v, want ErrNotFitted", err)
	}
}

func TestNaverCommerceAdapter(t *testing.T) {
	a := NaverCommerceAdapter()
	payload := json.RawMessage(`{
		"channelProducts": [{
			"manufacturerName": "고드름",
			"brandName": "",
			"categoryId": "50002225",
			"sellerTags": [{"text": "액상"}, {"text": "입호흡"}]
		}]
	}`)

	got := a.Extract(payload)
	want := map[string]float64{
		"has_manufacturer": 1,
		"has_brand":        0,
		"has_category":     1,
		"seller_tag_count": 2,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("signals = %v, want %v", got, want)
	}
}

func TestNaverCommerceAdapterMalformedPayload(t *testing.T) {
	a := NaverCommerceAdapter()

	for _, payload := range []json.RawMessage{nil, json.RawMessage(`not json`), json.RawMessage(`{}`)} {
		got := a.Extract(payload)
		for name, v := range got {
			if v != 0 {
				t.Errorf("payload %q: signal %s = %f, want 0", payload, name, v)
			}
		}
	}
}

func TestCafe24Adapter(t *testing.T) {
	a := Cafe24Adapter()
	payload := json.RawMessage(`{
		"product_tag": ["액상", "입호흡", "깔라만시"],
		"options": {
			"has_option": "T",
			"options": [{"option_name": "용량", "option_value": [{"text": "30ml"}, {"text": "60ml"}]}]
		}
	}`)

	got := a.Extract(payload)
	want := map[string]float64{
		"product_tag_count":  3,
		"has_options":        1,
		"option_count":       1,
		"option_value_count": 2,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("signals = %v, want %v", got, want)
	}
}

func TestStructuralExtractorQualifiedNames(t *testing.T) {
	e := NewStructuralExtractor(DefaultAdapters())
	inputs := []Input{{Platform: "naverCommerce"}, {Platform: "cafe24"}}
	if err := e.Fit(inputs); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	got, err := e.Extract(Input{
		Platform: "cafe24",
		Payload:  json.RawMessage(`{"product_tag": ["a"]}`),
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if got.PlatformSpecific["cafe24.product_tag_count"] != 1 {
		t.Errorf("cafe24.product_tag_count = %f, want 1", got.PlatformSpecific["cafe24.product_tag_count"])
	}
	// The column order covers both platforms even though this record only
	// fills its own.
	foundNaver := false
	for _, n := range got.FeatureNames {
		if n == "naverCommerce.has_brand" {
			foundNaver = true
		}
	}
	if !foundNaver {
		t.Error("fitted column order should include the other platform's signals")
	}
}

func TestStructuralExtractorSaveLoad(t *testing.T) {
	e := NewStructuralExtractor(DefaultAdapters())
	if err := e.Fit([]Input{{Platform: "naverCommerce"}, {Platform: "cafe24"}}); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	path := t.TempDir() + "/structural.json"
	if err := e.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := NewStructuralExtractor(DefaultAdapters())
	if err := restored.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}

	a, err := e.Extract(Input{Platform: "cafe24"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	b, err := restored.Extract(Input{Platform: "cafe24"})
	if err != nil {
		t.Fatalf("Extract after Load: %v", err)
	}
	if !reflect.DeepEqual(a.PlatformVector, b.PlatformVector) || !reflect.DeepEqual(a.FeatureNames, b.FeatureNames) {
		t.Error("restored extractor disagrees with original")
	}
}

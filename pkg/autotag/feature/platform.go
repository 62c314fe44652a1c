package feature

import (
	"sync"

	"github.com/goccy/go-json"
)

// Adapter reads named signals out of one platform's structured payload.
// FeatureNames fixes the adapter's column order; Extract returns values
// keyed by those names (missing keys read as zero). Adding a platform
// means registering a new adapter, never modifying an existing one.
type Adapter struct {
	Platform     string
	FeatureNames []string
	Extract      func(payload json.RawMessage) map[string]float64
}

// AdapterRegistry dispatches payload extraction by platform identifier.
type AdapterRegistry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewAdapterRegistry creates an empty registry.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: make(map[string]Adapter)}
}

// DefaultAdapters returns a registry with the shipped platform adapters.
func DefaultAdapters() *AdapterRegistry {
	r := NewAdapterRegistry()
	r.Register(NaverCommerceAdapter())
	r.Register(Cafe24Adapter())
	return r
}

// Register adds or replaces the adapter for its platform.
func (r *AdapterRegistry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Platform] = a
}

// Get returns the adapter for a platform, if registered.
func (r *AdapterRegistry) Get(platform string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[platform]
	return a, ok
}

// NaverCommerceAdapter reads manufacturer, brand, category and seller-tag
// signals from the first channel product of a Naver Commerce payload.
func NaverCommerceAdapter() Adapter {
	return Adapter{
		Platform:     "naverCommerce",
		FeatureNames: []string{"has_manufacturer", "has_brand", "has_category", "seller_tag_count"},
		Extract: func(payload json.RawMessage) map[string]float64 {
			out := map[string]float64{
				"has_manufacturer": 0,
				"has_brand":        0,
				"has_category":     0,
				"seller_tag_count": 0,
			}

			doc := decodePayload(payload)
			channels, _ := doc["channelProducts"].([]any)
			if len(channels) == 0 {
				return out
			}
			cp, _ := channels[0].(map[string]any)
			if cp == nil {
				return out
			}

			if s, _ := cp["manufacturerName"].(string); s != "" {
				out["has_manufacturer"] = 1
			}
			if s, _ := cp["brandName"].(string); s != "" {
				out["has_brand"] = 1
			}
			if v, ok := cp["categoryId"]; ok && v != nil && v != "" {
				out["has_category"] = 1
			}
			if tags, _ := cp["sellerTags"].([]any); tags != nil {
				out["seller_tag_count"] = float64(len(tags))
			}
			return out
		},
	}
}

// Cafe24Adapter reads tag and option signals from a Cafe24 payload.
func Cafe24Adapter() Adapter {
	return Adapter{
		Platform:     "cafe24",
		FeatureNames: []string{"product_tag_count", "has_options", "option_count", "option_value_count"},
		Extract: func(payload json.RawMessage) map[string]float64 {
			out := map[string]float64{
				"product_tag_count":  0,
				"has_options":        0,
				"option_count":       0,
				"option_value_count": 0,
			}

			doc := decodePayload(payload)
			if tags, _ := doc["product_tag"].([]any); tags != nil {
				out["product_tag_count"] = float64(len(tags))
			}

			options, _ := doc["options"].(map[string]any)
			if options == nil {
				return out
			}
			if s, _ := options["has_option"].(string); s == "T" {
				out["has_options"] = 1
			}
			list, _ := options["options"].([]any)
			out["option_count"] = float64(len(list))
			if len(list) > 0 {
				if first, _ := list[0].(map[string]any); first != nil {
					if values, _ := first["option_value"].([]any); values != nil {
						out["option_value_count"] = float64(len(values))
					}
				}
			}
			return out
		},
	}
}

// decodePayload unmarshals an opaque payload document; malformed or empty
// payloads decode to an empty map rather than failing extraction.
func decodePayload(payload json.RawMessage) map[string]any {
	if len(payload) == 0 {
		return map[string]any{}
	}
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil || doc == nil {
		return map[string]any{}
	}
	return doc
}

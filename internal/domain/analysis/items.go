package analysis

import (
	"encoding/json"
	"fmt"
)

// storedItem is the persisted shape of a ScoredRow. Columns and derived
// fields live under separate keys so neither can shadow the other.
type storedItem struct {
	Attributes map[string]string `json:"attributes"`
	Product    string            `json:"product,omitempty"`
	GreenScore int               `json:"greenScore"`
	Suggestion string            `json:"suggestion,omitempty"`
}

// EncodeItems serializes items for storage; nil encodes as [].
func EncodeItems(items []ScoredRow) ([]byte, error) {
	out := make([]storedItem, len(items))
	for i, it := range items {
		attrs := it.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		out[i] = storedItem{
			Attributes: attrs,
			Product:    it.Product,
			GreenScore: it.GreenScore,
			Suggestion: it.Suggestion,
		}
	}
	return json.Marshal(out)
}

// DecodeItems is the inverse of EncodeItems. Empty input decodes to an empty slice.
func DecodeItems(raw []byte) ([]ScoredRow, error) {
	items := []ScoredRow{}
	if len(raw) == 0 {
		return items, nil
	}
	var stored []storedItem
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	for _, st := range stored {
		attrs := st.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		items = append(items, ScoredRow{
			Row:        Row{Attributes: attrs, Product: st.Product},
			GreenScore: st.GreenScore,
			Suggestion: st.Suggestion,
		})
	}
	return items, nil
}

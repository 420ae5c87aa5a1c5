package analysis

import (
	"encoding/json"
	"strings"
	"time"
)

// LowScoreThreshold rows scoring strictly below this get an alternative suggestion.
const LowScoreThreshold = 40

// DefaultProductAliases are the header names accepted for the product column.
var DefaultProductAliases = []string{"product", "item"}

// AnalysisID identifier type
type AnalysisID string

// Row is one procurement line item as read from the CSV.
type Row struct {
	// Attributes keyed by lower-cased column name.
	Attributes map[string]string
	// Product resolved from the first matching alias column; empty when absent.
	Product string
}

// NewRow builds a Row and resolves its product from aliases.
func NewRow(attrs map[string]string, aliases []string) Row {
	return Row{Attributes: attrs, Product: ResolveProduct(attrs, aliases)}
}

// ResolveProduct returns the value of the first alias present in attrs.
func ResolveProduct(attrs map[string]string, aliases []string) string {
	if len(aliases) == 0 {
		aliases = DefaultProductAliases
	}
	for _, a := range aliases {
		if v, ok := attrs[strings.ToLower(a)]; ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ScoredRow is a Row with its green score and optional suggestion attached.
type ScoredRow struct {
	Row
	GreenScore int
	Suggestion string
}

const (
	fieldGreenScore = "greenScore"
	fieldSuggestion = "suggestion"
)

// ReservedColumn reports whether a column name would clash with a derived
// field in the flat item JSON.
func ReservedColumn(name string) bool {
	return strings.EqualFold(name, fieldGreenScore) || strings.EqualFold(name, fieldSuggestion)
}

// MarshalJSON flattens the CSV columns next to the derived fields.
// Derived fields win over columns of the same name.
func (s ScoredRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Attributes)+2)
	for k, v := range s.Attributes {
		if k == fieldGreenScore || k == fieldSuggestion {
			continue
		}
		out[k] = v
	}
	out[fieldGreenScore] = s.GreenScore
	if s.Suggestion != "" {
		out[fieldSuggestion] = s.Suggestion
	}
	return json.Marshal(out)
}

// Analysis is the persisted result of one CSV upload.
type Analysis struct {
	ID           AnalysisID  `json:"id,omitempty"`
	OwnerID      string      `json:"-"`
	FileName     string      `json:"fileName"`
	AverageScore int         `json:"averageScore"`
	Summary      string      `json:"summary,omitempty"`
	Items        []ScoredRow `json:"items"`
	CreatedAt    time.Time   `json:"createdAt"`
}

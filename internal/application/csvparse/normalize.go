// Package csvparse turns an uploaded CSV buffer into domain rows.
package csvparse

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	domain "github.com/anish1206/green-tech/internal/domain/analysis"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normalizer parses CSV bytes. The zero value accepts DefaultProductAliases.
type Normalizer struct {
	ProductAliases []string
}

// Rows yields one Row per data line. The first error ends the sequence and
// wraps domain.ErrCSVParse.
func (n Normalizer) Rows(data []byte) iter.Seq2[domain.Row, error] {
	return func(yield func(domain.Row, error) bool) {
		r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
		r.ReuseRecord = false

		header, err := r.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(domain.Row{}, parseErr(err))
			return
		}
		keys := normalizeHeader(header)

		for {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(domain.Row{}, parseErr(err))
				return
			}
			attrs := make(map[string]string, len(keys))
			for i, k := range keys {
				attrs[k] = rec[i]
			}
			if !yield(domain.NewRow(attrs, n.aliases()), nil) {
				return
			}
		}
	}
}

// Parse collects Rows; any malformed line fails the whole parse.
func (n Normalizer) Parse(data []byte) ([]domain.Row, error) {
	var out []domain.Row
	for row, err := range n.Rows(data) {
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// Parse uses the default aliases.
func Parse(data []byte) ([]domain.Row, error) {
	return Normalizer{}.Parse(data)
}

func (n Normalizer) aliases() []string {
	if len(n.ProductAliases) == 0 {
		return domain.DefaultProductAliases
	}
	return n.ProductAliases
}

// reservedPrefix is prepended to columns named like a derived item field.
const reservedPrefix = "csv_"

func normalizeHeader(header []string) []string {
	keys := make([]string, len(header))
	for i, h := range header {
		k := strings.ToLower(strings.TrimSpace(h))
		if domain.ReservedColumn(k) {
			k = reservedPrefix + k
		}
		keys[i] = k
	}
	return keys
}

func parseErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrCSVParse, err)
}

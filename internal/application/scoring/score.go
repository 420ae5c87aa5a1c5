// Package scoring rates procurement line items with a keyword heuristic.
package scoring

import (
	"regexp"
	"strings"

	domain "github.com/anish1206/green-tech/internal/domain/analysis"
)

const (
	Baseline = 50
	MinScore = 0
	MaxScore = 100
)

type rule struct {
	match func(p string) bool
	delta int
}

func contains(word string) func(string) bool {
	return func(p string) bool { return strings.Contains(p, word) }
}

// "led" is matched as a word: as a bare substring it would fire inside
// "recycled", "filled", "sealed" and so on.
var ledWord = regexp.MustCompile(`\bleds?\b`)

var rules = []rule{
	{contains("recycled"), 20},
	{contains("compostable"), 20},
	{contains("organic"), 15},
	{contains("reusable"), 15},
	{ledWord.MatchString, 10},
	{contains("local"), 10},
	{func(p string) bool { return strings.Contains(p, "plastic") && !strings.Contains(p, "reusable") }, -30},
	{contains("disposable"), -25},
	{contains("single-use"), -30},
}

// Score returns the green score of row in [0,100].
// A nil row or one without a product scores 0 without evaluating any rule.
func Score(row *domain.Row) int {
	if row == nil {
		return MinScore
	}
	return ScoreProduct(row.Product)
}

// ScoreProduct scores a bare product description.
func ScoreProduct(product string) int {
	if strings.TrimSpace(product) == "" {
		return MinScore
	}
	p := strings.ToLower(product)

	score := Baseline
	for _, r := range rules {
		if r.match(p) {
			score += r.delta
		}
	}
	return clamp(score)
}

// ScoreRows scores every row, keeping input order.
func ScoreRows(rows []domain.Row) []domain.ScoredRow {
	out := make([]domain.ScoredRow, len(rows))
	for i := range rows {
		out[i] = domain.ScoredRow{Row: rows[i], GreenScore: Score(&rows[i])}
	}
	return out
}

func clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

package analysis

import (
	"math"

	domain "github.com/anish1206/green-tech/internal/domain/analysis"
)

// Aggregate assembles the result record. ID, OwnerID and CreatedAt are left
// for the persistence step.
func Aggregate(fileName string, rows []domain.ScoredRow, summary string) *domain.Analysis {
	items := rows
	if items == nil {
		items = []domain.ScoredRow{}
	}
	return &domain.Analysis{
		FileName:     fileName,
		AverageScore: AverageScore(items),
		Summary:      summary,
		Items:        items,
	}
}

// AverageScore is the rounded mean green score, 0 for no rows.
func AverageScore(rows []domain.ScoredRow) int {
	if len(rows) == 0 {
		return 0
	}
	sum := 0
	for _, r := range rows {
		sum += r.GreenScore
	}
	return int(math.Round(float64(sum) / float64(len(rows))))
}

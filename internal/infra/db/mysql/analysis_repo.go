package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	domain "github.com/anish1206/green-tech/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Insert stores a new analysis. created_at is filled by the database and read back.
func (r *AnalysisRepository) Insert(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
  (id, owner_id, file_name, average_score, summary, items_json)
VALUES (?,?,?,?,?,?);
`
	items, err := domain.EncodeItems(a.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	id := uuid.NewString()

	if _, err := r.db.ExecContext(ctx, q, id, a.OwnerID, a.FileName, a.AverageScore, a.Summary, string(items)); err != nil {
		return err
	}

	var created sql.NullTime
	if err := r.db.QueryRowContext(ctx, `SELECT created_at FROM analyses WHERE id=?`, id).Scan(&created); err != nil {
		return fmt.Errorf("read back created_at: %w", err)
	}
	a.ID = domain.AnalysisID(id)
	a.CreatedAt = created.Time.UTC()
	return nil
}

// ListByOwner returns all analyses of owner ordered by created_at desc
func (r *AnalysisRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Analysis, error) {
	const q = `
SELECT id, owner_id, file_name, average_score, summary, items_json, created_at
FROM analyses
WHERE owner_id=?
ORDER BY created_at DESC, id DESC;
`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Analysis{}
	for rows.Next() {
		var a domain.Analysis
		var summary sql.NullString
		var raw []byte
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.FileName, &a.AverageScore, &summary, &raw, &a.CreatedAt); err != nil {
			return nil, err
		}
		if a.Items, err = domain.DecodeItems(raw); err != nil {
			return nil, fmt.Errorf("decode items of %s: %w", a.ID, err)
		}
		a.Summary = summary.String
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Package memory is a process-local analysis store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anish1206/green-tech/internal/application"
	domain "github.com/anish1206/green-tech/internal/domain/analysis"
)

type AnalysisRepository struct {
	mu      sync.RWMutex
	clock   application.Clock
	last    time.Time
	byOwner map[string][]*domain.Analysis
}

func NewAnalysisRepository(clock application.Clock) *AnalysisRepository {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &AnalysisRepository{clock: clock, byOwner: make(map[string][]*domain.Analysis)}
}

// Insert stores a copy of a and assigns its ID and CreatedAt.
// CreatedAt never goes backwards even if the clock does.
func (r *AnalysisRepository) Insert(_ context.Context, a *domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if now.Before(r.last) {
		now = r.last
	}
	r.last = now

	a.ID = domain.AnalysisID(uuid.NewString())
	a.CreatedAt = now

	stored, err := clone(a)
	if err != nil {
		return err
	}
	r.byOwner[a.OwnerID] = append(r.byOwner[a.OwnerID], stored)
	return nil
}

// ListByOwner returns copies ordered by CreatedAt desc, then insertion order desc.
func (r *AnalysisRepository) ListByOwner(_ context.Context, ownerID string) ([]*domain.Analysis, error) {
	r.mu.RLock()
	src := r.byOwner[ownerID]
	out := make([]*domain.Analysis, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		c, err := clone(src[i])
		if err != nil {
			r.mu.RUnlock()
			return nil, err
		}
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// clone deep-copies through the same item encoding the SQL repos store.
func clone(a *domain.Analysis) (*domain.Analysis, error) {
	raw, err := domain.EncodeItems(a.Items)
	if err != nil {
		return nil, err
	}
	c := *a
	if c.Items, err = domain.DecodeItems(raw); err != nil {
		return nil, err
	}
	return &c, nil
}

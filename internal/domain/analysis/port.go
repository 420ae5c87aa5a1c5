package analysis

import "context"

// Repository port for persisting and querying analyses.
// Insert assigns ID and CreatedAt; the stored CreatedAt is the history sort key.
type Repository interface {
	Insert(ctx context.Context, a *Analysis) error
	ListByOwner(ctx context.Context, ownerID string) ([]*Analysis, error)
}

// ArchiveStore keeps the raw uploaded bytes next to the analysis.
type ArchiveStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

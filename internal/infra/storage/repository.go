// Package storage defines the persistence contracts for generated designs
// and in-progress drafts. Implementations live in the backend subpackages.
package storage

import (
	"context"

	"github.com/happyBayes/goods-gallery/internal/core/domain"
)

// DesignRepository is the durable store of completed generation results.
// Implementations report failures as storage-kind StructuredErrors; callers
// decide whether to retry.
type DesignRepository interface {
	// Save stores a new design. A duplicate id fails with a storage error.
	Save(ctx context.Context, design *domain.GeneratedDesign) error

	// Get retrieves a design by id, or nil if absent.
	Get(ctx context.Context, id string) (*domain.GeneratedDesign, error)

	// GetAll returns every design in creation order.
	GetAll(ctx context.Context) ([]*domain.GeneratedDesign, error)

	// GetByOwner returns the designs belonging to one artifact, in creation
	// order. Served from the owner index, not a full scan.
	GetByOwner(ctx context.Context, artifactID string) ([]*domain.GeneratedDesign, error)

	// Update replaces a design by id, inserting if absent.
	Update(ctx context.Context, design *domain.GeneratedDesign) error

	// Delete removes a design by id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// Clear removes every design.
	Clear(ctx context.Context) error

	// Count returns the number of stored designs.
	Count(ctx context.Context) (int, error)
}

// DraftCache is the ephemeral, TTL-bound store of in-progress drafts, keyed
// by owner artifact. Expired or mismatched drafts load as nil, never as an
// error.
type DraftCache interface {
	// Load returns the draft for the artifact, or nil when there is none,
	// it has expired, or it belongs to a different owner. Invalid drafts
	// are purged on detection.
	Load(ctx context.Context, ownerArtifactID string) (*domain.DraftState, error)

	// Save persists the draft fields with a fresh timestamp. A draft whose
	// serialized size exceeds the configured cap fails with a storage error.
	Save(ctx context.Context, draft *domain.DraftState) error

	// Clear removes the draft for the artifact.
	Clear(ctx context.Context, ownerArtifactID string) error
}

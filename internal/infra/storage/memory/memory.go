// Package memory provides in-memory implementations of the storage
// contracts, used in tests and for local development.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/happyBayes/goods-gallery/internal/core/domain"
)

// DesignRepo implements storage.DesignRepository backed by a map plus an
// insertion-order index.
type DesignRepo struct {
	mu      sync.RWMutex
	designs map[string]*domain.GeneratedDesign
	byOwner map[string][]string // owner artifact id -> design ids, creation order
	order   []string
}

// NewDesignRepo creates an empty in-memory design repository.
func NewDesignRepo() *DesignRepo {
	return &DesignRepo{
		designs: make(map[string]*domain.GeneratedDesign),
		byOwner: make(map[string][]string),
	}
}

func (r *DesignRepo) Save(ctx context.Context, design *domain.GeneratedDesign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.designs[design.ID]; exists {
		return domain.NewStorageError(
			fmt.Sprintf("design %s already exists", design.ID), nil)
	}

	copied := *design
	r.designs[design.ID] = &copied
	r.order = append(r.order, design.ID)
	r.byOwner[design.OwnerArtifactID] = append(r.byOwner[design.OwnerArtifactID], design.ID)
	return nil
}

func (r *DesignRepo) Get(ctx context.Context, id string) (*domain.GeneratedDesign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	design, ok := r.designs[id]
	if !ok {
		return nil, nil
	}
	copied := *design
	return &copied, nil
}

func (r *DesignRepo) GetAll(ctx context.Context) ([]*domain.GeneratedDesign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.GeneratedDesign, 0, len(r.order))
	for _, id := range r.order {
		if design, ok := r.designs[id]; ok {
			copied := *design
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *DesignRepo) GetByOwner(ctx context.Context, artifactID string) ([]*domain.GeneratedDesign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byOwner[artifactID]
	out := make([]*domain.GeneratedDesign, 0, len(ids))
	for _, id := range ids {
		if design, ok := r.designs[id]; ok {
			copied := *design
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *DesignRepo) Update(ctx context.Context, design *domain.GeneratedDesign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.designs[design.ID]
	if exists && existing.OwnerArtifactID != design.OwnerArtifactID {
		r.removeFromOwner(existing.OwnerArtifactID, design.ID)
		r.byOwner[design.OwnerArtifactID] = append(r.byOwner[design.OwnerArtifactID], design.ID)
	}
	if !exists {
		r.order = append(r.order, design.ID)
		r.byOwner[design.OwnerArtifactID] = append(r.byOwner[design.OwnerArtifactID], design.ID)
	}

	copied := *design
	r.designs[design.ID] = &copied
	return nil
}

func (r *DesignRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	design, ok := r.designs[id]
	if !ok {
		return nil
	}
	delete(r.designs, id)
	r.removeFromOwner(design.OwnerArtifactID, id)
	for i, ordered := range r.order {
		if ordered == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *DesignRepo) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.designs = make(map[string]*domain.GeneratedDesign)
	r.byOwner = make(map[string][]string)
	r.order = nil
	return nil
}

func (r *DesignRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.designs), nil
}

// removeFromOwner drops one id from an owner's index. Caller holds r.mu.
func (r *DesignRepo) removeFromOwner(artifactID, id string) {
	ids := r.byOwner[artifactID]
	for i, existing := range ids {
		if existing == id {
			r.byOwner[artifactID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(r.byOwner[artifactID]) == 0 {
		delete(r.byOwner, artifactID)
	}
}

// DraftCache implements storage.DraftCache in memory with TTL and size-cap
// semantics matching the Redis backend.
type DraftCache struct {
	ttl      time.Duration
	maxBytes int

	mu     sync.Mutex
	drafts map[string]*domain.DraftState
	now    func() time.Time
}

// NewDraftCache creates an in-memory draft cache.
func NewDraftCache(ttl time.Duration, maxBytes int) *DraftCache {
	return &DraftCache{
		ttl:      ttl,
		maxBytes: maxBytes,
		drafts:   make(map[string]*domain.DraftState),
		now:      time.Now,
	}
}

func (c *DraftCache) Load(ctx context.Context, ownerArtifactID string) (*domain.DraftState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	draft, ok := c.drafts[ownerArtifactID]
	if !ok {
		return nil, nil
	}
	if draft.OwnerArtifactID != ownerArtifactID || c.now().Sub(draft.SavedAt) >= c.ttl {
		delete(c.drafts, ownerArtifactID)
		return nil, nil
	}

	copied := *draft
	return &copied, nil
}

func (c *DraftCache) Save(ctx context.Context, draft *domain.DraftState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *draft
	copied.SavedAt = c.now()

	data, err := json.Marshal(&copied)
	if err != nil {
		return domain.NewStorageError("failed to serialize draft", err)
	}
	if c.maxBytes > 0 && len(data) > c.maxBytes {
		return domain.NewStorageError(
			fmt.Sprintf("draft size %d exceeds limit %d", len(data), c.maxBytes), nil)
	}

	c.drafts[draft.OwnerArtifactID] = &copied
	return nil
}

func (c *DraftCache) Clear(ctx context.Context, ownerArtifactID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.drafts, ownerArtifactID)
	return nil
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/happyBayes/goods-gallery/internal/core/domain"
)

// DraftCache implements storage.DraftCache on Redis. Entries carry the
// configured TTL twice: as the Redis key expiry and as a SavedAt check on
// load, so a draft restored from a stale snapshot is still rejected.
type DraftCache struct {
	rdb      *redis.Client
	ttl      time.Duration
	maxBytes int
	now      func() time.Time
}

// NewDraftCache creates a Redis-backed draft cache.
func NewDraftCache(client *Client, ttl time.Duration, maxBytes int) *DraftCache {
	return &DraftCache{
		rdb:      client.rdb,
		ttl:      ttl,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func draftKey(ownerArtifactID string) string {
	return fmt.Sprintf("design_draft:%s", ownerArtifactID)
}

// Load returns the draft for the artifact, or nil when absent, expired, or
// owned by a different artifact. Invalid entries are deleted.
func (c *DraftCache) Load(ctx context.Context, ownerArtifactID string) (*domain.DraftState, error) {
	key := draftKey(ownerArtifactID)

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "failed to load draft", true, err)
	}

	var draft domain.DraftState
	if err := json.Unmarshal(data, &draft); err != nil {
		// Corrupt entry, drop it.
		slog.Warn("Dropping unreadable draft", "owner_artifact", ownerArtifactID, "error", err)
		c.rdb.Del(ctx, key)
		return nil, nil
	}

	if draft.OwnerArtifactID != ownerArtifactID || c.now().Sub(draft.SavedAt) >= c.ttl {
		c.rdb.Del(ctx, key)
		return nil, nil
	}

	return &draft, nil
}

// Save persists the draft with a fresh SavedAt and the configured TTL.
func (c *DraftCache) Save(ctx context.Context, draft *domain.DraftState) error {
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

	if err := c.rdb.Set(ctx, draftKey(draft.OwnerArtifactID), data, c.ttl).Err(); err != nil {
		return domain.WrapError(domain.ErrStorage, "failed to save draft", true, err)
	}
	return nil
}

// Clear removes the draft for the artifact.
func (c *DraftCache) Clear(ctx context.Context, ownerArtifactID string) error {
	if err := c.rdb.Del(ctx, draftKey(ownerArtifactID)).Err(); err != nil {
		return domain.WrapError(domain.ErrStorage, "failed to clear draft", true, err)
	}
	return nil
}

// Package gallery wires the generation subsystem to its stores and exposes
// the HTTP API.
package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/happyBayes/goods-gallery/internal/core/config"
	"github.com/happyBayes/goods-gallery/internal/core/domain"
	"github.com/happyBayes/goods-gallery/internal/gallery/metrics"
	"github.com/happyBayes/goods-gallery/internal/generation"
	"github.com/happyBayes/goods-gallery/internal/generation/ratelimit"
	"github.com/happyBayes/goods-gallery/internal/generation/retry"
	"github.com/happyBayes/goods-gallery/internal/infra/gemini"
	redisclient "github.com/happyBayes/goods-gallery/internal/infra/redis"
	"github.com/happyBayes/goods-gallery/internal/infra/storage"
	"github.com/happyBayes/goods-gallery/internal/infra/storage/memory"
	"github.com/happyBayes/goods-gallery/internal/infra/storage/postgres"
)

// Service owns the process-wide generation instances: one rate limiter per
// external quota, one orchestrator, and the shared stores.
type Service struct {
	limiter      *ratelimit.Limiter
	orchestrator *generation.Orchestrator
	designs      storage.DesignRepository
	drafts       storage.DraftCache

	db    *postgres.DB
	redis *redisclient.Client
}

// New assembles a Service from explicit collaborators. Tests substitute
// in-memory stores and a scripted client here.
func New(cfg *config.AppConfig, client generation.Client, designs storage.DesignRepository, drafts storage.DraftCache) *Service {
	gen := cfg.Generation
	limiter := ratelimit.New(ratelimit.Config{
		MaxRequests: gen.RateLimit.MaxRequests,
		Window:      time.Duration(gen.RateLimit.WindowMs) * time.Millisecond,
	})

	orchestrator := generation.NewOrchestrator(generation.Config{
		MaxPromptChars:    gen.MaxPromptChars,
		MinPromptChars:    gen.MinPromptChars,
		MaxReferenceBytes: gen.MaxReferenceBytes,
		DefaultStyle:      gen.DefaultStyle,
		Retry: retry.Config{
			MaxAttempts:    gen.Retry.MaxAttempts,
			BaseDelay:      time.Duration(gen.Retry.BaseDelayMs) * time.Millisecond,
			AttemptTimeout: time.Duration(gen.Retry.AttemptTimeoutMs) * time.Millisecond,
		},
	}, client, limiter)

	return &Service{
		limiter:      limiter,
		orchestrator: orchestrator,
		designs:      designs,
		drafts:       drafts,
	}
}

// Build constructs a Service with the infrastructure the config selects:
// Gemini as the generation client, postgres or memory designs, redis or
// memory drafts.
func Build(ctx context.Context, cfg *config.AppConfig, migrationsDir string) (*Service, error) {
	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey: cfg.Generation.APIKey,
		Model:  cfg.Generation.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build generation client: %w", err)
	}

	var designs storage.DesignRepository
	var db *postgres.DB
	switch cfg.Storage.Driver {
	case "postgres":
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if migrationsDir != "" {
			if err := db.Migrate(migrationsDir); err != nil {
				return nil, err
			}
		}
		designs = postgres.NewDesignRepo(db)
	case "memory":
		designs = memory.NewDesignRepo()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	draftTTL := time.Duration(cfg.Draft.TTLHours) * time.Hour
	var drafts storage.DraftCache
	var redisConn *redisclient.Client
	switch cfg.Draft.Driver {
	case "redis":
		redisConn, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		drafts = redisclient.NewDraftCache(redisConn, draftTTL, cfg.Draft.MaxBytes)
	case "memory":
		drafts = memory.NewDraftCache(draftTTL, cfg.Draft.MaxBytes)
	default:
		return nil, fmt.Errorf("unknown draft driver %q", cfg.Draft.Driver)
	}

	svc := New(cfg, client, designs, drafts)
	svc.db = db
	svc.redis = redisConn
	return svc, nil
}

// Generate runs the full flow and persists the result. The draft for the
// owning artifact is cleared after a successful save.
func (s *Service) Generate(
	ctx context.Context,
	req domain.GenerationRequest,
	ownerArtifactID, ownerArtifactTitle string,
) (*domain.GeneratedDesign, error) {
	design, err := s.orchestrator.Generate(ctx, req, ownerArtifactID, ownerArtifactTitle)
	if err != nil {
		return nil, err
	}

	if err := s.designs.Save(ctx, design); err != nil {
		return nil, err
	}
	metrics.DesignsSaved.Inc()

	if err := s.drafts.Clear(ctx, ownerArtifactID); err != nil {
		// The design is saved; a stale draft only costs a redundant restore.
		slog.Warn("Failed to clear draft after generation", "owner_artifact", ownerArtifactID, "error", err)
	}

	return design, nil
}

func (s *Service) GetDesign(ctx context.Context, id string) (*domain.GeneratedDesign, error) {
	return s.designs.Get(ctx, id)
}

func (s *Service) ListDesigns(ctx context.Context) ([]*domain.GeneratedDesign, error) {
	return s.designs.GetAll(ctx)
}

func (s *Service) DesignsByArtifact(ctx context.Context, artifactID string) ([]*domain.GeneratedDesign, error) {
	return s.designs.GetByOwner(ctx, artifactID)
}

func (s *Service) UpdateDesign(ctx context.Context, design *domain.GeneratedDesign) error {
	return s.designs.Update(ctx, design)
}

func (s *Service) DeleteDesign(ctx context.Context, id string) error {
	return s.designs.Delete(ctx, id)
}

func (s *Service) CountDesigns(ctx context.Context) (int, error) {
	return s.designs.Count(ctx)
}

func (s *Service) LoadDraft(ctx context.Context, ownerArtifactID string) (*domain.DraftState, error) {
	return s.drafts.Load(ctx, ownerArtifactID)
}

func (s *Service) SaveDraft(ctx context.Context, draft *domain.DraftState) error {
	return s.drafts.Save(ctx, draft)
}

func (s *Service) ClearDraft(ctx context.Context, ownerArtifactID string) error {
	return s.drafts.Clear(ctx, ownerArtifactID)
}

// LimitStatus reports the shared rate limiter's state.
type LimitStatus struct {
	Remaining    int   `json:"remaining"`
	ResetAfterMs int64 `json:"reset_after_ms"`
}

func (s *Service) Limits() LimitStatus {
	return LimitStatus{
		Remaining:    s.limiter.Remaining(),
		ResetAfterMs: s.limiter.TimeUntilReset().Milliseconds(),
	}
}

// ResetLimits clears the rate limiter. Administrative use only.
func (s *Service) ResetLimits() {
	s.limiter.Reset()
}

// Health checks the backing stores.
func (s *Service) Health(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.Health(ctx); err != nil {
			return fmt.Errorf("postgres unhealthy: %w", err)
		}
	}
	return nil
}

// Close releases store connections.
func (s *Service) Close() error {
	var firstErr error
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			firstErr = err
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

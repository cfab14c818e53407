// Package generation orchestrates AI design generation: validation, rate
// limiting, prompt enhancement, the retried external call, and assembly of
// the result record. Persistence is the caller's concern.
package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/happyBayes/goods-gallery/internal/core/domain"
	"github.com/happyBayes/goods-gallery/internal/gallery/metrics"
	"github.com/happyBayes/goods-gallery/internal/generation/classify"
	"github.com/happyBayes/goods-gallery/internal/generation/ratelimit"
	"github.com/happyBayes/goods-gallery/internal/generation/retry"
)

// Client is the external generation API. Any failure it returns is raw input
// for classification.
type Client interface {
	Generate(ctx context.Context, req ClientRequest) (*ClientResult, error)
}

// ClientRequest is the outbound call payload.
type ClientRequest struct {
	Prompt         string
	ReferenceImage []byte
	ReferenceMime  string
	AspectRatio    string
	ImageCount     int
}

// ClientResult is the raw generation output.
type ClientResult struct {
	ImageData []byte
	MimeType  string
}

// Config bounds validation and the external call.
type Config struct {
	MaxPromptChars    int
	MinPromptChars    int
	MaxReferenceBytes int
	DefaultStyle      domain.Style
	DefaultAspect     string
	Retry             retry.Config
}

// Orchestrator runs one generation request through the full flow. Terminal
// on first success or first non-retryable failure. Collaborators are
// injected so tests can substitute fresh instances per case.
type Orchestrator struct {
	cfg     Config
	client  Client
	limiter *ratelimit.Limiter
	now     func() time.Time
}

// NewOrchestrator creates an Orchestrator. The limiter must be the shared
// process-wide instance guarding the external quota.
func NewOrchestrator(cfg Config, client Client, limiter *ratelimit.Limiter) *Orchestrator {
	if cfg.DefaultAspect == "" {
		cfg.DefaultAspect = "1:1"
	}
	return &Orchestrator{
		cfg:     cfg,
		client:  client,
		limiter: limiter,
		now:     time.Now,
	}
}

// Generate validates the request, admits it through the rate limiter,
// enhances the prompt, invokes the external call with retry and timeout, and
// assembles the immutable result record. Every failure surfaces as a
// StructuredError.
func (o *Orchestrator) Generate(
	ctx context.Context,
	req domain.GenerationRequest,
	ownerArtifactID, ownerArtifactTitle string,
) (*domain.GeneratedDesign, error) {
	start := o.now()

	refPayload, refMime, err := o.validate(req)
	if err != nil {
		return nil, o.fail(err)
	}

	if err := o.limiter.Admit(); err != nil {
		metrics.RateLimitRejections.Inc()
		slog.Info("Generation rejected by rate limiter", "owner_artifact", ownerArtifactID)
		return nil, o.fail(err)
	}

	style := req.Style
	if style == "" {
		style = o.cfg.DefaultStyle
	}
	aspect := req.AspectRatio
	if aspect == "" {
		aspect = o.cfg.DefaultAspect
	}
	imageCount := req.ImageCount
	if imageCount <= 0 {
		imageCount = 1
	}

	enhanced := EnhancePrompt(req.Prompt, style)

	slog.Info("Starting design generation",
		"owner_artifact", ownerArtifactID,
		"style", style,
		"aspect_ratio", aspect)

	result, err := retry.Do(ctx, o.cfg.Retry, func(ctx context.Context) (*ClientResult, error) {
		res, callErr := o.client.Generate(ctx, ClientRequest{
			Prompt:         enhanced,
			ReferenceImage: refPayload,
			ReferenceMime:  refMime,
			AspectRatio:    aspect,
			ImageCount:     imageCount,
		})
		if callErr != nil {
			return nil, classify.Classify(callErr, "generation call")
		}
		return res, nil
	})
	if err != nil {
		serr := classify.Classify(err, "generation call")
		slog.Error("Design generation failed",
			"owner_artifact", ownerArtifactID,
			"kind", serr.Kind,
			"retryable", serr.Retryable)
		return nil, o.fail(serr)
	}

	elapsed := o.now().Sub(start)
	design := o.assemble(req, result, enhanced, style, aspect, ownerArtifactID, ownerArtifactTitle, elapsed)

	metrics.GenerationsTotal.WithLabelValues("success").Inc()
	metrics.GenerationDuration.Observe(elapsed.Seconds())
	slog.Info("Design generated",
		"design_id", design.ID,
		"owner_artifact", ownerArtifactID,
		"bytes", design.Metadata.ByteSize,
		"duration", elapsed)

	return design, nil
}

// validate checks the prompt and the reference image. Violations fail fast,
// before any admission is consumed.
func (o *Orchestrator) validate(req domain.GenerationRequest) ([]byte, string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if utf8.RuneCountInString(prompt) < o.cfg.MinPromptChars {
		return nil, "", domain.NewError(domain.ErrInvalidPrompt,
			"describe the design you want to generate", false)
	}
	if utf8.RuneCountInString(req.Prompt) > o.cfg.MaxPromptChars {
		return nil, "", domain.NewError(domain.ErrInvalidPrompt,
			fmt.Sprintf("prompt is limited to %d characters", o.cfg.MaxPromptChars), false)
	}

	if req.ReferenceImage == "" {
		return nil, "", domain.NewError(domain.ErrScreenshotFailed,
			"no reference screenshot was captured", false)
	}

	payload, mime, err := decodeReferenceImage(req.ReferenceImage)
	if err != nil {
		return nil, "", domain.WrapError(domain.ErrScreenshotFailed,
			"the captured screenshot is not a usable image", false, err)
	}
	if len(payload) > o.cfg.MaxReferenceBytes {
		return nil, "", domain.NewError(domain.ErrScreenshotFailed,
			fmt.Sprintf("screenshot of %d bytes exceeds the %d byte limit",
				len(payload), o.cfg.MaxReferenceBytes), false)
	}

	return payload, mime, nil
}

// assemble produces the immutable result record.
func (o *Orchestrator) assemble(
	req domain.GenerationRequest,
	result *ClientResult,
	enhanced string,
	style domain.Style,
	aspect string,
	ownerArtifactID, ownerArtifactTitle string,
	elapsed time.Duration,
) *domain.GeneratedDesign {
	width, height := imageDimensions(result.ImageData)

	return &domain.GeneratedDesign{
		ID:                 uuid.NewString(),
		ImageData:          base64.StdEncoding.EncodeToString(result.ImageData),
		Prompt:             req.Prompt,
		EnhancedPrompt:     enhanced,
		Style:              style,
		ReferenceImage:     req.ReferenceImage,
		CreatedAt:          o.now(),
		OwnerArtifactID:    ownerArtifactID,
		OwnerArtifactTitle: ownerArtifactTitle,
		Metadata: domain.DesignMetadata{
			AspectRatio:  aspect,
			ByteSize:     len(result.ImageData),
			Width:        width,
			Height:       height,
			GenerationMs: elapsed.Milliseconds(),
		},
	}
}

func (o *Orchestrator) fail(err error) error {
	if serr, ok := err.(*domain.StructuredError); ok {
		metrics.GenerationsTotal.WithLabelValues(string(serr.Kind)).Inc()
	}
	return err
}

var supportedMimes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// decodeReferenceImage accepts either a data URL or raw base64 and returns
// the decoded bytes with their mime type.
func decodeReferenceImage(ref string) ([]byte, string, error) {
	mime := ""
	payload := ref

	if strings.HasPrefix(ref, "data:") {
		rest := strings.TrimPrefix(ref, "data:")
		meta, data, ok := strings.Cut(rest, ",")
		if !ok {
			return nil, "", fmt.Errorf("malformed data URL")
		}
		mime = strings.TrimSuffix(meta, ";base64")
		payload = data
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 image data: %w", err)
	}

	if mime == "" {
		mime = http.DetectContentType(decoded)
	}
	if !supportedMimes[mime] {
		return nil, "", fmt.Errorf("unsupported image type %q", mime)
	}

	return decoded, mime, nil
}

// imageDimensions reads the image header for width and height. Undecodable
// output keeps zero dimensions rather than failing the generation.
func imageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		slog.Debug("Could not decode generated image dimensions", "error", err)
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

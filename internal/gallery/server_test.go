package gallery

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/happyBayes/goods-gallery/internal/core/config"
	"github.com/happyBayes/goods-gallery/internal/core/domain"
	"github.com/happyBayes/goods-gallery/internal/generation"
	"github.com/happyBayes/goods-gallery/internal/infra/storage/memory"
)

const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

type scriptedClient struct {
	calls int
	fn    func(calls int) (*generation.ClientResult, error)
}

func (c *scriptedClient) Generate(ctx context.Context, req generation.ClientRequest) (*generation.ClientResult, error) {
	c.calls++
	return c.fn(c.calls)
}

func okClient() *scriptedClient {
	return &scriptedClient{fn: func(int) (*generation.ClientResult, error) {
		data, _ := base64.StdEncoding.DecodeString(onePixelPNG)
		return &generation.ClientResult{ImageData: data, MimeType: "image/png"}, nil
	}}
}

func testService(client generation.Client) (*Service, *memory.DesignRepo, *memory.DraftCache) {
	cfg := &config.AppConfig{
		Generation: config.GenerationConfig{
			DefaultStyle:      domain.StyleModern,
			MaxPromptChars:    500,
			MinPromptChars:    1,
			MaxReferenceBytes: 10 << 20,
			RateLimit:         config.RateLimitConfig{MaxRequests: 10, WindowMs: 60_000},
			Retry:             config.RetryConfig{MaxAttempts: 3, BaseDelayMs: 1, AttemptTimeoutMs: 1000},
		},
	}
	designs := memory.NewDesignRepo()
	drafts := memory.NewDraftCache(24*time.Hour, 5<<20)
	return New(cfg, client, designs, drafts), designs, drafts
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_GenerateAndFetch(t *testing.T) {
	svc, _, _ := testService(okClient())
	handler := NewServer(svc, 0).Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/designs/generate", map[string]any{
		"prompt":               "modern poster",
		"reference_image":      "data:image/png;base64,AAAA",
		"aspect_ratio":         "1:1",
		"owner_artifact_id":    "art-1",
		"owner_artifact_title": "Vase",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var design domain.GeneratedDesign
	if err := json.Unmarshal(rec.Body.Bytes(), &design); err != nil {
		t.Fatalf("Failed to decode design: %v", err)
	}
	if design.ID == "" || design.Prompt != "modern poster" {
		t.Errorf("Unexpected design: %+v", design)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/designs/"+design.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/artifacts/art-1/designs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var owned []domain.GeneratedDesign
	if err := json.Unmarshal(rec.Body.Bytes(), &owned); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(owned) != 1 || owned[0].ID != design.ID {
		t.Errorf("Expected the saved design for art-1, got %+v", owned)
	}
}

func TestServer_GenerateValidationError(t *testing.T) {
	svc, _, _ := testService(okClient())
	handler := NewServer(svc, 0).Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/designs/generate", map[string]any{
		"prompt":            "",
		"reference_image":   "data:image/png;base64,AAAA",
		"owner_artifact_id": "art-1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}

	var resp struct {
		Kind      domain.ErrorKind `json:"kind"`
		Retryable bool             `json:"retryable"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error: %v", err)
	}
	if resp.Kind != domain.ErrInvalidPrompt || resp.Retryable {
		t.Errorf("Unexpected error payload: %+v", resp)
	}
}

func TestServer_GenerateRateLimited(t *testing.T) {
	client := okClient()
	cfg := &config.AppConfig{
		Generation: config.GenerationConfig{
			DefaultStyle:      domain.StyleModern,
			MaxPromptChars:    500,
			MinPromptChars:    1,
			MaxReferenceBytes: 10 << 20,
			RateLimit:         config.RateLimitConfig{MaxRequests: 1, WindowMs: 60_000},
			Retry:             config.RetryConfig{MaxAttempts: 3, BaseDelayMs: 1, AttemptTimeoutMs: 1000},
		},
	}
	svc := New(cfg, client, memory.NewDesignRepo(), memory.NewDraftCache(time.Hour, 5<<20))
	handler := NewServer(svc, 0).Handler()

	body := map[string]any{
		"prompt":            "poster",
		"reference_image":   "data:image/png;base64,AAAA",
		"owner_artifact_id": "art-1",
	}

	if rec := doRequest(t, handler, http.MethodPost, "/api/designs/generate", body); rec.Code != http.StatusCreated {
		t.Fatalf("First request should pass, got %d", rec.Code)
	}

	rec := doRequest(t, handler, http.MethodPost, "/api/designs/generate", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
	if client.calls != 1 {
		t.Errorf("External call must not run when rate limited, calls=%d", client.calls)
	}
}

func TestServer_UpstreamFailureMapsToGateway(t *testing.T) {
	client := &scriptedClient{fn: func(int) (*generation.ClientResult, error) {
		return nil, errors.New("api key not valid")
	}}
	svc, _, _ := testService(client)
	handler := NewServer(svc, 0).Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/designs/generate", map[string]any{
		"prompt":            "poster",
		"reference_image":   "data:image/png;base64,AAAA",
		"owner_artifact_id": "art-1",
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502 for auth failure, got %d", rec.Code)
	}
	if client.calls != 1 {
		t.Errorf("Non-retryable auth failure must be called once, calls=%d", client.calls)
	}
}

func TestServer_DraftLifecycle(t *testing.T) {
	svc, _, _ := testService(okClient())
	handler := NewServer(svc, 0).Handler()

	rec := doRequest(t, handler, http.MethodPut, "/api/artifacts/art-1/draft", map[string]any{
		"prompt":       "half-finished idea",
		"style":        "vintage",
		"aspect_ratio": "16:9",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/artifacts/art-1/draft", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var draft domain.DraftState
	if err := json.Unmarshal(rec.Body.Bytes(), &draft); err != nil {
		t.Fatalf("Failed to decode draft: %v", err)
	}
	if draft.Prompt != "half-finished idea" || draft.OwnerArtifactID != "art-1" {
		t.Errorf("Unexpected draft: %+v", draft)
	}

	// A different artifact has no draft.
	rec = doRequest(t, handler, http.MethodGet, "/api/artifacts/art-2/draft", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for other artifact, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodDelete, "/api/artifacts/art-1/draft", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}
	rec = doRequest(t, handler, http.MethodGet, "/api/artifacts/art-1/draft", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 after clear, got %d", rec.Code)
	}
}

func TestServer_DraftClearedAfterGeneration(t *testing.T) {
	svc, _, drafts := testService(okClient())
	handler := NewServer(svc, 0).Handler()

	if err := drafts.Save(context.Background(), &domain.DraftState{
		OwnerArtifactID: "art-1",
		Prompt:          "draft prompt",
	}); err != nil {
		t.Fatalf("Draft save failed: %v", err)
	}

	rec := doRequest(t, handler, http.MethodPost, "/api/designs/generate", map[string]any{
		"prompt":            "final prompt",
		"reference_image":   "data:image/png;base64,AAAA",
		"owner_artifact_id": "art-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}

	draft, err := drafts.Load(context.Background(), "art-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if draft != nil {
		t.Error("Draft must be cleared after successful generation")
	}
}

func TestServer_Limits(t *testing.T) {
	svc, _, _ := testService(okClient())
	handler := NewServer(svc, 0).Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/designs/generate", map[string]any{
		"prompt":            "poster",
		"reference_image":   "data:image/png;base64,AAAA",
		"owner_artifact_id": "art-1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/limits", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var limits LimitStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &limits); err != nil {
		t.Fatalf("Failed to decode limits: %v", err)
	}
	if limits.Remaining != 9 {
		t.Errorf("Expected 9 remaining, got %d", limits.Remaining)
	}
	if limits.ResetAfterMs <= 0 {
		t.Error("Expected positive reset time with one admission consumed")
	}
}

func TestServer_DeleteDesign(t *testing.T) {
	svc, designs, _ := testService(okClient())
	handler := NewServer(svc, 0).Handler()

	design := &domain.GeneratedDesign{ID: "d1", OwnerArtifactID: "art-1", Prompt: "p"}
	if err := designs.Save(context.Background(), design); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rec := doRequest(t, handler, http.MethodDelete, "/api/designs/d1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/designs/d1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 after delete, got %d", rec.Code)
	}
}

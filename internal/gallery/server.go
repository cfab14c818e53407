package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/happyBayes/goods-gallery/internal/core/domain"
)

// Server exposes the gallery API over HTTP.
type Server struct {
	svc    *Service
	server *http.Server
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(svc *Service, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		svc: svc,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("POST /api/designs/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/designs", s.handleListDesigns)
	mux.HandleFunc("GET /api/designs/{id}", s.handleGetDesign)
	mux.HandleFunc("PUT /api/designs/{id}", s.handleUpdateDesign)
	mux.HandleFunc("DELETE /api/designs/{id}", s.handleDeleteDesign)
	mux.HandleFunc("GET /api/artifacts/{id}/designs", s.handleDesignsByArtifact)
	mux.HandleFunc("GET /api/artifacts/{id}/draft", s.handleLoadDraft)
	mux.HandleFunc("PUT /api/artifacts/{id}/draft", s.handleSaveDraft)
	mux.HandleFunc("DELETE /api/artifacts/{id}/draft", s.handleClearDraft)
	mux.HandleFunc("GET /api/limits", s.handleLimits)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

type generateRequest struct {
	domain.GenerationRequest
	OwnerArtifactID    string `json:"owner_artifact_id"`
	OwnerArtifactTitle string `json:"owner_artifact_title"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewError(domain.ErrInvalidPrompt, "malformed request body", false))
		return
	}
	if req.OwnerArtifactID == "" {
		writeError(w, domain.NewError(domain.ErrInvalidPrompt, "owner_artifact_id is required", false))
		return
	}

	design, err := s.svc.Generate(r.Context(), req.GenerationRequest,
		req.OwnerArtifactID, req.OwnerArtifactTitle)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, design)
}

func (s *Server) handleListDesigns(w http.ResponseWriter, r *http.Request) {
	designs, err := s.svc.ListDesigns(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, designs)
}

func (s *Server) handleGetDesign(w http.ResponseWriter, r *http.Request) {
	design, err := s.svc.GetDesign(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if design == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "design not found"})
		return
	}
	writeJSON(w, http.StatusOK, design)
}

func (s *Server) handleUpdateDesign(w http.ResponseWriter, r *http.Request) {
	var design domain.GeneratedDesign
	if err := json.NewDecoder(r.Body).Decode(&design); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed request body"})
		return
	}
	design.ID = r.PathValue("id")

	if err := s.svc.UpdateDesign(r.Context(), &design); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, design)
}

func (s *Server) handleDeleteDesign(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteDesign(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDesignsByArtifact(w http.ResponseWriter, r *http.Request) {
	designs, err := s.svc.DesignsByArtifact(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, designs)
}

func (s *Server) handleLoadDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := s.svc.LoadDraft(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if draft == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no draft"})
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	var draft domain.DraftState
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed request body"})
		return
	}
	draft.OwnerArtifactID = r.PathValue("id")

	if err := s.svc.SaveDraft(r.Context(), &draft); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearDraft(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Limits())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Kind      domain.ErrorKind `json:"kind"`
	Message   string           `json:"message"`
	Retryable bool             `json:"retryable"`
	WaitMs    int64            `json:"wait_ms,omitempty"`
}

// writeError maps a StructuredError to an HTTP status and a JSON body the
// UI can show directly. A non-structured error is a bug in the subsystem;
// it surfaces as a generic 500.
func writeError(w http.ResponseWriter, err error) {
	var serr *domain.StructuredError
	if !errors.As(err, &serr) {
		slog.Error("Unclassified error reached the API surface", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Kind:      domain.ErrAPI,
			Message:   "internal error",
			Retryable: true,
		})
		return
	}

	if serr.Kind == domain.ErrRateLimitExceeded && serr.WaitTime > 0 {
		seconds := int64(serr.WaitTime / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	writeJSON(w, statusFor(serr.Kind), errorResponse{
		Kind:      serr.Kind,
		Message:   serr.Message,
		Retryable: serr.Retryable,
		WaitMs:    serr.WaitTime.Milliseconds(),
	})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrInvalidPrompt, domain.ErrScreenshotFailed:
		return http.StatusBadRequest
	case domain.ErrRateLimitExceeded, domain.ErrQuotaExceeded:
		return http.StatusTooManyRequests
	case domain.ErrContentPolicy:
		return http.StatusUnprocessableEntity
	case domain.ErrTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrAPI, domain.ErrNetwork, domain.ErrAuthentication:
		return http.StatusBadGateway
	case domain.ErrStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

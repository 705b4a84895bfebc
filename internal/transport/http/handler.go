// Package http exposes the sample server's surface: product mutations that
// drive audited saves, and the audit-trail read endpoint backed by the
// in-process recorder.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/saturn72/efaudit/internal/catalog"
	"github.com/saturn72/efaudit/internal/platform/middleware"
	"github.com/saturn72/efaudit/internal/publish"
	"github.com/saturn72/efaudit/pkg/platform/sentinel"
)

// Handler is the thin HTTP layer; transaction and audit semantics live in
// the catalog service and the capture aggregator.
type Handler struct {
	logger        *slog.Logger
	catalog       *catalog.Service
	recorder      *publish.Recorder
	jwtSigningKey []byte
}

func NewHandler(logger *slog.Logger, cat *catalog.Service, recorder *publish.Recorder, jwtSigningKey []byte) *Handler {
	return &Handler{
		logger:        logger,
		catalog:       cat,
		recorder:      recorder,
		jwtSigningKey: jwtSigningKey,
	}
}

// Router wires all endpoints with the request-context middleware the audit
// core depends on.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Subject(h.jwtSigningKey, h.logger))

	r.Post("/products", h.handleCreateProduct)
	r.Put("/products/{id}", h.handleUpdateProduct)
	r.Delete("/products/{id}", h.handleDeleteProduct)
	r.Post("/products/{id}/tags", h.handleTagProduct)
	r.Get("/audit", h.handleListAudit)
	r.Get("/healthz", h.handleHealth)
	return r
}

type productRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type tagRequest struct {
	Tag string `json:"tag"`
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r.Context(), http.StatusBadRequest, err)
		return
	}
	product, err := h.catalog.Create(r.Context(), req.Name, req.Price)
	if err != nil {
		h.writeError(w, r.Context(), http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, r.Context(), http.StatusCreated, product)
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, r.Context(), http.StatusBadRequest, err)
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r.Context(), http.StatusBadRequest, err)
		return
	}
	product, err := h.catalog.Update(r.Context(), id, req.Name, req.Price)
	if err != nil {
		h.writeError(w, r.Context(), statusFor(err), err)
		return
	}
	h.writeJSON(w, r.Context(), http.StatusOK, product)
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, r.Context(), http.StatusBadRequest, err)
		return
	}
	if err := h.catalog.Delete(r.Context(), id); err != nil {
		h.writeError(w, r.Context(), statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTagProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, r.Context(), http.StatusBadRequest, err)
		return
	}
	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r.Context(), http.StatusBadRequest, err)
		return
	}
	if err := h.catalog.Tag(r.Context(), id, req.Tag); err != nil {
		h.writeError(w, r.Context(), statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListAudit returns every audit message the in-process recorder has
// collected, publish order preserved.
func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r.Context(), http.StatusOK, h.recorder.Messages())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r.Context(), http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sentinel.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeJSON(w http.ResponseWriter, ctx context.Context, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, ctx context.Context, status int, err error) {
	h.logger.WarnContext(ctx, "request failed",
		"status", status,
		"error", err,
	)
	h.writeJSON(w, ctx, status, map[string]string{"error": err.Error()})
}

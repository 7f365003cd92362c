// Package httphandler implements the JSON REST driving adapter.
package httphandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/certregistry/internal/application"
)

// maxBodyBytes caps request bodies; participant payloads are a few hundred bytes.
const maxBodyBytes = 1 << 20

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	registry *application.RegistryService
	metrics  http.Handler
	logger   *slog.Logger
}

// NewHandler creates a Handler. metricsHandler may be nil, in which case
// /metrics is not served.
func NewHandler(registry *application.RegistryService, metricsHandler http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		metrics:  metricsHandler,
		logger:   logger,
	}
}

// RegisterRoutes registers all API routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /participants", h.ListParticipants)
	mux.HandleFunc("POST /participants", h.CreateParticipant)
	mux.HandleFunc("PUT /participants/{serialNumber}", h.UpdateParticipant)
	mux.HandleFunc("DELETE /participants/{serialNumber}", h.DeleteParticipant)
	mux.HandleFunc("POST /verify-password", h.VerifyPassword)
	mux.HandleFunc("GET /health", h.Health)

	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

// NewServeMux creates an http.Handler with the API routes registered and
// wrapped with the standard middleware chain.
func NewServeMux(h *Handler, logger *slog.Logger, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, h)
	return ApplyMiddleware(mux, logger, allowedOrigins)
}

// ListParticipants returns every participant, optionally narrowed by the
// q (name or serial substring) and position query parameters.
func (h *Handler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	filter := application.ListFilter{
		Query:    r.URL.Query().Get("q"),
		Position: r.URL.Query().Get("position"),
	}

	participants, err := h.registry.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list participants", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	resp := make([]ParticipantResponse, 0, len(participants))
	for _, p := range participants {
		resp = append(resp, toParticipantResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateParticipant appends a new participant.
func (h *Handler) CreateParticipant(w http.ResponseWriter, r *http.Request) {
	var req ParticipantRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := h.registry.Create(r.Context(), req.toParticipant()); err != nil {
		h.writeServiceError(w, r, "create", req.SerialNumber, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: msgParticipantAdded})
}

// UpdateParticipant replaces the non-key fields of the participant named in
// the path. A serialNumber in the body is ignored.
func (h *Handler) UpdateParticipant(w http.ResponseWriter, r *http.Request) {
	serial := r.PathValue("serialNumber")

	var req ParticipantRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := h.registry.Update(r.Context(), serial, req.toParticipant(), req.Password); err != nil {
		h.writeServiceError(w, r, "update", serial, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgParticipantUpdated})
}

// DeleteParticipant removes the participant named in the path. An empty body
// is an empty password.
func (h *Handler) DeleteParticipant(w http.ResponseWriter, r *http.Request) {
	serial := r.PathValue("serialNumber")

	var req PasswordRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := h.registry.Delete(r.Context(), serial, req.Password); err != nil {
		h.writeServiceError(w, r, "delete", serial, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgParticipantDeleted})
}

// VerifyPassword lets clients check the admin password before prompting for
// a mutation.
func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if !h.registry.VerifyPassword(req.Password) {
		writeJSON(w, http.StatusUnauthorized, StatusResponse{Status: statusUnauthorized})
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Status: statusOK})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError maps RegistryService errors to HTTP status codes.
// Anything unrecognized is a store failure and is logged.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op, serial string, err error) {
	switch {
	case errors.Is(err, application.ErrSerialRequired):
		writeError(w, http.StatusBadRequest, msgSerialRequired)
	case errors.Is(err, application.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, application.ErrParticipantNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, application.ErrDuplicateSerial):
		writeError(w, http.StatusConflict, msgDuplicate)
	default:
		h.logger.Error("participant operation failed",
			"operation", op,
			"serial_number", serial,
			"error", err,
			"request_id", RequestIDFromContext(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

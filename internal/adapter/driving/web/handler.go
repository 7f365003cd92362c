// Package web implements the HTML roster driving adapter using templ components.
package web

import (
	"log/slog"
	"net/http"

	"github.com/ericfisherdev/certregistry/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/certregistry/internal/adapter/driving/web/templates/pages"
	"github.com/ericfisherdev/certregistry/internal/application"
)

// Handler is the web driving adapter that serves the read-only roster page.
type Handler struct {
	registry *application.RegistryService
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(registry *application.RegistryService, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		logger:   logger,
	}
}

// Roster renders every participant matching the q and position query
// parameters as an HTML table.
func (h *Handler) Roster(w http.ResponseWriter, r *http.Request) {
	filter := application.ListFilter{
		Query:    r.URL.Query().Get("q"),
		Position: r.URL.Query().Get("position"),
	}

	all, err := h.registry.List(r.Context(), application.ListFilter{})
	if err != nil {
		h.logger.Error("failed to load roster", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	page := toRosterViewModel(all, filter)
	layout := templates.Layout(page.Title(), pages.Roster(page))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := layout.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render roster", "error", err)
	}
}

package web

import "net/http"

// RegisterRoutes registers the roster page on the provided mux. The {$}
// anchor keeps / from swallowing unknown paths.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /{$}", h.Roster)
}

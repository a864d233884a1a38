package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// flagsResponse is the payload for GET /api/flags.
type flagsResponse struct {
	Flags map[string]bool `json:"flags"`
}

// ListFlags handles GET /api/flags.
func (h *Handler) ListFlags(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, flagsResponse{Flags: h.engine.All()})
}

// GetFlag handles GET /api/flags/{name}. Unknown flags return 404 rather
// than a default so callers can distinguish "off" from "absent".
func (h *Handler) GetFlag(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	flag := h.engine.Flag(name)
	if flag == nil {
		Error(w, http.StatusNotFound, "unknown flag: "+name)
		return
	}
	JSON(w, http.StatusOK, flag)
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/tofo/pkg/logger"
)

// CacheHandler exposes catalog cache slots.
type CacheHandler struct {
	deps   CacheAdmin
	logger logger.Logger
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(deps CacheAdmin, l logger.Logger) *CacheHandler {
	return &CacheHandler{deps: deps, logger: l}
}

// HandleStatus handles GET /cache requests.
func (h *CacheHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Status(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleRefresh handles POST /cache/{source}/refresh requests. The TTL is
// ignored; a failed refresh that falls back to the cached copy still
// reports 200 with outcome "stale".
func (h *CacheHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	res, err := h.deps.Refresh(r.Context(), source)
	if err != nil {
		h.logger.Warn(r.Context(), "forced refresh failed",
			logger.String("catalog", source), logger.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

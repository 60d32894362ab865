package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/tofo/internal/domain/types"
)

// ScoresDependencies defines the interface for score table reads.
type ScoresDependencies interface {
	TopN(ctx context.Context, n int) ([]types.Entry, error)
}

// ScoresHandler handles score table requests.
type ScoresHandler struct {
	deps     ScoresDependencies
	maxLimit int
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoresDependencies, maxLimit int) *ScoresHandler {
	return &ScoresHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetScores handles GET /scores?limit=N requests.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%w: max %d", ErrLimitExceeded, h.maxLimit))
		return
	}
	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

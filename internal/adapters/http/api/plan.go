package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/tofo/internal/adapters/export"
	"github.com/okian/tofo/internal/domain/model"
	"github.com/okian/tofo/internal/domain/types"
	"github.com/okian/tofo/pkg/logger"
)

const maxPlanBody = 1 << 16

// planRequest is the body of POST /plan. Either start and end, or hours
// (counted from start, or from now when start is empty).
type planRequest struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Hours float64 `json:"hours"`
}

func (p planRequest) window(now time.Time, defaultHours float64) (model.Window, error) {
	start := now
	if strings.TrimSpace(p.Start) != "" {
		t, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			return model.Window{}, errors.New("invalid start; must be RFC3339")
		}
		start = t
	}
	if strings.TrimSpace(p.End) != "" {
		if p.Hours != 0 {
			return model.Window{}, errors.New("give either end or hours, not both")
		}
		end, err := time.Parse(time.RFC3339, p.End)
		if err != nil {
			return model.Window{}, errors.New("invalid end; must be RFC3339")
		}
		if end.Sub(start) > maxPlanHours*time.Hour {
			return model.Window{}, fmt.Errorf("window longer than %d hours", maxPlanHours)
		}
		return model.Window{Start: start, End: end}, nil
	}

	hours := p.Hours
	if hours == 0 {
		hours = defaultHours
	}
	if hours < 0 || hours > maxPlanHours || math.IsNaN(hours) {
		return model.Window{}, fmt.Errorf("hours must be in (0, %d]", maxPlanHours)
	}
	return model.Window{Start: start, End: start.Add(time.Duration(hours * float64(time.Hour)))}, nil
}

// PlanHandler runs plans and serves published ones.
type PlanHandler struct {
	deps         Planner
	planHours    float64
	exportFormat export.Format
	now          func() time.Time
	logger       logger.Logger
}

// NewPlanHandler creates a new plan handler.
func NewPlanHandler(deps Planner, o options) *PlanHandler {
	return &PlanHandler{
		deps:         deps,
		planHours:    o.planHours,
		exportFormat: o.exportFormat,
		now:          o.now,
		logger:       o.logger,
	}
}

// HandleCreatePlan handles POST /plan requests.
func (h *PlanHandler) HandleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPlanBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
			return
		}
	}
	win, err := req.window(h.now(), h.planHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	plan, err := h.deps.Plan(r.Context(), win)
	if err != nil {
		h.logger.Warn(r.Context(), "plan failed", logger.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// HandleGetPlan handles GET /plan/{id}; "latest" names the last published plan.
func (h *PlanHandler) HandleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := h.resolve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// HandleExport handles GET /plan/{id}/export?format=csv|json.
func (h *PlanHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format, ok := h.format(w, r)
	if !ok {
		return
	}
	plan, ok := h.resolve(w, r)
	if !ok {
		return
	}
	h.writeRows(w, r, format, plan.ID, plan.Events)
}

// HandleSequence handles GET /plan/{id}/sequence?gap_minutes=N[&format=].
// Without a format the sequence is returned as JSON.
func (h *PlanHandler) HandleSequence(w http.ResponseWriter, r *http.Request) {
	gap := time.Duration(0)
	if s := r.URL.Query().Get("gap_minutes"); s != "" {
		m, err := strconv.ParseFloat(s, 64)
		if err != nil || m < 0 || math.IsNaN(m) || math.IsInf(m, 0) {
			writeError(w, http.StatusBadRequest, "bad_request",
				fmt.Errorf("%w: gap_minutes must be a non-negative number", ErrBadRequest))
			return
		}
		gap = time.Duration(m * float64(time.Minute))
	}
	format := export.JSON
	if r.URL.Query().Get("format") != "" {
		var ok bool
		if format, ok = h.format(w, r); !ok {
			return
		}
	}
	plan, ok := h.resolve(w, r)
	if !ok {
		return
	}
	rows := h.deps.Sequence(plan, gap)
	h.writeRows(w, r, format, plan.ID+"-sequence", rows)
}

func (h *PlanHandler) format(w http.ResponseWriter, r *http.Request) (export.Format, bool) {
	s := r.URL.Query().Get("format")
	if s == "" {
		return h.exportFormat, true
	}
	f, err := export.ParseFormat(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return "", false
	}
	return f, true
}

func (h *PlanHandler) resolve(w http.ResponseWriter, r *http.Request) (*types.Plan, bool) {
	id := chi.URLParam(r, "id")
	var (
		plan *types.Plan
		err  error
	)
	if id == latestPlanID {
		plan, err = h.deps.Latest(r.Context())
	} else {
		plan, err = h.deps.PlanByID(r.Context(), id)
	}
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return plan, true
}

func (h *PlanHandler) writeRows(w http.ResponseWriter, r *http.Request, f export.Format, name string, rows []types.EventRow) {
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name+"."+string(f)))
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, f, rows); err != nil {
		h.logger.Warn(r.Context(), "export failed", logger.Error(err))
	}
}

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/shrimpwatch/internal/app"
	"github.com/ayusman/shrimpwatch/internal/store"
)

// History defaults.
const (
	DefaultCheckLimit  = 50
	DefaultSummaryDays = 7
)

// HistoryHandler serves /api/checks, /api/summaries and /api/data.
type HistoryHandler struct {
	app *app.App
	now func() time.Time
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(a *app.App) *HistoryHandler {
	return &HistoryHandler{app: a, now: time.Now}
}

// ServeHTTP implements the http.Handler interface.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/checks":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.checks(w, r)
	case "/api/summaries":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.summaries(w, r)
	case "/api/data":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		h.clear(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// intParam parses a positive query parameter, falling back to def when it
// is missing.
func intParam(r *http.Request, name string, def, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	if n > max {
		n = max
	}
	return n, true
}

type listChecksResponse struct {
	Checks []*store.Check `json:"checks"`
}

func (h *HistoryHandler) checks(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(r, "limit", DefaultCheckLimit, store.MaxChecks)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	checks, err := h.app.Store().Checks().List(limit)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if checks == nil {
		checks = []*store.Check{}
	}
	writeJSON(w, http.StatusOK, listChecksResponse{Checks: checks})
}

type listSummariesResponse struct {
	Summaries []*store.DailySummary `json:"summaries"`
}

func (h *HistoryHandler) summaries(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(r, "days", DefaultSummaryDays, store.SummaryRetentionDays)
	if !ok {
		writeError(w, http.StatusBadRequest, "days must be a positive integer")
		return
	}

	summaries, err := h.app.Store().Summaries().List(h.now(), days)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if summaries == nil {
		summaries = []*store.DailySummary{}
	}
	writeJSON(w, http.StatusOK, listSummariesResponse{Summaries: summaries})
}

func (h *HistoryHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.app.ClearData(); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ayusman/shrimpwatch/internal/app"
)

// Monitor defaults.
const (
	DefaultSnoozeMinutes = 5
	DefaultRecheckDelay  = 10 * time.Second
)

// MonitorHandler serves the monitoring controls: /api/status,
// /api/monitoring, /api/check, /api/snooze and /api/recheck.
type MonitorHandler struct {
	app     *app.App
	limiter *rate.Limiter
}

// NewMonitorHandler creates a MonitorHandler. limiter bounds on-demand
// checks; nil means unlimited.
func NewMonitorHandler(a *app.App, limiter *rate.Limiter) *MonitorHandler {
	return &MonitorHandler{app: a, limiter: limiter}
}

// ServeHTTP implements the http.Handler interface.
func (h *MonitorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/status":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.status(w, r)
	case "/api/monitoring":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.monitoring(w, r)
	case "/api/check":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.check(w, r)
	case "/api/snooze":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.snooze(w, r)
	case "/api/recheck":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.recheck(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *MonitorHandler) status(w http.ResponseWriter, r *http.Request) {
	status, err := h.app.Status()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type monitoringRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *MonitorHandler) monitoring(w http.ResponseWriter, r *http.Request) {
	var req monitoringRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	if err := h.app.SetMonitoring(*req.Enabled); err != nil {
		writeAppError(w, err)
		return
	}
	h.status(w, r)
}

func (h *MonitorHandler) check(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "Too many checks, try again shortly")
		return
	}

	res, err := h.app.Check(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type snoozeRequest struct {
	Minutes *int `json:"minutes"`
}

type snoozeResponse struct {
	SnoozedUntil *time.Time `json:"snoozedUntil"`
}

// snooze handles POST /api/snooze. Zero minutes ends a snooze.
func (h *MonitorHandler) snooze(w http.ResponseWriter, r *http.Request) {
	var req snoozeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	minutes := DefaultSnoozeMinutes
	if req.Minutes != nil {
		minutes = *req.Minutes
	}
	if minutes < 0 {
		writeError(w, http.StatusBadRequest, "minutes must not be negative")
		return
	}

	until, err := h.app.Snooze(time.Duration(minutes) * time.Minute)
	if err != nil {
		writeAppError(w, err)
		return
	}

	resp := snoozeResponse{}
	if !until.IsZero() {
		resp.SnoozedUntil = &until
	}
	writeJSON(w, http.StatusOK, resp)
}

type recheckRequest struct {
	Seconds *int `json:"seconds"`
}

func (h *MonitorHandler) recheck(w http.ResponseWriter, r *http.Request) {
	var req recheckRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	delay := DefaultRecheckDelay
	if req.Seconds != nil {
		if *req.Seconds < 0 {
			writeError(w, http.StatusBadRequest, "seconds must not be negative")
			return
		}
		delay = time.Duration(*req.Seconds) * time.Second
	}

	if err := h.app.Recheck(delay); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/shrimpwatch/internal/app"
	"github.com/ayusman/shrimpwatch/internal/detector"
	"github.com/ayusman/shrimpwatch/internal/posture"
	"github.com/ayusman/shrimpwatch/internal/store"
)

// CalibrationHandler handles HTTP requests for calibration resources.
type CalibrationHandler struct {
	app *app.App
}

// NewCalibrationHandler creates a new CalibrationHandler.
func NewCalibrationHandler(a *app.App) *CalibrationHandler {
	return &CalibrationHandler{app: a}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/calibration, /api/calibration/{role} and
// /api/calibration/{role}/samples.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/calibration")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodDelete:
			h.clear(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	parts := strings.Split(path, "/")
	role, err := posture.ParseRole(parts[0])
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown camera role")
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, role)
		case http.MethodPost:
			h.capture(w, r, role)
		case http.MethodDelete:
			h.delete(w, r, role)
		default:
			methodNotAllowed(w)
		}
	case len(parts) == 2 && parts[1] == "samples":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.samples(w, r, role)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type listCalibrationsResponse struct {
	Calibrations []*store.CalibrationRecord `json:"calibrations"`
}

func (h *CalibrationHandler) list(w http.ResponseWriter, r *http.Request) {
	records, err := h.app.Store().Calibrations().List()
	if err != nil {
		writeAppError(w, err)
		return
	}
	if records == nil {
		records = []*store.CalibrationRecord{}
	}
	writeJSON(w, http.StatusOK, listCalibrationsResponse{Calibrations: records})
}

func (h *CalibrationHandler) get(w http.ResponseWriter, r *http.Request, role posture.Role) {
	rec, err := h.app.Store().Calibrations().Get(role)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *CalibrationHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.app.ClearCalibration(); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CalibrationHandler) delete(w http.ResponseWriter, r *http.Request, role posture.Role) {
	if err := h.app.Store().Calibrations().Delete(role); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type captureRequest struct {
	Frames     int `json:"frames"`
	IntervalMs int `json:"intervalMs"`
}

// capture handles POST /api/calibration/{role} by sampling the live camera.
func (h *CalibrationHandler) capture(w http.ResponseWriter, r *http.Request, role posture.Role) {
	var req captureRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Frames < 0 || req.IntervalMs < 0 {
		writeError(w, http.StatusBadRequest, "frames and intervalMs must not be negative")
		return
	}

	rec, err := h.app.Calibrate(r.Context(), role, req.Frames, time.Duration(req.IntervalMs)*time.Millisecond)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type samplesRequest struct {
	Poses []*detector.Pose `json:"poses"`
}

// samples handles POST /api/calibration/{role}/samples with poses captured
// elsewhere.
func (h *CalibrationHandler) samples(w http.ResponseWriter, r *http.Request, role posture.Role) {
	var req samplesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Poses) == 0 {
		writeError(w, http.StatusBadRequest, "At least one pose is required")
		return
	}

	rec, err := h.app.CalibrateFromPoses(role, req.Poses)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

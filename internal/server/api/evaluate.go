package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/shrimpwatch/internal/app"
	"github.com/ayusman/shrimpwatch/internal/detector"
	"github.com/ayusman/shrimpwatch/internal/posture"
)

// EvaluateHandler serves POST /api/evaluate: a stateless engine call that
// records nothing.
type EvaluateHandler struct {
	app *app.App
}

// NewEvaluateHandler creates a new EvaluateHandler.
func NewEvaluateHandler(a *app.App) *EvaluateHandler {
	return &EvaluateHandler{app: a}
}

type evaluateRequest struct {
	Front *detector.Pose `json:"front"`
	Side  *detector.Pose `json:"side"`

	// Calibration overrides the stored one when present.
	Calibration *posture.Calibration `json:"calibration"`
}

// ServeHTTP implements the http.Handler interface.
func (h *EvaluateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req evaluateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	cal := req.Calibration
	if cal == nil {
		stored, err := h.app.Calibration()
		if err != nil && !errors.Is(err, app.ErrNotCalibrated) {
			writeAppError(w, err)
			return
		}
		cal = stored
	}

	settings, err := h.app.Settings()
	if err != nil {
		writeAppError(w, err)
		return
	}

	engine := h.app.Engine().WithThresholds(settings.GoodThreshold, settings.PoorThreshold)
	res := engine.Evaluate(posture.PoseData{Front: req.Front, Side: req.Side}, cal)
	writeJSON(w, http.StatusOK, res)
}

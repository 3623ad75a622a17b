package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/shrimpwatch/internal/plugin"
	"github.com/ayusman/shrimpwatch/internal/posture"
	"github.com/ayusman/shrimpwatch/internal/session"
	"github.com/ayusman/shrimpwatch/internal/store"
)

// Check captures one pose per calibrated role, scores it and records the
// outcome. Without a calibration the result is not_calibrated and nothing is
// stored. It returns ErrNoCamera when no calibrated role has a camera.
func (a *App) Check(ctx context.Context) (posture.Result, error) {
	res, err := a.check(ctx)
	if err != nil {
		return res, err
	}
	a.publish(res)
	return res, nil
}

func (a *App) check(ctx context.Context) (posture.Result, error) {
	a.checkMu.Lock()
	defer a.checkMu.Unlock()

	sw := a.scope.Timer("check_latency").Start()
	defer sw.Stop()

	settings, err := a.Settings()
	if err != nil {
		return posture.Result{}, fmt.Errorf("load settings: %w", err)
	}
	engine := a.engine.WithThresholds(settings.GoodThreshold, settings.PoorThreshold)

	cal, err := a.Calibration()
	if errors.Is(err, ErrNotCalibrated) {
		return engine.Evaluate(posture.PoseData{}, nil), nil
	}
	if err != nil {
		return posture.Result{}, err
	}

	data, err := a.captureAll(cal, settings)
	if err != nil {
		return posture.Result{}, err
	}

	res := engine.Evaluate(data, cal)
	if err := a.record(ctx, res, settings); err != nil {
		return res, err
	}
	return res, nil
}

// captureAll grabs a pose from every role that has both a baseline and a
// camera. Capture errors leave that role empty.
func (a *App) captureAll(cal *posture.Calibration, settings store.Settings) (posture.PoseData, error) {
	var data posture.PoseData
	attached := 0

	for _, role := range posture.Roles {
		if cal.Baseline(role) == nil {
			continue
		}
		cam, err := a.camera(role, settings)
		if errors.Is(err, ErrNoCamera) {
			continue
		}
		attached++
		if err != nil {
			log.WithField("role", role).Warnf("Camera unavailable: %v", err)
			continue
		}

		pose, err := a.capturePose(cam)
		if err != nil {
			log.WithField("role", role).Warnf("Error capturing pose: %v", err)
			continue
		}
		switch role {
		case posture.RoleFront:
			data.Front = pose
		case posture.RoleSide:
			data.Side = pose
		}
	}

	if attached == 0 {
		return data, ErrNoCamera
	}
	return data, nil
}

// record stores the check and, for scored results, advances the session,
// sends alerts and updates the daily summary.
func (a *App) record(ctx context.Context, res posture.Result, settings store.Settings) error {
	if _, err := a.store.Checks().Record(res); err != nil {
		return fmt.Errorf("record check: %w", err)
	}
	a.scope.Tagged(map[string]string{"status": string(res.Status)}).Counter("checks").Inc(1)

	fields := log.Fields{"status": res.Status}
	if res.Score == nil {
		log.WithFields(fields).Info("Posture check")
		return nil
	}
	fields["score"] = *res.Score
	log.WithFields(fields).Info("Posture check")
	a.scope.Gauge("score").Update(float64(*res.Score))

	st, err := a.store.Session().Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	out := session.Advance(st, res, session.Policy{
		AlertAfter:       settings.ConsecutivePoorBeforeAlert,
		NotifyOnPoor:     settings.NotifyOnPoor,
		NotifyOnRecovery: settings.NotifyOnRecovery,
	}, res.Timestamp)
	if err := a.store.Session().Save(out.State); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	update := store.SummaryUpdate{
		Score:      res.Score,
		Status:     res.Status,
		AlertsSent: a.dispatch(ctx, settings.AlertPlugin, out.Events),
	}
	if out.Recovered {
		update.SelfCorrections = 1
	}
	if res.Status != posture.StatusPoor {
		update.GoodStreakMinutes = int(out.GoodStreak.Minutes())
	}
	if _, err := a.store.Summaries().Record(res.Timestamp, update); err != nil {
		return fmt.Errorf("record summary: %w", err)
	}
	return nil
}

// dispatch sends events to the alert plugin and returns how many poor
// posture alerts were delivered.
func (a *App) dispatch(ctx context.Context, pluginName string, events []session.Event) int {
	if len(events) == 0 {
		return 0
	}
	if a.notifier == nil || pluginName == "" {
		log.Debugf("No alert plugin configured, dropping %d events", len(events))
		return 0
	}

	sent := 0
	for _, ev := range events {
		title, message := a.messages.Compose(ev)
		err := a.notifier.Notify(ctx, pluginName, &plugin.Request{
			Event:   string(ev.Kind),
			Score:   ev.Score,
			Status:  string(ev.Status),
			Title:   title,
			Message: message,
		})
		if err != nil {
			log.WithFields(log.Fields{
				"plugin": pluginName,
				"event":  ev.Kind,
			}).Warnf("Alert failed: %v", err)
			continue
		}
		if ev.Kind == session.EventPoorPosture {
			sent++
			a.scope.Counter("alerts").Inc(1)
		}
	}
	return sent
}

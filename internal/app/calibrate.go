package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/shrimpwatch/internal/detector"
	"github.com/ayusman/shrimpwatch/internal/posture"
	"github.com/ayusman/shrimpwatch/internal/store"
)

// Calibrate samples frames from the camera of role, interval apart, and
// stores the resulting baseline. Zero values use the configured defaults.
func (a *App) Calibrate(ctx context.Context, role posture.Role, frames int, interval time.Duration) (*store.CalibrationRecord, error) {
	if frames <= 0 {
		frames = a.config.CalibrationFrames
	}
	if interval <= 0 {
		interval = a.config.CalibrationInterval
	}

	cam, err := a.Camera(role)
	if err != nil {
		return nil, err
	}

	poses := make([]*detector.Pose, 0, frames)
	for i := 0; i < frames; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interval):
			}
		}

		pose, err := a.capturePose(cam)
		if err != nil {
			log.WithFields(log.Fields{"role": role, "frame": i}).Warnf("Calibration capture failed: %v", err)
			continue
		}
		poses = append(poses, pose)
	}

	return a.CalibrateFromPoses(role, poses)
}

// CalibrateFromPoses builds and stores the baseline of role from poses.
// Poses that yield no metrics are skipped. The first calibration ever stored
// turns monitoring on.
func (a *App) CalibrateFromPoses(role posture.Role, poses []*detector.Pose) (*store.CalibrationRecord, error) {
	bags := make([]posture.Bag, 0, len(poses))
	for _, pose := range poses {
		if bag := a.engine.Extract(role, pose); bag != nil {
			bags = append(bags, bag)
		}
	}

	baseline := posture.BuildBaseline(bags)
	if baseline == nil {
		return nil, fmt.Errorf("%s: no usable pose in %d samples: %w", role, len(poses), ErrCalibrationFailed)
	}

	existing, err := a.store.Calibrations().List()
	if err != nil {
		return nil, err
	}

	rec, err := a.store.Calibrations().Save(role, baseline, a.now())
	if err != nil {
		return nil, fmt.Errorf("save calibration: %w", err)
	}
	a.scope.Tagged(map[string]string{"role": string(role)}).Counter("calibrations").Inc(1)

	log.WithFields(log.Fields{
		"role":    role,
		"samples": baseline.Samples,
		"of":      len(poses),
		"version": rec.Version,
	}).Info("Calibration saved")

	if len(existing) == 0 {
		settings, err := a.Settings()
		if err != nil {
			return rec, err
		}
		if !settings.MonitoringEnabled {
			settings.MonitoringEnabled = true
			if err := a.store.Settings().Save(settings); err != nil {
				return rec, err
			}
			log.Info("Monitoring enabled after first calibration")
		}
	}
	return rec, nil
}

// Package app ties cameras, the pose detector, the posture engine, storage
// and alert plugins together into the posture monitor.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/ayusman/shrimpwatch/internal/capture"
	"github.com/ayusman/shrimpwatch/internal/detector"
	"github.com/ayusman/shrimpwatch/internal/plugin"
	"github.com/ayusman/shrimpwatch/internal/posture"
	"github.com/ayusman/shrimpwatch/internal/session"
	"github.com/ayusman/shrimpwatch/internal/store"
)

// Calibration defaults.
const (
	DefaultCalibrationFrames   = 5
	DefaultCalibrationInterval = 500 * time.Millisecond
)

var (
	// ErrNotCalibrated is returned when an operation needs a stored calibration.
	ErrNotCalibrated = errors.New("not calibrated")
	// ErrNoCamera is returned when no camera device is assigned to a role.
	ErrNoCamera = errors.New("no camera assigned")
	// ErrCalibrationFailed is returned when no usable sample was captured.
	ErrCalibrationFailed = errors.New("calibration failed")
)

// Notifier delivers an alert to a named plugin. *plugin.Notifier implements it.
type Notifier interface {
	Notify(ctx context.Context, name string, req *plugin.Request) error
}

// CameraFactory opens a camera for a device at the requested size.
type CameraFactory func(deviceID, width, height int) capture.Camera

// Config holds the collaborators of an App. Store and Detector are required.
type Config struct {
	Store    *store.Store
	Detector detector.Detector

	// Engine defaults to posture.DefaultConfig with the App clock.
	Engine *posture.Engine
	// NewCamera defaults to capture.NewCamera.
	NewCamera CameraFactory
	Notifier  Notifier
	Messages  *session.Messages
	// Scope defaults to tally.NoopScope.
	Scope tally.Scope
	Clock func() time.Time

	CalibrationFrames   int
	CalibrationInterval time.Duration
}

type cameraSlot struct {
	camera   capture.Camera
	deviceID int
	width    int
	height   int
}

// App is the posture monitor.
type App struct {
	config    Config
	store     *store.Store
	detector  detector.Detector
	engine    *posture.Engine
	newCamera CameraFactory
	notifier  Notifier
	messages  *session.Messages
	scope     tally.Scope
	now       func() time.Time

	checkMu sync.Mutex

	camMu   sync.Mutex
	cameras map[posture.Role]*cameraSlot

	mu        sync.RWMutex
	stopCh    chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	recheck   *time.Timer
	recheckWG sync.WaitGroup
	listeners []func(posture.Result)
}

// New creates an App from config, filling in defaults.
func New(config Config) *App {
	a := &App{
		config:    config,
		store:     config.Store,
		detector:  config.Detector,
		engine:    config.Engine,
		newCamera: config.NewCamera,
		notifier:  config.Notifier,
		messages:  config.Messages,
		scope:     config.Scope,
		now:       config.Clock,
		cameras:   make(map[posture.Role]*cameraSlot),
	}

	if a.now == nil {
		a.now = time.Now
	}
	if a.engine == nil {
		a.engine = posture.NewEngine(posture.DefaultConfig(), posture.WithClock(a.now))
	}
	if a.newCamera == nil {
		a.newCamera = capture.NewCamera
	}
	if a.messages == nil {
		a.messages = session.NewMessages(rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	if a.scope == nil {
		a.scope = tally.NoopScope
	}
	if a.config.CalibrationFrames <= 0 {
		a.config.CalibrationFrames = DefaultCalibrationFrames
	}
	if a.config.CalibrationInterval <= 0 {
		a.config.CalibrationInterval = DefaultCalibrationInterval
	}

	return a
}

// Engine returns the posture engine.
func (a *App) Engine() *posture.Engine {
	return a.engine
}

// Store returns the backing store.
func (a *App) Store() *store.Store {
	return a.store
}

// Settings returns the stored user settings.
func (a *App) Settings() (store.Settings, error) {
	return a.store.Settings().Load()
}

// UpdateSettings validates and stores settings. Cameras whose device or size
// changed are reopened on next use.
func (a *App) UpdateSettings(settings store.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if settings.MonitoringEnabled {
		if _, err := a.Calibration(); err != nil {
			return err
		}
	}
	if err := a.store.Settings().Save(settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	log.WithFields(log.Fields{
		"interval":   settings.CheckIntervalSeconds,
		"monitoring": settings.MonitoringEnabled,
	}).Info("Settings updated")
	return nil
}

// SetMonitoring turns periodic checks on or off. Turning them on requires a
// calibration.
func (a *App) SetMonitoring(enabled bool) error {
	settings, err := a.Settings()
	if err != nil {
		return err
	}
	settings.MonitoringEnabled = enabled
	return a.UpdateSettings(settings)
}

// Calibration returns the stored calibration, or ErrNotCalibrated.
func (a *App) Calibration() (*posture.Calibration, error) {
	cal, err := a.store.Calibrations().Load()
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotCalibrated
	}
	if err != nil {
		return nil, fmt.Errorf("load calibration: %w", err)
	}
	return cal, nil
}

// ClearCalibration deletes every stored baseline and turns monitoring off.
func (a *App) ClearCalibration() error {
	if err := a.store.Calibrations().DeleteAll(); err != nil {
		return err
	}
	settings, err := a.Settings()
	if err != nil {
		return err
	}
	if !settings.MonitoringEnabled {
		return nil
	}
	settings.MonitoringEnabled = false
	return a.store.Settings().Save(settings)
}

// ClearData wipes every table, as for a fresh install.
func (a *App) ClearData() error {
	if err := a.store.Reset(); err != nil {
		return err
	}
	log.Info("All data cleared")
	return nil
}

// OnResult registers fn to receive every evaluation result.
func (a *App) OnResult(fn func(posture.Result)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *App) publish(res posture.Result) {
	a.mu.RLock()
	listeners := append([]func(posture.Result){}, a.listeners...)
	a.mu.RUnlock()

	for _, fn := range listeners {
		fn(res)
	}
}

func deviceFor(role posture.Role, s store.Settings) int {
	switch role {
	case posture.RoleFront:
		return s.FrontCamera
	case posture.RoleSide:
		return s.SideCamera
	}
	return store.NoCamera
}

// Camera returns the open camera assigned to role in the stored settings.
func (a *App) Camera(role posture.Role) (capture.Camera, error) {
	settings, err := a.Settings()
	if err != nil {
		return nil, err
	}
	return a.camera(role, settings)
}

func (a *App) camera(role posture.Role, s store.Settings) (capture.Camera, error) {
	device := deviceFor(role, s)
	if device == store.NoCamera {
		return nil, fmt.Errorf("%s: %w", role, ErrNoCamera)
	}

	a.camMu.Lock()
	defer a.camMu.Unlock()

	slot := a.cameras[role]
	if slot != nil && (slot.deviceID != device || slot.width != s.CaptureWidth || slot.height != s.CaptureHeight) {
		if err := slot.camera.Close(); err != nil {
			log.Warnf("Error closing %s camera: %v", role, err)
		}
		slot = nil
	}
	if slot == nil {
		slot = &cameraSlot{
			camera:   a.newCamera(device, s.CaptureWidth, s.CaptureHeight),
			deviceID: device,
			width:    s.CaptureWidth,
			height:   s.CaptureHeight,
		}
		a.cameras[role] = slot
	}

	if !slot.camera.IsOpen() {
		if err := slot.camera.Open(); err != nil {
			return nil, fmt.Errorf("%s camera: %w", role, err)
		}
	}
	return slot.camera, nil
}

// capturePose reads one frame and runs the detector on it. A nil pose with
// a nil error means nobody was in view.
func (a *App) capturePose(cam capture.Camera) (*detector.Pose, error) {
	frame, err := cam.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	return a.detector.Detect(frame)
}

// Close stops monitoring and releases cameras and the detector.
func (a *App) Close() error {
	a.Stop()

	a.camMu.Lock()
	for role, slot := range a.cameras {
		if err := slot.camera.Close(); err != nil {
			log.Warnf("Error closing %s camera: %v", role, err)
		}
		delete(a.cameras, role)
	}
	a.camMu.Unlock()

	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			return fmt.Errorf("close detector: %w", err)
		}
	}
	return nil
}

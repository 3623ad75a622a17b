package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/shrimpwatch/internal/session"
	"github.com/ayusman/shrimpwatch/internal/store"
)

// recheckTimeout bounds a scheduled one-shot check.
const recheckTimeout = 30 * time.Second

// Start launches the monitoring loop. Each tick runs a check when monitoring
// is enabled in the settings and the session is not snoozed. The interval is
// re-read from the settings after every tick.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	settings, err := a.Settings()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopCh = make(chan struct{})
	a.cancel = cancel

	a.wg.Add(1)
	go a.runMonitor(ctx, a.stopCh, interval(settings))

	log.WithField("interval", interval(settings)).Info("Monitoring loop started")
	return nil
}

// Stop halts the monitoring loop and any pending recheck, and waits for a
// recheck that is already running.
func (a *App) Stop() {
	a.mu.Lock()
	wasRunning := a.stopCh != nil
	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
		a.cancel()
		a.cancel = nil
	}
	if a.recheck != nil {
		a.recheck.Stop()
		a.recheck = nil
	}
	a.mu.Unlock()

	a.wg.Wait()
	a.recheckWG.Wait()
	if wasRunning {
		log.Info("Monitoring loop stopped")
	}
}

// Running reports whether the monitoring loop is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

func interval(s store.Settings) time.Duration {
	secs := s.CheckIntervalSeconds
	if secs < store.MinCheckIntervalSeconds {
		secs = store.MinCheckIntervalSeconds
	}
	return time.Duration(secs) * time.Second
}

func (a *App) runMonitor(ctx context.Context, stopCh chan struct{}, every time.Duration) {
	defer a.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if next := a.tick(ctx); next > 0 && next != every {
				every = next
				ticker.Reset(every)
				log.WithField("interval", every).Debug("Check interval changed")
			}
		}
	}
}

// tick runs one scheduled check if allowed and returns the interval to use
// next, or 0 when the settings could not be read.
func (a *App) tick(ctx context.Context) time.Duration {
	settings, err := a.Settings()
	if err != nil {
		log.Errorf("Error loading settings: %v", err)
		return 0
	}
	if !settings.MonitoringEnabled {
		return interval(settings)
	}

	st, err := a.store.Session().Load()
	if err != nil {
		log.Errorf("Error loading session: %v", err)
		return interval(settings)
	}
	if st.Snoozed(a.now()) {
		log.WithField("until", st.SnoozedUntil).Debug("Snoozed, skipping check")
		return interval(settings)
	}

	if _, err := a.Check(ctx); err != nil {
		log.Warnf("Scheduled check failed: %v", err)
	}
	return interval(settings)
}

// Snooze pauses scheduled checks for d. A non-positive d ends a snooze.
func (a *App) Snooze(d time.Duration) (time.Time, error) {
	st, err := a.store.Session().Load()
	if err != nil {
		return time.Time{}, err
	}

	st.SnoozedUntil = time.Time{}
	if d > 0 {
		st.SnoozedUntil = a.now().Add(d)
	}
	if err := a.store.Session().Save(st); err != nil {
		return time.Time{}, err
	}

	if d > 0 {
		log.WithField("until", st.SnoozedUntil).Info("Monitoring snoozed")
	} else {
		log.Info("Snooze cleared")
	}
	return st.SnoozedUntil, nil
}

// Recheck schedules a single check after d, replacing any pending one, and
// ends a snooze. It is used when the user says they fixed their posture.
func (a *App) Recheck(d time.Duration) error {
	if _, err := a.Calibration(); err != nil {
		return err
	}
	if _, err := a.Snooze(0); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.recheck != nil {
		a.recheck.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(d, func() { a.runRecheck(timer) })
	a.recheck = timer
	log.WithField("after", d).Info("Recheck scheduled")
	return nil
}

// runRecheck runs the check scheduled by timer unless it was replaced or
// stopped in the meantime.
func (a *App) runRecheck(timer *time.Timer) {
	a.mu.Lock()
	if a.recheck != timer {
		a.mu.Unlock()
		return
	}
	a.recheck = nil
	a.recheckWG.Add(1)
	a.mu.Unlock()
	defer a.recheckWG.Done()

	ctx, cancel := context.WithTimeout(context.Background(), recheckTimeout)
	defer cancel()
	if _, err := a.Check(ctx); err != nil {
		log.Warnf("Recheck failed: %v", err)
	}
}

// Status is a snapshot of the monitor for the tray and the API.
type Status struct {
	Running              bool          `json:"running"`
	MonitoringEnabled    bool          `json:"monitoringEnabled"`
	Calibrated           bool          `json:"calibrated"`
	CalibratedRoles      []string      `json:"calibratedRoles"`
	CheckIntervalSeconds int           `json:"checkIntervalSeconds"`
	Snoozed              bool          `json:"snoozed"`
	Session              session.State `json:"session"`
}

// Status returns the current monitor state.
func (a *App) Status() (*Status, error) {
	settings, err := a.Settings()
	if err != nil {
		return nil, err
	}
	st, err := a.store.Session().Load()
	if err != nil {
		return nil, err
	}
	records, err := a.store.Calibrations().List()
	if err != nil {
		return nil, err
	}

	roles := make([]string, 0, len(records))
	for _, rec := range records {
		roles = append(roles, string(rec.Role))
	}

	return &Status{
		Running:              a.Running(),
		MonitoringEnabled:    settings.MonitoringEnabled,
		Calibrated:           len(records) > 0,
		CalibratedRoles:      roles,
		CheckIntervalSeconds: settings.CheckIntervalSeconds,
		Snoozed:              st.Snoozed(a.now()),
		Session:              st,
	}, nil
}

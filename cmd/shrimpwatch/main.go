package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/ayusman/shrimpwatch/internal/app"
	"github.com/ayusman/shrimpwatch/internal/capture"
	"github.com/ayusman/shrimpwatch/internal/config"
	"github.com/ayusman/shrimpwatch/internal/detector"
	"github.com/ayusman/shrimpwatch/internal/plugin"
	"github.com/ayusman/shrimpwatch/internal/posture"
	"github.com/ayusman/shrimpwatch/internal/server"
	"github.com/ayusman/shrimpwatch/internal/session"
	"github.com/ayusman/shrimpwatch/internal/store"
	"github.com/ayusman/shrimpwatch/internal/tray"
)

// pluginTimeout bounds a single alert plugin run.
const pluginTimeout = 10 * time.Second

func initLog(level string) {
	logLevel, err := log.ParseLevel(level)
	if err != nil {
		log.SetLevel(log.InfoLevel)
	} else {
		log.SetLevel(logLevel)
	}

	log.SetOutput(os.Stdout)

	log.SetFormatter(&prefixed.TextFormatter{
		ForceFormatting: true,
		FullTimestamp:   true,
	})
}

func main() {
	var (
		configFile string
		headless   bool
	)
	flag.StringVar(&configFile, "config", "", "[optional] path of configuration file")
	flag.BoolVar(&headless, "headless", false, "run without the system tray")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	initLog(cfg.LogLevel)

	initLogger := log.WithField("prefix", "init")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()
	initLogger.WithField("path", st.Path()).Info("Opened store")

	if err := seedSettings(st, cfg); err != nil {
		log.Fatalf("Failed to seed settings: %v", err)
	}

	d := newDetector(cfg)

	manager := plugin.NewManager(cfg.PluginDir)
	if err := manager.Discover(); err != nil {
		log.Warnf("Plugin discovery failed: %v", err)
	}
	initLogger.Infof("Discovered %d alert plugins in %s", len(manager.List()), manager.PluginDir())

	scope, closer := tally.NewRootScope(tally.ScopeOptions{
		Prefix:   "shrimpwatch",
		Reporter: tally.NullStatsReporter,
	}, time.Second)
	defer closer.Close()

	monitor := app.New(app.Config{
		Store:               st,
		Detector:            d,
		NewCamera:           capture.NewCamera,
		Notifier:            plugin.NewNotifier(manager, plugin.NewExecutor(pluginTimeout)),
		Messages:            session.NewMessages(rand.New(rand.NewSource(time.Now().UnixNano()))),
		Scope:               scope,
		CalibrationFrames:   cfg.CalibrationFrames,
		CalibrationInterval: cfg.CalibrationInterval,
	})
	if err := monitor.Start(); err != nil {
		log.Fatalf("Failed to start monitoring: %v", err)
	}

	webDir := cfg.WebDir
	if info, err := os.Stat(webDir); err != nil || !info.IsDir() {
		webDir = findWebDir()
	}
	if webDir != "" {
		initLogger.Infof("Serving static files from: %s", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		App:       monitor,
	})

	go func() {
		if err := srv.ListenAndServe(cfg.ServerAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	shutdown := func() {
		log.Info("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("Server shutdown: %v", err)
		}
		if err := monitor.Close(); err != nil {
			log.Errorf("Monitor shutdown: %v", err)
		}
	}

	if headless {
		c := make(chan os.Signal, 2)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		shutdown()
		return
	}

	runTray(monitor, "http://"+cfg.ServerAddr)
	shutdown()
}

// seedSettings stores the camera assignment from the config file on first
// run; settings already saved by the user win.
func seedSettings(st *store.Store, cfg *config.Config) error {
	defaults := store.DefaultSettings()
	defaults.FrontCamera = cfg.FrontCamera
	defaults.SideCamera = cfg.SideCamera
	defaults.CaptureWidth = cfg.CameraWidth
	defaults.CaptureHeight = cfg.CameraHeight

	settings, err := st.Settings().LoadWithDefaults(defaults)
	if err != nil {
		return err
	}
	return st.Settings().Save(settings)
}

// newDetector starts the MoveNet detector, falling back to a mock that
// never sees anyone.
func newDetector(cfg *config.Config) detector.Detector {
	dcfg := detector.DefaultConfig()
	dcfg.ScriptPath = cfg.DetectorScript

	d, err := detector.NewMoveNetDetector(dcfg)
	if err != nil {
		log.Warnf("MoveNet not available (%v), using mock detector", err)
		return detector.NewMockDetector()
	}
	log.Info("Using MoveNet pose detection")
	return d
}

// runTray blocks running the system tray until the user quits.
func runTray(monitor *app.App, settingsURL string) {
	t := tray.New()

	refresh := func() {
		status, err := monitor.Status()
		if err != nil {
			log.Warnf("Tray status: %v", err)
			return
		}
		t.Update(tray.State{
			MonitoringEnabled: status.MonitoringEnabled,
			Calibrated:        status.Calibrated,
			LastScore:         status.Session.LastScore,
			LastStatus:        status.Session.LastStatus,
			LastCheckAt:       status.Session.LastCheckAt,
			SnoozedUntil:      status.Session.SnoozedUntil,
		})
	}

	monitor.OnResult(func(posture.Result) { refresh() })

	t.OnToggle(func(enabled bool) {
		if err := monitor.SetMonitoring(enabled); err != nil {
			log.Warnf("Toggle monitoring: %v", err)
		}
		refresh()
	})
	t.OnCheckNow(func() {
		go func() {
			if _, err := monitor.Check(context.Background()); err != nil {
				log.Warnf("Check failed: %v", err)
			}
		}()
	})
	t.OnSnooze(func() {
		if _, err := monitor.Snooze(5 * time.Minute); err != nil {
			log.Warnf("Snooze failed: %v", err)
		}
		refresh()
	})
	t.OnSettings(func() {
		if err := openBrowser(settingsURL); err != nil {
			log.Warnf("Open settings: %v", err)
		}
	})

	refresh()
	t.Run()
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.shrimpwatch/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".shrimpwatch", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

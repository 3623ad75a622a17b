// Package config loads process configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SHRIMPWATCH_SERVER_ADDR.
const EnvPrefix = "shrimpwatch"

// Config is the process configuration. User-facing settings such as the
// check interval live in the store, not here.
type Config struct {
	ServerAddr string
	DataDir    string
	WebDir     string
	PluginDir  string
	LogLevel   string

	// Camera device ids and resolution seed the stored settings on first run.
	FrontCamera  int
	SideCamera   int
	CameraWidth  int
	CameraHeight int

	CalibrationFrames   int
	CalibrationInterval time.Duration

	// DetectorScript overrides discovery of the MoveNet service script.
	DetectorScript string
}

// DBPath is the sqlite database location inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "shrimpwatch.db")
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".shrimpwatch")

	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("data.dir", dataDir)
	v.SetDefault("web.dir", "web")
	v.SetDefault("plugin.dir", filepath.Join(dataDir, "plugins"))
	v.SetDefault("log.level", "info")
	v.SetDefault("camera.front", -1)
	v.SetDefault("camera.side", -1)
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("calibration.frames", 5)
	v.SetDefault("calibration.interval", "500ms")
	v.SetDefault("detector.script", "")
}

// Load reads file (or shrimpwatch.yaml from the working directory and
// ~/.shrimpwatch when file is empty) and applies environment overrides.
// A missing config file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("shrimpwatch")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".shrimpwatch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		log.Debug("No config file. Read config from env.")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		ServerAddr:          v.GetString("server.addr"),
		DataDir:             v.GetString("data.dir"),
		WebDir:              v.GetString("web.dir"),
		PluginDir:           v.GetString("plugin.dir"),
		LogLevel:            v.GetString("log.level"),
		FrontCamera:         v.GetInt("camera.front"),
		SideCamera:          v.GetInt("camera.side"),
		CameraWidth:         v.GetInt("camera.width"),
		CameraHeight:        v.GetInt("camera.height"),
		CalibrationFrames:   v.GetInt("calibration.frames"),
		CalibrationInterval: v.GetDuration("calibration.interval"),
		DetectorScript:      v.GetString("detector.script"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside startup.
func (c *Config) Validate() error {
	if c.ServerAddr == "" {
		return errors.New("server.addr is required")
	}
	if c.DataDir == "" {
		return errors.New("data.dir is required")
	}
	if c.CameraWidth <= 0 || c.CameraHeight <= 0 {
		return fmt.Errorf("invalid camera size %dx%d", c.CameraWidth, c.CameraHeight)
	}
	if c.CalibrationFrames < 1 {
		return fmt.Errorf("calibration.frames must be at least 1, got %d", c.CalibrationFrames)
	}
	if c.CalibrationInterval < 0 {
		return fmt.Errorf("calibration.interval must not be negative, got %s", c.CalibrationInterval)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

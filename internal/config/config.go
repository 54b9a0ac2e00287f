package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultMaxWidth       = 50
	defaultScrollInterval = 100 * time.Millisecond
	defaultCoverPath      = "~/.cache/mpris-cover.png"
	defaultRefreshSignal  = 5
	defaultSignalProcess  = "waybar"

	minMaxWidth      = 4 // separator plus one codepoint
	maxRefreshSignal = 30
)

// fileConfig mirrors the optional TOML config file
type fileConfig struct {
	Width          int    `toml:"width"`
	ScrollInterval string `toml:"scroll_interval"`
	CoverPath      string `toml:"cover_path"`
	Signal         int    `toml:"signal"`
	SignalProcess  string `toml:"signal_process"`
	Debug          bool   `toml:"debug"`
}

// AppConfig holds application configuration
type AppConfig struct {
	logger         *zap.Logger
	maxWidth       int
	scrollInterval time.Duration
	coverPath      string
	refreshSignal  int
	signalProcess  string
	debug          bool
}

// NewAppConfig creates a new application configuration instance.
// Values come from defaults, then the TOML file, then MPRISBAR_* environment
// variables. Invalid values are logged and replaced with defaults.
func NewAppConfig(logger *zap.Logger, level zap.AtomicLevel) *AppConfig {
	c := &AppConfig{
		logger:         logger,
		maxWidth:       defaultMaxWidth,
		scrollInterval: defaultScrollInterval,
		coverPath:      defaultCoverPath,
		refreshSignal:  defaultRefreshSignal,
		signalProcess:  defaultSignalProcess,
	}

	c.loadFile(configFilePath())
	c.loadEnv()
	c.validate()
	c.coverPath = expandPath(c.coverPath)

	if c.debug {
		level.SetLevel(zapcore.DebugLevel)
	}

	logger.Info("Configuration loaded",
		zap.Int("maxWidth", c.maxWidth),
		zap.Duration("scrollInterval", c.scrollInterval),
		zap.String("coverPath", c.coverPath),
		zap.Int("refreshSignal", c.refreshSignal),
		zap.String("signalProcess", c.signalProcess),
		zap.Bool("debug", c.debug))

	return c
}

// configFilePath returns $MPRISBAR_CONFIG or the XDG default location
func configFilePath() string {
	if p := os.Getenv("MPRISBAR_CONFIG"); p != "" {
		return expandPath(p)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mprisbar", "config.toml")
}

func (c *AppConfig) loadFile(path string) {
	if path == "" {
		return
	}

	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("No config file, using defaults", zap.String("path", path))
		} else {
			c.logger.Warn("Failed to parse config file, using defaults",
				zap.String("path", path), zap.Error(err))
		}
		return
	}

	for _, key := range md.Undecoded() {
		c.logger.Warn("Unknown config key", zap.String("key", key.String()))
	}

	if md.IsDefined("width") {
		c.maxWidth = fc.Width
	}
	if md.IsDefined("scroll_interval") {
		c.setInterval(fc.ScrollInterval, "scroll_interval")
	}
	if md.IsDefined("cover_path") {
		c.coverPath = fc.CoverPath
	}
	if md.IsDefined("signal") {
		c.refreshSignal = fc.Signal
	}
	if md.IsDefined("signal_process") {
		c.signalProcess = fc.SignalProcess
	}
	if md.IsDefined("debug") {
		c.debug = fc.Debug
	}

	c.logger.Info("Config file loaded", zap.String("path", path))
}

func (c *AppConfig) loadEnv() {
	if v := os.Getenv("MPRISBAR_WIDTH"); v != "" {
		c.setInt(&c.maxWidth, v, "MPRISBAR_WIDTH")
	}
	if v := os.Getenv("MPRISBAR_SCROLL_INTERVAL"); v != "" {
		c.setInterval(v, "MPRISBAR_SCROLL_INTERVAL")
	}
	if v := os.Getenv("MPRISBAR_COVER_PATH"); v != "" {
		c.coverPath = v
	}
	if v := os.Getenv("MPRISBAR_SIGNAL"); v != "" {
		c.setInt(&c.refreshSignal, v, "MPRISBAR_SIGNAL")
	}
	if v := os.Getenv("MPRISBAR_SIGNAL_PROCESS"); v != "" {
		c.signalProcess = v
	}
	if v := os.Getenv("MPRISBAR_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.logger.Warn("Invalid boolean, ignoring", zap.String("key", "MPRISBAR_DEBUG"), zap.String("value", v))
		} else {
			c.debug = b
		}
	}
}

func (c *AppConfig) setInt(dst *int, v, key string) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		c.logger.Warn("Invalid integer, ignoring", zap.String("key", key), zap.String("value", v))
		return
	}
	*dst = n
}

func (c *AppConfig) setInterval(v, key string) {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		c.logger.Warn("Invalid duration, ignoring", zap.String("key", key), zap.String("value", v))
		return
	}
	c.scrollInterval = d
}

func (c *AppConfig) validate() {
	if c.maxWidth < minMaxWidth {
		c.logger.Warn("Width too small, using default",
			zap.Int("width", c.maxWidth), zap.Int("default", defaultMaxWidth))
		c.maxWidth = defaultMaxWidth
	}
	if c.scrollInterval <= 0 {
		c.logger.Warn("Scroll interval must be positive, using default",
			zap.Duration("interval", c.scrollInterval))
		c.scrollInterval = defaultScrollInterval
	}
	if c.refreshSignal < 0 || c.refreshSignal > maxRefreshSignal {
		c.logger.Warn("Refresh signal out of range, using default",
			zap.Int("signal", c.refreshSignal))
		c.refreshSignal = defaultRefreshSignal
	}
	if c.coverPath == "" {
		c.coverPath = defaultCoverPath
	}
	if c.signalProcess == "" {
		c.signalProcess = defaultSignalProcess
	}
}

// expandPath expands environment variables and a leading ~
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if len(p) > 0 && p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return p
}

// GetMaxWidth returns the display width in codepoints
func (c *AppConfig) GetMaxWidth() int {
	return c.maxWidth
}

// GetScrollInterval returns the scroll tick period
func (c *AppConfig) GetScrollInterval() time.Duration {
	return c.scrollInterval
}

// GetCoverPath returns the artwork cache symlink path
func (c *AppConfig) GetCoverPath() string {
	return c.coverPath
}

// GetRefreshSignal returns the realtime signal offset sent to the host
func (c *AppConfig) GetRefreshSignal() int {
	return c.refreshSignal
}

// GetSignalProcess returns the process name targeted by the refresh signal
func (c *AppConfig) GetSignalProcess() string {
	return c.signalProcess
}

// IsDebug reports whether debug logging was requested
func (c *AppConfig) IsDebug() bool {
	return c.debug
}

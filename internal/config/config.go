// Package config provides configuration management for ALLINHERE Studio.
// Values come from an optional TOML file overlaid by environment variables,
// with sensible defaults for everything.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
)

const (
	// Default values
	DefaultPort            = 8790
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "auto"
	DefaultDataDir         = ".allinhere"
	DefaultHistoryDepth    = 20
	DefaultPixelsPerSecond = 50
	DefaultPaymentProvider = "stripe"
	DefaultPayPalMode      = "sandbox"

	// Environment variable names
	EnvPort            = "STUDIO_PORT"
	EnvLogLevel        = "STUDIO_LOG_LEVEL"
	EnvLogFormat       = "STUDIO_LOG_FORMAT"
	EnvDataDir         = "STUDIO_DATA_DIR"
	EnvHistoryDepth    = "STUDIO_HISTORY_DEPTH"
	EnvCloudURL        = "STUDIO_CLOUD_URL"
	EnvCloudToken      = "STUDIO_CLOUD_TOKEN"
	EnvPaymentProvider = "STUDIO_PAYMENT_PROVIDER"
	EnvPixelsPerSecond = "STUDIO_PIXELS_PER_SECOND"
	EnvConfigFile      = "STUDIO_CONFIG"

	// Database filename
	DBFilename = "studio.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	LogFormat() string
	DataDir() string
	DBPath() string
	MediaDir() string
	ExportDir() string
	HistoryDepth() int
	PixelsPerSecond() float64
	CloudURL() string
	CloudToken() string
	CloudEnabled() bool
	Payment() PaymentConfig
	PlanLimits(plan entitlement.Plan) entitlement.PlanLimits
}

// PaymentConfig selects and configures the billing provider.
type PaymentConfig struct {
	Provider       string `toml:"provider"`
	PublishableKey string `toml:"publishable_key"`
	PayPalClientID string `toml:"paypal_client_id"`
	PayPalMode     string `toml:"paypal_mode"`
}

// fileConfig mirrors the TOML file layout. Every field is optional.
type fileConfig struct {
	Port            int                 `toml:"port"`
	LogLevel        string              `toml:"log_level"`
	LogFormat       string              `toml:"log_format"`
	DataDir         string              `toml:"data_dir"`
	HistoryDepth    int                 `toml:"history_depth"`
	PixelsPerSecond float64             `toml:"pixels_per_second"`
	Cloud           cloudFile           `toml:"cloud"`
	Payment         PaymentConfig       `toml:"payment"`
	Plans           map[string]planFile `toml:"plans"`
}

type cloudFile struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// planFile holds per-plan overrides; nil fields keep the built-in value.
type planFile struct {
	StorageGB     *float64 `toml:"storage_gb"`
	MaxProjects   *int     `toml:"max_projects"`
	MaxResolution *string  `toml:"max_resolution"`
	Watermark     *bool    `toml:"watermark"`
	Collaboration *bool    `toml:"collaboration"`
	ARFilters     *bool    `toml:"ar_filters"`
}

// EnvConfig holds the resolved configuration.
type EnvConfig struct {
	port            int
	logLevel        string
	logFormat       string
	dataDir         string
	historyDepth    int
	pixelsPerSecond float64
	cloudURL        string
	cloudToken      string
	payment         PaymentConfig
	plans           map[entitlement.Plan]entitlement.PlanLimits
}

// New creates an EnvConfig from defaults, the optional STUDIO_CONFIG file,
// and environment variable overrides, in that order.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:            DefaultPort,
		logLevel:        DefaultLogLevel,
		logFormat:       DefaultLogFormat,
		dataDir:         defaultDataDir(),
		historyDepth:    DefaultHistoryDepth,
		pixelsPerSecond: DefaultPixelsPerSecond,
		payment:         PaymentConfig{Provider: DefaultPaymentProvider, PayPalMode: DefaultPayPalMode},
		plans: map[entitlement.Plan]entitlement.PlanLimits{
			entitlement.PlanBasic: entitlement.DefaultLimits(entitlement.PlanBasic),
			entitlement.PlanPro:   entitlement.DefaultLimits(entitlement.PlanPro),
		},
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EnvConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("parse %s at line %d column %d: %w", path, row, col, err)
		}
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if fc.Port != 0 {
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.logFormat = fc.LogFormat
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.HistoryDepth != 0 {
		c.historyDepth = fc.HistoryDepth
	}
	if fc.PixelsPerSecond != 0 {
		c.pixelsPerSecond = fc.PixelsPerSecond
	}
	if fc.Cloud.URL != "" {
		c.cloudURL = fc.Cloud.URL
	}
	if fc.Cloud.Token != "" {
		c.cloudToken = fc.Cloud.Token
	}
	if fc.Payment.Provider != "" {
		c.payment.Provider = fc.Payment.Provider
	}
	if fc.Payment.PublishableKey != "" {
		c.payment.PublishableKey = fc.Payment.PublishableKey
	}
	if fc.Payment.PayPalClientID != "" {
		c.payment.PayPalClientID = fc.Payment.PayPalClientID
	}
	if fc.Payment.PayPalMode != "" {
		c.payment.PayPalMode = fc.Payment.PayPalMode
	}

	for name, pf := range fc.Plans {
		plan := entitlement.Plan(strings.ToUpper(name))
		limits, ok := c.plans[plan]
		if !ok {
			return fmt.Errorf("config file: unknown plan %q", name)
		}
		if err := pf.apply(&limits); err != nil {
			return fmt.Errorf("config file: plans.%s: %w", name, err)
		}
		c.plans[plan] = limits
	}
	return nil
}

func (pf planFile) apply(l *entitlement.PlanLimits) error {
	if pf.StorageGB != nil {
		if *pf.StorageGB <= 0 || math.IsNaN(*pf.StorageGB) || math.IsInf(*pf.StorageGB, 0) {
			return fmt.Errorf("storage_gb must be positive")
		}
		l.StorageBytes = int64(*pf.StorageGB * (1 << 30))
	}
	if pf.MaxProjects != nil {
		if *pf.MaxProjects < entitlement.Unlimited {
			return fmt.Errorf("max_projects must be -1 (unlimited) or non-negative")
		}
		l.MaxProjects = *pf.MaxProjects
	}
	if pf.MaxResolution != nil {
		res, ok := export.ParseResolution(*pf.MaxResolution)
		if !ok {
			return fmt.Errorf("unknown max_resolution %q", *pf.MaxResolution)
		}
		l.MaxResolution = res
	}
	if pf.Watermark != nil {
		l.Watermark = *pf.Watermark
	}
	if pf.Collaboration != nil {
		l.Collaboration = *pf.Collaboration
	}
	if pf.ARFilters != nil {
		l.ARFilters = *pf.ARFilters
	}
	return nil
}

func (c *EnvConfig) loadEnv() error {
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}
	if lf := os.Getenv(EnvLogFormat); lf != "" {
		c.logFormat = lf
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		c.dataDir = dd
	}
	if hd := os.Getenv(EnvHistoryDepth); hd != "" {
		depth, err := strconv.Atoi(hd)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHistoryDepth, err)
		}
		c.historyDepth = depth
	}
	if pps := os.Getenv(EnvPixelsPerSecond); pps != "" {
		v, err := strconv.ParseFloat(pps, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPixelsPerSecond, err)
		}
		c.pixelsPerSecond = v
	}
	if u := os.Getenv(EnvCloudURL); u != "" {
		c.cloudURL = u
	}
	if tok := os.Getenv(EnvCloudToken); tok != "" {
		c.cloudToken = tok
	}
	if pp := os.Getenv(EnvPaymentProvider); pp != "" {
		c.payment.Provider = pp
	}
	return nil
}

func (c *EnvConfig) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.port)
	}
	if c.historyDepth < 1 {
		return fmt.Errorf("invalid history depth %d: must be at least 1", c.historyDepth)
	}
	if !(c.pixelsPerSecond > 0) || math.IsInf(c.pixelsPerSecond, 0) {
		return fmt.Errorf("invalid pixels per second %v: must be positive", c.pixelsPerSecond)
	}
	switch strings.ToLower(c.logFormat) {
	case "auto", "json", "text":
	default:
		return fmt.Errorf("invalid log format %q: want auto, json or text", c.logFormat)
	}
	c.payment.Provider = strings.ToLower(c.payment.Provider)
	switch c.payment.Provider {
	case "stripe", "paypal":
	default:
		return fmt.Errorf("invalid payment provider %q: want stripe or paypal", c.payment.Provider)
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// LogFormat returns auto, json or text.
func (c *EnvConfig) LogFormat() string {
	return c.logFormat
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// MediaDir is where uploaded media lives in offline mode.
func (c *EnvConfig) MediaDir() string {
	return filepath.Join(c.dataDir, "media")
}

// ExportDir is where the local encoder writes outputs.
func (c *EnvConfig) ExportDir() string {
	return filepath.Join(c.dataDir, "exports")
}

func (c *EnvConfig) HistoryDepth() int {
	return c.historyDepth
}

func (c *EnvConfig) PixelsPerSecond() float64 {
	return c.pixelsPerSecond
}

func (c *EnvConfig) CloudURL() string {
	return c.cloudURL
}

func (c *EnvConfig) CloudToken() string {
	return c.cloudToken
}

// CloudEnabled reports whether both a backend URL and token are set.
func (c *EnvConfig) CloudEnabled() bool {
	return c.cloudURL != "" && c.cloudToken != ""
}

func (c *EnvConfig) Payment() PaymentConfig {
	return c.payment
}

// PlanLimits returns the configured limits for plan, falling back to the
// built-in table for plans the config does not know.
func (c *EnvConfig) PlanLimits(plan entitlement.Plan) entitlement.PlanLimits {
	if l, ok := c.plans[plan]; ok {
		return l
	}
	return entitlement.DefaultLimits(plan)
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

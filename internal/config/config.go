package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pdf-canvas-viewer/internal/domain"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const defaultAllowedOrigins = "http://localhost:3000,http://localhost:5173,http://127.0.0.1:5173"

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerHost  string
	ServerPort  string `validate:"required,numeric"`
	MaxFileSize int64  `validate:"gt=0"`
	LogLevel    string `validate:"oneof=debug info warn warning error"`
	LogFormat   string `validate:"oneof=json console text"`

	DefaultScale       float64 `validate:"gtefield=MinScale,ltefield=MaxScale"`
	ZoomStep           float64 `validate:"gt=0"`
	MinScale           float64 `validate:"gt=0"`
	MaxScale           float64 `validate:"gtfield=MinScale"`
	RestoreScaleOnExit bool

	IdleTimeout   time.Duration `validate:"gte=0"`
	MaxViewers    int           `validate:"gt=0"`
	RenderTimeout time.Duration `validate:"gt=0"`

	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"gt=0"`
	AllowedOrigins []string

	FullscreenAutoGrant bool
	FullscreenWidth     int `validate:"gte=0"`
	FullscreenHeight    int `validate:"gte=0"`
}

// source looks a key up in the environment first, then in the optional
// config file.
type source struct {
	file map[string]interface{}
}

func (s source) get(key string) (string, bool) {
	if value := os.Getenv(key); value != "" {
		return value, true
	}
	if value, ok := s.file[key]; ok && value != nil {
		return fmt.Sprintf("%v", value), true
	}
	return "", false
}

func (s source) getOrDefault(key, defaultValue string) string {
	if value, ok := s.get(key); ok {
		return value
	}
	return defaultValue
}

// LoadConfig reads the configuration from the environment, layered over the
// YAML file named by VIEWER_CONFIG_FILE when set, and validates it.
func LoadConfig() (*AppConfig, error) {
	src := source{}
	if path := os.Getenv("VIEWER_CONFIG_FILE"); path != "" {
		file, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}

	cfg := load(src)
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// NewConfig creates a configuration from the environment, falling back to
// defaults for anything missing or malformed.
func NewConfig() domain.Config {
	return load(source{})
}

func load(src source) *AppConfig {
	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerHost:  src.getOrDefault("SERVER_HOST", "127.0.0.1"),
		ServerPort:  src.getOrDefault("PORT", src.getOrDefault("SERVER_PORT", "8080")),
		MaxFileSize: getInt64OrDefault(src, "MAX_FILE_SIZE", 50*1024*1024), // 50MB default
		LogLevel:    strings.ToLower(src.getOrDefault("LOG_LEVEL", "info")),
		LogFormat:   strings.ToLower(src.getOrDefault("LOG_FORMAT", "json")),

		DefaultScale:       getFloatOrDefault(src, "VIEWER_DEFAULT_SCALE", domain.DefaultScale),
		ZoomStep:           getFloatOrDefault(src, "VIEWER_ZOOM_STEP", domain.DefaultZoomStep),
		MinScale:           getFloatOrDefault(src, "VIEWER_MIN_SCALE", domain.DefaultMinScale),
		MaxScale:           getFloatOrDefault(src, "VIEWER_MAX_SCALE", domain.DefaultMaxScale),
		RestoreScaleOnExit: getBoolOrDefault(src, "VIEWER_RESTORE_SCALE_ON_EXIT", false),

		IdleTimeout:   getDurationOrDefault(src, "VIEWER_IDLE_TIMEOUT", 30*time.Minute),
		MaxViewers:    getIntOrDefault(src, "VIEWER_MAX_INSTANCES", 32),
		RenderTimeout: getDurationOrDefault(src, "RENDER_TIMEOUT", 30*time.Second),

		RateLimitRPS:   getFloatOrDefault(src, "RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntOrDefault(src, "RATE_LIMIT_BURST", 100),
		AllowedOrigins: splitList(src.getOrDefault("CORS_ALLOWED_ORIGINS", defaultAllowedOrigins)),

		FullscreenAutoGrant: getBoolOrDefault(src, "FULLSCREEN_AUTO_GRANT", false),
		FullscreenWidth:     getIntOrDefault(src, "FULLSCREEN_WIDTH", 1920),
		FullscreenHeight:    getIntOrDefault(src, "FULLSCREEN_HEIGHT", 1080),
	}
}

func readConfigFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	values := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return values, nil
}

// GetServerHost returns the interface to listen on, loopback by default
func (c *AppConfig) GetServerHost() string {
	return c.ServerHost
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetMaxFileSize returns the maximum allowed file size
func (c *AppConfig) GetMaxFileSize() int64 {
	return c.MaxFileSize
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetLogFormat returns the log encoding, json or console
func (c *AppConfig) GetLogFormat() string {
	return c.LogFormat
}

// GetViewerSettings returns the zoom settings every viewer starts with
func (c *AppConfig) GetViewerSettings() domain.ViewerSettings {
	return domain.ViewerSettings{
		DefaultScale:       c.DefaultScale,
		ZoomStep:           c.ZoomStep,
		MinScale:           c.MinScale,
		MaxScale:           c.MaxScale,
		RestoreScaleOnExit: c.RestoreScaleOnExit,
	}
}

// GetIdleTimeout returns how long a viewer may go unused before eviction
func (c *AppConfig) GetIdleTimeout() time.Duration {
	return c.IdleTimeout
}

// GetMaxViewers returns the maximum number of open viewers
func (c *AppConfig) GetMaxViewers() int {
	return c.MaxViewers
}

// GetRenderTimeout returns the upper bound for a single page render
func (c *AppConfig) GetRenderTimeout() time.Duration {
	return c.RenderTimeout
}

// GetRateLimit returns the per-client request rate and burst
func (c *AppConfig) GetRateLimit() (float64, int) {
	return c.RateLimitRPS, c.RateLimitBurst
}

// GetAllowedOrigins returns the CORS origins allowed to call the API
func (c *AppConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

// GetFullscreenAutoGrant reports whether fullscreen requests apply without a
// browser shell, and the screen size to assume when they do.
func (c *AppConfig) GetFullscreenAutoGrant() (bool, int, int) {
	return c.FullscreenAutoGrant, c.FullscreenWidth, c.FullscreenHeight
}

// Helper functions for config value handling
func getInt64OrDefault(src source, key string, defaultValue int64) int64 {
	if value, ok := src.get(key); ok {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getIntOrDefault(src source, key string, defaultValue int) int {
	if value, ok := src.get(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(src source, key string, defaultValue float64) float64 {
	if value, ok := src.get(key); ok {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(src source, key string, defaultValue bool) bool {
	if value, ok := src.get(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(src source, key string, defaultValue time.Duration) time.Duration {
	if value, ok := src.get(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

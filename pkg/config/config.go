package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	LINE      LINEConfig      `json:"line"`
	Retry     RetryConfig     `json:"retry"`
	RichMenu  RichMenuConfig  `json:"richmenu"`
	Gateway   GatewayConfig   `json:"gateway"`
	Templates TemplatesConfig `json:"templates"`
	Logging   LoggingConfig   `json:"logging"`
	mu        sync.RWMutex
}

type LINEConfig struct {
	ChannelAccessToken string `json:"channel_access_token" env:"LINE_CHANNEL_ACCESS_TOKEN"`
	APIBase            string `json:"api_base" env:"MENUCTL_LINE_API_BASE"`
	DataAPIBase        string `json:"data_api_base" env:"MENUCTL_LINE_DATA_API_BASE"`
	TimeoutSec         int    `json:"timeout_sec" env:"MENUCTL_LINE_TIMEOUT_SEC"`
}

type RetryConfig struct {
	MaxRetries  int `json:"max_retries" env:"MENUCTL_RETRY_MAX_RETRIES"`
	BaseDelayMS int `json:"base_delay_ms" env:"MENUCTL_RETRY_BASE_DELAY_MS"`
}

type RichMenuConfig struct {
	AllowedSizes      []string `json:"allowed_sizes" env:"MENUCTL_RICHMENU_ALLOWED_SIZES"`
	AllowedImageTypes []string `json:"allowed_image_types" env:"MENUCTL_RICHMENU_ALLOWED_IMAGE_TYPES"`
	MaxImageBytes     int      `json:"max_image_bytes" env:"MENUCTL_RICHMENU_MAX_IMAGE_BYTES"`
	MaxBulkUsers      int      `json:"max_bulk_users" env:"MENUCTL_RICHMENU_MAX_BULK_USERS"`
}

type GatewayConfig struct {
	Host           string   `json:"host" env:"MENUCTL_GATEWAY_HOST"`
	Port           int      `json:"port" env:"MENUCTL_GATEWAY_PORT"`
	StaticDir      string   `json:"static_dir" env:"MENUCTL_GATEWAY_STATIC_DIR"`
	AllowedOrigins []string `json:"allowed_origins" env:"MENUCTL_GATEWAY_ALLOWED_ORIGINS"`
	RateLimitRPS   float64  `json:"rate_limit_rps" env:"MENUCTL_GATEWAY_RATE_LIMIT_RPS"`
	RateLimitBurst int      `json:"rate_limit_burst" env:"MENUCTL_GATEWAY_RATE_LIMIT_BURST"`
	MaxUploadBytes int64    `json:"max_upload_bytes" env:"MENUCTL_GATEWAY_MAX_UPLOAD_BYTES"`
}

type TemplatesConfig struct {
	Dir string `json:"dir" env:"MENUCTL_TEMPLATES_DIR"`
}

type LoggingConfig struct {
	Enabled       bool   `json:"enabled" env:"MENUCTL_LOGGING_ENABLED"`
	Level         string `json:"level" env:"MENUCTL_LOGGING_LEVEL"`
	Dir           string `json:"dir" env:"MENUCTL_LOGGING_DIR"`
	Filename      string `json:"filename" env:"MENUCTL_LOGGING_FILENAME"`
	MaxSizeMB     int    `json:"max_size_mb" env:"MENUCTL_LOGGING_MAX_SIZE_MB"`
	RetentionDays int    `json:"retention_days" env:"MENUCTL_LOGGING_RETENTION_DAYS"`
}

var (
	isDebug bool
	muDebug sync.RWMutex
)

func SetDebugMode(debug bool) {
	muDebug.Lock()
	defer muDebug.Unlock()
	isDebug = debug
}

func IsDebugMode() bool {
	muDebug.RLock()
	defer muDebug.RUnlock()
	return isDebug
}

func GetConfigDir() string {
	if IsDebugMode() {
		return ".menuctl"
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".menuctl")
}

func DefaultConfig() *Config {
	configDir := GetConfigDir()
	return &Config{
		LINE: LINEConfig{
			APIBase:     "https://api.line.me/v2/bot",
			DataAPIBase: "https://api-data.line.me/v2/bot",
			TimeoutSec:  30,
		},
		Retry: RetryConfig{
			MaxRetries:  3,
			BaseDelayMS: 1000,
		},
		RichMenu: RichMenuConfig{
			AllowedSizes:      []string{"2500x1686", "2500x843", "1200x810", "1200x405", "800x540", "800x270"},
			AllowedImageTypes: []string{"image/png", "image/jpeg"},
			MaxImageBytes:     1048576,
			MaxBulkUsers:      500,
		},
		Gateway: GatewayConfig{
			Host:           "127.0.0.1",
			Port:           3000,
			AllowedOrigins: []string{"*"},
			RateLimitRPS:   10,
			RateLimitBurst: 20,
			MaxUploadBytes: 2 << 20,
		},
		Templates: TemplatesConfig{
			Dir: filepath.Join(configDir, "templates"),
		},
		Logging: LoggingConfig{
			Enabled:       true,
			Level:         "info",
			Dir:           filepath.Join(configDir, "logs"),
			Filename:      "menuctl.log",
			MaxSizeMB:     10,
			RetentionDays: 7,
		},
	}
}

// LoadConfig reads path over the defaults and then applies environment
// overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := unmarshalConfigStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func unmarshalConfigStrict(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("invalid config: trailing JSON content")
		}
		return err
	}
	return nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	// The file holds the channel access token.
	return os.WriteFile(path, data, 0600)
}

func (c *Config) GetAccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LINE.ChannelAccessToken
}

func (c *Config) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LINE.ChannelAccessToken = strings.TrimSpace(token)
}

func (c *Config) TemplatesPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Templates.Dir)
}

func (c *Config) LogFilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	filename := c.Logging.Filename
	if filename == "" {
		filename = "menuctl.log"
	}
	return filepath.Join(expandHome(c.Logging.Dir), filename)
}

// MaskedToken shows only the last four characters of the access token.
func (c *Config) MaskedToken() string {
	token := c.GetAccessToken()
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", 8) + token[len(token)-4:]
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}

package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Validate returns configuration problems found in cfg.
// It does not mutate cfg. A missing access token is not reported here; the
// client rejects it per call so that read-only commands still start.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{fmt.Errorf("config is nil")}
	}

	var errs []error

	errs = append(errs, validateBaseURL("line.api_base", cfg.LINE.APIBase)...)
	errs = append(errs, validateBaseURL("line.data_api_base", cfg.LINE.DataAPIBase)...)
	if cfg.LINE.APIBase != "" && strings.TrimRight(cfg.LINE.APIBase, "/") == strings.TrimRight(cfg.LINE.DataAPIBase, "/") {
		errs = append(errs, fmt.Errorf("line.data_api_base must differ from line.api_base"))
	}
	if cfg.LINE.TimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("line.timeout_sec must be > 0"))
	}

	if cfg.Retry.MaxRetries < 0 || cfg.Retry.MaxRetries > 10 {
		errs = append(errs, fmt.Errorf("retry.max_retries must be in [0,10]"))
	}
	if cfg.Retry.BaseDelayMS <= 0 {
		errs = append(errs, fmt.Errorf("retry.base_delay_ms must be > 0"))
	}

	if len(cfg.RichMenu.AllowedSizes) == 0 {
		errs = append(errs, fmt.Errorf("richmenu.allowed_sizes must not be empty"))
	}
	for _, s := range cfg.RichMenu.AllowedSizes {
		if !validSize(s) {
			errs = append(errs, fmt.Errorf("richmenu.allowed_sizes contains invalid size %q (want WIDTHxHEIGHT)", s))
		}
	}
	for _, t := range cfg.RichMenu.AllowedImageTypes {
		switch t {
		case "image/png", "image/jpeg":
		default:
			errs = append(errs, fmt.Errorf("richmenu.allowed_image_types contains unsupported type %q", t))
		}
	}
	if cfg.RichMenu.MaxImageBytes <= 0 || cfg.RichMenu.MaxImageBytes > 1048576 {
		errs = append(errs, fmt.Errorf("richmenu.max_image_bytes must be in (0,1048576]"))
	}
	if cfg.RichMenu.MaxBulkUsers <= 0 || cfg.RichMenu.MaxBulkUsers > 500 {
		errs = append(errs, fmt.Errorf("richmenu.max_bulk_users must be in (0,500]"))
	}

	if cfg.Gateway.Port <= 0 || cfg.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port must be in [1,65535]"))
	}
	if cfg.Gateway.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("gateway.rate_limit_rps must be >= 0"))
	}
	if cfg.Gateway.RateLimitRPS > 0 && cfg.Gateway.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("gateway.rate_limit_burst must be > 0 when rate_limit_rps > 0"))
	}
	if cfg.Gateway.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("gateway.max_upload_bytes must be > 0"))
	}

	if cfg.Logging.Enabled {
		if cfg.Logging.Dir == "" {
			errs = append(errs, fmt.Errorf("logging.dir is required when logging.enabled=true"))
		}
		if cfg.Logging.MaxSizeMB <= 0 {
			errs = append(errs, fmt.Errorf("logging.max_size_mb must be > 0"))
		}
		if cfg.Logging.RetentionDays <= 0 {
			errs = append(errs, fmt.Errorf("logging.retention_days must be > 0"))
		}
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of: debug, info, warn, error"))
	}

	return errs
}

func validateBaseURL(field, raw string) []error {
	if strings.TrimSpace(raw) == "" {
		return []error{fmt.Errorf("%s is required", field)}
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []error{fmt.Errorf("%s must be an absolute http(s) URL", field)}
	}
	return nil
}

func validSize(s string) bool {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return false
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	return err1 == nil && err2 == nil && width > 0 && height > 0
}

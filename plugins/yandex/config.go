package yandex

import (
	"time"

	"github.com/liuran001/YandexMusic-Go/bot/platform"
)

const defaultTimeout = 15 * time.Second

// Config is the connector configuration. It is copied at construction and
// never changed afterwards.
//
// Build a Config from DefaultConfig() and override fields from there. The zero
// value leaves DeprecatedAPIFallback disabled and selects standard quality;
// NewClient fills in timeouts, endpoints and keys but never these two.
type Config struct {
	// Token is the OAuth token sent with every API request.
	Token string
	// UserAgent overrides the desktop client user agent when set.
	UserAgent string
	// UseProxy routes API and storage requests through the regional proxy.
	UseProxy bool
	// ForceDeprecatedAPI always acquires streams through the legacy download-info flow.
	ForceDeprecatedAPI bool
	// DeprecatedAPIFallback retries stream acquisition through the legacy flow
	// after any signed file-info failure, not only a rejected signature.
	// DefaultConfig enables it.
	DeprecatedAPIFallback bool
	// Quality selects the file-info quality level. DefaultConfig selects lossless.
	Quality platform.Quality
	// Timeout bounds each API request. Stream bodies are bounded by the caller's context.
	Timeout time.Duration
	// RateLimit caps API requests per second across the client. Zero disables it.
	RateLimit float64
	// RateBurst is the limiter bucket size; at least 1 when RateLimit is set.
	RateBurst int

	Endpoints           Endpoints
	StreamKey           string
	DeprecatedStreamKey string
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		DeprecatedAPIFallback: true,
		Quality:               platform.QualityLossless,
		Timeout:               defaultTimeout,
		Endpoints:             DefaultEndpoints(),
		StreamKey:             defaultStreamKey,
		DeprecatedStreamKey:   defaultDeprecatedStreamKey,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Endpoints == (Endpoints{}) {
		c.Endpoints = def.Endpoints
	}
	if c.StreamKey == "" {
		c.StreamKey = def.StreamKey
	}
	if c.DeprecatedStreamKey == "" {
		c.DeprecatedStreamKey = def.DeprecatedStreamKey
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		c.RateBurst = 1
	}
	return c
}

// qualityName maps a quality level onto the file-info quality parameter.
func qualityName(q platform.Quality) string {
	switch q {
	case platform.QualityStandard:
		return "lq"
	case platform.QualityHigh:
		return "nq"
	default:
		return "lossless"
	}
}

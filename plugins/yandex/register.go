package yandex

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/liuran001/YandexMusic-Go/bot"
	"github.com/liuran001/YandexMusic-Go/bot/config"
	"github.com/liuran001/YandexMusic-Go/bot/platform"
	platformplugins "github.com/liuran001/YandexMusic-Go/bot/platform/plugins"
)

func init() {
	if err := platformplugins.Register(platformName, buildContribution); err != nil {
		panic(err)
	}
}

func buildContribution(deps platformplugins.Deps) (*platformplugins.Contribution, error) {
	cfg, err := ConfigFrom(deps.Config)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(deps.Registerer)
	if err != nil {
		return nil, fmt.Errorf("yandex: register metrics: %w", err)
	}

	// A nil *logger.Logger must stay a nil interface.
	var logger bot.Logger
	if deps.Logger != nil {
		logger = deps.Logger.With("plugin", platformName)
	}
	client := NewClient(cfg, nil, logger, metrics)
	if logger != nil {
		logger.Info("yandex: connector ready", "proxy", cfg.UseProxy, "force_deprecated_api", cfg.ForceDeprecatedAPI, "deprecated_api_fallback", cfg.DeprecatedAPIFallback)
	}
	return &platformplugins.Contribution{Streamer: NewPlatform(cfg, client, logger)}, nil
}

// ConfigFrom reads the [plugins.yandex] section of cfg.
func ConfigFrom(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("config required")
	}
	out := DefaultConfig()

	out.Token = strings.TrimSpace(cfg.GetPluginString(platformName, "token"))
	if out.Token == "" {
		out.Token = strings.TrimSpace(cfg.GetString("YANDEX_TOKEN"))
	}
	if out.Token == "" {
		return Config{}, fmt.Errorf("yandex: token required (plugins.yandex.token or YANDEX_TOKEN): %w", platform.NewAuthRequiredError(platformName))
	}

	out.UserAgent = strings.TrimSpace(cfg.GetPluginString(platformName, "user_agent"))
	out.UseProxy = cfg.GetPluginBool(platformName, "use_proxy")
	out.ForceDeprecatedAPI = cfg.GetPluginBool(platformName, "force_deprecated_api")
	if cfg.HasPluginKey(platformName, "deprecated_api_fallback") {
		out.DeprecatedAPIFallback = cfg.GetPluginBool(platformName, "deprecated_api_fallback")
	}
	if raw := cfg.GetPluginString(platformName, "quality"); raw != "" {
		quality, err := platform.ParseQuality(raw)
		if err != nil {
			return Config{}, fmt.Errorf("yandex: %w", err)
		}
		out.Quality = quality
	}
	if timeoutSec := cfg.GetPluginInt(platformName, "timeout"); timeoutSec > 0 {
		out.Timeout = time.Duration(timeoutSec) * time.Second
	}
	if raw := strings.TrimSpace(cfg.GetPluginString(platformName, "rate_limit")); raw != "" {
		limit, err := strconv.ParseFloat(raw, 64)
		if err != nil || limit < 0 {
			return Config{}, fmt.Errorf("yandex: invalid rate_limit %q", raw)
		}
		out.RateLimit = limit
		out.RateBurst = cfg.GetPluginInt(platformName, "rate_burst")
	}
	return out, nil
}

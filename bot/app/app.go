package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liuran001/YandexMusic-Go/bot/config"
	"github.com/liuran001/YandexMusic-Go/bot/download"
	"github.com/liuran001/YandexMusic-Go/bot/id3"
	logpkg "github.com/liuran001/YandexMusic-Go/bot/logger"
	"github.com/liuran001/YandexMusic-Go/bot/platform"
	platformplugins "github.com/liuran001/YandexMusic-Go/bot/platform/plugins"
	"github.com/liuran001/YandexMusic-Go/bot/platform/registry"
	"github.com/prometheus/client_golang/prometheus"
)

// App wires all application dependencies.
type App struct {
	Config          *config.Config
	Logger          *logpkg.Logger
	Metrics         *prometheus.Registry
	PlatformManager *platform.DefaultManager
	Download        *download.DownloadService
	ID3             *id3.ID3Service
	Covers          *id3.CoverFetcher
	Build           BuildInfo

	contributions []*platformplugins.Contribution
}

// BuildInfo provides build-time metadata.
type BuildInfo struct {
	RuntimeVer string
	BinVersion string
	CommitSHA  string
	BuildTime  string
	BuildArch  string
}

// Options overrides values of the loaded configuration.
type Options struct {
	ConfigPath string
	// LogLevel replaces the configured LogLevel when set.
	LogLevel string
}

// New builds the application container and loads every enabled plugin.
func New(opts Options, build BuildInfo) (*App, error) {
	conf, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		conf.Set("LogLevel", level)
	}

	log, err := logpkg.New(logpkg.Options{
		Level:     conf.GetString("LogLevel"),
		Format:    conf.GetString("LogFormat"),
		AddSource: conf.GetBool("LogSource"),
		Dir:       conf.GetString("LogDir"),
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics := prometheus.NewRegistry()
	manager := platform.NewManagerWithRegistry(registry.New())
	contributions, err := platformplugins.Load(platformplugins.Deps{
		Config:     conf,
		Logger:     log,
		Registerer: metrics,
	}, manager)
	if err != nil {
		_ = closeAll(contributions)
		_ = log.Close()
		return nil, err
	}
	if len(manager.List()) == 0 {
		log.Warn("no platform plugins loaded")
	}

	timeout := time.Duration(conf.GetInt("DownloadTimeout")) * time.Second
	return &App{
		Config:          conf,
		Logger:          log,
		Metrics:         metrics,
		PlatformManager: manager,
		Download: download.NewDownloadService(download.DownloadServiceOptions{
			Timeout: timeout,
			Logger:  log.With("component", "download"),
		}),
		ID3:           id3.NewID3Service(log.With("component", "id3")),
		Covers:        id3.NewCoverFetcher(nil, 30*time.Second),
		Build:         build,
		contributions: contributions,
	}, nil
}

// SaveTrack downloads the stream of res to dest and tags it. Tagging failures
// are logged and do not fail the download.
func (a *App) SaveTrack(ctx context.Context, res *platform.GetByURLResult, dest string, progress download.ProgressFunc) (*download.Result, error) {
	if res == nil || res.GetStream == nil {
		return nil, platform.NewUnsupportedError("app", "stream for this item type")
	}
	saved, err := a.Download.Save(ctx, res.GetStream, dest, progress)
	if err != nil {
		return nil, err
	}

	tag := id3.FromTrack(res.Track)
	if tag == nil {
		return saved, nil
	}
	var cover []byte
	if tag.CoverURL != "" {
		cover, err = a.Covers.Fetch(ctx, tag.CoverURL)
		if err != nil {
			a.Logger.Warn("cover download failed", "url", tag.CoverURL, "error", err)
			cover = nil
		}
	}
	if err := a.ID3.EmbedTags(saved.Path, tag, cover); err != nil {
		if errors.Is(err, id3.ErrUnsupportedFormat) {
			a.Logger.Info("tags skipped", "path", saved.Path, "mime", saved.MimeType)
		} else {
			a.Logger.Warn("tagging failed", "path", saved.Path, "error", err)
		}
	}
	return saved, nil
}

// WriteMetrics writes the collected metrics to path in the textfile format.
func (a *App) WriteMetrics(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, a.Metrics); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// Shutdown releases resources.
func (a *App) Shutdown() error {
	var firstErr error
	if err := closeAll(a.contributions); err != nil {
		if a.Logger != nil {
			a.Logger.Error("failed to close plugins", "error", err)
		}
		firstErr = err
	}
	if a.Logger != nil {
		if err := a.Logger.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close logger: %w", err)
		}
	}
	return firstErr
}

func closeAll(contributions []*platformplugins.Contribution) error {
	var errs []error
	for _, c := range contributions {
		if c != nil && c.Closer != nil {
			if err := c.Closer(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

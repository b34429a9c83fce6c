package yandex

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/liuran001/YandexMusic-Go/bot"
	"github.com/liuran001/YandexMusic-Go/bot/platform"
)

const (
	sourceSigned = "signed"
	sourceLegacy = "legacy"
)

// streamLink is a playable link and the codec it serves.
type streamLink struct {
	Codec  string
	URL    string
	Source string
}

// streamSource acquires a stream link for a track.
type streamSource interface {
	Name() string
	Link(ctx context.Context, trackID string) (*streamLink, error)
}

// signedSource uses the signed file-info endpoint.
type signedSource struct {
	client  *Client
	quality string
}

func (s signedSource) Name() string { return sourceSigned }

func (s signedSource) Link(ctx context.Context, trackID string) (*streamLink, error) {
	info, err := s.client.GetFileInfo(ctx, trackID, s.quality, streamCodecs, []string{streamTransportRaw})
	s.client.metrics.observeSource(sourceSigned, outcome(err))
	if err != nil {
		return nil, err
	}
	return &streamLink{Codec: info.Codec, URL: info.URLs[0], Source: sourceSigned}, nil
}

// legacySource uses the deprecated download-info endpoint and storage links.
type legacySource struct {
	client *Client
}

func (s legacySource) Name() string { return sourceLegacy }

func (s legacySource) Link(ctx context.Context, trackID string) (*streamLink, error) {
	link, err := s.link(ctx, trackID)
	s.client.metrics.observeSource(sourceLegacy, outcome(err))
	return link, err
}

func (s legacySource) link(ctx context.Context, trackID string) (*streamLink, error) {
	infos, err := s.client.GetLegacyDownloadInfo(ctx, trackID)
	if err != nil {
		return nil, err
	}
	best, ok := highestBitrate(infos)
	if !ok {
		return nil, badResponse("no legacy download options for track "+trackID, nil, nil)
	}
	direct, err := s.client.ResolveLegacyDirectLink(ctx, best.DownloadInfoURL)
	if err != nil {
		return nil, err
	}
	return &streamLink{Codec: best.Codec, URL: direct, Source: sourceLegacy}, nil
}

func highestBitrate(infos []LegacyDownloadInfo) (LegacyDownloadInfo, bool) {
	if len(infos) == 0 {
		return LegacyDownloadInfo{}, false
	}
	best := infos[0]
	for _, info := range infos[1:] {
		if info.BitrateInKbps > best.BitrateInKbps {
			best = info
		}
	}
	return best, true
}

// fallbackSource tries primary and falls back on a rejected signature, or on
// any error when always is set.
type fallbackSource struct {
	primary  streamSource
	fallback streamSource
	always   bool
	logger   bot.Logger
}

func (s fallbackSource) Name() string { return s.primary.Name() + "+" + s.fallback.Name() }

func (s fallbackSource) Link(ctx context.Context, trackID string) (*streamLink, error) {
	link, err := s.primary.Link(ctx, trackID)
	if err == nil {
		return link, nil
	}

	var badSign *BadSignatureError
	if !errors.As(err, &badSign) && !s.always {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Warn("yandex: falling back to legacy stream source", "track_id", trackID, "error", err)
	}

	link, fbErr := s.fallback.Link(ctx, trackID)
	if fbErr != nil {
		return nil, fmt.Errorf("yandex: legacy fallback after %v: %w", err, fbErr)
	}
	return link, nil
}

// newStreamSource selects the stream strategy for cfg.
func newStreamSource(cfg Config, client *Client, logger bot.Logger) streamSource {
	legacy := legacySource{client: client}
	if cfg.ForceDeprecatedAPI {
		return legacy
	}
	return fallbackSource{
		primary:  signedSource{client: client, quality: qualityName(cfg.Quality)},
		fallback: legacy,
		always:   cfg.DeprecatedAPIFallback,
		logger:   logger,
	}
}

// mimeType maps a codec to the MIME type of its stream.
func mimeType(codec string) string {
	if codec == codecMP3 {
		return "audio/mpeg"
	}
	return "audio/" + codec
}

// openStream fetches link and returns its body. The caller closes Body.
func (c *Client) openStream(ctx context.Context, link *streamLink) (*platform.Stream, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, link.URL, nil)
	if err != nil {
		return nil, badResponse("build stream request", nil, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, badResponse("stream transport failure", nil, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, badResponse("unexpected stream status code", &RawResponse{StatusCode: resp.StatusCode, Header: resp.Header}, nil)
	}

	return &platform.Stream{
		MimeType:  mimeType(link.Codec),
		Body:      resp.Body,
		SizeBytes: resp.ContentLength,
	}, nil
}

// streamFunc returns a lazy accessor acquiring a fresh link on every call.
func (p *Platform) streamFunc(trackID string) platform.StreamFunc {
	return func(ctx context.Context) (*platform.Stream, error) {
		link, err := p.source.Link(ctx, trackID)
		if err != nil {
			return nil, fmt.Errorf("yandex: stream track %s: %w", trackID, err)
		}
		if p.logger != nil {
			p.logger.Debug("yandex: opening stream", "track_id", trackID, "source", link.Source, "codec", link.Codec)
		}
		return p.client.openStream(ctx, link)
	}
}

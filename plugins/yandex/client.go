package yandex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/liuran001/YandexMusic-Go/bot"
	"golang.org/x/time/rate"
)

const invalidSignMessage = "Invalid Sign"

// Client calls the private music API. It holds no mutable state and is safe
// for concurrent use.
type Client struct {
	httpClient   *retryablehttp.Client
	streamClient *retryablehttp.Client
	endpoints    Endpoints
	signer       *Signer
	token        string
	userAgent    string
	proxy        bool
	limiter      *rate.Limiter
	logger       bot.Logger
	metrics      *Metrics
}

// NewClient builds a client from cfg. A nil httpClient uses a fresh http.Client.
func NewClient(cfg Config, httpClient *http.Client, logger bot.Logger, metrics *Metrics) *Client {
	cfg = cfg.withDefaults()

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	return &Client{
		httpClient:   newHTTPClient(httpClient, cfg.Timeout),
		streamClient: newHTTPClient(httpClient, 0),
		endpoints:    cfg.Endpoints,
		signer:       NewSigner(cfg.StreamKey, cfg.DeprecatedStreamKey, nil),
		token:        cfg.Token,
		userAgent:    userAgent,
		proxy:        cfg.UseProxy,
		limiter:      limiter,
		logger:       logger,
		metrics:      metrics,
	}
}

// newHTTPClient wraps base in a retryablehttp client that never retries.
func newHTTPClient(base *http.Client, timeout time.Duration) *retryablehttp.Client {
	hc := &http.Client{}
	if base != nil {
		copied := *base
		hc = &copied
	}
	hc.Timeout = timeout

	c := retryablehttp.NewClient()
	c.HTTPClient = hc
	c.RetryMax = 0
	c.Logger = nil
	c.CheckRetry = noRetry
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}

func noRetry(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	return false, err
}

// WithSigner returns a copy of c signing requests with s.
func (c *Client) WithSigner(s *Signer) *Client {
	clone := *c
	clone.signer = s
	return &clone
}

// Endpoints returns the origins the client builds URLs against.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

func (c *Client) setHeaders(req *retryablehttp.Request, requestID string) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Origin", headerOrigin)
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("X-Yandex-Music-Client", headerClient)
	req.Header.Set("X-Yandex-Music-Frontend", "new")
	req.Header.Set("X-Yandex-Music-Without-Invocation-Info", "1")
}

// get runs one request through the validation pipeline and decodes the body into out.
func (c *Client) get(ctx context.Context, endpoint, rawURL string, out any) error {
	requestID := uuid.NewString()
	if c.logger != nil {
		c.logger.Debug("yandex: api request", "endpoint", endpoint, "request_id", requestID)
	}

	start := time.Now()
	err := c.wait(ctx)
	if err == nil {
		err = c.do(ctx, requestID, rawURL, out)
	}
	c.metrics.observeRequest(endpoint, outcome(err), time.Since(start))

	if err != nil && c.logger != nil {
		args := []any{"endpoint", endpoint, "request_id", requestID, "error", err}
		var bad *BadResponseError
		if errors.As(err, &bad) && bad.Response != nil {
			args = append(args, "status", bad.Response.StatusCode)
		}
		var challenge *ChallengeError
		if errors.As(err, &challenge) {
			c.logger.Error("yandex: captcha challenge", args...)
		} else {
			c.logger.Warn("yandex: api request failed", args...)
		}
	}
	return err
}

// wait blocks until the rate limiter admits one request.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return badResponse("rate limiter", nil, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, requestID, rawURL string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return badResponse("build request", nil, err)
	}
	c.setHeaders(req, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return badResponse("transport failure", nil, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	raw := &RawResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if err != nil {
		return badResponse("read body", raw, err)
	}

	if _, ok := resp.Header[http.CanonicalHeaderKey(headerCaptcha)]; ok {
		return &ChallengeError{Response: raw}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return badResponse("unexpected status code", raw, nil)
	}
	if echoed := resp.Header.Get(headerRequestID); echoed != requestID {
		return badResponse(fmt.Sprintf("request id %s missing or mismatched (got %q)", requestID, echoed), raw, nil)
	}
	if !json.Valid(body) {
		return badResponse("body is not valid JSON", raw, nil)
	}
	if apiErr := envelopeError(body); apiErr != nil {
		return apiErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return badResponse("unexpected body shape", raw, err)
	}
	return nil
}

// envelopeError reports the upstream declared error carried by body, if any.
// A body is an error envelope when it has both an "error" and a "message" key,
// whatever their values; "error" may also be an object holding both keys.
func envelopeError(body []byte) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil
	}
	rawErr, ok := fields["error"]
	if !ok {
		return nil
	}

	var nested map[string]json.RawMessage
	nestedOK := json.Unmarshal(rawErr, &nested) == nil && nested != nil

	rawMsg, ok := fields["message"]
	if !ok {
		if !nestedOK {
			return nil
		}
		if rawMsg, ok = nested["message"]; !ok {
			return nil
		}
		return newAPIError(jsonString(nested["name"]), jsonString(rawMsg))
	}

	name := jsonString(fields["name"])
	if name == "" {
		name = jsonString(rawErr)
	}
	if name == "" && nestedOK {
		name = jsonString(nested["name"])
	}
	return newAPIError(name, jsonString(rawMsg))
}

// jsonString returns raw as a string when it holds one, and "" otherwise.
func jsonString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// GetAccountStatus fetches the account state of the configured token.
func (c *Client) GetAccountStatus(ctx context.Context) (*AccountStatus, error) {
	var status AccountStatus
	if err := c.get(ctx, "account_status", c.endpoints.AccountStatus(c.proxy), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetArtist fetches an artist's brief info and unwraps the artist object.
func (c *Client) GetArtist(ctx context.Context, id string) (*Artist, error) {
	var resp struct {
		Artist *Artist `json:"artist"`
	}
	if err := c.get(ctx, "artist", c.endpoints.Artist(id, c.proxy), &resp); err != nil {
		return nil, err
	}
	if resp.Artist == nil {
		return nil, badResponse("artist missing from response", nil, nil)
	}
	return resp.Artist, nil
}

// GetAlbum fetches album metadata without volumes.
func (c *Client) GetAlbum(ctx context.Context, id string) (*Album, error) {
	return c.getAlbum(ctx, id, false)
}

func (c *Client) getAlbum(ctx context.Context, id string, withTracks bool) (*Album, error) {
	endpoint := "album"
	if withTracks {
		endpoint = "album_with_tracks"
	}
	var album Album
	if err := c.get(ctx, endpoint, c.endpoints.Album(id, withTracks, c.proxy), &album); err != nil {
		return nil, err
	}
	return &album, nil
}

// GetAlbumWithTracks fetches an album with volumes, then its available tracks
// in one batch, in volume order.
func (c *Client) GetAlbumWithTracks(ctx context.Context, id string) (*AlbumWithTracks, error) {
	album, err := c.getAlbum(ctx, id, true)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, volume := range album.Volumes {
		for _, track := range volume {
			ids = append(ids, track.ID.String())
		}
	}

	tracks, err := c.GetTracks(ctx, ids, true)
	if err != nil {
		return nil, fmt.Errorf("yandex: album %s tracks: %w", id, err)
	}
	return &AlbumWithTracks{Album: *album, Tracks: tracks}, nil
}

// GetTracks fetches tracks in one batch. With removeUnavailable set, tracks
// flagged unavailable are dropped and the rest keep upstream order.
func (c *Client) GetTracks(ctx context.Context, ids []string, removeUnavailable bool) ([]Track, error) {
	if len(ids) == 0 {
		return []Track{}, nil
	}

	var tracks []Track
	if err := c.get(ctx, "tracks", c.endpoints.Tracks(ids, c.proxy), &tracks); err != nil {
		return nil, err
	}
	if tracks == nil {
		tracks = []Track{}
	}
	if !removeUnavailable {
		return tracks, nil
	}
	return filterAvailable(tracks), nil
}

func filterAvailable(tracks []Track) []Track {
	kept := make([]Track, 0, len(tracks))
	for _, track := range tracks {
		if track.Available {
			kept = append(kept, track)
		}
	}
	return kept
}

// GetTrack fetches a single track without availability filtering. A track
// behind a legal modal disclaimer yields *RegionRestrictedError.
func (c *Client) GetTrack(ctx context.Context, id string) (*Track, error) {
	tracks, err := c.GetTracks(ctx, []string{id}, false)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, &NotFoundError{APIError: APIError{Name: "track-not-found", Message: "no track with id " + id}, Resource: "track"}
	}
	track := tracks[0]

	if track.hasDisclaimer(disclaimerModal) {
		disclaimer, err := c.GetTrackDisclaimer(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("yandex: track %s disclaimer: %w", id, err)
		}
		if disclaimer.Modal != nil && disclaimer.Modal.Reason == reasonLegal {
			return nil, &RegionRestrictedError{TrackID: id, Title: disclaimer.Modal.Title}
		}
	}
	return &track, nil
}

// GetTrackDisclaimer fetches the disclaimer details of a track.
func (c *Client) GetTrackDisclaimer(ctx context.Context, id string) (*TrackDisclaimer, error) {
	var disclaimer TrackDisclaimer
	if err := c.get(ctx, "track_disclaimer", c.endpoints.TrackDisclaimer(id, c.proxy), &disclaimer); err != nil {
		return nil, err
	}
	return &disclaimer, nil
}

// GetPlaylist fetches playlist metadata and member ids.
func (c *Client) GetPlaylist(ctx context.Context, owner, kind string) (*Playlist, error) {
	var playlist Playlist
	if err := c.get(ctx, "playlist", c.endpoints.Playlist(owner, kind, c.proxy), &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// GetPlaylistWithTracks fetches a playlist, then its available tracks in playlist order.
func (c *Client) GetPlaylistWithTracks(ctx context.Context, owner, kind string) (*PlaylistWithTracks, error) {
	playlist, err := c.GetPlaylist(ctx, owner, kind)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(playlist.Tracks))
	for _, item := range playlist.Tracks {
		ids = append(ids, item.ID.String())
	}

	tracks, err := c.GetTracks(ctx, ids, true)
	if err != nil {
		return nil, fmt.Errorf("yandex: playlist %s/%s tracks: %w", owner, kind, err)
	}
	return &PlaylistWithTracks{Playlist: *playlist, Tracks: tracks}, nil
}

// InstantSearch runs a mixed search over albums, artists and tracks.
func (c *Client) InstantSearch(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 25
	}
	types := []string{string(SearchAlbum), string(SearchArtist), string(SearchTrack)}

	var resp apiSearchResponse
	if err := c.get(ctx, "instant_search", c.endpoints.InstantSearch(query, types, 0, limit, c.proxy), &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []SearchHit{}, nil
	}
	return resp.Results, nil
}

// GetFileInfo requests a signed stream link. A rejected signature yields
// *BadSignatureError carrying the signing inputs.
func (c *Client) GetFileInfo(ctx context.Context, trackID, quality string, codecs, transports []string) (*FileInfo, error) {
	sig := c.signer.Sign(trackID, quality, codecs, transports)

	var resp apiFileInfoResponse
	err := c.get(ctx, "file_info", c.endpoints.FileInfo(sig, trackID, quality, codecs, transports, c.proxy), &resp)
	if err != nil {
		if apiErr, ok := apiErrorOf(err); ok && apiErr.Message == invalidSignMessage {
			return nil, &BadSignatureError{Request: sig, Err: err}
		}
		return nil, err
	}

	info := resp.DownloadInfo
	if info == nil {
		return nil, badResponse("downloadInfo missing from response", nil, nil)
	}
	if len(info.URLs) == 0 && info.URL != "" {
		info.URLs = []string{info.URL}
	}
	if len(info.URLs) == 0 {
		return nil, badResponse("downloadInfo carries no urls", nil, nil)
	}
	return info, nil
}

// GetLegacyDownloadInfo lists the deprecated download options of a track.
func (c *Client) GetLegacyDownloadInfo(ctx context.Context, trackID string) ([]LegacyDownloadInfo, error) {
	var infos []LegacyDownloadInfo
	if err := c.get(ctx, "legacy_download_info", c.endpoints.LegacyDownloadInfo(trackID, c.proxy), &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

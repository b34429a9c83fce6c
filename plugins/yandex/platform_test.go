package yandex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/liuran001/YandexMusic-Go/bot/platform"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	trackURL    = "https://music.yandex.ru/album/4072009/track/33307663"
	albumURL    = "https://music.yandex.ru/album/3879328"
	playlistURL = "https://music.yandex.ru/users/yearbyyear/playlists/1235"
	artistURL   = "https://music.yandex.ru/artist/41191"

	trackBody = `[{"id":"33307663","title":"Бета-каротин","available":true,"durationMs":1000,
		"albums":[{"id":4072009,"title":"Super Hits","metaType":"music","coverUri":"a/%%"}],
		"artists":[{"id":41191,"name":"Бумбокс"}]}]`
	episodeBody = `[{"id":"500","title":"Episode","available":true,
		"albums":[{"id":600,"title":"Show","metaType":"podcast"}]}]`

	legacySignature = "401e273b75c3502dbe0f9c0b57817947"
	legacyPath      = "/get-mp3/" + legacySignature + "/0005f1a2b3c4/1234/abc.mp3"
	streamPayload   = "fLaC-pretend-audio"
)

func TestPlatformIdentity(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, "yandex", env.platform.Name())
	hosts := env.platform.Hostnames()
	assert.Equal(t, []string{"music.yandex.ru", "music.yandex.com"}, hosts)
	hosts[0] = "mutated"
	assert.Equal(t, "music.yandex.ru", env.platform.Hostnames()[0])

	meta := env.platform.Metadata()
	assert.Equal(t, "Yandex Music", meta.DisplayName)
	assert.Contains(t, meta.Aliases, "ym")
	assert.Len(t, env.platform.TestData(), 3)
}

func TestGetTypeFromURLWithoutProbe(t *testing.T) {
	tests := []struct {
		url  string
		want platform.ItemType
	}{
		{playlistURL, platform.ItemPlaylist},
		{artistURL, platform.ItemArtist},
		{"https://music.yandex.com/artist/41191/tracks", platform.ItemArtist},
		{"https://www.music.yandex.ru/users/someone/playlists/3", platform.ItemPlaylist},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			env := newTestEnv(t, nil)

			got, err := env.platform.GetTypeFromURL(context.Background(), tt.url)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Zero(t, env.up.totalHits())
		})
	}
}

func TestGetTypeFromURLProbes(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		routes map[string]string
		want   platform.ItemType
	}{
		{"track", trackURL, map[string]string{"/api/tracks": trackBody}, platform.ItemTrack},
		{"episode", "https://music.yandex.ru/album/600/track/500", map[string]string{"/api/tracks": episodeBody}, platform.ItemEpisode},
		{"track without album", "https://music.yandex.ru/track/7", map[string]string{"/api/tracks": `[{"id":"7","available":true}]`}, platform.ItemTrack},
		{"album", albumURL, map[string]string{"/api/albums/3879328/": `{"id":3879328,"metaType":"music"}`}, platform.ItemAlbum},
		{"album legacy type", albumURL, map[string]string{"/api/albums/3879328/": `{"id":3879328,"type":"music"}`}, platform.ItemAlbum},
		{"podcast", "https://music.yandex.ru/album/600", map[string]string{"/api/albums/600/": `{"id":600,"metaType":"podcast"}`}, platform.ItemPodcast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			for path, body := range tt.routes {
				env.up.handleJSON(path, body)
			}

			got, err := env.platform.GetTypeFromURL(context.Background(), tt.url)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, env.up.totalHits())
		})
	}
}

func TestGetTypeFromURLErrors(t *testing.T) {
	t.Run("foreign host", func(t *testing.T) {
		env := newTestEnv(t, nil)
		for _, raw := range []string{"https://open.spotify.com/track/1", "not a url", "ftp://music.yandex.ru/album/1"} {
			_, err := env.platform.GetTypeFromURL(context.Background(), raw)
			assert.ErrorIs(t, err, platform.ErrUnsupported, raw)
		}
		assert.Zero(t, env.up.totalHits())
	})

	t.Run("non numeric id", func(t *testing.T) {
		env := newTestEnv(t, nil)
		for _, raw := range []string{"https://music.yandex.ru/album/abc", "https://music.yandex.ru/album/1/track/x1", "https://music.yandex.ru/users/me/playlists/top"} {
			_, err := env.platform.GetTypeFromURL(context.Background(), raw)
			assert.ErrorIs(t, err, platform.ErrNotFound, raw)
		}
		assert.Zero(t, env.up.totalHits())
	})

	t.Run("restricted track", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.up.handleJSON("/api/tracks", `[{"id":"33307663","available":true,"disclaimers":["modal"]}]`)
		env.up.handleJSON("/api/tracks/33307663/disclaimer", `{"modal":{"reason":"legal"}}`)

		_, err := env.platform.GetTypeFromURL(context.Background(), trackURL)

		var restricted *RegionRestrictedError
		assert.ErrorAs(t, err, &restricted)
		assert.ErrorIs(t, err, platform.ErrUnavailable)
	})

	t.Run("missing album", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.up.handleJSON("/api/albums/3879328/", `{"error":"album-not-found","message":"Album not found"}`)

		_, err := env.platform.GetTypeFromURL(context.Background(), albumURL)

		assert.ErrorIs(t, err, platform.ErrNotFound)
	})

	t.Run("missing album with null message", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.up.handleJSON("/api/albums/3879328/", `{"name":"album-not-found","error":"album-not-found","message":null}`)

		kind, err := env.platform.GetTypeFromURL(context.Background(), albumURL)

		assert.ErrorIs(t, err, platform.ErrNotFound)
		assert.Empty(t, kind)
	})
}

func TestGetByURLTrackIsLazy(t *testing.T) {
	env := newTestEnv(t, nil)
	env.up.handleJSON("/api/tracks", trackBody)

	res, err := env.platform.GetByURL(context.Background(), trackURL)

	require.NoError(t, err)
	assert.Equal(t, platform.ItemTrack, res.Type)
	require.NotNil(t, res.Track)
	assert.Equal(t, "Бета-каротин", res.Title())
	assert.Equal(t, "https://music.yandex.ru/album/4072009/track/33307663", res.Track.URL)
	require.NotNil(t, res.GetStream)
	assert.Equal(t, 2, env.up.hitCount("/api/tracks"), "probe plus filtered fetch")
	assert.Zero(t, env.up.hitCount("/api/get-file-info"), "stream links are acquired lazily")
}

func TestGetByURLUnavailableTrack(t *testing.T) {
	env := newTestEnv(t, nil)
	env.up.handleJSON("/api/tracks", `[{"id":"33307663","available":false,"albums":[{"id":1,"metaType":"music"}]}]`)

	_, err := env.platform.GetByURL(context.Background(), trackURL)

	assert.ErrorIs(t, err, platform.ErrNotFound)
}

func TestGetByURLAlbum(t *testing.T) {
	env := newTestEnv(t, nil)
	env.up.handleJSON("/api/albums/3879328/", `{"id":3879328,"metaType":"music"}`)
	env.up.handleJSON("/api/albums/3879328/with-tracks", `{"id":3879328,"title":"Глубина резкости","metaType":"music","volumes":[[{"id":"1"},{"id":"2"}]]}`)
	env.up.handleJSON("/api/tracks", `[{"id":"1","title":"a","available":true},{"id":"2","title":"b","available":false}]`)

	res, err := env.platform.GetByURL(context.Background(), albumURL)

	require.NoError(t, err)
	assert.Equal(t, platform.ItemAlbum, res.Type)
	require.NotNil(t, res.Album)
	assert.Equal(t, "Глубина резкости", res.Album.Title)
	assert.Equal(t, 1, res.Album.DiscCount)
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, "a", res.Tracks[0].Title)
	assert.Empty(t, res.Episodes)
	assert.Nil(t, res.GetStream)
}

func TestGetByURLPodcast(t *testing.T) {
	env := newTestEnv(t, nil)
	env.up.handleJSON("/api/albums/600/", `{"id":600,"metaType":"podcast"}`)
	env.up.handleJSON("/api/albums/600/with-tracks", `{"id":600,"title":"Show","metaType":"podcast","volumes":[[{"id":"500"}]]}`)
	env.up.handleJSON("/api/tracks", episodeBody)

	res, err := env.platform.GetByURL(context.Background(), "https://music.yandex.ru/album/600")

	require.NoError(t, err)
	assert.Equal(t, platform.ItemPodcast, res.Type)
	require.Len(t, res.Episodes, 1)
	assert.Empty(t, res.Tracks)
}

func TestGetByURLPlaylist(t *testing.T) {
	env := newTestEnv(t, nil)
	env.up.handleJSON("/api/users/yearbyyear/playlists/1235", `{"kind":1235,"title":"International 2010s Pop Music","owner":{"login":"yearbyyear"},"tracks":[{"id":1}]}`)
	env.up.handleJSON("/api/tracks", `[{"id":"1","title":"hit","available":true}]`)

	res, err := env.platform.GetByURL(context.Background(), playlistURL)

	require.NoError(t, err)
	assert.Equal(t, platform.ItemPlaylist, res.Type)
	require.NotNil(t, res.Playlist)
	assert.Equal(t, "yearbyyear", res.Playlist.Creator)
	require.Len(t, res.Tracks, 1)
}

func TestGetByURLArtist(t *testing.T) {
	env := newTestEnv(t, nil)
	env.up.handleJSON("/api/artists/41191/brief-info", `{"artist":{"id":41191,"name":"Бумбокс"}}`)

	res, err := env.platform.GetByURL(context.Background(), artistURL)

	require.NoError(t, err)
	require.NotNil(t, res.Artist)
	assert.Equal(t, "Бумбокс", res.Title())
}

// streamEnv serves a track whose signed and legacy stream flows can be toggled.
func streamEnv(t *testing.T, mutate func(*Config), fileInfo http.HandlerFunc) *testEnv {
	t.Helper()
	env := newTestEnv(t, mutate)
	env.up.handleJSON("/api/tracks", trackBody)
	if fileInfo == nil {
		fileInfo = jsonResponder(fmt.Sprintf(`{"downloadInfo":{"codec":"flac","urls":["%s/cdn/track.flac"]}}`, env.up.server.URL))
	}
	env.up.handle("/api/get-file-info", fileInfo)
	env.up.handleJSON("/api/tracks/33307663/download-info", fmt.Sprintf(`[
		{"codec":"mp3","bitrateInKbps":192,"downloadInfoUrl":"%[1]s/storage/low"},
		{"codec":"mp3","bitrateInKbps":320,"downloadInfoUrl":"%[1]s/storage/high"}
	]`, env.up.server.URL))
	env.up.handle("/storage/high", xmlResponder(downloadInfoXML(env.up.host(), "/1234/abc.mp3")))
	env.up.handle("/cdn/track.flac", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(streamPayload))
	})
	env.up.handle(legacyPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ID3-legacy"))
	})
	return env
}

func openTrackStream(t *testing.T, env *testEnv) (*platform.Stream, error) {
	t.Helper()
	res, err := env.platform.GetByURL(context.Background(), trackURL)
	require.NoError(t, err)
	return res.GetStream(context.Background())
}

func readStream(t *testing.T, stream *platform.Stream) string {
	t.Helper()
	defer stream.Body.Close()
	data, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	return string(data)
}

func TestStreamSigned(t *testing.T) {
	env := streamEnv(t, nil, nil)

	stream, err := openTrackStream(t, env)

	require.NoError(t, err)
	assert.Equal(t, "audio/flac", stream.MimeType)
	assert.Equal(t, int64(len(streamPayload)), stream.SizeBytes)
	assert.Equal(t, streamPayload, readStream(t, stream))
	assert.Equal(t, "lossless", env.up.lastRequest("/api/get-file-info").URL.Query().Get("quality"))
	assert.Zero(t, env.up.hitCount("/api/tracks/33307663/download-info"))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.sources.WithLabelValues(sourceSigned, "ok")))
}

func TestStreamQualityFromConfig(t *testing.T) {
	env := streamEnv(t, func(c *Config) { c.Quality = platform.QualityHigh }, nil)

	stream, err := openTrackStream(t, env)

	require.NoError(t, err)
	readStream(t, stream)
	assert.Equal(t, "nq", env.up.lastRequest("/api/get-file-info").URL.Query().Get("quality"))
}

func TestStreamEachCallAcquiresFreshLink(t *testing.T) {
	env := streamEnv(t, nil, nil)
	res, err := env.platform.GetByURL(context.Background(), trackURL)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		stream, err := res.GetStream(context.Background())
		require.NoError(t, err)
		readStream(t, stream)
	}
	assert.Equal(t, 2, env.up.hitCount("/api/get-file-info"))
}

func TestStreamBadSignatureFallsBack(t *testing.T) {
	env := streamEnv(t, func(c *Config) { c.DeprecatedAPIFallback = false },
		jsonResponder(`{"error":"validate","message":"Invalid Sign"}`))

	stream, err := openTrackStream(t, env)

	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", stream.MimeType)
	assert.Equal(t, "ID3-legacy", readStream(t, stream))
	assert.Equal(t, 1, env.up.hitCount("/storage/high"), "highest bitrate option is used")
	assert.Equal(t, 1, env.up.hitCount(legacyPath))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.sources.WithLabelValues(sourceSigned, "bad_signature")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.sources.WithLabelValues(sourceLegacy, "ok")))
}

func failingFileInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(headerRequestID, r.Header.Get(headerRequestID))
	w.WriteHeader(http.StatusInternalServerError)
}

func TestStreamFallbackDisabledPropagates(t *testing.T) {
	env := streamEnv(t, func(c *Config) { c.DeprecatedAPIFallback = false }, failingFileInfo)

	stream, err := openTrackStream(t, env)

	assert.Nil(t, stream)
	var bad *BadResponseError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, http.StatusInternalServerError, bad.Response.StatusCode)
	assert.Zero(t, env.up.hitCount("/api/tracks/33307663/download-info"))
}

func TestStreamFallbackEnabledOnAnyError(t *testing.T) {
	env := streamEnv(t, nil, failingFileInfo)

	stream, err := openTrackStream(t, env)

	require.NoError(t, err)
	assert.Equal(t, "ID3-legacy", readStream(t, stream))
}

func TestStreamFallbackFailureKeepsBothErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.up.handleJSON("/api/tracks", trackBody)
	env.up.handle("/api/get-file-info", failingFileInfo)
	env.up.handleJSON("/api/tracks/33307663/download-info", `[]`)

	_, err := openTrackStream(t, env)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "legacy fallback")
	assert.Contains(t, err.Error(), "no legacy download options")
}

func TestStreamForceDeprecated(t *testing.T) {
	env := streamEnv(t, func(c *Config) { c.ForceDeprecatedAPI = true }, nil)

	stream, err := openTrackStream(t, env)

	require.NoError(t, err)
	assert.Equal(t, "ID3-legacy", readStream(t, stream))
	assert.Zero(t, env.up.hitCount("/api/get-file-info"))
}

func TestStreamCanceledContextSkipsFallback(t *testing.T) {
	env := streamEnv(t, nil, nil)
	res, err := env.platform.GetByURL(context.Background(), trackURL)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = res.GetStream(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, env.up.hitCount("/api/tracks/33307663/download-info"))
}

func TestStreamCDNFailure(t *testing.T) {
	env := streamEnv(t, nil, nil)
	env.up.handle("/cdn/track.flac", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := openTrackStream(t, env)

	var bad *BadResponseError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, http.StatusForbidden, bad.Response.StatusCode)
}

func TestHighestBitrateDoesNotMutate(t *testing.T) {
	infos := []LegacyDownloadInfo{{BitrateInKbps: 128}, {BitrateInKbps: 320}, {BitrateInKbps: 192}}

	best, ok := highestBitrate(infos)

	require.True(t, ok)
	assert.Equal(t, 320, best.BitrateInKbps)
	assert.Equal(t, 128, infos[0].BitrateInKbps)

	_, ok = highestBitrate(nil)
	assert.False(t, ok)
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "audio/mpeg", mimeType("mp3"))
	assert.Equal(t, "audio/aac", mimeType("aac"))
	assert.Equal(t, "audio/flac", mimeType("flac"))
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, nil)
	env.up.handleJSON("/api/search/instant/mixed", `{"results":[
		{"type":"artist","artist":{"id":41191,"name":"Бумбокс"}},
		{"type":"track","track":{"id":"1","title":"Бета-каротин","albums":[{"id":2,"metaType":"music"}]}},
		{"type":"album","album":{"id":2,"title":"Super Hits"}},
		{"type":"playlist","playlist":{"kind":1}},
		{"type":"track","track":{"id":"3","title":"Вахтёрам"}}
	]}`)

	res, err := env.platform.Search(context.Background(), "бумбокс", 10)

	require.NoError(t, err)
	assert.Equal(t, "бумбокс", res.Query)
	require.Len(t, res.Tracks, 2)
	assert.Equal(t, "Бета-каротин", res.Tracks[0].Title)
	assert.Equal(t, "Вахтёрам", res.Tracks[1].Title)
	require.Len(t, res.Albums, 1)
	require.Len(t, res.Artists, 1)
	assert.Equal(t, "Бумбокс", res.Artists[0].Name)
}

func TestSearchNoHits(t *testing.T) {
	env := newTestEnv(t, nil)
	env.up.handleJSON("/api/search/instant/mixed", `{"results":[]}`)

	res, err := env.platform.Search(context.Background(), "zzzz", 10)

	require.NoError(t, err)
	assert.NotNil(t, res.Tracks)
	assert.NotNil(t, res.Albums)
	assert.NotNil(t, res.Artists)
	assert.Empty(t, res.Tracks)
}

func TestSearchPropagatesErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.up.handleJSON("/api/search/instant/mixed", `{"error":"validate","message":"text required"}`)

	_, err := env.platform.Search(context.Background(), "", 10)

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestGetAccountInfo(t *testing.T) {
	tests := []struct {
		name string
		body string
		want platform.Account
	}{
		{
			name: "premium adult",
			body: `{"account":{"region":225,"child":false},"plus":{"hasPlus":true}}`,
			want: platform.Account{Valid: true, Country: "RU", Premium: true, Explicit: true},
		},
		{
			name: "unknown region child",
			body: `{"account":{"region":999,"child":true}}`,
			want: platform.Account{Valid: true, Country: "XX", Premium: false, Explicit: false},
		},
		{
			name: "kazakhstan without plus",
			body: `{"account":{"region":159},"plus":{"hasPlus":false}}`,
			want: platform.Account{Valid: true, Country: "KZ", Explicit: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.up.handleJSON("/api/account/status", tt.body)

			assert.Equal(t, tt.want, env.platform.GetAccountInfo(context.Background()))
		})
	}
}

func TestGetAccountInfoFailureIsInvalid(t *testing.T) {
	env := newTestEnv(t, nil)
	env.up.handle("/api/account/status", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	assert.Equal(t, platform.Account{Valid: false}, env.platform.GetAccountInfo(context.Background()))
}

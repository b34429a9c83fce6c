package yandex

import (
	"context"
	"fmt"

	"github.com/liuran001/YandexMusic-Go/bot"
	"github.com/liuran001/YandexMusic-Go/bot/platform"
)

// Platform implements platform.Streamer for Yandex Music.
type Platform struct {
	client  *Client
	objects objectFactory
	source  streamSource
	logger  bot.Logger
}

// NewPlatform builds the streamer over client. cfg selects the stream strategy.
func NewPlatform(cfg Config, client *Client, logger bot.Logger) *Platform {
	cfg = cfg.withDefaults()
	return &Platform{
		client:  client,
		objects: newObjectFactory(client.Endpoints()),
		source:  newStreamSource(cfg, client, logger),
		logger:  logger,
	}
}

func (p *Platform) Name() string {
	return platformName
}

func (p *Platform) Hostnames() []string {
	return append([]string(nil), hostnames...)
}

// Metadata implements platform.MetadataProvider.
func (p *Platform) Metadata() platform.Meta {
	return platform.Meta{
		Name:        platformName,
		DisplayName: "Yandex Music",
		Aliases:     []string{"ym", "yamusic", "yandexmusic"},
	}
}

// TestData lists known URLs for smoke checks.
func (p *Platform) TestData() map[string]platform.TestItem {
	return map[string]platform.TestItem{
		"https://music.yandex.ru/album/4072009/track/33307663": {
			Title: "Бета-каротин - Бумбокс (BoomBox)",
			Type:  platform.ItemTrack,
		},
		"https://music.yandex.ru/album/3879328": {
			Title: "Глубина резкости - Дельфин (Dolphin)",
			Type:  platform.ItemAlbum,
		},
		"https://music.yandex.ru/users/yearbyyear/playlists/1235": {
			Title: "International 2010s Pop Music (API.Music editor' playlist)",
			Type:  platform.ItemPlaylist,
		},
	}
}

// Search groups instant search hits by kind. An empty result is not an error.
func (p *Platform) Search(ctx context.Context, query string, limit int) (*platform.SearchResults, error) {
	hits, err := p.client.InstantSearch(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("yandex: search %q: %w", query, err)
	}

	results := &platform.SearchResults{
		Query:   query,
		Tracks:  []platform.Track{},
		Albums:  []platform.Album{},
		Artists: []platform.Artist{},
	}
	for _, hit := range hits {
		switch hit.Kind {
		case SearchTrack:
			results.Tracks = append(results.Tracks, p.objects.track(*hit.Track))
		case SearchAlbum:
			results.Albums = append(results.Albums, p.objects.album(*hit.Album))
		case SearchArtist:
			results.Artists = append(results.Artists, p.objects.artist(*hit.Artist))
		}
	}
	return results, nil
}

// GetTypeFromURL classifies a service URL, probing the API for tracks and albums.
func (p *Platform) GetTypeFromURL(ctx context.Context, url string) (platform.ItemType, error) {
	res, err := p.resolve(ctx, url)
	if err != nil {
		return "", err
	}
	return res.Type, nil
}

// GetByURL classifies url and fetches the entity it points to.
func (p *Platform) GetByURL(ctx context.Context, url string) (*platform.GetByURLResult, error) {
	res, err := p.resolve(ctx, url)
	if err != nil {
		return nil, err
	}

	switch res.Type {
	case platform.ItemArtist:
		artist, err := p.client.GetArtist(ctx, res.ID)
		if err != nil {
			return nil, fmt.Errorf("yandex: artist %s: %w", res.ID, err)
		}
		converted := p.objects.artist(*artist)
		return &platform.GetByURLResult{Type: res.Type, Artist: &converted}, nil

	case platform.ItemTrack, platform.ItemEpisode:
		tracks, err := p.client.GetTracks(ctx, []string{res.ID}, true)
		if err != nil {
			return nil, fmt.Errorf("yandex: track %s: %w", res.ID, err)
		}
		if len(tracks) == 0 {
			return nil, platform.NewNotFoundError(platformName, string(res.Type), res.ID)
		}
		converted := p.objects.track(tracks[0])
		return &platform.GetByURLResult{
			Type:      res.Type,
			Track:     &converted,
			GetStream: p.streamFunc(tracks[0].ID.String()),
		}, nil

	case platform.ItemAlbum, platform.ItemPodcast:
		album, err := p.client.GetAlbumWithTracks(ctx, res.ID)
		if err != nil {
			return nil, fmt.Errorf("yandex: album %s: %w", res.ID, err)
		}
		converted := p.objects.album(album.Album)
		result := &platform.GetByURLResult{Type: res.Type, Album: &converted}
		if res.Type == platform.ItemPodcast {
			result.Episodes = p.objects.tracks(album.Tracks)
		} else {
			result.Tracks = p.objects.tracks(album.Tracks)
		}
		return result, nil

	case platform.ItemPlaylist:
		playlist, err := p.client.GetPlaylistWithTracks(ctx, res.Owner, res.Kind)
		if err != nil {
			return nil, fmt.Errorf("yandex: playlist %s/%s: %w", res.Owner, res.Kind, err)
		}
		converted := p.objects.playlist(playlist.Playlist)
		return &platform.GetByURLResult{
			Type:     res.Type,
			Playlist: &converted,
			Tracks:   p.objects.tracks(playlist.Tracks),
		}, nil

	default:
		return nil, platform.NewUnsupportedError(platformName, string(res.Type))
	}
}

// GetAccountInfo reports the token's account. Any failure yields an invalid account.
func (p *Platform) GetAccountInfo(ctx context.Context) platform.Account {
	status, err := p.client.GetAccountStatus(ctx)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("yandex: account status unavailable", "error", err)
		}
		return platform.Account{Valid: false}
	}
	return accountFromStatus(status)
}

func accountFromStatus(status *AccountStatus) platform.Account {
	country, ok := regions[status.Account.Region]
	if !ok {
		country = unknownCountry
	}
	return platform.Account{
		Valid:    true,
		Country:  country,
		Premium:  status.Plus != nil && status.Plus.HasPlus,
		Explicit: !status.Account.Child,
	}
}

var (
	_ platform.Streamer         = (*Platform)(nil)
	_ platform.MetadataProvider = (*Platform)(nil)
	_ platform.TestDataProvider = (*Platform)(nil)
)

package yandex

import (
	"context"
	"fmt"

	"github.com/liuran001/YandexMusic-Go/bot/platform"
)

// resolution is a classified service URL plus the identifiers needed to fetch it.
type resolution struct {
	Type  platform.ItemType
	ID    string
	Owner string
	Kind  string
}

// resolve classifies raw. Playlist and artist URLs are classified from the
// path alone; track and album URLs need a probe request for their meta-type.
func (p *Platform) resolve(ctx context.Context, raw string) (resolution, error) {
	u, err := parseServiceURL(raw)
	if err != nil {
		return resolution{}, err
	}

	switch {
	case u.isPlaylist():
		owner, kind, err := u.playlistRef()
		if err != nil {
			return resolution{}, err
		}
		return resolution{Type: platform.ItemPlaylist, Owner: owner, Kind: kind}, nil

	case u.isArtist():
		id, err := u.artistID()
		if err != nil {
			return resolution{}, err
		}
		return resolution{Type: platform.ItemArtist, ID: id}, nil

	case u.isTrack():
		id, err := u.trailingID("track")
		if err != nil {
			return resolution{}, err
		}
		track, err := p.client.GetTrack(ctx, id)
		if err != nil {
			return resolution{}, fmt.Errorf("yandex: classify track %s: %w", id, err)
		}
		typ := platform.ItemEpisode
		if album, ok := FirstAlbum(track.Albums); !ok || albumMetaType(album) == metaTypeMusic {
			typ = platform.ItemTrack
		}
		return resolution{Type: typ, ID: id}, nil

	default:
		id, err := u.trailingID("album")
		if err != nil {
			return resolution{}, err
		}
		album, err := p.client.GetAlbum(ctx, id)
		if err != nil {
			return resolution{}, fmt.Errorf("yandex: classify album %s: %w", id, err)
		}
		typ := platform.ItemPodcast
		if albumMetaType(*album) == metaTypeMusic {
			typ = platform.ItemAlbum
		}
		return resolution{Type: typ, ID: id}, nil
	}
}

// albumMetaType prefers metaType and falls back to type for older payloads.
func albumMetaType(a Album) string {
	if a.MetaType != "" {
		return a.MetaType
	}
	return a.Type
}

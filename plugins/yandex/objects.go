package yandex

import (
	"strings"
	"time"

	"github.com/liuran001/YandexMusic-Go/bot/platform"
)

// AlbumPolicy selects the album context used when converting a track.
// It must not modify its input.
type AlbumPolicy func(albums []Album) (Album, bool)

// FirstAlbum selects the first album a track is listed on.
func FirstAlbum(albums []Album) (Album, bool) {
	if len(albums) == 0 {
		return Album{}, false
	}
	return albums[0], true
}

// objectFactory converts raw API entities into platform objects.
type objectFactory struct {
	endpoints Endpoints
	pick      AlbumPolicy
}

func newObjectFactory(endpoints Endpoints) objectFactory {
	return objectFactory{endpoints: endpoints, pick: FirstAlbum}
}

func coverURL(uri, size string) string {
	return "https://" + strings.Replace(uri, "%%", size, 1)
}

// coverArtworks expands a cover template into every known size.
func coverArtworks(uri string) []platform.CoverArtwork {
	if strings.TrimSpace(uri) == "" {
		return nil
	}
	covers := make([]platform.CoverArtwork, 0, len(coverSizes))
	for _, size := range coverSizes {
		covers = append(covers, platform.CoverArtwork{
			URL:    coverURL(uri, size.token),
			Width:  size.width,
			Height: size.height,
		})
	}
	return covers
}

func parseReleaseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func (f objectFactory) artist(a Artist) platform.Artist {
	out := platform.Artist{
		ID:       a.ID.String(),
		Platform: platformName,
		Name:     a.Name,
		URL:      f.endpoints.ArtistWebURL(a.ID.String()),
		Pictures: []string{},
	}
	if a.Cover != nil && a.Cover.URI != "" {
		out.Pictures = append(out.Pictures, coverURL(a.Cover.URI, "orig"))
	}
	return out
}

func (f objectFactory) artists(list []Artist) []platform.Artist {
	out := make([]platform.Artist, 0, len(list))
	for _, a := range list {
		out = append(out, f.artist(a))
	}
	return out
}

func (f objectFactory) album(a Album) platform.Album {
	out := platform.Album{
		ID:           a.ID.String(),
		Platform:     platformName,
		Title:        a.Title,
		URL:          f.endpoints.AlbumWebURL(a.ID.String()),
		Artists:      f.artists(a.Artists),
		TrackCount:   a.TrackCount,
		DiscCount:    len(a.Volumes),
		ReleaseDate:  parseReleaseDate(a.ReleaseDate),
		Year:         a.Year,
		CoverArtwork: coverArtworks(a.CoverURI),
		Genre:        []string{},
	}
	if len(a.Labels) > 0 {
		names := make([]string, 0, len(a.Labels))
		for _, label := range a.Labels {
			names = append(names, label.Name)
		}
		out.Label = strings.Join(names, ", ")
	}
	if a.Genre != "" {
		out.Genre = append(out.Genre, a.Genre)
	}
	if out.Year == 0 && out.ReleaseDate != nil {
		out.Year = out.ReleaseDate.Year()
	}
	return out
}

func (f objectFactory) track(t Track) platform.Track {
	out := platform.Track{
		ID:           t.ID.String(),
		Platform:     platformName,
		Title:        t.Title,
		Explicit:     t.hasDisclaimer(disclaimerExplicit) || t.ContentWarning == disclaimerExplicit,
		Artists:      f.artists(t.Artists),
		Duration:     time.Duration(t.DurationMs) * time.Millisecond,
		CoverArtwork: coverArtworks(t.CoverURI),
	}
	if t.Version != "" {
		out.Title = t.Title + " (" + t.Version + ")"
	}
	if t.Major != nil {
		out.Copyright = t.Major.Name
	}

	pick := f.pick
	if pick == nil {
		pick = FirstAlbum
	}
	if album, ok := pick(t.Albums); ok {
		converted := f.album(album)
		out.Album = &converted
		out.URL = f.endpoints.TrackWebURL(album.ID.String(), t.ID.String())
		out.ReleaseDate = converted.ReleaseDate
		if out.CoverArtwork == nil {
			out.CoverArtwork = converted.CoverArtwork
		}
	}
	return out
}

func (f objectFactory) tracks(list []Track) []platform.Track {
	out := make([]platform.Track, 0, len(list))
	for _, t := range list {
		out = append(out, f.track(t))
	}
	return out
}

func (f objectFactory) playlist(p Playlist) platform.Playlist {
	uri := p.Cover.URI
	if p.Cover.Type == coverTypeMosaic && len(p.Cover.ItemsURI) > 0 {
		uri = p.Cover.ItemsURI[0]
	}
	return platform.Playlist{
		ID:           p.Kind.String(),
		Platform:     platformName,
		Title:        p.Title,
		URL:          f.endpoints.PlaylistWebURL(p.Owner.Login, p.Kind.String()),
		Creator:      p.Owner.Login,
		TrackCount:   p.TrackCount,
		CoverArtwork: coverArtworks(uri),
	}
}

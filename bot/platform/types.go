package platform

import (
	"context"
	"io"
	"time"
)

// ItemType classifies the entity a service URL points to.
type ItemType string

const (
	ItemArtist   ItemType = "artist"
	ItemTrack    ItemType = "track"
	ItemEpisode  ItemType = "episode"
	ItemAlbum    ItemType = "album"
	ItemPodcast  ItemType = "podcast"
	ItemPlaylist ItemType = "playlist"
)

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemArtist, ItemTrack, ItemEpisode, ItemAlbum, ItemPodcast, ItemPlaylist:
		return true
	default:
		return false
	}
}

// CoverArtwork is a single rendition of an entity's cover image.
type CoverArtwork struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Track represents a music track from any platform.
// This is the unified representation that maps from platform-specific types.
// Podcast episodes share the same shape.
type Track struct {
	// ID is the platform-specific track identifier.
	ID string `json:"id"`

	// Platform is the source platform name (e.g., "yandex").
	Platform string `json:"platform"`

	// Title is the track name.
	Title string `json:"title"`

	// URL is the public web page of the track.
	URL string `json:"url,omitempty"`

	// Explicit marks tracks flagged with explicit content.
	Explicit bool `json:"explicit"`

	// Copyright is the rights holder (if available).
	Copyright string `json:"copyright,omitempty"`

	// Artists is the list of artists for this track.
	Artists []Artist `json:"artists"`

	// Album is the album this track belongs to (may be nil for singles).
	Album *Album `json:"album,omitempty"`

	// Duration is the track length.
	Duration time.Duration `json:"duration"`

	// CoverArtwork lists the available cover renditions, smallest first.
	CoverArtwork []CoverArtwork `json:"cover_artwork,omitempty"`

	// ReleaseDate is taken from the owning album (if available).
	ReleaseDate *time.Time `json:"release_date,omitempty"`
}

// Episode is a track that belongs to a podcast.
type Episode = Track

// Artist represents a music artist from any platform.
type Artist struct {
	// ID is the platform-specific artist identifier.
	ID string `json:"id"`

	// Platform is the source platform name.
	Platform string `json:"platform"`

	// Name is the artist name.
	Name string `json:"name"`

	// URL is the public web page of the artist.
	URL string `json:"url,omitempty"`

	// Pictures holds artist image URLs in their original size.
	Pictures []string `json:"pictures,omitempty"`
}

// Album represents a music album from any platform.
type Album struct {
	// ID is the platform-specific album identifier.
	ID string `json:"id"`

	// Platform is the source platform name.
	Platform string `json:"platform"`

	// Title is the album name.
	Title string `json:"title"`

	// URL is the public web page of the album.
	URL string `json:"url,omitempty"`

	// Artists is the list of artists for this album.
	Artists []Artist `json:"artists,omitempty"`

	// TrackCount is the number of tracks in the album.
	TrackCount int `json:"track_count,omitempty"`

	// DiscCount is the number of volumes (discs) in the album.
	DiscCount int `json:"disc_count,omitempty"`

	// ReleaseDate is the album release date (if available).
	ReleaseDate *time.Time `json:"release_date,omitempty"`

	// Year is the album release year (if available).
	Year int `json:"year,omitempty"`

	// CoverArtwork lists the available cover renditions, smallest first.
	CoverArtwork []CoverArtwork `json:"cover_artwork,omitempty"`

	// Label is the comma separated list of record labels.
	Label string `json:"label,omitempty"`

	// Genre lists the album genres.
	Genre []string `json:"genre,omitempty"`
}

// Podcast is an album whose entries are episodes.
type Podcast = Album

// Playlist represents a music playlist from any platform.
type Playlist struct {
	// ID is the platform-specific playlist identifier.
	ID string `json:"id"`

	// Platform is the source platform name.
	Platform string `json:"platform"`

	// Title is the playlist name.
	Title string `json:"title"`

	// URL is the public web page of the playlist.
	URL string `json:"url,omitempty"`

	// Creator is the login of the user who owns this playlist.
	Creator string `json:"creator,omitempty"`

	// TrackCount is the number of tracks in the playlist.
	TrackCount int `json:"track_count,omitempty"`

	// CoverArtwork lists the available cover renditions, smallest first.
	CoverArtwork []CoverArtwork `json:"cover_artwork,omitempty"`
}

// SearchResults groups search hits by kind. Every slice is non-nil.
type SearchResults struct {
	Query   string   `json:"query"`
	Tracks  []Track  `json:"tracks"`
	Albums  []Album  `json:"albums"`
	Artists []Artist `json:"artists"`
}

// Stream is an open audio stream. The caller owns Body and must close it.
type Stream struct {
	MimeType string
	Body     io.ReadCloser
	// SizeBytes is the declared content length, or -1 when unknown.
	SizeBytes int64
}

// StreamFunc acquires a stream on demand. Nothing is fetched before it is called.
type StreamFunc func(ctx context.Context) (*Stream, error)

// GetByURLResult is the entity resolved from a service URL.
// Exactly one of Artist, Track, Album or Playlist is set according to Type.
type GetByURLResult struct {
	Type ItemType `json:"type"`

	Artist   *Artist   `json:"artist,omitempty"`
	Track    *Track    `json:"track,omitempty"`
	Album    *Album    `json:"album,omitempty"`
	Playlist *Playlist `json:"playlist,omitempty"`

	// Tracks is set for albums and playlists.
	Tracks []Track `json:"tracks,omitempty"`
	// Episodes is set for podcasts.
	Episodes []Episode `json:"episodes,omitempty"`

	// GetStream is set for tracks and episodes.
	GetStream StreamFunc `json:"-"`
}

// Title returns a display title for the resolved entity.
func (r *GetByURLResult) Title() string {
	if r == nil {
		return ""
	}
	switch {
	case r.Track != nil:
		return r.Track.Title
	case r.Album != nil:
		return r.Album.Title
	case r.Playlist != nil:
		return r.Playlist.Title
	case r.Artist != nil:
		return r.Artist.Name
	default:
		return ""
	}
}

// Account describes the configured account. Only Valid is meaningful when it is false.
type Account struct {
	Valid    bool   `json:"valid"`
	Country  string `json:"country,omitempty"`
	Premium  bool   `json:"premium"`
	Explicit bool   `json:"explicit"`
}

// TestItem is a known URL a connector can resolve, used for smoke checks.
type TestItem struct {
	Title string
	Type  ItemType
}

// TestDataProvider can be implemented by connectors that ship smoke check URLs.
type TestDataProvider interface {
	TestData() map[string]TestItem
}

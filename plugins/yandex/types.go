package yandex

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an upstream identifier. The API sends ids as numbers or strings.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("yandex: id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// AccountStatus is the account/status payload.
type AccountStatus struct {
	Account struct {
		Region int  `json:"region"`
		Child  bool `json:"child"`
	} `json:"account"`
	Plus *struct {
		HasPlus bool `json:"hasPlus"`
	} `json:"plus"`
}

type Cover struct {
	Type     string   `json:"type"`
	URI      string   `json:"uri"`
	ItemsURI []string `json:"itemsUri"`
}

// Artist is a raw artist entity.
type Artist struct {
	ID        ID     `json:"id"`
	Name      string `json:"name"`
	Cover     *Cover `json:"cover"`
	Available *bool  `json:"available"`
}

type Label struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Album is a raw album entity. Volumes is only set by the with-tracks endpoint.
type Album struct {
	ID          ID        `json:"id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	MetaType    string    `json:"metaType"`
	ReleaseDate string    `json:"releaseDate"`
	Year        int       `json:"year"`
	CoverURI    string    `json:"coverUri"`
	TrackCount  int       `json:"trackCount"`
	Artists     []Artist  `json:"artists"`
	Labels      []Label   `json:"labels"`
	Genre       string    `json:"genre"`
	Available   bool      `json:"available"`
	Error       string    `json:"error"`
	Volumes     [][]Track `json:"volumes"`
}

type Major struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Track is a raw track entity. A track may list several album contexts.
type Track struct {
	ID             ID       `json:"id"`
	Title          string   `json:"title"`
	Version        string   `json:"version"`
	DurationMs     int64    `json:"durationMs"`
	Albums         []Album  `json:"albums"`
	Artists        []Artist `json:"artists"`
	Available      bool     `json:"available"`
	Disclaimers    []string `json:"disclaimers"`
	ContentWarning string   `json:"contentWarning"`
	Major          *Major   `json:"major"`
	CoverURI       string   `json:"coverUri"`
}

func (t Track) hasDisclaimer(name string) bool {
	for _, d := range t.Disclaimers {
		if d == name {
			return true
		}
	}
	return false
}

type TrackDisclaimer struct {
	Modal *struct {
		Reason string `json:"reason"`
		Title  string `json:"title"`
	} `json:"modal"`
}

type PlaylistTrack struct {
	ID ID `json:"id"`
}

// Playlist is a raw playlist entity; Tracks holds member ids in order.
type Playlist struct {
	Kind  ID     `json:"kind"`
	Title string `json:"title"`
	Owner struct {
		Login string `json:"login"`
		UID   ID     `json:"uid"`
	} `json:"owner"`
	Cover      Cover           `json:"cover"`
	TrackCount int             `json:"trackCount"`
	Tracks     []PlaylistTrack `json:"tracks"`
}

// SearchKind discriminates instant search hits.
type SearchKind string

const (
	SearchAlbum  SearchKind = "album"
	SearchArtist SearchKind = "artist"
	SearchTrack  SearchKind = "track"
)

// SearchHit is one instant search result. Exactly the field matching Kind is set.
type SearchHit struct {
	Kind   SearchKind
	Album  *Album
	Artist *Artist
	Track  *Track
}

func (h *SearchHit) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   SearchKind      `json:"type"`
		Album  json.RawMessage `json:"album"`
		Artist json.RawMessage `json:"artist"`
		Track  json.RawMessage `json:"track"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	h.Kind = raw.Type
	switch raw.Type {
	case SearchAlbum:
		h.Album = new(Album)
		return decodeHit(raw.Album, h.Album)
	case SearchArtist:
		h.Artist = new(Artist)
		return decodeHit(raw.Artist, h.Artist)
	case SearchTrack:
		h.Track = new(Track)
		return decodeHit(raw.Track, h.Track)
	default:
		// Kinds outside album, artist and track are kept and skipped by callers.
		return nil
	}
}

func decodeHit(data json.RawMessage, out any) error {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("yandex: search hit without payload")
	}
	return json.Unmarshal(data, out)
}

type apiSearchResponse struct {
	Results []SearchHit `json:"results"`
}

// FileInfo describes a stream obtained from the signed file-info endpoint.
type FileInfo struct {
	TrackID   ID       `json:"trackId"`
	Quality   string   `json:"quality"`
	Codec     string   `json:"codec"`
	Bitrate   int      `json:"bitrate"`
	Transport string   `json:"transport"`
	Size      int64    `json:"size"`
	URLs      []string `json:"urls"`
	URL       string   `json:"url"`
	RealID    ID       `json:"realId"`
}

type apiFileInfoResponse struct {
	DownloadInfo *FileInfo `json:"downloadInfo"`
}

// LegacyDownloadInfo is one option returned by the deprecated download-info endpoint.
type LegacyDownloadInfo struct {
	Codec           string `json:"codec"`
	Gain            bool   `json:"gain"`
	Preview         bool   `json:"preview"`
	DownloadInfoURL string `json:"downloadInfoUrl"`
	Direct          bool   `json:"direct"`
	BitrateInKbps   int    `json:"bitrateInKbps"`
}

// AlbumWithTracks is an album and its tracks flattened across volumes.
type AlbumWithTracks struct {
	Album  Album
	Tracks []Track
}

// PlaylistWithTracks is a playlist and its tracks in playlist order.
type PlaylistWithTracks struct {
	Playlist Playlist
	Tracks   []Track
}

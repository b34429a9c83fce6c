package yandex

import (
	"net/url"
	"strconv"
	"strings"
)

// Endpoints holds the origins every request URL is built against.
// Origins must end with a slash.
type Endpoints struct {
	API          string
	ProxyAPI     string
	Web          string
	Storage      string
	ProxyStorage string
}

// DefaultEndpoints returns the production origins.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		API:          defaultAPIOrigin,
		ProxyAPI:     defaultProxyAPIOrigin,
		Web:          defaultWebOrigin,
		Storage:      defaultStorageOrigin,
		ProxyStorage: defaultProxyStorageOrigin,
	}
}

func (e Endpoints) api(proxy bool, path string, query url.Values) string {
	base := e.API
	if proxy {
		base = e.ProxyAPI
	}
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (e Endpoints) AccountStatus(proxy bool) string {
	return e.api(proxy, "account/status", nil)
}

// Album returns the album URL; withTracks selects the variant carrying volumes.
func (e Endpoints) Album(id string, withTracks, proxy bool) string {
	path := "albums/" + url.PathEscape(id) + "/"
	if withTracks {
		path += "with-tracks"
	}
	return e.api(proxy, path, nil)
}

func (e Endpoints) Tracks(ids []string, proxy bool) string {
	return e.api(proxy, "tracks", url.Values{"trackIds": {strings.Join(ids, ",")}})
}

func (e Endpoints) TrackDisclaimer(id string, proxy bool) string {
	return e.api(proxy, "tracks/"+url.PathEscape(id)+"/disclaimer", nil)
}

func (e Endpoints) Playlist(owner, kind string, proxy bool) string {
	return e.api(proxy, "users/"+url.PathEscape(owner)+"/playlists/"+url.PathEscape(kind), nil)
}

func (e Endpoints) Artist(id string, proxy bool) string {
	return e.api(proxy, "artists/"+url.PathEscape(id)+"/brief-info", nil)
}

func (e Endpoints) InstantSearch(text string, types []string, page, pageSize int, proxy bool) string {
	return e.api(proxy, "search/instant/mixed", url.Values{
		"text":     {text},
		"type":     {strings.Join(types, ",")},
		"page":     {strconv.Itoa(page)},
		"pageSize": {strconv.Itoa(pageSize)},
	})
}

// FileInfo returns the signed file-info URL for sig.
func (e Endpoints) FileInfo(sig SigningRequest, trackID, quality string, codecs, transports []string, proxy bool) string {
	return e.api(proxy, "get-file-info", url.Values{
		"ts":         {strconv.FormatInt(sig.Timestamp, 10)},
		"trackId":    {trackID},
		"quality":    {quality},
		"codecs":     {strings.Join(codecs, ",")},
		"transports": {strings.Join(transports, ",")},
		"sign":       {sig.Signature},
	})
}

func (e Endpoints) LegacyDownloadInfo(trackID string, proxy bool) string {
	return e.api(proxy, "tracks/"+url.PathEscape(trackID)+"/download-info", nil)
}

// StorageURL rewrites a storage link onto the proxy origin when proxy is set.
func (e Endpoints) StorageURL(raw string, proxy bool) string {
	if !proxy || e.Storage == "" || e.ProxyStorage == "" {
		return raw
	}
	if strings.HasPrefix(raw, e.Storage) {
		return e.ProxyStorage + strings.TrimPrefix(raw, e.Storage)
	}
	return raw
}

func (e Endpoints) ArtistWebURL(id string) string {
	return e.Web + "artist/" + url.PathEscape(id)
}

func (e Endpoints) AlbumWebURL(id string) string {
	return e.Web + "album/" + url.PathEscape(id)
}

func (e Endpoints) TrackWebURL(albumID, trackID string) string {
	return e.Web + "album/" + url.PathEscape(albumID) + "/track/" + url.PathEscape(trackID)
}

func (e Endpoints) PlaylistWebURL(owner, kind string) string {
	return e.Web + "users/" + url.PathEscape(owner) + "/playlists/" + url.PathEscape(kind)
}

package yandex

import (
	"net/url"
	"strings"

	"github.com/liuran001/YandexMusic-Go/bot/platform"
	"github.com/liuran001/YandexMusic-Go/bot/platform/registry"
)

// serviceURL is a parsed web URL of the music frontend.
type serviceURL struct {
	raw      string
	path     string
	segments []string
}

// parseServiceURL accepts absolute http(s) URLs on one of the service hostnames.
func parseServiceURL(raw string) (serviceURL, error) {
	host, ok := registry.HostOf(raw)
	if !ok || !ownsHost(host) {
		return serviceURL{}, platform.NewUnsupportedError(platformName, "url "+raw)
	}
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return serviceURL{}, platform.NewUnsupportedError(platformName, "url "+raw)
	}

	path := parsed.Path
	if path == "" {
		path = "/"
	}
	var segments []string
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return serviceURL{raw: raw, path: path, segments: segments}, nil
}

func ownsHost(host string) bool {
	for _, h := range hostnames {
		if h == host {
			return true
		}
	}
	return false
}

func (u serviceURL) isPlaylist() bool {
	return strings.HasPrefix(u.path, "/users/") && strings.Contains(u.path, "/playlists/")
}

func (u serviceURL) isArtist() bool {
	return strings.HasPrefix(u.path, "/artist/")
}

func (u serviceURL) isTrack() bool {
	return strings.Contains(u.path, "/track/")
}

// trailingID returns the last path segment when it is numeric.
func (u serviceURL) trailingID(resource string) (string, error) {
	if len(u.segments) == 0 {
		return "", platform.NewNotFoundError(platformName, resource, "")
	}
	id := u.segments[len(u.segments)-1]
	if !isNumeric(id) {
		return "", platform.NewNotFoundError(platformName, resource, id)
	}
	return id, nil
}

// artistID returns the id following /artist/, ignoring sub pages like /tracks.
func (u serviceURL) artistID() (string, error) {
	if len(u.segments) < 2 || !isNumeric(u.segments[1]) {
		return u.trailingID("artist")
	}
	return u.segments[1], nil
}

// playlistRef returns the owner login and kind of /users/<login>/playlists/<kind>.
func (u serviceURL) playlistRef() (owner, kind string, err error) {
	if len(u.segments) < 4 || u.segments[0] != "users" || u.segments[2] != "playlists" {
		return "", "", platform.NewNotFoundError(platformName, "playlist", u.path)
	}
	owner, kind = u.segments[1], u.segments[3]
	if !isNumeric(kind) {
		return "", "", platform.NewNotFoundError(platformName, "playlist", kind)
	}
	return owner, kind, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

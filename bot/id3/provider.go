package id3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/liuran001/YandexMusic-Go/bot/platform"
)

const maxCoverSize = 10 * 1024 * 1024

// TagData is the metadata written into an audio file.
type TagData struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Year        string
	DiscCount   int
	Genre       string
	Copyright   string
	Comment     string
	CoverURL    string
}

// FromTrack builds tag data from a connector track.
func FromTrack(track *platform.Track) *TagData {
	if track == nil {
		return nil
	}
	tag := &TagData{
		Title:     track.Title,
		Artist:    joinArtists(track.Artists),
		Copyright: track.Copyright,
		Comment:   track.URL,
		CoverURL:  largestCover(track.CoverArtwork),
	}
	if track.ReleaseDate != nil {
		tag.Year = strconv.Itoa(track.ReleaseDate.Year())
	}
	if album := track.Album; album != nil {
		tag.Album = album.Title
		tag.AlbumArtist = joinArtists(album.Artists)
		tag.DiscCount = album.DiscCount
		if len(album.Genre) > 0 {
			tag.Genre = album.Genre[0]
		}
		if tag.Year == "" && album.Year > 0 {
			tag.Year = strconv.Itoa(album.Year)
		}
		if tag.CoverURL == "" {
			tag.CoverURL = largestCover(album.CoverArtwork)
		}
	}
	return tag
}

func joinArtists(artists []platform.Artist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return strings.Join(names, ", ")
}

func largestCover(covers []platform.CoverArtwork) string {
	best := -1
	for i, c := range covers {
		if best < 0 || c.Width*c.Height > covers[best].Width*covers[best].Height {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return covers[best].URL
}

// CoverFetcher downloads cover images with a single request per call.
type CoverFetcher struct {
	client *retryablehttp.Client
}

// NewCoverFetcher returns a fetcher; a nil base uses a fresh http.Client.
func NewCoverFetcher(base *http.Client, timeout time.Duration) *CoverFetcher {
	c := retryablehttp.NewClient()
	if base != nil {
		copied := *base
		c.HTTPClient = &copied
	}
	c.HTTPClient.Timeout = timeout
	c.RetryMax = 0
	c.CheckRetry = func(ctx context.Context, _ *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, err
	}
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = nil
	return &CoverFetcher{client: c}
}

// Fetch returns the image at rawURL, refusing bodies over 10 MiB.
func (f *CoverFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cover download failed with status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxCoverSize {
		return nil, fmt.Errorf("cover image too large (max %d bytes)", maxCoverSize)
	}
	return data, nil
}

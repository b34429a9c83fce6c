package id3

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bogem/id3v2"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/liuran001/YandexMusic-Go/bot/platform"
)

func pngCover(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func sampleTag() *TagData {
	return &TagData{
		Title:       "Бета-каротин",
		Artist:      "Бумбокс",
		Album:       "Super Hits",
		AlbumArtist: "Бумбокс",
		Year:        "2016",
		DiscCount:   2,
		Genre:       "rusrock",
		Copyright:   "Moon Records",
		Comment:     "https://music.yandex.ru/album/4072009/track/33307663",
	}
}

// minimalFlac is a marker, one empty STREAMINFO block flagged last, and fake frames.
func minimalFlac() []byte {
	var b bytes.Buffer
	b.WriteString("fLaC")
	b.Write([]byte{0x80, 0x00, 0x00, 0x22})
	b.Write(make([]byte, 34))
	b.WriteString("FRAMEDATA")
	return b.Bytes()
}

func TestEmbedTagsMp3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("audio-frames"), 0o644); err != nil {
		t.Fatalf("write mp3: %v", err)
	}

	if err := NewID3Service(nil).EmbedTags(path, sampleTag(), pngCover(t)); err != nil {
		t.Fatalf("embed mp3: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("reopen mp3: %v", err)
	}
	defer tag.Close()
	if tag.Title() != "Бета-каротин" || tag.Artist() != "Бумбокс" || tag.Album() != "Super Hits" {
		t.Fatalf("unexpected tags: %q %q %q", tag.Title(), tag.Artist(), tag.Album())
	}
	if got := tag.GetTextFrame("TCOP").Text; got != "Moon Records" {
		t.Fatalf("expected copyright frame, got %q", got)
	}
	if got := tag.GetTextFrame("TPOS").Text; got != "1/2" {
		t.Fatalf("expected disc frame, got %q", got)
	}
	if pictures := tag.GetFrames(tag.CommonID("Attached picture")); len(pictures) != 1 {
		t.Fatalf("expected one picture, got %d", len(pictures))
	}
}

func TestEmbedTagsFlac(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.flac")
	if err := os.WriteFile(path, minimalFlac(), 0o644); err != nil {
		t.Fatalf("write flac: %v", err)
	}
	svc := NewID3Service(nil)

	if err := svc.EmbedTags(path, sampleTag(), pngCover(t)); err != nil {
		t.Fatalf("embed flac: %v", err)
	}
	// A second pass replaces the comment block instead of stacking another.
	if err := svc.EmbedTags(path, &TagData{Title: "Retagged"}, nil); err != nil {
		t.Fatalf("retag flac: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read flac: %v", err)
	}
	if !bytes.HasSuffix(data, []byte("FRAMEDATA")) {
		t.Fatalf("audio frames not preserved")
	}

	parsed, err := flac.ParseMetadata(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parse flac: %v", err)
	}
	var comments, pictures int
	for _, block := range parsed.Meta {
		switch block.Type {
		case flac.VorbisComment:
			comments++
			cmts, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				t.Fatalf("parse comments: %v", err)
			}
			titles, _ := cmts.Get(flacvorbis.FIELD_TITLE)
			if len(titles) != 1 || titles[0] != "Retagged" {
				t.Fatalf("unexpected titles: %v", titles)
			}
		case flac.Picture:
			pictures++
		}
	}
	if comments != 1 || pictures != 1 {
		t.Fatalf("expected one comment and one picture block, got %d and %d", comments, pictures)
	}
}

func TestEmbedTagsUnsupported(t *testing.T) {
	if err := NewID3Service(nil).EmbedTags("song.aac", sampleTag(), nil); err != ErrUnsupportedFormat {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if err := NewID3Service(nil).EmbedTags("song.aac", nil, nil); err != nil {
		t.Fatalf("nil tag should be a no-op, got %v", err)
	}
}

func TestFromTrack(t *testing.T) {
	release := time.Date(2016, 9, 30, 0, 0, 0, 0, time.UTC)
	track := &platform.Track{
		Title:       "Бета-каротин",
		URL:         "https://music.yandex.ru/album/1/track/2",
		Copyright:   "Moon Records",
		ReleaseDate: &release,
		Artists:     []platform.Artist{{Name: "Бумбокс"}, {Name: "Guest"}},
		CoverArtwork: []platform.CoverArtwork{
			{URL: "small", Width: 50, Height: 50},
			{URL: "big", Width: 1000, Height: 1000},
			{URL: "mid", Width: 400, Height: 400},
		},
		Album: &platform.Album{
			Title:     "Super Hits",
			Artists:   []platform.Artist{{Name: "Бумбокс"}},
			DiscCount: 1,
			Genre:     []string{"rusrock", "pop"},
		},
	}

	tag := FromTrack(track)

	if tag.Artist != "Бумбокс, Guest" || tag.AlbumArtist != "Бумбокс" {
		t.Fatalf("unexpected artists: %q / %q", tag.Artist, tag.AlbumArtist)
	}
	if tag.Year != "2016" || tag.Genre != "rusrock" || tag.Album != "Super Hits" {
		t.Fatalf("unexpected album fields: %+v", tag)
	}
	if tag.CoverURL != "big" {
		t.Fatalf("expected largest cover, got %q", tag.CoverURL)
	}
	if tag.Comment != track.URL {
		t.Fatalf("expected url comment, got %q", tag.Comment)
	}
	if FromTrack(nil) != nil {
		t.Fatalf("expected nil tag for nil track")
	}
}

func TestFromTrackAlbumFallbacks(t *testing.T) {
	tag := FromTrack(&platform.Track{
		Title: "x",
		Album: &platform.Album{Year: 1999, CoverArtwork: []platform.CoverArtwork{{URL: "album", Width: 1, Height: 1}}},
	})
	if tag.Year != "1999" || tag.CoverURL != "album" {
		t.Fatalf("expected album fallbacks, got %+v", tag)
	}
}

func TestCoverFetcher(t *testing.T) {
	cover := pngCover(t)
	var failures int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			atomic.AddInt32(&failures, 1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(cover)
	}))
	defer server.Close()
	fetcher := NewCoverFetcher(server.Client(), 5*time.Second)

	data, err := fetcher.Fetch(context.Background(), server.URL+"/cover.png")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !bytes.Equal(data, cover) {
		t.Fatalf("unexpected cover bytes")
	}
	if _, err := fetcher.Fetch(context.Background(), server.URL+"/missing"); err == nil {
		t.Fatalf("expected error for missing cover")
	}
	if _, err := fetcher.Fetch(context.Background(), server.URL+"/broken"); err == nil {
		t.Fatalf("expected error for server failure")
	}
	if got := atomic.LoadInt32(&failures); got != 1 {
		t.Fatalf("expected a single cover request, got %d", got)
	}
}

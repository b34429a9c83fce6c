package id3

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	botpkg "github.com/liuran001/YandexMusic-Go/bot"
)

// ErrUnsupportedFormat is returned for files that are neither mp3 nor flac.
var ErrUnsupportedFormat = errors.New("unsupported audio format for tags")

type ID3Service struct {
	logger botpkg.Logger
}

func NewID3Service(logger botpkg.Logger) *ID3Service {
	return &ID3Service{logger: logger}
}

// EmbedTags writes tag and an optional cover image into audioPath, chosen by
// the file extension. Raw aac streams carry no tag container and are rejected.
func (s *ID3Service) EmbedTags(audioPath string, tag *TagData, cover []byte) error {
	if tag == nil {
		return nil
	}
	switch strings.ToLower(filepath.Ext(audioPath)) {
	case ".mp3":
		return s.embedMp3(audioPath, tag, cover)
	case ".flac":
		return s.embedFlac(audioPath, tag, cover)
	default:
		return ErrUnsupportedFormat
	}
}

func detectImageMime(data []byte) string {
	return http.DetectContentType(data[:min(len(data), 512)])
}

func (s *ID3Service) embedMp3(audioPath string, tag *TagData, cover []byte) error {
	meta, err := id3v2.Open(audioPath, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer meta.Close()

	meta.SetDefaultEncoding(id3v2.EncodingUTF8)
	setText := func(id, value string) {
		if value != "" {
			meta.AddTextFrame(id, id3v2.EncodingUTF8, value)
		}
	}
	if tag.Title != "" {
		meta.SetTitle(tag.Title)
	}
	if tag.Artist != "" {
		meta.SetArtist(tag.Artist)
	}
	if tag.Album != "" {
		meta.SetAlbum(tag.Album)
	}
	if tag.Genre != "" {
		meta.SetGenre(tag.Genre)
	}
	setText("TPE2", tag.AlbumArtist)
	setText("TDRC", tag.Year)
	setText("TCOP", tag.Copyright)
	if tag.DiscCount > 0 {
		setText("TPOS", "1/"+strconv.Itoa(tag.DiscCount))
	}
	if tag.Comment != "" {
		meta.AddCommentFrame(id3v2.CommentFrame{
			Encoding: id3v2.EncodingUTF8,
			Language: "eng",
			Text:     tag.Comment,
		})
	}
	if len(cover) > 0 {
		meta.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingISO,
			MimeType:    detectImageMime(cover),
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     cover,
		})
	}
	if s.logger != nil {
		s.logger.Debug("writing mp3 tags", "path", audioPath, "cover_bytes", len(cover))
	}
	return meta.Save()
}

func (s *ID3Service) embedFlac(audioPath string, tag *TagData, cover []byte) error {
	file, err := os.Open(audioPath)
	if err != nil {
		return err
	}
	parsed, err := flac.ParseMetadata(file)
	file.Close()
	if err != nil {
		return err
	}

	vorbis := flacvorbis.New()
	add := func(field, value string) {
		if value != "" {
			_ = vorbis.Add(field, value)
		}
	}
	add(flacvorbis.FIELD_TITLE, tag.Title)
	add(flacvorbis.FIELD_ARTIST, tag.Artist)
	add(flacvorbis.FIELD_ALBUM, tag.Album)
	add("ALBUMARTIST", tag.AlbumArtist)
	add(flacvorbis.FIELD_DATE, tag.Year)
	add(flacvorbis.FIELD_GENRE, tag.Genre)
	add(flacvorbis.FIELD_COPYRIGHT, tag.Copyright)
	add("COMMENT", tag.Comment)
	if tag.DiscCount > 0 {
		add("DISCTOTAL", strconv.Itoa(tag.DiscCount))
	}
	comment := vorbis.Marshal()
	replaceBlock(parsed, flac.VorbisComment, &comment)

	if len(cover) > 0 {
		picture, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front cover", cover, detectImageMime(cover))
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to create flac picture", "error", err)
			}
		} else {
			block := picture.Marshal()
			replaceBlock(parsed, flac.Picture, &block)
		}
	}
	if s.logger != nil {
		s.logger.Debug("writing flac tags", "path", audioPath, "cover_bytes", len(cover))
	}
	return rewriteFlac(audioPath, parsed)
}

// replaceBlock swaps the first metadata block of typ for block, or appends it.
func replaceBlock(parsed *flac.File, typ flac.BlockType, block *flac.MetaDataBlock) {
	for i, m := range parsed.Meta {
		if m.Type == typ {
			parsed.Meta[i] = block
			return
		}
	}
	parsed.Meta = append(parsed.Meta, block)
}

// rewriteFlac writes the metadata of parsed followed by the original audio
// frames into a temp file, then renames it over audioPath.
func rewriteFlac(audioPath string, parsed *flac.File) error {
	original, err := os.Open(audioPath)
	if err != nil {
		return err
	}
	defer original.Close()

	// Skip the marker and the original metadata blocks to reach the frames.
	if _, err := original.Seek(4, io.SeekStart); err != nil {
		return err
	}
	if err := skipMetadata(original); err != nil {
		return err
	}

	stat, err := original.Stat()
	if err != nil {
		return err
	}
	tmpPath := audioPath + ".tagging"
	out, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, stat.Mode())
	if err != nil {
		return err
	}
	cleanup := func(err error) error {
		out.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if _, err := out.Write([]byte("fLaC")); err != nil {
		return cleanup(err)
	}
	for i, meta := range parsed.Meta {
		if _, err := out.Write(meta.Marshal(i == len(parsed.Meta)-1)); err != nil {
			return cleanup(err)
		}
	}
	if _, err := io.Copy(out, original); err != nil {
		return cleanup(err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, audioPath)
}

// skipMetadata advances r past every metadata block header and body.
func skipMetadata(r io.ReadSeeker) error {
	header := make([]byte, 4)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			return err
		}
		length := int64(header[1])<<16 | int64(header[2])<<8 | int64(header[3])
		if _, err := r.Seek(length, io.SeekCurrent); err != nil {
			return err
		}
		if header[0]&0x80 != 0 {
			return nil
		}
	}
}

package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/liuran001/YandexMusic-Go/bot"
	"github.com/liuran001/YandexMusic-Go/bot/platform"
)

type ProgressFunc func(written, total int64)

// Result describes a stream saved to disk.
type Result struct {
	Path     string
	MimeType string
	Written  int64
}

type DownloadService struct {
	timeout          time.Duration
	progressInterval time.Duration
	logger           bot.Logger
}

type DownloadServiceOptions struct {
	// Timeout bounds the download, link acquisition included. Zero means no limit.
	Timeout time.Duration
	// ProgressInterval throttles progress callbacks. Defaults to 2s.
	ProgressInterval time.Duration
	Logger           bot.Logger
}

func NewDownloadService(opts DownloadServiceOptions) *DownloadService {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 2 * time.Second
	}
	return &DownloadService{
		timeout:          opts.Timeout,
		progressInterval: opts.ProgressInterval,
		logger:           opts.Logger,
	}
}

// Save opens a stream through open and writes it to destPath. When destPath
// has no extension one is derived from the stream MIME type. open is called
// exactly once; a failed download is reported, never retried.
func (s *DownloadService) Save(ctx context.Context, open platform.StreamFunc, destPath string, progress ProgressFunc) (*Result, error) {
	if open == nil {
		return nil, errors.New("stream accessor missing")
	}
	if destPath == "" {
		return nil, errors.New("dest path missing")
	}
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return nil, err
	}

	result, err := s.save(ctx, open, destPath, progress)
	if err != nil && s.logger != nil {
		s.logger.Warn("download failed", "path", destPath, "error", err)
	}
	return result, err
}

func (s *DownloadService) save(ctx context.Context, open platform.StreamFunc, destPath string, progress ProgressFunc) (*Result, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	stream, err := open(ctx)
	if err != nil {
		return nil, err
	}
	defer stream.Body.Close()

	if filepath.Ext(destPath) == "" {
		destPath += ExtensionFor(stream.MimeType)
	}

	tmpPath := destPath + ".part"
	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, err
	}
	written, err := copyWithProgress(file, stream.Body, stream.SizeBytes, progress, s.progressInterval)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return nil, err
	}
	if stream.SizeBytes > 0 && written != stream.SizeBytes {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("incomplete download: got %d bytes, expected %d", written, stream.SizeBytes)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, err
	}
	if progress != nil {
		progress(written, stream.SizeBytes)
	}
	return &Result{Path: destPath, MimeType: stream.MimeType, Written: written}, nil
}

// ExtensionFor maps an audio MIME type to a file extension.
func ExtensionFor(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/flac", "audio/x-flac":
		return ".flac"
	case "audio/aac":
		return ".aac"
	case "audio/mp4", "audio/x-m4a":
		return ".m4a"
	default:
		return ".bin"
	}
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress ProgressFunc, interval time.Duration) (int64, error) {
	buf := make([]byte, 128*1024)
	var written int64
	lastUpdate := time.Now()

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if progress != nil && time.Since(lastUpdate) >= interval {
				progress(written, total)
				lastUpdate = time.Now()
			}
		}
		if err != nil {
			if err == io.EOF {
				return written, nil
			}
			return written, err
		}
	}
}

// Package diagnostics writes the frames of failed or ambiguous detection
// cycles to an error image directory and keeps that directory under a size
// cap.
package diagnostics

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/sweeney/boiler-vision/internal/camera"
)

// JPEGQuality is used for every image written by this package.
const JPEGQuality = 90

// Prefix and suffix of error image file names.
const (
	filePrefix = "error-"
	fileSuffix = ".jpg"
)

// Sink captures diagnostic frames into a directory.
type Sink struct {
	dir string
}

// NewSink creates the directory if needed.
func NewSink(dir string) (*Sink, error) {
	if dir == "" {
		return nil, errors.New("diagnostics: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	return &Sink{dir: dir}, nil
}

// Dir returns the error image directory.
func (s *Sink) Dir() string {
	return s.dir
}

// Capture writes frames as error-<unix ms>-<cycle>-<n>.jpg and returns the
// written paths. The reason is only used in the error message.
// A frame that fails to encode stops the capture; earlier files are kept.
func (s *Sink) Capture(cycleID, reason string, frames []camera.Frame) ([]string, error) {
	id := shortID(cycleID)
	paths := make([]string, 0, len(frames))
	for i, f := range frames {
		if f.Image == nil {
			continue
		}
		name := fmt.Sprintf("%s%d-%s-%02d%s", filePrefix, f.Captured.UnixMilli(), id, i, fileSuffix)
		path := filepath.Join(s.dir, name)
		if err := writeJPEG(path, f.Image); err != nil {
			return paths, fmt.Errorf("diagnostics: capture %s: %w", reason, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// EncodeJPEG encodes img at JPEGQuality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJPEG(path string, img image.Image) error {
	data, err := EncodeJPEG(img)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		id = "none"
	}
	return id
}

// isErrorImage reports whether name was written by a Sink.
func isErrorImage(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}

// Package services – UploadService
//
// This file implements the attachment side of the relay: uploaded payloads
// are written to a flat blob directory under a generated storage key, and the
// resulting Attachment metadata is what messages and responses carry around.
// The key scheme is "<unix-millis>-<9 random digits><original extension>",
// which keeps concurrent uploads collision-free without any index.
//
// Image attachments additionally get an on-demand thumbnail, so the admin
// view can preview a picture without pulling the full payload.
package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"github.com/nfnt/resize"

	"github.com/tbourn/go-relay-backend/internal/domain"
)

// ThumbMaxDim bounds thumbnail width and height in pixels.
const ThumbMaxDim = 150

// UploadService owns the attachment blob directory.
type UploadService struct {
	// Dir is the directory payloads are written to.
	Dir string
}

// NewUploadService creates the blob directory if needed and returns the
// service.
func NewUploadService(dir string) (*UploadService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &UploadService{Dir: dir}, nil
}

// Save streams one uploaded payload to disk and returns its Attachment.
// The original name is kept only as display metadata; the storage key is the
// retrieval handle.
func (s *UploadService) Save(originalName string, r io.Reader) (domain.Attachment, error) {
	key := newStorageKey(originalName)

	f, err := os.Create(filepath.Join(s.Dir, key))
	if err != nil {
		return domain.Attachment{}, err
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		os.Remove(f.Name())
		return domain.Attachment{}, err
	}

	return domain.Attachment{
		StorageKey:   key,
		OriginalName: originalName,
		Size:         n,
	}, nil
}

// Path resolves a storage key to an on-disk path. Keys containing path
// separators or not present in the blob directory yield ErrUnknownAttachment.
func (s *UploadService) Path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", ErrUnknownAttachment
	}
	p := filepath.Join(s.Dir, key)
	if _, err := os.Stat(p); err != nil {
		return "", ErrUnknownAttachment
	}
	return p, nil
}

// Thumbnail renders a JPEG preview of an image attachment, at most
// ThumbMaxDim pixels on the longer side. Non-image payloads yield ErrNotImage.
func (s *UploadService) Thumbnail(key string) ([]byte, error) {
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, ErrUnknownAttachment
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, ErrNotImage
	}

	thumb := resize.Thumbnail(ThumbMaxDim, ThumbMaxDim, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// newStorageKey builds a unique file name preserving the original extension.
func newStorageKey(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%d-%09d%s", time.Now().UnixMilli(), rand.Intn(1_000_000_000), ext)
}

package services

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"regexp"
	"strings"
	"testing"
)

func newTestUploads(t *testing.T) *UploadService {
	t.Helper()
	s, err := NewUploadService(t.TempDir())
	if err != nil {
		t.Fatalf("NewUploadService: %v", err)
	}
	return s
}

func TestSaveAssignsKeyAndSize(t *testing.T) {
	s := newTestUploads(t)

	att, err := s.Save("Отчет.PDF", strings.NewReader("payload bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if att.OriginalName != "Отчет.PDF" {
		t.Fatalf("OriginalName = %q", att.OriginalName)
	}
	if att.Size != int64(len("payload bytes")) {
		t.Fatalf("Size = %d", att.Size)
	}
	// "<millis>-<9 digits><lowercased ext>"
	if !regexp.MustCompile(`^\d{13}-\d{9}\.pdf$`).MatchString(att.StorageKey) {
		t.Fatalf("StorageKey = %q, unexpected shape", att.StorageKey)
	}

	p, err := s.Path(att.StorageKey)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if p == "" {
		t.Fatal("Path returned empty path")
	}
}

func TestPathRejectsTraversalAndUnknownKeys(t *testing.T) {
	s := newTestUploads(t)

	for _, key := range []string{
		"",
		"../escape",
		"a/b",
		".hidden",
		"1700000000000-000000001.png", // shaped right, never saved
	} {
		if _, err := s.Path(key); !errors.Is(err, ErrUnknownAttachment) {
			t.Errorf("Path(%q) err = %v, want ErrUnknownAttachment", key, err)
		}
	}
}

func TestThumbnailBoundsImage(t *testing.T) {
	s := newTestUploads(t)

	// 600x300 so the bound applies on the long side.
	src := image.NewRGBA(image.Rect(0, 0, 600, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 600; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	att, err := s.Save("wide.png", &buf)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := s.Thumbnail(att.StorageKey)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	thumb, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	b := thumb.Bounds()
	if b.Dx() > ThumbMaxDim || b.Dy() > ThumbMaxDim {
		t.Fatalf("thumbnail %dx%d exceeds bound %d", b.Dx(), b.Dy(), ThumbMaxDim)
	}
	// Aspect ratio preserved: 2:1 source stays wider than tall.
	if b.Dx() <= b.Dy() {
		t.Fatalf("aspect ratio lost: %dx%d", b.Dx(), b.Dy())
	}
}

func TestThumbnailNonImage(t *testing.T) {
	s := newTestUploads(t)

	att, err := s.Save("notes.txt", strings.NewReader("just text"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Thumbnail(att.StorageKey); !errors.Is(err, ErrNotImage) {
		t.Fatalf("err = %v, want ErrNotImage", err)
	}
}

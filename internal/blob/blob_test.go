package blob

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"recipe-ingest/internal/config"
)

func TestStoreSaveLocal(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewStore(context.Background(), config.Config{BlobBaseDir: tempDir})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := store.Save(context.Background(), "uploads/menu.pdf", []byte("%PDF-1.4"), "application/pdf")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if url != filepath.Join(tempDir, "uploads", "menu.pdf") {
		t.Fatalf("unexpected blob url %q", url)
	}
	data, err := os.ReadFile(url)
	if err != nil {
		t.Fatalf("blob not written: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Fatalf("blob content mangled: %q", data)
	}
}

func TestStoreSaveSanitizesKey(t *testing.T) {
	tempDir := t.TempDir()
	store, err := NewStore(context.Background(), config.Config{BlobBaseDir: tempDir})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := store.Save(context.Background(), "../../etc/passwd", []byte("nope"), "text/plain")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	rel, err := filepath.Rel(tempDir, url)
	if err != nil || strings.HasPrefix(rel, "..") {
		t.Fatalf("key escaped base dir: %q", url)
	}
}

func TestThumbnailerFromURL(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	tempDir := t.TempDir()
	store, err := NewStore(context.Background(), config.Config{BlobBaseDir: tempDir})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	thumb := NewThumbnailer(store, 10, 2*time.Second, 2*1024*1024)

	url, err := thumb.FromURL(context.Background(), srv.URL, "recipe-1")
	if err != nil {
		t.Fatalf("thumbnail: %v", err)
	}

	data, err := os.ReadFile(url)
	if err != nil {
		t.Fatalf("thumbnail not written: %v", err)
	}
	out, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if out.Bounds().Dx() != 10 {
		t.Fatalf("expected width 10, got %d", out.Bounds().Dx())
	}
	if out.Bounds().Dy() != 5 {
		t.Fatalf("expected aspect preserved (height 5), got %d", out.Bounds().Dy())
	}
}

func TestThumbnailerRejectsOversizedImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte{0xff}, 512))
	}))
	defer srv.Close()

	store, err := NewStore(context.Background(), config.Config{BlobBaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	thumb := NewThumbnailer(store, 10, 2*time.Second, 256)

	if _, err := thumb.FromURL(context.Background(), srv.URL, "recipe-1"); err == nil {
		t.Fatal("expected oversized image error")
	}
}

package blob

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
)

// Thumbnailer downloads recipe images and stores a resized thumbnail.
type Thumbnailer struct {
	store    *Store
	client   *http.Client
	width    int
	maxBytes int64
}

func NewThumbnailer(store *Store, width int, timeout time.Duration, maxBytes int64) *Thumbnailer {
	if width <= 0 {
		width = 320
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if maxBytes == 0 {
		maxBytes = 25 * 1024 * 1024
	}
	return &Thumbnailer{
		store:    store,
		client:   &http.Client{Timeout: timeout},
		width:    width,
		maxBytes: maxBytes,
	}
}

// FromURL fetches imageURL, scales it down to the configured width
// (preserving aspect ratio), and stores it under thumbnails/<recipeID>.jpg.
func (t *Thumbnailer) FromURL(ctx context.Context, imageURL, recipeID string) (string, error) {
	data, err := t.download(ctx, imageURL)
	if err != nil {
		return "", err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	img = imaging.Resize(img, t.width, 0, imaging.Lanczos)

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	key := fmt.Sprintf("thumbnails/%s.jpg", recipeID)
	return t.store.Save(ctx, key, buf.Bytes(), "image/jpeg")
}

func (t *Thumbnailer) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("download image: status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, t.maxBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(body)) > t.maxBytes {
		return nil, fmt.Errorf("image too large (>%d bytes)", t.maxBytes)
	}

	return body, nil
}

package mirror

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"desaweb/pkg/record"
)

// ImageCache keeps uploaded images as data URLs under KeyImages, one JSON
// object keyed by image id. It is the fallback when no object store takes
// the upload.
type ImageCache struct {
	m *Mirror
}

func (c *ImageCache) load(ctx context.Context) (map[string]record.CachedImage, error) {
	b, ok, err := c.m.raw(ctx, KeyImages)
	if err != nil {
		return nil, err
	}
	out := map[string]record.CachedImage{}
	if !ok || len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("mirror decode %s: %w", KeyImages, err)
	}
	if out == nil {
		out = map[string]record.CachedImage{}
	}
	return out, nil
}

// SaveImage stores data and returns the cached entry; its Data field is the
// data URL callers can use as an image reference right away.
func (c *ImageCache) SaveImage(ctx context.Context, name, contentType string, data []byte) (record.CachedImage, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	all, err := c.load(ctx)
	if err != nil {
		return record.CachedImage{}, err
	}
	img := record.CachedImage{
		ID:         c.m.gen.NewID("img"),
		Name:       name,
		Data:       DataURL(contentType, data),
		Size:       int64(len(data)),
		Type:       contentType,
		UploadedAt: c.m.now().UTC().Format(time.RFC3339),
	}
	all[img.ID] = img
	if err := c.m.save(ctx, KeyImages, all); err != nil {
		return record.CachedImage{}, err
	}
	return img, nil
}

func (c *ImageCache) GetImage(ctx context.Context, id string) (record.CachedImage, bool, error) {
	all, err := c.load(ctx)
	if err != nil {
		return record.CachedImage{}, false, err
	}
	img, ok := all[id]
	return img, ok, nil
}

func (c *ImageCache) GetAllImages(ctx context.Context) (map[string]record.CachedImage, error) {
	return c.load(ctx)
}

// DeleteImage reports whether an image was removed.
func (c *ImageCache) DeleteImage(ctx context.Context, id string) (bool, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()

	all, err := c.load(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := all[id]; !ok {
		return false, nil
	}
	delete(all, id)
	return true, c.m.save(ctx, KeyImages, all)
}

// DataURL encodes data as "data:<type>;base64,<payload>".
func DataURL(contentType string, data []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

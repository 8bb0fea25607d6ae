package objectstore

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"desaweb/pkg/logger"
	"desaweb/pkg/mirror"
)

const (
	MaxUploadBytes = 5 * 1024 * 1024
	// images above this size are scaled down before they are stored
	shrinkAbove = 1_000_000
)

var (
	ErrUnsupportedType = errors.New("format file tidak didukung. Gunakan: JPEG, JPG, PNG, WEBP")
	ErrTooLarge        = errors.New("ukuran file terlalu besar. Maksimal 5MB")
	ErrEmpty           = errors.New("file kosong")
)

var extensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Uploaded describes a stored image.
type Uploaded struct {
	Key         string `json:"key,omitempty"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	// Cached is set when the image only lives in the mirror's image cache
	// and URL is a data URL.
	Cached  bool   `json:"cached"`
	CacheID string `json:"cacheId,omitempty"`
}

// Uploader validates images, scales big ones down and stores them. Without
// a store, or when the store fails, the image goes to the image cache.
type Uploader struct {
	store Store
	cache *mirror.ImageCache
}

func NewUploader(store Store, cache *mirror.ImageCache) *Uploader {
	return &Uploader{store: store, cache: cache}
}

func (u *Uploader) Upload(ctx context.Context, name, contentType string, data []byte) (Uploaded, error) {
	if len(data) == 0 {
		return Uploaded{}, ErrEmpty
	}
	if len(data) > MaxUploadBytes {
		return Uploaded{}, ErrTooLarge
	}
	contentType = detectType(contentType, data)
	ext, ok := extensions[contentType]
	if !ok {
		return Uploaded{}, ErrUnsupportedType
	}
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}
	data = Shrink(data, ext)

	if u.store != nil {
		key := "images/" + uuid.NewString() + "." + ext
		url, err := u.store.Put(ctx, key, data, contentType)
		if err == nil {
			return Uploaded{Key: key, URL: url, ContentType: contentType, Size: int64(len(data))}, nil
		}
		if u.cache == nil {
			return Uploaded{}, err
		}
		logger.WithField("name", name).Warnf("object store put failed, caching image in mirror: %v", err)
	}
	if u.cache == nil {
		return Uploaded{}, errors.New("no image storage configured")
	}
	img, err := u.cache.SaveImage(ctx, name, contentType, data)
	if err != nil {
		return Uploaded{}, err
	}
	return Uploaded{URL: img.Data, ContentType: contentType, Size: img.Size, Cached: true, CacheID: img.ID}, nil
}

// Remove deletes an image Upload stored, wherever it went.
func (u *Uploader) Remove(ctx context.Context, up Uploaded) error {
	if up.Cached {
		if u.cache == nil {
			return nil
		}
		_, err := u.cache.DeleteImage(ctx, up.CacheID)
		return err
	}
	if u.store == nil || up.Key == "" {
		return nil
	}
	return u.store.Delete(ctx, up.Key)
}

// detectType trusts a declared image type and sniffs otherwise.
func detectType(declared string, data []byte) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if _, ok := extensions[declared]; ok {
		return declared
	}
	return http.DetectContentType(data)
}

// Shrink scales an image above the size budget down by roughly
// sqrt(budget/size), with one more 80% pass when that was not enough.
// Data that cannot be decoded or re-encoded is returned unchanged.
func Shrink(data []byte, ext string) []byte {
	if len(data) <= shrinkAbove {
		return data
	}
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return data
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data
	}
	scale := math.Sqrt(float64(shrinkAbove) / float64(len(data)))
	if scale > 0.95 {
		scale = 0.95
	}
	if scale < 0.1 {
		scale = 0.1
	}
	w := int(math.Max(1, math.Round(float64(img.Bounds().Dx())*scale)))
	h := int(math.Max(1, math.Round(float64(img.Bounds().Dy())*scale)))
	resized := imaging.Resize(img, w, h, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return data
	}
	if buf.Len() > shrinkAbove {
		smaller := imaging.Resize(resized, int(float64(resized.Bounds().Dx())*0.8), 0, imaging.Lanczos)
		var again bytes.Buffer
		if err := imaging.Encode(&again, smaller, format, imaging.JPEGQuality(80)); err == nil {
			return again.Bytes()
		}
	}
	return buf.Bytes()
}

package objectstore

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desaweb/pkg/kv"
	"desaweb/pkg/logger"
	"desaweb/pkg/mirror"
)

func TestMain(m *testing.M) {
	logger.Silence()
	os.Exit(m.Run())
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("bucket unavailable")
}
func (failingStore) Delete(context.Context, string) error { return nil }

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(40, 20, color.NRGBA{200, 30, 30, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// noisyPNG does not compress, so it lands above the shrink budget.
func noisyPNG(t *testing.T, side int) []byte {
	t.Helper()
	rnd := rand.New(rand.NewSource(7))
	img := image.NewNRGBA(image.Rect(0, 0, side, side))
	rnd.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLocalPutAndDelete(t *testing.T) {
	root := t.TempDir()
	store := NewLocal(root, "/public/")
	ctx := context.Background()

	url, err := store.Put(ctx, "images/a.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/public/images/a.png", url)
	got, err := os.ReadFile(filepath.Join(root, "images", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), got)

	require.NoError(t, store.Delete(ctx, "images/a.png"))
	require.NoError(t, store.Delete(ctx, "images/a.png"))
	_, err = os.Stat(filepath.Join(root, "images", "a.png"))
	assert.True(t, os.IsNotExist(err))

	_, err = store.Put(ctx, "../escape.png", []byte("x"), "image/png")
	assert.Error(t, err)
}

func TestUploadValidates(t *testing.T) {
	u := NewUploader(NewLocal(t.TempDir(), "/public"), nil)
	ctx := context.Background()

	_, err := u.Upload(ctx, "a.txt", "text/plain", []byte("hello"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
	_, err = u.Upload(ctx, "big.png", "image/png", make([]byte, MaxUploadBytes+1))
	assert.ErrorIs(t, err, ErrTooLarge)
	_, err = u.Upload(ctx, "empty.png", "image/png", nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestUploadStoresUnderImages(t *testing.T) {
	root := t.TempDir()
	u := NewUploader(NewLocal(root, "/public"), nil)

	// no declared type: sniffed from the bytes
	up, err := u.Upload(context.Background(), "foto.png", "", smallPNG(t))
	require.NoError(t, err)
	assert.False(t, up.Cached)
	assert.Equal(t, "image/png", up.ContentType)
	assert.True(t, strings.HasPrefix(up.Key, "images/"))
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.Equal(t, "/public/"+up.Key, up.URL)
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(up.Key)))
	assert.NoError(t, err)
}

func TestRemoveDeletesWhereStored(t *testing.T) {
	root := t.TempDir()
	m := mirror.New(kv.NewMemory())
	ctx := context.Background()

	up, err := NewUploader(NewLocal(root, "/public"), m.Images()).Upload(ctx, "foto.png", "image/png", smallPNG(t))
	require.NoError(t, err)
	u := NewUploader(NewLocal(root, "/public"), m.Images())
	require.NoError(t, u.Remove(ctx, up))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(up.Key)))
	assert.True(t, os.IsNotExist(err))

	cached, err := NewUploader(failingStore{}, m.Images()).Upload(ctx, "foto.png", "image/png", smallPNG(t))
	require.NoError(t, err)
	require.True(t, cached.Cached)
	require.NoError(t, u.Remove(ctx, cached))
	_, found, err := m.Images().GetImage(ctx, cached.CacheID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestShrinkScalesLargeImagesDown(t *testing.T) {
	data := noisyPNG(t, 700)
	require.Greater(t, len(data), shrinkAbove)

	out := Shrink(data, "png")
	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Less(t, img.Bounds().Dx(), 700)
	assert.Less(t, len(out), len(data))

	small := smallPNG(t)
	assert.Equal(t, small, Shrink(small, "png"))
	// formats imaging cannot write pass through
	blob := bytes.Repeat([]byte{1}, shrinkAbove+1)
	assert.Equal(t, blob, Shrink(blob, "webp"))
}

func TestUploadFallsBackToImageCache(t *testing.T) {
	m := mirror.New(kv.NewMemory())
	ctx := context.Background()

	for _, store := range []Store{nil, failingStore{}} {
		u := NewUploader(store, m.Images())
		up, err := u.Upload(ctx, "foto.png", "image/png", smallPNG(t))
		require.NoError(t, err)
		assert.True(t, up.Cached)
		assert.True(t, strings.HasPrefix(up.URL, "data:image/png;base64,"))

		img, found, err := m.Images().GetImage(ctx, up.CacheID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "foto.png", img.Name)
	}

	_, err := NewUploader(failingStore{}, nil).Upload(ctx, "foto.png", "image/png", smallPNG(t))
	assert.Error(t, err)
}

func TestMinio(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT_TEST")
	if endpoint == "" {
		t.Skip("minio tests are disabled; set MINIO_ENDPOINT_TEST to enable")
	}
	store, err := NewMinio(MinioConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("MINIO_ACCESS_KEY_TEST"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY_TEST"),
		Bucket:    "desaweb-test",
	})
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.EnsureBucket(ctx))

	url, err := store.Put(ctx, "images/test.png", smallPNG(t), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, "/desaweb-test/images/test.png"))
	require.NoError(t, store.Delete(ctx, "images/test.png"))
}

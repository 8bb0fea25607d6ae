package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "mirror", "berita-data")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "mirror", "berita-data", []byte(`[]`)))
	require.NoError(t, s.Set(ctx, "mirror", "umkm-data", []byte(`[{"id":"umkm_1"}]`)))
	require.NoError(t, s.Set(ctx, "other", "umkm-data", []byte(`x`)))

	v, err := s.Get(ctx, "mirror", "umkm-data")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"umkm_1"}]`, string(v))

	require.NoError(t, s.Set(ctx, "mirror", "umkm-data", []byte(`[]`)))
	v, err = s.Get(ctx, "mirror", "umkm-data")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(v))

	keys, err := s.List(ctx, "mirror")
	require.NoError(t, err)
	assert.Equal(t, []string{"berita-data", "umkm-data"}, keys)

	require.NoError(t, s.Delete(ctx, "mirror", "berita-data"))
	_, err = s.Get(ctx, "mirror", "berita-data")
	assert.ErrorIs(t, err, ErrNotFound)

	v, err = s.Get(ctx, "other", "umkm-data")
	require.NoError(t, err)
	assert.Equal(t, "x", string(v))
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryReturnsCopies(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "n", "k", buf))
	buf[0] = 'z'
	v, err := s.Get(ctx, "n", "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "mirror.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	ctx := context.Background()

	s1, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "mirror", "visitor-stats", []byte(`{"totalVisitors":3}`)))
	require.NoError(t, s1.Close())

	s2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()
	v, err := s2.Get(ctx, "mirror", "visitor-stats")
	require.NoError(t, err)
	assert.Equal(t, `{"totalVisitors":3}`, string(v))
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("redis tests are disabled; set REDIS_ADDR_TEST to enable")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	s := NewRedis(rdb, "desaweb-test:")
	defer s.Close()
	exerciseStore(t, s)
}

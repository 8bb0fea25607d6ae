package ident

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slugRE = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func fixedClock() func() time.Time {
	ts := time.Date(2024, 12, 15, 8, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Pengumuman Desa":               "pengumuman-desa",
		"  Festival Budaya 2024!! ":     "festival-budaya-2024",
		"Gotong-royong --- RT 03/RW 02": "gotong-royong-rt-03-rw-02",
		"Kafé Désa":                     "kafe-desa",
		"!!!":                           "",
		"":                              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}

func TestNewSlugShapeAndUniqueness(t *testing.T) {
	g := NewGenerator(fixedClock(), 1)
	a := g.NewSlug("Pengumuman Desa")
	b := g.NewSlug("Pengumuman Desa")

	for _, s := range []string{a, b} {
		assert.Regexp(t, slugRE, s)
		assert.True(t, strings.HasPrefix(s, "pengumuman-desa-"), s)
		assert.Greater(t, len(s), len("pengumuman-desa-"))
	}
	assert.NotEqual(t, a, b, "identical titles in the same millisecond must still differ")
}

func TestNewSlugEmptyTitle(t *testing.T) {
	g := NewGenerator(fixedClock(), 2)
	for _, title := range []string{"", "???", "   "} {
		s := g.NewSlug(title)
		require.NotEmpty(t, s)
		assert.Regexp(t, slugRE, s)
	}
}

func TestNewIDFormat(t *testing.T) {
	g := NewGenerator(fixedClock(), 3)
	id := g.NewID("berita")
	parts := strings.Split(id, "_")
	require.Len(t, parts, 5)
	assert.Equal(t, "berita", parts[0])
	assert.Equal(t, "1734249600000", parts[1])
	assert.Len(t, parts[2], 7)
	assert.Len(t, parts[3], 4)
	assert.Len(t, parts[4], 2)
	assert.NotEqual(t, id, g.NewID("berita"))
}

func TestRemoteSlugAndTail(t *testing.T) {
	s := RemoteSlug("Pengumuman Desa", 42)
	assert.Equal(t, "pengumuman-desa-42", s)
	assert.Equal(t, "42", RemoteSlug("???", 42))

	key, ok := SlugTailKey(s)
	require.True(t, ok)
	assert.Equal(t, int64(42), key)

	key, ok = SlugTailKey("42")
	require.True(t, ok)
	assert.Equal(t, int64(42), key)

	_, ok = SlugTailKey("pengumuman-desa-abc")
	assert.False(t, ok)
}

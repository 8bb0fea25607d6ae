// Package ident generates record identifiers and URL slugs.
package ident

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

var (
	nonSlugRE = regexp.MustCompile(`[^a-z0-9]+`)
	tailRE    = regexp.MustCompile(`-(\d+)$`)
)

// Generator produces ids and slugs from a clock and a random source.
type Generator struct {
	mu  sync.Mutex
	now func() time.Time
	rnd *rand.Rand
}

// NewGenerator builds a generator. A nil now uses time.Now; seed 0 seeds from the clock.
func NewGenerator(now func() time.Time, seed int64) *Generator {
	if now == nil {
		now = time.Now
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{now: now, rnd: rand.New(rand.NewSource(seed))}
}

var defaultGen = NewGenerator(nil, 0)

// NewID returns "<prefix>_<unix-ms>_<7>_<4>_<2>" with base-36 random segments.
func (g *Generator) NewID(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := strconv.FormatInt(g.now().UnixMilli(), 10)
	return prefix + "_" + ms + "_" + g.segment(7) + "_" + g.segment(4) + "_" + g.segment(2)
}

// NewSlug returns Slugify(title) followed by "-<unix-ms>-<6>-<2>". The suffix
// alone is still a valid slug when the title has no usable characters.
func (g *Generator) NewSlug(title string) string {
	g.mu.Lock()
	suffix := strconv.FormatInt(g.now().UnixMilli(), 10) + "-" + g.segment(6) + "-" + g.segment(2)
	g.mu.Unlock()
	return join(Slugify(title), suffix)
}

// segment must be called with g.mu held.
func (g *Generator) segment(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(base36[g.rnd.Intn(len(base36))])
	}
	return b.String()
}

// NewID uses the package generator.
func NewID(prefix string) string { return defaultGen.NewID(prefix) }

// NewSlug uses the package generator.
func NewSlug(title string) string { return defaultGen.NewSlug(title) }

// Slugify folds accents, lowercases, collapses every run outside [a-z0-9]
// into one hyphen and trims hyphens at both ends. The result may be empty.
func Slugify(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}
	s := nonSlugRE.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(s, "-")
}

// RemoteSlug derives the slug of a record that has a record store key.
func RemoteSlug(title string, key int64) string {
	return join(Slugify(title), strconv.FormatInt(key, 10))
}

// SlugTailKey extracts the numeric key a RemoteSlug ends with.
func SlugTailKey(slug string) (int64, bool) {
	if isDigits(slug) {
		n, err := strconv.ParseInt(slug, 10, 64)
		return n, err == nil && n > 0
	}
	m := tailRE.FindStringSubmatch(slug)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	return n, err == nil && n > 0
}

func join(base, suffix string) string {
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Package mirror is the local copy of the site's records. It keeps records
// that only exist locally (offline authoring, registrations made while the
// record store is unavailable) plus cached copies of record store rows.
//
// Every entity lives under one fixed key as a JSON document and every
// mutation rewrites that document whole, serialized by a per-mirror mutex.
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"desaweb/pkg/ident"
	"desaweb/pkg/kv"
)

// Keys of the persisted layout.
const (
	KeyNews     = "berita-data"
	KeyBusiness = "umkm-data"
	KeyImages   = "uploaded-images"
	KeyReviews  = "review-data"
	KeyVisitors = "visitor-stats"
)

// DefaultNamespace is the kv namespace the keys live under.
const DefaultNamespace = "mirror"

// Mirror groups the per-entity stores over one storage device.
type Mirror struct {
	store kv.Store
	ns    string
	gen   *ident.Generator
	now   func() time.Time
	mu    sync.Mutex
}

type Option func(*Mirror)

// WithNamespace stores the keys under ns instead of DefaultNamespace.
func WithNamespace(ns string) Option {
	return func(m *Mirror) { m.ns = ns }
}

// WithClock sets the clock used for registration dates, review and visit
// timestamps. The id generator keeps its own clock.
func WithClock(now func() time.Time) Option {
	return func(m *Mirror) { m.now = now }
}

// WithGenerator sets the id and slug generator.
func WithGenerator(g *ident.Generator) Option {
	return func(m *Mirror) { m.gen = g }
}

func New(store kv.Store, opts ...Option) *Mirror {
	m := &Mirror{store: store, ns: DefaultNamespace, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	if m.gen == nil {
		m.gen = ident.NewGenerator(m.now, 0)
	}
	return m
}

func (m *Mirror) News() *NewsStore { return &NewsStore{m: m} }
func (m *Mirror) Businesses() *BusinessStore { return &BusinessStore{m: m} }
func (m *Mirror) Reviews() *ReviewStore { return &ReviewStore{m: m} }
func (m *Mirror) Visitors() *VisitorStore { return &VisitorStore{m: m} }
func (m *Mirror) Images() *ImageCache { return &ImageCache{m: m} }

// Close releases the storage device.
func (m *Mirror) Close() error { return m.store.Close() }

// raw reads a key; ok is false when the key has never been written.
func (m *Mirror) raw(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := m.store.Get(ctx, m.ns, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mirror read %s: %w", key, err)
	}
	return b, true, nil
}

func (m *Mirror) save(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mirror encode %s: %w", key, err)
	}
	if err := m.store.Set(ctx, m.ns, key, b); err != nil {
		return fmt.Errorf("mirror write %s: %w", key, err)
	}
	return nil
}

// loadList decodes a JSON array key. An absent key is an empty list.
func loadList[T any](ctx context.Context, m *Mirror, key string) ([]T, error) {
	b, ok, err := m.raw(ctx, key)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if !ok || len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("mirror decode %s: %w", key, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (m *Mirror) today() string {
	return m.now().UTC().Format("2006-01-02")
}

// Package reconcile presents the record store and the local mirror as one
// logical collection per entity.
//
// Reads fetch both sides in parallel. A local record whose id matches a
// record store row is dropped in favour of the row; when their fields differ
// the listing reports a Conflict instead of discarding the edit silently.
// Writes go to the record store first and to the mirror unconditionally, so
// a failed remote call leaves the mirror ahead of the store. That divergence
// is reported, never rolled back.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"desaweb/pkg/events"
	"desaweb/pkg/logger"
	"desaweb/pkg/mirror"
	"desaweb/pkg/record"
	"desaweb/pkg/recordstore"
)

// Where an item of a listing came from.
const (
	SourceRemote = "remote"
	SourceLocal  = "local"
	// SourceCache is a mirror copy of a record store row, served while the
	// record store is unreachable.
	SourceCache = "cache"
)

type Options struct {
	// Remote is nil for mirror-only deployments.
	Remote recordstore.Client
	Mirror *mirror.Mirror
	// Bus receives an event for every successful mutation. Optional.
	Bus events.Bus
	Now func() time.Time
}

type Service struct {
	remote recordstore.Client
	mirror *mirror.Mirror
	bus    events.Bus
	now    func() time.Time
}

func New(opts Options) *Service {
	s := &Service{remote: opts.Remote, mirror: opts.Mirror, bus: opts.Bus, now: opts.Now}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) News() *NewsService           { return &NewsService{s: s} }
func (s *Service) Businesses() *BusinessService { return &BusinessService{s: s} }
func (s *Service) Reviews() *ReviewService      { return &ReviewService{s: s} }
func (s *Service) Visitors() *VisitorService    { return &VisitorService{s: s} }

// HasRemote reports whether a record store is configured.
func (s *Service) HasRemote() bool { return s.remote != nil }

// Conflict marks a record present in both stores with different values.
// The listing carries the record store's values.
type Conflict struct {
	ID     record.ID `json:"id"`
	Fields []string  `json:"fields"`
}

// Listing is a reconciled list. RemoteErr is set when the record store could
// not be read and the items come from the mirror only.
type Listing[T any] struct {
	Items     []T
	Conflicts []Conflict
	RemoteErr error
}

// Result is the outcome of a single read or write. RemoteErr is set when the
// record store call failed but the mirror still served or applied it.
type Result[T any] struct {
	Item      T
	Conflict  *Conflict
	RemoteErr error
}

type sourced[T any] struct {
	rec    T
	source string
}

// fetch reads the record store and the mirror in parallel. A record store
// failure is returned as remoteErr and does not cancel the mirror read; a
// mirror failure is fatal.
func fetch[T any](ctx context.Context, s *Service, t recordstore.Table, q recordstore.Query,
	conv func(map[string]any) T, local func(context.Context) ([]T, error)) (remote, mirrored []T, remoteErr, err error) {
	g, gctx := errgroup.WithContext(ctx)
	if s.remote != nil {
		g.Go(func() error {
			rows, err := s.remote.List(gctx, t, q)
			if err != nil {
				remoteErr = &RemoteError{Op: "list " + string(t), Err: err}
				return nil
			}
			remote = make([]T, 0, len(rows))
			for _, row := range rows {
				remote = append(remote, conv(row))
			}
			return nil
		})
	}
	g.Go(func() error {
		var err error
		mirrored, err = local(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	if remoteErr != nil {
		logger.WithField("table", string(t)).Warnf("serving mirror only: %v", remoteErr)
	}
	return remote, mirrored, remoteErr, nil
}

// merge puts the record store rows first, then the mirror records that do
// not share an id with any of them. Mirror copies of rows that have left the
// record store are dropped. Without remote rows (remoteOK false) the mirror
// is served whole.
func merge[T any](remote, local []T, remoteOK bool, idOf func(T) record.ID, diff func(remote, local T) []string) ([]sourced[T], []Conflict) {
	out := make([]sourced[T], 0, len(remote)+len(local))
	if !remoteOK {
		for _, l := range local {
			src := SourceLocal
			if idOf(l).IsRemote() {
				src = SourceCache
			}
			out = append(out, sourced[T]{l, src})
		}
		return out, nil
	}

	byKey := make(map[string]T, len(remote))
	for _, r := range remote {
		byKey[idOf(r).Key()] = r
		out = append(out, sourced[T]{r, SourceRemote})
	}
	var conflicts []Conflict
	for _, l := range local {
		id := idOf(l)
		r, dup := byKey[id.Key()]
		if dup && idOf(r).Equal(id) {
			if fields := diff(r, l); len(fields) > 0 {
				conflicts = append(conflicts, Conflict{ID: id, Fields: fields})
				logger.WithFields(logrus.Fields{"id": id.String(), "fields": fields}).
					Warn("mirror copy differs from record store, keeping record store values")
			}
			continue
		}
		if id.IsRemote() {
			continue
		}
		out = append(out, sourced[T]{l, SourceLocal})
	}
	return out, conflicts
}

// lookup resolves one record by id: the record store for remote ids, the
// mirror otherwise or when the record store is unreachable.
func lookup[T any](ctx context.Context, s *Service, t recordstore.Table, id record.ID,
	conv func(map[string]any) T, local func(context.Context, record.ID) (T, bool, error),
	diff func(remote, local T) []string) (rec T, source string, conflict *Conflict, remoteErr error, err error) {
	cached, inMirror, err := local(ctx, id)
	if err != nil {
		return rec, "", nil, nil, err
	}
	key, isRemote := id.RemoteKey()
	if !isRemote || s.remote == nil {
		if !inMirror {
			return rec, "", nil, nil, ErrNotFound
		}
		src := SourceLocal
		if isRemote {
			src = SourceCache
		}
		return cached, src, nil, nil, nil
	}

	row, rerr := s.remote.Get(ctx, t, key)
	switch {
	case rerr == nil:
		rec = conv(row)
		if inMirror {
			if fields := diff(rec, cached); len(fields) > 0 {
				conflict = &Conflict{ID: id, Fields: fields}
			}
		}
		return rec, SourceRemote, conflict, nil, nil
	case errors.Is(rerr, recordstore.ErrNotFound):
		return rec, "", nil, nil, ErrNotFound
	}
	remoteErr = &RemoteError{Op: "get " + string(t), ID: id.String(), Err: rerr}
	logger.WithField("id", id.String()).Warnf("record store lookup failed: %v", rerr)
	if !inMirror {
		return rec, "", nil, remoteErr, remoteErr
	}
	return cached, SourceCache, nil, remoteErr, nil
}

func (s *Service) publish(ctx context.Context, typ string, id record.ID, data any) {
	if s.bus == nil {
		return
	}
	ev := events.Event{Type: typ, ID: id.String(), Data: data}
	if err := s.bus.Publish(ctx, ev); err != nil {
		logger.WithFields(logrus.Fields{"type": typ, "id": id.String()}).Warnf("publish event: %v", err)
	}
}

// remoteFailed logs a record store write failure and wraps it.
func remoteFailed(op string, id record.ID, err error) error {
	logger.WithFields(logrus.Fields{"op": op, "id": id.String()}).
		Warnf("record store write failed, mirror updated anyway: %v", err)
	return &RemoteError{Op: op, ID: id.String(), Err: err}
}

package reconcile

import (
	"context"
	"errors"
	"strings"

	"desaweb/pkg/events"
	"desaweb/pkg/ident"
	"desaweb/pkg/logger"
	"desaweb/pkg/mirror"
	"desaweb/pkg/normalize"
	"desaweb/pkg/record"
	"desaweb/pkg/recordstore"
)

// NewsView is a news record as served: the stored fields plus the values
// derived at read time.
type NewsView struct {
	record.News
	Upcoming      bool   `json:"upcoming"`
	KategoriLabel string `json:"kategoriLabel"`
	Source        string `json:"source"`
}

type NewsFilter struct {
	Status   record.NewsStatus
	Kategori string
	// Query matches title, summary and author, case-insensitively.
	Query string
	// Upcoming keeps only records dated after now.
	Upcoming bool
}

type NewsService struct {
	s *Service
}

func (ns *NewsService) view(n record.News, source string) NewsView {
	return NewsView{
		News:          n,
		Upcoming:      n.Upcoming(ns.s.now()),
		KategoriLabel: record.NewsCategoryLabel(n.Kategori),
		Source:        source,
	}
}

// List returns the reconciled news collection: record store rows by date,
// newest first, followed by the records only the mirror holds.
func (ns *NewsService) List(ctx context.Context, f NewsFilter) (Listing[NewsView], error) {
	s := ns.s
	remote, local, remoteErr, err := fetch(ctx, s, recordstore.News,
		recordstore.Query{OrderBy: "tanggal", Desc: true}, normalize.News, s.mirror.News().GetAll)
	if err != nil {
		return Listing[NewsView]{}, err
	}
	merged, conflicts := merge(remote, local, remoteErr == nil && s.remote != nil, newsID, diffNews)
	out := Listing[NewsView]{Items: []NewsView{}, Conflicts: conflicts, RemoteErr: remoteErr}
	for _, m := range merged {
		v := ns.view(m.rec, m.source)
		if f.match(v) {
			out.Items = append(out.Items, v)
		}
	}
	return out, nil
}

// Published is the public listing: published records of both stores,
// newest date first.
func (ns *NewsService) Published(ctx context.Context, f NewsFilter) (Listing[NewsView], error) {
	f.Status = record.NewsPublished
	l, err := ns.List(ctx, f)
	if err != nil {
		return l, err
	}
	sortViews(l.Items)
	return l, nil
}

func (f NewsFilter) match(v NewsView) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.Kategori != "" && f.Kategori != "all" && v.Kategori != f.Kategori {
		return false
	}
	if f.Upcoming && !v.Upcoming {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return containsAny(q, v.Judul, v.Ringkasan, v.Penulis)
	}
	return true
}

// Get resolves a news record by id.
func (ns *NewsService) Get(ctx context.Context, id record.ID) (Result[NewsView], error) {
	n, src, conflict, remoteErr, err := lookup(ctx, ns.s, recordstore.News, id, normalize.News,
		ns.s.mirror.News().GetByID, diffNews)
	if err != nil {
		return Result[NewsView]{RemoteErr: remoteErr}, err
	}
	return Result[NewsView]{Item: ns.view(n, src), Conflict: conflict, RemoteErr: remoteErr}, nil
}

// GetBySlug looks in the mirror first, then the record store by slug, then
// by the numeric key a record store slug ends with.
func (ns *NewsService) GetBySlug(ctx context.Context, slug string) (Result[NewsView], error) {
	s := ns.s
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Result[NewsView]{}, ErrNotFound
	}
	cached, inMirror, err := s.mirror.News().GetBySlug(ctx, slug)
	if err != nil {
		return Result[NewsView]{}, err
	}
	if inMirror && cached.ID.IsLocal() {
		return Result[NewsView]{Item: ns.view(cached, SourceLocal)}, nil
	}
	if s.remote == nil {
		if inMirror {
			return Result[NewsView]{Item: ns.view(cached, SourceCache)}, nil
		}
		return Result[NewsView]{}, ErrNotFound
	}

	n, found, rerr := ns.remoteBySlug(ctx, slug)
	if rerr == nil {
		if found {
			return Result[NewsView]{Item: ns.view(n, SourceRemote)}, nil
		}
		return Result[NewsView]{}, ErrNotFound
	}
	remoteErr := &RemoteError{Op: "get berita", ID: slug, Err: rerr}
	logger.WithField("slug", slug).Warnf("record store lookup failed: %v", rerr)
	if inMirror {
		return Result[NewsView]{Item: ns.view(cached, SourceCache), RemoteErr: remoteErr}, nil
	}
	return Result[NewsView]{RemoteErr: remoteErr}, remoteErr
}

func (ns *NewsService) remoteBySlug(ctx context.Context, slug string) (record.News, bool, error) {
	rows, err := ns.s.remote.List(ctx, recordstore.News, recordstore.Query{Eq: map[string]any{"slug": slug}, Limit: 1})
	if err != nil {
		return record.News{}, false, err
	}
	if len(rows) > 0 {
		return normalize.News(rows[0]), true, nil
	}
	key, ok := ident.SlugTailKey(slug)
	if !ok {
		return record.News{}, false, nil
	}
	row, err := ns.s.remote.Get(ctx, recordstore.News, key)
	if errors.Is(err, recordstore.ErrNotFound) {
		return record.News{}, false, nil
	}
	if err != nil {
		return record.News{}, false, err
	}
	return normalize.News(row), true, nil
}

// Create validates n and stores it in the record store, or in the mirror
// when no record store is configured or the insert fails. A record store
// row gets the slug RemoteSlug(title, key).
func (ns *NewsService) Create(ctx context.Context, n record.News) (Result[NewsView], error) {
	if ns.s.remote == nil {
		return ns.CreateLocal(ctx, n)
	}
	n, err := ns.prepare(n)
	if err != nil {
		return Result[NewsView]{}, err
	}
	stored, err := ns.insert(ctx, n, "")
	if err != nil {
		remoteErr := &RemoteError{Op: "insert berita", Err: err}
		logger.WithField("judul", n.Judul).Warnf("record store insert failed, keeping the record in the mirror: %v", err)
		res, lerr := ns.addLocal(ctx, n)
		res.RemoteErr = remoteErr
		return res, lerr
	}
	if err := ns.s.mirror.News().Put(ctx, stored); err != nil {
		logger.WithField("id", stored.ID.String()).Warnf("cache news copy: %v", err)
	}
	ns.s.publish(ctx, events.NewsCreated, stored.ID, map[string]any{"slug": stored.Slug, "status": stored.Status})
	return Result[NewsView]{Item: ns.view(stored, SourceRemote)}, nil
}

// CreateLocal stores n in the mirror only, as offline authoring does.
func (ns *NewsService) CreateLocal(ctx context.Context, n record.News) (Result[NewsView], error) {
	n, err := ns.prepare(n)
	if err != nil {
		return Result[NewsView]{}, err
	}
	return ns.addLocal(ctx, n)
}

func (ns *NewsService) addLocal(ctx context.Context, n record.News) (Result[NewsView], error) {
	stored, err := ns.s.mirror.News().Add(ctx, n)
	if err != nil {
		return Result[NewsView]{}, err
	}
	ns.s.publish(ctx, events.NewsCreated, stored.ID, map[string]any{"slug": stored.Slug, "status": stored.Status})
	return Result[NewsView]{Item: ns.view(stored, SourceLocal)}, nil
}

// insert writes n as a new row. An empty slug becomes RemoteSlug once the
// key is known.
func (ns *NewsService) insert(ctx context.Context, n record.News, slug string) (record.News, error) {
	n.Slug = slug
	row, err := ns.s.remote.Insert(ctx, recordstore.News, normalize.NewsRow(n))
	if err != nil {
		return record.News{}, err
	}
	stored := normalize.News(row)
	if slug != "" {
		return stored, nil
	}
	key, _ := stored.ID.RemoteKey()
	stored.Slug = ident.RemoteSlug(stored.Judul, key)
	if err := ns.s.remote.Update(ctx, recordstore.News, key, map[string]any{"slug": stored.Slug}); err != nil {
		// the slug is still derivable from the key on read
		logger.WithField("id", stored.ID.String()).Warnf("set slug: %v", err)
	}
	return stored, nil
}

// prepare fills creation defaults and validates.
func (ns *NewsService) prepare(n record.News) (record.News, error) {
	n.Judul = strings.TrimSpace(n.Judul)
	if n.Status == "" {
		n.Status = record.NewsDraft
	}
	if strings.TrimSpace(n.Penulis) == "" {
		n.Penulis = record.DefaultAuthor
	}
	if n.Status == record.NewsPublished && strings.TrimSpace(n.Tanggal) == "" {
		n.Tanggal = ns.s.now().Format(record.DateLayout)
	}
	return n, validateNews(n)
}

// Update applies patch to the record with id. The slug never changes.
func (ns *NewsService) Update(ctx context.Context, id record.ID, patch record.NewsPatch) (Result[NewsView], error) {
	cur, err := ns.Get(ctx, id)
	if err != nil {
		return cur, err
	}
	next := patch.Apply(cur.Item.News)
	next.Slug = cur.Item.Slug
	if err := validateNews(next); err != nil {
		return Result[NewsView]{}, err
	}
	return ns.write(ctx, id, next, cur.RemoteErr, events.NewsUpdated)
}

// SetStatus moves a record between draft, published and scheduled. A record
// published without a date is dated today.
func (ns *NewsService) SetStatus(ctx context.Context, id record.ID, status record.NewsStatus) (Result[NewsView], error) {
	if !status.Valid() {
		return Result[NewsView]{}, invalid("status", "status tidak dikenal")
	}
	cur, err := ns.Get(ctx, id)
	if err != nil {
		return cur, err
	}
	next := cur.Item.News
	next.Status = status
	if status == record.NewsPublished && strings.TrimSpace(next.Tanggal) == "" {
		next.Tanggal = ns.s.now().Format(record.DateLayout)
	}
	if err := validateNews(next); err != nil {
		return Result[NewsView]{}, err
	}
	return ns.write(ctx, id, next, cur.RemoteErr, events.NewsUpdated)
}

// write stores next in the record store when id is a record store key, then
// in the mirror whatever the record store said.
func (ns *NewsService) write(ctx context.Context, id record.ID, next record.News, readErr error, event string) (Result[NewsView], error) {
	s := ns.s
	res := Result[NewsView]{RemoteErr: readErr}
	source := SourceLocal
	if key, ok := id.RemoteKey(); ok && s.remote != nil {
		source = SourceRemote
		if readErr == nil {
			row := normalize.NewsRow(next)
			if err := s.remote.Update(ctx, recordstore.News, key, row); err != nil {
				res.RemoteErr = remoteFailed("update berita", id, err)
			}
		}
		if res.RemoteErr != nil {
			source = SourceCache
		}
	}
	if err := s.mirror.News().Put(ctx, next); err != nil {
		return res, err
	}
	res.Item = ns.view(next, source)
	s.publish(ctx, event, id, map[string]any{"status": next.Status})
	return res, nil
}

// Delete removes the record from every store holding it.
func (ns *NewsService) Delete(ctx context.Context, id record.ID) (Result[record.ID], error) {
	return ns.DeleteWith(ctx, ns.s.remote, id)
}

// DeleteWith deletes through client instead of the service's record store
// client; the deletion endpoint passes one with elevated credentials.
func (ns *NewsService) DeleteWith(ctx context.Context, client recordstore.Client, id record.ID) (Result[record.ID], error) {
	s := ns.s
	res := Result[record.ID]{Item: id}
	if id.IsZero() {
		return res, invalid("id", "ID tidak diberikan")
	}
	remoteDeleted := false
	if key, ok := id.RemoteKey(); ok && client != nil {
		err := client.Delete(ctx, recordstore.News, key)
		switch {
		case err == nil:
			remoteDeleted = true
		case !errors.Is(err, recordstore.ErrNotFound):
			res.RemoteErr = remoteFailed("delete berita", id, err)
		}
	}
	localDeleted, err := s.mirror.News().Delete(ctx, id)
	if err != nil {
		return res, err
	}
	if !remoteDeleted && !localDeleted {
		if res.RemoteErr != nil {
			return res, res.RemoteErr
		}
		return res, ErrNotFound
	}
	s.publish(ctx, events.NewsDeleted, id, nil)
	return res, nil
}

func newsID(n record.News) record.ID { return n.ID }

func diffNews(a, b record.News) []string {
	var out []string
	add := func(name string, differ bool) {
		if differ {
			out = append(out, name)
		}
	}
	add("judul", a.Judul != b.Judul)
	add("kategori", a.Kategori != b.Kategori)
	add("ringkasan", a.Ringkasan != b.Ringkasan)
	add("konten", a.Konten != b.Konten)
	add("penulis", a.Penulis != b.Penulis)
	add("tanggal", a.Tanggal != b.Tanggal)
	add("status", a.Status != b.Status)
	add("gambarUrl", a.GambarURL != b.GambarURL)
	add("slug", a.Slug != b.Slug)
	return out
}

func sortViews(items []NewsView) {
	list := make([]record.News, len(items))
	byKey := make(map[string]NewsView, len(items))
	for i, v := range items {
		list[i] = v.News
		byKey[v.ID.Key()] = v
	}
	mirror.SortNewsByDate(list)
	for i, n := range list {
		items[i] = byKey[n.ID.Key()]
	}
}

func containsAny(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

package mirror

import (
	"context"
	"errors"
	"sort"

	"desaweb/pkg/record"
)

// NewsStore keeps news records under KeyNews.
type NewsStore struct {
	m *Mirror
}

func (s *NewsStore) GetAll(ctx context.Context) ([]record.News, error) {
	return loadList[record.News](ctx, s.m, KeyNews)
}

// Add stores a new locally authored record. It assigns a local id and a
// slug; a missing status becomes draft and a missing author the default.
func (s *NewsStore) Add(ctx context.Context, n record.News) (record.News, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	all, err := s.GetAll(ctx)
	if err != nil {
		return record.News{}, err
	}
	n.ID = record.Local(s.m.gen.NewID("berita"))
	n.Slug = s.m.gen.NewSlug(n.Judul)
	if n.Status == "" {
		n.Status = record.NewsDraft
	}
	if n.Penulis == "" {
		n.Penulis = record.DefaultAuthor
	}
	all = append(all, n)
	if err := s.m.save(ctx, KeyNews, all); err != nil {
		return record.News{}, err
	}
	return n, nil
}

// Put inserts n or replaces the record with the same id. It is how copies
// of record store rows enter the mirror.
func (s *NewsStore) Put(ctx context.Context, n record.News) error {
	if n.ID.IsZero() {
		return errors.New("mirror: news record without id")
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	all, err := s.GetAll(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range all {
		if all[i].ID.Equal(n.ID) {
			all[i] = n
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, n)
	}
	return s.m.save(ctx, KeyNews, all)
}

// Update applies patch to the record with id. found is false, and nothing
// is written, when no record matches.
func (s *NewsStore) Update(ctx context.Context, id record.ID, patch record.NewsPatch) (n record.News, found bool, err error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	all, err := s.GetAll(ctx)
	if err != nil {
		return record.News{}, false, err
	}
	for i := range all {
		if all[i].ID.Equal(id) {
			all[i] = patch.Apply(all[i])
			if err := s.m.save(ctx, KeyNews, all); err != nil {
				return record.News{}, true, err
			}
			return all[i], true, nil
		}
	}
	return record.News{}, false, nil
}

func (s *NewsStore) Delete(ctx context.Context, id record.ID) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	all, err := s.GetAll(ctx)
	if err != nil {
		return false, err
	}
	kept := all[:0]
	removed := false
	for _, n := range all {
		if n.ID.Equal(id) {
			removed = true
			continue
		}
		kept = append(kept, n)
	}
	if !removed {
		return false, nil
	}
	return true, s.m.save(ctx, KeyNews, kept)
}

func (s *NewsStore) GetByID(ctx context.Context, id record.ID) (record.News, bool, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return record.News{}, false, err
	}
	for _, n := range all {
		if n.ID.Equal(id) {
			return n, true, nil
		}
	}
	return record.News{}, false, nil
}

func (s *NewsStore) GetBySlug(ctx context.Context, slug string) (record.News, bool, error) {
	if slug == "" {
		return record.News{}, false, nil
	}
	all, err := s.GetAll(ctx)
	if err != nil {
		return record.News{}, false, err
	}
	for _, n := range all {
		if n.Slug == slug {
			return n, true, nil
		}
	}
	return record.News{}, false, nil
}

// GetPublished returns published records, newest date first.
func (s *NewsStore) GetPublished(ctx context.Context) ([]record.News, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]record.News, 0, len(all))
	for _, n := range all {
		if n.Status == record.NewsPublished {
			out = append(out, n)
		}
	}
	SortNewsByDate(out)
	return out, nil
}

// SortNewsByDate orders records newest first. Records without a readable
// date go last; ties keep their stored order.
func SortNewsByDate(list []record.News) {
	sort.SliceStable(list, func(i, j int) bool {
		ti, oki := list[i].Date()
		tj, okj := list[j].Date()
		if oki != okj {
			return oki
		}
		return ti.After(tj)
	})
}

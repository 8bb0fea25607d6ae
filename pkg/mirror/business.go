package mirror

import (
	"context"
	"errors"

	"desaweb/pkg/record"
)

// BusinessStore keeps UMKM records under KeyBusiness.
type BusinessStore struct {
	m *Mirror
}

func (s *BusinessStore) GetAll(ctx context.Context) ([]record.Business, error) {
	return loadList[record.Business](ctx, s.m, KeyBusiness)
}

// Add stores a new registration with a local id, today's date and status
// pending, whatever status the input carried.
func (s *BusinessStore) Add(ctx context.Context, b record.Business) (record.Business, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	all, err := s.GetAll(ctx)
	if err != nil {
		return record.Business{}, err
	}
	b.ID = record.Local(s.m.gen.NewID("umkm"))
	b.TanggalDaftar = s.m.today()
	b.Status = record.BusinessPending
	all = append(all, b)
	if err := s.m.save(ctx, KeyBusiness, all); err != nil {
		return record.Business{}, err
	}
	return b, nil
}

// Put inserts b or replaces the record with the same id.
func (s *BusinessStore) Put(ctx context.Context, b record.Business) error {
	if b.ID.IsZero() {
		return errors.New("mirror: business record without id")
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	all, err := s.GetAll(ctx)
	if err != nil {
		return err
	}
	for i := range all {
		if all[i].ID.Equal(b.ID) {
			all[i] = b
			return s.m.save(ctx, KeyBusiness, all)
		}
	}
	return s.m.save(ctx, KeyBusiness, append(all, b))
}

// Update applies patch to the record with id; a missing id is a no-op.
func (s *BusinessStore) Update(ctx context.Context, id record.ID, patch record.BusinessPatch) (record.Business, bool, error) {
	return s.modify(ctx, id, patch.Apply)
}

// UpdateStatus sets the moderation status of the record with id.
func (s *BusinessStore) UpdateStatus(ctx context.Context, id record.ID, status record.BusinessStatus) (record.Business, bool, error) {
	return s.modify(ctx, id, func(b record.Business) record.Business {
		b.Status = status
		return b
	})
}

func (s *BusinessStore) modify(ctx context.Context, id record.ID, fn func(record.Business) record.Business) (record.Business, bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	all, err := s.GetAll(ctx)
	if err != nil {
		return record.Business{}, false, err
	}
	for i := range all {
		if all[i].ID.Equal(id) {
			all[i] = fn(all[i])
			if err := s.m.save(ctx, KeyBusiness, all); err != nil {
				return record.Business{}, true, err
			}
			return all[i], true, nil
		}
	}
	return record.Business{}, false, nil
}

func (s *BusinessStore) Delete(ctx context.Context, id record.ID) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	all, err := s.GetAll(ctx)
	if err != nil {
		return false, err
	}
	for i := range all {
		if all[i].ID.Equal(id) {
			all = append(all[:i], all[i+1:]...)
			return true, s.m.save(ctx, KeyBusiness, all)
		}
	}
	return false, nil
}

func (s *BusinessStore) GetByID(ctx context.Context, id record.ID) (record.Business, bool, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return record.Business{}, false, err
	}
	for _, b := range all {
		if b.ID.Equal(id) {
			return b, true, nil
		}
	}
	return record.Business{}, false, nil
}

// GetApproved returns the approved records in stored order.
func (s *BusinessStore) GetApproved(ctx context.Context) ([]record.Business, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterApproved(all), nil
}

// FilterApproved keeps approved records, preserving order.
func FilterApproved(list []record.Business) []record.Business {
	out := make([]record.Business, 0, len(list))
	for _, b := range list {
		if b.Status == record.BusinessApproved {
			out = append(out, b)
		}
	}
	return out
}

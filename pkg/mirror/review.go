package mirror

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"desaweb/pkg/record"
)

var (
	ErrInvalidRating = errors.New("rating harus bilangan bulat 1 sampai 5")
	ErrNoBusiness    = errors.New("ulasan tanpa UMKM")
)

// ReviewStore keeps reviews under KeyReviews.
type ReviewStore struct {
	m *Mirror
}

func (s *ReviewStore) GetAll(ctx context.Context) ([]record.Review, error) {
	return loadList[record.Review](ctx, s.m, KeyReviews)
}

// Add validates and stores a review, stamping its id and time.
func (s *ReviewStore) Add(ctx context.Context, r record.Review) (record.Review, error) {
	if r.Rating < 1 || r.Rating > 5 {
		return record.Review{}, ErrInvalidRating
	}
	if strings.TrimSpace(r.UmkmID) == "" {
		return record.Review{}, ErrNoBusiness
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	all, err := s.GetAll(ctx)
	if err != nil {
		return record.Review{}, err
	}
	r.ID = s.m.gen.NewID("review")
	r.Tanggal = s.m.now().UTC().Format(time.RFC3339)
	all = append(all, r)
	if err := s.m.save(ctx, KeyReviews, all); err != nil {
		return record.Review{}, err
	}
	return r, nil
}

func (s *ReviewStore) GetByUmkmID(ctx context.Context, umkmID string) ([]record.Review, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := []record.Review{}
	for _, r := range all {
		if r.UmkmID == umkmID {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetAverageRating is the mean rating of a business rounded to one decimal.
// No reviews gives 0 and 0.
func (s *ReviewStore) GetAverageRating(ctx context.Context, umkmID string) (record.Rating, error) {
	reviews, err := s.GetByUmkmID(ctx, umkmID)
	if err != nil {
		return record.Rating{}, err
	}
	return AverageRating(reviews), nil
}

func AverageRating(reviews []record.Review) record.Rating {
	if len(reviews) == 0 {
		return record.Rating{}
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	avg := float64(total) / float64(len(reviews))
	return record.Rating{Average: math.Round(avg*10) / 10, Count: len(reviews)}
}

func (s *ReviewStore) Delete(ctx context.Context, id string) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	all, err := s.GetAll(ctx)
	if err != nil {
		return false, err
	}
	for i := range all {
		if all[i].ID == id {
			all = append(all[:i], all[i+1:]...)
			return true, s.m.save(ctx, KeyReviews, all)
		}
	}
	return false, nil
}

// Reassign moves every review of business from to business to. It reports
// how many reviews moved.
func (s *ReviewStore) Reassign(ctx context.Context, from, to string) (int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	all, err := s.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	moved := 0
	for i := range all {
		if all[i].UmkmID == from {
			all[i].UmkmID = to
			moved++
		}
	}
	if moved == 0 {
		return 0, nil
	}
	return moved, s.m.save(ctx, KeyReviews, all)
}

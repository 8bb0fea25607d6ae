package reconcile

import (
	"context"
	"errors"
	"strings"

	"desaweb/pkg/events"
	"desaweb/pkg/mirror"
	"desaweb/pkg/record"
)

// ReviewService keeps reviews in the mirror; the record store has no review
// table.
type ReviewService struct {
	s *Service
}

// Add stores a review for an existing business.
func (rs *ReviewService) Add(ctx context.Context, business record.ID, r record.Review) (record.Review, error) {
	if r.Rating < 1 || r.Rating > 5 {
		return record.Review{}, invalid("rating", mirror.ErrInvalidRating.Error())
	}
	r.Nama = strings.TrimSpace(r.Nama)
	if r.Nama == "" {
		return record.Review{}, invalid("nama", "nama wajib diisi")
	}
	if _, err := rs.s.Businesses().Get(ctx, business); err != nil {
		return record.Review{}, err
	}
	r.UmkmID = business.String()
	stored, err := rs.s.mirror.Reviews().Add(ctx, r)
	if errors.Is(err, mirror.ErrInvalidRating) || errors.Is(err, mirror.ErrNoBusiness) {
		return record.Review{}, invalid("rating", err.Error())
	}
	if err != nil {
		return record.Review{}, err
	}
	rs.s.publish(ctx, events.ReviewCreated, business, map[string]any{"rating": stored.Rating})
	return stored, nil
}

func (rs *ReviewService) List(ctx context.Context, business record.ID) ([]record.Review, error) {
	return rs.s.mirror.Reviews().GetByUmkmID(ctx, business.String())
}

func (rs *ReviewService) Rating(ctx context.Context, business record.ID) (record.Rating, error) {
	return rs.s.mirror.Reviews().GetAverageRating(ctx, business.String())
}

type VisitorService struct {
	s *Service
}

// Track counts one visit. Callers decide what a visit is.
func (vs *VisitorService) Track(ctx context.Context) (record.VisitorStats, error) {
	st, err := vs.s.mirror.Visitors().TrackVisitor(ctx)
	if err != nil {
		return st, err
	}
	vs.s.publish(ctx, events.VisitorTracked, record.ID{}, map[string]any{
		"totalVisitors": st.TotalVisitors,
		"dailyVisitors": st.DailyVisitors,
	})
	return st, nil
}

func (vs *VisitorService) Stats(ctx context.Context) (record.VisitorStats, error) {
	return vs.s.mirror.Visitors().GetStats(ctx)
}

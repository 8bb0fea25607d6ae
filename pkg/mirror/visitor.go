package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"desaweb/pkg/record"
)

// HistoryDays is how long per-day visit counts are retained.
const HistoryDays = 90

// VisitorStore keeps the visit counters under KeyVisitors.
type VisitorStore struct {
	m *Mirror
}

// GetStats returns the counters, writing zeroed counters the first time.
func (s *VisitorStore) GetStats(ctx context.Context) (record.VisitorStats, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.load(ctx)
}

func (s *VisitorStore) load(ctx context.Context) (record.VisitorStats, error) {
	b, ok, err := s.m.raw(ctx, KeyVisitors)
	if err != nil {
		return record.VisitorStats{}, err
	}
	if !ok {
		st := record.VisitorStats{
			LastVisit:    s.m.now().UTC().Format(time.RFC3339),
			VisitHistory: []record.VisitDay{},
		}
		return st, s.m.save(ctx, KeyVisitors, st)
	}
	var st record.VisitorStats
	if err := json.Unmarshal(b, &st); err != nil {
		return record.VisitorStats{}, fmt.Errorf("mirror decode %s: %w", KeyVisitors, err)
	}
	if st.VisitHistory == nil {
		st.VisitHistory = []record.VisitDay{}
	}
	return st, nil
}

// TrackVisitor counts one visit. Every call counts; deciding what makes a
// visit is the caller's job.
func (s *VisitorStore) TrackVisitor(ctx context.Context) (record.VisitorStats, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	st, err := s.load(ctx)
	if err != nil {
		return record.VisitorStats{}, err
	}
	st = Track(st, s.m.now())
	if err := s.m.save(ctx, KeyVisitors, st); err != nil {
		return record.VisitorStats{}, err
	}
	return st, nil
}

// Track applies one visit at now to st and returns the result.
func Track(st record.VisitorStats, now time.Time) record.VisitorStats {
	now = now.UTC()
	today := now.Format(record.DateLayout)
	month := today[:7]

	st.TotalVisitors++
	found := false
	for i := range st.VisitHistory {
		if st.VisitHistory[i].Date == today {
			st.VisitHistory[i].Count++
			found = true
			break
		}
	}
	if !found {
		st.VisitHistory = append(st.VisitHistory, record.VisitDay{Date: today, Count: 1})
	}

	cutoff := now.AddDate(0, 0, -HistoryDays)
	kept := make([]record.VisitDay, 0, len(st.VisitHistory))
	for _, d := range st.VisitHistory {
		t, err := time.Parse(record.DateLayout, d.Date)
		if err != nil || t.Before(cutoff) {
			continue
		}
		kept = append(kept, d)
	}
	st.VisitHistory = kept

	st.MonthlyVisitors = 0
	st.DailyVisitors = 0
	for _, d := range kept {
		if strings.HasPrefix(d.Date, month) {
			st.MonthlyVisitors += d.Count
		}
		if d.Date == today {
			st.DailyVisitors = d.Count
		}
	}
	st.LastVisit = now.Format(time.RFC3339)
	return st
}

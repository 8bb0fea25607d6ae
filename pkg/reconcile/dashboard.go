package reconcile

import (
	"context"
	"fmt"
	"sort"

	"desaweb/pkg/record"
)

type DashboardStats struct {
	TotalUMKM       int    `json:"totalUMKM"`
	ApprovedUMKM    int    `json:"approvedUMKM"`
	PendingUMKM     int    `json:"pendingUMKM"`
	RejectedUMKM    int    `json:"rejectedUMKM"`
	TotalBerita     int    `json:"totalBerita"`
	PublishedBerita int    `json:"publishedBerita"`
	DraftBerita     int    `json:"draftBerita"`
	ScheduledBerita int    `json:"scheduledBerita"`
	TotalReviews    int    `json:"totalReviews"`
	PendingReviews  int    `json:"pendingReviews"`
	TotalVisitors   int    `json:"totalVisitors"`
	MonthlyVisitors int    `json:"monthlyVisitors"`
	DailyVisitors   int    `json:"dailyVisitors"`
	LastVisit       string `json:"lastVisit"`
}

type Activity struct {
	Type    string `json:"type"` // umkm | berita | review
	Message string `json:"message"`
	Time    string `json:"time"`
	ID      string `json:"id"`
}

type Dashboard struct {
	Stats      DashboardStats `json:"stats"`
	Activities []Activity     `json:"activities"`
	Conflicts  []Conflict     `json:"conflicts,omitempty"`
	RemoteErr  error          `json:"-"`
}

const maxActivities = 5

// Dashboard summarises both collections, the reviews and the visit counters
// for the admin home page.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	news, err := s.News().List(ctx, NewsFilter{})
	if err != nil {
		return Dashboard{}, err
	}
	businesses, err := s.Businesses().List(ctx, BusinessFilter{})
	if err != nil {
		return Dashboard{}, err
	}
	reviews, err := s.mirror.Reviews().GetAll(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	visits, err := s.mirror.Visitors().GetStats(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Activities: []Activity{},
		Conflicts:  append(news.Conflicts, businesses.Conflicts...),
		RemoteErr:  news.RemoteErr,
	}
	if d.RemoteErr == nil {
		d.RemoteErr = businesses.RemoteErr
	}
	st := &d.Stats
	st.TotalUMKM = len(businesses.Items)
	for _, b := range businesses.Items {
		switch b.Status {
		case record.BusinessApproved:
			st.ApprovedUMKM++
		case record.BusinessPending:
			st.PendingUMKM++
		case record.BusinessRejected:
			st.RejectedUMKM++
		}
	}
	st.TotalBerita = len(news.Items)
	for _, n := range news.Items {
		switch n.Status {
		case record.NewsPublished:
			st.PublishedBerita++
		case record.NewsDraft:
			st.DraftBerita++
		case record.NewsScheduled:
			st.ScheduledBerita++
		}
	}
	st.TotalReviews = len(reviews)
	st.TotalVisitors = visits.TotalVisitors
	st.MonthlyVisitors = visits.MonthlyVisitors
	st.DailyVisitors = visits.DailyVisitors
	st.LastVisit = visits.LastVisit

	d.Activities = recentActivities(news.Items, businesses.Items, reviews)
	return d, nil
}

// recentActivities takes the three newest pending registrations, the three
// newest published articles and the two newest reviews of an existing
// business, and keeps the five most recent of those.
func recentActivities(news []NewsView, businesses []BusinessView, reviews []record.Review) []Activity {
	out := []Activity{}

	pending := make([]BusinessView, 0, len(businesses))
	names := make(map[string]string, len(businesses))
	for _, b := range businesses {
		names[b.ID.String()] = b.NamaUsaha
		if b.Status == record.BusinessPending {
			pending = append(pending, b)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return newer(pending[i].TanggalDaftar, pending[j].TanggalDaftar)
	})
	for _, b := range first(pending, 3) {
		out = append(out, Activity{
			Type:    "umkm",
			Message: fmt.Sprintf("UMKM baru terdaftar: \"%s\"", b.NamaUsaha),
			Time:    b.TanggalDaftar,
			ID:      b.ID.String(),
		})
	}

	published := make([]NewsView, 0, len(news))
	for _, n := range news {
		if n.Status == record.NewsPublished {
			published = append(published, n)
		}
	}
	sortViews(published)
	for _, n := range first(published, 3) {
		out = append(out, Activity{
			Type:    "berita",
			Message: fmt.Sprintf("Berita dipublikasi: \"%s\"", n.Judul),
			Time:    n.Tanggal,
			ID:      n.ID.String(),
		})
	}

	recent := append([]record.Review(nil), reviews...)
	sort.SliceStable(recent, func(i, j int) bool { return newer(recent[i].Tanggal, recent[j].Tanggal) })
	added := 0
	for _, r := range recent {
		if added == 2 {
			break
		}
		name, ok := names[r.UmkmID]
		if !ok {
			continue
		}
		out = append(out, Activity{
			Type:    "review",
			Message: fmt.Sprintf("Ulasan baru untuk \"%s\" (%d bintang)", name, r.Rating),
			Time:    r.Tanggal,
			ID:      r.ID,
		})
		added++
	}

	sort.SliceStable(out, func(i, j int) bool { return newer(out[i].Time, out[j].Time) })
	return first(out, maxActivities)
}

// newer orders readable dates before unreadable ones, latest first.
func newer(a, b string) bool {
	ta, oka := record.ParseDate(a)
	tb, okb := record.ParseDate(b)
	if oka != okb {
		return oka
	}
	return ta.After(tb)
}

func first[T any](list []T, n int) []T {
	if len(list) > n {
		return list[:n]
	}
	return list
}

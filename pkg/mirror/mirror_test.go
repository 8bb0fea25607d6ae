package mirror

import (
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"desaweb/pkg/ident"
	"desaweb/pkg/kv"
	"desaweb/pkg/record"
)

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestMirror(t *testing.T) (*Mirror, kv.Store) {
	t.Helper()
	store := kv.NewMemory()
	clock := func() time.Time { return testNow }
	m := New(store, WithClock(clock), WithGenerator(ident.NewGenerator(clock, 42)))
	return m, store
}

func TestGetAllEmptyWhenAbsent(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	news, err := m.News().GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, news)
	assert.Empty(t, news)

	list, err := m.Businesses().GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCorruptDocumentIsAnError(t *testing.T) {
	m, store := newTestMirror(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, DefaultNamespace, KeyNews, []byte("{not json")))

	_, err := m.News().GetAll(ctx)
	assert.Error(t, err)
	_, err = m.News().Add(ctx, record.News{Judul: "x"})
	assert.Error(t, err)
}

func TestNewsAddAssignsIdentity(t *testing.T) {
	m, store := newTestMirror(t)
	ctx := context.Background()

	n, err := m.News().Add(ctx, record.News{Judul: "Kerja Bakti", Tanggal: "2025-03-10"})
	require.NoError(t, err)
	assert.True(t, n.ID.IsLocal())
	assert.True(t, strings.HasPrefix(n.ID.String(), "berita_1742032800000_"))
	assert.True(t, strings.HasPrefix(n.Slug, "kerja-bakti-1742032800000-"))
	assert.Equal(t, record.NewsDraft, n.Status)
	assert.Equal(t, record.DefaultAuthor, n.Penulis)

	raw, err := store.Get(ctx, DefaultNamespace, KeyNews)
	require.NoError(t, err)
	var stored []map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, n.ID.String(), stored[0]["id"])
}

func TestDuplicateTitlesGetDistinctSlugs(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()
	slugRE := regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

	a, err := m.News().Add(ctx, record.News{Judul: "Pengumuman Desa", Konten: "pertama"})
	require.NoError(t, err)
	b, err := m.News().Add(ctx, record.News{Judul: "Pengumuman Desa", Konten: "kedua"})
	require.NoError(t, err)

	assert.NotEqual(t, a.Slug, b.Slug)
	assert.Regexp(t, slugRE, a.Slug)
	assert.Regexp(t, slugRE, b.Slug)

	got, ok, err := m.News().GetBySlug(ctx, a.Slug)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pertama", got.Konten)

	got, ok, err = m.News().GetBySlug(ctx, b.Slug)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "kedua", got.Konten)
}

func TestNewsUpdateAndDelete(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()
	n, err := m.News().Add(ctx, record.News{Judul: "Lama"})
	require.NoError(t, err)

	judul := "Baru"
	got, found, err := m.News().Update(ctx, n.ID, record.NewsPatch{Judul: &judul})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Baru", got.Judul)
	assert.Equal(t, n.Slug, got.Slug)

	_, found, err = m.News().Update(ctx, record.Local("berita_missing"), record.NewsPatch{Judul: &judul})
	require.NoError(t, err)
	assert.False(t, found)

	removed, err := m.News().Delete(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	_, ok, err := m.News().GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutKeepsNamespacesApart(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()

	require.NoError(t, m.News().Put(ctx, record.News{ID: record.Remote(7), Judul: "Remote"}))
	require.NoError(t, m.News().Put(ctx, record.News{ID: record.Local("7"), Judul: "Local"}))
	require.NoError(t, m.News().Put(ctx, record.News{ID: record.Remote(7), Judul: "Remote v2"}))

	all, err := m.News().GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	got, ok, err := m.News().GetByID(ctx, record.Remote(7))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Remote v2", got.Judul)

	assert.Error(t, m.News().Put(ctx, record.News{Judul: "no id"}))
}

func TestGetPublishedOrdersByDate(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()
	for _, n := range []record.News{
		{Judul: "A", Tanggal: "2025-01-01", Status: record.NewsPublished},
		{Judul: "B", Tanggal: "2025-03-01", Status: record.NewsPublished},
		{Judul: "C", Tanggal: "2025-02-01", Status: record.NewsDraft},
		{Judul: "D", Tanggal: "2025-02-01T08:00:00Z", Status: record.NewsPublished},
	} {
		_, err := m.News().Add(ctx, n)
		require.NoError(t, err)
	}
	pub, err := m.News().GetPublished(ctx)
	require.NoError(t, err)
	var titles []string
	for _, n := range pub {
		titles = append(titles, n.Judul)
	}
	assert.Equal(t, []string{"B", "D", "A"}, titles)
}

func TestBusinessRegistrationStartsPending(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()
	lo, hi := int64(15000), int64(150000)

	b, err := m.Businesses().Add(ctx, record.Business{
		NamaUsaha: "Keripik Bu Sri",
		Kategori:  "makanan",
		HargaMin:  &lo,
		HargaMax:  &hi,
		Status:    record.BusinessApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, record.BusinessPending, b.Status)
	assert.Equal(t, "2025-03-15", b.TanggalDaftar)
	assert.True(t, strings.HasPrefix(b.ID.String(), "umkm_"))

	approved, err := m.Businesses().GetApproved(ctx)
	require.NoError(t, err)
	assert.Empty(t, approved)

	_, found, err := m.Businesses().UpdateStatus(ctx, b.ID, record.BusinessApproved)
	require.NoError(t, err)
	require.True(t, found)

	approved, err = m.Businesses().GetApproved(ctx)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.True(t, approved[0].ID.Equal(b.ID))
}

func TestGetApprovedIsIdempotent(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()
	for i, name := range []string{"A", "B", "C", "D"} {
		b, err := m.Businesses().Add(ctx, record.Business{NamaUsaha: name})
		require.NoError(t, err)
		if i%2 == 0 {
			_, _, err = m.Businesses().UpdateStatus(ctx, b.ID, record.BusinessApproved)
			require.NoError(t, err)
		}
	}
	first, err := m.Businesses().GetApproved(ctx)
	require.NoError(t, err)
	second, err := m.Businesses().GetApproved(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, "A", first[0].NamaUsaha)
	assert.Equal(t, "C", first[1].NamaUsaha)
}

func TestBusinessUpdateAndDelete(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()
	b, err := m.Businesses().Add(ctx, record.Business{NamaUsaha: "Lama"})
	require.NoError(t, err)

	nama := "Baru"
	got, found, err := m.Businesses().Update(ctx, b.ID, record.BusinessPatch{NamaUsaha: &nama})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Baru", got.NamaUsaha)
	assert.Equal(t, record.BusinessPending, got.Status)

	removed, err := m.Businesses().Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = m.Businesses().Delete(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestAverageRating(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()
	for _, r := range []int{5, 5, 4} {
		_, err := m.Reviews().Add(ctx, record.Review{UmkmID: "umkm_1", Nama: "Warga", Rating: r})
		require.NoError(t, err)
	}
	_, err := m.Reviews().Add(ctx, record.Review{UmkmID: "umkm_2", Nama: "Warga", Rating: 1})
	require.NoError(t, err)

	got, err := m.Reviews().GetAverageRating(ctx, "umkm_1")
	require.NoError(t, err)
	assert.Equal(t, record.Rating{Average: 4.7, Count: 3}, got)

	got, err = m.Reviews().GetAverageRating(ctx, "umkm_9")
	require.NoError(t, err)
	assert.Equal(t, record.Rating{Average: 0, Count: 0}, got)
}

func TestReviewValidation(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()
	for _, rating := range []int{0, 6, -1} {
		_, err := m.Reviews().Add(ctx, record.Review{UmkmID: "umkm_1", Rating: rating})
		assert.ErrorIs(t, err, ErrInvalidRating)
	}
	_, err := m.Reviews().Add(ctx, record.Review{Rating: 3})
	assert.ErrorIs(t, err, ErrNoBusiness)

	r, err := m.Reviews().Add(ctx, record.Review{UmkmID: "21", Rating: 3})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-15T10:00:00Z", r.Tanggal)
	removed, err := m.Reviews().Delete(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestReviewReassign(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()
	for _, id := range []string{"umkm_a", "umkm_a", "umkm_b"} {
		_, err := m.Reviews().Add(ctx, record.Review{UmkmID: id, Rating: 4})
		require.NoError(t, err)
	}
	moved, err := m.Reviews().Reassign(ctx, "umkm_a", "7")
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	got, err := m.Reviews().GetByUmkmID(ctx, "7")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	moved, err = m.Reviews().Reassign(ctx, "umkm_a", "7")
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestGetStatsInitialises(t *testing.T) {
	m, store := newTestMirror(t)
	ctx := context.Background()
	st, err := m.Visitors().GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalVisitors)
	assert.NotNil(t, st.VisitHistory)

	_, err = store.Get(ctx, DefaultNamespace, KeyVisitors)
	assert.NoError(t, err)
}

func TestTrackVisitorPrunesAndSumsMonth(t *testing.T) {
	m, store := newTestMirror(t)
	ctx := context.Background()
	seed := record.VisitorStats{
		TotalVisitors: 14,
		VisitHistory: []record.VisitDay{
			{Date: "2024-12-14", Count: 4}, // 91 days before testNow
			{Date: "2025-02-28", Count: 5},
			{Date: "2025-03-01", Count: 2},
			{Date: "2025-03-14", Count: 3},
		},
	}
	b, err := json.Marshal(seed)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, DefaultNamespace, KeyVisitors, b))

	st, err := m.Visitors().TrackVisitor(ctx)
	require.NoError(t, err)
	assert.Equal(t, 15, st.TotalVisitors)
	assert.Equal(t, 1, st.DailyVisitors)
	assert.Equal(t, 6, st.MonthlyVisitors)
	assert.Equal(t, "2025-03-15T10:00:00Z", st.LastVisit)
	for _, d := range st.VisitHistory {
		assert.NotEqual(t, "2024-12-14", d.Date)
	}
	assert.Len(t, st.VisitHistory, 4)

	st, err = m.Visitors().TrackVisitor(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.DailyVisitors)
	assert.Equal(t, 7, st.MonthlyVisitors)

	persisted, err := m.Visitors().GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, st, persisted)
}

func TestImageCache(t *testing.T) {
	m, _ := newTestMirror(t)
	ctx := context.Background()
	img, err := m.Images().SaveImage(ctx, "logo.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(img.ID, "img_"))
	assert.Equal(t, "data:image/png;base64,iVBORw==", img.Data)
	assert.Equal(t, int64(4), img.Size)

	got, ok, err := m.Images().GetImage(ctx, img.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, img, got)

	all, err := m.Images().GetAllImages(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	removed, err := m.Images().DeleteImage(ctx, img.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = m.Images().DeleteImage(ctx, img.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMirrorOverSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	store, err := kv.OpenSQLite(path)
	require.NoError(t, err)
	ctx := context.Background()

	m := New(store)
	n, err := m.News().Add(ctx, record.News{Judul: "Tersimpan", Status: record.NewsPublished, Tanggal: "2025-01-01"})
	require.NoError(t, err)
	require.NoError(t, m.Close())

	store, err = kv.OpenSQLite(path)
	require.NoError(t, err)
	m = New(store)
	defer m.Close()
	got, ok, err := m.News().GetBySlug(ctx, n.Slug)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.ID.Equal(n.ID))
}

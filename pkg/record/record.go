// Package record holds the plain data shapes shared by the mirror, the
// normalizer, the reconciliation layer and the HTTP handlers.
package record

import (
	"strings"
	"time"
)

// DefaultAuthor is used when a news record has no author.
const DefaultAuthor = "Admin Desa"

// DateLayout is the day format used for news dates and visit history.
const DateLayout = "2006-01-02"

type NewsStatus string

const (
	NewsDraft     NewsStatus = "draft"
	NewsPublished NewsStatus = "published"
	NewsScheduled NewsStatus = "scheduled"
)

func (s NewsStatus) Valid() bool {
	switch s {
	case NewsDraft, NewsPublished, NewsScheduled:
		return true
	}
	return false
}

type BusinessStatus string

const (
	BusinessPending  BusinessStatus = "pending"
	BusinessApproved BusinessStatus = "approved"
	BusinessRejected BusinessStatus = "rejected"
)

func (s BusinessStatus) Valid() bool {
	switch s {
	case BusinessPending, BusinessApproved, BusinessRejected:
		return true
	}
	return false
}

// News is a berita article.
type News struct {
	ID        ID         `json:"id"`
	Judul     string     `json:"judul"`
	Kategori  string     `json:"kategori"`
	Ringkasan string     `json:"ringkasan"`
	Konten    string     `json:"konten"`
	Penulis   string     `json:"penulis"`
	Tanggal   string     `json:"tanggal"`
	Status    NewsStatus `json:"status"`
	GambarURL string     `json:"gambarUrl,omitempty"`
	Slug      string     `json:"slug"`
}

// Date parses Tanggal as a day or an RFC3339 timestamp.
func (n News) Date() (time.Time, bool) {
	return ParseDate(n.Tanggal)
}

// Upcoming reports whether the news date lies after now. It is never stored.
func (n News) Upcoming(now time.Time) bool {
	t, ok := n.Date()
	return ok && t.After(now)
}

// Paragraphs splits the body on newlines and drops blank lines.
func (n News) Paragraphs() []string {
	var out []string
	for _, p := range strings.Split(n.Konten, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewsPatch carries the fields an edit may change. Nil means unchanged.
type NewsPatch struct {
	Judul     *string     `json:"judul,omitempty"`
	Kategori  *string     `json:"kategori,omitempty"`
	Ringkasan *string     `json:"ringkasan,omitempty"`
	Konten    *string     `json:"konten,omitempty"`
	Penulis   *string     `json:"penulis,omitempty"`
	Tanggal   *string     `json:"tanggal,omitempty"`
	Status    *NewsStatus `json:"status,omitempty"`
	GambarURL *string     `json:"gambarUrl,omitempty"`
}

// Apply returns n with the patch applied.
func (p NewsPatch) Apply(n News) News {
	if p.Judul != nil {
		n.Judul = *p.Judul
	}
	if p.Kategori != nil {
		n.Kategori = *p.Kategori
	}
	if p.Ringkasan != nil {
		n.Ringkasan = *p.Ringkasan
	}
	if p.Konten != nil {
		n.Konten = *p.Konten
	}
	if p.Penulis != nil {
		n.Penulis = *p.Penulis
	}
	if p.Tanggal != nil {
		n.Tanggal = *p.Tanggal
	}
	if p.Status != nil {
		n.Status = *p.Status
	}
	if p.GambarURL != nil {
		n.GambarURL = *p.GambarURL
	}
	return n
}

// Business is a registered UMKM.
type Business struct {
	ID             ID             `json:"id"`
	NamaUsaha      string         `json:"namaUsaha"`
	Kategori       string         `json:"kategori"`
	Deskripsi      string         `json:"deskripsi"`
	Alamat         string         `json:"alamat"`
	Telepon        string         `json:"telepon"`
	Email          string         `json:"email"`
	Website        string         `json:"website,omitempty"`
	JamOperasional string         `json:"jamOperasional,omitempty"`
	HargaMin       *int64         `json:"hargaMin,omitempty"`
	HargaMax       *int64         `json:"hargaMax,omitempty"`
	ProdukUtama    string         `json:"produkUtama"`
	NamaOwner      string         `json:"namaOwner"`
	NikOwner       string         `json:"nikOwner"`
	Status         BusinessStatus `json:"status"`
	TanggalDaftar  string         `json:"tanggalDaftar"`
	FotoURL        string         `json:"fotoUrl,omitempty"`
	FotoTempatURL  string         `json:"fotoTempatUrl,omitempty"`
	KTP            *KTPCheck      `json:"ktpCheck,omitempty"`
}

// KTPCheck is the outcome of reading the owner's id card photo.
type KTPCheck struct {
	Result     string  `json:"result"` // matched | mismatch | unreadable
	Detected   string  `json:"detected,omitempty"`
	Confidence float64 `json:"confidence"`
}

// BusinessPatch carries editable business fields. Status is changed through
// the moderation operations only.
type BusinessPatch struct {
	NamaUsaha      *string `json:"namaUsaha,omitempty"`
	Kategori       *string `json:"kategori,omitempty"`
	Deskripsi      *string `json:"deskripsi,omitempty"`
	Alamat         *string `json:"alamat,omitempty"`
	Telepon        *string `json:"telepon,omitempty"`
	Email          *string `json:"email,omitempty"`
	Website        *string `json:"website,omitempty"`
	JamOperasional *string `json:"jamOperasional,omitempty"`
	HargaMin       *int64  `json:"hargaMin,omitempty"`
	HargaMax       *int64  `json:"hargaMax,omitempty"`
	ProdukUtama    *string `json:"produkUtama,omitempty"`
	FotoURL        *string `json:"fotoUrl,omitempty"`
	FotoTempatURL  *string `json:"fotoTempatUrl,omitempty"`
}

func (p BusinessPatch) Apply(b Business) Business {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&b.NamaUsaha, p.NamaUsaha)
	set(&b.Kategori, p.Kategori)
	set(&b.Deskripsi, p.Deskripsi)
	set(&b.Alamat, p.Alamat)
	set(&b.Telepon, p.Telepon)
	set(&b.Email, p.Email)
	set(&b.Website, p.Website)
	set(&b.JamOperasional, p.JamOperasional)
	set(&b.ProdukUtama, p.ProdukUtama)
	set(&b.FotoURL, p.FotoURL)
	set(&b.FotoTempatURL, p.FotoTempatURL)
	if p.HargaMin != nil {
		v := *p.HargaMin
		b.HargaMin = &v
	}
	if p.HargaMax != nil {
		v := *p.HargaMax
		b.HargaMax = &v
	}
	return b
}

// Review is a visitor rating for a business.
type Review struct {
	ID       string `json:"id"`
	UmkmID   string `json:"umkmId"`
	Nama     string `json:"nama"`
	Rating   int    `json:"rating"`
	Komentar string `json:"komentar"`
	Tanggal  string `json:"tanggal"`
}

// Rating is the derived average of a business's reviews.
type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// VisitDay is one retained day of the visit history.
type VisitDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// VisitorStats aggregates tracked visits.
type VisitorStats struct {
	TotalVisitors   int        `json:"totalVisitors"`
	MonthlyVisitors int        `json:"monthlyVisitors"`
	DailyVisitors   int        `json:"dailyVisitors"`
	LastVisit       string     `json:"lastVisit"`
	VisitHistory    []VisitDay `json:"visitHistory"`
}

// CachedImage is an uploaded image kept in the mirror as a data URL.
type CachedImage struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Data       string `json:"data"`
	Size       int64  `json:"size"`
	Type       string `json:"type"`
	UploadedAt string `json:"uploadedAt"`
}

// ParseDate accepts "2006-01-02" or RFC3339.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if len(s) > 10 {
		if t, err := time.Parse(DateLayout, s[:10]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Package normalize translates between the record store's snake_case rows and
// the canonical record shapes. Every function here is pure and total: any row
// the store can return yields a record, with defaults filling the gaps.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"desaweb/pkg/ident"
	"desaweb/pkg/record"
)

// News builds a canonical news record from a berita row.
func News(raw map[string]any) record.News {
	n := record.News{
		ID:        ID(raw["id"]),
		Judul:     str(raw, "judul", "title"),
		Kategori:  str(raw, "kategori", "category"),
		Ringkasan: str(raw, "ringkasan", "summary"),
		Konten:    str(raw, "konten", "isi", "content"),
		Penulis:   str(raw, "penulis", "author"),
		Tanggal:   date(raw, "tanggal", "date"),
		Status:    record.NewsStatus(strings.ToLower(str(raw, "status"))),
		GambarURL: str(raw, "gambar_url", "gambarUrl", "image_url"),
		Slug:      str(raw, "slug"),
	}
	if n.Penulis == "" {
		n.Penulis = record.DefaultAuthor
	}
	if n.Status == "" {
		n.Status = record.NewsPublished
	}
	if n.Slug == "" {
		n.Slug = fallbackSlug(n.Judul, n.ID)
	}
	return n
}

// Business builds a canonical business record from an umkm row.
func Business(raw map[string]any) record.Business {
	b := record.Business{
		ID:             ID(raw["id"]),
		NamaUsaha:      str(raw, "nama_usaha", "namaUsaha"),
		Kategori:       str(raw, "kategori"),
		Deskripsi:      str(raw, "deskripsi"),
		Alamat:         str(raw, "alamat"),
		Telepon:        str(raw, "telepon"),
		Email:          str(raw, "email"),
		Website:        str(raw, "website"),
		JamOperasional: str(raw, "jam_operasional", "jamOperasional"),
		HargaMin:       integer(raw, "harga_min", "hargaMin"),
		HargaMax:       integer(raw, "harga_max", "hargaMax"),
		ProdukUtama:    str(raw, "produk_utama", "produkUtama"),
		NamaOwner:      str(raw, "nama_owner", "namaOwner"),
		NikOwner:       str(raw, "nik_owner", "nikOwner"),
		Status:         record.BusinessStatus(strings.ToLower(str(raw, "status"))),
		TanggalDaftar:  date(raw, "tanggal_daftar", "tanggalDaftar", "created_at"),
		FotoURL:        str(raw, "foto_url", "fotoUrl"),
		FotoTempatURL:  str(raw, "foto_tempat_url", "fotoTempatUrl"),
	}
	if b.Status == "" {
		b.Status = record.BusinessPending
	}
	if res := str(raw, "ktp_result"); res != "" {
		conf := 0.0
		if v := float(raw, "ktp_confidence"); v != nil {
			conf = *v
		}
		b.KTP = &record.KTPCheck{Result: res, Detected: str(raw, "ktp_detected"), Confidence: conf}
	}
	return b
}

// NewsRow is the insert/update payload for a news record. The id is never
// written; the store assigns it.
func NewsRow(n record.News) map[string]any {
	status := n.Status
	if status == "" {
		status = record.NewsDraft
	}
	penulis := n.Penulis
	if penulis == "" {
		penulis = record.DefaultAuthor
	}
	return map[string]any{
		"judul":      n.Judul,
		"kategori":   n.Kategori,
		"ringkasan":  n.Ringkasan,
		"konten":     n.Konten,
		"penulis":    penulis,
		"tanggal":    nullable(n.Tanggal),
		"status":     string(status),
		"gambar_url": nullable(n.GambarURL),
		"slug":       nullable(n.Slug),
	}
}

// BusinessRow is the insert/update payload for a business record.
func BusinessRow(b record.Business) map[string]any {
	status := b.Status
	if status == "" {
		status = record.BusinessPending
	}
	row := map[string]any{
		"nama_usaha":      b.NamaUsaha,
		"kategori":        b.Kategori,
		"deskripsi":       b.Deskripsi,
		"alamat":          b.Alamat,
		"telepon":         b.Telepon,
		"email":           nullable(b.Email),
		"website":         nullable(b.Website),
		"jam_operasional": nullable(b.JamOperasional),
		"harga_min":       nil,
		"harga_max":       nil,
		"produk_utama":    b.ProdukUtama,
		"nama_owner":      b.NamaOwner,
		"nik_owner":       b.NikOwner,
		"status":          string(status),
		"foto_url":        nullable(b.FotoURL),
		"foto_tempat_url": nullable(b.FotoTempatURL),
	}
	if b.HargaMin != nil {
		row["harga_min"] = *b.HargaMin
	}
	if b.HargaMax != nil {
		row["harga_max"] = *b.HargaMax
	}
	if b.KTP != nil {
		row["ktp_result"] = b.KTP.Result
		row["ktp_detected"] = nullable(b.KTP.Detected)
		row["ktp_confidence"] = b.KTP.Confidence
	}
	return row
}

// ID reads an identifier of either convention: numbers and numeric strings
// are record store keys, other non-empty strings are mirror ids.
func ID(v any) record.ID {
	switch t := v.(type) {
	case nil:
		return record.ID{}
	case record.ID:
		return t
	case int:
		return record.Remote(int64(t))
	case int32:
		return record.Remote(int64(t))
	case int64:
		return record.Remote(t)
	case uint:
		return record.Remote(int64(t))
	case uint32:
		return record.Remote(int64(t))
	case uint64:
		return record.Remote(int64(t))
	case float64:
		if t == math.Trunc(t) && t > 0 {
			return record.Remote(int64(t))
		}
		return record.ID{}
	case json.Number:
		return record.ParseID(t.String())
	case string:
		return record.ParseID(t)
	case []byte:
		return record.ParseID(string(t))
	}
	return record.ID{}
}

func fallbackSlug(judul string, id record.ID) string {
	if key, ok := id.RemoteKey(); ok {
		return ident.RemoteSlug(judul, key)
	}
	base := ident.Slugify(judul)
	if tail := ident.Slugify(id.String()); tail != "" {
		if base == "" {
			return tail
		}
		return base + "-" + tail
	}
	return base
}

// str returns the first key present with a non-empty value.
func str(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case []byte:
			s = string(t)
		case json.Number:
			s = t.String()
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case int64:
			s = strconv.FormatInt(t, 10)
		case int:
			s = strconv.Itoa(t)
		case bool:
			s = strconv.FormatBool(t)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// date reads a day or timestamp column. Midnight values collapse to a day.
func date(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		switch t := raw[k].(type) {
		case time.Time:
			if t.IsZero() {
				continue
			}
			if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
				return t.Format(record.DateLayout)
			}
			return t.UTC().Format(time.RFC3339)
		case *time.Time:
			if t == nil || t.IsZero() {
				continue
			}
			return date(map[string]any{k: *t}, k)
		default:
			if s := str(raw, k); s != "" {
				return s
			}
		}
	}
	return ""
}

func integer(raw map[string]any, keys ...string) *int64 {
	for _, k := range keys {
		var n int64
		switch t := raw[k].(type) {
		case int:
			n = int64(t)
		case int32:
			n = int64(t)
		case int64:
			n = t
		case float64:
			n = int64(math.Round(t))
		case json.Number:
			v, err := t.Int64()
			if err != nil {
				f, ferr := t.Float64()
				if ferr != nil {
					continue
				}
				v = int64(math.Round(f))
			}
			n = v
		case string:
			s := strings.TrimSpace(t)
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				f, ferr := strconv.ParseFloat(s, 64)
				if ferr != nil {
					continue
				}
				v = int64(math.Round(f))
			}
			n = v
		default:
			continue
		}
		return &n
	}
	return nil
}

func float(raw map[string]any, key string) *float64 {
	var f float64
	switch t := raw[key].(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int64:
		f = float64(t)
	case int:
		f = float64(t)
	case string:
		v, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = v
	default:
		return nil
	}
	return &f
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// Package recordstore is the client for the relational record store that
// holds the durable copy of news and business rows. Rows travel as column
// maps in the store's snake_case convention; pkg/normalize turns them into
// records.
package recordstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Table names a collection.
type Table string

const (
	News       Table = "berita"
	Businesses Table = "umkm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Query selects rows. Eq filters on column equality.
type Query struct {
	Eq      map[string]any
	OrderBy string
	Desc    bool
	Limit   int
}

// Client is the set of calls the reconciliation layer makes.
type Client interface {
	List(ctx context.Context, t Table, q Query) ([]map[string]any, error)
	Get(ctx context.Context, t Table, key int64) (map[string]any, error)
	// Insert returns the stored row, including the assigned id.
	Insert(ctx context.Context, t Table, row map[string]any) (map[string]any, error)
	Update(ctx context.Context, t Table, key int64, fields map[string]any) error
	Delete(ctx context.Context, t Table, key int64) error
}

var columns = map[Table]map[string]bool{
	News: set("id", "created_at", "updated_at", "judul", "kategori", "ringkasan", "konten", "penulis",
		"tanggal", "status", "gambar_url", "slug"),
	Businesses: set("id", "created_at", "updated_at", "nama_usaha", "kategori", "deskripsi", "alamat",
		"telepon", "email", "website", "jam_operasional", "harga_min", "harga_max", "produk_utama",
		"nama_owner", "nik_owner", "status", "foto_url", "foto_tempat_url", "ktp_result", "ktp_detected",
		"ktp_confidence"),
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// checkColumns rejects unknown tables and columns before any SQL is built.
func checkColumns(t Table, names ...string) error {
	cols, ok := columns[t]
	if !ok {
		return fmt.Errorf("unknown table %q", t)
	}
	for _, n := range names {
		if !cols[n] {
			return fmt.Errorf("unknown column %q in %s", n, t)
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// failure (SQLSTATE 23505) or already classified as ErrDuplicate.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

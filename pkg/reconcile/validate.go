package reconcile

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"desaweb/pkg/record"
)

var validate = validator.New()

func validateNews(n record.News) error {
	if strings.TrimSpace(n.Judul) == "" {
		return invalid("judul", "judul wajib diisi")
	}
	if !n.Status.Valid() {
		return invalid("status", "status tidak dikenal")
	}
	if n.Kategori != "" && !record.IsNewsCategory(n.Kategori) {
		return invalid("kategori", "kategori tidak dikenal")
	}
	switch n.Status {
	case record.NewsPublished:
		if strings.TrimSpace(n.Tanggal) == "" {
			return invalid("tanggal", "berita yang dipublikasi harus bertanggal")
		}
	case record.NewsScheduled:
		if strings.TrimSpace(n.Tanggal) == "" {
			return invalid("tanggal", "berita terjadwal harus bertanggal")
		}
	}
	if n.Tanggal != "" {
		if _, ok := record.ParseDate(n.Tanggal); !ok {
			return invalid("tanggal", "format tanggal tidak valid")
		}
	}
	return nil
}

// validateBusiness checks a registration or an edited business.
func validateBusiness(b record.Business) error {
	required := []struct{ field, value string }{
		{"namaUsaha", b.NamaUsaha},
		{"kategori", b.Kategori},
		{"deskripsi", b.Deskripsi},
		{"produkUtama", b.ProdukUtama},
		{"alamat", b.Alamat},
		{"telepon", b.Telepon},
		{"namaOwner", b.NamaOwner},
		{"nikOwner", b.NikOwner},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return invalid(r.field, "wajib diisi")
		}
	}
	if !record.IsBusinessCategory(b.Kategori) {
		return invalid("kategori", "kategori tidak dikenal")
	}
	if err := validate.Var(b.NikOwner, "len=16,numeric"); err != nil {
		return invalid("nikOwner", "NIK harus 16 digit angka")
	}
	if err := validate.Var(b.Email, "omitempty,email"); err != nil {
		return invalid("email", "format email tidak valid")
	}
	if b.HargaMin != nil && *b.HargaMin < 0 {
		return invalid("hargaMin", "harga tidak boleh negatif")
	}
	if b.HargaMax != nil && *b.HargaMax < 0 {
		return invalid("hargaMax", "harga tidak boleh negatif")
	}
	if b.HargaMin != nil && b.HargaMax != nil && *b.HargaMin > *b.HargaMax {
		return invalid("hargaMax", "harga maksimum harus lebih besar atau sama dengan harga minimum")
	}
	return nil
}

package record

// NeutralColor is the badge class for unknown category codes.
const NeutralColor = "bg-gray-600"

// Category describes one selectable category code.
type Category struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Color string `json:"color"`
}

var newsCategories = []Category{
	{"acara", "Acara", "bg-blue-600"},
	{"pembangunan", "Pembangunan", "bg-green-600"},
	{"umkm", "UMKM", "bg-purple-600"},
	{"kesehatan", "Kesehatan", "bg-red-600"},
	{"pendidikan", "Pendidikan", "bg-indigo-600"},
	{"pertanian", "Pertanian", "bg-yellow-600"},
	{"pengumuman", "Pengumuman", "bg-orange-600"},
	{"pelatihan", "Pelatihan", "bg-teal-600"},
	{"lainnya", "Lainnya", NeutralColor},
}

var businessCategories = []Category{
	{"makanan", "Makanan & Minuman", "bg-orange-600"},
	{"kerajinan", "Kerajinan Tangan", "bg-green-600"},
	{"pertanian", "Produk Pertanian", "bg-green-600"},
	{"fashion", "Fashion & Tekstil", "bg-purple-600"},
	{"jasa", "Jasa", "bg-blue-600"},
	{"teknologi", "Teknologi", "bg-indigo-600"},
	{"lainnya", "Lainnya", NeutralColor},
}

func lookup(list []Category, code string) (Category, bool) {
	for _, c := range list {
		if c.Code == code {
			return c, true
		}
	}
	return Category{Code: code, Label: code, Color: NeutralColor}, false
}

// NewsCategories lists the news category codes in display order.
func NewsCategories() []Category { return append([]Category(nil), newsCategories...) }

// BusinessCategories lists the UMKM category codes in display order.
func BusinessCategories() []Category { return append([]Category(nil), businessCategories...) }

func NewsCategoryLabel(code string) string {
	c, _ := lookup(newsCategories, code)
	return c.Label
}

func NewsCategoryColor(code string) string {
	c, _ := lookup(newsCategories, code)
	return c.Color
}

func BusinessCategoryLabel(code string) string {
	c, _ := lookup(businessCategories, code)
	return c.Label
}

func BusinessCategoryColor(code string) string {
	c, _ := lookup(businessCategories, code)
	return c.Color
}

func IsNewsCategory(code string) bool {
	_, ok := lookup(newsCategories, code)
	return ok
}

func IsBusinessCategory(code string) bool {
	_, ok := lookup(businessCategories, code)
	return ok
}

// StatusLabel gives the admin badge text for a news or business status.
func StatusLabel(status string) string {
	switch status {
	case string(NewsDraft):
		return "Draft"
	case string(NewsPublished):
		return "Dipublikasi"
	case string(NewsScheduled):
		return "Terjadwal"
	case string(BusinessPending):
		return "Menunggu Review"
	case string(BusinessApproved):
		return "Disetujui"
	case string(BusinessRejected):
		return "Ditolak"
	}
	return "Unknown"
}

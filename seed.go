package main

import (
	"context"
	"fmt"

	"desaweb/pkg/reconcile"
	"desaweb/pkg/record"
)

func price(v int64) *int64 { return &v }

var demoBusinesses = []record.Business{
	{
		NamaUsaha:   "Kerajinan Bambu Berkah",
		Kategori:    "kerajinan",
		Deskripsi:   "Memproduksi berbagai kerajinan bambu seperti tas, tempat pensil, dan dekorasi rumah dengan kualitas tinggi.",
		Alamat:      "Dusun Makmur 1, RT 02/RW 01",
		Telepon:     "0812-3456-7890",
		Email:       "bambuberkah@email.com",
		HargaMin:    price(15000),
		HargaMax:    price(150000),
		ProdukUtama: "Tas bambu, tempat pensil, hiasan dinding",
		NamaOwner:   "Ibu Sari Wulandari",
		NikOwner:    "1234567890123456",
	},
	{
		NamaUsaha:   "Camilan Nusantara",
		Kategori:    "makanan",
		Deskripsi:   "Memproduksi keripik singkong, emping, dan berbagai camilan tradisional dengan cita rasa autentik.",
		Alamat:      "Dusun Sejahtera 2, RT 03/RW 02",
		Telepon:     "0813-4567-8901",
		Email:       "camilan@email.com",
		HargaMin:    price(8000),
		HargaMax:    price(25000),
		ProdukUtama: "Keripik singkong, emping, kue tradisional",
		NamaOwner:   "Bapak Ahmad Santoso",
		NikOwner:    "1234567890123457",
	},
	{
		NamaUsaha:   "Sayur Organik Segar",
		Kategori:    "pertanian",
		Deskripsi:   "Menyediakan sayuran organik segar tanpa pestisid langsung dari kebun untuk kesehatan keluarga.",
		Alamat:      "Dusun Hijau 3, RT 01/RW 03",
		Telepon:     "0814-5678-9012",
		Email:       "organik@email.com",
		HargaMin:    price(5000),
		HargaMax:    price(20000),
		ProdukUtama: "Sayur kangkung, bayam, tomat, cabai",
		NamaOwner:   "Ibu Dewi Sartika",
		NikOwner:    "1234567890123458",
	},
}

var demoNews = []record.News{
	{
		Judul:     "Festival Budaya Desa Makmur 2024 Sukses Digelar",
		Kategori:  "acara",
		Ringkasan: "Festival tahunan yang menampilkan berbagai kesenian tradisional, pameran produk UMKM, dan kuliner khas desa berhasil menarik ribuan pengunjung dari berbagai daerah.",
		Konten:    "Festival Budaya Desa Makmur 2024 telah sukses digelar pada tanggal 15 Desember 2024 di Lapangan Desa Makmur. Acara yang berlangsung selama tiga hari ini menampilkan berbagai kesenian tradisional seperti tari-tarian daerah, musik gamelan, dan pertunjukan wayang kulit.\n\nSelain pertunjukan seni, festival ini juga menghadirkan pameran produk UMKM lokal yang memamerkan berbagai kerajinan tangan, makanan tradisional, dan produk pertanian organik. Para pengunjung dapat langsung membeli produk-produk berkualitas dari masyarakat desa.\n\nKepala Desa Makmur, Bapak Suharto, menyampaikan rasa syukur atas kesuksesan acara ini. 'Festival ini tidak hanya sebagai ajang hiburan, tetapi juga sebagai sarana promosi potensi desa dan mempererat silaturahmi antar warga,' ujarnya.\n\nAcara ini berhasil menarik lebih dari 5.000 pengunjung dari berbagai daerah dan diharapkan dapat menjadi agenda tahunan yang semakin berkembang.",
		Penulis:   "Admin Desa",
		Tanggal:   "2024-12-15",
		Status:    record.NewsPublished,
	},
	{
		Judul:     "Pelatihan Digital Marketing untuk UMKM Sukses Digelar",
		Kategori:  "pelatihan",
		Ringkasan: "Sebanyak 30 pelaku UMKM mengikuti pelatihan digital marketing yang diselenggarakan oleh pemerintah desa bekerjasama dengan dinas koperasi kabupaten.",
		Konten:    "Pemerintah Desa Makmur bekerjasama dengan Dinas Koperasi Kabupaten Sejahtera menggelar pelatihan digital marketing untuk pelaku UMKM pada tanggal 10 Desember 2024. Pelatihan yang diikuti oleh 30 peserta ini bertujuan untuk meningkatkan kemampuan pemasaran digital para pelaku usaha lokal.\n\nMateri pelatihan meliputi penggunaan media sosial untuk promosi, pembuatan konten yang menarik, strategi penjualan online, dan pengelolaan toko online. Para peserta juga diajarkan cara menggunakan platform e-commerce dan aplikasi pembayaran digital.\n\nNarasumber pelatihan, Ibu Dr. Siti Nurhaliza dari Universitas Digital Indonesia, menekankan pentingnya adaptasi teknologi dalam dunia usaha. 'Era digital menuntut pelaku UMKM untuk memanfaatkan teknologi agar dapat bersaing dan menjangkau pasar yang lebih luas,' jelasnya.\n\nSalah satu peserta, Ibu Sari pemilik Kerajinan Bambu Berkah, mengaku sangat terbantu dengan pelatihan ini. 'Sekarang saya lebih paham cara mempromosikan produk di Instagram dan Facebook. Penjualan saya meningkat 50% setelah menerapkan ilmu dari pelatihan ini,' ungkapnya.",
		Penulis:   "Tim Humas Desa",
		Tanggal:   "2024-12-10",
		Status:    record.NewsPublished,
	},
}

type seedReport struct {
	Businesses int `json:"businesses"`
	News       int `json:"news"`
}

// seedDemo fills empty collections with the demo content. Businesses are
// registered and then approved, the same way a real registration goes.
func seedDemo(ctx context.Context, svc *reconcile.Service) (seedReport, error) {
	var rep seedReport
	businesses, err := svc.Businesses().List(ctx, reconcile.BusinessFilter{})
	if err != nil {
		return rep, err
	}
	if len(businesses.Items) == 0 {
		for _, b := range demoBusinesses {
			res, err := svc.Businesses().Register(ctx, b)
			if err != nil {
				return rep, fmt.Errorf("seed %s: %w", b.NamaUsaha, err)
			}
			if _, err := svc.Businesses().SetStatus(ctx, res.Item.ID, record.BusinessApproved, false); err != nil {
				return rep, fmt.Errorf("approve %s: %w", b.NamaUsaha, err)
			}
			rep.Businesses++
		}
	}
	news, err := svc.News().List(ctx, reconcile.NewsFilter{})
	if err != nil {
		return rep, err
	}
	if len(news.Items) == 0 {
		for _, n := range demoNews {
			if _, err := svc.News().Create(ctx, n); err != nil {
				return rep, fmt.Errorf("seed %q: %w", n.Judul, err)
			}
			rep.News++
		}
	}
	return rep, nil
}

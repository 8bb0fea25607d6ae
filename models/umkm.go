package models

import "time"

// Umkm is the business directory table.
type Umkm struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	NamaUsaha      string   `gorm:"size:255;not null"`
	Kategori       string   `gorm:"size:32;index"`
	Deskripsi      string   `gorm:"type:text"`
	Alamat         string   `gorm:"size:512"`
	Telepon        string   `gorm:"size:32"`
	Email          *string  `gorm:"size:255"`
	Website        *string  `gorm:"size:255"`
	JamOperasional *string  `gorm:"size:64"`
	HargaMin       *int64   `gorm:"column:harga_min"`
	HargaMax       *int64   `gorm:"column:harga_max"`
	ProdukUtama    string   `gorm:"size:255"`
	NamaOwner      string   `gorm:"size:255"`
	NikOwner       string   `gorm:"size:16"`
	Status         string   `gorm:"size:16;index;default:pending"`
	FotoURL        *string  `gorm:"column:foto_url;size:1024"`
	FotoTempatURL  *string  `gorm:"column:foto_tempat_url;size:1024"`
	KtpResult      *string  `gorm:"column:ktp_result;size:16"`
	KtpDetected    *string  `gorm:"column:ktp_detected;size:16"`
	KtpConfidence  *float64 `gorm:"column:ktp_confidence"`
}

func (Umkm) TableName() string { return "umkm" }

package models

import "time"

// Berita is the news table. Rows are read and written as column maps by the
// record store; this struct only drives the schema.
type Berita struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Judul     string  `gorm:"size:255;not null"`
	Kategori  string  `gorm:"size:32;index"`
	Ringkasan string  `gorm:"type:text"`
	Konten    string  `gorm:"type:text"`
	Penulis   string  `gorm:"size:255"`
	Tanggal   *string `gorm:"size:32;index"`
	Status    string  `gorm:"size:16;index;default:draft"`
	GambarURL *string `gorm:"column:gambar_url;size:1024"`
	Slug      *string `gorm:"size:512;uniqueIndex"`
}

func (Berita) TableName() string { return "berita" }

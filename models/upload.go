package models

import (
	"time"
)

// Upload records an image stored through the admin upload endpoint.
type Upload struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FileName    string `gorm:"size:255;not null"`
	ObjectKey   string `gorm:"column:object_key;size:512;index"` // empty when only cached in the mirror
	URL         string `gorm:"column:url;type:text"`
	ContentType string `gorm:"size:128"`
	Size        int64
	// Cached marks images kept in the mirror's image cache because the
	// object store was unavailable; URL is then a data URL.
	Cached     bool   `gorm:"default:false;index"`
	CacheID    string `gorm:"size:128"`
	UploadedBy string `gorm:"size:255;index"`
}

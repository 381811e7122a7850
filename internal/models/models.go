package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Link represents the data model for a shortened URL.
type Link struct {
	ID              uint       `gorm:"primary_key" json:"id"`
	Code            string     `gorm:"size:64;unique_index;not null" json:"code"`
	Destination     string     `gorm:"type:text;not null" json:"destination"`
	DestinationHash string     `gorm:"size:64;unique_index;not null" json:"-"`
	IsCustom        bool       `gorm:"not null;default:false" json:"isCustom"`
	VisitCount      int64      `gorm:"not null;default:0" json:"visitCount"`
	QRDownloads     int64      `gorm:"column:qr_downloads;not null;default:0" json:"qrDownloads"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	LastAccessedAt  *time.Time `json:"lastAccessedAt"`
}

// Visit is an append-only analytics row written after a successful redirect.
type Visit struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	LinkID      uint      `gorm:"index;not null" json:"linkId"`
	VisitedAt   time.Time `gorm:"index;not null" json:"visitedAt"`
	UserAgent   string    `gorm:"type:text" json:"userAgent"`
	AddressHash string    `gorm:"size:64" json:"addressHash"`
	Referrer    string    `gorm:"type:text" json:"referrer"`
}

// HashDestination returns the lookup key stored in Link.DestinationHash.
func HashDestination(destination string) string {
	sum := sha256.Sum256([]byte(destination))
	return hex.EncodeToString(sum[:])
}

// NewLink builds an unsaved link for destination.
func NewLink(code, destination string, isCustom bool, now time.Time) *Link {
	return &Link{
		Code:            code,
		Destination:     destination,
		DestinationHash: HashDestination(destination),
		IsCustom:        isCustom,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

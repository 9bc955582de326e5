package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier is a catering/decor/music/... business listed in the directory.
// Company is filled from the owner's profile on detail reads.
type Supplier struct {
	ID          uint64          `json:"id"`
	OwnerID     uint64          `json:"owner_id"`
	CompanyName string          `json:"company_name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	City        string          `json:"city"`
	PriceFrom   decimal.Decimal `json:"price_from"`
	ImageURL    string          `json:"image_url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Company *Profile        `json:"company,omitempty"`
	Gallery []*GalleryImage `json:"gallery,omitempty"`
}

// Venue is a bookable location.
type Venue struct {
	ID           uint64          `json:"id"`
	OwnerID      uint64          `json:"owner_id"`
	Name         string          `json:"name"`
	City         string          `json:"city"`
	Address      string          `json:"address"`
	Capacity     uint32          `json:"capacity"`
	PricePerHour decimal.Decimal `json:"price_per_hour"`
	Description  string          `json:"description"`
	ImageURL     string          `json:"image_url"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Gallery []*GalleryImage `json:"gallery,omitempty"`
}

// GalleryImage is an uploaded picture attached to a venue or supplier.
type GalleryImage struct {
	ID        uint64       `json:"id"`
	OwnerKind ResourceKind `json:"owner_kind"`
	OwnerID   uint64       `json:"owner_id"`
	Bucket    string       `json:"-"`
	Path      string       `json:"path"`
	URL       string       `json:"url"`
	CreatedAt time.Time    `json:"created_at"`
}

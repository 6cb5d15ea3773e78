// Package product defines the sellable catalog entry.
package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status marks whether a product is visible to public callers.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Product is a downloadable source-code package offered for sale. Price is
// the live price; purchases snapshot it at sale time, so editing or deleting
// a product never alters historical purchase records.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Status      Status          `json:"status"`
	Image       string          `json:"image,omitempty"`
	Screenshots []string        `json:"screenshots,omitempty"`
	Features    []string        `json:"features,omitempty"`
	DownloadURL string          `json:"downloadUrl,omitempty"`
	Sales       int64           `json:"sales"`
	Rating      float64         `json:"rating"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

package domain

import (
	"strings"
	"time"
)

// Product is a catalog entry that line items are matched against.
type Product struct {
	ID             string    `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Barcode        string    `json:"barcode,omitempty" yaml:"barcode"`
	Unit           string    `json:"unit,omitempty" yaml:"unit"`
	NameNormalized string    `json:"-" yaml:"-"`
	Embedding      []float32 `json:"-" yaml:"-"`
	CreatedAt      time.Time `json:"created_at,omitempty" yaml:"-"`
}

// ValidateProduct validates a Product instance
func ValidateProduct(p *Product) error {
	if p == nil || strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
		return ErrInvalidProduct
	}
	return nil
}

// ToDocument returns the search-facing view of the product.
func (p *Product) ToDocument() Document {
	return Document{
		ID:      p.ID,
		Name:    p.Name,
		Barcode: p.Barcode,
		Unit:    p.Unit,
	}
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Catalog field names as they appear in the retailer's XML
const (
	FieldID      = "nr"
	FieldName    = "Namn"
	FieldPrice   = "Prisinklmoms"
	FieldAlcohol = "Alkoholhalt"
	FieldVolume  = "Volymiml"
)

// ProductRecord is a single catalog entry. Numeric fields are kept as the
// catalog text; they are converted and validated by the metric calculator.
type ProductRecord struct {
	ID          string
	Name        string
	Name2       string
	Group       string
	PriceText   string // tax inclusive
	AlcoholText string // "NN.N%"
	VolumeText  string // milliliters

	// Metric is the cached alcohol-per-krona value, nil until annotated
	Metric *decimal.Decimal
}

// DisplayName joins the primary and secondary product names
func (r ProductRecord) DisplayName() string {
	if r.Name2 == "" {
		return r.Name
	}
	return r.Name + " " + r.Name2
}

// Annotation stamps a snapshot whose records carry computed metrics.
type Annotation struct {
	Version       int
	SourceCreated time.Time // CreatedAt of the snapshot the metrics were computed for
	ComputedAt    time.Time
}

// CatalogSnapshot is one parsed copy of the catalog.
type CatalogSnapshot struct {
	CreatedAt  time.Time
	Records    []ProductRecord
	Annotation *Annotation
}

// Age returns how old the snapshot is at now
func (s *CatalogSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// IsStale reports whether the snapshot is older than maxAge
func (s *CatalogSnapshot) IsStale(now time.Time, maxAge time.Duration) bool {
	return s.Age(now) > maxAge
}

// RankedEntry is one product with a computed metric, ready for ranking.
type RankedEntry struct {
	ID     string
	Name   string
	Metric decimal.Decimal
}

package types

import (
	"encoding/json"
	"math"
)

// Product is one line of the shopping list.
type Product struct {
	ID          int64   `json:"id"`          // Assigned by the store on insert, immutable afterwards.
	Description string  `json:"description"` // Free text, may be empty.
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Total returns Quantity * UnitPrice. It is computed on every call and never
// stored, so it always reflects the current quantity and price.
func (p Product) Total() float64 {
	return p.Quantity * p.UnitPrice
}

// MarshalJSON writes the stored fields plus the derived total. Decoding
// ignores total.
func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	return json.Marshal(struct {
		plain
		Total float64 `json:"total"`
	}{plain(p), p.Total()})
}

// Validate reports ErrInvalidData when a numeric field is NaN or infinite.
// SQLite stores NaN as NULL, so such values cannot round-trip.
func (p Product) Validate() error {
	for _, v := range []float64{p.Quantity, p.UnitPrice} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidData
		}
	}
	return nil
}

// SumTotals returns the sum of Total over products.
func SumTotals(products []Product) float64 {
	var sum float64
	for _, p := range products {
		sum += p.Total()
	}
	return sum
}

// CloneProducts returns a copy of products that shares no backing array with
// the input. A nil input yields an empty, non-nil slice.
func CloneProducts(products []Product) []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

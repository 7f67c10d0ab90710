// Package calculator holds the price, duration and fee arithmetic that feeds
// driver selection and payment amounts. All money values are integer minor
// currency units.
package calculator

import "math"

// DefaultGranularity is the currency step prices are rounded down to.
const DefaultGranularity int64 = 1000

// PriceRange is the committed price plus its display bounds.
type PriceRange struct {
	Exact int64 `json:"exact"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
}

// Pricing computes delivery prices from distance and a vehicle's per
// kilometre rate.
type Pricing struct {
	Granularity  int64
	BoundPercent float64
}

// NewPricing returns a Pricing with defaults applied for zero values.
func NewPricing(granularity int64, boundPercent float64) Pricing {
	if granularity <= 0 {
		granularity = DefaultGranularity
	}
	return Pricing{Granularity: granularity, BoundPercent: boundPercent}
}

// Amount is the price committed on an order.
func (p Pricing) Amount(distanceMetres int64, pricePerKm int64) int64 {
	return p.roundDown(p.exact(distanceMetres, pricePerKm))
}

// Range returns the committed price with the lower and upper display
// bounds, each rounded down independently.
func (p Pricing) Range(distanceMetres int64, pricePerKm int64) PriceRange {
	exact := p.exact(distanceMetres, pricePerKm)
	return PriceRange{
		Exact: p.roundDown(exact),
		Min:   p.roundDown(exact * (100 - p.BoundPercent) / 100),
		Max:   p.roundDown(exact * (100 + p.BoundPercent) / 100),
	}
}

func (p Pricing) exact(distanceMetres int64, pricePerKm int64) float64 {
	if distanceMetres <= 0 || pricePerKm <= 0 {
		return 0
	}
	return float64(pricePerKm) * (float64(distanceMetres) / 1000)
}

func (p Pricing) roundDown(amount float64) int64 {
	g := p.Granularity
	if g <= 0 {
		g = DefaultGranularity
	}
	if amount <= 0 {
		return 0
	}
	return int64(math.Floor(amount/float64(g))) * g
}

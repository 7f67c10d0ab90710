// Package geo contains the pure geographic helpers used by driver selection
// and arrival estimates.
package geo

import "math"

// degreeSpan is the per-degree divisor applied to a search radius. It is the
// miles-per-degree approximation carried over unchanged from the matching
// rules already in production, even though radii are configured in
// kilometres. Changing it changes every search radius.
const degreeSpan = 69.0

// Bounds is a latitude/longitude box.
type Bounds struct {
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

// Contains reports whether the point lies inside the box, edges included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}

// BoundsAround returns the box around (lat, lon) for the given radius.
//
// At the poles the longitude span is unbounded, so the box covers every
// longitude there.
func BoundsAround(lat, lon, radius float64) Bounds {
	latDelta := radius / degreeSpan

	b := Bounds{
		LatMin: lat - latDelta,
		LatMax: lat + latDelta,
	}

	denom := math.Abs(math.Cos(toRadians(lat)) * degreeSpan)
	lonDelta := radius / denom
	if denom < 1e-12 || math.IsInf(lonDelta, 0) || lonDelta >= 180 {
		b.LonMin, b.LonMax = -180, 180
		return b
	}

	b.LonMin = lon - lonDelta
	b.LonMax = lon + lonDelta
	return b
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

package geo

import "math"

// Unit selects the output unit of Distance.
type Unit string

const (
	Kilometres    Unit = "km"
	Miles         Unit = "mi"
	NauticalMiles Unit = "nmi"
)

// DefaultPrecision is the number of decimals Distance rounds to.
const DefaultPrecision = 9

// per-degree arc length of a great circle in each unit.
var unitPerDegree = map[Unit]float64{
	Kilometres:    111.13384,
	Miles:         69.05482,
	NauticalMiles: 59.97662,
}

// Distance returns the great-circle distance between two points in
// kilometres, rounded to DefaultPrecision decimals.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	return DistanceIn(lat1, lon1, lat2, lon2, Kilometres, DefaultPrecision)
}

// DistanceIn computes the spherical law of cosines distance in the given
// unit, rounded to precision decimals. Unknown units are treated as
// kilometres.
func DistanceIn(lat1, lon1, lat2, lon2 float64, unit Unit, precision int) float64 {
	perDegree, ok := unitPerDegree[unit]
	if !ok {
		perDegree = unitPerDegree[Kilometres]
	}

	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	theta := math.Abs(lon1 - lon2)
	cosine := math.Sin(toRadians(lat1))*math.Sin(toRadians(lat2)) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Cos(toRadians(theta))

	// Rounding can push identical points slightly past 1.
	cosine = math.Max(-1, math.Min(1, cosine))

	degrees := toDegrees(math.Acos(cosine))
	return round(degrees*perDegree, precision)
}

func round(v float64, precision int) float64 {
	if precision < 0 {
		return v
	}
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}

package geo

import (
	"math"
	"testing"
)

func TestBoundsAround_ContainsCentreAndIsSymmetric(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		lat, lon, rad float64
	}{
		{"lagos", 6.5244, 3.3792, 2},
		{"abuja wide", 9.0765, 7.3986, 3},
		{"southern hemisphere", -33.8688, 151.2093, 5},
		{"equator", 0, 0, 1},
		{"west of greenwich", 51.5072, -0.1276, 0.5},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b := BoundsAround(tc.lat, tc.lon, tc.rad)

			if !(b.LatMin < tc.lat && tc.lat < b.LatMax) {
				t.Errorf("latitude %v not strictly inside [%v, %v]", tc.lat, b.LatMin, b.LatMax)
			}
			if !(b.LonMin < tc.lon && tc.lon < b.LonMax) {
				t.Errorf("longitude %v not strictly inside [%v, %v]", tc.lon, b.LonMin, b.LonMax)
			}
			if d := math.Abs((tc.lat - b.LatMin) - (b.LatMax - tc.lat)); d > 1e-9 {
				t.Errorf("latitude span not symmetric, diff %v", d)
			}
			if d := math.Abs((tc.lon - b.LonMin) - (b.LonMax - tc.lon)); d > 1e-9 {
				t.Errorf("longitude span not symmetric, diff %v", d)
			}
		})
	}
}

func TestBoundsAround_UsesDegreeSpanConstant(t *testing.T) {
	t.Parallel()

	b := BoundsAround(0, 0, 69)
	if math.Abs(b.LatMax-1) > 1e-12 || math.Abs(b.LonMax-1) > 1e-12 {
		t.Errorf("expected a one degree box at the equator, got %+v", b)
	}

	b = BoundsAround(60, 10, 3)
	wantLon := 3 / (math.Cos(60*math.Pi/180) * 69)
	if math.Abs((b.LonMax-10)-wantLon) > 1e-12 {
		t.Errorf("expected longitude delta %v, got %v", wantLon, b.LonMax-10)
	}
}

func TestBoundsAround_PoleCoversAllLongitudes(t *testing.T) {
	t.Parallel()

	b := BoundsAround(90, 45, 2)
	if b.LonMin != -180 || b.LonMax != 180 {
		t.Errorf("expected full longitude range at the pole, got %+v", b)
	}
	if math.IsNaN(b.LatMin) || math.IsNaN(b.LatMax) {
		t.Errorf("latitude bounds must be finite, got %+v", b)
	}
}

func TestBounds_Contains(t *testing.T) {
	t.Parallel()

	b := BoundsAround(6.5, 3.4, 2)
	if !b.Contains(6.5, 3.4) {
		t.Error("centre must be contained")
	}
	if !b.Contains(b.LatMin, b.LonMax) {
		t.Error("edges must be contained")
	}
	if b.Contains(b.LatMax+0.001, 3.4) {
		t.Error("point north of the box must not be contained")
	}
}

func TestDistance_SamePointIsZero(t *testing.T) {
	t.Parallel()

	points := [][2]float64{
		{6.5244, 3.3792},
		{0, 0},
		{-89.9999, 179.9999},
		{45.123456789, -93.987654321},
	}
	for _, p := range points {
		d := Distance(p[0], p[1], p[0], p[1])
		if math.IsNaN(d) {
			t.Fatalf("distance for %v is NaN", p)
		}
		if d != 0 {
			t.Errorf("expected 0 for identical points %v, got %v", p, d)
		}
	}
}

func TestDistance_IsSymmetric(t *testing.T) {
	t.Parallel()

	a := [2]float64{6.4550, 3.3941}
	b := [2]float64{6.6018, 3.3515}

	ab := Distance(a[0], a[1], b[0], b[1])
	ba := Distance(b[0], b[1], a[0], a[1])
	if ab != ba {
		t.Errorf("expected symmetric distance, got %v and %v", ab, ba)
	}
}

func TestDistance_KnownValues(t *testing.T) {
	t.Parallel()

	// One degree of latitude along a meridian.
	if got := Distance(0, 0, 1, 0); math.Abs(got-111.13384) > 1e-6 {
		t.Errorf("expected 111.13384 km, got %v", got)
	}
	if got := DistanceIn(0, 0, 1, 0, Miles, DefaultPrecision); math.Abs(got-69.05482) > 1e-6 {
		t.Errorf("expected 69.05482 mi, got %v", got)
	}
	if got := DistanceIn(0, 0, 1, 0, NauticalMiles, DefaultPrecision); math.Abs(got-59.97662) > 1e-6 {
		t.Errorf("expected 59.97662 nmi, got %v", got)
	}
	if got := DistanceIn(0, 0, 1, 0, Kilometres, 2); got != 111.13 {
		t.Errorf("expected rounding to 2 decimals, got %v", got)
	}
}

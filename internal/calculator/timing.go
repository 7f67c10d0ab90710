package calculator

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidSpeed is returned when a vehicle profile has no usable speed.
var ErrInvalidSpeed = errors.New("vehicle average speed must be positive")

// Window is a min/max duration estimate, whole minutes only.
type Window struct {
	Min time.Duration
	Max time.Duration
}

// Seconds returns the window bounds in seconds.
func (w Window) Seconds() (int64, int64) {
	return int64(w.Min / time.Second), int64(w.Max / time.Second)
}

// Timing computes delivery and driver arrival durations.
type Timing struct {
	DeliveryBoundPercent float64
	ArrivalBoundPercent  float64
}

// TravelSeconds is the exact travel time for a distance at the given
// average speed.
func TravelSeconds(distanceMetres float64, speedKmh float64) (float64, error) {
	if speedKmh <= 0 {
		return 0, ErrInvalidSpeed
	}
	if distanceMetres <= 0 {
		return 0, nil
	}
	return distanceMetres / (speedKmh * 1000) * 3600, nil
}

// DeliveryWindow estimates how long a delivery over distanceMetres takes.
func (t Timing) DeliveryWindow(distanceMetres float64, speedKmh float64) (Window, error) {
	return window(distanceMetres, speedKmh, t.DeliveryBoundPercent)
}

// ArrivalWindow estimates how long the driver takes to reach the pickup
// point distanceKm away.
func (t Timing) ArrivalWindow(distanceKm float64, speedKmh float64) (Window, error) {
	return window(distanceKm*1000, speedKmh, t.ArrivalBoundPercent)
}

func window(distanceMetres, speedKmh, boundPercent float64) (Window, error) {
	exact, err := TravelSeconds(distanceMetres, speedKmh)
	if err != nil {
		return Window{}, err
	}

	minMinutes := wholeMinutes(exact * (100 - boundPercent) / 100)
	maxMinutes := wholeMinutes(exact * (100 + boundPercent) / 100)

	if minMinutes == 0 {
		minMinutes = 1
	}
	if maxMinutes <= 1 {
		maxMinutes = 2
	}
	if minMinutes == maxMinutes {
		maxMinutes++
	}

	return Window{
		Min: time.Duration(minMinutes) * time.Minute,
		Max: time.Duration(maxMinutes) * time.Minute,
	}, nil
}

func wholeMinutes(seconds float64) int64 {
	if seconds <= 0 {
		return 0
	}
	return int64(math.Floor(seconds / 60))
}

package domain

import "time"

// Vehicle is a vehicle profile orders are priced and timed against.
type Vehicle struct {
	ID              string
	Name            string
	AverageSpeedKmh float64
	PricePerKm      int64
	DisabledAt      *time.Time
}

// Enabled reports whether the vehicle can be used for new orders.
func (v *Vehicle) Enabled() bool {
	return v.DisabledAt == nil
}

package domain

import (
	"slices"
	"time"
)

// OrderStatus represents the delivery status of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusEnRoute   OrderStatus = "en_route"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
	OrderStatusIdle      OrderStatus = "idle"
)

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled
}

// RequiresDriver reports whether an order in this status must have a driver.
func (s OrderStatus) RequiresDriver() bool {
	return s == OrderStatusAccepted || s == OrderStatusEnRoute || s == OrderStatusCompleted
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusRejected, OrderStatusEnRoute,
		OrderStatusCompleted, OrderStatusCanceled, OrderStatusIdle:
		return true
	}
	return false
}

// PaymentMethod represents how an order is paid for.
type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCard   PaymentMethod = "card"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodWallet || m == PaymentMethodCard
}

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates are within range.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Receiver is one drop-off stop of an order.
type Receiver struct {
	Name             string      `json:"name"`
	Phone            string      `json:"phone"`
	Email            string      `json:"email,omitempty"`
	Address          string      `json:"address"`
	FormattedAddress string      `json:"formatted_address"`
	Location         Coordinates `json:"location"`
	Items            []string    `json:"items"`
	Weight           *float64    `json:"weight,omitempty"`
	Quantity         *int        `json:"quantity,omitempty"`
	DeliveryNote     string      `json:"delivery_note,omitempty"`
}

// MaxReceivers is the number of drop-off stops an order may have.
const MaxReceivers = 3

// Order represents a delivery request.
type Order struct {
	ID                 string
	CustomerID         string
	DriverID           string // empty while unassigned
	Pickup             Coordinates
	PickupAddress      string
	Receivers          []Receiver
	VehicleID          string
	DistanceMetres     int64
	Amount             int64
	Currency           string
	PaymentMethod      PaymentMethod
	CardID             string
	Status             OrderStatus
	StatusUpdatedAt    time.Time
	CancellationReason string
	PastDrivers        []string
	StatusVersion      int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasPastDriver reports whether driverID was previously assigned.
func (o *Order) HasPastDriver(driverID string) bool {
	return slices.Contains(o.PastDrivers, driverID)
}

// VacateDriver moves the current driver into PastDrivers, once.
func (o *Order) VacateDriver() {
	if o.DriverID != "" && !o.HasPastDriver(o.DriverID) {
		o.PastDrivers = append(o.PastDrivers, o.DriverID)
	}
	o.DriverID = ""
}

// ExcludedDrivers lists the drivers that must not be offered this order again.
func (o *Order) ExcludedDrivers() []string {
	out := make([]string, 0, len(o.PastDrivers)+1)
	out = append(out, o.PastDrivers...)
	if o.DriverID != "" && !o.HasPastDriver(o.DriverID) {
		out = append(out, o.DriverID)
	}
	return out
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	c.PastDrivers = slices.Clone(o.PastDrivers)
	c.Receivers = make([]Receiver, len(o.Receivers))
	for i, r := range o.Receivers {
		r.Items = slices.Clone(r.Items)
		c.Receivers[i] = r
	}
	return &c
}

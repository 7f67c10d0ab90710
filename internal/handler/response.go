package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"delivery/internal/calculator"
	"delivery/internal/domain"
	"delivery/internal/middleware"
	"delivery/internal/repository"
	"delivery/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrLocationUnknown):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidOrderID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidReceivers),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrVehicleUnavailable),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrNotWithdrawal),
		errors.Is(err, service.ErrInvalidEvent):
		return http.StatusBadRequest

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotOrderOwner),
		errors.Is(err, service.ErrNotAssignedDriver):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, service.ErrPaymentInProgress),
		errors.Is(err, service.ErrDriverNotEligible):
		return http.StatusConflict

	// Payment errors
	case errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrPaymentFailed):
		return http.StatusPaymentRequired

	// Upstream provider errors
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway

	// Service unavailable
	case errors.Is(err, service.ErrNoDriverAvailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// actor returns the authenticated caller, responding 401 when there is none.
func actor(c *gin.Context) (domain.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
	}
	return a, ok
}

// WindowResponse is a min/max duration in seconds.
type WindowResponse struct {
	MinSeconds int64 `json:"min_seconds"`
	MaxSeconds int64 `json:"max_seconds"`
}

func window(w calculator.Window) WindowResponse {
	lo, hi := w.Seconds()
	return WindowResponse{MinSeconds: lo, MaxSeconds: hi}
}

// OrderResponse is the HTTP representation of an order.
type OrderResponse struct {
	ID                 string             `json:"id"`
	CustomerID         string             `json:"customer_id"`
	DriverID           string             `json:"driver_id,omitempty"`
	Status             string             `json:"status"`
	PickupAddress      string             `json:"pickup_address"`
	Pickup             domain.Coordinates `json:"pickup"`
	Receivers          []domain.Receiver  `json:"receivers"`
	VehicleID          string             `json:"vehicle_id"`
	DistanceMetres     int64              `json:"distance_metres"`
	Amount             int64              `json:"amount"`
	Currency           string             `json:"currency"`
	PaymentMethod      string             `json:"payment_method"`
	CancellationReason string             `json:"cancellation_reason,omitempty"`
	StatusUpdatedAt    string             `json:"status_updated_at"`
	CreatedAt          string             `json:"created_at,omitempty"`
	DeliveryTime       *WindowResponse    `json:"delivery_time,omitempty"`
	ArrivalTime        *WindowResponse    `json:"arrival_time,omitempty"`
}

func orderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:                 o.ID,
		CustomerID:         o.CustomerID,
		DriverID:           o.DriverID,
		Status:             string(o.Status),
		PickupAddress:      o.PickupAddress,
		Pickup:             o.Pickup,
		Receivers:          o.Receivers,
		VehicleID:          o.VehicleID,
		DistanceMetres:     o.DistanceMetres,
		Amount:             o.Amount,
		Currency:           o.Currency,
		PaymentMethod:      string(o.PaymentMethod),
		CancellationReason: o.CancellationReason,
		StatusUpdatedAt:    o.StatusUpdatedAt.Format(time.RFC3339),
	}
	if !o.CreatedAt.IsZero() {
		resp.CreatedAt = o.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

// TransitionResponse is the HTTP response for a lifecycle action.
type TransitionResponse struct {
	Message string        `json:"message"`
	Changed bool          `json:"changed"`
	Order   OrderResponse `json:"order"`
}

func respondTransition(c *gin.Context, result *service.TransitionResult, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, TransitionResponse{
		Message: result.Message,
		Changed: result.Changed,
		Order:   orderResponse(result.Order),
	})
}

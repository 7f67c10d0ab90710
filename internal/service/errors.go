package service

import (
	"errors"
	"fmt"

	"delivery/internal/domain"
	"delivery/internal/repository"
)

var (
	// ErrNoDriverAvailable is returned when no eligible driver is near the pickup point.
	ErrNoDriverAvailable = errors.New("no driver available")

	// ErrInvalidTransition is returned when an order or withdrawal is in a state the action does not accept.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrNotAssignedDriver is returned when a driver acts on a job assigned to someone else.
	ErrNotAssignedDriver = errors.New("driver not assigned to this order")

	// ErrNotOrderOwner is returned when a customer acts on an order they do not own.
	ErrNotOrderOwner = errors.New("order does not belong to this customer")

	// ErrForbidden is returned when the actor's role may not perform the action.
	ErrForbidden = errors.New("action not allowed for this role")

	// ErrInvalidOrderID is returned when order ID is empty.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidReceivers is returned when an order has no receivers, too many, or one without an address.
	ErrInvalidReceivers = errors.New("an order needs between 1 and 3 receivers, each with an address")

	// ErrInvalidAddress is returned when the pickup address is empty.
	ErrInvalidAddress = errors.New("invalid pickup address")

	// ErrInvalidPaymentMethod is returned when payment method is not wallet or card.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrCardNotFound is returned when a card is missing or owned by another user.
	ErrCardNotFound = errors.New("card not found")

	// ErrVehicleUnavailable is returned when the vehicle does not exist or is disabled.
	ErrVehicleUnavailable = errors.New("vehicle unavailable")

	// ErrDriverNotEligible is returned when a reassignment target cannot take the order.
	ErrDriverNotEligible = errors.New("driver is not eligible for this order")

	// ErrInsufficientBalance is returned when a wallet cannot cover an amount.
	ErrInsufficientBalance = repository.ErrInsufficientBalance

	// ErrPaymentFailed is returned when the gateway declined a charge.
	ErrPaymentFailed = errors.New("payment failed")

	// ErrPaymentInProgress is returned when another request holds the order's payment lock.
	ErrPaymentInProgress = errors.New("order is being processed, retry shortly")

	// ErrInvalidAmount is returned when an amount is not positive.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotWithdrawal is returned when a transaction is not a withdrawal.
	ErrNotWithdrawal = errors.New("transaction is not a withdrawal")

	// ErrAccountNotFound is returned when a payout account is missing or owned by another user.
	ErrAccountNotFound = errors.New("account not found")

	// ErrLocationUnknown is returned when an order has no driver position to track.
	ErrLocationUnknown = errors.New("driver location unknown")

	// ErrUpstream is matched by every *UpstreamError.
	ErrUpstream = errors.New("upstream failure")
)

// TransitionError reports an action attempted from a state that does not
// allow it.
type TransitionError struct {
	Action string
	From   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s: current state is %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func invalidTransition(action Action, from domain.OrderStatus) error {
	return &TransitionError{Action: string(action), From: string(from)}
}

// UpstreamError reports a failed call to an external provider.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s failure (status %d): %s", e.Provider, e.StatusCode, e.Message)
	case e.Status != "":
		return fmt.Sprintf("%s failure (%s): %s", e.Provider, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s failure: %s", e.Provider, e.Message)
	}
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// TransitionResult is the outcome of a lifecycle action. Changed is false
// when the order was already in the requested state.
type TransitionResult struct {
	Order   *domain.Order
	Changed bool
	Message string
}

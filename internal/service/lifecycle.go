package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"delivery/internal/domain"
	"delivery/internal/paystack"
	"delivery/internal/redis"
	"delivery/internal/repository"
)

// Action names a lifecycle transition.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionReassign Action = "reassign"
	ActionEnRoute  Action = "mark en route"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionIdle     Action = "mark idle"
)

type transition struct {
	from    []domain.OrderStatus
	to      domain.OrderStatus
	done    string
	already string
}

// transitions is the order state machine. An action requested on an order
// already in its target state is a soft success with the already message.
var transitions = map[Action]transition{
	ActionAccept: {
		from:    []domain.OrderStatus{domain.OrderStatusPending},
		to:      domain.OrderStatusAccepted,
		done:    "Order accepted",
		already: "Order already accepted",
	},
	ActionReject: {
		from:    []domain.OrderStatus{domain.OrderStatusPending},
		to:      domain.OrderStatusRejected,
		done:    "Order rejected",
		already: "Order already rejected",
	},
	ActionReassign: {
		from:    []domain.OrderStatus{domain.OrderStatusRejected, domain.OrderStatusIdle},
		to:      domain.OrderStatusPending,
		done:    "Order reassigned",
		already: "Order is already pending with a driver",
	},
	ActionEnRoute: {
		from:    []domain.OrderStatus{domain.OrderStatusAccepted},
		to:      domain.OrderStatusEnRoute,
		done:    "Order is en route",
		already: "Order already en route",
	},
	ActionComplete: {
		from:    []domain.OrderStatus{domain.OrderStatusEnRoute},
		to:      domain.OrderStatusCompleted,
		done:    "Order completed",
		already: "Order already completed",
	},
	ActionCancel: {
		from:    []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusIdle},
		to:      domain.OrderStatusCanceled,
		done:    "Order canceled",
		already: "Order already canceled",
	},
	ActionIdle: {
		from:    []domain.OrderStatus{domain.OrderStatusPending},
		to:      domain.OrderStatusIdle,
		done:    "No drivers available",
		already: "Order already idle",
	},
}

// CanTransition reports whether action is allowed from status.
func CanTransition(action Action, from domain.OrderStatus) bool {
	t, ok := transitions[action]
	return ok && slices.Contains(t.from, from)
}

// mutation applies the side effects of a transition to a locked order.
type mutation func(ctx context.Context, r repository.Repositories, order *domain.Order, out *Outbox) error

// OrderLifecycle owns every order state change. Each transition reads the
// order row under lock, checks the actor and source state, applies side
// effects and writes the new state with a version check, all in one
// transaction.
type OrderLifecycle struct {
	store    repository.Store
	payments *PaymentCoordinator
	notifier *NotificationService
	selector *DriverCandidateSelector
	locks    redis.LockStoreInterface
	lockTTL  time.Duration
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrderLifecycle creates a new OrderLifecycle. locks may be nil, in which
// case the database version check alone serialises writers.
func NewOrderLifecycle(
	store repository.Store,
	payments *PaymentCoordinator,
	notifier *NotificationService,
	selector *DriverCandidateSelector,
	locks redis.LockStoreInterface,
	lockTTL time.Duration,
	metrics Metrics,
	logger *slog.Logger,
) *OrderLifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &OrderLifecycle{
		store:    store,
		payments: payments,
		notifier: notifier,
		selector: selector,
		locks:    locks,
		lockTTL:  lockTTL,
		metrics:  metricsOrNop(metrics),
		logger:   logger,
		now:      time.Now,
	}
}

// Accept moves a pending job to accepted on behalf of its driver.
func (l *OrderLifecycle) Accept(ctx context.Context, actor domain.Actor, orderID string) (*TransitionResult, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	return l.withLock(ctx, orderID, func() (*TransitionResult, error) {
		return l.apply(ctx, orderID, ActionAccept, assignedDriver(actor, ActionAccept),
			func(ctx context.Context, r repository.Repositories, order *domain.Order, out *Outbox) error {
				out.Notify(order.CustomerID, titleOrderAccepted,
					fmt.Sprintf("Your order with ID #%s has just been accepted by the driver", order.ID),
					orderData(order))
				return nil
			})
	})
}

// Reject moves a pending job to rejected on behalf of its driver. The
// driver stays on the order until it is reassigned.
func (l *OrderLifecycle) Reject(ctx context.Context, actor domain.Actor, orderID string) (*TransitionResult, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	return l.withLock(ctx, orderID, func() (*TransitionResult, error) {
		return l.apply(ctx, orderID, ActionReject, assignedDriver(actor, ActionReject),
			func(ctx context.Context, r repository.Repositories, order *domain.Order, out *Outbox) error {
				if err := r.Drivers.IncrementRejected(ctx, order.DriverID); err != nil {
					return err
				}
				out.Notify(order.CustomerID, titleOrderRejected,
					fmt.Sprintf("Your order with ID #%s was just rejected by the driver. Please assign delivery to another driver", order.ID),
					orderData(order))
				return nil
			})
	})
}

// MarkEnRoute captures payment and moves an accepted job to en route. If
// the capture fails the order stays accepted and the customer is told why.
func (l *OrderLifecycle) MarkEnRoute(ctx context.Context, actor domain.Actor, orderID string) (*TransitionResult, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	return l.withLock(ctx, orderID, func() (*TransitionResult, error) {
		repos := l.store.Repos()
		order, err := l.precheck(ctx, repos, orderID, ActionEnRoute, assignedDriver(actor, ActionEnRoute))
		if err != nil || order == nil {
			return l.softResult(ctx, repos, orderID, ActionEnRoute, err)
		}

		notify := func(out *Outbox, order *domain.Order) {
			out.Notify(order.CustomerID, titleOrderEnRoute,
				fmt.Sprintf("Your order with ID #%s is on its way", order.ID),
				orderData(order))
		}

		if order.PaymentMethod == domain.PaymentMethodCard {
			reference := CaptureReference(order.ID)
			captured, err := repos.Transactions.ExistsByReference(ctx, reference)
			if err != nil {
				return nil, err
			}
			if !captured {
				_, err := l.payments.ChargeCard(ctx, repos, order, order.Amount, reference, map[string]string{
					"type":     paystack.MetadataCardPayment,
					"order_id": order.ID,
				})
				if err != nil {
					l.paymentFailed(ctx, order, err)
					return nil, err
				}
			}

			return l.apply(ctx, orderID, ActionEnRoute, assignedDriver(actor, ActionEnRoute),
				func(ctx context.Context, r repository.Repositories, order *domain.Order, out *Outbox) error {
					recorded, err := r.Transactions.ExistsByReference(ctx, reference)
					if err != nil {
						return err
					}
					if !recorded {
						if err := l.payments.RecordCardCapture(ctx, r, order, reference); err != nil {
							return err
						}
					}
					notify(out, order)
					return nil
				})
		}

		result, err := l.apply(ctx, orderID, ActionEnRoute, assignedDriver(actor, ActionEnRoute),
			func(ctx context.Context, r repository.Repositories, order *domain.Order, out *Outbox) error {
				if err := l.payments.CaptureWallet(ctx, r, order); err != nil {
					if errors.Is(err, repository.ErrInsufficientBalance) {
						return fmt.Errorf("%w: %w", ErrPaymentFailed, err)
					}
					return err
				}
				notify(out, order)
				return nil
			})
		if errors.Is(err, ErrPaymentFailed) {
			l.paymentFailed(ctx, order, err)
		}
		return result, err
	})
}

// Complete pays the driver out and moves an en route job to completed.
func (l *OrderLifecycle) Complete(ctx context.Context, actor domain.Actor, orderID string) (*TransitionResult, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	return l.withLock(ctx, orderID, func() (*TransitionResult, error) {
		return l.apply(ctx, orderID, ActionComplete, assignedDriver(actor, ActionComplete),
			func(ctx context.Context, r repository.Repositories, order *domain.Order, out *Outbox) error {
				if err := l.payments.Payout(ctx, r, order); err != nil {
					return err
				}
				out.Notify(order.CustomerID, titleOrderCompleted,
					fmt.Sprintf("Your order with ID #%s has been delivered", order.ID),
					orderData(order))
				out.Notify(order.DriverID, titlePaymentReceived,
					fmt.Sprintf("Payment for successful delivery of Order #%s", order.ID),
					orderData(order))
				return nil
			})
	})
}

// Cancel charges the cancellation fee and moves a pending or idle order to
// canceled on behalf of its customer.
func (l *OrderLifecycle) Cancel(ctx context.Context, actor domain.Actor, orderID string, reason string) (*TransitionResult, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	return l.withLock(ctx, orderID, func() (*TransitionResult, error) {
		repos := l.store.Repos()
		order, err := l.precheck(ctx, repos, orderID, ActionCancel, orderOwner(actor))
		if err != nil || order == nil {
			return l.softResult(ctx, repos, orderID, ActionCancel, err)
		}

		fee, err := l.payments.CancellationFee(order)
		if err != nil {
			return nil, err
		}

		reference := CancellationReference(order.ID)
		byCard := order.PaymentMethod == domain.PaymentMethodCard && fee > 0

		if byCard {
			charged, err := repos.Transactions.ExistsByReference(ctx, reference)
			if err != nil {
				return nil, err
			}
			if !charged {
				_, err := l.payments.ChargeCard(ctx, repos, order, fee, reference, map[string]string{
					"type":     paystack.MetadataOrderCancellation,
					"order_id": order.ID,
					"reason":   reason,
				})
				if err != nil {
					l.paymentFailed(ctx, order, err)
					return nil, err
				}
			}
		}

		return l.apply(ctx, orderID, ActionCancel, orderOwner(actor),
			func(ctx context.Context, r repository.Repositories, order *domain.Order, out *Outbox) error {
				if byCard {
					recorded, err := r.Transactions.ExistsByReference(ctx, reference)
					if err != nil {
						return err
					}
					if !recorded {
						if err := l.payments.RecordCancellationFee(ctx, r, order, fee, reference); err != nil {
							return err
						}
					}
				} else if err := l.payments.ChargeCancellationWallet(ctx, r, order, fee); err != nil {
					return err
				}

				order.CancellationReason = reason
				out.Inbox(order.CustomerID, titleOrderCanceled,
					fmt.Sprintf("Your order with ID #%s was canceled. A cancellation fee of %d %s was charged", order.ID, fee, order.Currency),
					orderData(order))
				out.Notify(order.DriverID, titleOrderCanceled,
					fmt.Sprintf("The customer with order ID #%s just canceled the order", order.ID),
					orderData(order))
				return nil
			})
	})
}

// Reassign hands a rejected or idle order to another driver. An empty
// driverID picks one with the candidate selector.
func (l *OrderLifecycle) Reassign(ctx context.Context, actor domain.Actor, orderID string, driverID string) (*TransitionResult, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	authorize := func(order *domain.Order) error {
		if actor.Is(domain.RoleAdmin) {
			return nil
		}
		return orderOwner(actor)(order)
	}

	return l.withLock(ctx, orderID, func() (*TransitionResult, error) {
		return l.apply(ctx, orderID, ActionReassign, authorize,
			func(ctx context.Context, r repository.Repositories, order *domain.Order, out *Outbox) error {
				driver, err := l.reassignTarget(ctx, r, order, driverID)
				if err != nil {
					return err
				}

				if order.PaymentMethod == domain.PaymentMethodWallet {
					customer, err := r.Users.GetByID(ctx, order.CustomerID)
					if err != nil {
						return err
					}
					if !customer.CanPay(order.Amount) {
						return ErrInsufficientBalance
					}
				}

				order.VacateDriver()
				order.DriverID = driver.UserID
				notifyNewJob(out, order)
				out.Inbox(order.CustomerID, titleOrderReassigned,
					fmt.Sprintf("Your order with ID #%s has been assigned to another driver", order.ID),
					orderData(order))
				return nil
			})
	})
}

func (l *OrderLifecycle) reassignTarget(ctx context.Context, r repository.Repositories, order *domain.Order, driverID string) (*domain.Driver, error) {
	exclude := order.ExcludedDrivers()

	if driverID == "" {
		driver, err := l.selector.Select(ctx, order.Pickup, order.VehicleID, exclude)
		if err != nil {
			return nil, err
		}
		if driver == nil {
			return nil, ErrNoDriverAvailable
		}
		return driver, nil
	}

	if slices.Contains(exclude, driverID) {
		return nil, ErrDriverNotEligible
	}

	driver, err := r.Drivers.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriverNotEligible
		}
		return nil, err
	}

	if !driver.Eligible(order.VehicleID) || !l.selector.InRange(driver, order.Pickup) {
		return nil, ErrDriverNotEligible
	}

	return driver, nil
}

// ReassignStale hands a stale pending order to driverID. It fails with
// repository.ErrConflict if the order changed since it was read at version.
func (l *OrderLifecycle) ReassignStale(ctx context.Context, orderID string, version int64, driverID string) (*TransitionResult, error) {
	return l.withLock(ctx, orderID, func() (*TransitionResult, error) {
		out := &Outbox{}
		var result *TransitionResult

		err := l.store.WithinTx(ctx, func(r repository.Repositories) error {
			order, err := r.Orders.GetForUpdate(ctx, orderID)
			if err != nil {
				return err
			}
			if order.Status != domain.OrderStatusPending || order.StatusVersion != version {
				return repository.ErrConflict
			}

			hadDriver := order.DriverID != ""
			order.VacateDriver()
			order.DriverID = driverID
			order.StatusUpdatedAt = l.now()

			notifyNewJob(out, order)
			if !hadDriver {
				out.Notify(order.CustomerID, titleOrderReassigned,
					fmt.Sprintf("Your order with ID #%s has been assigned to a driver", order.ID),
					orderData(order))
			}

			if err := r.Orders.Update(ctx, order); err != nil {
				return err
			}
			if err := l.notifier.Persist(ctx, r, out); err != nil {
				return err
			}

			result = &TransitionResult{Order: order, Changed: true, Message: transitions[ActionReassign].done}
			return nil
		})
		if err != nil {
			return nil, err
		}

		l.metrics.RecordTransition(ctx, string(ActionReassign), true)
		l.notifier.Dispatch(ctx, out)
		return result, nil
	})
}

// MarkIdle clears the driver of a stale pending order that found no
// candidate. It fails with repository.ErrConflict if the order changed
// since it was read at version.
func (l *OrderLifecycle) MarkIdle(ctx context.Context, orderID string, version int64) (*TransitionResult, error) {
	checkVersion := func(order *domain.Order) error {
		if order.StatusVersion != version {
			return repository.ErrConflict
		}
		return nil
	}

	return l.withLock(ctx, orderID, func() (*TransitionResult, error) {
		return l.apply(ctx, orderID, ActionIdle, checkVersion,
			func(ctx context.Context, r repository.Repositories, order *domain.Order, out *Outbox) error {
				order.VacateDriver()
				out.Notify(order.CustomerID, titleNoDrivers,
					fmt.Sprintf("No drivers are available for your order with ID #%s at the moment", order.ID),
					map[string]string{"type": pushTypeNoDrivers, "order_id": order.ID})
				return nil
			})
	})
}

// apply runs one transition inside a transaction.
func (l *OrderLifecycle) apply(
	ctx context.Context,
	orderID string,
	action Action,
	authorize func(*domain.Order) error,
	mutate mutation,
) (*TransitionResult, error) {
	t := transitions[action]
	out := &Outbox{}
	var result *TransitionResult

	err := l.store.WithinTx(ctx, func(r repository.Repositories) error {
		order, err := r.Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		if authorize != nil {
			if err := authorize(order); err != nil {
				return err
			}
		}

		if order.Status == t.to {
			result = &TransitionResult{Order: order, Message: t.already}
			return nil
		}

		if !slices.Contains(t.from, order.Status) {
			return invalidTransition(action, order.Status)
		}

		if err := mutate(ctx, r, order, out); err != nil {
			return err
		}

		order.Status = t.to
		order.StatusUpdatedAt = l.now()

		if err := r.Orders.Update(ctx, order); err != nil {
			return err
		}

		if err := l.notifier.Persist(ctx, r, out); err != nil {
			return err
		}

		result = &TransitionResult{Order: order, Changed: true, Message: t.done}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.metrics.RecordTransition(ctx, string(action), result.Changed)
	if result.Changed {
		l.notifier.Dispatch(ctx, out)
	}
	return result, nil
}

// precheck validates an action against a snapshot of the order before any
// external call is made. It returns a nil order when the order is already
// in the target state.
func (l *OrderLifecycle) precheck(
	ctx context.Context,
	repos repository.Repositories,
	orderID string,
	action Action,
	authorize func(*domain.Order) error,
) (*domain.Order, error) {
	order, err := repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := authorize(order); err != nil {
		return nil, err
	}

	t := transitions[action]
	if order.Status == t.to {
		return nil, nil
	}
	if !slices.Contains(t.from, order.Status) {
		return nil, invalidTransition(action, order.Status)
	}

	return order, nil
}

// softResult turns a precheck outcome into the caller's result.
func (l *OrderLifecycle) softResult(ctx context.Context, repos repository.Repositories, orderID string, action Action, err error) (*TransitionResult, error) {
	if err != nil {
		return nil, err
	}

	order, err := repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	l.metrics.RecordTransition(ctx, string(action), false)
	return &TransitionResult{Order: order, Message: transitions[action].already}, nil
}

// paymentFailed tells the customer a charge did not go through.
func (l *OrderLifecycle) paymentFailed(ctx context.Context, order *domain.Order, cause error) {
	var declined *DeclinedError
	message := "Payment failed"
	switch {
	case errors.As(cause, &declined) && declined.Message != "":
		message = "Payment failed: " + declined.Message
	case errors.Is(cause, repository.ErrInsufficientBalance):
		message = "Payment failed: insufficient wallet balance"
	case errors.Is(cause, ErrPaymentFailed):
	default:
		return
	}

	out := &Outbox{}
	out.Notify(order.CustomerID, titlePaymentFailed, message, orderData(order))
	if err := l.notifier.Send(ctx, l.store, out); err != nil {
		l.logger.Warn("failed to record payment failure notification",
			"order_id", order.ID,
			"error", err,
		)
	}
}

// withLock serialises work on an order across replicas. When the lock
// store is unavailable the database version check still applies.
func (l *OrderLifecycle) withLock(ctx context.Context, orderID string, fn func() (*TransitionResult, error)) (*TransitionResult, error) {
	if l.locks == nil {
		return fn()
	}

	name := redis.OrderLockName(orderID)
	owner := uuid.New().String()

	acquired, err := l.locks.Acquire(ctx, name, owner, l.lockTTL)
	if err != nil {
		l.logger.Warn("order lock unavailable, relying on version check",
			"order_id", orderID,
			"error", err,
		)
		return fn()
	}
	if !acquired {
		return nil, ErrPaymentInProgress
	}

	defer func() {
		if err := l.locks.Release(context.WithoutCancel(ctx), name, owner); err != nil {
			l.logger.Warn("failed to release order lock", "order_id", orderID, "error", err)
		}
	}()

	return fn()
}

// assignedDriver guards the driver actions. An order without a driver is in
// none of their source states, so it reports the transition as invalid.
func assignedDriver(actor domain.Actor, action Action) func(*domain.Order) error {
	return func(order *domain.Order) error {
		if !actor.Is(domain.RoleDriver) {
			return ErrNotAssignedDriver
		}
		if order.DriverID == "" {
			return invalidTransition(action, order.Status)
		}
		if order.DriverID != actor.ID {
			return ErrNotAssignedDriver
		}
		return nil
	}
}

func orderOwner(actor domain.Actor) func(*domain.Order) error {
	return func(order *domain.Order) error {
		if !actor.Is(domain.RoleCustomer) || order.CustomerID != actor.ID {
			return ErrNotOrderOwner
		}
		return nil
	}
}

func orderData(order *domain.Order) map[string]string {
	return map[string]string{
		"type":     pushTypeOrder,
		"order_id": order.ID,
		"status":   string(order.Status),
	}
}

func notifyNewJob(out *Outbox, order *domain.Order) {
	out.Notify(order.DriverID, titleNewJob,
		fmt.Sprintf("A new job with ID #%s was assigned to you", order.ID),
		map[string]string{"type": pushTypeJob, "job_id": order.ID, "driver_id": order.DriverID})
}

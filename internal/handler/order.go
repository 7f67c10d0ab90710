package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"delivery/internal/calculator"
	"delivery/internal/domain"
	"delivery/internal/service"
)

// OrderHandler handles HTTP requests for customer orders.
type OrderHandler struct {
	orderService  *service.OrderService
	lifecycle     *service.OrderLifecycle
	driverService *service.DriverService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *service.OrderService, lifecycle *service.OrderLifecycle, driverService *service.DriverService) *OrderHandler {
	return &OrderHandler{
		orderService:  orderService,
		lifecycle:     lifecycle,
		driverService: driverService,
	}
}

// EstimateOrderRequest is the HTTP request body for a price estimate.
type EstimateOrderRequest struct {
	PickupAddress string            `json:"pickup_address"`
	Receivers     []domain.Receiver `json:"receivers"`
	VehicleID     string            `json:"vehicle_id"`
}

// VehicleEstimateResponse is the estimate for one vehicle type.
type VehicleEstimateResponse struct {
	VehicleID    string                `json:"vehicle_id"`
	VehicleName  string                `json:"vehicle_name"`
	Price        calculator.PriceRange `json:"price"`
	DeliveryTime WindowResponse        `json:"delivery_time"`
}

// EstimateResponse is the HTTP response for a price estimate.
type EstimateResponse struct {
	PickupAddress  string                    `json:"pickup_address"`
	DistanceMetres int64                     `json:"distance_metres"`
	Vehicles       []VehicleEstimateResponse `json:"vehicles"`
}

// CreateOrderRequest is the HTTP request body for creating an order.
type CreateOrderRequest struct {
	PickupAddress string            `json:"pickup_address"`
	Receivers     []domain.Receiver `json:"receivers"`
	VehicleID     string            `json:"vehicle_id"`
	PaymentMethod string            `json:"payment_method"`
	CardID        string            `json:"card_id"`
}

// CancelOrderRequest is the HTTP request body for canceling an order.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// ReassignOrderRequest is the HTTP request body for reassigning an order.
// An empty DriverID asks for a random eligible driver.
type ReassignOrderRequest struct {
	DriverID string `json:"driver_id"`
}

// TrackingResponse is the HTTP response for tracking an order's driver.
type TrackingResponse struct {
	OrderID     string             `json:"order_id"`
	DriverID    string             `json:"driver_id"`
	Location    domain.Coordinates `json:"location"`
	UpdatedAt   string             `json:"updated_at,omitempty"`
	ArrivalTime WindowResponse     `json:"arrival_time"`
}

// Estimate handles POST /v1/orders/estimate
func (h *OrderHandler) Estimate(c *gin.Context) {
	var req EstimateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	est, err := h.orderService.Estimate(c.Request.Context(), service.EstimateRequest{
		PickupAddress: req.PickupAddress,
		Receivers:     req.Receivers,
		VehicleID:     req.VehicleID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := EstimateResponse{
		PickupAddress:  est.PickupAddress,
		DistanceMetres: est.DistanceMetres,
		Vehicles:       make([]VehicleEstimateResponse, 0, len(est.Vehicles)),
	}
	for _, v := range est.Vehicles {
		resp.Vehicles = append(resp.Vehicles, VehicleEstimateResponse{
			VehicleID:    v.VehicleID,
			VehicleName:  v.VehicleName,
			Price:        v.Price,
			DeliveryTime: window(v.DeliveryTime),
		})
	}
	respondJSON(c, http.StatusOK, resp)
}

// Create handles POST /v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	created, err := h.orderService.Create(c.Request.Context(), a, service.CreateOrderRequest{
		PickupAddress: req.PickupAddress,
		Receivers:     req.Receivers,
		VehicleID:     req.VehicleID,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		CardID:        req.CardID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := orderResponse(created.Order)
	delivery, arrival := window(created.DeliveryTime), window(created.ArrivalTime)
	resp.DeliveryTime = &delivery
	resp.ArrivalTime = &arrival
	respondJSON(c, http.StatusCreated, resp)
}

// Get handles GET /v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	order, err := h.orderService.Get(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, orderResponse(order))
}

// Track handles GET /v1/orders/:id/track
func (h *OrderHandler) Track(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	tracking, err := h.driverService.TrackOrder(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := TrackingResponse{
		OrderID:     tracking.OrderID,
		DriverID:    tracking.DriverID,
		Location:    tracking.Location,
		ArrivalTime: window(tracking.Arrival),
	}
	if !tracking.UpdatedAt.IsZero() {
		resp.UpdatedAt = tracking.UpdatedAt.Format(time.RFC3339)
	}
	respondJSON(c, http.StatusOK, resp)
}

// Cancel handles POST /v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}

	result, err := h.lifecycle.Cancel(c.Request.Context(), a, c.Param("id"), req.Reason)
	respondTransition(c, result, err)
}

// Reassign handles POST /v1/orders/:id/reassign
func (h *OrderHandler) Reassign(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req ReassignOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}

	result, err := h.lifecycle.Reassign(c.Request.Context(), a, c.Param("id"), req.DriverID)
	respondTransition(c, result, err)
}

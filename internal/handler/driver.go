package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"delivery/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// UpdateLocationRequest is the HTTP request body for updating driver location.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Online handles POST /v1/drivers/online
func (h *DriverHandler) Online(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	if err := h.driverService.GoOnline(c.Request.Context(), a); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Offline handles POST /v1/drivers/offline
func (h *DriverHandler) Offline(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	if err := h.driverService.GoOffline(c.Request.Context(), a); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UpdateLocation handles POST /v1/drivers/location
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.driverService.UpdateLocation(c.Request.Context(), a, service.UpdateLocationRequest{
		DriverID: a.ID,
		Lat:      req.Lat,
		Lng:      req.Lng,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"delivery/internal/domain"
	"delivery/internal/service"
)

// JobHandler handles a driver's actions on an assigned order.
type JobHandler struct {
	lifecycle *service.OrderLifecycle
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(lifecycle *service.OrderLifecycle) *JobHandler {
	return &JobHandler{lifecycle: lifecycle}
}

type jobAction func(ctx context.Context, actor domain.Actor, orderID string) (*service.TransitionResult, error)

func (h *JobHandler) handle(c *gin.Context, action jobAction) {
	a, ok := actor(c)
	if !ok {
		return
	}
	result, err := action(c.Request.Context(), a, c.Param("id"))
	respondTransition(c, result, err)
}

// Accept handles POST /v1/jobs/:id/accept
func (h *JobHandler) Accept(c *gin.Context) { h.handle(c, h.lifecycle.Accept) }

// Reject handles POST /v1/jobs/:id/reject
func (h *JobHandler) Reject(c *gin.Context) { h.handle(c, h.lifecycle.Reject) }

// EnRoute handles POST /v1/jobs/:id/en-route
func (h *JobHandler) EnRoute(c *gin.Context) { h.handle(c, h.lifecycle.MarkEnRoute) }

// Complete handles POST /v1/jobs/:id/complete
func (h *JobHandler) Complete(c *gin.Context) { h.handle(c, h.lifecycle.Complete) }

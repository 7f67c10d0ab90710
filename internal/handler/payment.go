package handler

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"delivery/internal/domain"
	"delivery/internal/paystack"
	"delivery/internal/service"
)

// maxWebhookBody caps the size of a gateway event.
const maxWebhookBody = 1 << 20

// PaymentHandler handles withdrawals and payment gateway callbacks.
type PaymentHandler struct {
	withdrawals   *service.WithdrawalService
	webhooks      *service.WebhookService
	webhookSecret string
	logger        *slog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(withdrawals *service.WithdrawalService, webhooks *service.WebhookService, webhookSecret string, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		withdrawals:   withdrawals,
		webhooks:      webhooks,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// WithdrawalRequest is the HTTP request body for requesting a withdrawal.
type WithdrawalRequest struct {
	Amount    int64  `json:"amount"`
	AccountID string `json:"account_id"`
}

// WithdrawalResponse is the HTTP response for withdrawal operations.
type WithdrawalResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	Fee       int64  `json:"fee"`
	Total     int64  `json:"total"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	AccountID string `json:"account_id"`
	CreatedAt string `json:"created_at,omitempty"`
}

// WithdrawalActionResponse is the HTTP response for confirming or rejecting a withdrawal.
type WithdrawalActionResponse struct {
	Message    string             `json:"message"`
	Changed    bool               `json:"changed"`
	Withdrawal WithdrawalResponse `json:"withdrawal"`
}

func withdrawalResponse(tx *domain.Transaction) WithdrawalResponse {
	resp := WithdrawalResponse{
		ID:       tx.ID,
		UserID:   tx.UserID,
		Amount:   tx.Amount,
		Currency: tx.Currency,
	}
	if tx.Meta != nil {
		resp.Fee = tx.Meta.Fee
		resp.Total = tx.Meta.Total
		resp.Status = string(tx.Meta.Status)
		resp.AccountID = tx.Meta.AccountID
	}
	if !tx.CreatedAt.IsZero() {
		resp.CreatedAt = tx.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

// RequestWithdrawal handles POST /v1/withdrawals
func (h *PaymentHandler) RequestWithdrawal(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.AccountID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "account_id is required"})
		return
	}

	tx, err := h.withdrawals.Request(c.Request.Context(), a, service.WithdrawalRequest{
		Amount:    req.Amount,
		AccountID: req.AccountID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, withdrawalResponse(tx))
}

// ConfirmWithdrawal handles POST /v1/admin/withdrawals/:id/confirm
func (h *PaymentHandler) ConfirmWithdrawal(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	result, err := h.withdrawals.Confirm(c.Request.Context(), a, c.Param("id"))
	respondWithdrawal(c, result, err)
}

// RejectWithdrawal handles POST /v1/admin/withdrawals/:id/reject
func (h *PaymentHandler) RejectWithdrawal(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	result, err := h.withdrawals.Reject(c.Request.Context(), a, c.Param("id"))
	respondWithdrawal(c, result, err)
}

func respondWithdrawal(c *gin.Context, result *service.WithdrawalResult, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, WithdrawalActionResponse{
		Message:    result.Message,
		Changed:    result.Changed,
		Withdrawal: withdrawalResponse(result.Transaction),
	})
}

// PaystackWebhook handles POST /v1/webhooks/paystack
func (h *PaymentHandler) PaystackWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if !paystack.VerifySignature(h.webhookSecret, body, c.GetHeader(paystack.SignatureHeader)) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
		return
	}

	ev, err := paystack.ParseEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid event"})
		return
	}

	if err := h.webhooks.HandleEvent(c.Request.Context(), ev); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "paystack webhook failed",
			slog.String("event", ev.Event),
			slog.Any("error", err),
		)
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

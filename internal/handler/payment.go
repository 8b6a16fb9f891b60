package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridehail/internal/domain"
	"ridehail/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// WebhookRequest is the processor callback body.
type WebhookRequest struct {
	TransactionID string `json:"transaction_id"`
	Result        string `json:"result"` // paid, failed, cancelled
}

// HoldRequest is the HTTP request body for holding a payment.
type HoldRequest struct {
	DriverID string `json:"driver_id"`
}

// PaymentResponse is the HTTP representation of a payment.
type PaymentResponse struct {
	ID            string  `json:"id"`
	RideID        string  `json:"ride_id,omitempty"`
	DriverID      string  `json:"driver_id,omitempty"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	HeldAt        string  `json:"held_at,omitempty"`
	ReleasedAt    string  `json:"released_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:            p.ID,
		RideID:        p.RideID,
		DriverID:      p.DriverID,
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		Status:        string(p.Status),
		CreatedAt:     formatTime(p.CreatedAt),
	}
	if !p.HeldAt.IsZero() {
		resp.HeldAt = formatTime(p.HeldAt)
	}
	if !p.ReleasedAt.IsZero() {
		resp.ReleasedAt = formatTime(p.ReleasedAt)
	}
	return resp
}

// InitiatePayment handles POST /v1/rides/:id/payment
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	url, err := h.paymentService.InitiatePayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"checkout_url": url})
}

// Webhook handles POST /v1/payments/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.paymentService.HandleGatewayResult(c.Request.Context(), req.TransactionID, service.GatewayResult(req.Result))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "processed"})
}

// Hold handles POST /v1/payments/:id/hold
func (h *PaymentHandler) Hold(c *gin.Context) {
	var req HoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.paymentService.Hold(c.Request.Context(), c.Param("id"), req.DriverID); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "payment held"})
}

// Release handles POST /v1/payments/:id/release
func (h *PaymentHandler) Release(c *gin.Context) {
	if err := h.paymentService.Release(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "payment released"})
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/domain"
	"rideshare/internal/middleware"
	"rideshare/internal/service"
)

// PaymentHandler handles HTTP requests for passenger payments.
type PaymentHandler struct {
	rideService *service.RideService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(rideService *service.RideService) *PaymentHandler {
	return &PaymentHandler{rideService: rideService}
}

// ProcessPaymentRequest is the HTTP request body for paying a passenger's fare.
type ProcessPaymentRequest struct {
	Method domain.PaymentMethod `json:"method"`
}

// ProcessPayment handles POST /v1/rides/:id/passengers/:pid/payment
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	receipt, err := h.rideService.ProcessPayment(c.Request.Context(), middleware.ActorFrom(c), service.ProcessPaymentRequest{
		RideID:      c.Param("id"),
		PassengerID: c.Param("pid"),
		Method:      req.Method,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, receipt)
}

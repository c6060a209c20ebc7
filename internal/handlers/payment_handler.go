package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jumanahj/NextPay/internal/models"
	"github.com/jumanahj/NextPay/internal/service"
)

// ==============================================
// SERVICE INTERFACE (for testing)
// ==============================================

type PaymentService interface {
	Initiate(ctx context.Context, req models.InitiateRequest) (*models.InitiateResponse, error)
	Verify(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error)
	Resend(ctx context.Context, req models.ResendRequest) (*models.ResendResponse, error)
	GetStatus(ctx context.Context, transactionID string) (*models.AttemptStatusResponse, error)
}

// ==============================================
// HANDLER (HTTP Layer ONLY)
// ==============================================

type PaymentHandler struct {
	service PaymentService
}

func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// ==============================================
// ENDPOINTS
// ==============================================

// Initiate handles POST /api/pay/initiate
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req models.InitiateRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Missing required payment details", err)
		return
	}

	resp, err := h.service.Initiate(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Verify handles POST /api/pay/verify-otp
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req models.VerifyRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Transaction ID and OTP required", err)
		return
	}

	resp, err := h.service.Verify(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Resend handles POST /api/pay/resend-otp
func (h *PaymentHandler) Resend(c *gin.Context) {
	var req models.ResendRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Transaction ID required", err)
		return
	}

	resp, err := h.service.Resend(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetStatus handles GET /api/pay/status/:transaction_id
func (h *PaymentHandler) GetStatus(c *gin.Context) {
	transactionID := c.Param("transaction_id")
	if transactionID == "" {
		respondError(c, http.StatusBadRequest, "Transaction ID required", errors.New("missing transaction_id"))
		return
	}

	resp, err := h.service.GetStatus(c.Request.Context(), transactionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ==============================================
// ROUTE REGISTRATION
// ==============================================

func (h *PaymentHandler) RegisterRoutes(router *gin.Engine) {
	pay := router.Group("/api/pay")
	{
		pay.POST("/initiate", h.Initiate)
		pay.POST("/verify-otp", h.Verify)
		pay.POST("/resend-otp", h.Resend)
		pay.GET("/status/:transaction_id", h.GetStatus)
	}
}

// ==============================================
// HELPER FUNCTIONS
// ==============================================

// respondError sends an error JSON response
func respondError(c *gin.Context, statusCode int, message string, err error) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"message": message,
		"error":   err.Error(),
	})
}

// respondServiceError maps service errors to appropriate HTTP status codes
func respondServiceError(c *gin.Context, err error) {
	statusCode, message := mapServiceError(err)
	c.JSON(statusCode, gin.H{
		"success": false,
		"message": message,
	})
}

// mapServiceError maps service errors to HTTP status codes and
// user-facing messages per the failure taxonomy: validation 400,
// not-found 404, business rule 422, transient 503, default 500
func mapServiceError(err error) (int, string) {
	switch {
	// Validation errors (400 Bad Request)
	case errors.Is(err, models.ErrInvalidMethod):
		return http.StatusBadRequest, "Invalid payment method details"
	case errors.Is(err, service.ErrInvalidAmount):
		return http.StatusBadRequest, "Invalid amount"

	// Not found errors (404 Not Found)
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, service.ErrTransactionNotFound):
		return http.StatusNotFound, "Transaction not found"
	case errors.Is(err, service.ErrPayerNotFound):
		return http.StatusNotFound, "Customer not found"

	// Business rule errors (422 Unprocessable Entity)
	case errors.Is(err, service.ErrOrderAlreadyPaid):
		return http.StatusUnprocessableEntity, "Order already paid"
	case errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "Insufficient funds"
	case errors.Is(err, service.ErrAccountInactive):
		return http.StatusUnprocessableEntity, "Account is inactive"
	case errors.Is(err, service.ErrInstrumentInvalid):
		return http.StatusUnprocessableEntity, "Payment instrument invalid"

	// Transient infrastructure failures (503 Service Unavailable)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Temporary failure, please retry"

	// Default (500 Internal Server Error)
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

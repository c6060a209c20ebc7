package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jumanahj/NextPay/internal/models"
	"github.com/jumanahj/NextPay/internal/service"
)

// ==============================================
// MOCK SERVICE
// ==============================================

type MockPaymentService struct {
	InitiateFunc  func(ctx context.Context, req models.InitiateRequest) (*models.InitiateResponse, error)
	VerifyFunc    func(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error)
	ResendFunc    func(ctx context.Context, req models.ResendRequest) (*models.ResendResponse, error)
	GetStatusFunc func(ctx context.Context, transactionID string) (*models.AttemptStatusResponse, error)
}

func (m *MockPaymentService) Initiate(ctx context.Context, req models.InitiateRequest) (*models.InitiateResponse, error) {
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *MockPaymentService) Verify(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *MockPaymentService) Resend(ctx context.Context, req models.ResendRequest) (*models.ResendResponse, error) {
	if m.ResendFunc != nil {
		return m.ResendFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *MockPaymentService) GetStatus(ctx context.Context, transactionID string) (*models.AttemptStatusResponse, error) {
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc(ctx, transactionID)
	}
	return nil, errors.New("not implemented")
}

func setupRouter(mock *MockPaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewPaymentHandler(mock).RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, _ := http.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ==============================================
// INITIATE ENDPOINT
// ==============================================

func TestInitiateEndpoint_Success(t *testing.T) {
	mock := &MockPaymentService{
		InitiateFunc: func(ctx context.Context, req models.InitiateRequest) (*models.InitiateResponse, error) {
			return &models.InitiateResponse{
				Success:          true,
				Message:          "OTP sent successfully. Please verify to complete payment.",
				TransactionID:    "TXN-1-abc",
				OrderID:          req.OrderID,
				Amount:           50000,
				ExpiresInSeconds: 600,
			}, nil
		},
	}
	r := setupRouter(mock)

	w := postJSON(t, r, "/api/pay/initiate", gin.H{
		"customerId":    "CUST-1",
		"orderId":       "ORD-1",
		"amount":        50000,
		"paymentMethod": "debit_card",
		"cardDetails":   gin.H{"cardNumber": "4111111111111111"},
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.InitiateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "TXN-1-abc", resp.TransactionID)
	assert.Equal(t, 600, resp.ExpiresInSeconds)
}

func TestInitiateEndpoint_MissingFields(t *testing.T) {
	r := setupRouter(&MockPaymentService{})

	w := postJSON(t, r, "/api/pay/initiate", gin.H{"orderId": "ORD-1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiateEndpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "invalid method", err: models.ErrInvalidMethod, wantCode: http.StatusBadRequest},
		{name: "order not found", err: service.ErrOrderNotFound, wantCode: http.StatusNotFound},
		{name: "payer not found", err: service.ErrPayerNotFound, wantCode: http.StatusNotFound},
		{name: "order already paid", err: service.ErrOrderAlreadyPaid, wantCode: http.StatusUnprocessableEntity},
		{name: "query timeout", err: context.DeadlineExceeded, wantCode: http.StatusServiceUnavailable},
		{name: "unknown failure", err: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockPaymentService{
				InitiateFunc: func(ctx context.Context, req models.InitiateRequest) (*models.InitiateResponse, error) {
					return nil, tt.err
				},
			}
			r := setupRouter(mock)

			w := postJSON(t, r, "/api/pay/initiate", gin.H{
				"customerId":    "CUST-1",
				"orderId":       "ORD-1",
				"amount":        50000,
				"paymentMethod": "upi",
				"upiDetails":    gin.H{"upiId": "payer@bank"},
			})

			assert.Equal(t, tt.wantCode, w.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
		})
	}
}

// ==============================================
// VERIFY ENDPOINT
// ==============================================

func TestVerifyEndpoint_Success(t *testing.T) {
	mock := &MockPaymentService{
		VerifyFunc: func(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error) {
			return &models.VerifyResponse{
				Success:       true,
				Message:       "Payment completed successfully",
				TransactionID: req.TransactionID,
				OrderID:       "ORD-1",
				Amount:        50000,
			}, nil
		},
	}
	r := setupRouter(mock)

	w := postJSON(t, r, "/api/pay/verify-otp", gin.H{
		"transactionId": "TXN-1-abc",
		"otp":           "123456",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(50000), resp.Amount)
}

func TestVerifyEndpoint_WrongCodeIsStill200(t *testing.T) {
	attemptsLeft := 2
	mock := &MockPaymentService{
		VerifyFunc: func(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error) {
			return &models.VerifyResponse{
				Success:      false,
				Message:      "Invalid OTP. Please try again.",
				AttemptsLeft: &attemptsLeft,
			}, nil
		},
	}
	r := setupRouter(mock)

	w := postJSON(t, r, "/api/pay/verify-otp", gin.H{
		"transactionId": "TXN-1-abc",
		"otp":           "000000",
	})

	// Business outcome, not a transport error
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.AttemptsLeft)
	assert.Equal(t, 2, *resp.AttemptsLeft)
}

func TestVerifyEndpoint_MalformedOTP(t *testing.T) {
	r := setupRouter(&MockPaymentService{})

	tests := []struct {
		name string
		otp  string
	}{
		{name: "too short", otp: "123"},
		{name: "too long", otp: "1234567"},
		{name: "non-numeric", otp: "12a456"},
		{name: "empty", otp: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, "/api/pay/verify-otp", gin.H{
				"transactionId": "TXN-1-abc",
				"otp":           tt.otp,
			})
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestVerifyEndpoint_UnknownTransaction(t *testing.T) {
	mock := &MockPaymentService{
		VerifyFunc: func(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error) {
			return nil, service.ErrTransactionNotFound
		},
	}
	r := setupRouter(mock)

	w := postJSON(t, r, "/api/pay/verify-otp", gin.H{
		"transactionId": "TXN-missing",
		"otp":           "123456",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyEndpoint_InsufficientFundsMapsTo422(t *testing.T) {
	mock := &MockPaymentService{
		VerifyFunc: func(ctx context.Context, req models.VerifyRequest) (*models.VerifyResponse, error) {
			return nil, service.ErrInsufficientFunds
		},
	}
	r := setupRouter(mock)

	w := postJSON(t, r, "/api/pay/verify-otp", gin.H{
		"transactionId": "TXN-1-abc",
		"otp":           "123456",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// ==============================================
// RESEND ENDPOINT
// ==============================================

func TestResendEndpoint_Success(t *testing.T) {
	mock := &MockPaymentService{
		ResendFunc: func(ctx context.Context, req models.ResendRequest) (*models.ResendResponse, error) {
			return &models.ResendResponse{
				Success:          true,
				Message:          "OTP resent successfully",
				ExpiresInSeconds: 600,
			}, nil
		},
	}
	r := setupRouter(mock)

	w := postJSON(t, r, "/api/pay/resend-otp", gin.H{"transactionId": "TXN-1-abc"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.ResendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 600, resp.ExpiresInSeconds)
}

func TestResendEndpoint_MissingTransactionID(t *testing.T) {
	r := setupRouter(&MockPaymentService{})

	w := postJSON(t, r, "/api/pay/resend-otp", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ==============================================
// STATUS ENDPOINT
// ==============================================

func TestStatusEndpoint(t *testing.T) {
	mock := &MockPaymentService{
		GetStatusFunc: func(ctx context.Context, transactionID string) (*models.AttemptStatusResponse, error) {
			return &models.AttemptStatusResponse{
				TransactionID: transactionID,
				OrderID:       "ORD-1",
				Amount:        50000,
				PaymentMethod: models.MethodUPI,
				Status:        models.AttemptStatusSuccess,
			}, nil
		},
	}
	r := setupRouter(mock)

	req, _ := http.NewRequest("GET", "/api/pay/status/TXN-1-abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.AttemptStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TXN-1-abc", resp.TransactionID)
	assert.Equal(t, models.AttemptStatusSuccess, resp.Status)
}

func TestStatusEndpoint_NotFound(t *testing.T) {
	mock := &MockPaymentService{
		GetStatusFunc: func(ctx context.Context, transactionID string) (*models.AttemptStatusResponse, error) {
			return nil, service.ErrTransactionNotFound
		},
	}
	r := setupRouter(mock)

	req, _ := http.NewRequest("GET", "/api/pay/status/TXN-missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

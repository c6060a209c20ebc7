package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const baseURL = "http://localhost:8080/api/pay"

// ==============================================
// REQUEST MODELS (Match your API exactly)
// ==============================================

type CardDetails struct {
	CardNumber string `json:"cardNumber"`
}

type InitiateRequest struct {
	CustomerID    string       `json:"customerId"`
	OrderID       string       `json:"orderId"`
	Amount        int64        `json:"amount"` // Amount in PAISE, not rupees!
	PaymentMethod string       `json:"paymentMethod"`
	CardDetails   *CardDetails `json:"cardDetails,omitempty"`
}

type VerifyRequest struct {
	TransactionID string `json:"transactionId"`
	OTP           string `json:"otp"`
}

type InitiateResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
}

type VerifyResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	AttemptsLeft *int   `json:"attemptsLeft"`
}

// ==============================================
// METRICS
// ==============================================

type Metrics struct {
	totalRequests   int64
	successRequests int64
	failedRequests  int64
	status400       int64
	status404       int64
	status422       int64
	status500       int64
	totalDuration   int64 // in milliseconds
}

var metrics Metrics

// ==============================================
// HELPER FUNCTIONS
// ==============================================

func checkHealth(client *http.Client) bool {
	resp, err := client.Get("http://localhost:8080/ready")
	if err != nil {
		fmt.Println("❌ Health check failed:", err)
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("✅ Health check passed: %d\n", resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Response: %s\n", string(body))
	}
	return resp.StatusCode == http.StatusOK
}

func sendRequest(client *http.Client, url string, body interface{}, requestType string) []byte {
	atomic.AddInt64(&metrics.totalRequests, 1)

	data, _ := json.Marshal(body)
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(data))
	if err != nil {
		atomic.AddInt64(&metrics.failedRequests, 1)
		fmt.Printf("❌ Request creation error: %v\n", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start).Milliseconds()
	atomic.AddInt64(&metrics.totalDuration, duration)

	if err != nil {
		atomic.AddInt64(&metrics.failedRequests, 1)
		fmt.Printf("❌ Connection error [%s]: %v\n", requestType, err)
		return nil
	}
	defer resp.Body.Close()

	responseBody, _ := io.ReadAll(resp.Body)

	// Track status codes
	switch resp.StatusCode {
	case http.StatusOK:
		atomic.AddInt64(&metrics.successRequests, 1)
		fmt.Printf("✅ POST %s -> %d (%dms)\n", requestType, resp.StatusCode, duration)
	case http.StatusBadRequest:
		atomic.AddInt64(&metrics.status400, 1)
		atomic.AddInt64(&metrics.failedRequests, 1)
		fmt.Printf("⚠️  POST %s -> 400 BAD REQUEST (%dms)\n   Body: %s\n", requestType, duration, string(responseBody))
	case http.StatusNotFound:
		atomic.AddInt64(&metrics.status404, 1)
		atomic.AddInt64(&metrics.failedRequests, 1)
		fmt.Printf("⚠️  POST %s -> 404 NOT FOUND (%dms)\n", requestType, duration)
	case http.StatusUnprocessableEntity:
		atomic.AddInt64(&metrics.status422, 1)
		atomic.AddInt64(&metrics.failedRequests, 1)
		fmt.Printf("⚠️  POST %s -> 422 UNPROCESSABLE (%dms): %s\n", requestType, duration, string(responseBody))
	case http.StatusInternalServerError:
		atomic.AddInt64(&metrics.status500, 1)
		atomic.AddInt64(&metrics.failedRequests, 1)
		fmt.Printf("❌ POST %s -> 500 SERVER ERROR (%dms): %s\n", requestType, duration, string(responseBody))
	default:
		atomic.AddInt64(&metrics.failedRequests, 1)
		fmt.Printf("⚠️  POST %s -> %d (%dms): %s\n", requestType, resp.StatusCode, duration, string(responseBody))
	}

	return responseBody
}

func printMetrics() {
	total := atomic.LoadInt64(&metrics.totalRequests)
	success := atomic.LoadInt64(&metrics.successRequests)
	failed := atomic.LoadInt64(&metrics.failedRequests)
	totalDuration := atomic.LoadInt64(&metrics.totalDuration)

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("📊 LOAD TEST RESULTS")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total Requests:     %d\n", total)
	fmt.Printf("Successful:         %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	fmt.Printf("Failed:             %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("400 Bad Request:    %d\n", atomic.LoadInt64(&metrics.status400))
	fmt.Printf("404 Not Found:      %d\n", atomic.LoadInt64(&metrics.status404))
	fmt.Printf("422 Unprocessable:  %d\n", atomic.LoadInt64(&metrics.status422))
	fmt.Printf("500 Server Error:   %d\n", atomic.LoadInt64(&metrics.status500))
	fmt.Println(strings.Repeat("-", 60))
	if total > 0 {
		fmt.Printf("Avg Response Time:  %dms\n", totalDuration/total)
	}
	fmt.Println(strings.Repeat("=", 60))
}

// ==============================================
// MAIN LOAD TEST
// ==============================================

func main() {
	// Configuration
	const concurrency = 10           // Concurrent initiations for the same order
	const orderID = "ORD-LOAD-1"     // Must exist in DB, status 'unpaid'
	const customerID = "CUST-LOAD-1" // Must exist in DB with an active debit card

	fmt.Println("🚀 Starting Payment API Concurrency Load Test")
	fmt.Printf("Scenario 1: %d concurrent initiations for order %s must converge on ONE transaction id\n", concurrency, orderID)
	fmt.Println("Scenario 2: wrong-code hammering must lock the attempt after exactly 3 failures")
	fmt.Println()

	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	// Health check before starting
	fmt.Println("🔍 Running health check...")
	if !checkHealth(client) {
		fmt.Println("❌ Server is not healthy. Aborting load test.")
		os.Exit(1)
	}
	fmt.Println()

	fmt.Println("Starting in 3 seconds...")
	time.Sleep(3 * time.Second)

	startTime := time.Now()

	// ---- Scenario 1: idempotent initiation under contention ----
	var wg sync.WaitGroup
	transactionIDs := make([]string, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			req := InitiateRequest{
				CustomerID:    customerID,
				OrderID:       orderID,
				Amount:        50000, // ₹500 in paise
				PaymentMethod: "debit_card",
				CardDetails:   &CardDetails{CardNumber: "4111111111111111"},
			}
			body := sendRequest(client, baseURL+"/initiate", req, fmt.Sprintf("INITIATE[Worker%d]", workerID))

			var resp InitiateResponse
			if err := json.Unmarshal(body, &resp); err == nil {
				transactionIDs[workerID] = resp.TransactionID
			}
		}(i)
	}
	wg.Wait()

	distinct := map[string]bool{}
	for _, id := range transactionIDs {
		if id != "" {
			distinct[id] = true
		}
	}
	if len(distinct) == 1 {
		fmt.Printf("\n✅ Idempotency held: all %d initiations returned the same transaction id\n", concurrency)
	} else {
		fmt.Printf("\n❌ Idempotency BROKEN: got %d distinct transaction ids: %v\n", len(distinct), distinct)
	}

	// ---- Scenario 2: wrong-code hammering until lockout ----
	var liveID string
	for id := range distinct {
		liveID = id
	}
	if liveID != "" {
		fmt.Printf("\n🔐 Hammering %s with wrong codes...\n", liveID)
		lockedAt := 0
		for attempt := 1; attempt <= 5; attempt++ {
			body := sendRequest(client, baseURL+"/verify-otp",
				VerifyRequest{TransactionID: liveID, OTP: "000000"},
				fmt.Sprintf("VERIFY[wrong#%d]", attempt))

			var resp VerifyResponse
			if err := json.Unmarshal(body, &resp); err == nil && resp.AttemptsLeft != nil {
				fmt.Printf("   attempt %d -> attemptsLeft=%d, message=%q\n", attempt, *resp.AttemptsLeft, resp.Message)
				if *resp.AttemptsLeft == 0 && lockedAt == 0 {
					lockedAt = attempt
				}
			}
		}
		if lockedAt == 3 {
			fmt.Println("✅ Lockout fired after exactly 3 wrong codes")
		} else {
			fmt.Printf("❌ Lockout fired at attempt %d, expected 3\n", lockedAt)
		}
	}

	totalTime := time.Since(startTime)
	fmt.Printf("\n⏱️  Total execution time: %v\n", totalTime)
	printMetrics()

	totalReqs := atomic.LoadInt64(&metrics.totalRequests)
	fmt.Printf("\n🚀 Throughput: %.2f requests/second\n", float64(totalReqs)/totalTime.Seconds())
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const baseURL = "http://localhost:8080"

// End-to-end smoke test against a running server.
func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	userID := fmt.Sprintf("smoke-user-%d", time.Now().UnixNano())

	// 1. Health check
	checkEndpoint("GET", "/health", nil, 200)

	// 2. Catalog
	checkEndpoint("GET", "/stocks", nil, 200)
	checkEndpoint("GET", "/stocks/AAPL", nil, 200)
	checkEndpoint("GET", "/stocks/search?q=apple", nil, 200)

	// 3. Paper trading round trip
	checkEndpoint("POST", "/paper/trades", map[string]interface{}{
		"user_id": userID, "symbol": "AAPL", "shares": 10, "side": "buy",
	}, 201)
	checkEndpoint("GET", "/paper/portfolio/"+userID, nil, 200)
	checkEndpoint("GET", "/paper/holdings/"+userID, nil, 200)
	checkEndpoint("GET", "/paper/transactions/"+userID, nil, 200)
	checkEndpoint("POST", "/paper/trades", map[string]interface{}{
		"user_id": userID, "symbol": "AAPL", "shares": 10, "side": "sell",
	}, 201)

	// 4. Real money requires eligibility
	checkEndpoint("POST", "/real/trades", map[string]interface{}{
		"user_id": userID, "symbol": "AAPL", "shares": 1, "side": "buy",
	}, 403)
	checkEndpoint("POST", "/subscription/"+userID+"/trial", nil, 200)
	checkEndpoint("POST", "/real/funds", map[string]interface{}{
		"user_id": userID, "amount": "5000",
	}, 200)
	checkEndpoint("POST", "/real/trades", map[string]interface{}{
		"user_id": userID, "symbol": "AMZN", "shares": 5, "side": "buy",
	}, 201)
	checkEndpoint("GET", "/real/portfolio/"+userID, nil, 200)

	// 5. Watchlist
	checkEndpoint("POST", "/watchlist", map[string]interface{}{
		"user_id": userID, "symbol": "TSLA",
	}, 201)
	checkEndpoint("GET", "/watchlist/"+userID, nil, 200)
	checkEndpoint("DELETE", "/watchlist/"+userID+"/TSLA", nil, 200)

	fmt.Println("ALL SMOKE TESTS PASSED")
}

func checkEndpoint(method, path string, body interface{}, expectedStatus int) {
	fmt.Printf("Testing %s %s...\n", method, path)
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, baseURL+path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != expectedStatus {
		log.Fatalf("Expected status %d, got %d. Body: %s", expectedStatus, resp.StatusCode, string(respBody))
	}
	fmt.Printf("Response: %s\n", string(respBody))
}

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/HELIX/internal/config"
	"github.com/copyleftdev/HELIX/internal/loan"
	"github.com/copyleftdev/HELIX/internal/logging"
)

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Environment: "test",
	}

	// Set up HTTP config
	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.IdleTimeout = 120 * time.Second
	cfg.HTTP.ShutdownTimeout = 30 * time.Second

	// Set up logging
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "console"
	cfg.Logging.Output = "stdout"

	// Set up GA defaults
	cfg.GA.PopulationSize = 15
	cfg.GA.MutationRate = 0.1
	cfg.GA.CrossoverRate = 0.7
	cfg.GA.MaxGenerations = 10

	return cfg
}

// testLogger creates a test logger
func testLogger(t *testing.T) *logging.Logger {
	logger, err := logging.NewLogger(&logging.Config{
		Level:  "debug",
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func testLoans() []loan.Loan {
	return []loan.Loan{
		{InterestRate: 5.00, Principal: 1500.00},
		{InterestRate: 3.50, Principal: 10000.00},
		{InterestRate: 9.50, Principal: 5000.00},
	}
}

func TestNewServer(t *testing.T) {
	logger := testLogger(t)
	cfg := testConfig(t)

	srv := NewServer(cfg, logger)
	assert.NotNil(t, srv, "Server should be created")
}

func TestRegisterRoutes(t *testing.T) {
	logger := testLogger(t)
	cfg := testConfig(t)

	srv := NewServer(cfg, logger)
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	// Test if routes are registered
	tests := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"POST", "/api/v1/optimize", true},
		{"GET", "/api/v1/status/123", true},
		{"DELETE", "/api/v1/optimization/123", true},
		{"POST", "/rpc", true},
		{"GET", "/healthz", false}, // Not registered by server package
		{"GET", "/nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			// A 404 would mean the route doesn't exist
			if tt.shouldExist && rr.Code == http.StatusNotFound {
				t.Errorf("Route %s %s should exist but returned 404", tt.method, tt.path)
			}
		})
	}
}

func TestOptimizeEndToEnd(t *testing.T) {
	logger := testLogger(t)
	cfg := testConfig(t)

	srv := NewServer(cfg, logger)
	defer srv.Close()
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	body, err := json.Marshal(map[string]interface{}{
		"loans":           testLoans(),
		"monthly_budget":  1250.00,
		"max_generations": 5,
		"random_seed":     42,
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/optimize", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code, "body: %s", rr.Body.String())

	var accepted struct {
		OptimizationID string `json:"optimization_id"`
		Status         string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&accepted))
	require.NotEmpty(t, accepted.OptimizationID)
	assert.Equal(t, "pending", accepted.Status)

	// Poll until the job reaches a terminal state. Five generations over
	// three loans finishes almost instantly.
	var status map[string]interface{}
	deadline := time.Now().Add(5 * time.Second)
	for {
		req = httptest.NewRequest("GET", "/api/v1/status/"+accepted.OptimizationID, nil)
		rr = httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		status = map[string]interface{}{}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&status))
		if status["status"] == "completed" || status["status"] == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("optimization did not finish, last status: %v", status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Equal(t, "completed", status["status"])
	best, ok := status["best_solution"].(map[string]interface{})
	require.True(t, ok, "completed status must carry the best solution")

	totalPaid, ok := best["total_paid"].(float64)
	require.True(t, ok)
	assert.Greater(t, totalPaid, 16500.0, "total paid cannot undercut the principals")

	payments, ok := best["payments"].([]interface{})
	require.True(t, ok)
	assert.Len(t, payments, len(testLoans()))
}

func TestOptimizeRejectsInvalidPlan(t *testing.T) {
	logger := testLogger(t)
	cfg := testConfig(t)

	srv := NewServer(cfg, logger)
	defer srv.Close()
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "missing loans",
			body: map[string]interface{}{"monthly_budget": 1250.00},
		},
		{
			name: "single loan",
			body: map[string]interface{}{
				"loans":          testLoans()[:1],
				"monthly_budget": 1250.00,
			},
		},
		{
			name: "zero budget",
			body: map[string]interface{}{"loans": testLoans()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.body)
			require.NoError(t, err)

			req := httptest.NewRequest("POST", "/api/v1/optimize", bytes.NewReader(body))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestStatusUnknownJob(t *testing.T) {
	logger := testLogger(t)
	cfg := testConfig(t)

	srv := NewServer(cfg, logger)
	defer srv.Close()
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	req := httptest.NewRequest("GET", "/api/v1/status/opt_unknown", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestJSONRPCStartAndStatus(t *testing.T) {
	logger := testLogger(t)
	cfg := testConfig(t)

	srv := NewServer(cfg, logger)
	defer srv.Close()
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "optimization.start",
		"params": []interface{}{map[string]interface{}{
			"loans":           testLoans(),
			"monthly_budget":  1250.00,
			"max_generations": 2,
		}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/rpc", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var response struct {
		JSONRPC string                 `json:"jsonrpc"`
		ID      interface{}            `json:"id"`
		Result  map[string]interface{} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Equal(t, "2.0", response.JSONRPC)
	require.NotNil(t, response.Result)
	id, ok := response.Result["optimization_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	// Status over JSON-RPC for the same job
	body, err = json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "optimization.status",
		"params":  []interface{}{map[string]interface{}{"optimization_id": id}},
	})
	require.NoError(t, err)

	req = httptest.NewRequest("POST", "/rpc", bytes.NewReader(body))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	require.NotNil(t, response.Result)
	assert.Contains(t, []interface{}{"pending", "running", "completed"}, response.Result["status"])
}

func TestJSONRPCMethodNotFound(t *testing.T) {
	logger := testLogger(t)
	cfg := testConfig(t)

	srv := NewServer(cfg, logger)
	defer srv.Close()
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	body := []byte(`{"jsonrpc":"2.0","id":1,"method":"no.such.method"}`)
	req := httptest.NewRequest("POST", "/rpc", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	errObj, ok := response["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(-32601), errObj["code"])
}

func TestCancelLifecycle(t *testing.T) {
	logger := testLogger(t)
	cfg := testConfig(t)
	cfg.GA.MaxGenerations = 10000 // Keep the job busy long enough to cancel

	srv := NewServer(cfg, logger)
	defer srv.Close()
	r := chi.NewRouter()
	srv.RegisterRoutes(r)

	result, err := srv.startOptimization(optimizeRequest{
		Loans:         testLoans(),
		MonthlyBudget: 1250.00,
	})
	require.NoError(t, err)
	id := result.(map[string]interface{})["optimization_id"].(string)

	req := httptest.NewRequest("DELETE", "/api/v1/optimization/"+id, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// A second cancel hits a terminal state
	req = httptest.NewRequest("DELETE", "/api/v1/optimization/"+id, nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClose(t *testing.T) {
	logger := testLogger(t)
	cfg := testConfig(t)

	srv := NewServer(cfg, logger)
	err := srv.Close()
	assert.NoError(t, err, "Close should not return an error")
}

func TestRespondWithError(t *testing.T) {
	logger := testLogger(t)
	cfg := testConfig(t)

	srv := NewServer(cfg, logger)

	tests := []struct {
		name       string
		code       int
		message    string
		id         interface{}
		expectedID interface{}
		expectCode int
	}{
		{
			name:       "valid error response",
			code:       -32600,
			message:    "invalid input",
			id:         "123",
			expectedID: "123",
			expectCode: http.StatusOK, // respondWithError writes 200 with error in body
		},
		{
			name:       "nil id",
			code:       -32000,
			message:    "server error",
			id:         nil,
			expectedID: nil,
			expectCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.respondWithError(rr, tt.code, tt.message, tt.id)

			assert.Equal(t, tt.expectCode, rr.Code, "status code should match")

			var response map[string]interface{}
			err := json.NewDecoder(rr.Body).Decode(&response)
			assert.NoError(t, err, "should decode response body")

			errObj, ok := response["error"].(map[string]interface{})
			assert.True(t, ok, "response should contain error object")
			assert.Equal(t, float64(tt.code), errObj["code"], "error code should match")
			assert.Equal(t, tt.message, errObj["message"], "error message should match")

			assert.Equal(t, tt.expectedID, response["id"], "response ID should match")
		})
	}
}

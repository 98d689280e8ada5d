package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/HELIX/internal/config"
	"github.com/copyleftdev/HELIX/internal/loan"
	"github.com/copyleftdev/HELIX/internal/logging"
	"github.com/copyleftdev/HELIX/internal/optimization"
	"github.com/copyleftdev/HELIX/internal/optimization/genetic"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// OptimizationState tracks one loan-optimization job: its progress, status
// and results. States live in the server's registry and are guarded by the
// registry lock.
type OptimizationState struct {
	ID           string
	Status       string // "pending", "running", "completed", "failed", "cancelled"
	StartTime    time.Time
	EndTime      *time.Time
	Plan         loan.Plan
	BestSolution *optimization.Solution
	Generations  int
	Optimizer    optimization.Optimizer
	CancelFunc   context.CancelFunc
	LastUpdated  time.Time
}

// Server exposes the loan-payment optimization service over HTTP and
// JSON-RPC. It manages optimization jobs and provides endpoints to start,
// monitor, and cancel them.
type Server struct {
	cfg    *config.Config
	logger Logger

	// Optimization state management
	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex // Protects the optimizations map
}

// NewServer creates a new server instance with the given config and logger
func NewServer(cfg *config.Config, logger Logger) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		optimizations: make(map[string]*OptimizationState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// optimizeRequest is the payload for starting a job: the loan table, the
// monthly budget, and optional evolution parameters. Omitted parameters
// fall back to the server's configured GA defaults.
type optimizeRequest struct {
	Loans            []loan.Loan `json:"loans"`
	MonthlyBudget    float64     `json:"monthly_budget"`
	MonthlyDeviation float64     `json:"monthly_deviation"`
	PopulationSize   int         `json:"population_size"`
	MutationRate     *float64    `json:"mutation_rate"`
	CrossoverRate    *float64    `json:"crossover_rate"`
	MaxGenerations   int         `json:"max_generations"`
	RandomSeed       int64       `json:"random_seed"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      interface{}       `json:"id"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}

	// Validate JSON-RPC 2.0 request
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", nil)
		return
	}

	// Route to appropriate handler
	var result interface{}
	var err error

	switch request.Method {
	case "optimization.start":
		result, err = s.startFromParams(request.Params)
	case "optimization.status":
		result, err = s.statusFromParams(request.Params)
	case "optimization.cancel":
		err = s.cancelFromParams(request.Params)
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	// Send successful response
	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// startFromParams decodes the first JSON-RPC parameter as an optimizeRequest
// and starts a job.
func (s *Server) startFromParams(params []json.RawMessage) (interface{}, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("missing required parameters")
	}

	var req optimizeRequest
	if err := json.Unmarshal(params[0], &req); err != nil {
		return nil, fmt.Errorf("invalid parameter format: %v", err)
	}

	return s.startOptimization(req)
}

// statusFromParams decodes {"optimization_id": "..."} and returns the job's
// status document.
func (s *Server) statusFromParams(params []json.RawMessage) (interface{}, error) {
	id, err := idFromParams(params)
	if err != nil {
		return nil, err
	}
	return s.optimizationStatus(id)
}

// cancelFromParams decodes {"optimization_id": "..."} and cancels the job.
func (s *Server) cancelFromParams(params []json.RawMessage) error {
	id, err := idFromParams(params)
	if err != nil {
		return err
	}
	return s.cancelOptimization(id)
}

func idFromParams(params []json.RawMessage) (string, error) {
	if len(params) == 0 {
		return "", fmt.Errorf("missing required parameters")
	}
	var p struct {
		OptimizationID string `json:"optimization_id"`
	}
	if err := json.Unmarshal(params[0], &p); err != nil {
		return "", fmt.Errorf("invalid parameter format: %v", err)
	}
	if p.OptimizationID == "" {
		return "", fmt.Errorf("optimization_id is required")
	}
	return p.OptimizationID, nil
}

// startOptimization validates the request, registers a job and runs the
// optimizer in a goroutine.
func (s *Server) startOptimization(req optimizeRequest) (interface{}, error) {
	plan := loan.Plan{
		Loans:            req.Loans,
		MonthlyNominal:   req.MonthlyBudget,
		MonthlyDeviation: req.MonthlyDeviation,
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	cfg := s.optimizerConfig(req, plan)

	// Generate a unique ID for this optimization
	id := fmt.Sprintf("opt_%d", time.Now().UnixNano())

	// Create a cancellable context
	ctx, cancel := context.WithCancel(context.Background())

	optimizer, err := genetic.NewOptimizer(cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create optimizer: %v", err)
	}

	state := &OptimizationState{
		ID:          id,
		Status:      "pending",
		StartTime:   time.Now(),
		Plan:        plan,
		Optimizer:   optimizer,
		CancelFunc:  cancel,
		LastUpdated: time.Now(),
	}

	s.optimizationsMu.Lock()
	s.optimizations[id] = state
	s.optimizationsMu.Unlock()

	jobsStarted.Inc()

	// Start optimization in a goroutine
	go s.runOptimization(ctx, id, cfg, state)

	return map[string]interface{}{
		"optimization_id": id,
		"status":          "pending",
	}, nil
}

// optimizerConfig merges request parameters with the server's GA defaults.
func (s *Server) optimizerConfig(req optimizeRequest, plan loan.Plan) optimization.OptimizerConfig {
	cfg := optimization.OptimizerConfig{
		Objective:      plan.Fitness,
		GenomeSize:     plan.GenomeSize(),
		PopulationSize: s.cfg.GA.PopulationSize,
		MutationRate:   s.cfg.GA.MutationRate,
		CrossoverRate:  s.cfg.GA.CrossoverRate,
		MaxGenerations: s.cfg.GA.MaxGenerations,
		RandomSeed:     req.RandomSeed,
	}
	if req.PopulationSize > 0 {
		cfg.PopulationSize = req.PopulationSize
	}
	if req.MutationRate != nil {
		cfg.MutationRate = *req.MutationRate
	}
	if req.CrossoverRate != nil {
		cfg.CrossoverRate = *req.CrossoverRate
	}
	if req.MaxGenerations > 0 {
		cfg.MaxGenerations = req.MaxGenerations
	}
	return cfg
}

// optimizationStatus returns the status document for a job.
func (s *Server) optimizationStatus(id string) (interface{}, error) {
	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()

	state, exists := s.optimizations[id]
	if !exists {
		return nil, fmt.Errorf("optimization not found")
	}

	response := map[string]interface{}{
		"status":      state.Status,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
		"generations": state.Generations,
	}

	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}

	if best := state.BestSolution; best != nil {
		response["best_solution"] = s.renderSolution(state.Plan, best)
	} else if best := state.Optimizer.GetBestSolution(); best != nil {
		response["best_solution"] = s.renderSolution(state.Plan, best)
	}

	return response, nil
}

// renderSolution expands a genome into the domain terms callers care about:
// per-loan payments and the projected total paid.
func (s *Server) renderSolution(plan loan.Plan, sol *optimization.Solution) map[string]interface{} {
	payments := plan.Payments(sol.Parameters)
	return map[string]interface{}{
		"genes":           sol.Parameters,
		"fitness":         sol.Value,
		"payments":        payments,
		"monthly_payment": plan.Monthly(sol.Parameters),
		"total_paid":      plan.TotalPaid(payments),
	}
}

// cancelOptimization cancels a running job.
func (s *Server) cancelOptimization(id string) error {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	state, exists := s.optimizations[id]
	if !exists {
		return fmt.Errorf("optimization not found")
	}

	switch state.Status {
	case "completed", "failed", "cancelled":
		// Already in a terminal state
		return fmt.Errorf("cannot cancel optimization with status: %s", state.Status)
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}

	state.Status = "cancelled"
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})

	return nil
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("Request error", map[string]interface{}{
		"status":  code,
		"message": message,
	})

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// runOptimization executes the optimization process in a goroutine
func (s *Server) runOptimization(ctx context.Context, id string, cfg optimization.OptimizerConfig, state *OptimizationState) {
	s.optimizationsMu.Lock()
	state.Status = "running"
	s.optimizationsMu.Unlock()

	jobsRunning.Inc()
	defer jobsRunning.Dec()

	result, err := state.Optimizer.Optimize(ctx, cfg)

	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	if state.Status == "cancelled" {
		// Cancel won the race; keep the terminal state it set.
		return
	}

	if err != nil {
		s.logger.Error("Optimization failed", map[string]interface{}{
			"optimization_id": id,
			"error":           err.Error(),
		})
		state.Status = "failed"
	} else {
		state.Status = "completed"
		state.BestSolution = result.BestSolution
		state.Generations = result.Generations
		generationsTotal.Add(float64(result.Generations))

		s.logger.Info("Optimization completed", map[string]interface{}{
			"optimization_id": id,
			"generations":     result.Generations,
			"best_fitness":    result.BestSolution.Value,
		})
	}

	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
}

// Close cleans up resources
func (s *Server) Close() error {
	// Cancel all running optimizations
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	for _, opt := range s.optimizations {
		if opt.CancelFunc != nil {
			opt.CancelFunc()
		}
	}
	return nil
}

// handleOptimize handles POST /api/v1/optimize
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := s.startOptimization(req)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(result)
}

// handleStatus handles GET /api/v1/status/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing optimization ID", http.StatusBadRequest)
		return
	}

	result, err := s.optimizationStatus(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// handleCancel handles DELETE /api/v1/optimization/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing optimization ID", http.StatusBadRequest)
		return
	}

	err := s.cancelOptimization(id)

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "cancellation requested",
	})
}

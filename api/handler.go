package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"

	"github.com/facturaIA/invoice-inference-service/internal/db"
	"github.com/facturaIA/invoice-inference-service/internal/models"
	"github.com/facturaIA/invoice-inference-service/internal/pipeline"
	"github.com/facturaIA/invoice-inference-service/internal/storage"
)

const (
	MaxBodySize = 1 * 1024 * 1024 // 1MB
	Version     = "1.0.0"

	anomalySummaryThreshold = 0.7
)

// Handler handles HTTP requests for invoice inference
type Handler struct {
	config   *models.Config
	pipeline *pipeline.Pipeline
}

// NewHandler creates a new API handler
func NewHandler(config *models.Config, p *pipeline.Pipeline) *Handler {
	return &Handler{
		config:   config,
		pipeline: p,
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/predict", h.Predict).Methods("POST")
	router.HandleFunc("/api/upload", h.Upload).Methods("POST")
	router.HandleFunc("/api/summary", h.Summary).Methods("GET")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	router.Use(corsMiddleware)

	return router
}

// corsMiddleware allows calls from any origin (Swagger, local tools, demos).
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string        `json:"status"`
	Version   string        `json:"version"`
	Timestamp string        `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Memory    MemoryStats   `json:"memory"`
	Database  ServiceStatus `json:"database"`
	Storage   ServiceStatus `json:"storage"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

var startTime = time.Now()

// Health endpoint - enhanced for monitoring
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	databaseStatus := ServiceStatus{Available: db.Pool != nil}
	if db.Pool == nil {
		databaseStatus.Error = "database pool not initialized"
	}
	storageStatus := ServiceStatus{Available: storage.Client != nil}
	if storage.Client == nil {
		storageStatus.Error = "storage client not initialized"
	}

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Database: databaseStatus,
		Storage:  storageStatus,
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// Predict runs the full inference pipeline for one submission: store raw
// (atomic duplicate check), normalize, classify, score, tax-classify and
// explain, then attach the processed result.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	var sub models.RawSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rawJSON, err := json.Marshal(sub)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to serialize submission")
		return
	}

	// Idempotent insert doubles as the duplicate check. Without a database
	// the pipeline still runs, with duplicate detection disabled.
	id := ""
	isDuplicate := false
	if db.Pool != nil {
		var created bool
		id, created, err = db.InsertRawOrGet(ctx, sub.VendorName, sub.InvoiceNumber, string(rawJSON))
		if err != nil {
			h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store submission: %v", err))
			return
		}
		isDuplicate = !created
	}

	if storage.Client != nil && id != "" {
		if _, err := storage.ArchiveRawSubmission(ctx, id, rawJSON); err != nil {
			// Archive is best effort.
			log.Printf("Warning: failed to archive raw submission %s: %v", id, err)
		}
	}

	result := h.pipeline.Process(&sub, isDuplicate)
	result.ID = id

	if db.Pool != nil && id != "" {
		if processedJSON, merr := json.Marshal(result); merr == nil {
			if err := db.UpsertProcessed(ctx, id, string(processedJSON)); err != nil {
				log.Printf("Warning: failed to store processed result %s: %v", id, err)
			}
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

// Upload stores a raw submission without running the pipeline.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	var sub models.RawSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rawJSON, err := json.Marshal(sub)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to serialize submission")
		return
	}

	id, _, err := db.InsertRawOrGet(ctx, sub.VendorName, sub.InvoiceNumber, string(rawJSON))
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store submission: %v", err))
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

// Summary returns stored-invoice aggregates for dashboards.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	report, err := db.GetSummary(r.Context(), anomalySummaryThreshold)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to build summary: %v", err))
		return
	}

	json.NewEncoder(w).Encode(report)
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

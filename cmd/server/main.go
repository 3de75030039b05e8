package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/facturaIA/invoice-inference-service/api"
	"github.com/facturaIA/invoice-inference-service/internal/auth"
	"github.com/facturaIA/invoice-inference-service/internal/db"
	"github.com/facturaIA/invoice-inference-service/internal/mlmodel"
	"github.com/facturaIA/invoice-inference-service/internal/models"
	"github.com/facturaIA/invoice-inference-service/internal/pipeline"
	"github.com/facturaIA/invoice-inference-service/internal/storage"
)

func main() {
	// Initialize JWT
	if err := auth.Init(); err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}
	log.Println("JWT authentication initialized")

	// Initialize database connection pool
	if err := db.Init(); err != nil {
		log.Printf("Warning: Database not available: %v", err)
		log.Println("Running without persistence (no duplicate detection, no summaries)")
	} else {
		defer db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.EnsureSchema(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to ensure database schema: %v", err)
		}
		cancel()
		log.Println("Database connection pool initialized")
	}

	// Initialize MinIO raw-payload archive
	if err := storage.Init(); err != nil {
		log.Printf("Warning: MinIO storage not available: %v", err)
		log.Println("Raw submissions will not be archived")
	} else {
		log.Println("MinIO storage initialized")
	}

	// Load configuration
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load model artifacts once; the bundle is shared read-only state. The
	// anomaly forest has no rule-only fallback, so its absence is fatal here
	// rather than per request.
	bundle, err := mlmodel.Load(config.Models.Dir)
	if err != nil {
		log.Fatalf("Failed to load model artifacts from %s: %v", config.Models.Dir, err)
	}
	if bundle.HasTextModel() {
		log.Println("Text classification model loaded")
	} else {
		log.Println("Warning: text model unavailable, using keyword fallback classification")
	}

	// Create API handler
	handler := api.NewHandler(config, pipeline.New(bundle))
	router := handler.SetupRoutes()

	// Add login endpoint
	router.HandleFunc("/api/login", auth.LoginHandler).Methods("POST")

	// Wrap router with JWT middleware (skips /health and /api/login)
	protectedRouter := auth.JWTMiddleware(router)

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	log.Printf("Starting Invoice Inference Service v%s on %s", api.Version, addr)
	log.Printf("Model dir: %s", config.Models.Dir)
	log.Printf("Database: %v", db.Pool != nil)
	log.Printf("Storage: %v", storage.Client != nil)
	log.Printf("Endpoints:")
	log.Printf("  POST http://%s/api/login    - Authenticate", addr)
	log.Printf("  POST http://%s/api/predict  - Run inference pipeline (requires JWT)", addr)
	log.Printf("  POST http://%s/api/upload   - Store raw submission (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/summary  - Stored-invoice aggregates (requires JWT)", addr)
	log.Printf("  GET  http://%s/health       - Health check", addr)

	if err := http.ListenAndServe(addr, protectedRouter); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func loadConfig(path string) (*models.Config, error) {
	// Read config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var config models.Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if dir := os.Getenv("MODEL_DIR"); dir != "" {
		config.Models.Dir = dir
	}
	if config.Models.Dir == "" {
		config.Models.Dir = "models"
	}

	return &config, nil
}

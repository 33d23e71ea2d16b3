package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"calsync-cloud/dedup"
	"calsync-cloud/gcal"
	"calsync-cloud/routes"
	"calsync-cloud/security"
	"calsync-cloud/zoho"
)

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
	Service string `json:"service"`
}

const VERSION = "0.1.0"

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.Println("Starting CalSync Cloud Server...")

	// Initialize Redis
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	if strings.HasPrefix(redisURL, "redis://") {
		redisURL = strings.TrimPrefix(redisURL, "redis://")
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis")

	// Credential store: local file when CREDENTIALS_FILE is set, Redis
	// otherwise.
	var credStore security.CredentialStore
	if path := strings.TrimSpace(os.Getenv("CREDENTIALS_FILE")); path != "" {
		credStore = security.NewFileCredentialStore(path)
	} else {
		credStore = security.NewRedisCredentialStore(redisClient, getEnv("CREDENTIALS_KEY", "calsync:credentials"))
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	refresher := security.NewTokenRefresher(httpClient)
	tokenManager, err := security.NewTokenManager(ctx, credStore, refresher)
	if err != nil {
		log.Fatalf("Failed to load credentials: %v", err)
	}

	mapsKey, err := tokenManager.MapsAPIKey()
	if err != nil {
		log.Fatalf("Failed to read Maps API key: %v", err)
	}

	// Required sync settings
	sourceAddress := requireEnv("SOURCE_ADDRESS")
	dedupPrefix := requireEnv("DEDUP_KEY_PREFIX")
	ttlDays := requireEnvInt("DEDUP_TTL_DAYS")

	dedupStore := dedup.NewStore(redisClient, dedupPrefix, ttlDays)
	googleClient := security.NewGoogleServiceClient(tokenManager)
	eventSource := gcal.NewSource(googleClient, getEnv("CALENDAR_ID", "primary"), parseDurationOrDefault(os.Getenv("SYNC_LOOKAHEAD"), 72*time.Hour))
	distanceClient := routes.NewClient(httpClient, mapsKey)
	zohoClient := zoho.NewClient(httpClient, tokenManager)

	runner := NewSyncRunner(eventSource, dedupStore, distanceClient, zohoClient, zohoClient, SyncRunnerConfig{
		SourceAddress: sourceAddress,
		Delimiter:     getEnv("EVENT_DELIMITER", "#"),
		ItemID:        getEnv("ESTIMATE_ITEM_ID", "5971371000000098023"),
		ItemRate:      parseFloatOrDefault(os.Getenv("ESTIMATE_ITEM_RATE"), 70),
		ItemQuantity:  parseFloatOrDefault(os.Getenv("ESTIMATE_ITEM_QUANTITY"), 1),
		Interval:      parseDurationOrDefault(os.Getenv("SYNC_INTERVAL"), 5*time.Minute),
		Enabled:       strings.ToLower(strings.TrimSpace(os.Getenv("SYNC_ENABLED"))) != "false",
	})
	runner.Start(ctx)

	r := mux.NewRouter()

	// Health check endpoint
	r.HandleFunc("/healthz", healthHandler).Methods("GET")
	r.HandleFunc("/", rootHandler).Methods("GET")

	// Sync endpoints
	registerSyncRoutes(r, runner)

	// Configure server
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Handler:      r,
		Addr:         "0.0.0.0:" + port,
		WriteTimeout: 180 * time.Second,
		ReadTimeout:  180 * time.Second,
	}

	log.Printf("CalSync Cloud Server v%s starting on %s", VERSION, srv.Addr)

	// Setup graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := HealthResponse{
		OK:      true,
		Version: VERSION,
		Service: "calsync-cloud",
	}

	json.NewEncoder(w).Encode(response)
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	json.NewEncoder(w).Encode(map[string]string{
		"service": "calsync-cloud",
		"version": VERSION,
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func requireEnv(key string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		log.Fatalf("Required environment variable %s is not set", key)
	}
	return value
}

func requireEnvInt(key string) int64 {
	raw := requireEnv(key)
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Fatalf("Environment variable %s must be an integer, got %q", key, raw)
	}
	return value
}

func parseDurationOrDefault(raw string, def time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return def
}

func parseFloatOrDefault(raw string, def float64) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return def
}

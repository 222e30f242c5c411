package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"item-catalog-service/internal/api"
	"item-catalog-service/internal/catalog"
	"item-catalog-service/internal/config"
	"item-catalog-service/internal/imagestore"
	"item-catalog-service/internal/store"

	"cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	defaultAppName = "ItemCatalogService" // App name for logger
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}
	logger := log.New(os.Stdout, fmt.Sprintf("[%s] ", defaultAppName), log.LstdFlags|log.Lshortfile|log.Lmicroseconds)
	logger.Println("INFO: Starting service...")

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("FATAL: Error loading configuration: %v", err)
	}
	logger.Printf("INFO: Configuration loaded for APP_ENV: %s, LogLevel: %s", cfg.AppEnv, cfg.LogLevel)

	ctx := context.Background()

	// --- Database Connection ---
	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize database connection: %v", err)
	}
	dbStore := store.NewSQLStore(db)
	if err := dbStore.EnsureSchema(ctx); err != nil {
		logger.Fatalf("FATAL: Failed to apply database schema: %v", err)
	}
	logger.Printf("INFO: Database (%s) connection established and schema applied.", cfg.Database.Driver)

	// --- Image Store ---
	images, closeImages, err := newImageStore(ctx, cfg.Images, logger)
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize image store: %v", err)
	}

	// --- Initialize Service & API Handlers ---
	svc := catalog.NewService(images, dbStore, dbStore, catalog.Options{DefaultImage: cfg.Images.Default})
	httpAPIHandler := api.NewHTTPHandler(svc)
	grpcAPIHandler := api.NewGRPCHandler(svc)

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, logger, cfg.FrontURL)
	registerHealthCheck(httpRouter, logger, dbStore)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logger.Printf("INFO: HTTP server listening on port %s", cfg.HttpServer.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("FATAL: HTTP server ListenAndServe error: %v", err)
		}
		logger.Println("INFO: HTTP server has stopped.")
	}()

	// --- Setup & Start gRPC Server ---
	grpcServer := setupGRPCServer(logger, grpcAPIHandler)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		logger.Fatalf("FATAL: Failed to listen for gRPC on port %s: %v", cfg.GrpcServer.Port, err)
	}

	go func() {
		logger.Printf("INFO: gRPC server listening on port %s", cfg.GrpcServer.Port)
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Fatalf("FATAL: gRPC server Serve error: %v", err)
		}
		logger.Println("INFO: gRPC server has stopped.")
	}()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(logger, httpServer, grpcServer, dbStore, closeImages, shutdownComplete)

	<-shutdownComplete
	logger.Println("INFO: Service shutdown sequence finished.")
}

// newImageStore builds the configured image backend and returns a function
// releasing its resources.
func newImageStore(ctx context.Context, cfg config.ImageConfig, logger *log.Logger) (imagestore.Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendGCS:
		client, err := storage.NewClient(ctx, imagestore.ClientOptions(cfg.CredentialsFile, cfg.Endpoint)...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		logger.Printf("INFO: Using GCS image store gs://%s/%s", cfg.Bucket, cfg.Prefix)
		return imagestore.NewGCSStore(client, cfg.Bucket, cfg.Prefix), client.Close, nil
	default:
		fsStore, err := imagestore.NewFSStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		if _, err := os.Stat(filepath.Join(fsStore.Dir(), cfg.Default)); err != nil {
			logger.Printf("WARN: Default image %s is not readable in %s: %v", cfg.Default, fsStore.Dir(), err)
		}
		logger.Printf("INFO: Using filesystem image store at %s", fsStore.Dir())
		return fsStore, func() error { return nil }, nil
	}
}

func setupBaseMiddleware(router *chi.Mux, logger *log.Logger, frontURL string) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger) // Chi's request logger
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second)) // Default timeout for requests
	router.Use(api.CORS(frontURL))
	logger.Printf("INFO: Base HTTP middleware registered (CORS origin %s).", frontURL)
}

func registerHealthCheck(router *chi.Mux, logger *log.Logger, dbStore *store.SQLStore) {
	healthPath := "/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dbStatus := "healthy"
		if err := dbStore.Ping(ctx); err != nil {
			dbStatus = "unhealthy"
			logger.Printf("WARN: Health check DB ping failed: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK) // Always 200, but payload indicates detailed status
		if err := json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": defaultAppName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
		}); err != nil {
			logger.Printf("WARN: Failed to write health check response: %v", err)
		}
	})
	logger.Printf("INFO: HTTP health check registered at %s", healthPath)
}

func setupGRPCServer(logger *log.Logger, grpcAPIHandler *api.GRPCHandler) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(api.UnaryLoggingInterceptor))

	api.RegisterCatalogServer(s, grpcAPIHandler)
	logger.Printf("INFO: %s gRPC service registered.", api.CatalogServiceName)

	// Register gRPC Health Checking Protocol service.
	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	logger.Println("INFO: gRPC health check service registered.")

	// Enable gRPC server reflection (useful for tools like grpcurl).
	reflection.Register(s)
	logger.Println("INFO: gRPC reflection service registered.")

	return s
}

func waitForShutdown(
	logger *log.Logger,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	dbStore *store.SQLStore,
	closeImages func() error,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.Printf("INFO: Received signal: %s. Starting graceful shutdown...", receivedSignal)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	logger.Println("INFO: Attempting to gracefully shut down gRPC server...")
	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	logger.Println("INFO: Attempting to gracefully shut down HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("WARN: HTTP server graceful shutdown failed: %v", err)
	} else {
		logger.Println("INFO: HTTP server gracefully shut down.")
	}

	select {
	case <-stoppedGrpc:
		logger.Println("INFO: gRPC server gracefully shut down.")
	case <-shutdownCtx.Done():
		logger.Printf("WARN: gRPC server graceful shutdown timed out: %v", shutdownCtx.Err())
		grpcServer.Stop()
		logger.Println("INFO: gRPC server forced stop.")
	}

	if err := closeImages(); err != nil {
		logger.Printf("WARN: Error closing image store: %v", err)
	}
	if err := dbStore.Close(); err != nil {
		logger.Printf("WARN: Error closing database connection: %v", err)
	}

	logger.Println("INFO: Graceful shutdown sequence completed.")
}

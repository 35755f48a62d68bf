package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lexigraph/reviewd/internal/adapter/analysis"
	"github.com/lexigraph/reviewd/internal/adapter/docstore"
	"github.com/lexigraph/reviewd/internal/adapter/playbook"
	"github.com/lexigraph/reviewd/internal/config"
	store "github.com/lexigraph/reviewd/internal/repository"
	"github.com/lexigraph/reviewd/internal/service"
	transport "github.com/lexigraph/reviewd/internal/transport/http"
	"github.com/lexigraph/reviewd/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting reviewd...")
	log.Printf("External HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Internal HTTP Port: %d", cfg.InternalPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Analysis backend: %s", cfg.AnalysisBackend)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize analysis backend
	backend, err := analysis.NewBackend(cfg.AnalysisBackend, cfg.AnalysisURL, cfg.AnalysisAPIKey, cfg.AnalysisTimeout)
	if err != nil {
		log.Fatalf("Failed to initialize analysis backend: %v", err)
	}

	// Initialize document store client
	docs := docstore.NewClient(cfg.DocStoreURL, 30*time.Second)

	// Initialize playbook store: HTTP when a URL is configured, local
	// directory otherwise
	var playbooks playbook.Store
	if cfg.PlaybookURL != "" {
		playbooks = playbook.NewHTTPStore(cfg.PlaybookURL, 30*time.Second)
	} else {
		playbooks = playbook.NewDirStore(cfg.PlaybookDir)
	}

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	svc := service.New(db, backend, docs, playbooks, cfg, policyEngine)

	// Create servers
	externalServer := transport.NewExternalServer(svc)
	internalServer := transport.NewInternalServer(svc)

	// Start external server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := externalServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start external server: %v", err)
		}
	}()

	// Start internal server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.InternalPort)
		if err := internalServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start internal server: %v", err)
		}
	}()

	log.Printf("External API started on port %d", cfg.HTTPPort)
	log.Printf("Internal API started on port %d", cfg.InternalPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down reviewd...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := externalServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown external server gracefully: %v", err)
	}
	if err := internalServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown internal server gracefully: %v", err)
	}

	log.Println("Reviewd stopped")
}

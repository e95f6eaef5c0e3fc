package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/camden-git/photoqueue/config"
	"github.com/camden-git/photoqueue/handlers"
	"github.com/camden-git/photoqueue/media"
	"github.com/camden-git/photoqueue/pipeline"
	"github.com/camden-git/photoqueue/realtime"
	"github.com/camden-git/photoqueue/workers"
)

func newServeCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the review API, ingest worker and live event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *cfg)
		},
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	a, err := openApp(cfg, func() error {
		if err := cfg.ValidateForIngest(); err != nil {
			return err
		}
		return cfg.ValidateForPublish()
	}, true)
	if err != nil {
		return err
	}
	defer a.Close()

	hub := realtime.NewHub()
	go hub.Run()
	defer hub.Stop()

	ingestor := pipeline.NewIngestor(a.repo, a.files, a.folders)
	ingestor.Locations = a.locations
	ingestor.Events = hub

	log.Printf("Initializing ingest worker (Queue Size: %d)...", cfg.IngestQueueSize)
	ingestWorker := workers.NewIngestWorker(ingestor, cfg.IngestQueueSize)
	defer ingestWorker.Stop()

	renderer := media.NewWatermarkRenderer(media.RenderOptions{
		WebMaxSize:     cfg.WebMaxSize,
		ThumbMaxSize:   cfg.ThumbMaxSize,
		DesktopMaxSize: cfg.DesktopMaxSize,
		Watermark:      cfg.WatermarkText,
	})
	publisher := pipeline.NewPublisher(a.repo, a.files, renderer, a.folders, cfg.PublicBaseURL)
	publisher.Locations = a.locations
	publisher.Events = hub

	reviewHandler := &handlers.ReviewHandler{
		Store:         a.repo,
		Publisher:     publisher,
		Ingest:        ingestWorker,
		Folders:       a.folders,
		Locations:     a.locations,
		Hub:           hub,
		IncomingDir:   cfg.IncomingDir,
		OriginalsRoot: cfg.OriginalsRoot,
	}

	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	if cfg.ReviewTokenHash == "" {
		log.Printf("Warning: REVIEW_TOKEN_HASH is not set, the review API is unauthenticated")
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(handlers.TokenMiddleware(cfg.ReviewTokenHash))
		reviewHandler.Routes(r)

		r.Get("/previews/*", handlers.AssetServer(cfg.OriginalsRoot, "/api/previews/", 0))
		r.Get("/web/*", handlers.AssetServer(cfg.WebRoot, "/api/web/", 24*time.Hour))
	})

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Server starting on http://localhost:%s\n", cfg.Port)
		log.Printf("Server listening on %s", serverAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfryer1193/goplaces/internal/events"
	"github.com/dfryer1193/goplaces/internal/middleware"
	"github.com/dfryer1193/goplaces/internal/rest"
	"github.com/dfryer1193/goplaces/places/application"
	"github.com/dfryer1193/goplaces/places/assets"
	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/dfryer1193/goplaces/places/geo"
	"github.com/dfryer1193/goplaces/shared/cloudinary"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, repo, err := openStore(cfg.Database)
		if err != nil {
			return err
		}
		defer database.Close()

		store := cloudinary.NewClient(cloudinary.Config{
			CloudName:    cfg.Cloudinary.CloudName,
			APIKey:       cfg.Cloudinary.APIKey,
			APISecret:    cfg.Cloudinary.APISecret,
			UploadPreset: cfg.Cloudinary.UploadPreset,
			BaseURL:      cfg.Cloudinary.BaseURL,
		}, nil)

		// Deployments without the API secret delete through a remote signing proxy.
		var deleter domain.AssetDeleter = store
		if cfg.Cloudinary.DeleteProxyURL != "" {
			deleter = cloudinary.NewProxyDeleter(cfg.Cloudinary.DeleteProxyURL, nil)
			log.Info().Str("url", cfg.Cloudinary.DeleteProxyURL).Msg("Deleting assets through proxy")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hub := events.NewHub()
		go hub.Run(ctx)

		opts := []application.OrchestratorOption{
			application.WithConcurrency(cfg.Uploads.Concurrency),
			application.WithTaskListener(hub.PublishTask),
		}
		if cfg.Uploads.SubmissionOrder {
			opts = append(opts, application.WithSubmissionOrder())
		}
		orchestrator := application.NewUploadOrchestrator(
			store,
			assets.NewResampler(cfg.Uploads.MaxWidth, cfg.Uploads.Quality),
			cfg.Cloudinary.Folder,
			opts...,
		)

		placeService := application.NewPlaceService(repo, deleter, assets.NewCodec(cfg.Cloudinary.Folder), orchestrator)
		defer func() {
			if err := placeService.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to gracefully close place service")
			}
		}()

		gin.SetMode(gin.ReleaseMode)
		router := gin.New()
		router.Use(middleware.LoggingMiddleware())
		router.Use(gin.CustomRecovery(middleware.HandlePanics()))

		// Only an instance holding the secret can sign deletes for others.
		var signer domain.AssetDeleter
		if cfg.Cloudinary.DeleteProxyURL == "" {
			signer = store
		}
		rest.NewApi(router, placeService, hub, rest.Options{
			Signer: signer,
			Nearby: geo.NearbyOptions{Limit: cfg.Nearby.Limit, MaxRadiusKm: cfg.Nearby.RadiusKm},
		})

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Int("port", cfg.Server.Port).Msg("Starting server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("failed to start server: %w", err)
		case <-ctx.Done():
		}

		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}

		log.Info().Msg("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

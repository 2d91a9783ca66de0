package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"lpr-service/internal/db"
	api "lpr-service/internal/http"
	"lpr-service/internal/notify"
	"lpr-service/internal/pipeline"
	"lpr-service/internal/service"
	"lpr-service/internal/video"
)

var noCamera bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the live camera loop",
	RunE:  runServe,
}

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&noCamera, "no-camera", false, "Serve the API without processing a camera")
}

func runServe(cmd *cobra.Command, args []string) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (LPR_AUTH_JWT_SECRET) is required to serve the API")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, store, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close(conn)

	detections := service.NewDetectionService(store, store, log)
	registry := service.NewRegistryService(store, log)
	auth := service.NewAuthService(store, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log)

	hub := api.NewHub(log)
	go hub.Run(ctx)

	notifier := notify.NewMulti(log, hub)
	if err := addCloudNotifiers(ctx, notifier, cfg.Events); err != nil {
		return err
	}

	var live *pipeline.LiveState
	var camDone <-chan struct{}
	if noCamera {
		closed := make(chan struct{})
		close(closed)
		camDone = closed
	} else {
		live = pipeline.NewLiveState()
		cam, err := newCamera(ctx, detections, notifier, live, video.NewRenderer(cfg.Snapshots.Quality))
		if err != nil {
			return err
		}
		defer cam.Close()

		camDone = cam.processor.Start(ctx, func(summary *pipeline.Summary, err error) {
			if err != nil {
				log.Error().Err(err).Msg("camera loop stopped")
				return
			}
			log.Info().Int64("frames", summary.Frames).Int64("accepted", summary.Accepted).Msg("camera loop finished")
		})
	}

	if cfg.Retention.Days > 0 {
		go runRetention(ctx, detections, cfg.Retention.Days, cfg.Retention.Interval)
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(detections, registry, auth, live, hub, cfg.HTTP, log)
	router := api.NewRouter(handler, api.NewAuthMiddleware(auth, log), cfg.HTTP, log)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stop()
		<-camDone
		return fmt.Errorf("http server: %w", err)
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownGrace)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)

	// The camera and database are closed by the deferred calls above, so the
	// processor must be out of any OCR or capture call first.
	<-camDone

	if shutdownErr != nil {
		return fmt.Errorf("shutdown: %w", shutdownErr)
	}
	return nil
}

func runRetention(ctx context.Context, detections *service.DetectionService, days int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := detections.CleanupOldDetections(ctx, days); err != nil {
			log.Error().Err(err).Msg("retention run failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/repositories"
	"github.com/Jack-Penn/AlgoRhythms/internal/server"
	"github.com/Jack-Penn/AlgoRhythms/internal/services"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
	"github.com/Jack-Penn/AlgoRhythms/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ServeAPI runs the generation HTTP server until interrupted.
//
// Each request gets its own engine: authenticated requests compile the
// caller's library through a Spotify service, guest requests fall back to
// the track cache or the sample pool. Runs are recorded to the database when
// one is available.
func (r *Runner) ServeAPI(ctx context.Context, cmd *cli.Command) error {
	serverCfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		serverCfg.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		serverCfg.Port = port
	}
	addr := serverCfg.Addr()

	var recorder tasks.RunRecorder
	var cache tasks.TrackCache

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		r.logger.Warn("database unavailable, serving without persistence", "error", err)
	} else {
		defer db.Close()
		recorder = repositories.NewRunRepository(db)
		cache = repositories.NewTrackCacheAdapter(repositories.NewTrackRepository(db), "spotify")
	}

	engineLogger := shared.WithLogger(r.logger, "component", "engine")
	engines := func(ctx context.Context, cred *models.Credential) (*tasks.Engine, error) {
		if cred == nil {
			return tasks.NewEngine(nil, tasks.NewCompiler(nil, cache, engineLogger), recorder, engineLogger), nil
		}

		svc := services.NewSpotifyService()
		if err := svc.Authenticate(ctx, cred); err != nil {
			return nil, err
		}
		return tasks.NewEngine(svc, tasks.NewCompiler(svc, cache, engineLogger), recorder, engineLogger), nil
	}

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger), server.CORS())
	router.Handler(server.NewStatusHandler())
	router.Handler(server.NewWeightsHandler())
	router.Handler(server.NewGenerateHandler(engines, shared.WithLogger(r.logger, "component", "api")))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("generation API listening at %v", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	r.writePlain("Generation API listening on http://%s\n", addr)
	r.writePlain("Routes: POST /generate, GET /generate-weights, GET /\n")
	r.writePlain("Press Ctrl+C to stop.\n")

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

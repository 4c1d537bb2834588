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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Huddle/internal/adapters/bridge"
	"github.com/dkeye/Huddle/internal/adapters/chime"
	"github.com/dkeye/Huddle/internal/adapters/controlapi"
	router "github.com/dkeye/Huddle/internal/adapters/http"
	"github.com/dkeye/Huddle/internal/adapters/memory"
	"github.com/dkeye/Huddle/internal/app/gateway"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build control plane")
	}

	r := router.SetupRouter(ctx, cfg, deps)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Huddle server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func buildDeps(ctx context.Context, cfg *config.Config) (router.Deps, error) {
	var (
		plane    core.ControlPlane
		recorder core.Recorder
		lister   router.MeetingLister
	)
	switch cfg.Control.Backend {
	case config.BackendChime:
		chimeCfg := chime.Config{
			Region:           cfg.AWS.Region,
			AccessKeyID:      cfg.AWS.AccessKeyID,
			SecretAccessKey:  cfg.AWS.SecretAccessKey,
			AccountID:        cfg.AWS.AccountID,
			Bucket:           cfg.AWS.Bucket,
			MeetingsEndpoint: cfg.AWS.MeetingsEndpoint,
		}
		awsCfg, err := chime.LoadAWSConfig(ctx, chimeCfg)
		if err != nil {
			return router.Deps{}, err
		}
		meetings, pipelines := chime.NewClients(awsCfg, chimeCfg)
		plane = chime.NewPlane(meetings)
		recorder = chime.NewRecorder(pipelines, chimeCfg)
	default:
		mem := memory.NewPlane(cfg.AWS.Region)
		plane, recorder, lister = mem, mem, mem
	}
	log.Info().Str("backend", cfg.Control.Backend).Str("region", cfg.AWS.Region).Msg("control plane ready")

	gw := gateway.New(gateway.Config{Region: cfg.AWS.Region}, plane, recorder, log.Logger)

	apiFor := func(clientID string) core.ControlAPI { return controlapi.NewLocal(gw, clientID) }
	if cfg.Control.Endpoint != "" {
		remote := controlapi.Config{
			MeetingURL:   cfg.Control.Endpoint,
			RecordingURL: cfg.Control.RecordingEndpoint,
			Timeout:      cfg.Control.Timeout,
		}
		hc := &http.Client{Timeout: cfg.Control.Timeout}
		apiFor = func(clientID string) core.ControlAPI {
			return controlapi.NewClient(remote, clientID, hc, log.Logger)
		}
		log.Info().Str("endpoint", cfg.Control.Endpoint).Msg("sessions use a remote gateway")
	}

	handler := bridge.NewHandler(bridge.Config{
		ReadLimit:   cfg.ReadLimit,
		PingPeriod:  cfg.PingPeriod,
		SendBuffer:  cfg.SendBuffer,
		CallTimeout: cfg.Control.Timeout,
		MaxPending:  cfg.MaxPending,
	}, apiFor, bridge.NewActionLimiter(cfg.Actions.Limit, cfg.Actions.Interval))

	return router.Deps{Gateway: gw, Bridge: handler, Meetings: lister}, nil
}

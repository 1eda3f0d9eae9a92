package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"nodestore/internal/config"
	"nodestore/internal/handler"
	"nodestore/internal/hub"
	"nodestore/internal/logger"
	"nodestore/internal/notify"
	"nodestore/internal/service"
	"nodestore/internal/watcher"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP listen address (default :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, cfgPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	if cfgPath != "" {
		log.Info().Str("path", cfgPath).Msg("loaded config")
	}
	log.Info().Msg(cfg.Summary())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	log.Info().Str("driver", cfg.EffectiveDriver()).Str("database", storeTarget(cfg)).Msg("database opened")

	eventBus := service.NewEventBus()
	nodeSvc := service.NewNodeService(repo, eventBus, log)

	g, gctx := errgroup.WithContext(ctx)

	sseHub := hub.New(log)
	hubEvents := make(chan service.Event, 100)
	eventBus.Subscribe(hubEvents)
	g.Go(func() error {
		sseHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		hub.Forward[service.Event](gctx, sseHub, hubEvents)
		return nil
	})

	if cfg.Events.Redis.Enabled {
		publisher, err := notify.NewRedisPublisher(ctx, cfg.Events.Redis.URL, cfg.Events.Redis.Channel, log)
		if err != nil {
			return err
		}
		defer publisher.Close()

		redisEvents := make(chan service.Event, 100)
		eventBus.Subscribe(redisEvents)
		g.Go(func() error {
			publisher.Run(gctx, redisEvents)
			return nil
		})
		log.Info().Str("channel", publisher.Channel()).Msg("publishing node events to redis")
	}

	if cfgPath != "" {
		w := watcher.New(cfgPath, reloadLogLevel(cfgPath, log), log)
		g.Go(func() error {
			if err := w.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("config watcher stopped")
			}
			return nil
		})
	}

	router := handler.NewRouter(handler.NewNodeHandler(nodeSvc, log), log, handler.RouterOptions{
		CORSOrigins: cfg.Server.CORSOrigins,
		Events:      sseHub,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info().Msg("server stopped")
	return err
}

// reloadLogLevel re-reads the config file and applies its log level
func reloadLogLevel(path string, log zerolog.Logger) func() {
	return func() {
		cfg, _, err := config.LoadFromPath(path)
		if err != nil {
			log.Warn().Err(err).Msg("config reload failed")
			return
		}
		if err := cfg.ApplyEnv(); err != nil {
			log.Warn().Err(err).Msg("config reload failed")
			return
		}
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			log.Warn().Err(err).Msg("config reload failed")
			return
		}
		log.Info().Str("level", cfg.Log.Level).Msg("log level reloaded")
	}
}

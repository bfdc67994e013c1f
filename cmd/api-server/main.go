package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"romvault/internal/app"
	"romvault/internal/roles"
	"romvault/internal/syncjob"
	"romvault/pkg/logging"
	"romvault/pkg/utils"
)

func main() {
	log := logging.Component("api-server")

	cfg, err := utils.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.DB.Path).Msg("init app")
	}
	defer a.Close()

	var checker *roles.Checker
	if cfg.Discord.BotToken != "" {
		session, err := roles.NewDiscordSession(cfg.Discord.BotToken)
		if err != nil {
			log.Fatal().Err(err).Msg("discord session")
		}
		if err := session.Open(); err != nil {
			log.Fatal().Err(err).Msg("open discord gateway")
		}
		defer session.Close()
		checker = roles.NewChecker(roles.NewDiscordLookup(session), cfg.Discord.GuildID, cfg.Discord.Roles)
		log.Info().Str("guild", cfg.Discord.GuildID).Int("roles", len(cfg.Discord.Roles)).Msg("discord connected")
	} else {
		log.Warn().Msg("discord bot token not set, /roles disabled")
	}
	if !cfg.Auth.Enabled() {
		log.Warn().Msg("jwt secret not set, protected routes are open")
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := a.NewRouter(checker)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	if cfg.Sync.Interval > 0 {
		sched := syncjob.NewScheduler(a.Runner, cfg.Sync.Interval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sched.Start(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	a.Hub.Close()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	wg.Wait()
	log.Info().Msg("server stopped")
}

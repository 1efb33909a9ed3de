package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cosmos-link/code-agent/internal/agent"
	"github.com/cosmos-link/code-agent/internal/api"
	"github.com/cosmos-link/code-agent/internal/config"
	"github.com/cosmos-link/code-agent/internal/generator"
	"github.com/cosmos-link/code-agent/internal/github"
	"github.com/cosmos-link/code-agent/internal/logging"
	"github.com/cosmos-link/code-agent/internal/persist"
	"github.com/cosmos-link/code-agent/internal/session"
	"github.com/cosmos-link/code-agent/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default: $CONFIG_FILE)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	log.Info().Str("host", cfg.Server.Host).Str("port", cfg.Server.Port).Msg("starting code-agent service")

	mode, err := persist.ParseMode(cfg.Output.Mode)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid output mode")
	}
	persister, err := persist.New(persist.Options{
		Dir:          cfg.Output.Dir,
		Mode:         mode,
		Fallback:     cfg.Output.Fallback,
		DefaultName:  cfg.Output.DefaultFilename,
		ResearchName: cfg.Output.ResearchFilename,
		Logger:       log.With().Str("component", "persist").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create persister")
	}

	factory := agent.ProviderFactory(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.BaseURL())
	invoker, err := agent.New(factory, cfg.LLM.APIKey(), log.With().Str("component", "agent").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create agent")
	}
	if !invoker.HasDefaultKey() {
		log.Warn().Str("provider", cfg.LLM.Provider).Msg("no server API key configured, requests need a user key")
	}
	log.Info().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("LLM provider configured")

	// Create GitHub client
	var publisher generator.Publisher
	if cfg.GitHub.Token != "" {
		publisher = github.NewClient(cfg.GitHub.Token, cfg.GitHub.Owner)
		log.Info().Msg("GitHub publishing enabled")
	}

	// Create task manager
	taskManager := task.NewManager(cfg.Task.MaxConcurrentTasks, cfg.Task.QueueSize)
	log.Info().Int("workers", cfg.Task.MaxConcurrentTasks).Int("queue", cfg.Task.QueueSize).Msg("task manager initialized")

	gen := generator.NewGenerator(invoker, persister, taskManager, publisher, log.With().Str("component", "generator").Logger())
	taskManager.Start(gen.RunTask)

	sessions := session.NewManager(cfg.Session.FreeUses, cfg.Session.TTL)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(api.Options{
		Generator:  gen,
		Tasks:      taskManager,
		SSE:        api.NewSSEManager(),
		Sessions:   sessions,
		SessionTTL: cfg.Session.TTL,
		Persister:  persister,
		ServerKey:  invoker.HasDefaultKey(),
		Logger:     log.With().Str("component", "http").Logger(),
	})

	router := api.SetupRouter(handler)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Model calls on the synchronous routes and SSE streams outlive a
		// short write timeout
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go pruneSessions(ctx, sessions, cfg.Session.TTL, log)
	go pruneTasks(ctx, taskManager, cfg.Task.TTL, log)

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	taskManager.Shutdown()

	log.Info().Msg("server stopped")
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"voyageai/internal/api"
	"voyageai/pkg/apisession"
	"voyageai/pkg/config"
	"voyageai/pkg/itinerary"
	"voyageai/pkg/llm"
	"voyageai/pkg/llm/failover"
	"voyageai/pkg/llm/gemini"
	"voyageai/pkg/llm/imageutil"
	"voyageai/pkg/llm/openai"
	"voyageai/pkg/llm/prompts"
	"voyageai/pkg/logging"
	"voyageai/pkg/probe"
	"voyageai/pkg/store"
	"voyageai/pkg/tracker"
	"voyageai/pkg/version"
)

const defaultConfigPath = "configs/voyageai.yaml"

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", defaultConfigPath, "Path to the YAML config file")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to read .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("VoyageAI Started", "version", version.Version)

	tr := tracker.New()
	chain, closeLLM, err := initLLM(ctx, appCfg, tr)
	if err != nil {
		return err
	}
	defer closeLLM()

	backend, err := store.Open(ctx, appCfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer backend.Close()

	verifyStartup(ctx, appCfg, chain, backend)

	saved := store.NewItineraryStore(backend)
	if err := saved.Open(ctx); err != nil {
		return fmt.Errorf("failed to load saved itineraries: %w", err)
	}

	promptMgr, err := prompts.NewManager()
	if err != nil {
		return fmt.Errorf("failed to load prompt templates: %w", err)
	}
	builder := itinerary.NewPromptBuilder(promptMgr, appCfg.LLM.Temperature)
	opts := orchestratorOptions(appCfg)

	sessions := apisession.New(time.Duration(appCfg.Session.TTL), func() *itinerary.Orchestrator {
		return itinerary.NewOrchestrator(chain, chain.Images(), builder, opts)
	})
	sessions.OnEvict(func(id string, _ *itinerary.Orchestrator) {
		slog.Debug("Session expired", "session", id)
	})

	return runServer(ctx, appCfg, tr, sessions, saved)
}

// initLLM builds the provider chain in llm.order. Providers without a key stay in the chain
// and are skipped until configured.
func initLLM(ctx context.Context, cfg *config.Config, tr *tracker.Tracker) (*failover.Provider, func(), error) {
	var (
		text   []failover.Entry[llm.TextGenerator]
		images []failover.Entry[llm.ImageGenerator]
		closer = func() {}
	)

	for _, name := range cfg.LLM.Order {
		switch name {
		case "gemini":
			gc, err := gemini.NewClient(cfg.LLM, tr)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create gemini client: %w", err)
			}
			closer = gc.Close
			if gc.Configured() {
				go func() {
					if err := gc.ValidateModels(ctx); err != nil {
						slog.Warn("Gemini: model validation failed", "error", err)
					}
				}()
			}
			text = append(text, failover.Entry[llm.TextGenerator]{Name: name, Gen: gc})
			images = append(images, failover.Entry[llm.ImageGenerator]{Name: name, Gen: gc})
		case "openai":
			oc := openai.NewClient(cfg.OpenAI, tr)
			text = append(text, failover.Entry[llm.TextGenerator]{Name: name, Gen: oc})
			images = append(images, failover.Entry[llm.ImageGenerator]{Name: name, Gen: oc})
		}
	}

	chain, err := failover.New(text, images, cfg.Log.Prompts.Path, tr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create provider chain: %w", err)
	}
	if !chain.Configured() {
		slog.Warn("No AI provider has an API key; generation requests will fail until one is configured")
	}
	return chain, closer, nil
}

func orchestratorOptions(cfg *config.Config) itinerary.Options {
	return itinerary.Options{
		Image: imageutil.Options{
			MaxWidth:  cfg.Image.MaxWidth,
			MaxHeight: cfg.Image.MaxHeight,
			Quality:   cfg.Image.Quality,
		},
		ImageRequest: llm.ImageOptions{
			AspectRatio: cfg.Image.AspectRatio,
			MIMEType:    cfg.Image.MIMEType,
		},
		ImageConcurrency: cfg.Generation.ImageConcurrency,
		ImageTimeout:     time.Duration(cfg.Generation.ImageTimeout),
		TextTimeout:      time.Duration(cfg.Generation.TextTimeout),
	}
}

// verifyStartup logs the probe summary. Failures are reported but never stop the server;
// a broken store surfaces again when the collection is loaded.
func verifyStartup(ctx context.Context, cfg *config.Config, chain probe.Provider, backend probe.Pinger) {
	probes := []probe.Probe{
		probe.Credentials(chain, cfg.LLM.RequireCredentials),
		probe.Store(backend),
	}
	results := probe.Run(ctx, probes)
	if err := probe.AnalyzeResults(results); err != nil {
		slog.Error("Startup checks failed", "error", err)
	}
}

func runServer(ctx context.Context, cfg *config.Config, tr *tracker.Tracker, sessions *api.Sessions, saved *store.ItineraryStore) error {
	quit := make(chan struct{}, 1)
	shutdownFunc := func() {
		select {
		case quit <- struct{}{}:
		default:
		}
	}

	handlers := api.Handlers{
		Itinerary: api.NewItineraryHandler(sessions, cfg.Server.AllowedOrigins),
		Saved:     api.NewSavedHandler(saved, sessions),
		Stats:     api.NewStatsHandler(tr, sessions, cfg.LLM.Order),
	}
	srv := api.NewServer(cfg.Server.Address, api.NewRouter(cfg.Server.AllowedOrigins, handlers, shutdownFunc))
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit <-chan struct{}) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

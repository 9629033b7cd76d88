package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/habibiahmada/portfolio-api/internal/cli"
	"github.com/habibiahmada/portfolio-api/internal/config"
	"github.com/habibiahmada/portfolio-api/internal/content"
	"github.com/habibiahmada/portfolio-api/internal/db"
	"github.com/habibiahmada/portfolio-api/internal/httpapi"
	"github.com/habibiahmada/portfolio-api/internal/logging"
	"github.com/habibiahmada/portfolio-api/internal/translation"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "", "Host interface to bind (defaults to LISTEN_HOST)")
	port := fs.Int("port", 0, "HTTP port (defaults to LISTEN_PORT)")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	listenHost := *host
	if listenHost == "" {
		listenHost = cfg.ListenHost
	}
	listenPort := *port
	if listenPort == 0 {
		listenPort = cfg.ListenPort
	}
	if listenPort <= 0 || listenPort > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	registry := translation.NewDefaultRegistry(cfg.TranslationProvider)
	syncer, err := buildSyncer(cfg, pool, registry, logger)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to build synchronizer")
		fmt.Fprintf(os.Stderr, "Failed to initialize synchronizer: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	srv := httpapi.NewServer(pool, syncer, registry, logger, httpapi.Options{
		Host:            listenHost,
		Port:            listenPort,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		AdminToken:      cfg.AdminToken,
		AllowedOrigins:  cfg.CORSAllowedOriginsList(),
		DefaultLanguage: cfg.DefaultLanguage,
		Languages:       cfg.SupportedLanguagesList(),
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", listenHost).Int("port", listenPort).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}

func buildSyncer(cfg *config.Config, pool *db.Pool, registry *translation.Registry, logger zerolog.Logger) (*content.Syncer, error) {
	return content.NewSyncer(pool, registry, logger, content.SyncerConfig{
		Languages:        orderedLanguages(cfg),
		FallbackVerbatim: cfg.TranslationFallbackVerbatim,
		ProviderTimeout:  cfg.TranslationTimeout,
	})
}

// orderedLanguages puts the default language first.
func orderedLanguages(cfg *config.Config) []string {
	defaultLang := strings.ToLower(strings.TrimSpace(cfg.DefaultLanguage))
	languages := cfg.SupportedLanguagesList()
	ordered := make([]string, 0, len(languages))
	for _, lang := range languages {
		if lang == defaultLang {
			ordered = append([]string{lang}, ordered...)
			continue
		}
		ordered = append(ordered, lang)
	}
	return ordered
}

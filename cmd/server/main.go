package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/EchoCommand/internal/bootstrap"
	"github.com/himanishpuri/EchoCommand/internal/config"
)

var (
	configPath string
	port       string
	mediaDir   string
	provider   string
)

func init() {
	flag.StringVar(&configPath, "config", getEnvOrDefault("ECHO_CONFIG", ""), "Path to YAML config file")
	flag.StringVar(&port, "port", "", "HTTP server port (overrides config)")
	flag.StringVar(&mediaDir, "media", "", "Media directory (overrides config)")
	flag.StringVar(&provider, "oracle", "", "Oracle provider: openai, gemini or local (overrides config)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "echocommand: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if mediaDir != "" {
		cfg.Media.Dir = mediaDir
	}
	if provider != "" {
		cfg.Oracle.Provider = provider
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log := bootstrap.NewLogger(cfg)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, err := bootstrap.NewService(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:           cfg.Server.Port,
		MediaURLPrefix: cfg.Media.URLPrefix,
		DBPath:         cfg.Database.Path,
		OracleProvider: service.Provider,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		server.logStartup()
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infof("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

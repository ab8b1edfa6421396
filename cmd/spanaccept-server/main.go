// Package main runs a demo HTTP server answering each request in the media type its
// Accept header asks for.
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

	"github.com/illuscio-dev/spanaccept-go/config"
	"github.com/illuscio-dev/spanaccept-go/logging"
	"go.uber.org/zap"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func main() {
	flags := parseFlags()

	settings, err := config.Load(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags win over the file.
	if flags.logLevel != "" {
		settings.Log.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		settings.Log.Format = flags.logFormat
	}

	logger, err := logging.New(settings.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	app, err := newApplication(settings, logger)
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}

	run(app, settings.Listen, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", "configs/spanaccept.yaml", "Path to configuration file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "Log format (json, console)")
	flag.Parse()

	return cliFlags{
		configPath: *configPath,
		logLevel:   *logLevel,
		logFormat:  *logFormat,
	}
}

// run serves until SIGINT or SIGTERM, then drains for up to 30 seconds.
func run(app *application, listen string, logger *zap.Logger) {
	server := &http.Server{
		Addr:              listen,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("serving", zap.String("listen", listen))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	received := <-signals
	logger.Info("received shutdown signal", zap.String("signal", received.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("failed to stop server gracefully", zap.Error(err))
	}
}

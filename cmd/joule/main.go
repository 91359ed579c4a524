// Joule is the conversational agent behind a heat pump monitoring
// dashboard. It classifies a homeowner's question, runs the relevant
// physics tools, assembles grounding context, and asks an
// OpenAI-compatible model for the final answer.
//
// Usage:
//
//	joule init [dir]         Create a workspace with example config
//	joule serve              Start the API server
//	joule ask <question>     Ask a single question (for testing)
//	joule version            Print version and build information
//	joule -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prostat/joule-agent/internal/agent"
	"github.com/prostat/joule-agent/internal/api"
	"github.com/prostat/joule-agent/internal/assembler"
	"github.com/prostat/joule-agent/internal/buildinfo"
	"github.com/prostat/joule-agent/internal/cache"
	"github.com/prostat/joule-agent/internal/completion"
	"github.com/prostat/joule-agent/internal/config"
	"github.com/prostat/joule-agent/internal/knowledge"
	"github.com/prostat/joule-agent/internal/memory"
	"github.com/prostat/joule-agent/internal/settings"
	"github.com/prostat/joule-agent/internal/telemetry"
	"github.com/prostat/joule-agent/internal/tools"
	"github.com/prostat/joule-agent/internal/weather"
)

// main constructs the OS-level environment and delegates to run, keeping
// os.Exit and os.Args out of the logic so tests can drive the lifecycle.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run parses arguments by hand; the flag package's package-level state
// gets in the way of calling run concurrently from tests.
func run(ctx context.Context, stdout, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: joule ask <question>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "version":
		return printVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Joule - Heat Pump Dashboard Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: joule [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  init [dir]   Create a workspace with example config and docs")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/joule/config.yaml, /etc/joule/config.yaml")
	return nil
}

func printVersion(w io.Writer, format string) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(buildinfo.Info())
	}
	fmt.Fprintln(w, buildinfo.String())
	return nil
}

func loadConfig(explicit string) (*config.Config, string, error) {
	path, err := config.FindConfig(explicit)
	if err != nil {
		// No file anywhere: run on defaults. An explicit path that does
		// not exist is still fatal.
		if explicit == "" {
			return config.Default(), "(defaults)", nil
		}
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// buildPipeline wires the full answer pipeline from config. The returned
// cleanup closes the stores; feed is nil when no bridge is configured.
func buildPipeline(cfg *config.Config, logger *slog.Logger) (*agent.Orchestrator, *settings.Store, *telemetry.Subscriber, func(), error) {
	sessionCache := cache.New()

	var weatherSrc assembler.WeatherSource
	if cfg.Weather.BaseURL != "" {
		timeout := time.Duration(cfg.Weather.TimeoutSec) * time.Second
		weatherSrc = weather.New(cfg.Weather.BaseURL, timeout)
	}

	var knowledgeSrc assembler.KnowledgeSource
	if cfg.Knowledge.DocsDir != "" {
		lib, err := knowledge.Load(cfg.Knowledge.DocsDir, logger)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		knowledgeSrc = lib
	}

	var mem *memory.Store
	cleanup := func() {}
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, nil, nil, fmt.Errorf("create data directory: %w", err)
		}
		store, err := memory.Open(filepath.Join(cfg.DataDir, "memory.db"), logger)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("open memory store: %w", err)
		}
		mem = store
		cleanup = func() { store.Close() }
	}

	var feed *telemetry.Subscriber
	if cfg.Telemetry.URL != "" {
		sub, err := telemetry.NewSubscriber(cfg.Telemetry.URL, logger)
		if err != nil {
			cleanup()
			return nil, nil, nil, nil, err
		}
		feed = sub
	}

	settingsPath := cfg.Settings
	if settingsPath == "" {
		settingsPath = filepath.Join(cfg.DataDir, "settings.yaml")
	}
	settingsStore := settings.NewStore(settingsPath)

	orch := agent.New(
		assembler.New(weatherSrc, knowledgeSrc, sessionCache, logger),
		tools.NewExecutor(tools.NewRegistry(), logger),
		completion.New(cfg.Completion, sessionCache, logger),
		mem,
		cfg.Completion,
		logger,
	)
	return orch, settingsStore, feed, cleanup, nil
}

func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := newLogger(stdout, level)
	logger.Info("starting", "version", buildinfo.String(), "config", cfgPath)

	orch, settingsStore, feed, cleanup, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if feed != nil {
		go feed.Run(ctx)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	srv := api.NewServer(addr, orch, settingsStore, feed, cfg.DataDir, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// runAsk boots a minimal pipeline and answers one question, useful for
// smoke tests without the server.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(io.Discard, slog.LevelInfo)

	orch, settingsStore, _, cleanup, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	userCfg, err := settingsStore.Load()
	if err != nil {
		userCfg = &settings.Settings{}
	}

	answer := orch.Ask(ctx, agent.Request{
		Question: strings.Join(args, " "),
		APIKey:   cfg.Completion.APIKey,
		Settings: userCfg,
	})
	fmt.Fprintln(stdout, answer.Message)
	if answer.Error {
		return fmt.Errorf("ask failed")
	}
	return nil
}

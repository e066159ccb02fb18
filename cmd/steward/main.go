// Steward is a tool-augmented personal assistant backend.
//
// It exposes an HTTP API for chat turns, session management, and stored
// records, backed by SQLite databases and whichever model providers are
// configured. Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	steward serve            Start the API server
//	steward init [dir]       Initialize a working directory with defaults
//	steward ask <question>   Ask a single question (for testing)
//	steward version          Print version and build information
//	steward -o json version  Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stewardhq/steward/internal/agent"
	"github.com/stewardhq/steward/internal/api"
	"github.com/stewardhq/steward/internal/buildinfo"
	"github.com/stewardhq/steward/internal/config"
	"github.com/stewardhq/steward/internal/guard"
	"github.com/stewardhq/steward/internal/health"
	"github.com/stewardhq/steward/internal/llm"
	"github.com/stewardhq/steward/internal/memory"
	"github.com/stewardhq/steward/internal/prefs"
	"github.com/stewardhq/steward/internal/prompts"
	"github.com/stewardhq/steward/internal/records"
	"github.com/stewardhq/steward/internal/tools"
)

// main constructs the OS-level environment (context, stdio, argv) and
// delegates immediately to [run]. This keeps os.Exit, os.Stdout, and
// os.Args out of the application logic so that the full lifecycle can
// be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the steward command. Arguments are
// parsed by hand rather than with the flag package, which relies on
// package-level globals that interfere with parallel tests.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
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

	// API keys commonly live in a .env file during development. Missing
	// files are fine; the environment may already be populated.
	_ = godotenv.Load()

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: steward ask <question>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Steward - Personal Assistant Backend")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: steward [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the API server")
	fmt.Fprintln(w, "  init [dir]   Initialize working directory with defaults (default: .)")
	fmt.Fprintln(w, "  ask          Ask a single question (for testing)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./steward.yaml, ~/.config/steward/config.yaml, /etc/steward/config.yaml")
	return nil
}

// runServe starts the full server: stores, providers, engine, HTTP API.
//
// The shutdown sequence is:
//  1. SIGINT or SIGTERM cancels the context
//  2. The HTTP server drains in-flight requests
//  3. Database connections are closed via defers
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting Steward", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level is known. The
	// initial Info-level logger covers only the startup banner.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.Models.Default,
	)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	stores, err := openStores(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	clients := buildClients(cfg, logger)
	if len(clients) == 0 {
		logger.Warn("no model providers configured - chat will be unavailable")
	}

	registry := tools.NewRegistry(stores.records, logger.With("component", "tools"))
	logger.Info("tool registry built", "tools", len(registry.Names()))

	persona := cfg.Persona
	if persona == "" {
		persona = prompts.DefaultPersona
	}
	assembler := prompts.NewAssembler(persona, stores.prefs, logger.With("component", "prompts"))
	assembler.AddBrief(prompts.NewOpenTasksBrief(stores.records, 0))
	assembler.AddBrief(prompts.NewSystemStatusBrief(cfg.Models.Default))

	engine := agent.New(agent.Options{
		Logger:       logger.With("component", "agent"),
		Clients:      clients,
		Memory:       stores.memory,
		Prefs:        stores.prefs,
		Registry:     registry,
		Prompts:      assembler,
		Guard:        guard.New(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
		Engine:       cfg.Engine,
		DefaultModel: cfg.Models.Default,
		ProviderFor:  cfg.ProviderFor,
	})

	server := api.NewServer(cfg.Listen, engine, stores.memory, stores.records, stores.prefs, logger.With("component", "api"))

	// SIGINT/SIGTERM cancellation flows through the same ctx used by
	// all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	monitor := health.NewMonitor(logger.With("component", "health"), health.Options{})
	defer monitor.Stop()
	for name, client := range clients {
		monitor.Watch(ctx, name, client.Ping)
	}
	server.SetMonitor(monitor)

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("Steward stopped")
	return nil
}

// runAsk boots a minimal engine against throwaway stores and processes a
// single question. Useful for smoke tests without starting the server.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(stdout, slog.LevelWarn)

	question := strings.Join(args, " ")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "steward-ask-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	stores, err := openStores(dir, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	clients := buildClients(cfg, logger)
	if len(clients) == 0 {
		return fmt.Errorf("no model providers configured (set ANTHROPIC_API_KEY or OPENAI_API_KEY)")
	}

	persona := cfg.Persona
	if persona == "" {
		persona = prompts.DefaultPersona
	}

	engine := agent.New(agent.Options{
		Logger:       logger,
		Clients:      clients,
		Memory:       stores.memory,
		Prefs:        stores.prefs,
		Registry:     tools.NewRegistry(stores.records, logger),
		Prompts:      prompts.NewAssembler(persona, stores.prefs, logger),
		Engine:       cfg.Engine,
		DefaultModel: cfg.Models.Default,
		ProviderFor:  cfg.ProviderFor,
	})

	turn, err := engine.Send(ctx, "cli", "", question)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Fprintln(stdout, turn.Content)
	return nil
}

// stores bundles the three SQLite stores so they share a lifecycle.
type stores struct {
	records *records.Store
	memory  *memory.Store
	prefs   *prefs.Store
}

func openStores(dataDir string, logger *slog.Logger) (*stores, error) {
	rec, err := records.NewStore(filepath.Join(dataDir, "records.db"))
	if err != nil {
		return nil, fmt.Errorf("open records database: %w", err)
	}
	mem, err := memory.NewStore(filepath.Join(dataDir, "memory.db"))
	if err != nil {
		rec.Close()
		return nil, fmt.Errorf("open memory database: %w", err)
	}
	pref, err := prefs.NewStore(filepath.Join(dataDir, "prefs.db"))
	if err != nil {
		rec.Close()
		mem.Close()
		return nil, fmt.Errorf("open prefs database: %w", err)
	}
	logger.Info("databases opened", "dir", dataDir)
	return &stores{records: rec, memory: mem, prefs: pref}, nil
}

func (s *stores) Close() {
	s.prefs.Close()
	s.memory.Close()
	s.records.Close()
}

// buildClients constructs one client per configured provider.
func buildClients(cfg *config.Config, logger *slog.Logger) map[string]llm.Client {
	clients := make(map[string]llm.Client)

	anthropicKey := cfg.Anthropic.APIKey
	if anthropicKey == "" {
		anthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if anthropicKey != "" {
		clients["anthropic"] = llm.NewAnthropicClient(anthropicKey, logger)
		logger.Info("anthropic provider configured")
	}

	openaiKey := cfg.OpenAI.APIKey
	if openaiKey == "" {
		openaiKey = os.Getenv("OPENAI_API_KEY")
	}
	if openaiKey != "" {
		clients["openai"] = llm.NewOpenAIClient(cfg.OpenAI.BaseURL, openaiKey, logger)
		logger.Info("openai provider configured", "base_url", cfg.OpenAI.BaseURL)
	}

	return clients
}

// newLogger creates a structured text logger writing to w.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file. A missing
// config file is not fatal; defaults apply.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit != "" {
			return nil, "", err
		}
		return config.Default(), "(defaults)", nil
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}

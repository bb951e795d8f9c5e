// Package main implements the arfstream command line tool. It loads a
// toolchain definition, binds its source stage to a container, and
// drives one complete traversal through the configured sinks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/arfstream/component"
	"github.com/c360/arfstream/componentregistry"
	"github.com/c360/arfstream/datablock"
	"github.com/c360/arfstream/filters"
	"github.com/c360/arfstream/metric"
	"github.com/c360/arfstream/toolchain"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "arfstream"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Run application with proper error handling
	if err := run(); err != nil {
		slog.Error("Run failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// Parse and validate CLI flags
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	doc, err := loadDocument(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.List {
		listToolchains(doc)
		return nil
	}

	if cliCfg.Validate {
		slog.Info("Toolchain document is valid", "toolchains", doc.Names())
		return nil
	}

	def, err := doc.Get(cliCfg.Toolchain)
	if err != nil {
		return err
	}
	def = def.WithSourceConfig(cliCfg.sourceOverrides())

	return runToolchain(cliCfg, def)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting arfstream",
		"version", Version,
		"build_time", BuildTime,
		"toolchain", cliCfg.Toolchain)

	return cliCfg, false, nil
}

// loadDocument loads the toolchain document, falling back to the
// builtin set when no path is given.
func loadDocument(cliCfg *CLIConfig) (*toolchain.Document, error) {
	if cliCfg.ToolchainsPath == "" {
		return toolchain.Builtin(), nil
	}
	doc, err := toolchain.LoadFile(cliCfg.ToolchainsPath)
	if err != nil {
		return nil, fmt.Errorf("load toolchains: %w", err)
	}
	return doc, nil
}

// listToolchains prints the available definitions to stdout.
func listToolchains(doc *toolchain.Document) {
	for _, name := range doc.Names() {
		def, err := doc.Get(name)
		if err != nil {
			continue
		}
		fmt.Printf("%-16s %s\n", name, def.Description)
	}
}

// runToolchain assembles the definition and drives one traversal,
// serving metrics alongside when a port is configured.
func runToolchain(cliCfg *CLIConfig, def toolchain.Definition) error {
	metrics := metric.NewRegistry()

	registry := component.NewRegistry()
	if err := componentregistry.Register(registry); err != nil {
		return fmt.Errorf("register components: %w", err)
	}
	slog.Debug("component factories registered", "count", len(registry.ListFactories()))

	assembler, err := toolchain.NewAssembler(toolchain.AssemblerDeps{
		Registry: registry,
		Filters:  namedFilters(),
		Metrics:  metrics,
		Logger:   slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("create assembler: %w", err)
	}

	chain, err := assembler.Assemble(cliCfg.Toolchain, def)
	if err != nil {
		return fmt.Errorf("assemble toolchain: %w", err)
	}
	defer chain.Release()

	// SIGINT and SIGTERM cancel the traversal; a second signal kills
	// the process through the default handler.
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	g, gctx := errgroup.WithContext(signalCtx)

	var server *metric.Server
	if cliCfg.MetricsPort > 0 {
		server = metric.NewServer(cliCfg.MetricsPort, "/metrics", metrics)
		slog.Info("Serving metrics", "port", cliCfg.MetricsPort)
		g.Go(server.Start)
	}

	started := time.Now()
	g.Go(func() error {
		err := chain.Run(gctx)
		if server != nil {
			_ = server.Stop()
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("toolchain %s: %w", cliCfg.Toolchain, err)
	}

	slog.Info("Toolchain complete",
		"toolchain", cliCfg.Toolchain,
		"stages", chain.Stages(),
		"elapsed", time.Since(started).Round(time.Millisecond))
	return nil
}

// namedFilters registers the tag predicates available to sink filter
// specs by plain name.
func namedFilters() *filters.Registry {
	named := filters.NewRegistry()
	for _, tag := range []datablock.Tag{datablock.TagStructure, datablock.TagSamples, datablock.TagEvents} {
		_ = named.Register(string(tag), filters.AnyTag(tag))
	}
	return named
}

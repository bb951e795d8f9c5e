package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ToolchainsPath string
	Toolchain      string
	Path           string
	Start          float64
	Stop           float64
	Clock          string
	Channels       string
	Entries        string
	MetricsPort    int
	LogLevel       string
	LogFormat      string
	Debug          bool
	List           bool
	Validate       bool
	ShowVersion    bool
	ShowHelp       bool

	set map[string]bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ToolchainsPath, "toolchains",
		getEnv("ARFSTREAM_TOOLCHAINS", ""),
		"Toolchain document path, empty for the builtin set (env: ARFSTREAM_TOOLCHAINS)")

	flag.StringVar(&cfg.Toolchain, "toolchain",
		getEnv("ARFSTREAM_TOOLCHAIN", "view-raw"),
		"Toolchain to run (env: ARFSTREAM_TOOLCHAIN)")

	flag.StringVar(&cfg.Toolchain, "t",
		getEnv("ARFSTREAM_TOOLCHAIN", "view-raw"),
		"Toolchain to run (env: ARFSTREAM_TOOLCHAIN)")

	flag.StringVar(&cfg.Path, "path",
		getEnv("ARFSTREAM_PATH", ""),
		"Container file for the source stage (env: ARFSTREAM_PATH)")

	flag.StringVar(&cfg.Path, "p",
		getEnv("ARFSTREAM_PATH", ""),
		"Container file for the source stage (env: ARFSTREAM_PATH)")

	flag.Float64Var(&cfg.Start, "start", 0,
		"Window start in stream seconds")

	flag.Float64Var(&cfg.Stop, "stop", 0,
		"Window stop in stream seconds, 0 for the end")

	flag.StringVar(&cfg.Clock, "clock", "",
		"Entry ordering clock: auto, timestamp, sample-count, frame-counter")

	flag.StringVar(&cfg.Channels, "channels", "",
		"Comma-separated channel name patterns to include")

	flag.StringVar(&cfg.Entries, "entries", "",
		"Comma-separated entry name patterns to include")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("ARFSTREAM_METRICS_PORT", 0),
		"Prometheus metrics port, 0 to disable (env: ARFSTREAM_METRICS_PORT)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("ARFSTREAM_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: ARFSTREAM_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("ARFSTREAM_LOG_FORMAT", "text"),
		"Log format: json, text (env: ARFSTREAM_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("ARFSTREAM_DEBUG", false),
		"Enable debug mode (env: ARFSTREAM_DEBUG)")

	flag.BoolVar(&cfg.List, "list", false, "List available toolchains and exit")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate the toolchain document and exit")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	// Custom usage
	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	cfg.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { cfg.set[f.Name] = true })

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	// Validate document path when one is given
	if cfg.ToolchainsPath != "" {
		if _, err := os.Stat(cfg.ToolchainsPath); err != nil {
			return fmt.Errorf("toolchain document not found: %s", cfg.ToolchainsPath)
		}
	}

	if cfg.Toolchain == "" && !cfg.List && !cfg.Validate {
		return fmt.Errorf("no toolchain selected")
	}

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	// Validate log format
	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	// Validate clock selector
	validClocks := []string{"", "auto", "timestamp", "sample-count", "frame-counter"}
	if !contains(validClocks, cfg.Clock) {
		return fmt.Errorf("invalid clock: %s", cfg.Clock)
	}

	if cfg.Stop != 0 && cfg.Stop < cfg.Start {
		return fmt.Errorf("stop %.3f is before start %.3f", cfg.Stop, cfg.Start)
	}

	// Validate metrics port
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	return nil
}

// sourceOverrides builds the source stage overrides from flags the
// user actually set, so document values survive unless overridden.
func (c *CLIConfig) sourceOverrides() map[string]any {
	overrides := make(map[string]any)
	if c.Path != "" {
		overrides["path"] = c.Path
	}
	if c.set["start"] {
		overrides["start"] = c.Start
	}
	if c.set["stop"] {
		overrides["stop"] = c.Stop
	}
	if c.Clock != "" {
		overrides["clock"] = c.Clock
	}
	if c.Channels != "" {
		overrides["channels"] = splitList(c.Channels)
	}
	if c.Entries != "" {
		overrides["entries"] = splitList(c.Entries)
	}
	return overrides
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - ARF container stream toolchains

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Dump a container as readable text
  %s --path=session.arf

  # Replay a window of one channel group at recording speed
  %s --toolchains=chains.yaml --toolchain=replay --path=session.arf --start=10 --stop=20

  # Export sampled channels as JSON lines
  %s --toolchain=export-jsonl --path=session.arf --channels="pcm_.*"

  # List the available toolchains
  %s --toolchains=chains.yaml --list

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/adithyagurusai/media-extractor/pkg/config"
	"github.com/adithyagurusai/media-extractor/pkg/input"
	"github.com/adithyagurusai/media-extractor/pkg/orchestrate"
)

const version = "1.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "extract":
		runExtract(os.Args[2:], false)
	case "resume":
		runExtract(os.Args[2:], true)
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("media-extractor %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `media-extractor - High-quality media discovery and download

Usage:
  media-extractor <command> [options]

Commands:
  extract     Run a fresh extraction over the page list
  resume      Re-run, skipping artifacts completed in earlier runs
  validate    Validate configuration and page list without fetching
  version     Show version info

Run 'media-extractor <command> -h' for command-specific help.`)
}

// setupLogger builds the run's logger in the requested level.
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
	}
	return log
}

// loadValidatedConfig loads the config file and applies validation defaults,
// logging any warnings through the provided logger.
func loadValidatedConfig(path string, log *logrus.Logger) (*config.AppConfig, error) {
	cfg, err := config.LoadAppConfig(path)
	if err != nil {
		return nil, err
	}
	warnings, err := cfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// runExtract handles both extract and resume subcommands
func runExtract(args []string, isResume bool) {
	cmdName := "extract"
	if isResume {
		cmdName = "resume"
	}

	fs := flag.NewFlagSet(cmdName, flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	pagesFile := fs.String("pages", "", "Page list file (overrides the config setting)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: media-extractor %s [options]\n\nOptions:\n", cmdName)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  media-extractor %s -config config.yaml\n", cmdName)
		fmt.Fprintf(os.Stderr, "  media-extractor %s -pages pages.txt -loglevel debug\n", cmdName)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)

	log.Infof("Loading configuration from %s", *configFile)
	cfg, err := loadValidatedConfig(*configFile, log)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if *pagesFile != "" {
		cfg.PagesFile = *pagesFile
	}

	entries, err := input.ParsePagesFile(cfg.PagesFile, logrus.NewEntry(log))
	if err != nil {
		log.Fatalf("Page list error: %v", err)
	}
	if err := orchestrate.ValidateEntries(entries); err != nil {
		log.Fatalf("Page list error: %v", err)
	}

	var manualURLs []string
	if cfg.ManualCapturesFile != "" {
		manualURLs, err = input.ParseManualCaptures(cfg.ManualCapturesFile, logrus.NewEntry(log))
		if err != nil {
			log.Fatalf("Manual captures error: %v", err)
		}
	}

	if len(entries) == 0 {
		// Manual captures merge into page scopes, so they need pages to join
		log.Fatal("Nothing to do: page list is empty")
	}

	orch, err := orchestrate.NewOrchestrator(cfg, isResume, version, log)
	if err != nil {
		log.Fatalf("Initialization error: %v", err)
	}
	defer func() {
		if closeErr := orch.Close(); closeErr != nil {
			log.Errorf("Closing ledger: %v", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warnf("Received signal %v, shutting down...", sig)
		cancel()
		// Second signal forces exit
		sig = <-sigCh
		log.Errorf("Received second signal %v, exiting immediately", sig)
		os.Exit(1)
	}()

	results := orch.Run(ctx, entries, manualURLs)

	for _, r := range results {
		if !r.Success {
			os.Exit(1)
		}
	}
}

// runValidate handles the validate subcommand: config and page list checks
// with no network traffic.
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	pagesFile := fs.String("pages", "", "Page list file (overrides the config setting)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: media-extractor validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, *pagesFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to the provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath, pagesOverride string, stdout, stderr io.Writer) int {
	cfg, err := config.LoadAppConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "OK: configuration is valid")

	pagesPath := cfg.PagesFile
	if pagesOverride != "" {
		pagesPath = pagesOverride
	}

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	entries, err := input.ParsePagesFile(pagesPath, logrus.NewEntry(quiet))
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	if err := orchestrate.ValidateEntries(entries); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	popups, assets := 0, 0
	for _, e := range entries {
		popups += len(e.Popups)
		assets += len(e.Assets)
	}
	fmt.Fprintf(stdout, "OK: %d pages, %d popups, %d explicit assets\n", len(entries), popups, assets)
	return 0
}

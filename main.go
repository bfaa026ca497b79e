package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"outletscraper/internal/config"
	"outletscraper/internal/formatter"
	"outletscraper/internal/scraper"
	_ "outletscraper/internal/sites/mcdonalds"
)

var version = "dev"

var (
	configPath   string
	verbose      bool
	outputFormat string
	outputFile   string
	site         string
	fromHTML     string
	timeout      time.Duration
	maxPages     int
	showUI       bool
	proxyURL     string
)

func main() {
	rootCmd := newRootCmd()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "outletscraper",
		Short:   "Scrape, store and query McDonald's Malaysia outlets",
		Version: version,
		Long: `outletscraper drives a headless browser through the McDonald's Malaysia
outlet locator, extracts every outlet card across all result pages and
optionally stores the outlets with embeddings for semantic search.`,
		Example: `  # Scrape outlets matching a search term
  outletscraper scrape "Kuala Lumpur"
  outletscraper scrape Penang -f json -o penang.json

  # Extract outlets from a saved results page without a browser
  outletscraper scrape --from-html page.html -f table

  # Scrape and store, then ask about the stored outlets
  outletscraper save "Kuala Lumpur"
  outletscraper ask "which outlets in Bangsar are open 24 hours?"

  # Run the HTTP API
  outletscraper serve --listen :8000`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(newLogger(verbose))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (defaults to ./"+config.DefaultFile+" when present)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.DurationVarP(&timeout, "timeout", "t", 0, "Per-element wait timeout (overrides config)")
	pf.IntVar(&maxPages, "max-pages", 0, "Max result pages to walk (overrides config when positive)")
	pf.BoolVar(&showUI, "showui", false, "Show browser UI (disable headless mode)")
	pf.StringVarP(&proxyURL, "proxy", "p", "", "Proxy URL (e.g. http://127.0.0.1:7890), defaults to OUTLETS_PROXY env var")

	rootCmd.AddCommand(
		newScrapeCmd(),
		newSaveCmd(),
		newListCmd(),
		newSearchCmd(),
		newAskCmd(),
		newRescrapeAllCmd(),
		newPurgeCmd(),
		newServeCmd(),
	)
	return rootCmd
}

func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [search term]",
		Short: "Scrape outlets and print them without storing",
		Long: `Scrape every outlet matching the search term, walking all result pages.
With no search term the unfiltered listing is scraped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScrape,
	}
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format ("+strings.Join(formatter.Formats, ", ")+")")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (format inferred from extension if -f not specified)")
	cmd.Flags().StringVar(&site, "site", "mcdonalds", "Site scraper ("+strings.Join(scraper.Names(), ", ")+")")
	cmd.Flags().StringVar(&fromHTML, "from-html", "", "Extract outlets from a saved results page instead of the live site")
	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	term := ""
	if len(args) == 1 {
		term = strings.TrimSpace(args[0])
	}

	if outputFile != "" && !cmd.Flags().Changed("format") {
		if inferred := formatter.InferFromExtension(outputFile); inferred != "" {
			outputFormat = inferred
		}
	}
	if !formatter.Valid(outputFormat) {
		return fmt.Errorf("invalid output format: %s", outputFormat)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, ok := scraper.Get(site)
	if !ok {
		return fmt.Errorf("unknown site: %s", site)
	}
	opts := cfg.ScraperOptions(scraper.NewMetrics())
	if fromHTML != "" {
		opts.Extra["from-html"] = fromHTML
	}

	content, err := s.Scrape(cmd.Context(), term, opts)
	if err != nil {
		return err
	}

	out, err := formatter.Format(content, outputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return writeOutput(cmd, out)
}

func writeOutput(cmd *cobra.Command, out string) error {
	if outputFile == "" {
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}
	if err := os.WriteFile(outputFile, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Output written to: %s\n", outputFile)
	return nil
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.ElementTimeout = timeout
	}
	if flags.Changed("max-pages") && maxPages > 0 {
		cfg.MaxPages = maxPages
	}
	if flags.Changed("showui") {
		cfg.ShowUI = showUI
	}
	if flags.Changed("proxy") {
		cfg.ProxyURL = proxyURL
	}
	cfg.Verbose = verbose
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger writes to stderr so scrape output on stdout stays clean.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if isTerminal(os.Stderr) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

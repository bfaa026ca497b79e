package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"outletscraper/internal/api"
	"outletscraper/internal/config"
	"outletscraper/internal/openai"
	"outletscraper/internal/scraper"
	"outletscraper/internal/service"
	"outletscraper/internal/sites/mcdonalds"
	"outletscraper/internal/store"
)

// app holds the long-lived dependencies shared by the storage commands.
type app struct {
	cfg     *config.Config
	db      *sql.DB
	metrics *scraper.Metrics
	svc     *service.Service
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()

	db, err := store.Open(ctx, cfg.Database.File, cfg.Database.URL, cfg.Database.AuthToken)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	metrics := scraper.NewMetrics()
	opts := service.Options{
		Scraper: mcdonalds.NewClient(nil, cfg.ScraperOptions(metrics)),
		Repo:    store.New(db),
		Metrics: metrics,
	}

	openaiTimeout, _ := time.ParseDuration(cfg.OpenAI.Timeout)
	client, err := openai.NewClient(openai.Options{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		Dimensions:     cfg.OpenAI.Dimensions,
		ChatModel:      cfg.OpenAI.ChatModel,
		Timeout:        openaiTimeout,
	})
	switch {
	case errors.Is(err, openai.ErrNoAPIKey):
		slog.WarnContext(ctx, "OPENAI_API_KEY not set, outlets are stored without embeddings and ask is disabled")
	case err != nil:
		db.Close()
		return nil, err
	default:
		opts.Embedder = openai.NewCachedEmbedder(client, cfg.OpenAI.CacheSize, 24*time.Hour, metrics)
		opts.Completer = client
	}

	return &app{cfg: cfg, db: db, metrics: metrics, svc: service.New(opts)}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Warn("closing database", slog.Any("error", err))
	}
}

// withApp runs fn with an opened app and closes it afterwards.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

func newSaveCmd() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "save <search term>",
		Short: "Scrape outlets and store them in the database",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			term, err := service.NormalizeTerm(args[0])
			if err != nil {
				return err
			}
			summary := a.svc.ScrapeAndStore(cmd.Context(), term, overwrite)
			if err := printJSON(cmd, summary); err != nil {
				return err
			}
			if !summary.Success {
				return errors.New(summary.Message)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Refresh outlets that are already stored")
	return cmd
}

func newListCmd() *cobra.Command {
	var (
		term    string
		page    int
		perPage int
		format  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored outlets, newest first",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			res, err := a.svc.List(cmd.Context(), store.ListQuery{SearchTerm: term, Page: page, PerPage: perPage})
			if err != nil {
				return err
			}
			if format == "json" {
				return printJSON(cmd, res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPage(res))
			return nil
		}),
	}
	cmd.Flags().StringVar(&term, "search-term", "", "Only outlets whose search term contains this text")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", 20, "Outlets per page")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	return cmd
}

func renderPage(p store.Page) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("Outlets (page %d of %d)", p.Page, max(p.Pages, 1)))
	t.AppendHeader(table.Row{"ID", "Name", "Address", "Hours", "Telephone", "Search term"})
	for _, o := range p.Outlets {
		t.AppendRow(table.Row{o.ID, o.Name, o.Address, o.OperatingHours, o.Telephone, o.SearchTerm})
	}
	t.AppendFooter(table.Row{"", "Total", p.Total})
	return t.Render()
}

func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank stored outlets by similarity to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			matches, err := a.svc.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Score", "ID", "Name", "Address"})
			for _, m := range matches {
				t.AppendRow(table.Row{strconv.FormatFloat(m.Score, 'f', 3, 64), m.ID, m.Name, m.Address})
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", service.DefaultSearchLimit, "Maximum number of matches")
	return cmd
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question about stored outlets",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			answer, err := a.svc.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer.Response)
			return nil
		}),
	}
}

func newRescrapeAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rescrape-all",
		Short: "Delete all outlets and scrape every stored search term again",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return a.svc.RescrapeAll(cmd.Context())
		}),
	}
}

func newPurgeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every stored outlet",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if !yes {
				return errors.New("refusing to delete all outlets without --yes")
			}
			n, err := a.svc.DeleteAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted %d outlets.\n", n)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			if listen == "" {
				listen = a.cfg.ListenAddr
			}
			return serve(cmd.Context(), a, listen)
		}),
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides config)")
	return cmd
}

func serve(ctx context.Context, a *app, addr string) error {
	handler := api.New(a.svc, api.Options{
		Metrics:        a.metrics,
		AllowedOrigins: a.cfg.AllowedOrigins,
		BaseContext:    ctx,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("api server listening", slog.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("api server shutdown failed", slog.Any("error", err))
	}
	handler.Wait()
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

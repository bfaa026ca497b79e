package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"outletscraper/internal/models"
	"outletscraper/internal/openai"
	"outletscraper/internal/scraper"
	"outletscraper/internal/sites/mcdonalds"
	"outletscraper/internal/store"
)

// MaxSearchTermLength bounds user-supplied search terms.
const MaxSearchTermLength = 100

// ErrInvalidSearchTerm is returned for blank or overlong search terms.
var ErrInvalidSearchTerm = errors.New("search term must be 1-100 characters")

// ErrNoCompleter is returned by Ask when no chat model is configured.
var ErrNoCompleter = errors.New("question answering requires an OpenAI API key")

// Scraper runs one live scrape for a search term.
type Scraper interface {
	Scrape(ctx context.Context, term string) (*mcdonalds.Result, error)
}

// Repository is the persistence surface the service needs.
type Repository interface {
	Upsert(ctx context.Context, o models.StoredOutlet, overwrite bool) (bool, error)
	List(ctx context.Context, q store.ListQuery) (store.Page, error)
	Get(ctx context.Context, id int64) (models.StoredOutlet, error)
	Update(ctx context.Context, id int64, u models.OutletUpdate) (models.StoredOutlet, error)
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) (int64, error)
	SearchTerms(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (store.Stats, error)
	VectorSearch(ctx context.Context, vector []float32, limit int) ([]store.Match, error)
	All(ctx context.Context) ([]models.StoredOutlet, error)
}

// Service ties the scraper, the outlet store and the language model
// together. Embedder and Completer may be nil, in which case outlets are
// stored without embeddings and search falls back to name matching.
type Service struct {
	scraper   Scraper
	repo      Repository
	embedder  openai.Embedder
	completer openai.Completer
	metrics   *scraper.Metrics
	now       func() time.Time

	// one browser against the site at a time
	scrapeMu sync.Mutex
}

type Options struct {
	Scraper   Scraper
	Repo      Repository
	Embedder  openai.Embedder
	Completer openai.Completer
	Metrics   *scraper.Metrics
}

func New(opts Options) *Service {
	return &Service{
		scraper:   opts.Scraper,
		repo:      opts.Repo,
		embedder:  opts.Embedder,
		completer: opts.Completer,
		metrics:   opts.Metrics,
		now:       time.Now,
	}
}

// NormalizeTerm trims term and checks its length.
func NormalizeTerm(term string) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" || len([]rune(term)) > MaxSearchTermLength {
		return "", ErrInvalidSearchTerm
	}
	return term, nil
}

// ScrapeResult is the response of a scrape without persistence.
type ScrapeResult struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	Outlets      []models.Outlet `json:"outlets"`
	TotalOutlets int             `json:"total_outlets"`
	SearchTerm   string          `json:"search_term"`
}

// ScrapeOnly scrapes term and returns the outlets without storing them.
// Structural scrape failures are returned as errors.
func (s *Service) ScrapeOnly(ctx context.Context, term string) (ScrapeResult, error) {
	res, err := s.scrape(ctx, term)
	if err != nil {
		return ScrapeResult{}, err
	}
	outlets := res.Outlets
	if outlets == nil {
		outlets = []models.Outlet{}
	}
	return ScrapeResult{
		Success:      !res.Empty(),
		Message:      res.Message(),
		Outlets:      outlets,
		TotalOutlets: len(outlets),
		SearchTerm:   term,
	}, nil
}

func (s *Service) scrape(ctx context.Context, term string) (*mcdonalds.Result, error) {
	s.scrapeMu.Lock()
	defer s.scrapeMu.Unlock()
	return s.scraper.Scrape(ctx, term)
}

// ScrapeSummary is the response of a scrape-and-store run.
type ScrapeSummary struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	OutletsScraped int       `json:"outlets_scraped"`
	OutletsSaved   int       `json:"outlets_saved"`
	SearchTerm     string    `json:"search_term"`
	ScrapedAt      time.Time `json:"scraped_at"`
}

// ScrapeAndStore scrapes term and upserts every outlet. Failures are
// reported in the summary rather than returned; a record that cannot be
// embedded or stored is logged and skipped.
func (s *Service) ScrapeAndStore(ctx context.Context, term string, overwrite bool) ScrapeSummary {
	summary := ScrapeSummary{SearchTerm: term, ScrapedAt: s.now().UTC()}

	slog.InfoContext(ctx, "starting scrape and store", slog.String("term", term), slog.Bool("overwrite", overwrite))
	res, err := s.scrape(ctx, term)
	if err != nil {
		slog.ErrorContext(ctx, "scrape failed", slog.String("term", term), slog.Any("error", err))
		summary.Message = "Error during scraping: " + err.Error()
		return summary
	}
	if res.Empty() {
		summary.Message = "No outlets found for the given search term"
		return summary
	}

	summary.OutletsScraped = len(res.Outlets)
	summary.OutletsSaved = s.store(ctx, res.Outlets, term, overwrite, summary.ScrapedAt)
	summary.Success = true
	summary.Message = "Successfully scraped and stored outlets"
	return summary
}

func (s *Service) store(ctx context.Context, outlets []models.Outlet, term string, overwrite bool, scrapedAt time.Time) int {
	saved := 0
	for _, o := range outlets {
		if strings.TrimSpace(o.Name) == "" || strings.TrimSpace(o.Address) == "" {
			s.metrics.IncStored("skipped")
			continue
		}

		record := models.StoredOutlet{Outlet: o, SearchTerm: term, ScrapedAt: scrapedAt}
		if s.embedder != nil {
			vec, err := s.embedder.Embed(ctx, openai.OutletText(o))
			if err != nil {
				slog.ErrorContext(ctx, "embedding outlet", slog.String("name", o.Name), slog.Any("error", err))
				s.metrics.IncStored("failed")
				continue
			}
			record.Embedding = vec
		}

		ok, err := s.repo.Upsert(ctx, record, overwrite)
		switch {
		case err != nil:
			slog.ErrorContext(ctx, "storing outlet", slog.String("name", o.Name), slog.Any("error", err))
			s.metrics.IncStored("failed")
		case ok:
			saved++
			s.metrics.IncStored("saved")
		default:
			slog.InfoContext(ctx, "outlet already exists, skipping", slog.String("name", o.Name))
			s.metrics.IncStored("skipped")
		}
	}
	return saved
}

// RescrapeAll deletes every outlet and scrapes each previously used search
// term again. Per-term failures are logged.
func (s *Service) RescrapeAll(ctx context.Context) error {
	terms, err := s.repo.SearchTerms(ctx)
	if err != nil {
		return fmt.Errorf("list search terms: %w", err)
	}
	if len(terms) == 0 {
		slog.WarnContext(ctx, "no search terms stored, nothing to rescrape")
		return nil
	}
	slog.InfoContext(ctx, "rescraping all search terms", slog.Int("terms", len(terms)), slog.Any("search_terms", terms))

	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("delete outlets: %w", err)
	}
	slog.InfoContext(ctx, "deleted outlets", slog.Int64("count", deleted))

	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary := s.ScrapeAndStore(ctx, term, false)
		if !summary.Success {
			slog.ErrorContext(ctx, "rescrape failed", slog.String("term", term), slog.String("message", summary.Message))
		}
	}
	slog.InfoContext(ctx, "rescrape finished")
	return nil
}

func (s *Service) List(ctx context.Context, q store.ListQuery) (store.Page, error) {
	return s.repo.List(ctx, q)
}

func (s *Service) Get(ctx context.Context, id int64) (models.StoredOutlet, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, u models.OutletUpdate) (models.StoredOutlet, error) {
	return s.repo.Update(ctx, id, u)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "deleted outlets", slog.Int64("count", n))
	return n, nil
}

func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	return s.repo.Stats(ctx)
}

package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"outletscraper/internal/models"
)

//go:embed schema.sql
var Schema string

// ErrNotFound is returned when no outlet has the requested id.
var ErrNotFound = errors.New("outlet not found")

// ErrDuplicate is returned when an update collides with another outlet's
// (name, address) pair.
var ErrDuplicate = errors.New("outlet with the same name and address already exists")

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to a remote libsql database when dbURL is set, otherwise to
// the sqlite file at path. The schema is applied in both cases.
func Open(ctx context.Context, path, dbURL, authToken string) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	if dbURL != "" {
		var dsn string
		dsn, err = libsqlDSN(dbURL, authToken)
		if err != nil {
			return nil, err
		}
		db, err = sql.Open("libsql", dsn)
		if err != nil {
			return nil, err
		}
	} else {
		if path == "" {
			return nil, fmt.Errorf("a database path was not specified")
		}
		db, err = sql.Open("sqlite", path)
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
		if path != ":memory:" {
			if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
				db.Close()
				return nil, err
			}
		}
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

func libsqlDSN(raw, authToken string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid database url: %w", err)
	}
	if authToken != "" {
		q := u.Query()
		q.Set("authToken", authToken)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

const outletColumns = `id, name, address, operating_hours, waze_link, latitude, longitude,
	telephone, attribute, search_term, embedding, scraped_at, created_at, updated_at`

// Upsert inserts o. When an outlet with the same name and address exists it
// is refreshed if overwrite is set and left untouched otherwise. saved
// reports whether a row was written.
func (s *Store) Upsert(ctx context.Context, o models.StoredOutlet, overwrite bool) (bool, error) {
	embedding, err := encodeVector(o.Embedding)
	if err != nil {
		return false, err
	}
	now := s.now().UTC()
	scraped := o.ScrapedAt
	if scraped.IsZero() {
		scraped = now
	}

	conflict := "do nothing"
	if overwrite {
		conflict = `do update set
			operating_hours = excluded.operating_hours,
			waze_link = excluded.waze_link,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			telephone = excluded.telephone,
			attribute = excluded.attribute,
			embedding = excluded.embedding,
			search_term = excluded.search_term,
			scraped_at = excluded.scraped_at,
			updated_at = excluded.updated_at`
	}

	res, err := s.db.ExecContext(ctx, `insert into outlets
		(name, address, operating_hours, waze_link, latitude, longitude, telephone,
		 attribute, search_term, embedding, scraped_at, created_at, updated_at)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		on conflict(name, address) `+conflict,
		o.Name, o.Address, o.OperatingHours, o.WazeLink, nullFloat(o.Latitude), nullFloat(o.Longitude),
		o.Telephone, o.Attribute, o.SearchTerm, embedding, scraped.Unix(), now.Unix(), now.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("upsert outlet %q: %w", o.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListQuery filters and pages List. Page is 1-based.
type ListQuery struct {
	SearchTerm string
	Page       int
	PerPage    int
}

type Page struct {
	Outlets []models.StoredOutlet `json:"outlets"`
	Total   int                   `json:"total"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"per_page"`
	Pages   int                   `json:"pages"`
}

// List returns outlets newest first. SearchTerm matches case-insensitively
// anywhere in the stored search term.
func (s *Store) List(ctx context.Context, q ListQuery) (Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 50
	}

	where := ""
	var args []any
	if q.SearchTerm != "" {
		where = "where lower(search_term) like ? escape '\\'"
		args = append(args, "%"+escapeLike(strings.ToLower(q.SearchTerm))+"%")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "select count(*) from outlets "+where, args...).Scan(&total); err != nil {
		return Page{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		"select "+outletColumns+" from outlets "+where+" order by created_at desc, id desc limit ? offset ?",
		append(args, q.PerPage, (q.Page-1)*q.PerPage)...,
	)
	if err != nil {
		return Page{}, err
	}
	outlets, err := scanOutlets(rows)
	if err != nil {
		return Page{}, err
	}

	return Page{
		Outlets: outlets,
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
		Pages:   (total + q.PerPage - 1) / q.PerPage,
	}, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *Store) Get(ctx context.Context, id int64) (models.StoredOutlet, error) {
	rows, err := s.db.QueryContext(ctx, "select "+outletColumns+" from outlets where id = ?", id)
	if err != nil {
		return models.StoredOutlet{}, err
	}
	outlets, err := scanOutlets(rows)
	if err != nil {
		return models.StoredOutlet{}, err
	}
	if len(outlets) == 0 {
		return models.StoredOutlet{}, ErrNotFound
	}
	return outlets[0], nil
}

// Update applies the non-nil fields of u and returns the updated outlet.
func (s *Store) Update(ctx context.Context, id int64, u models.OutletUpdate) (models.StoredOutlet, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return models.StoredOutlet{}, err
	}
	if u.Empty() {
		return current, nil
	}
	u.Apply(&current.Outlet)
	if err := current.Outlet.Validate(); err != nil {
		return models.StoredOutlet{}, err
	}

	_, err = s.db.ExecContext(ctx, `update outlets set
		name = ?, address = ?, operating_hours = ?, telephone = ?, attribute = ?, updated_at = ?
		where id = ?`,
		current.Name, current.Address, current.OperatingHours, current.Telephone, current.Attribute,
		s.now().UTC().Unix(), id,
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return models.StoredOutlet{}, ErrDuplicate
		}
		return models.StoredOutlet{}, err
	}
	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "delete from outlets where id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every outlet and returns how many were deleted.
func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "delete from outlets")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SearchTerms returns the distinct non-empty search terms, sorted.
func (s *Store) SearchTerms(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"select distinct search_term from outlets where search_term != '' order by search_term")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, rows.Err()
}

type TermCount struct {
	SearchTerm string `json:"search_term"`
	Count      int    `json:"count"`
}

type Stats struct {
	TotalOutlets  int         `json:"total_outlets"`
	BySearchTerm  []TermCount `json:"outlets_by_search_term"`
	RecentOutlets int         `json:"recent_outlets"`
}

// recentLimit caps Stats.RecentOutlets.
const recentLimit = 5

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, "select count(*) from outlets").Scan(&st.TotalOutlets); err != nil {
		return st, err
	}

	rows, err := s.db.QueryContext(ctx,
		"select search_term, count(*) as n from outlets group by search_term order by n desc, search_term")
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.SearchTerm, &tc.Count); err != nil {
			return st, err
		}
		st.BySearchTerm = append(st.BySearchTerm, tc)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	st.RecentOutlets = min(st.TotalOutlets, recentLimit)
	return st, nil
}

// All returns every outlet ordered by id.
func (s *Store) All(ctx context.Context) ([]models.StoredOutlet, error) {
	rows, err := s.db.QueryContext(ctx, "select "+outletColumns+" from outlets order by id")
	if err != nil {
		return nil, err
	}
	return scanOutlets(rows)
}

func scanOutlets(rows *sql.Rows) ([]models.StoredOutlet, error) {
	defer rows.Close()

	var out []models.StoredOutlet
	for rows.Next() {
		var (
			o                             models.StoredOutlet
			lat, lng                      sql.NullFloat64
			embedding                     string
			scrapedAt, createdAt, updated int64
		)
		err := rows.Scan(
			&o.ID, &o.Name, &o.Address, &o.OperatingHours, &o.WazeLink, &lat, &lng,
			&o.Telephone, &o.Attribute, &o.SearchTerm, &embedding, &scrapedAt, &createdAt, &updated,
		)
		if err != nil {
			return nil, err
		}
		if lat.Valid {
			o.Latitude = &lat.Float64
		}
		if lng.Valid {
			o.Longitude = &lng.Float64
		}
		if o.Embedding, err = decodeVector(embedding); err != nil {
			return nil, fmt.Errorf("outlet %d: %w", o.ID, err)
		}
		o.ScrapedAt = time.Unix(scrapedAt, 0).UTC()
		o.CreatedAt = time.Unix(createdAt, 0).UTC()
		o.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func encodeVector(v []float32) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode embedding: %w", err)
	}
	return string(b), nil
}

func decodeVector(s string) ([]float32, error) {
	if s == "" {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return v, nil
}

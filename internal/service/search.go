package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"outletscraper/internal/openai"
	"outletscraper/internal/store"
)

// DefaultSearchLimit is the number of outlets handed to the chat model.
const DefaultSearchLimit = 5

// NoMatchResponse is the Ask reply when no outlet is relevant.
const NoMatchResponse = "I couldn't find any outlets relevant to your question."

// lexicalThreshold is the minimum Jaro-Winkler similarity for a fallback match.
const lexicalThreshold = 0.75

// Search ranks stored outlets against query. It embeds the query and runs a
// vector search; when no embedder is configured or embedding fails it ranks
// by string similarity over names and addresses instead.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]store.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, query)
		if err == nil {
			return s.repo.VectorSearch(ctx, vec, limit)
		}
		slog.WarnContext(ctx, "embedding query failed, using lexical search", slog.Any("error", err))
	}
	return s.lexicalSearch(ctx, query, limit)
}

func (s *Service) lexicalSearch(ctx context.Context, query string, limit int) ([]store.Match, error) {
	outlets, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var matches []store.Match
	for _, o := range outlets {
		score := similarity(q, o.Name, o.Address)
		if score < lexicalThreshold {
			continue
		}
		matches = append(matches, store.Match{StoredOutlet: o, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// similarity is the best Jaro-Winkler score of q against the name, the
// address and each comma separated address part. A substring hit scores 1.
func similarity(q, name, address string) float64 {
	candidates := []string{name, address}
	candidates = append(candidates, strings.Split(address, ",")...)

	best := 0.0
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if strings.Contains(c, q) {
			return 1
		}
		if score := matchr.JaroWinkler(q, c, false); score > best {
			best = score
		}
	}
	return best
}

// Answer is the reply to a natural language question.
type Answer struct {
	Response string        `json:"response"`
	Outlets  []store.Match `json:"outlets,omitempty"`
}

// Ask answers a question about outlets using the most relevant stored
// outlets as context for the chat model.
func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	if s.completer == nil {
		return Answer{}, ErrNoCompleter
	}
	matches, err := s.Search(ctx, question, DefaultSearchLimit)
	if err != nil {
		return Answer{}, err
	}
	if len(matches) == 0 {
		return Answer{Response: NoMatchResponse}, nil
	}

	reply, err := s.completer.Complete(ctx, buildContext(matches), "Here is my question: "+strings.TrimSpace(question))
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}
	return Answer{Response: reply, Outlets: matches}, nil
}

func buildContext(matches []store.Match) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant for finding McDonald's outlet information. ")
	sb.WriteString("Based on the following data, answer the user's question.\n\n")
	sb.WriteString("Relevant outlet information:\n")
	for i, m := range matches {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, openai.OutletText(m.Outlet))
	}
	return sb.String()
}

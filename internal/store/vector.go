package store

import (
	"context"
	"math"
	"sort"

	"outletscraper/internal/models"
)

// Match is an outlet ranked against a query vector.
type Match struct {
	models.StoredOutlet
	Score float64 `json:"score"`
}

// VectorSearch ranks every embedded outlet by cosine similarity to vector
// and returns the best limit matches. Outlets without an embedding, or with
// one of a different dimension, are skipped.
func (s *Store) VectorSearch(ctx context.Context, vector []float32, limit int) ([]Match, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, nil
	}
	outlets, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, o := range outlets {
		if len(o.Embedding) != len(vector) {
			continue
		}
		score, ok := cosine(vector, o.Embedding)
		if !ok {
			continue
		}
		matches = append(matches, Match{StoredOutlet: o, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func cosine(a, b []float32) (float64, bool) {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

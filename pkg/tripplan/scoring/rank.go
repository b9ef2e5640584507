package scoring

import (
	"context"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Ranked is one candidate with its score and 1-based position.
type Ranked struct {
	Candidate Candidate
	Score     float64
	Position  int
}

// Rank scores every candidate with s and orders them by descending score.
// Equal scores keep their input order, so ranking an unchanged set twice
// yields the same sequence. A NaN score is treated as the lowest.
func Rank(s Strategy, prefs Preferences, profile Profile, candidates []Candidate) []Ranked {
	out := make([]Ranked, len(candidates))
	for i, c := range candidates {
		score := s.Score(prefs, profile, c)
		if math.IsNaN(score) {
			score = math.Inf(-1)
		}
		out[i] = Ranked{Candidate: c, Score: score}
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}

// Comparison is the ranking produced by one strategy.
type Comparison struct {
	Strategy string
	Ranking  []Ranked
}

// Top returns the best ranked candidate, if any.
func (c Comparison) Top() (Ranked, bool) {
	if len(c.Ranking) == 0 {
		return Ranked{}, false
	}
	return c.Ranking[0], true
}

// Compare ranks the same candidates with every strategy concurrently and
// returns the rankings in strategy order. It stops early when ctx is
// cancelled.
func Compare(ctx context.Context, strategies []Strategy, prefs Preferences, profile Profile, candidates []Candidate) ([]Comparison, error) {
	out := make([]Comparison, len(strategies))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range strategies {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = Comparison{Strategy: s.Name(), Ranking: Rank(s, prefs, profile, slices.Clone(candidates))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

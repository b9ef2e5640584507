package tripplan

import (
	"context"
	"time"

	"github.com/randalmurphal/tripplan/pkg/tripplan/entity"
	"github.com/randalmurphal/tripplan/pkg/tripplan/event"
	"github.com/randalmurphal/tripplan/pkg/tripplan/scoring"
)

// Recommendation types carried by recommendation.generated events.
const (
	RecommendDestination = "destination"
	RecommendBudget      = "budget"
	RecommendComparison  = "comparison"
)

// Recommend ranks candidates for userID with the named recommendation
// strategy. The user's stored preferences and profile drive the scores;
// a user with none is scored neutrally.
func (p *Planner) Recommend(ctx context.Context, userID, strategy string, candidates []scoring.Candidate) ([]scoring.Ranked, error) {
	return p.rank(ctx, userID, strategy, scoring.Recommend, RecommendDestination, candidates)
}

// Estimate ranks candidates by estimated cost with the named estimation
// strategy, most expensive first.
func (p *Planner) Estimate(ctx context.Context, userID, strategy string, candidates []scoring.Candidate) ([]scoring.Ranked, error) {
	return p.rank(ctx, userID, strategy, scoring.Estimate, RecommendBudget, candidates)
}

// EstimateTrip estimates the cost of a stored trip for its owner.
func (p *Planner) EstimateTrip(tripID, strategy string) (float64, error) {
	trip, err := p.trip(tripID)
	if err != nil {
		return 0, err
	}
	s, err := p.strategies.Lookup(strategy, scoring.Estimate)
	if err != nil {
		return 0, err
	}
	prefs, profile := p.userInputs(trip.UserID)
	return s.Score(prefs, profile, scoring.TripCandidate(trip)), nil
}

func (p *Planner) rank(ctx context.Context, userID, id string, purpose scoring.Purpose, recType string, candidates []scoring.Candidate) (ranked []scoring.Ranked, err error) {
	s, err := p.strategies.Lookup(id, purpose)
	if err != nil {
		return nil, err
	}

	ctx, span := p.spans.StartRankingSpan(ctx, s.Name(), len(candidates))
	defer func() { p.spans.EndSpanWithError(span, err) }()

	start := time.Now()
	prefs, profile := p.userInputs(userID)
	ranked = scoring.Rank(s, prefs, profile, candidates)
	p.metrics.RecordRanking(ctx, s.Name(), len(candidates), time.Since(start))

	p.publishRecommendation(ctx, userID, recType, s.Name(), ranked)
	return ranked, nil
}

// Compare ranks candidates with several strategies of one purpose. With
// no ids every strategy registered for the purpose takes part.
func (p *Planner) Compare(ctx context.Context, userID string, purpose scoring.Purpose, ids []string, candidates []scoring.Candidate) (out []scoring.Comparison, err error) {
	var strategies []scoring.Strategy
	if len(ids) == 0 {
		strategies = p.strategies.All(purpose)
	}
	for _, id := range ids {
		s, err := p.strategies.Lookup(id, purpose)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}

	ctx, span := p.spans.StartRankingSpan(ctx, RecommendComparison, len(candidates))
	defer func() { p.spans.EndSpanWithError(span, err) }()

	start := time.Now()
	prefs, profile := p.userInputs(userID)
	out, err = scoring.Compare(ctx, strategies, prefs, profile, candidates)
	if err != nil {
		return nil, err
	}
	p.metrics.RecordRanking(ctx, RecommendComparison, len(candidates), time.Since(start))

	for _, c := range out {
		p.publishRecommendation(ctx, userID, RecommendComparison, c.Strategy, c.Ranking)
	}
	return out, nil
}

func (p *Planner) publishRecommendation(ctx context.Context, userID, recType, strategy string, ranked []scoring.Ranked) {
	payload := map[string]any{
		event.KeyUserID:     userID,
		event.KeyRecordType: recType,
		event.KeyStrategy:   strategy,
		event.KeyCount:      len(ranked),
	}
	if len(ranked) > 0 {
		payload["top"] = ranked[0].Candidate.Label()
		payload["top_score"] = ranked[0].Score
	}
	p.bus.Publish(ctx, event.New(event.RecommendationGenerated, "planner", payload, event.WithTimestamp(p.now())))
}

// userInputs loads the scoring inputs stored for userID.
func (p *Planner) userInputs(userID string) (scoring.Preferences, scoring.Profile) {
	if userID == "" {
		return scoring.Preferences{}, scoring.Profile{}
	}
	var prefs []*entity.Preference
	for _, e := range p.store.List(entity.KindPreference, func(e entity.Entity) bool {
		return e.(*entity.Preference).UserID == userID
	}) {
		prefs = append(prefs, e.(*entity.Preference))
	}

	var profile *entity.Profile
	if found := p.store.List(entity.KindProfile, func(e entity.Entity) bool {
		return e.(*entity.Profile).UserID == userID
	}); len(found) > 0 {
		profile = found[0].(*entity.Profile)
	}
	return scoring.FromEntities(prefs, profile)
}

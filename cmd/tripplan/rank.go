package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/tripplan/pkg/tripplan"
	"github.com/randalmurphal/tripplan/pkg/tripplan/scoring"
)

// scoreFunc ranks the scenario candidates for the seeded user.
type scoreFunc func(ctx context.Context, p *tripplan.Planner, userID string, candidates []scoring.Candidate) (any, error)

func newRankCmd(a *app) *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "rank <scenario.yaml>",
		Short: "Rank candidate destinations by how well they match the traveller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.score(cmd, args[0], func(ctx context.Context, p *tripplan.Planner, userID string, c []scoring.Candidate) (any, error) {
				ranked, err := p.Recommend(ctx, userID, strategy, c)
				if err != nil {
					return nil, err
				}
				return rankingView{Strategy: strategy, Ranking: ranked}, nil
			})
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "hybrid", "recommendation strategy")
	return cmd
}

func newEstimateCmd(a *app) *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "estimate <scenario.yaml>",
		Short: "Estimate the cost of each candidate trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.score(cmd, args[0], func(ctx context.Context, p *tripplan.Planner, userID string, c []scoring.Candidate) (any, error) {
				ranked, err := p.Estimate(ctx, userID, strategy, c)
				if err != nil {
					return nil, err
				}
				return rankingView{Strategy: strategy, Ranking: ranked, Money: true, Currency: a.settings.Budget.DefaultCurrency}, nil
			})
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "daily", "estimation strategy")
	return cmd
}

func newCompareCmd(a *app) *cobra.Command {
	var (
		purpose    string
		strategies []string
	)
	cmd := &cobra.Command{
		Use:   "compare <scenario.yaml>",
		Short: "Rank candidates with several strategies side by side",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.score(cmd, args[0], func(ctx context.Context, p *tripplan.Planner, userID string, c []scoring.Candidate) (any, error) {
				out, err := p.Compare(ctx, userID, scoring.Purpose(purpose), strategies, c)
				if err != nil {
					return nil, err
				}
				views := make(comparisonView, 0, len(out))
				for _, cmp := range out {
					views = append(views, rankingView{
						Strategy: cmp.Strategy,
						Ranking:  cmp.Ranking,
						Money:    purpose == string(scoring.Estimate),
						Currency: a.settings.Budget.DefaultCurrency,
					})
				}
				return views, nil
			})
		},
	}
	cmd.Flags().StringVarP(&purpose, "purpose", "p", string(scoring.Recommend), "recommend or estimate")
	cmd.Flags().StringSliceVarP(&strategies, "strategies", "s", nil, "strategies to compare (default: all)")
	return cmd
}

// score loads the scenario, seeds its traveller and prints what fn returns.
func (a *app) score(cmd *cobra.Command, path string, fn scoreFunc) error {
	sc, err := loadScenario(path)
	if err != nil {
		return err
	}
	p, err := a.planner()
	if err != nil {
		return err
	}
	defer p.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	userID, err := sc.seed(ctx, p)
	if err != nil {
		return err
	}
	result, err := fn(ctx, p, userID, sc.Candidates)
	if err != nil {
		return err
	}
	return a.print(cmd.OutOrStdout(), result)
}

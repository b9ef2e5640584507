package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/tripplan/pkg/tripplan/scoring"
)

type strategiesView map[scoring.Purpose][]string

func (v strategiesView) writeText(w io.Writer) error {
	for _, p := range []scoring.Purpose{scoring.Recommend, scoring.Estimate} {
		if _, err := fmt.Fprintf(w, "%s: %s\n", p, strings.Join(v[p], ", ")); err != nil {
			return err
		}
	}
	return nil
}

func newStrategiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the registered scoring strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := scoring.DefaultRegistry(a.settings)
			return a.print(cmd.OutOrStdout(), strategiesView{
				scoring.Recommend: reg.IDs(scoring.Recommend),
				scoring.Estimate:  reg.IDs(scoring.Estimate),
			})
		},
	}
}

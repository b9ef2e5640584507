package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/randalmurphal/tripplan/pkg/tripplan/scoring"
)

// textWriter is implemented by results with a human readable form.
type textWriter interface {
	writeText(w io.Writer) error
}

func (a *app) print(w io.Writer, v any) error {
	if a.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	if tw, ok := v.(textWriter); ok {
		return tw.writeText(w)
	}
	_, err := fmt.Fprintln(w, v)
	return err
}

type rankingView struct {
	Strategy string           `json:"strategy"`
	Ranking  []scoring.Ranked `json:"ranking"`
	Money    bool             `json:"-"`
	Currency string           `json:"currency,omitempty"`
}

func (v rankingView) writeText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", v.Strategy)
	for _, r := range v.Ranking {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", humanize.Ordinal(r.Position), r.Candidate.Label(), v.format(r.Score))
	}
	return tw.Flush()
}

func (v rankingView) format(score float64) string {
	if v.Money {
		return money(score, v.Currency)
	}
	return fmt.Sprintf("%.1f", score)
}

type comparisonView []rankingView

func (v comparisonView) writeText(w io.Writer) error {
	for i, r := range v {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := r.writeText(w); err != nil {
			return err
		}
	}
	return nil
}

// money formats amount with thousands separators and two decimals.
func money(amount float64, currency string) string {
	return strings.TrimSpace(humanize.FormatFloat("#,###.##", amount) + " " + currency)
}

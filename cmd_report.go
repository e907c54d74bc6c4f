package main

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"portfolio-engine/internal/app"
	"portfolio-engine/internal/filter"
	"portfolio-engine/internal/interaction"
	"portfolio-engine/internal/model"
)

var (
	reportProfessions       []string
	reportIncome            []string
	reportPropensityLife    []string
	reportPropensityNonLife []string
	reportAgeMin            int
	reportAgeMax            int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the dashboard for a filter as JSON",
	Long: `Loads the collections once, applies the given selections and prints
the resulting dashboard.

Examples:
  portfolio-engine report --profession Eng --income 0-20000
  portfolio-engine report --age-min 30 --age-max 50 --propensity-life "0.81 - 1"`,
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringArrayVar(&reportProfessions, "profession", nil, "profession to select (repeatable)")
	f.StringArrayVar(&reportIncome, "income", nil, "income bin label to select (repeatable)")
	f.StringArrayVar(&reportPropensityLife, "propensity-life", nil, "life propensity bin label (repeatable)")
	f.StringArrayVar(&reportPropensityNonLife, "propensity-non-life", nil, "non-life propensity bin label (repeatable)")
	f.IntVar(&reportAgeMin, "age-min", -1, "minimum age, inclusive")
	f.IntVar(&reportAgeMax, "age-max", -1, "maximum age, inclusive")
}

type report struct {
	Outcome   string          `json:"outcome"`
	Messages  []model.Message `json:"messages"`
	State     filter.State    `json:"state"`
	Dashboard model.Dashboard `json:"dashboard"`
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Load(ctx).Err(); err != nil {
		return fmt.Errorf("load collections: %w", err)
	}

	snap := a.Store.Snapshot()
	events, err := reportEvents(snap.Clients)
	if err != nil {
		return err
	}
	res := interaction.NewController(a.Engine).Process(ctx, snap, filter.Initial(snap.Clients), events)

	out, err := json.MarshalIndent(report{
		Outcome:   res.Outcome,
		Messages:  res.Messages,
		State:     res.State,
		Dashboard: res.Dashboard,
	}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

// reportEvents turns the flags into the events a user would have sent.
func reportEvents(clients []model.Client) ([]model.Event, error) {
	var events []model.Event
	add := func(f model.Facet, values []string) {
		for _, v := range values {
			events = append(events, model.Event{Type: model.EventToggle, Facet: f, Value: v})
		}
	}
	add(model.FacetProfession, reportProfessions)
	add(model.FacetIncome, reportIncome)
	add(model.FacetPropensityLife, reportPropensityLife)
	add(model.FacetPropensityNonLife, reportPropensityNonLife)

	if reportAgeMin < 0 && reportAgeMax < 0 {
		return events, nil
	}
	observed, ok := filter.ObservedAgeRange(clients)
	lo, hi := reportAgeMin, reportAgeMax
	if lo < 0 {
		if !ok {
			return nil, fmt.Errorf("--age-min is required when no client has a known age")
		}
		lo = observed.Min
	}
	if hi < 0 {
		if !ok {
			return nil, fmt.Errorf("--age-max is required when no client has a known age")
		}
		hi = observed.Max
	}
	return append(events, model.Event{Type: model.EventSetAgeRange, Min: &lo, Max: &hi}), nil
}

package main

import (
	"math"

	"github.com/couchcryptid/river-stage-predictor/internal/adapter/csvtable"
	"github.com/couchcryptid/river-stage-predictor/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	FlagDateTime       = "datetime"
	FlagRain           = "rain"
	FlagSeason         = "season"
	FlagAntecedentRain = "antecedent-rain"
	FlagCondition      = "condition"
	FlagIntensity      = "intensity"
	FlagPeakRunoff     = "peak-runoff"
	FlagTimeToPeak     = "time-to-peak"
)

type numericFlag struct {
	name  string
	usage string
	field func(o *domain.Observation) *float64
}

var numericFlags = []numericFlag{
	{FlagRain, "storm rainfall in inches", func(o *domain.Observation) *float64 { return &o.RainIn }},
	{FlagAntecedentRain, "antecedent rainfall in inches", func(o *domain.Observation) *float64 { return &o.AntecedentRainIn }},
	{FlagIntensity, "rain intensity in inches per hour", func(o *domain.Observation) *float64 { return &o.RainIntensityInHr }},
	{FlagPeakRunoff, "peak runoff", func(o *domain.Observation) *float64 { return &o.PeakRunoff }},
	{FlagTimeToPeak, "time to peak in hours", func(o *domain.Observation) *float64 { return &o.TimeToPeak }},
}

func newObserveCmd(root *rootOptions) *cobra.Command {
	var obs domain.Observation

	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Predict the stage for one manually entered observation",
		Long: "Predicts a single observation. An omitted --datetime means January; " +
			"an omitted numeric flag is missing and rejects the observation.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			observation := observationFromFlags(cmd.Flags(), obs)

			p, err := root.newPipeline(cmd)
			if err != nil {
				return err
			}
			batch, err := p.PredictOne(cmd.Context(), observation)
			if err != nil {
				return err
			}
			return csvtable.WritePredictions(cmd.OutOrStdout(), batch.Predictions)
		},
	}

	cmd.Flags().StringVar(&obs.DateTime, FlagDateTime, "", "observation time, day-first when ambiguous")
	cmd.Flags().StringVar(&obs.Season, FlagSeason, "", `season label, "Dormant Season" or "Growing Season"`)
	cmd.Flags().StringVar(&obs.AntecedentRainCondition, FlagCondition, "", `antecedent moisture condition, e.g. "AMC II (Average)"`)
	for _, f := range numericFlags {
		cmd.Flags().Float64(f.name, 0, f.usage)
	}
	return cmd
}

// observationFromFlags fills the numeric fields from flags the user set and
// leaves the rest missing.
func observationFromFlags(flags *pflag.FlagSet, labels domain.Observation) domain.Observation {
	obs := labels
	for _, f := range numericFlags {
		v := math.NaN()
		if flags.Changed(f.name) {
			v, _ = flags.GetFloat64(f.name)
		}
		*f.field(&obs) = v
	}
	return obs
}

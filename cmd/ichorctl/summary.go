package main

import (
	"fmt"
	"io"
	"time"

	"ichor/ichor/defs"
	"ichor/ichor/pkg/stats"
	"ichor/ichor/pkg/units"

	"github.com/spf13/cobra"
)

func newSummaryCmd(root *rootOptions) *cobra.Command {
	flags := &analysisFlags{}
	gcfg := defs.DefaultConfig().Glucose

	cmd := &cobra.Command{
		Use:   "summary [file]",
		Short: "Print summary statistics, time in range and MAGE",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, unit, err := flags.options()
			if err != nil {
				return err
			}
			if err := gcfg.Validate(); err != nil {
				return err
			}

			in, closeFn, err := openInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			defer closeFn()

			readings, err := readReadings(in, unit, root.logger)
			if err != nil {
				return err
			}

			report := stats.Variability(toTransformed(readings, unit), gcfg, opts)
			printSummary(cmd.OutOrStdout(), report, unit)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().Float64Var(&gcfg.Low, "low", gcfg.Low, "lower bound of the target range (mmol/L)")
	cmd.Flags().Float64Var(&gcfg.High, "high", gcfg.High, "upper bound of the target range (mmol/L)")
	cmd.Flags().Float64Var(&gcfg.VeryLow, "very-low", gcfg.VeryLow, "level 2 hypoglycemia bound (mmol/L)")
	cmd.Flags().Float64Var(&gcfg.VeryHigh, "very-high", gcfg.VeryHigh, "level 2 hyperglycemia bound (mmol/L)")
	return cmd
}

// toTransformed stores readings in mmol/L at a nominal five minute cadence.
func toTransformed(readings []float64, unit units.Unit) []defs.TransformedReading {
	start := time.Unix(0, 0).UTC()
	trs := make([]defs.TransformedReading, len(readings))
	for i, r := range readings {
		mmol := r
		if unit == units.MgDL {
			mmol = units.MgdlToMmol(r)
		}
		trs[i] = defs.TransformedReading{Time: start.Add(time.Duration(i*5) * time.Minute), Mmol: mmol}
	}
	return trs
}

func printSummary(w io.Writer, report defs.VariabilityReport, unit units.Unit) {
	inUnit := func(mmol float64) float64 {
		if unit == units.MgDL {
			return units.MmolToMgdl(mmol)
		}
		return mmol
	}
	ss := report.Summary

	fmt.Fprintf(w, "readings: %d\n", ss.Count)
	if ss.Count == 0 {
		return
	}
	fmt.Fprintf(w, "average: %.2f %s\n", inUnit(ss.Average), unit)
	fmt.Fprintf(w, "sd: %.2f %s\n", inUnit(ss.Deviation), unit)
	fmt.Fprintf(w, "cv: %.1f%%\n", ss.CV)
	fmt.Fprintf(w, "gmi: %.1f%% (%s)\n", ss.GMI, ss.GMICategory)
	fmt.Fprintf(w, "estimated a1c: %.1f%%\n", ss.EstimatedA1C)
	fmt.Fprintf(w, "percentiles (10/25/50/75/90): %.1f/%.1f/%.1f/%.1f/%.1f\n",
		inUnit(ss.Percentiles.P10), inUnit(ss.Percentiles.P25), inUnit(ss.Percentiles.P50),
		inUnit(ss.Percentiles.P75), inUnit(ss.Percentiles.P90))
	fmt.Fprintf(w, "time in range: below %.1f%%, in %.1f%%, above %.1f%%\n",
		100*report.Range.BelowRange, 100*report.Range.InRange, 100*report.Range.AboveRange)
	er := report.Enhanced
	fmt.Fprintf(w, "bands: very low %.1f%%, low %.1f%%, in %.1f%%, high %.1f%%, very high %.1f%% (%s)\n",
		100*er.VeryLow, 100*er.Low, 100*er.InRange, 100*er.High, 100*er.VeryHigh, er.Assessment)

	if report.Mage.Value == nil {
		fmt.Fprintf(w, "mage: NaN (%s)\n", report.Mage.Outcome)
		return
	}
	fmt.Fprintf(w, "mage: %.2f %s (%s)\n", inUnit(*report.Mage.Value), unit, report.Mage.Direction)
}

package main

import (
	"fmt"
	"io"

	"ichor/ichor/pkg/mage"
	"ichor/ichor/pkg/units"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type analysisFlags struct {
	direction   string
	shortWindow int
	longWindow  int
	unit        string
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.direction, "direction", "auto", "excursion direction (auto, ascending, descending)")
	cmd.Flags().IntVar(&f.shortWindow, "short-window", 0, "short moving average window, 0 derives it from the series")
	cmd.Flags().IntVar(&f.longWindow, "long-window", 0, "long moving average window, 0 derives it from the series")
	cmd.Flags().StringVar(&f.unit, "unit", string(units.MgDL), "unit of the readings (mg/dL, mmol/L)")
}

func (f *analysisFlags) options() (mage.Options, units.Unit, error) {
	dir, err := mage.ParseDirection(f.direction)
	if err != nil {
		return mage.Options{}, "", err
	}
	if f.shortWindow < 0 || f.longWindow < 0 {
		return mage.Options{}, "", fmt.Errorf("windows must not be negative")
	}
	unit, err := units.ParseUnit(f.unit)
	if err != nil {
		return mage.Options{}, "", err
	}
	return mage.Options{ShortWindow: f.shortWindow, LongWindow: f.longWindow, Direction: dir}, unit, nil
}

func newMageCmd(root *rootOptions) *cobra.Command {
	flags := &analysisFlags{}
	verbose := false

	cmd := &cobra.Command{
		Use:   "mage [file]",
		Short: "Compute the mean amplitude of glycemic excursions",
		Long:  `Reads one reading per line (or the first CSV column) from file, or stdin when file is omitted or "-", and prints MAGE in the same unit. NaN is printed when it cannot be computed.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, unit, err := flags.options()
			if err != nil {
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

			res := mage.Compute(readings, opts)
			root.logger.Debug("computed mage",
				zap.Stringer("outcome", res.Outcome),
				zap.Bool("fallback", res.Fallback),
				zap.Int("shortWindow", res.ShortWindow),
				zap.Int("longWindow", res.LongWindow),
			)

			printMage(cmd.OutOrStdout(), res, unit, verbose)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print how the value was obtained")
	return cmd
}

func printMage(w io.Writer, res mage.Result, unit units.Unit, verbose bool) {
	if !res.Ok() {
		fmt.Fprintf(w, "NaN (%s)\n", res.Outcome)
		return
	}
	fmt.Fprintf(w, "%.2f %s\n", res.Value, unit)
	if !verbose {
		return
	}

	method := "moving average crossings"
	if res.Fallback {
		method = "windowed extremes"
	}
	fmt.Fprintf(w, "method: %s\n", method)
	fmt.Fprintf(w, "sd: %.2f\n", res.SD)
	fmt.Fprintf(w, "excursions: %d\n", res.Excursions)
	fmt.Fprintf(w, "windows: %d/%d\n", res.ShortWindow, res.LongWindow)
}

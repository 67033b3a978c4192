package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	debug  bool
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:           "ichorctl",
		Short:         "Offline glycemic variability analysis",
		Long:          `ichorctl computes MAGE and summary statistics over glucose readings read from a file or stdin, and writes starter configs for the ichor service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.debug {
				return nil
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
	}
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newMageCmd(opts),
		newSummaryCmd(opts),
		newConfigCmd(),
	)
	return cmd
}

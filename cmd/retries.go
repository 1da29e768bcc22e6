package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var retriesLimit int

var retriesCmd = &cobra.Command{
	Use:   "retries",
	Short: "Sweep retry-scheduled items whose delay has passed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		claimed, err := env.Runner.SweepRetries(ctx, retriesLimit)
		if err != nil {
			return err
		}

		zap.L().Info("retry sweep complete", zap.Int("claimed", claimed))
		return nil
	},
}

func init() {
	retriesCmd.Flags().IntVar(&retriesLimit, "limit", 0, "max items to claim (0 = page size)")
	rootCmd.AddCommand(retriesCmd)
}

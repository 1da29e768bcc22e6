package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var repairOlderThan time.Duration

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Requeue items stuck in a terminal failure status",
	Long:  "Resets failed and error items that have sat terminal for at least --older-than back to pending, preserving their retry count. Use after fixing the underlying outage; the next batch picks them up.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("repair"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rearmed, err := st.RearmFailed(ctx, repairOlderThan)
		if err != nil {
			return err
		}

		zap.L().Info("repair complete",
			zap.Duration("older_than", repairOlderThan),
			zap.Int("rearmed", rearmed),
		)
		return nil
	},
}

func init() {
	repairCmd.Flags().DurationVar(&repairOlderThan, "older-than", time.Hour, "minimum time an item must have been terminal")
	rootCmd.AddCommand(repairCmd)
}

package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	batchID   string
	batchMax  int
	batchWait bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Claim pending items and run them through the pipeline",
	Long:  "Claims pending items under a batch ID and processes them in concurrent chunks. The first chunks run inline; the remainder drains in the background unless --wait is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Pipeline.WarmCache(ctx); err != nil {
			zap.L().Warn("prompt cache warmup failed", zap.Error(err))
		}

		report, err := env.Runner.RunBatch(ctx, batchID, batchMax)
		if err != nil {
			return err
		}

		if batchWait {
			env.Runner.Wait()
		}

		return printJSON(report)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchID, "id", "", "batch ID (default: random UUID)")
	batchCmd.Flags().IntVar(&batchMax, "max", 0, "max items to claim (0 = no cap)")
	batchCmd.Flags().BoolVar(&batchWait, "wait", false, "block until backgrounded chunks drain")
	rootCmd.AddCommand(batchCmd)
}

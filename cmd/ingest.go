package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/talentsignal/signal-cli/internal/ingest"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load scraped posts from a JSON or CSV export",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		items, err := ingest.ReadItems(ingestFile)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return eris.Errorf("no usable posts in %s", ingestFile)
		}

		inserted, err := st.InsertItems(ctx, items)
		if err != nil {
			return err
		}

		zap.L().Info("ingest complete",
			zap.String("file", ingestFile),
			zap.Int("read", len(items)),
			zap.Int("inserted", inserted),
			zap.Int("already_known", len(items)-inserted),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "path to a .json or .csv posts export (required)")
	ingestCmd.MarkFlagRequired("file") //nolint:errcheck
	rootCmd.AddCommand(ingestCmd)
}

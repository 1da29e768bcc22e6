package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/talentsignal/signal-cli/internal/model"
)

var processByURN bool

var processCmd = &cobra.Command{
	Use:   "process <item-id>",
	Short: "Run one item through the full pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var result *model.ProcessingResult
		if processByURN {
			item, err := env.Store.GetItemByURN(ctx, args[0])
			if err != nil {
				return err
			}
			if item == nil {
				return eris.Errorf("item not found: %s", args[0])
			}
			result, err = env.Pipeline.Process(ctx, item)
			if err != nil {
				return err
			}
		} else {
			result, err = env.Pipeline.ProcessItem(ctx, args[0])
			if err != nil {
				return err
			}
		}

		return printJSON(result)
	},
}

func init() {
	processCmd.Flags().BoolVar(&processByURN, "urn", false, "treat the argument as a source URN instead of an item ID")
	rootCmd.AddCommand(processCmd)
}

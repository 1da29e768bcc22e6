package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/store"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Inspect ingested items",
}

// -- items list --

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		batch, _ := cmd.Flags().GetString("batch")
		limit, _ := cmd.Flags().GetInt("limit")

		items, err := st.ListItems(ctx, store.ItemFilter{
			Status:  model.ProcessingStatus(status),
			BatchID: batch,
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "items list")
		}

		if len(items) == 0 {
			fmt.Fprintln(os.Stderr, "No items found.")
			return nil
		}

		formatItemsList(os.Stdout, items)
		return nil
	},
}

// -- items show --

var itemsShowCmd = &cobra.Command{
	Use:   "show <item-id>",
	Short: "Show full details of an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		item, err := st.GetItem(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "items show")
		}
		if item == nil {
			return eris.Errorf("item not found: %s", args[0])
		}

		return printJSON(item)
	},
}

// formatItemsList writes a tabular list of items to w.
func formatItemsList(out io.Writer, items []model.Item) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tURN\tSTATUS\tCATEGORY\tRETRIES\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t---\t------\t--------\t-------\t-------")

	for _, it := range items {
		category := it.Stage3Category
		if category == "" {
			category = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			it.ID,
			it.URN,
			it.Status,
			category,
			it.RetryCount,
			it.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func init() {
	itemsListCmd.Flags().String("status", "", "filter by processing status (pending, completed, failed, ...)")
	itemsListCmd.Flags().String("batch", "", "filter by batch ID")
	itemsListCmd.Flags().Int("limit", 50, "max number of items to display")

	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsShowCmd)
	rootCmd.AddCommand(itemsCmd)
}

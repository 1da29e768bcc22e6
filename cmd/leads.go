package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/internal/store"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect the lead registry",
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		category, _ := cmd.Flags().GetString("category")
		excludeVendors, _ := cmd.Flags().GetBool("exclude-vendors")
		limit, _ := cmd.Flags().GetInt("limit")

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Category:       category,
			ExcludeVendors: excludeVendors,
			Limit:          limit,
		})
		if err != nil {
			return eris.Wrap(err, "leads list")
		}

		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}

		formatLeadsList(os.Stdout, leads)
		return nil
	},
}

// -- leads show --

var leadsShowCmd = &cobra.Command{
	Use:   "show <lead-id>",
	Short: "Show full details of a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lead, err := st.GetLead(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "leads show")
		}
		if lead == nil {
			return eris.Errorf("lead not found: %s", args[0])
		}

		return printJSON(lead)
	},
}

// formatLeadsList writes a tabular list of leads to w.
func formatLeadsList(out io.Writer, leads []model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMPLOYER\tCATEGORY\tROLES\tFLAGS\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t----\t--------\t--------\t-----\t-----\t-------")

	for _, l := range leads {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID,
			orDash(l.Name),
			orDash(l.EmployerName),
			orDash(l.Category),
			orDash(strings.Join(l.RoleTitles, ", ")),
			orDash(leadFlags(l)),
			l.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func leadFlags(l model.Lead) string {
	var flags []string
	if l.ClientMatch {
		flags = append(flags, "client")
	}
	if l.VendorMatch {
		flags = append(flags, "vendor")
	}
	if l.LastContactedAt != nil {
		flags = append(flags, "contacted")
	}
	return strings.Join(flags, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	leadsListCmd.Flags().String("category", "", "filter by hiring category")
	leadsListCmd.Flags().Bool("exclude-vendors", false, "drop vendor-flagged leads (the outreach view)")
	leadsListCmd.Flags().Int("limit", 50, "max number of leads to display")

	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsShowCmd)
	rootCmd.AddCommand(leadsCmd)
}

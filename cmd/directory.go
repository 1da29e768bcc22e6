package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/talentsignal/signal-cli/internal/ingest"
	"github.com/talentsignal/signal-cli/internal/model"
	"github.com/talentsignal/signal-cli/pkg/salesforce"
)

var directoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Manage the client/vendor directory",
	Long:  "Imports directory organizations from files or syncs them from Salesforce Accounts. The pipeline matches enriched employers against this directory to suppress outreach for clients and flag vendor-sourced leads.",
}

// -- directory import --

var (
	directoryImportFile string
	directoryImportKind string
)

var directoryImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import organizations from a CSV file or xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("directory"); err != nil {
			return err
		}

		kind, err := parseOrgKind(directoryImportKind)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		orgs, err := ingest.ReadDirectory(directoryImportFile, kind)
		if err != nil {
			return err
		}
		if len(orgs) == 0 {
			return eris.Errorf("no usable organizations in %s", directoryImportFile)
		}

		upserted, err := st.UpsertDirectoryOrgs(ctx, orgs)
		if err != nil {
			return err
		}

		zap.L().Info("directory import complete",
			zap.String("file", directoryImportFile),
			zap.String("kind", string(kind)),
			zap.Int("read", len(orgs)),
			zap.Int("upserted", upserted),
		)
		return nil
	},
}

// -- directory sync --

var directorySyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync organizations from Salesforce Accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("directory"); err != nil {
			return err
		}

		sf, err := initSalesforce()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		total := 0
		for accountType, kind := range map[string]model.OrgKind{
			"Client": model.OrgKindClient,
			"Vendor": model.OrgKindVendor,
		} {
			accounts, err := salesforce.FetchAccountsByType(ctx, sf, accountType)
			if err != nil {
				return err
			}

			orgs := make([]model.DirectoryOrg, 0, len(accounts))
			for _, acct := range accounts {
				if acct.Name == "" {
					continue
				}
				orgs = append(orgs, model.DirectoryOrg{
					Name:       acct.Name,
					EmployerID: acct.AccountID,
					Kind:       kind,
				})
			}
			if len(orgs) == 0 {
				zap.L().Warn("no accounts found", zap.String("type", accountType))
				continue
			}

			upserted, err := st.UpsertDirectoryOrgs(ctx, orgs)
			if err != nil {
				return err
			}
			total += upserted

			zap.L().Info("directory partition synced",
				zap.String("type", accountType),
				zap.Int("accounts", len(accounts)),
				zap.Int("upserted", upserted),
			)
		}

		zap.L().Info("directory sync complete", zap.Int("upserted", total))
		return nil
	},
}

// -- directory list --

var directoryListKind string

var directoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List directory organizations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		kind, err := parseOrgKind(directoryListKind)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		orgs, err := st.ListDirectoryOrgs(ctx, kind)
		if err != nil {
			return eris.Wrap(err, "directory list")
		}

		if len(orgs) == 0 {
			fmt.Fprintln(os.Stderr, "No organizations found.")
			return nil
		}

		formatDirectoryList(os.Stdout, orgs)
		return nil
	},
}

func parseOrgKind(s string) (model.OrgKind, error) {
	switch model.OrgKind(s) {
	case model.OrgKindClient, model.OrgKindVendor:
		return model.OrgKind(s), nil
	default:
		return "", eris.Errorf("invalid kind %q (want client or vendor)", s)
	}
}

// formatDirectoryList writes a tabular list of organizations to w.
func formatDirectoryList(out io.Writer, orgs []model.DirectoryOrg) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tEMPLOYER_ID\tKIND\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t----\t-----------\t----\t-------")

	for _, org := range orgs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			org.ID,
			org.Name,
			orDash(org.EmployerID),
			org.Kind,
			org.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func init() {
	directoryImportCmd.Flags().StringVar(&directoryImportFile, "file", "", "path to a .csv or .xlsx directory file (required)")
	directoryImportCmd.Flags().StringVar(&directoryImportKind, "kind", "", "organization kind: client or vendor (required)")
	directoryImportCmd.MarkFlagRequired("file") //nolint:errcheck
	directoryImportCmd.MarkFlagRequired("kind") //nolint:errcheck

	directoryListCmd.Flags().StringVar(&directoryListKind, "kind", "client", "organization kind: client or vendor")

	directoryCmd.AddCommand(directoryImportCmd)
	directoryCmd.AddCommand(directorySyncCmd)
	directoryCmd.AddCommand(directoryListCmd)
	rootCmd.AddCommand(directoryCmd)
}

package cli

import (
	"fmt"
	"text/tabwriter"

	"resume_rewards/internal/catalog"
	"resume_rewards/internal/config"

	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the template tier catalog",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List templates with tier and prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if path == "" {
				cfg, err := config.FromEnv()
				if err != nil {
					return err
				}
				path = cfg.CatalogPath
			}
			cat, err := loadCatalog(path)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTIER\tUNLOCK\tDOWNLOAD")
			for _, e := range cat.Entries() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", e.ID, e.Name, e.Tier, e.UnlockCost, e.DownloadCost)
			}
			fmt.Fprintf(w, "(unknown)\t-\t%s\t0\t%d\n", catalog.TierFree, cat.FallbackDownloadCost())
			return w.Flush()
		},
	}
	list.Flags().StringP("file", "f", "", "Catalog TOML file (default: CATALOG_PATH or built-in)")
	cmd.AddCommand(list)
	return cmd
}

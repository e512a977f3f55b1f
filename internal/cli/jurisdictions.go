package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deedscope/deedscope/internal/jurisdiction"
)

// jurisdictionsCmd represents the jurisdictions command
var jurisdictionsCmd = &cobra.Command{
	Use:   "jurisdictions",
	Short: "List the jurisdictions in the built-in catalog",
	Long: `List every jurisdiction Deedscope knows how to search directly,
with its recorder portal. Addresses outside the catalog are resolved by
geocoding and handled with web search only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := jurisdiction.DefaultCatalog()
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "JURISDICTION\tSTATE\tRECORDER PORTAL")
		for _, rec := range catalog.Records() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Name, rec.State, rec.RecorderURL)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(jurisdictionsCmd)
}

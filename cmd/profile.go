package cmd

import (
	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
	"github.com/KaramelBytes/dashloom-cli/internal/ingest"
	"github.com/KaramelBytes/dashloom-cli/internal/render"
	"github.com/spf13/cobra"
)

var profileFormat string

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Show the inferred type and cardinality of every column",
	Example: `  dashloom profile sales.csv
  dashloom profile sales.xlsx --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := render.ParseFormat(profileFormat)
		if err != nil {
			return err
		}
		ds, err := ingest.LoadFile(args[0])
		if err != nil {
			return err
		}
		return render.Profile(cmd.OutOrStdout(), ds.Name, ds.Len(), dataset.ProfileRows(ds.Rows), f)
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVar(&profileFormat, "format", "table", "output format: table|markdown|json")
}

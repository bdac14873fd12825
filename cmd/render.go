package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/dashloom-cli/internal/dashboard"
	"github.com/KaramelBytes/dashloom-cli/internal/render"
	"github.com/spf13/cobra"
)

var (
	renderSchemaPath string
	renderFilters    []string
	renderAggs       []string
	renderDrills     []string
	renderHover      string
	renderFormat     string
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Compute the dashboard a schema describes over a data file",
	Example: `  dashloom render sales.csv --schema sales.dashboard.json
  dashloom render sales.csv --schema sales.yaml --filter region=West --agg 0=avg
  dashloom render sales.csv --schema sales.yaml --drill 0=East --hover kpi:0 --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if renderSchemaPath == "" {
			return fmt.Errorf("--schema is required")
		}
		f, err := render.ParseFormat(renderFormat)
		if err != nil {
			return err
		}
		// Status lines go to stderr so json/markdown output stays clean.
		status := cmd.ErrOrStderr()
		s, err := openSession(status, args[0], renderSchemaPath)
		if err != nil {
			return err
		}
		if err := applyRenderFlags(status, s); err != nil {
			return err
		}
		return render.View(cmd.OutOrStdout(), s.View(), f)
	},
}

// openSession loads the data file and schema and starts an interaction session.
func openSession(w io.Writer, dataPath, schemaPath string) (*dashboard.Session, error) {
	ds, err := loadDataset(w, dataPath)
	if err != nil {
		return nil, err
	}
	sch, err := loadSchemaFile(w, schemaPath)
	if err != nil {
		return nil, err
	}
	return dashboard.New(ds, sch, dashboard.WithLogger(slog.Default()))
}

// applyRenderFlags replays --filter, --agg, --drill and --hover in that order.
func applyRenderFlags(w io.Writer, s *dashboard.Session) error {
	var actions [][]string
	for _, f := range renderFilters {
		actions = append(actions, []string{"filter", f})
	}
	for _, a := range renderAggs {
		i, v, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("invalid --agg %q (want <chart>=<sum|avg|count>)", a)
		}
		actions = append(actions, []string{"agg", i, v})
	}
	for _, d := range renderDrills {
		i, v, ok := strings.Cut(d, "=")
		if !ok {
			return fmt.Errorf("invalid --drill %q (want <chart>=<category>)", d)
		}
		actions = append(actions, []string{"drill", i, v})
	}
	if renderHover != "" {
		actions = append(actions, []string{"hover", renderHover})
	}
	for _, a := range actions {
		msg, err := execAction(s, a[0], a[1:])
		if errors.Is(err, errCannotDrill) {
			fmt.Fprintf(w, "⚠ Warning: %v\n", err)
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", a[0], err)
		}
		slog.Debug("render action", "action", a[0], "result", msg)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderSchemaPath, "schema", "s", "", "dashboard schema file (.json or .yaml)")
	renderCmd.Flags().StringArrayVar(&renderFilters, "filter", nil, "filter as <column|id>=<value> (repeatable)")
	renderCmd.Flags().StringArrayVar(&renderAggs, "agg", nil, "chart aggregation as <chart>=<sum|avg|count> (repeatable)")
	renderCmd.Flags().StringArrayVar(&renderDrills, "drill", nil, "drill a chart as <chart>=<category> (repeatable)")
	renderCmd.Flags().StringVar(&renderHover, "hover", "", "tooltip target: kpi:<i>, x:<chart> or metric:<chart>")
	renderCmd.Flags().StringVar(&renderFormat, "format", "table", "output format: table|markdown|json")
}

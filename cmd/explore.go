package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/dashloom-cli/internal/config"
	"github.com/KaramelBytes/dashloom-cli/internal/dashboard"
	"github.com/KaramelBytes/dashloom-cli/internal/render"
)

var (
	exploreSchemaPath string
	exploreFormat     string
)

var exploreCmd = &cobra.Command{
	Use:   "explore <file>",
	Short: "Interactively filter, drill down and inspect a dashboard",
	Example: `  dashloom explore sales.csv --schema sales.dashboard.json
  dashloom explore sales.csv -s sales.yaml --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exploreSchemaPath == "" {
			return fmt.Errorf("--schema is required")
		}
		f, err := render.ParseFormat(exploreFormat)
		if err != nil {
			return err
		}
		r := &repl{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), format: f, autoShow: true}
		if err := r.load(args[0], exploreSchemaPath); err != nil {
			return err
		}
		return r.run()
	},
}

// repl drives a dashboard session from typed commands.
type repl struct {
	out, errOut io.Writer
	format      render.Format
	autoShow    bool

	session    *dashboard.Session
	dataPath   string
	schemaPath string

	// rlConfig is the live readline configuration; its completer follows the loaded schema.
	rlConfig *readline.Config
}

func (r *repl) run() error {
	historyFile := ""
	if dir, err := cfgpkg.Dir(); err == nil {
		historyFile = filepath.Join(dir, "explore_history")
	}
	r.rlConfig = &readline.Config{
		Prompt:          "dashloom> ",
		HistoryFile:     historyFile,
		AutoComplete:    r.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	}
	rl, err := readline.NewEx(r.rlConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(r.out, "Dashloom explorer (%s, schema %s, session %s)\n", r.dataPath, r.schemaPath, r.session.ID())
	_, _ = fmt.Fprintln(r.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(r.out)
	r.show()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if r.handle(line) {
			break
		}
	}
	return nil
}

// handle executes one input line and reports whether the REPL should exit.
func (r *repl) handle(line string) bool {
	line = strings.TrimSpace(line)
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	verb := strings.ToLower(parts[0])
	switch verb {
	case ".quit", ".exit", "quit", "exit":
		return true
	case ".help", "help":
		printExploreHelp(r.out)
	case "show":
		r.show()
	case ".format":
		if len(parts) != 2 {
			r.errorf("Usage: .format <table|markdown|json>")
			break
		}
		f, err := render.ParseFormat(parts[1])
		if err != nil {
			r.errorf("Error: %v", err)
			break
		}
		r.format = f
	case ".auto":
		r.autoShow = !r.autoShow
		_, _ = fmt.Fprintf(r.out, "auto show: %v\n", r.autoShow)
	case "load":
		// A new file starts a fresh session; nothing carries over.
		if len(parts) < 2 || len(parts) > 3 {
			r.errorf("Usage: load <file> [schema]")
			break
		}
		schemaPath := r.schemaPath
		if len(parts) == 3 {
			schemaPath = parts[2]
		}
		if err := r.load(parts[1], schemaPath); err != nil {
			r.errorf("Error: %v", err)
			break
		}
		r.show()
	default:
		_, rest := cutField(line)
		msg, err := execAction(r.session, verb, actionArgs(verb, rest))
		if err != nil {
			r.errorf("Error: %v", err)
			break
		}
		_, _ = fmt.Fprintln(r.out, "✓", msg)
		if r.autoShow {
			r.show()
		}
	}
	return false
}

func (r *repl) load(dataPath, schemaPath string) error {
	s, err := openSession(r.errOut, dataPath, schemaPath)
	if err != nil {
		return err
	}
	r.session, r.dataPath, r.schemaPath = s, dataPath, schemaPath
	if r.rlConfig != nil {
		r.rlConfig.AutoComplete = r.completer()
	}
	return nil
}

func (r *repl) show() {
	if err := render.View(r.out, r.session.View(), r.format); err != nil {
		r.errorf("Error: %v", err)
	}
}

func (r *repl) errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.errOut, format+"\n", args...)
}

func (r *repl) completer() *readline.PrefixCompleter {
	var filters []readline.PrefixCompleterInterface
	for _, f := range r.session.Schema().Filters {
		filters = append(filters, readline.PcItem(f.Column+"="))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("filter", filters...),
		readline.PcItem("unfilter"),
		readline.PcItem("clear"),
		readline.PcItem("agg"),
		readline.PcItem("drill"),
		readline.PcItem("undrill"),
		readline.PcItem("hover", readline.PcItem("kpi"), readline.PcItem("x"), readline.PcItem("metric")),
		readline.PcItem("unhover"),
		readline.PcItem("show"),
		readline.PcItem("load"),
		readline.PcItem(".format", readline.PcItem("table"), readline.PcItem("markdown"), readline.PcItem("json")),
		readline.PcItem(".auto"),
		readline.PcItem(".help"),
		readline.PcItem(".quit"),
	)
}

func printExploreHelp(w io.Writer) {
	help := `
Commands:
  filter <column|id>=<value>   Constrain a declared filter ("filter region=" clears it)
  unfilter <column|id>         Remove one filter
  clear                        Remove every filter
  agg <chart> <sum|avg|count>  Switch a chart's aggregation
  drill <chart> <category>     Drill a chart into one of its categories
  undrill <chart>              Return a chart to its top level
  hover <kpi|x|metric> <i>     Show the tooltip of a KPI, a chart axis or a chart metric
  unhover                      Hide the tooltip
  show                         Render the dashboard
  load <file> [schema]         Start over with another data file
  .format <table|markdown|json>
  .auto                        Toggle rendering after every change
  .help / .quit

Charts and KPIs are numbered from 0 as shown in the output.
`
	_, _ = fmt.Fprintln(w, help)
}

func init() {
	rootCmd.AddCommand(exploreCmd)
	exploreCmd.Flags().StringVarP(&exploreSchemaPath, "schema", "s", "", "dashboard schema file (.json or .yaml)")
	exploreCmd.Flags().StringVar(&exploreFormat, "format", "table", "output format: table|markdown|json")
}

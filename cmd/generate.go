package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KaramelBytes/dashloom-cli/internal/ai"
	"github.com/KaramelBytes/dashloom-cli/internal/dashboard"
	"github.com/KaramelBytes/dashloom-cli/internal/ingest"
	"github.com/KaramelBytes/dashloom-cli/internal/render"
	"github.com/KaramelBytes/dashloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	genModel       string
	genProvider    string
	genMaxTokens   int
	genTemp        float64
	genSampleRows  int
	genOutputPath  string
	genRender      bool
	genDryRun      bool
	genPrintPrompt bool
	genOllamaHost  string
	genTimeoutSec  int
)

var generateCmd = &cobra.Command{
	Use:   "generate <file>",
	Short: "Ask an AI model to design a dashboard schema for a data file",
	Example: `  dashloom generate sales.csv -o sales.dashboard.json
  dashloom generate sales.xlsx --provider ollama --model llama3.1 -o sales.yaml
  dashloom generate sales.csv --render
  dashloom generate sales.csv --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		ds, err := loadDataset(w, args[0])
		if err != nil {
			return err
		}

		rows := genSampleRows
		if !cmd.Flags().Changed("sample-rows") {
			rows = ingest.DefaultSampleRows
			if cfg != nil && cfg.SampleRows > 0 {
				rows = cfg.SampleRows
			}
		}
		maxTokens := genMaxTokens
		if maxTokens == 0 && cfg != nil {
			maxTokens = cfg.MaxTokens
		}
		// Keep the sample well inside the context the reply also needs.
		sample, used, err := ingest.SampleWithinBudget(ds, rows, 4*maxTokens)
		if err != nil {
			return fmt.Errorf("sample rows: %w", err)
		}
		if used < rows && used < ds.Len() {
			fmt.Fprintf(w, "⚠ Warning: sample reduced to %d rows to fit the token budget\n", used)
		}
		userPrompt := ai.BuildUserPrompt(ds.Name, sample)
		tokens := utils.CountTokens(ai.SystemPrompt) + utils.CountTokens(userPrompt)

		if genDryRun || genPrintPrompt {
			fmt.Fprintf(w, "Prompt tokens≈%d (sample rows %d)\n", tokens, used)
			fmt.Fprintln(w, userPrompt)
			if genDryRun {
				fmt.Fprintln(w, "\n--dry-run: no API call was made")
				return nil
			}
		}

		client, providerName, err := buildRuntime(cfg, runtimeOptions{ProviderFlag: genProvider, OllamaHost: genOllamaHost})
		if err != nil {
			return explainAIError(err, providerName, genModel)
		}
		model := selectModel(cfg, genModel)
		temp := genTemp
		if !cmd.Flags().Changed("temp") && cfg != nil {
			temp = cfg.Temperature
		}

		timeoutSec := genTimeoutSec
		if timeoutSec <= 0 {
			timeoutSec = 180
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSec)*time.Second)
		defer cancel()

		fmt.Fprintf(w, "⚙ Designing dashboard with %s model=%s (prompt tokens≈%d) ...\n", providerName, model, tokens)
		synth := &ai.Synthesizer{Runtime: client, Model: model, MaxTokens: maxTokens, Temperature: temp, Logger: slog.Default()}
		res, err := synth.Synthesize(ctx, ds.Name, sample)
		if err != nil {
			return explainAIError(err, providerName, model)
		}
		if res.RequestID != "" {
			fmt.Fprintf(w, "Request ID: %s\n", res.RequestID)
		}
		warnDropped(w, res.Dropped)
		fmt.Fprintf(w, "✓ Schema: %q with %d filters, %d KPIs, %d charts\n",
			res.Schema.Title, len(res.Schema.Filters), len(res.Schema.KPIs), len(res.Schema.Charts))

		if genOutputPath != "" {
			if err := writeSchema(genOutputPath, res.Schema); err != nil {
				return err
			}
			fmt.Fprintf(w, "💾 Saved schema to %s\n", genOutputPath)
		} else if !genRender {
			if err := render.JSON(w, res.Schema); err != nil {
				return err
			}
		}

		if genRender {
			s, err := dashboard.New(ds, &res.Schema, dashboard.WithLogger(slog.Default()))
			if err != nil {
				return err
			}
			fmt.Fprintln(w)
			return render.Table(w, s.View())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&genModel, "model", "", "override model (default from config)")
	generateCmd.Flags().StringVar(&genProvider, "provider", "", "runtime provider: openrouter|ollama (default from config)")
	generateCmd.Flags().IntVar(&genMaxTokens, "max-tokens", 0, "max tokens for the response (default from config)")
	generateCmd.Flags().Float64Var(&genTemp, "temp", 0, "sampling temperature (default from config)")
	generateCmd.Flags().IntVar(&genSampleRows, "sample-rows", ingest.DefaultSampleRows, "rows of the file sent to the model")
	generateCmd.Flags().StringVarP(&genOutputPath, "output", "o", "", "write the schema to this path (.json, .yaml or .yml)")
	generateCmd.Flags().BoolVar(&genRender, "render", false, "render the resulting dashboard after synthesis")
	generateCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "print the prompt without calling the model")
	generateCmd.Flags().BoolVar(&genPrintPrompt, "print-prompt", false, "print the prompt being sent")
	generateCmd.Flags().StringVar(&genOllamaHost, "ollama-host", "", "override Ollama host (e.g., http://127.0.0.1:11434)")
	generateCmd.Flags().IntVar(&genTimeoutSec, "timeout-sec", 180, "request timeout in seconds")
}

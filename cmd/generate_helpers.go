package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/dashloom-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/dashloom-cli/internal/config"
	"github.com/KaramelBytes/dashloom-cli/internal/dataset"
	"github.com/KaramelBytes/dashloom-cli/internal/ingest"
	"github.com/KaramelBytes/dashloom-cli/internal/schema"
	"github.com/KaramelBytes/dashloom-cli/internal/utils"
	"gopkg.in/yaml.v3"
)

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" && cfg != nil && cfg.DefaultProvider != "" {
		providerName = strings.ToLower(cfg.DefaultProvider)
	}
	if providerName == "" {
		providerName = ai.ProviderOpenRouter
	}
	if providerName == ai.ProviderLocal {
		providerName = ai.ProviderOllama
	}

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" && cfg != nil && cfg.APIKey != "" {
		apiKey = cfg.APIKey
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      apiKey,
	}
	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" && cfg != nil && cfg.OllamaHost != "" {
			host = cfg.OllamaHost
		}
		rc.Host = host
	}

	client, err := ai.NewRuntime(providerName, rc)
	if err != nil {
		return nil, providerName, err
	}
	return client, providerName, nil
}

func selectModel(cfg *cfgpkg.Global, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" {
		return cfg.DefaultModel
	}
	return "google/gemini-2.0-flash-001"
}

// explainAIError adds a user-facing hint to the common runtime failures.
func explainAIError(err error, providerName, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.Is(err, ai.ErrMissingAPIKey):
		return fmt.Errorf("%w: set OPENROUTER_API_KEY or run 'dashloom config set api_key <key>'", err)
	case errors.Is(err, ai.ErrMalformedSchema):
		return fmt.Errorf("%w: the model did not return a dashboard schema, retry or pick another model", err)
	case errors.As(err, &unreach):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (config 'ollama_host' or DASHLOOM_OLLAMA_HOST): %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: set OPENROUTER_API_KEY or add api_key in config (~/.dashloom/config.yaml): %w", err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model: %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name: %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try fewer --sample-rows or a smaller --max-tokens: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	default:
		return fmt.Errorf("schema synthesis failed: %w", err)
	}
}

// loadDataset ingests path and reports its size on w.
func loadDataset(w io.Writer, path string) (*dataset.Dataset, error) {
	ds, err := ingest.LoadFile(path)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "✓ Loaded %s: %d rows, %d columns\n", ds.Name, ds.Len(), len(ds.Columns))
	return ds, nil
}

// loadSchemaFile reads a JSON or YAML dashboard schema. Entries the
// normalizer drops are reported as warnings on w.
func loadSchemaFile(w io.Writer, path string) (*schema.Dashboard, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	d, dropped, err := schema.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", filepath.Base(path), err)
	}
	warnDropped(w, dropped)
	return &d, nil
}

func warnDropped(w io.Writer, dropped []schema.FieldError) {
	for _, fe := range dropped {
		fmt.Fprintf(w, "⚠ Warning: schema entry skipped: %s\n", fe.Error())
	}
}

// writeSchema saves d as YAML when path ends in .yaml/.yml and as JSON otherwise.
func writeSchema(path string, d schema.Dashboard) error {
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
	default:
		b, err = utils.PrettyJSON(d)
		if err != nil {
			return err
		}
		b = append(b, '\n')
	}
	return utils.SafeWriteFile(path, b)
}

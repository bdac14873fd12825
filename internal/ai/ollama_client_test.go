package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestOllamaGenerateSuccess(t *testing.T) {
	var captured ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": `{"dashboardTitle":"T"}`},
			"done":    true,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{
		Model: "llama3:latest",
		Messages: []Message{
			{Role: "system", Content: "design"},
			{Role: "user", Content: "FILE: a.csv"},
		},
		MaxTokens:      16,
		ResponseFormat: JSONObject,
	})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Content() != `{"dashboardTitle":"T"}` {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.RequestID == "" {
		t.Fatalf("expected simulated request id")
	}
	if captured.Format != "json" || captured.Stream {
		t.Fatalf("expected non-streaming json format request, got %+v", captured)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("messages not preserved: %+v", captured.Messages)
	}
	if captured.Options["num_predict"] != float64(16) {
		t.Fatalf("num_predict not set: %v", captured.Options)
	}
}

func TestOllamaGenerateErrors(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'x' not found"})
	}))
	defer srv.Close()
	c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "x", Messages: []Message{{Role: "user", Content: "hi"}}})
	var nf *ModelNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected ModelNotFoundError, got %T: %v", err, err)
	}
	if nf.Message != "model 'x' not found" {
		t.Fatalf("message not decoded: %q", nf.Message)
	}

	_, err = c.Generate(context.Background(), GenerateRequest{Model: "x"})
	if err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty' error, got: %v", err)
	}
}

func TestOllamaUnreachable(t *testing.T) {
	c := NewOllamaClient("http://127.0.0.1:1", time.Second, 1, 0)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "x", Messages: []Message{{Role: "user", Content: "hi"}}})
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %T: %v", err, err)
	}
}

func TestNewRuntime(t *testing.T) {
	if _, err := NewRuntime(ProviderOpenRouter, RuntimeConfig{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	rt, err := NewRuntime("Ollama", RuntimeConfig{Host: "http://localhost:1"})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	if _, ok := rt.(*OllamaClient); !ok {
		t.Fatalf("expected OllamaClient, got %T", rt)
	}
	if _, err := NewRuntime("nope", RuntimeConfig{}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

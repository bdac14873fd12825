package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DefaultProvider != "openrouter" || c.DefaultModel != "google/gemini-2.0-flash-001" {
		t.Fatalf("unexpected provider defaults: %+v", c)
	}
	if c.SampleRows != 20 || c.MaxTokens != 4096 || c.Temperature != 0.2 {
		t.Fatalf("unexpected generation defaults: %+v", c)
	}
	if c.LogLevel != "info" || c.LogFormat != "text" {
		t.Fatalf("unexpected log defaults: %+v", c)
	}
}

func TestSaveLoadRoundTripAndEnvOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c := Defaults()
	c.APIKey = "sk-test"
	c.SampleRows = 5
	if err := Save(c, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".dashloom", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	t.Setenv("DASHLOOM_DEFAULT_MODEL", "openai/gpt-4o-mini")
	got, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.APIKey != "sk-test" || got.SampleRows != 5 {
		t.Fatalf("saved values not loaded: %+v", got)
	}
	if got.DefaultModel != "openai/gpt-4o-mini" {
		t.Fatalf("env override ignored: %q", got.DefaultModel)
	}
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestSet(t *testing.T) {
	c := Defaults()
	if err := c.Set("sample_rows", "50"); err != nil || c.SampleRows != 50 {
		t.Fatalf("set sample_rows: %v (%d)", err, c.SampleRows)
	}
	if err := c.Set("temperature", "0.5"); err != nil || c.Temperature != 0.5 {
		t.Fatalf("set temperature: %v (%v)", err, c.Temperature)
	}
	if err := c.Set("default_provider", "ollama"); err != nil || c.DefaultProvider != "ollama" {
		t.Fatalf("set provider: %v", err)
	}
	if err := c.Set("max_tokens", "lots"); err == nil {
		t.Fatal("expected parse error")
	}
	if err := c.Set("nope", "1"); err == nil {
		t.Fatal("expected unknown key error")
	}
}

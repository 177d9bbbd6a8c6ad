package main

import (
	"bytes"
	"strings"
	"testing"

	"tracktalk/internal/models"
	"tracktalk/internal/shared"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.configPath != "config.toml" {
				t.Errorf("expected default config path, got %q", runner.configPath)
			}
		})

		t.Run("without database repositories are nil", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.sessions != nil || runner.archive != nil {
				t.Error("expected nil repositories without a database")
			}
		})
	})

	t.Run("Output Helpers", func(t *testing.T) {
		t.Run("writePlain", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("found %d songs\n", 3); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "found 3 songs\n" {
				t.Errorf("unexpected output: %q", output.String())
			}
		})

		t.Run("writeJSON compact", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]int{"n": 1}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "{\"n\":1}\n" {
				t.Errorf("unexpected output: %q", output.String())
			}
		})

		t.Run("writeJSON pretty", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]int{"n": 1}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "\n  \"n\": 1\n") {
				t.Errorf("expected indented output, got %q", output.String())
			}
		})
	})

	t.Run("renderResult", func(t *testing.T) {
		t.Run("Numbered List With Rationale", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.renderResult(&models.RecommendationResult{
				Requested: 2,
				Entries: []models.RecommendationEntry{
					{Title: "Levels", Artist: "Avicii", Rationale: "timeless"},
					{Title: "Strobe", Artist: "deadmau5"},
				},
			})

			got := output.String()
			if !strings.Contains(got, "1. Levels — Avicii") {
				t.Errorf("missing first entry:\n%s", got)
			}
			if !strings.Contains(got, "timeless") {
				t.Errorf("missing rationale:\n%s", got)
			}
			if !strings.Contains(got, "2. Strobe — deadmau5") {
				t.Errorf("missing second entry:\n%s", got)
			}
			if strings.Contains(got, "⚠") {
				t.Errorf("full result should not warn:\n%s", got)
			}
		})

		t.Run("Partial Result Warns", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.renderResult(&models.RecommendationResult{
				Requested: 5,
				Partial:   true,
				Shortfall: 4,
				Reason:    "the model supplied fewer distinct suggestions than requested",
				Entries:   []models.RecommendationEntry{{Title: "Levels", Artist: "Avicii"}},
			})

			got := output.String()
			if !strings.Contains(got, "Only 1 of 5") {
				t.Errorf("expected shortfall notice:\n%s", got)
			}
		})
	})

	t.Run("ensureSpotify", func(t *testing.T) {
		t.Run("No Service Configured", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			err := runner.ensureSpotify(t.Context())
			if err == nil {
				t.Error("expected an error without a music service")
			}
		})
	})
}

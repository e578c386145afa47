package embedder

import (
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLooksLikeChatModel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		model string
		want  bool
	}{
		{"gpt-4o", true},
		{"gpt-3.5-turbo", true},
		{"llama3.2", true},
		{"mistral-7b", true},
		{"nomic-embed-text", false},
		{"text-embedding-3-small", false},
		{"text-embedding-004", false},
	}
	for _, tt := range tests {
		if got := looksLikeChatModel(tt.model); got != tt.want {
			t.Errorf("looksLikeChatModel(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestResolveBackend(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("MODEL_PROVIDER", "")
	if got := ResolveBackend(); got != "ollama" {
		t.Errorf("default backend = %q, want ollama", got)
	}

	t.Setenv("MODEL_PROVIDER", "openai")
	if got := ResolveBackend(); got != "openai" {
		t.Errorf("inherited backend = %q, want openai", got)
	}

	t.Setenv("EMBEDDING_PROVIDER", "azure")
	if got := ResolveBackend(); got != "azure" {
		t.Errorf("explicit backend = %q, want azure", got)
	}
}

func TestValidate_OpenAIMissingKey(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("EMBEDDING_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	if err := Validate(discardLogger()); err == nil {
		t.Fatal("expected error for openai backend without API key")
	}
}

func TestValidate_OllamaNeedsNothing(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "ollama")

	if err := Validate(discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_AzureMissingEndpoint(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "azure")
	t.Setenv("EMBEDDING_API_KEY", "key")
	t.Setenv("EMBEDDING_ENDPOINT", "")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")

	if err := Validate(discardLogger()); err == nil {
		t.Fatal("expected error for azure backend without endpoint")
	}
}

func TestNewFromEnv_UnknownBackend(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "watsonx")

	if _, err := NewFromEnv(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestDefaultDimensions(t *testing.T) {
	t.Setenv("EMBEDDING_DIMENSIONS", "")
	if got := DefaultDimensions("ollama"); got != 768 {
		t.Errorf("ollama dimensions = %d, want 768", got)
	}
	if got := DefaultDimensions("openai"); got != 1536 {
		t.Errorf("openai dimensions = %d, want 1536", got)
	}

	t.Setenv("EMBEDDING_DIMENSIONS", "256")
	if got := DefaultDimensions("ollama"); got != 256 {
		t.Errorf("override dimensions = %d, want 256", got)
	}
}

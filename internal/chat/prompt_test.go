package chat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPromptMissingFileUsesDefaults(t *testing.T) {
	p, err := LoadPrompt(filepath.Join(t.TempDir(), "prompt.yaml"))
	if err != nil {
		t.Fatalf("LoadPrompt: %v", err)
	}
	if p != DefaultPrompt() {
		t.Error("expected built-in defaults for missing file")
	}
}

func TestLoadPromptFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.yaml")
	content := "system_prompt: You are a handbook assistant.\nuser_prompt: |\n  Context: {context}\n  Question: {question}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPrompt(path)
	if err != nil {
		t.Fatalf("LoadPrompt: %v", err)
	}
	if p.System != "You are a handbook assistant." {
		t.Errorf("system prompt = %q", p.System)
	}
	if !strings.Contains(p.User, "{context}") {
		t.Errorf("user prompt = %q", p.User)
	}
}

func TestLoadPromptPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.yaml")
	if err := os.WriteFile(path, []byte("system_prompt: Custom system.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPrompt(path)
	if err != nil {
		t.Fatalf("LoadPrompt: %v", err)
	}
	if p.System != "Custom system." {
		t.Errorf("system prompt = %q", p.System)
	}
	if p.User != DefaultPrompt().User {
		t.Error("user prompt should fall back to the default")
	}
}

func TestLoadPromptRejectsMissingPlaceholders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.yaml")
	if err := os.WriteFile(path, []byte("user_prompt: no placeholders here\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPrompt(path); err == nil {
		t.Fatal("expected error for template without placeholders")
	}
}

func TestLoadPromptInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.yaml")
	if err := os.WriteFile(path, []byte(":\n\t- broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPrompt(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestRender(t *testing.T) {
	p := DefaultPrompt()
	out := p.Render("CONTEXT HERE", "QUESTION HERE")
	if !strings.Contains(out, "CONTEXT HERE") || !strings.Contains(out, "QUESTION HERE") {
		t.Errorf("Render output missing substitutions: %q", out)
	}
	if strings.Contains(out, "{context}") || strings.Contains(out, "{question}") {
		t.Errorf("Render left placeholders: %q", out)
	}
}

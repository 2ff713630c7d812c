package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"chat-gateway/internal/config"
)

func TestWriteProviderStatus(t *testing.T) {
	var buf bytes.Buffer
	lookup := config.MapLookup(map[string]string{
		"TEST_OPENAI_KEY": "sk-should-not-print",
		"GOOGLE_API_KEY":  "AIza-should-not-print",
	})

	if err := writeProviderStatus(&buf, config.Defaults(), lookup); err != nil {
		t.Fatalf("writeProviderStatus() error = %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "should-not-print") {
		t.Fatalf("output leaks a credential value:\n%s", out)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want header plus 4 providers:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "PROVIDER") {
		t.Errorf("header = %q", lines[0])
	}

	want := map[string][]string{
		"openai":    {"yes", "yes", "TEST_OPENAI_KEY", "gpt-4o-mini"},
		"anthropic": {"no", "no", "-"},
		"cohere":    {"no", "no", "-"},
		"gemini":    {"no", "yes", "GOOGLE_API_KEY"},
	}
	order := []string{"openai", "anthropic", "cohere", "gemini"}
	for i, id := range order {
		fields := strings.Fields(lines[i+1])
		if fields[0] != id {
			t.Errorf("line %d provider = %q, want %q", i+1, fields[0], id)
			continue
		}
		for j, w := range want[id] {
			if fields[j+1] != w {
				t.Errorf("%s column %d = %q, want %q", id, j+1, fields[j+1], w)
			}
		}
	}
}

func TestExecute_Version(t *testing.T) {
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})

	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(buf.String(), Version) {
		t.Errorf("version output = %q, want %s", buf.String(), Version)
	}
}

func TestExecute_InvalidConfigFile(t *testing.T) {
	err := Execute(context.Background(), []string{"providers", "--config", "/nonexistent/gateway.yaml"})
	if err == nil {
		t.Fatal("providers with a missing config file succeeded, want error")
	}
}

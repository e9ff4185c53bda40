package ai

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/genai"

	"resumeforge/internal/config"
)

func TestBuildAnalyzeUsesDefaults(t *testing.T) {
	req := NewPrompts(&config.Config{}, nil).BuildAnalyze("RESUME TEXT", "JOB TEXT")

	if req.Operation != config.OperationAnalyze {
		t.Errorf("unexpected operation %q", req.Operation)
	}
	if req.Prompt != "Job Description:\nJOB TEXT\n\nResume:\nRESUME TEXT" {
		t.Errorf("unexpected prompt %q", req.Prompt)
	}
	if !strings.HasPrefix(req.SystemInstruction, "You are an expert ATS") {
		t.Errorf("unexpected system instruction %q", req.SystemInstruction)
	}
	if req.Schema == nil || req.Schema.Type != genai.TypeObject {
		t.Fatal("expected an object schema")
	}
	if got := len(req.Schema.Required); got != 4 {
		t.Errorf("expected 4 required fields, got %d", got)
	}
	if req.Schema.Properties["score"].Type != genai.TypeNumber {
		t.Error("score must be a number")
	}
}

func TestBuildFreeTextRequests(t *testing.T) {
	p := NewPrompts(nil, nil)

	resume := p.BuildOptimizeResume("Acme", "Engineer", "JD", "CV")
	if resume.Schema != nil {
		t.Error("resume rewrite must be free text")
	}
	if !strings.HasPrefix(resume.Prompt, "Company: Acme\nRole: Engineer\n\nJob Description:\nJD\n\nOriginal Resume:\nCV") {
		t.Errorf("unexpected prompt %q", resume.Prompt)
	}

	letter := p.BuildCoverLetter("Acme", "Engineer", "JD", "CV")
	if letter.Operation != config.OperationCoverLetter || letter.Schema != nil {
		t.Errorf("unexpected request %+v", letter)
	}
	if !strings.Contains(letter.Prompt, "Candidate's Resume/Experience:\nCV") {
		t.Errorf("unexpected prompt %q", letter.Prompt)
	}
	if !strings.Contains(letter.SystemInstruction, "Professional sign-off") {
		t.Error("cover letter system prompt lost the letter structure")
	}
}

func TestPromptResolutionOrder(t *testing.T) {
	file := filepath.Join(t.TempDir(), "analyze_system.txt")
	if err := os.WriteFile(file, []byte("system from file"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.AI.Analyze.CustomPrompts = config.PromptConfig{
		System:     "system from config",
		SystemFile: file,
		User:       "JD=%s CV=%s",
	}
	store, err := config.NewPromptStore(cfg)
	if err != nil {
		t.Fatal(err)
	}

	req := NewPrompts(cfg, store).BuildAnalyze("cv", "jd")
	if req.SystemInstruction != "system from file" {
		t.Errorf("file prompt should win, got %q", req.SystemInstruction)
	}
	if req.Prompt != "JD=jd CV=cv" {
		t.Errorf("inline user prompt should win over default, got %q", req.Prompt)
	}

	letter := NewPrompts(cfg, store).For(config.OperationCoverLetter)
	if letter != DefaultPrompts[config.OperationCoverLetter] {
		t.Error("operations without overrides should use defaults")
	}
}

func TestResolvePrompt(t *testing.T) {
	tests := []struct {
		file, cfg, def, want string
	}{
		{"f", "c", "d", "f"},
		{"", "c", "d", "c"},
		{"", "", "d", "d"},
	}
	for _, tt := range tests {
		if got := resolvePrompt(tt.file, tt.cfg, tt.def); got != tt.want {
			t.Errorf("resolvePrompt(%q, %q, %q) = %q, want %q", tt.file, tt.cfg, tt.def, got, tt.want)
		}
	}
}

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LoadedPrompt holds prompt text read from files for one operation. Empty
// fields mean no file was configured.
type LoadedPrompt struct {
	System string
	User   string
}

// PromptStore holds prompts loaded from files. It is safe for concurrent
// use and can be reloaded while the server runs.
type PromptStore struct {
	mu      sync.RWMutex
	files   map[string]PromptConfig
	prompts map[string]LoadedPrompt
}

// NewPromptStore loads every prompt file referenced by the configuration.
func NewPromptStore(cfg *Config) (*PromptStore, error) {
	store := &PromptStore{
		files:   make(map[string]PromptConfig),
		prompts: make(map[string]LoadedPrompt),
	}
	for _, op := range Operations {
		store.files[op] = cfg.GetOperationConfig(op).CustomPrompts
	}
	if err := store.Reload(); err != nil {
		return nil, err
	}
	return store, nil
}

// Get returns the file-loaded prompts for an operation.
func (s *PromptStore) Get(operation string) LoadedPrompt {
	if s == nil {
		return LoadedPrompt{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompts[operation]
}

// Reload re-reads all prompt files. On error the previous prompts stay in
// effect.
func (s *PromptStore) Reload() error {
	loaded := make(map[string]LoadedPrompt, len(s.files))
	for op, files := range s.files {
		var prompt LoadedPrompt
		var err error
		if files.SystemFile != "" {
			if prompt.System, err = loadPromptFromFile(files.SystemFile, "system", op); err != nil {
				return err
			}
		}
		if files.UserFile != "" {
			if prompt.User, err = loadPromptFromFile(files.UserFile, "user", op); err != nil {
				return err
			}
		}
		loaded[op] = prompt
	}

	s.mu.Lock()
	s.prompts = loaded
	s.mu.Unlock()
	return nil
}

// Files returns the absolute paths of all configured prompt files.
func (s *PromptStore) Files() []string {
	var files []string
	for _, op := range Operations {
		cfg := s.files[op]
		for _, f := range []string{cfg.SystemFile, cfg.UserFile} {
			if f == "" {
				continue
			}
			if abs, err := filepath.Abs(f); err == nil {
				files = append(files, abs)
			}
		}
	}
	return files
}

func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Loaded %s %s prompt from file: %s (%d characters)", promptType, operation, absPath, len(trimmed))
	return trimmed, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeforge/internal/errors"
)

func promptConfig(analyze PromptConfig) *Config {
	cfg := &Config{}
	cfg.AI.Analyze.CustomPrompts = analyze
	return cfg
}

func TestPromptStoreLoadsFiles(t *testing.T) {
	dir := t.TempDir()
	systemFile := filepath.Join(dir, "analyze_system.txt")
	userFile := filepath.Join(dir, "analyze_user.txt")
	require.NoError(t, os.WriteFile(systemFile, []byte("  be strict\n"), 0o600))
	require.NoError(t, os.WriteFile(userFile, []byte("JD: %s\nCV: %s"), 0o600))

	store, err := NewPromptStore(promptConfig(PromptConfig{SystemFile: systemFile, UserFile: userFile}))
	require.NoError(t, err)

	got := store.Get(OperationAnalyze)
	assert.Equal(t, "be strict", got.System)
	assert.Equal(t, "JD: %s\nCV: %s", got.User)
	assert.Equal(t, LoadedPrompt{}, store.Get(OperationCoverLetter))
	assert.Len(t, store.Files(), 2)
}

func TestPromptStoreErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte(" \n"), 0o600))

	_, err := NewPromptStore(promptConfig(PromptConfig{SystemFile: empty}))
	assert.ErrorContains(t, err, "is empty")

	_, err = NewPromptStore(promptConfig(PromptConfig{UserFile: filepath.Join(dir, "missing.txt")}))
	assert.ErrorContains(t, err, "not found")
}

func TestPromptStoreReloadKeepsPreviousOnError(t *testing.T) {
	file := filepath.Join(t.TempDir(), "system.txt")
	require.NoError(t, os.WriteFile(file, []byte("first"), 0o600))

	store, err := NewPromptStore(promptConfig(PromptConfig{SystemFile: file}))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(file, []byte("second"), 0o600))
	require.NoError(t, store.Reload())
	assert.Equal(t, "second", store.Get(OperationAnalyze).System)

	require.NoError(t, os.Remove(file))
	assert.Error(t, store.Reload())
	assert.Equal(t, "second", store.Get(OperationAnalyze).System)
}

func TestNilPromptStore(t *testing.T) {
	var store *PromptStore
	assert.Equal(t, LoadedPrompt{}, store.Get(OperationAnalyze))
}

func TestPromptWatcherReloadsOnWrite(t *testing.T) {
	file := filepath.Join(t.TempDir(), "system.txt")
	require.NoError(t, os.WriteFile(file, []byte("before"), 0o600))

	store, err := NewPromptStore(promptConfig(PromptConfig{SystemFile: file}))
	require.NoError(t, err)

	reloaded := make(chan error, 4)
	watcher := NewPromptWatcher(store, 20*time.Millisecond, func(err error) { reloaded <- err }, errors.NewNopLogger())
	require.NoError(t, watcher.Start())
	t.Cleanup(func() { _ = watcher.Stop() })

	require.Error(t, watcher.Start(), "second start must fail")
	require.NoError(t, os.WriteFile(file, []byte("after"), 0o600))

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("prompt watcher did not reload")
	}
	assert.Equal(t, "after", store.Get(OperationAnalyze).System)

	require.NoError(t, watcher.Stop())
	require.NoError(t, watcher.Stop())
}

func TestPromptWatcherWithoutFiles(t *testing.T) {
	store, err := NewPromptStore(&Config{})
	require.NoError(t, err)

	watcher := NewPromptWatcher(store, 0, nil, errors.NewNopLogger())
	assert.NoError(t, watcher.Start())
	assert.NoError(t, watcher.Stop())
}

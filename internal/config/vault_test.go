package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeforge/internal/errors"
)

// fakeVault serves KVv2 reads and the health endpoint.
func fakeVault(t *testing.T, secrets map[string]map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/sys/health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"initialized": true,
			"sealed":      false,
			"standby":     false,
			"version":     "1.15.0",
		})
	})
	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		data, ok := secrets[r.URL.Path[len("/v1/"):]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 3},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestApplyVaultSecrets(t *testing.T) {
	srv := fakeVault(t, map[string]map[string]any{
		"secret/data/gemini": {"api_key": "gemini-from-vault"},
		"secret/data/api":    {"keys": "k1, k2 ,,k3"},
		"secret/data/db":     {"url": "postgres://app@db/resumeforge"},
		"secret/data/tls":    {"cert": "CERT", "key": "KEY"},
	})

	cfg := &Config{}
	cfg.AI.CoverLetter.APIKey = "cover-letter-key"
	cfg.Vault = VaultConfig{
		Enabled: true,
		Address: srv.URL,
		Token:   "test-token",
		Secrets: VaultSecrets{
			APIKeys:   "secret/data/api",
			GeminiKey: "secret/data/gemini",
			TLSCerts:  "secret/data/tls",
			Database:  "secret/data/db",
		},
	}

	require.NoError(t, ApplyVaultSecrets(cfg, errors.NewNopLogger()))

	assert.Equal(t, "gemini-from-vault", cfg.AI.APIKey)
	assert.Equal(t, "gemini-from-vault", cfg.AI.Analyze.APIKey)
	assert.Equal(t, "gemini-from-vault", cfg.AI.OptimizeResume.APIKey)
	assert.Equal(t, "cover-letter-key", cfg.AI.CoverLetter.APIKey)
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Server.APIKeys)
	assert.Equal(t, "postgres://app@db/resumeforge", cfg.Storage.DatabaseURL)
	assert.Equal(t, "CERT", cfg.Server.TLS.CertContent)
	assert.Equal(t, "KEY", cfg.Server.TLS.KeyContent)
	assert.Empty(t, cfg.Server.TLS.CAContent)
}

func TestApplyVaultSecretsMissingSecret(t *testing.T) {
	srv := fakeVault(t, map[string]map[string]any{})

	cfg := &Config{Vault: VaultConfig{
		Enabled: true,
		Address: srv.URL,
		Token:   "test-token",
		Secrets: VaultSecrets{Database: "secret/data/db"},
	}}

	err := ApplyVaultSecrets(cfg, errors.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL")
	assert.Empty(t, cfg.Storage.DatabaseURL)
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{}
	cfg.AI.APIKey = "unchanged"
	require.NoError(t, ApplyVaultSecrets(cfg, errors.NewNopLogger()))
	assert.Equal(t, "unchanged", cfg.AI.APIKey)
}

func TestResolveVaultToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  from-file\n"), 0o600))

	tests := []struct {
		name    string
		cfg     VaultConfig
		want    string
		wantErr bool
	}{
		{"inline token wins", VaultConfig{Token: "inline", TokenFile: tokenFile}, "inline", false},
		{"token file trimmed", VaultConfig{TokenFile: tokenFile}, "from-file", false},
		{"missing file", VaultConfig{TokenFile: filepath.Join(dir, "nope")}, "", true},
		{"no token at all", VaultConfig{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveVaultToken(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    int64
		wantErr bool
	}{
		{"int64", int64(4), 4, false},
		{"float64", float64(7), 7, false},
		{"string", "12", 12, false},
		{"json number", json.Number("9"), 9, false},
		{"bad string", "v1", 0, true},
		{"bool", true, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVersionValue(tt.raw, "secret/data/x")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "abcd****wxyz", maskSecret("abcdefghuvwxyz"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}

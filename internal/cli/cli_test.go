package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeforge/internal/common"
	"resumeforge/internal/config"
	"resumeforge/internal/errors"
)

func withContext(cmd *cobra.Command, cfg *config.Config) {
	ctx := context.WithValue(context.Background(), configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, errors.NewNopLogger())
	cmd.SetContext(ctx)
}

func TestApplyServeFlags(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Port = "8080"
	cfg.Server.Host = "0.0.0.0"
	cfg.Storage.Driver = "memory"

	require.NoError(t, serveCmd.Flags().Parse([]string{"--port", "9090", "--storage", "postgres"}))
	t.Cleanup(func() {
		for _, name := range []string{"port", "storage"} {
			f := serveCmd.Flags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	})

	applyServeFlags(serveCmd.Flags(), cfg)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset flags keep the config value")
}

func TestResolveFormat(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.DefaultFormat = "markdown"
	cfg.App.SupportedFormats = []string{"json", "text", "markdown"}

	tests := []struct {
		name    string
		in      common.CommandConfig
		want    string
		wantErr bool
	}{
		{name: "default applied", in: common.CommandConfig{}, want: "markdown"},
		{name: "explicit", in: common.CommandConfig{OutputFormat: "json"}, want: "json"},
		{name: "unsupported", in: common.CommandConfig{OutputFormat: "xml"}, wantErr: true},
		{name: "document output", in: common.CommandConfig{OutputFormat: "text", OutputFile: "out.docx"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := tt.in
			cmd := &cobra.Command{}
			withContext(cmd, cfg)

			err := resolveFormat(&target)(cmd, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, target.OutputFormat)
		})
	}
}

func TestReadScanInput(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.txt")
	jd := filepath.Join(dir, "job.txt")
	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(resume, []byte("Jane Doe\nGo developer"), 0600))
	require.NoError(t, os.WriteFile(jd, []byte(strings.Repeat("Go services ", 10)), 0600))
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0600))

	files := common.NewFileProcessor(errors.NewNopLogger(), nil, common.Limits{})

	in, err := readScanInput(context.Background(), files, []string{resume, jd})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo developer", in.ResumeText)

	_, err = readScanInput(context.Background(), files, []string{resume, empty})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestReadOptimizeInputValidatesJob(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.txt")
	jd := filepath.Join(dir, "job.txt")
	require.NoError(t, os.WriteFile(resume, []byte("resume text"), 0600))
	require.NoError(t, os.WriteFile(jd, []byte("too short"), 0600))

	prev := optimizeJob
	t.Cleanup(func() { optimizeJob = prev })
	optimizeJob.CompanyName = " Acme "
	optimizeJob.RoleTitle = "Engineer"

	files := common.NewFileProcessor(errors.NewNopLogger(), nil, common.Limits{})
	_, err := readOptimizeInput(context.Background(), files, []string{resume, jd})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	require.NoError(t, os.WriteFile(jd, []byte(strings.Repeat("Build Go services. ", 5)), 0600))
	in, err := readOptimizeInput(context.Background(), files, []string{resume, jd})
	require.NoError(t, err)
	assert.Equal(t, "Acme", in.Job.CompanyName)
}

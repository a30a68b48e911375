package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.NotEmpty(t, cfg.Home)
	require.Equal(t, filepath.Join(cfg.Home, ".c360", "store.yaml"), cfg.Store)
	require.Equal(t, filepath.Join(cfg.Home, ".bashrc"), cfg.HostFile)
	require.False(t, cfg.StrictMaster)
	require.False(t, cfg.DryRun)
	require.Equal(t, time.Second, cfg.Watch.Debounce)
	require.False(t, cfg.Tracing.Enabled)
	require.Equal(t, "file", cfg.Tracing.Exporter)
	require.Equal(t, "localhost:4317", cfg.Tracing.OTLPEndpoint)
	require.InDelta(t, 1.0, cfg.Tracing.SampleRate, 0)
	require.NoError(t, Validate(cfg))
}

func TestSettings_ResolveDerivesFromHome(t *testing.T) {
	s := Settings{Home: "/srv/job"}.Resolve()
	require.Equal(t, "/srv/job/.c360/store.yaml", s.Store)
	require.Equal(t, "/srv/job/.bashrc", s.HostFile)

	s = Settings{Home: "/srv/job", Store: "/etc/c360/store.json"}.Resolve()
	require.Equal(t, "/etc/c360/store.json", s.Store)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Settings) {}},
		{name: "empty home", mutate: func(s *Settings) { s.Home = "" }, wantErr: "home is required"},
		{name: "negative debounce", mutate: func(s *Settings) { s.Watch.Debounce = -time.Second }, wantErr: "watch.debounce"},
		{name: "sample rate too high", mutate: func(s *Settings) { s.Tracing.SampleRate = 1.5 }, wantErr: "sample_rate"},
		{name: "sample rate negative", mutate: func(s *Settings) { s.Tracing.SampleRate = -0.1 }, wantErr: "sample_rate"},
		{name: "unknown exporter", mutate: func(s *Settings) { s.Tracing.Exporter = "jaeger" }, wantErr: "tracing.exporter"},
		{name: "empty exporter", mutate: func(s *Settings) { s.Tracing.Exporter = "" }},
		{
			name: "file exporter needs path",
			mutate: func(s *Settings) {
				s.Tracing.Enabled = true
				s.Tracing.FilePath = ""
			},
			wantErr: "file_path",
		},
		{
			name: "otlp exporter needs endpoint",
			mutate: func(s *Settings) {
				s.Tracing.Enabled = true
				s.Tracing.Exporter = "otlp"
				s.Tracing.OTLPEndpoint = ""
			},
			wantErr: "otlp_endpoint",
		},
		{
			name: "disabled tracing ignores missing path",
			mutate: func(s *Settings) {
				s.Tracing.FilePath = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := Validate(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultConfigTemplate_IsValidYAML(t *testing.T) {
	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(DefaultConfigTemplate()), &parsed))
	require.Equal(t, false, parsed["strict_master"])
	require.Equal(t, false, parsed["dry_run"])

	watch, ok := parsed["watch"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "1s", watch["debounce"])
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

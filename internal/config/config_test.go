package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/partgraph/internal/tracing"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	require.Equal(t, []string{"plugins"}, d.Manifests)
	require.Equal(t, 300*time.Millisecond, d.Watch.Debounce)
	require.Equal(t, 10*time.Minute, d.Cache.TTL)
	require.Equal(t, 30*time.Minute, d.Cache.CleanupInterval)
	require.False(t, d.Tracing.Enabled)
	require.Equal(t, tracing.ExporterFile, d.Tracing.Exporter)
	require.Equal(t, "debug.log", d.Log.Path)
	require.NoError(t, d.Validate())
}

func TestValidateManifests(t *testing.T) {
	require.NoError(t, ValidateManifests(nil), "empty list is valid")
	require.NoError(t, ValidateManifests([]string{"plugins", "vendor/plugins"}))

	err := ValidateManifests([]string{"plugins", "  "})
	require.Error(t, err)
	require.Contains(t, err.Error(), "manifests[1]")
}

func TestValidateWatch(t *testing.T) {
	require.NoError(t, ValidateWatch(WatchConfig{}))
	err := ValidateWatch(WatchConfig{Debounce: -time.Second})
	require.ErrorContains(t, err, "watch.debounce")
}

func TestValidateCache(t *testing.T) {
	require.NoError(t, ValidateCache(CacheConfig{}), "zero ttl disables the cache")
	require.ErrorContains(t, ValidateCache(CacheConfig{TTL: -1}), "cache.ttl")
	require.ErrorContains(t, ValidateCache(CacheConfig{CleanupInterval: -1}), "cache.cleanup_interval")
}

func TestValidateTracing(t *testing.T) {
	tests := []struct {
		name    string
		cfg     tracing.Config
		wantErr string
	}{
		{
			name: "defaults",
			cfg:  tracing.DefaultConfig(),
		},
		{
			name:    "sample rate too high",
			cfg:     tracing.Config{SampleRate: 1.5},
			wantErr: "sample_rate must be between 0.0 and 1.0",
		},
		{
			name:    "negative sample rate",
			cfg:     tracing.Config{SampleRate: -0.1},
			wantErr: "sample_rate",
		},
		{
			name:    "unknown exporter",
			cfg:     tracing.Config{Exporter: "zipkin"},
			wantErr: `got "zipkin"`,
		},
		{
			name:    "enabled file exporter needs path",
			cfg:     tracing.Config{Enabled: true, Exporter: tracing.ExporterFile},
			wantErr: "file_path is required",
		},
		{
			name: "disabled file exporter without path",
			cfg:  tracing.Config{Exporter: tracing.ExporterFile},
		},
		{
			name:    "enabled otlp exporter needs endpoint",
			cfg:     tracing.Config{Enabled: true, Exporter: tracing.ExporterOTLP},
			wantErr: "otlp_endpoint is required",
		},
		{
			name: "stdout exporter",
			cfg:  tracing.Config{Enabled: true, Exporter: tracing.ExporterStdout, SampleRate: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTracing(tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateLog(t *testing.T) {
	require.NoError(t, ValidateLog(LogConfig{}))
	require.NoError(t, ValidateLog(LogConfig{Level: "WARN"}))
	require.ErrorContains(t, ValidateLog(LogConfig{Level: "verbose"}), "log.level")
}

func TestLoad_DefaultsOnly(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestLoad_PartialFile(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
manifests:
  - ext/plugins
  - vendor/plugins
cache:
  ttl: 0s
watch:
  debounce: 1s
tracing:
  enabled: true
  exporter: stdout
`)))

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, []string{"ext/plugins", "vendor/plugins"}, cfg.Manifests)
	require.Zero(t, cfg.Cache.TTL)
	require.Equal(t, 30*time.Minute, cfg.Cache.CleanupInterval)
	require.Equal(t, time.Second, cfg.Watch.Debounce)
	require.True(t, cfg.Tracing.Enabled)
	require.Equal(t, tracing.ExporterStdout, cfg.Tracing.Exporter)
	require.Equal(t, "partgraph", cfg.Tracing.ServiceName)
}

func TestLoad_FileExporterGetsDefaultPath(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("tracing.enabled", true)

	cfg, err := Load(v)
	if DefaultTracesFilePath() == "" {
		require.Error(t, err)
		return
	}
	require.NoError(t, err)
	require.Equal(t, DefaultTracesFilePath(), cfg.Tracing.FilePath)
}

func TestLoad_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("tracing.sample_rate", 2.0)

	_, err := Load(v)
	require.ErrorContains(t, err, "invalid configuration")
}

func TestDefaultConfigTemplate_MatchesDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(DefaultConfigTemplate())))

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".partgraph", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfigTemplate(), string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestValidateFlags(t *testing.T) {
	require.NoError(t, ValidateFlags(nil))
	require.NoError(t, ValidateFlags(map[string]bool{"framework-types": true}))
	require.ErrorContains(t, ValidateFlags(map[string]bool{"session-resume": true}), "flags: unknown flags session-resume")
}

func TestLoad_Flags(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader("flags:\n  framework-types: true\n")))

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"framework-types": true}, cfg.Flags)
}

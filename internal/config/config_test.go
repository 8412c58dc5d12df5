package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/some/path"},
		Alignment: AlignmentConfig{
			Strategy:         "hybrid",
			QualityThreshold: 0.85,
			MinSimilarity:    0.6,
			MaxSpan:          8,
			DriftZoneSize:    10,
			DriftTolerance:   0.5,
		},
		Pipeline: PipelineConfig{
			MaxAttempts:       3,
			Workers:           4,
			TranscriptionRate: 1,
		},
	}
}

// noEnvFile points LoadConfig at a .env that does not exist.
func noEnvFile(t *testing.T) []string {
	return []string{"-env-file", filepath.Join(t.TempDir(), "missing.env")}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},  // case insensitive
		{"INFO", true},   // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty base path", func(c *Config) { c.Data.BasePath = "" }, "data base path cannot be empty"},
		{"unknown strategy", func(c *Config) { c.Alignment.Strategy = "viterbi" }, "invalid strategy"},
		{"threshold above one", func(c *Config) { c.Alignment.QualityThreshold = 1.5 }, "quality threshold"},
		{"negative min similarity", func(c *Config) { c.Alignment.MinSimilarity = -0.1 }, "min similarity"},
		{"zero max span", func(c *Config) { c.Alignment.MaxSpan = 0 }, "max span"},
		{"zero drift zone", func(c *Config) { c.Alignment.DriftZoneSize = 0 }, "drift zone size"},
		{"negative drift tolerance", func(c *Config) { c.Alignment.DriftTolerance = -1 }, "drift tolerance"},
		{"zero attempts", func(c *Config) { c.Pipeline.MaxAttempts = 0 }, "max attempts"},
		{"zero workers", func(c *Config) { c.Pipeline.Workers = 0 }, "workers"},
		{"zero rate", func(c *Config) { c.Pipeline.TranscriptionRate = 0 }, "transcription rate"},
		{"negative cache ttl", func(c *Config) { c.Pipeline.CacheTTL = -time.Hour }, "cache ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	base := t.TempDir()
	t.Setenv("DATA_PATH", base)

	cfg, rest, err := LoadConfig(noEnvFile(t))
	require.NoError(t, err)
	assert.Empty(t, rest)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "hybrid", cfg.Alignment.Strategy)
	assert.Equal(t, 0.85, cfg.Alignment.QualityThreshold)
	assert.True(t, cfg.Alignment.FixDrift)
	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Zero(t, cfg.Pipeline.CacheTTL)

	assert.Equal(t, base, cfg.Data.BasePath)
	assert.Equal(t, filepath.Join(base, "cache"), cfg.Data.CachePath)
	assert.Equal(t, filepath.Join(base, "munajjam.db"), cfg.Data.DatabasePath)
	assert.Equal(t, filepath.Join(base, "search"), cfg.Data.SearchPath)
	assert.Equal(t, filepath.Join(base, "output"), cfg.Data.OutputPath)
	assert.Equal(t, filepath.Join(base, "inbox"), cfg.Data.InboxPath)
	assert.Empty(t, cfg.Data.ReferencePath)
	assert.Empty(t, cfg.Data.AudioPath)
}

func TestLoadConfig_FlagBeatsEnv(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("ALIGN_STRATEGY", "dp")
	t.Setenv("PIPELINE_WORKERS", "2")

	args := append(noEnvFile(t), "-strategy", "greedy", "-max-attempts", "5", "-cache-ttl", "72h", "1", "112")
	cfg, rest, err := LoadConfig(args)
	require.NoError(t, err)

	assert.Equal(t, "greedy", cfg.Alignment.Strategy, "flag wins over env")
	assert.Equal(t, 2, cfg.Pipeline.Workers, "env wins over default")
	assert.Equal(t, 5, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 72*time.Hour, cfg.Pipeline.CacheTTL)
	assert.Equal(t, []string{"1", "112"}, rest)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("RECITER_NAME=Mishary Alafasy\nALIGN_DRIFT_TOLERANCE=0.75\n"), 0o644))

	t.Setenv("DATA_PATH", dir)
	// Registered so t.Setenv restores them after loadEnvFile sets them.
	t.Setenv("RECITER_NAME", "")
	t.Setenv("ALIGN_DRIFT_TOLERANCE", "")

	cfg, _, err := LoadConfig([]string{"-env-file", envFile})
	require.NoError(t, err)
	assert.Equal(t, "Mishary Alafasy", cfg.Recitation.ReciterName)
	assert.Equal(t, 0.75, cfg.Alignment.DriftTolerance)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())

	_, _, err := LoadConfig(append(noEnvFile(t), "-strategy", "fast"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid strategy")

	_, _, err = LoadConfig(append(noEnvFile(t), "-read-timeout", "soon"))
	require.Error(t, err)

	_, _, err = LoadConfig([]string{"-no-such-flag"})
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(bad, []byte("ALIGN_STRATEGY\n"), 0o644))
	_, _, err = LoadConfig([]string{"-env-file", bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load env file")
}

func TestExpandDataPaths_TildeExpansion(t *testing.T) {
	cfg := &Config{Data: DataConfig{BasePath: "~/my-data"}}

	require.NoError(t, cfg.expandDataPaths())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "my-data"), cfg.Data.BasePath)
	assert.Equal(t, filepath.Join(home, "my-data", "cache"), cfg.Data.CachePath)
}

func TestExpandDataPaths_EmptyUsesDefault(t *testing.T) {
	cfg := &Config{}

	require.NoError(t, cfg.expandDataPaths())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Munajjam"), cfg.Data.BasePath)
}

func TestExpandDataPaths_RelativePath(t *testing.T) {
	cfg := &Config{Data: DataConfig{BasePath: "base", AudioPath: "relative/audio"}}

	require.NoError(t, cfg.expandDataPaths())

	assert.True(t, filepath.IsAbs(cfg.Data.AudioPath))
	assert.Contains(t, cfg.Data.AudioPath, "relative/audio")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("MUNAJJAM_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "MUNAJJAM_TEST_KEY", "fallback"))
	assert.Equal(t, "from-env", getConfigValue("", "MUNAJJAM_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", getConfigValue("", "MUNAJJAM_TEST_UNSET", "fallback"))
}

func TestLoadEnvFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		preset  map[string]string
		want    map[string]string
		wantErr string
	}{
		{
			name:    "comments and blank lines",
			content: "# reciter\n\nRECITER_NAME=Alafasy\n\n# strategy\nALIGN_STRATEGY=dp\n",
			want:    map[string]string{"RECITER_NAME": "Alafasy", "ALIGN_STRATEGY": "dp"},
		},
		{
			name:    "quotes",
			content: "RECITER_NAME=\"Mishary Alafasy\"\nLOG_LEVEL='debug'\nDATA_PATH=\"unbalanced'\n",
			want:    map[string]string{"RECITER_NAME": "Mishary Alafasy", "LOG_LEVEL": "debug", "DATA_PATH": `"unbalanced'`},
		},
		{
			name:    "export prefix and padding",
			content: "export  ALIGN_STRATEGY =  greedy  \n",
			want:    map[string]string{"ALIGN_STRATEGY": "greedy"},
		},
		{
			name:    "environment wins",
			content: "LOG_LEVEL=debug\n",
			preset:  map[string]string{"LOG_LEVEL": "warn"},
			want:    map[string]string{"LOG_LEVEL": "warn"},
		},
		{
			name:    "line without equals",
			content: "LOG_LEVEL=debug\nnot a pair\n",
			wantErr: ":2: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Registering every key with t.Setenv restores them afterwards.
			for _, key := range []string{"RECITER_NAME", "ALIGN_STRATEGY", "LOG_LEVEL", "DATA_PATH"} {
				t.Setenv(key, tt.preset[key])
			}
			path := filepath.Join(t.TempDir(), ".env")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			err := loadEnvFile(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			for key, want := range tt.want {
				assert.Equal(t, want, os.Getenv(key), key)
			}
		})
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	err := loadEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

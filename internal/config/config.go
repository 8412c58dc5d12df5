// Package config loads settings from flags, then the environment, then an
// optional .env file, falling back to defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App        AppConfig
	Logger     LoggerConfig
	Data       DataConfig
	Recitation RecitationConfig
	Alignment  AlignmentConfig
	Pipeline   PipelineConfig
	Server     ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds the on-disk locations used by the engine.
type DataConfig struct {
	BasePath      string // Root for everything below that is left empty (default: ~/Munajjam)
	ReferencePath string // Quran CSV (id,sura_id,index,text); empty uses the embedded Al-Fatiha
	CachePath     string // Badger transcription cache (default: {base}/cache)
	DatabasePath  string // SQLite timestamp sink (default: {base}/munajjam.db)
	SearchPath    string // Bleve ayah index (default: {base}/search)
	OutputPath    string // surah_XXX.json and Logging.csv (default: {base}/output)
	AudioPath     string // 001.wav...; optional
	InboxPath     string // Segment files read by FileSource and watched by `watch` (default: {base}/inbox)
}

// RecitationConfig identifies the recitation being processed.
type RecitationConfig struct {
	ReciterName string
	ID          string // Empty lets the caller generate one
}

// AlignmentConfig holds the aligner and drift corrector tuning.
type AlignmentConfig struct {
	Strategy         string  // greedy, dp, or hybrid (default: hybrid)
	QualityThreshold float64 // default: 0.85
	MinSimilarity    float64 // default: 0.6
	MaxSpan          int     // default: 8
	FixDrift         bool    // default: true
	DriftZoneSize    int     // default: 10
	DriftTolerance   float64 // seconds (default: 0.5)
}

// PipelineConfig holds the retry controller configuration.
type PipelineConfig struct {
	MaxAttempts        int           // default: 3
	Workers            int           // surahs in parallel (default: 4)
	TranscriberCommand string        // external ASR helper; empty reads the inbox
	TranscriptionRate  float64       // helper calls per second per reciter (default: 1)
	CacheTTL           time.Duration // cached transcriptions expire after this; 0 keeps them
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 60s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags in args (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// Positional arguments left after the flags are returned alongside.
func LoadConfig(args []string) (*Config, []string, error) {
	fs := flag.NewFlagSet("munajjam", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	// Data flags
	basePath := fs.String("data-path", "", "Base path for engine data")
	referencePath := fs.String("reference", "", "Quran reference CSV")
	cachePath := fs.String("cache-path", "", "Transcription cache directory")
	databasePath := fs.String("db", "", "SQLite database path")
	searchPath := fs.String("search-path", "", "Search index directory")
	outputPath := fs.String("output", "", "Output directory")
	audioPath := fs.String("audio", "", "Directory of surah recordings")
	inboxPath := fs.String("inbox", "", "Directory of segment files")

	// Recitation flags
	reciter := fs.String("reciter", "", "Reciter name")
	recitationID := fs.String("recitation-id", "", "Recitation id")

	// Alignment flags
	strategy := fs.String("strategy", "", "Alignment strategy (greedy, dp, hybrid)")
	qualityThreshold := fs.String("quality-threshold", "", "DP confidence threshold (default: 0.85)")
	minSimilarity := fs.String("min-similarity", "", "Pass/fail similarity floor (default: 0.6)")
	maxSpan := fs.String("max-span", "", "Max units per ayah in DP (default: 8)")
	fixDrift := fs.String("fix-drift", "", "Correct drift against silences (default: true)")
	driftZone := fs.String("drift-zone", "", "Ayahs per drift zone (default: 10)")
	driftTolerance := fs.String("drift-tolerance", "", "Drift tolerance in seconds (default: 0.5)")

	// Pipeline flags
	maxAttempts := fs.String("max-attempts", "", "Attempts per surah (default: 3)")
	workers := fs.String("workers", "", "Surahs processed in parallel (default: 4)")
	transcriber := fs.String("transcriber", "", "External transcriber command")
	transcriptionRate := fs.String("transcription-rate", "", "Transcriber calls per second (default: 1)")
	cacheTTL := fs.String("cache-ttl", "", "Expire cached transcriptions after this long (default: never)")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 60s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("parse flags: %w", err)
	}

	// A missing .env is fine; a malformed one is not.
	if err := loadEnvFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath:      getConfigValue(*basePath, "DATA_PATH", ""),
			ReferencePath: getConfigValue(*referencePath, "REFERENCE_PATH", ""),
			CachePath:     getConfigValue(*cachePath, "CACHE_PATH", ""),
			DatabasePath:  getConfigValue(*databasePath, "DATABASE_PATH", ""),
			SearchPath:    getConfigValue(*searchPath, "SEARCH_PATH", ""),
			OutputPath:    getConfigValue(*outputPath, "OUTPUT_PATH", ""),
			AudioPath:     getConfigValue(*audioPath, "AUDIO_PATH", ""),
			InboxPath:     getConfigValue(*inboxPath, "INBOX_PATH", ""),
		},
		Recitation: RecitationConfig{
			ReciterName: getConfigValue(*reciter, "RECITER_NAME", "Unknown Reciter"),
			ID:          getConfigValue(*recitationID, "RECITATION_ID", ""),
		},
		Alignment: AlignmentConfig{
			Strategy:         getConfigValue(*strategy, "ALIGN_STRATEGY", "hybrid"),
			QualityThreshold: getFloatConfigValue(*qualityThreshold, "ALIGN_QUALITY_THRESHOLD", 0.85),
			MinSimilarity:    getFloatConfigValue(*minSimilarity, "ALIGN_MIN_SIMILARITY", 0.6),
			MaxSpan:          getIntConfigValue(*maxSpan, "ALIGN_MAX_SPAN", 8),
			FixDrift:         getBoolConfigValue(*fixDrift, "ALIGN_FIX_DRIFT", true),
			DriftZoneSize:    getIntConfigValue(*driftZone, "ALIGN_DRIFT_ZONE", 10),
			DriftTolerance:   getFloatConfigValue(*driftTolerance, "ALIGN_DRIFT_TOLERANCE", 0.5),
		},
		Pipeline: PipelineConfig{
			MaxAttempts:        getIntConfigValue(*maxAttempts, "PIPELINE_MAX_ATTEMPTS", 3),
			Workers:            getIntConfigValue(*workers, "PIPELINE_WORKERS", 4),
			TranscriberCommand: getConfigValue(*transcriber, "TRANSCRIBER_COMMAND", ""),
			TranscriptionRate:  getFloatConfigValue(*transcriptionRate, "TRANSCRIPTION_RATE", 1),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, nil, err
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "60s"); err != nil {
		return nil, nil, err
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, nil, err
	}
	if cfg.Pipeline.CacheTTL, err = getDurationConfigValue(*cacheTTL, "TRANSCRIPTION_CACHE_TTL", "0s"); err != nil {
		return nil, nil, err
	}

	if err := cfg.expandDataPaths(); err != nil {
		return nil, nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, fs.Args(), nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	switch c.Alignment.Strategy {
	case "greedy", "dp", "hybrid":
	default:
		return fmt.Errorf("invalid strategy: %s (must be greedy, dp, or hybrid)", c.Alignment.Strategy)
	}
	if c.Alignment.QualityThreshold < 0 || c.Alignment.QualityThreshold > 1 {
		return fmt.Errorf("quality threshold %v out of range [0, 1]", c.Alignment.QualityThreshold)
	}
	if c.Alignment.MinSimilarity < 0 || c.Alignment.MinSimilarity > 1 {
		return fmt.Errorf("min similarity %v out of range [0, 1]", c.Alignment.MinSimilarity)
	}
	if c.Alignment.MaxSpan < 1 {
		return fmt.Errorf("max span must be at least 1, got %d", c.Alignment.MaxSpan)
	}
	if c.Alignment.DriftZoneSize < 1 {
		return fmt.Errorf("drift zone size must be at least 1, got %d", c.Alignment.DriftZoneSize)
	}
	if c.Alignment.DriftTolerance < 0 {
		return fmt.Errorf("drift tolerance cannot be negative, got %v", c.Alignment.DriftTolerance)
	}

	if c.Pipeline.CacheTTL < 0 {
		return fmt.Errorf("cache ttl cannot be negative, got %v", c.Pipeline.CacheTTL)
	}
	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.Pipeline.MaxAttempts)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.TranscriptionRate <= 0 {
		return fmt.Errorf("transcription rate must be positive, got %v", c.Pipeline.TranscriptionRate)
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPaths resolves the base path, then fills every unset location
// below it. ReferencePath and AudioPath stay empty when unset.
func (c *Config) expandDataPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	base, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, "Munajjam"))
	if err != nil {
		return err
	}
	c.Data.BasePath = base

	paths := []struct {
		value *string
		def   string
	}{
		{&c.Data.CachePath, filepath.Join(base, "cache")},
		{&c.Data.DatabasePath, filepath.Join(base, "munajjam.db")},
		{&c.Data.SearchPath, filepath.Join(base, "search")},
		{&c.Data.OutputPath, filepath.Join(base, "output")},
		{&c.Data.InboxPath, filepath.Join(base, "inbox")},
		{&c.Data.ReferencePath, ""},
		{&c.Data.AudioPath, ""},
	}
	for _, p := range paths {
		expanded, err := expandPath(*p.value, p.def)
		if err != nil {
			return err
		}
		*p.value = expanded
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), strValue, err)
	}
	return d, nil
}

// loadEnvFile sets KEY=value pairs from path for keys that are not set yet.
// Blank lines and # comments are skipped. An "export " prefix and one pair of
// matching quotes around the value are stripped.
func loadEnvFile(path string) error {
	data, err := os.ReadFile(path) //#nosec G304 -- path comes from -env-file
	if err != nil {
		return err
	}

	n := 0
	for line := range strings.Lines(string(data)) {
		n++
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			return fmt.Errorf("%s:%d: invalid format, want KEY=value", path, n)
		}
		key = strings.TrimSpace(key)
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, unquote(strings.TrimSpace(value))); err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
	}
	return nil
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

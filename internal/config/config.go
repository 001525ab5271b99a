package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// Graph persistence
	Graph GraphConfig `yaml:"graph"`

	// Crawl behavior
	Crawl CrawlConfig `yaml:"crawl"`

	// Proof subsystem
	Proof ProofConfig `yaml:"proof"`

	// Crawl/diff history store
	History HistoryConfig `yaml:"history"`

	// Logging
	Log LogConfig `yaml:"log"`
}

type GraphConfig struct {
	Path    string `yaml:"path"`
	Version string `yaml:"version"`
}

type CrawlConfig struct {
	Root        string   `yaml:"root"`
	Patterns    []string `yaml:"patterns"`
	Exclude     []string `yaml:"exclude"`
	Concurrency int      `yaml:"concurrency"`
}

type ProofConfig struct {
	Backend     string  `yaml:"backend"` // "none", "ledger"
	ArchivePath string  `yaml:"archive_path"`
	IntervalMS  int     `yaml:"interval_ms"`
	RatePerSec  float64 `yaml:"rate_per_sec"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			Path:    filepath.Join(".schemadrift", "graph.json"),
			Version: "1.0",
		},
		Crawl: CrawlConfig{
			Root: ".",
			Patterns: []string{
				"**/*.ts",
				"**/*.json",
				"**/*.yaml",
				"**/*.yml",
			},
			Exclude: []string{
				"node_modules", "dist", "build", "out", "vendor", ".git",
			},
			Concurrency: 8,
		},
		Proof: ProofConfig{
			Backend:     "none",
			ArchivePath: filepath.Join(".schemadrift", "epochs.db"),
			IntervalMS:  60_000,
			RatePerSec:  2,
		},
		History: HistoryConfig{
			Path: filepath.Join(".schemadrift", "history.db"),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults
	cfg := Default()
	v.SetDefault("graph", cfg.Graph)
	v.SetDefault("crawl", cfg.Crawl)
	v.SetDefault("proof", cfg.Proof)
	v.SetDefault("history", cfg.History)
	v.SetDefault("log", cfg.Log)

	// Load from environment variables
	v.SetEnvPrefix("SCHEMADRIFT")
	v.AutomaticEnv()

	// Try to find config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".schemadrift")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".schemadrift"))
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".schemadrift", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if path := os.Getenv("SCHEMADRIFT_GRAPH_PATH"); path != "" {
		cfg.Graph.Path = expandPath(path)
	}
	if root := os.Getenv("SCHEMADRIFT_CRAWL_ROOT"); root != "" {
		cfg.Crawl.Root = expandPath(root)
	}
	if conc := os.Getenv("SCHEMADRIFT_CRAWL_CONCURRENCY"); conc != "" {
		if n, err := strconv.Atoi(conc); err == nil && n > 0 {
			cfg.Crawl.Concurrency = n
		}
	}
	if backend := os.Getenv("SCHEMADRIFT_PROOF_BACKEND"); backend != "" {
		cfg.Proof.Backend = backend
	}
	if path := os.Getenv("SCHEMADRIFT_ARCHIVE_PATH"); path != "" {
		cfg.Proof.ArchivePath = expandPath(path)
	}
	if interval := os.Getenv("SCHEMADRIFT_EPOCH_INTERVAL_MS"); interval != "" {
		if ms, err := strconv.Atoi(interval); err == nil && ms > 0 {
			cfg.Proof.IntervalMS = ms
		}
	}
	if path := os.Getenv("SCHEMADRIFT_HISTORY_PATH"); path != "" {
		cfg.History.Path = expandPath(path)
	}
	if file := os.Getenv("SCHEMADRIFT_LOG_FILE"); file != "" {
		cfg.Log.File = expandPath(file)
	}
	if level := os.Getenv("SCHEMADRIFT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("graph", c.Graph)
	v.Set("crawl", c.Crawl)
	v.Set("proof", c.Proof)
	v.Set("history", c.History)
	v.Set("log", c.Log)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

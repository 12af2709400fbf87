package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"anexis/bundler/build"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const envPrefix = "RUNTIME_BUNDLE_"

// envConfig holds the overrides read from the environment.
type envConfig struct {
	Root     string        `env:"ROOT"`
	Config   string        `env:"CONFIG"`
	Entry    string        `env:"ENTRY"`
	OutDir   string        `env:"OUT_DIR"`
	OutFile  string        `env:"OUT_FILE"`
	Metafile string        `env:"METAFILE"`
	Timeout  time.Duration `env:"TIMEOUT"`
	LogLevel string        `env:"LOG_LEVEL"`
	Analyze  bool          `env:"ANALYZE"`
}

// options holds the command-line flags.
type options struct {
	root       string
	config     string
	entry      string
	outDir     string
	outFile    string
	metafile   string
	timeout    time.Duration
	logLevel   string
	analyze    bool
	analyzeAll bool
}

type settings struct {
	Config     build.Config
	LogLevel   string
	Analyze    bool
	AnalyzeAll bool
}

// parseEnv reads the environment, with values from dotenvPath (if it
// exists) underneath the real environment.
func parseEnv(environ []string, dotenvPath string) (*envConfig, error) {
	dotenv, err := godotenv.Read(dotenvPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", dotenvPath, err)
	}
	merged := make([]string, 0, len(dotenv)+len(environ))
	for k, v := range dotenv {
		merged = append(merged, k+"="+v)
	}
	merged = append(merged, environ...)

	var cfg envConfig
	err = env.ParseWithOptions(&cfg, env.Options{
		Environment: env.ToMap(merged),
		Prefix:      envPrefix,
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadSettings layers the job configuration: hardcoded defaults, then the
// YAML file, then the environment, then flags the user actually set. With
// nothing set the result is the hardcoded job.
func loadSettings(changed func(string) bool, opts *options, environ []string, dotenvPath string) (*settings, error) {
	envCfg, err := parseEnv(environ, dotenvPath)
	if err != nil {
		return nil, err
	}

	root := pick(changed("root"), opts.root, envCfg.Root, ".")
	cfg, err := build.DefaultConfig(root)
	if err != nil {
		return nil, err
	}

	if file := pick(changed("config"), opts.config, envCfg.Config, ""); file != "" {
		cfg, err = build.LoadConfigFile(file, cfg)
		if err != nil {
			return nil, err
		}
	}

	cfg.Entry = pick(changed("entry"), opts.entry, envCfg.Entry, cfg.Entry)
	cfg.OutDir = pick(changed("out-dir"), opts.outDir, envCfg.OutDir, cfg.OutDir)
	cfg.OutFile = pick(changed("out-file"), opts.outFile, envCfg.OutFile, cfg.OutFile)
	cfg.Metafile = pick(changed("metafile"), opts.metafile, envCfg.Metafile, cfg.Metafile)

	if changed("timeout") {
		cfg.Timeout = opts.timeout
	} else if envCfg.Timeout != 0 {
		cfg.Timeout = envCfg.Timeout
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %s", cfg.Timeout)
	}

	s := &settings{
		Config:     cfg,
		LogLevel:   pick(changed("log-level"), opts.logLevel, envCfg.LogLevel, "info"),
		Analyze:    opts.analyze || opts.analyzeAll || envCfg.Analyze,
		AnalyzeAll: opts.analyzeAll,
	}
	return s, nil
}

func pick(flagSet bool, flagValue, envValue, fallback string) string {
	if flagSet {
		return flagValue
	}
	if envValue != "" {
		return envValue
	}
	return fallback
}

package build

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"gopkg.in/yaml.v3"
)

const (
	DefaultEntry   = "src/runtime/index.js"
	DefaultOutDir  = "dist"
	DefaultOutFile = "runtime/index.js"
)

// Config is the bundle job configuration. It is built once per process and
// handed to the engine as a value.
type Config struct {
	Root      string   `yaml:"-"`
	Entry     string   `yaml:"entry"`
	OutDir    string   `yaml:"out_dir"`
	OutFile   string   `yaml:"out_file"`
	Externals []string `yaml:"externals"`
	Metafile  string   `yaml:"metafile"`

	// Timeout bounds the engine call. Zero means wait forever.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the hardcoded job rooted at root. Externals are
// computed from root/node_modules.
func DefaultConfig(root string) (Config, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve project root %s: %w", root, err)
	}
	externals, err := NodeExternals(abs)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Root:      abs,
		Entry:     DefaultEntry,
		OutDir:    DefaultOutDir,
		OutFile:   DefaultOutFile,
		Externals: externals,
	}, nil
}

// LoadConfigFile overlays the YAML file at filename onto base. Fields absent
// from the file keep their base value.
func LoadConfigFile(filename string, base Config) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return base, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := base
	cfg.Externals = append([]string(nil), base.Externals...)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}
	return cfg, nil
}

// EntryPath is the absolute path of the entry module.
func (c Config) EntryPath() string {
	return c.resolve(c.Entry)
}

func (c Config) OutDirPath() string {
	return c.resolve(c.OutDir)
}

// OutputPath is the absolute path of the bundled artifact.
func (c Config) OutputPath() string {
	return filepath.Join(c.OutDirPath(), c.OutFile)
}

// MetafilePath is empty when no metafile was requested.
func (c Config) MetafilePath() string {
	if c.Metafile == "" {
		return ""
	}
	return c.resolve(c.Metafile)
}

func (c Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// Options translates the job into esbuild build options: node platform,
// CommonJS output, no minification and names kept.
func (c Config) Options() api.BuildOptions {
	return api.BuildOptions{
		EntryPoints:       []string{c.EntryPath()},
		Outfile:           c.OutputPath(),
		AbsWorkingDir:     c.Root,
		Bundle:            true,
		Write:             false,
		Metafile:          true,
		Platform:          api.PlatformNode,
		Format:            api.FormatCommonJS,
		External:          append([]string(nil), c.Externals...),
		MinifyWhitespace:  false,
		MinifyIdentifiers: false,
		MinifySyntax:      false,
		KeepNames:         true,
		LogLevel:          api.LogLevelSilent,
	}
}

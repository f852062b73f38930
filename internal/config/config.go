// Package config loads robin's settings from robin.toml and the
// environment.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/skn123/robin-sub001/internal/errors"
	"github.com/skn123/robin-sub001/internal/toolbox"
)

// FileName is the name of the project configuration file.
const FileName = "robin.toml"

// EnvPrefix prefixes environment overrides, as in ROBIN_LOG_VERBOSE.
const EnvPrefix = "ROBIN"

// Config is the complete configuration of a run.
type Config struct {
	Input   InputConfig   `mapstructure:"input"`
	Collect CollectConfig `mapstructure:"collect"`
	Toolbox ToolboxConfig `mapstructure:"toolbox"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`

	// Path is the configuration file that was read, empty when none was
	// found.
	Path string `mapstructure:"-"`
}

// InputConfig selects the declarations to read.
type InputConfig struct {
	// Roots are the directories searched for headers.
	Roots []string `mapstructure:"roots"`

	// Extensions are the header file extensions, with the dot.
	Extensions []string `mapstructure:"extensions"`

	// Exclude holds gitignore-style patterns of paths to skip.
	Exclude []string `mapstructure:"exclude"`

	// Documents are YAML declaration documents read in addition to the
	// headers.
	Documents []string `mapstructure:"documents"`
}

// CollectConfig drives subject collection.
type CollectConfig struct {
	Subjects          []string `mapstructure:"subjects"`
	Autocollect       bool     `mapstructure:"autocollect"`
	Inners            bool     `mapstructure:"inners"`
	Typedefs          bool     `mapstructure:"typedefs"`
	Instantiations    bool     `mapstructure:"instantiations"`
	SeparateTemplates bool     `mapstructure:"separate_templates"`
	MaxPasses         int      `mapstructure:"max_passes"`
}

// ToolboxConfig configures type simplification.
type ToolboxConfig struct {
	AliasPolicy string `mapstructure:"alias_policy"`
}

// OutputConfig locates run products.
type OutputConfig struct {
	// Catalog is the directory of the documentation index.
	Catalog string `mapstructure:"catalog"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	JSON    bool `mapstructure:"json"`
	Verbose bool `mapstructure:"verbose"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input.roots", []string{"."})
	v.SetDefault("input.extensions", []string{".h", ".hh", ".hpp", ".hxx"})
	v.SetDefault("input.exclude", []string{})
	v.SetDefault("input.documents", []string{})

	v.SetDefault("collect.subjects", []string{})
	v.SetDefault("collect.autocollect", false)
	v.SetDefault("collect.inners", true)
	v.SetDefault("collect.typedefs", true)
	v.SetDefault("collect.instantiations", true)
	v.SetDefault("collect.separate_templates", false)
	v.SetDefault("collect.max_passes", 32)

	v.SetDefault("toolbox.alias_policy", toolbox.PolicyTransparent)

	v.SetDefault("output.catalog", filepath.Join(".robin", "catalog"))

	v.SetDefault("log.json", false)
	v.SetDefault("log.verbose", false)
}

// New returns a viper instance with defaults and environment binding but
// no file.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load reads the robin.toml found in dir or the nearest of its parents,
// applies environment overrides and validates the result. A missing file
// is not an error.
func Load(dir string) (*Config, error) {
	v := New()
	path := Find(dir)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
	}
	cfg, err := FromViper(v)
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// LoadFile reads one configuration file, without searching.
func LoadFile(path string) (*Config, error) {
	v := New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	cfg, err := FromViper(v)
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	return cfg, nil
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Find returns the path of the robin.toml in dir or its nearest parent
// holding one, or "".
func Find(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Validate checks values that cannot be checked by decoding.
func (c *Config) Validate() error {
	if _, err := toolbox.PolicyByName(c.Toolbox.AliasPolicy); err != nil {
		return errors.Wrap(err, "toolbox.alias_policy")
	}
	if c.Collect.MaxPasses < 0 {
		return errors.Newf("collect.max_passes must be >= 0, got %d", c.Collect.MaxPasses)
	}
	for _, ext := range c.Input.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return errors.WithHintf(errors.Newf("input.extensions: %q does not start with a dot", ext),
				"write extensions as %q", "."+ext)
		}
	}
	return nil
}

// Policy returns the alias policy named by the configuration.
func (c *Config) Policy() toolbox.Policy {
	p, err := toolbox.PolicyByName(c.Toolbox.AliasPolicy)
	if err != nil {
		return toolbox.Transparent
	}
	return p
}

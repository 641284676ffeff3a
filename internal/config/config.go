// Package config loads carbonml settings from a YAML file, CARBONML_*
// environment variables and built-in defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
	"github.com/ezoic/carbonml/pkg/log"
)

// EnvPrefix is prepended to every environment override, e.g.
// CARBONML_MODELS_DIR.
const EnvPrefix = "CARBONML"

// Data locates the input and cleaned datasets.
type Data struct {
	RawPath      string `mapstructure:"raw_path" yaml:"raw_path"`
	CleanedPath  string `mapstructure:"cleaned_path" yaml:"cleaned_path"`
	EncodersPath string `mapstructure:"encoders_path" yaml:"encoders_path"`
}

// Models locates the artifact directory.
type Models struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Training holds the run parameters.
type Training struct {
	Seed         uint64  `mapstructure:"seed" yaml:"seed"`
	TestFraction float64 `mapstructure:"test_fraction" yaml:"test_fraction"`
	CVFolds      int     `mapstructure:"cv_folds" yaml:"cv_folds"`
	Workers      int     `mapstructure:"workers" yaml:"workers"`
}

// Server configures the HTTP scoring service.
type Server struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	Mode string `mapstructure:"mode" yaml:"mode"` // gin mode: debug, release or test
}

// Log mirrors log.Config.
type Log struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// Registry locates the run registry database. An empty path disables it.
type Registry struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Config is the full configuration.
type Config struct {
	Data     Data     `mapstructure:"data" yaml:"data"`
	Models   Models   `mapstructure:"models" yaml:"models"`
	Training Training `mapstructure:"training" yaml:"training"`
	Server   Server   `mapstructure:"server" yaml:"server"`
	Log      Log      `mapstructure:"log" yaml:"log"`
	Registry Registry `mapstructure:"registry" yaml:"registry"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.raw_path", "data/Carbon Emission.csv")
	v.SetDefault("data.cleaned_path", "data/cleaned_carbon_emission.csv")
	v.SetDefault("data.encoders_path", "data/label_encoders.json")
	v.SetDefault("models.dir", "models")

	v.SetDefault("training.seed", 42)
	v.SetDefault("training.test_fraction", 0.2)
	v.SetDefault("training.cv_folds", 5)
	v.SetDefault("training.workers", 0)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)

	v.SetDefault("registry.path", "data/registry.db")
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	// defaults always decode
	_ = v.Unmarshal(&c)
	return &c
}

// Load reads configuration. Precedence: environment > config file >
// defaults. When cfgFile is empty, carbonml.yaml is searched in the working
// directory and in $HOME/.carbonml; a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("carbonml")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".carbonml"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !cmlErrors.As(err, &notFound) {
			return nil, cmlErrors.Wrapf(err, "failed to read config %s", cfgFile)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, cmlErrors.Wrap(err, "failed to decode config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		return cmlErrors.NewValidationError("config", "must be in (0, 1)", "training.test_fraction")
	}
	if c.Training.CVFolds < 2 {
		return cmlErrors.NewValidationError("config", "must be at least 2", "training.cv_folds")
	}
	if c.Models.Dir == "" {
		return cmlErrors.NewValidationError("config", "must not be empty", "models.dir")
	}
	return nil
}

// LogConfig converts the log section for log.Setup.
func (c *Config) LogConfig() log.Config {
	return log.Config{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

// Save writes c as YAML to path, creating its directory.
func Save(c *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cmlErrors.Wrap(err, "failed to create config dir")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return cmlErrors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return cmlErrors.Wrap(err, "failed to write config")
	}
	return nil
}

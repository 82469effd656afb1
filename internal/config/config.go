package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ENCPROBE_ENGINE=markup.
const EnvPrefix = "ENCPROBE"

// ErrInvalid is wrapped by Validate failures.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	PhysicalPath      string   `json:"physical_path" mapstructure:"physical_path"`
	MountPoint        string   `json:"mount_point" mapstructure:"mount_point"`
	AllowedProcesses  []string `json:"allowed_processes" mapstructure:"allowed_processes"`
	AllowedExtensions []string `json:"allowed_extensions" mapstructure:"allowed_extensions"`
	// FallbackCharset is used to write back files whose charset was not
	// determined, or was US-ASCII before non-ASCII text was added.
	FallbackCharset string `json:"fallback_charset" mapstructure:"fallback_charset"`

	Engine      string `json:"engine" mapstructure:"engine"`
	MaxSniff    int    `json:"max_sniff" mapstructure:"max_sniff"`
	SampleSize  int    `json:"sample_size" mapstructure:"sample_size"`
	Concurrency int    `json:"concurrency" mapstructure:"concurrency"`

	LogLevel  string `json:"log_level" mapstructure:"log_level"`
	LogFormat string `json:"log_format" mapstructure:"log_format"`

	// ConfigFileUsed is the file the values were read from, empty when
	// defaults were used.
	ConfigFileUsed string `json:"-" mapstructure:"-"`
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"engine":      "engine",
	"max-sniff":   "max_sniff",
	"sample-size": "sample_size",
	"concurrency": "concurrency",
	"log-level":   "log_level",
	"log-format":  "log_format",
	"physical":    "physical_path",
	"mount-point": "mount_point",
	"ext":         "allowed_extensions",
	"process":     "allowed_processes",

	"fallback-charset": "fallback_charset",
}

// Load reads the JSON file at path (optional when empty), then applies
// ENCPROBE_* environment variables and any of flags that were set. A file
// that does not exist leaves the defaults in place; check ConfigFileUsed.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	used := ""
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		err := v.ReadInConfig()
		var notFound viper.ConfigFileNotFoundError
		switch {
		case err == nil:
			used = v.ConfigFileUsed()
		case errors.Is(err, fs.ErrNotExist), errors.As(err, &notFound):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.ConfigFileUsed = used
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.MaxSniff < 0 {
		return fmt.Errorf("%w: max_sniff must not be negative", ErrInvalid)
	}
	if c.SampleSize < 0 {
		return fmt.Errorf("%w: sample_size must not be negative", ErrInvalid)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must not be negative", ErrInvalid)
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		PhysicalPath:      "F:\\",
		MountPoint:        "Z:",
		AllowedProcesses:  []string{"a.exe"},
		AllowedExtensions: []string{".txt", ".csv", ".log", ".ini", ".conf", ".properties", ".bas", ".cls", ".frm", ".vbp"},
		FallbackCharset:   "GB18030",
		Engine:            "chardet",
		MaxSniff:          64 * 1024,
		SampleSize:        4096,
		Concurrency:       4,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("physical_path", d.PhysicalPath)
	v.SetDefault("mount_point", d.MountPoint)
	v.SetDefault("allowed_processes", d.AllowedProcesses)
	v.SetDefault("allowed_extensions", d.AllowedExtensions)
	v.SetDefault("fallback_charset", d.FallbackCharset)
	v.SetDefault("engine", d.Engine)
	v.SetDefault("max_sniff", d.MaxSniff)
	v.SetDefault("sample_size", d.SampleSize)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Ning0612/prscatalog/internal/domain"
)

// EnvPrefix is prepended to every environment override, e.g. PRSCATALOG_BODY
const EnvPrefix = "PRSCATALOG"

// flagKeys maps config keys to the command-line flags that override them
var flagKeys = map[string]string{
	"body":           "body",
	"ms":             "ms",
	"sd":             "sd",
	"root":           "root",
	"sync":           "sync",
	"operations":     "ops",
	"partitions":     "partitions",
	"dry_run":        "dry-run",
	"log.level":      "log-level",
	"log.format":     "log-format",
	"log.file":       "log-file",
	"state.dir":      "state-dir",
	"state.disabled": "no-history",
}

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "prscatalog"))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "prscatalog"))
	}

	return paths
}

// Load merges defaults, an optional config file, PRSCATALOG_* environment
// variables and flags, in increasing precedence. If path is empty,
// prscatalog.yaml is searched in the default locations and may be absent.
// flags may be nil. Partition paths are not checked here; commands that
// touch the catalogs call Validate.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("prscatalog")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			// optional when searching
		case path != "" && errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	return decode(v)
}

// LoadFromString parses configuration from a YAML string
func LoadFromString(yamlContent string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("state.dir", DefaultStateDir())
	// Unmarshal only sees env values for keys viper already knows about
	for key := range flagKeys {
		_ = v.BindEnv(key)
	}
	return v
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for key, name := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	cfg.Body = ExpandPath(cfg.Body)
	cfg.MemoryStick = ExpandPath(cfg.MemoryStick)
	cfg.SD = ExpandPath(cfg.SD)
	cfg.Sync = ExpandPath(cfg.Sync)
	cfg.Log.File = ExpandPath(cfg.Log.File)
	cfg.State.Dir = ExpandPath(cfg.State.Dir)
	cfg.Operations = splitList(cfg.Operations)
	cfg.Partitions = splitList(cfg.Partitions)

	return &cfg, nil
}

// splitList accepts both YAML lists and comma-separated env values
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

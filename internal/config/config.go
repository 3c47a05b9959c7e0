package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Ning0612/prscatalog/internal/domain"
)

// Config represents the complete configuration for one run
type Config struct {
	// Partition mount points
	Body        string `mapstructure:"body"`
	MemoryStick string `mapstructure:"ms"`
	SD          string `mapstructure:"sd"`

	// Root is the media subpath shared by all partitions
	Root string `mapstructure:"root"`

	// Sync is an optional source tree copied onto the partitions first.
	// It holds one directory per partition: body, ms and sd.
	Sync string `mapstructure:"sync"`

	// Operations lists enabled phases. Empty enables every phase.
	// Partition names are accepted here too.
	Operations []string `mapstructure:"operations"`

	// Partitions lists partitions the phases apply to. Empty, with no
	// partition named in Operations, selects all of them.
	Partitions []string `mapstructure:"partitions"`

	DryRun bool `mapstructure:"dry_run"`

	Log   LogConfig   `mapstructure:"log"`
	State StateConfig `mapstructure:"state"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`

	// File enables a rotated log file in addition to stderr
	File string `mapstructure:"file"`
}

// StateConfig configures the run history store
type StateConfig struct {
	Dir      string `mapstructure:"dir"`
	Disabled bool   `mapstructure:"disabled"`
}

// Validate checks that every partition path is present and that all
// operation names are known
func (c *Config) Validate() error {
	missing := map[string]string{
		"body": c.Body,
		"ms":   c.MemoryStick,
		"sd":   c.SD,
		"root": c.Root,
	}
	for _, key := range []string{"body", "ms", "sd", "root"} {
		if missing[key] == "" {
			return fmt.Errorf("%w: %s path is required", domain.ErrConfigInvalid, key)
		}
	}

	if _, err := c.OpSet(); err != nil {
		return err
	}
	return nil
}

// PartitionRoots maps each role to its mount point
func (c *Config) PartitionRoots() map[domain.Role]string {
	return map[domain.Role]string{
		domain.RoleBody:        c.Body,
		domain.RoleMemoryStick: c.MemoryStick,
		domain.RoleSD:          c.SD,
	}
}

// OpSet resolves Operations and Partitions into the enabled set
func (c *Config) OpSet() (domain.OpSet, error) {
	named, err := domain.ParseOpSet(c.Operations)
	if err != nil {
		return nil, err
	}

	ops := domain.OpSet{}
	phases := 0
	roles := 0
	for op := range named {
		ops[op] = true
		if domain.Role(op).IsValid() {
			roles++
		} else {
			phases++
		}
	}

	for _, p := range c.Partitions {
		role, err := domain.ParseRole(p)
		if err != nil {
			return nil, err
		}
		ops[domain.Operation(role)] = true
		roles++
	}

	for _, op := range domain.DefaultOperations {
		isRole := domain.Role(op).IsValid()
		if (isRole && roles == 0) || (!isRole && phases == 0) {
			ops[op] = true
		}
	}

	if c.DryRun {
		ops = ops.Without(domain.OpSave, domain.OpCopy)
	}
	return ops, nil
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	// Expand ~ to home directory
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	// Expand environment variables
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}

// DefaultStateDir is where run history lives when state.dir is unset
func DefaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "prscatalog")
	}
	return ".prscatalog"
}

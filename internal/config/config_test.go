package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/Ning0612/prscatalog/internal/domain"
)

const validYAML = `
body: /mnt/reader
ms: /mnt/ms
sd: /mnt/sd
root: books
operations: [synchronize, title, sort, renumber, playlist, save]
partitions: [body, sd]
log:
  level: debug
state:
  disabled: true
`

func TestLoadFromString(t *testing.T) {
	cfg, err := LoadFromString(validYAML)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Body != "/mnt/reader" || cfg.MemoryStick != "/mnt/ms" || cfg.SD != "/mnt/sd" {
		t.Errorf("unexpected partitions: %+v", cfg)
	}
	if cfg.Root != "books" {
		t.Errorf("Root = %q, want books", cfg.Root)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if !cfg.State.Disabled {
		t.Error("expected history to be disabled")
	}

	ops, err := cfg.OpSet()
	if err != nil {
		t.Fatalf("OpSet() error = %v", err)
	}
	if ops.Has(domain.OpCopy) {
		t.Error("copy was not listed and must be disabled")
	}
	if !ops.Has(domain.OpSave) || !ops.Has(domain.Operation(domain.RoleSD)) {
		t.Errorf("unexpected op set: %s", ops)
	}
	if ops.Has(domain.Operation(domain.RoleMemoryStick)) {
		t.Error("ms was not listed and must be disabled")
	}
}

func TestValidate(t *testing.T) {
	base := Config{Body: "/b", MemoryStick: "/m", SD: "/s", Root: "books"}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing body", func(c *Config) { c.Body = "" }},
		{"missing ms", func(c *Config) { c.MemoryStick = "" }},
		{"missing sd", func(c *Config) { c.SD = "" }},
		{"missing root", func(c *Config) { c.Root = "" }},
		{"unknown operation", func(c *Config) { c.Operations = []string{"shuffle"} }},
		{"unknown partition", func(c *Config) { c.Partitions = []string{"cf"} }},
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, domain.ErrConfigInvalid) {
				t.Errorf("Validate() error = %v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestOpSet(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		enabled []domain.Operation
		absent  []domain.Operation
	}{
		{
			name:    "defaults enable everything",
			cfg:     Config{},
			enabled: domain.DefaultOperations,
		},
		{
			name:    "partition named in operations",
			cfg:     Config{Operations: []string{"memory-stick"}},
			enabled: []domain.Operation{domain.OpSync, domain.OpSave, domain.Operation(domain.RoleMemoryStick)},
			absent:  []domain.Operation{domain.Operation(domain.RoleBody), domain.Operation(domain.RoleSD)},
		},
		{
			name:    "dry run drops every write",
			cfg:     Config{DryRun: true, Sync: "/incoming"},
			enabled: []domain.Operation{domain.OpPlaylist, domain.OpSync},
			absent:  []domain.Operation{domain.OpSave, domain.OpCopy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := tt.cfg.OpSet()
			if err != nil {
				t.Fatalf("OpSet() error = %v", err)
			}
			for _, op := range tt.enabled {
				if !ops.Has(op) {
					t.Errorf("expected %s enabled in %s", op, ops)
				}
			}
			for _, op := range tt.absent {
				if ops.Has(op) {
					t.Errorf("expected %s disabled in %s", op, ops)
				}
			}
		})
	}
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prscatalog.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PRSCATALOG_SD", "/env/sd")
	t.Setenv("PRSCATALOG_LOG_FORMAT", "json")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("root", "", "")
	flags.Bool("dry-run", false, "")
	if err := flags.Parse([]string{"--root", "library", "--dry-run"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Body != "/mnt/reader" {
		t.Errorf("Body = %q, want value from file", cfg.Body)
	}
	if cfg.SD != "/env/sd" {
		t.Errorf("SD = %q, want value from env", cfg.SD)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if cfg.Root != "library" || !cfg.DryRun {
		t.Errorf("flags not applied: root=%q dry_run=%v", cfg.Root, cfg.DryRun)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Errorf("Load() error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoadFromString_Invalid(t *testing.T) {
	_, err := LoadFromString("body: [unterminated")
	if !errors.Is(err, domain.ErrConfigInvalid) {
		t.Errorf("LoadFromString() error = %v, want ErrConfigInvalid", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("PRS_TEST_DIR", "/data")

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"~", home},
		{"~/reader", filepath.Join(home, "reader")},
		{"$PRS_TEST_DIR/books/", filepath.Clean("/data/books")},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

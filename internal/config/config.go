package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/Lumos-Labs-HQ/mockdml/internal/database/common"
	"github.com/Lumos-Labs-HQ/mockdml/internal/types"
	"github.com/spf13/viper"
)

const FileName = "mockdml.config.yaml"

type Config struct {
	Version         string           `yaml:"version" mapstructure:"version"`
	Database        Database         `yaml:"database" mapstructure:"database"`
	Target          Target           `yaml:"target" mapstructure:"target"`
	Source          types.SourceSpec `yaml:"source,omitempty" mapstructure:"source"`
	OutputDir       string           `yaml:"output_dir" mapstructure:"output_dir"`
	BackupDir       string           `yaml:"backup_dir" mapstructure:"backup_dir"`
	Mode            string           `yaml:"mode" mapstructure:"mode"`
	Seed            int64            `yaml:"seed,omitempty" mapstructure:"seed"`
	ReferenceSample int              `yaml:"reference_sample" mapstructure:"reference_sample"`
	UniqueAttempts  int              `yaml:"unique_attempts" mapstructure:"unique_attempts"`
	KeyAttempts     int              `yaml:"key_attempts" mapstructure:"key_attempts"`
	Groups          []GroupConfig    `yaml:"groups" mapstructure:"groups"`
}

type Database struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	URLEnv   string `yaml:"url_env" mapstructure:"url_env"`
}

type Target struct {
	Schema string `yaml:"schema,omitempty" mapstructure:"schema"`
	Table  string `yaml:"table" mapstructure:"table"`
}

func (t Target) Name() string {
	if t.Schema == "" {
		return t.Table
	}
	return t.Schema + "." + t.Table
}

type GroupConfig struct {
	Name    string            `yaml:"name" mapstructure:"name"`
	Source  *types.SourceSpec `yaml:"source,omitempty" mapstructure:"source"`
	Insert  InsertConfig      `yaml:"insert" mapstructure:"insert"`
	Updates []UpdateConfig    `yaml:"updates,omitempty" mapstructure:"updates"`
}

type InsertConfig struct {
	Where   string   `yaml:"where,omitempty" mapstructure:"where"`
	Count   int      `yaml:"count" mapstructure:"count"`
	OrderBy []string `yaml:"order_by,omitempty" mapstructure:"order_by"`
}

type UpdateConfig struct {
	Where       string             `yaml:"where,omitempty" mapstructure:"where"`
	SourceWhere string             `yaml:"source_where,omitempty" mapstructure:"source_where"`
	Count       int                `yaml:"count" mapstructure:"count"`
	Set         []AssignmentConfig `yaml:"set,omitempty" mapstructure:"set"`
}

type AssignmentConfig struct {
	Column string   `yaml:"column" mapstructure:"column"`
	Values []string `yaml:"values,omitempty" mapstructure:"values"`
}

func Load() (*Config, error) {
	var cfg Config

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.Database.Provider == "" {
		c.Database.Provider = "postgresql"
	}
	if c.Database.URLEnv == "" {
		c.Database.URLEnv = "DATABASE_URL"
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.BackupDir == "" {
		c.BackupDir = "db_backup"
	}
	if c.Mode == "" {
		c.Mode = "script"
	}
	if c.ReferenceSample <= 0 {
		c.ReferenceSample = 100
	}
	if c.UniqueAttempts <= 0 {
		c.UniqueAttempts = 10
	}
	if c.KeyAttempts <= 0 {
		c.KeyAttempts = 5
	}
}

func (c *Config) GetDatabaseURL() (string, error) {
	dbURL := os.Getenv(c.Database.URLEnv)
	if dbURL == "" {
		return "", fmt.Errorf("database URL not found in environment variable %s", c.Database.URLEnv)
	}
	return dbURL, nil
}

func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.OutputDir, c.BackupDir} {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Validate checks the run-level settings. Group definitions are checked by BuildGroups.
func (c *Config) Validate() error {
	supportedProviders := []string{"postgresql", "postgres", "mysql", "sqlite", "sqlite3"}
	supported := false
	for _, provider := range supportedProviders {
		if c.Database.Provider == provider {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("%w: unsupported database provider: %s. Supported providers: %v", types.ErrInvalidConfig, c.Database.Provider, supportedProviders)
	}

	if c.Target.Table == "" {
		return fmt.Errorf("%w: target.table cannot be empty", types.ErrInvalidConfig)
	}
	if !common.IsValidIdentifier(c.Target.Name()) {
		return fmt.Errorf("%w: invalid target table: %s", types.ErrInvalidConfig, c.Target.Name())
	}
	if err := validateSource("source", c.Source); err != nil {
		return err
	}

	if c.Mode != "script" && c.Mode != "execute" {
		return fmt.Errorf("%w: mode must be script or execute, got %s", types.ErrInvalidConfig, c.Mode)
	}
	return nil
}

func validateSource(field string, src types.SourceSpec) error {
	if src.Table != "" && src.IsQuery() {
		return fmt.Errorf("%w: %s sets both table and query", types.ErrInvalidConfig, field)
	}
	if src.Table != "" && !common.IsValidIdentifier(src.Table) {
		return fmt.Errorf("%w: invalid %s table: %s", types.ErrInvalidConfig, field, src.Table)
	}
	return nil
}

// BuildGroups validates the group definitions and converts them for the engine.
func (c *Config) BuildGroups() ([]types.Group, error) {
	if len(c.Groups) == 0 {
		return nil, fmt.Errorf("%w: no groups configured", types.ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Groups))
	groups := make([]types.Group, 0, len(c.Groups))
	for i, gc := range c.Groups {
		name := strings.TrimSpace(gc.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: group %d has no name", types.ErrInvalidConfig, i+1)
		}
		if seen[strings.ToUpper(name)] {
			return nil, fmt.Errorf("%w: duplicate group name %s", types.ErrInvalidConfig, name)
		}
		seen[strings.ToUpper(name)] = true

		g, err := gc.build(name)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (gc GroupConfig) build(name string) (types.Group, error) {
	g := types.Group{
		Name: name,
		Insert: types.InsertSelection{
			Where:   strings.TrimSpace(gc.Insert.Where),
			Count:   gc.Insert.Count,
			OrderBy: gc.Insert.OrderBy,
		},
	}

	if gc.Source != nil && !gc.Source.IsZero() {
		if err := validateSource("group "+name+" source", *gc.Source); err != nil {
			return g, err
		}
		src := *gc.Source
		g.Source = &src
	}

	if gc.Insert.Count < 0 {
		return g, fmt.Errorf("%w: group %s insert count cannot be negative", types.ErrInvalidConfig, name)
	}
	for _, col := range gc.Insert.OrderBy {
		if !common.IsValidIdentifier(col) {
			return g, fmt.Errorf("%w: group %s: invalid order_by column %q", types.ErrInvalidConfig, name, col)
		}
	}

	for j, uc := range gc.Updates {
		if uc.Count < 0 {
			return g, fmt.Errorf("%w: group %s update %d count cannot be negative", types.ErrInvalidConfig, name, j+1)
		}
		upd := types.UpdateConfig{
			Where:       strings.TrimSpace(uc.Where),
			SourceWhere: strings.TrimSpace(uc.SourceWhere),
			Count:       uc.Count,
		}
		for _, a := range uc.Set {
			if !common.IsValidIdentifier(a.Column) || strings.Contains(a.Column, ".") {
				return g, fmt.Errorf("%w: group %s update %d: invalid column %q", types.ErrInvalidConfig, name, j+1, a.Column)
			}
			upd.Set = append(upd.Set, types.Assignment{Column: a.Column, Values: a.Values})
		}
		g.Updates = append(g.Updates, upd)
	}
	return g, nil
}

// IsInitialized reports whether a config file exists in the working directory.
func IsInitialized() bool {
	_, err := os.Stat(FileName)
	return err == nil
}

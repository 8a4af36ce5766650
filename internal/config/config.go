package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultBatchSize = 1000

type Config struct {
	MySQLDSN    string   `yaml:"mysql_dsn"`
	PostgresDSN string   `yaml:"postgres_dsn"`
	BatchSize   int      `yaml:"batch_size"`
	Tables      []string `yaml:"tables"`
	SkipTables  []string `yaml:"skip_tables"`
	JSON        bool     `yaml:"json"`
	DryRun      bool     `yaml:"dry_run"`
	AssumeYes   bool     `yaml:"assume_yes"`
}

func Default() *Config {
	return &Config{
		BatchSize: DefaultBatchSize,
	}
}

func LoadYAML(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// MergeEnv overlays environment variables on top of cfg.
// DATABASE_URL is accepted as a fallback for the Postgres side.
func MergeEnv(cfg *Config) *Config {
	if v := os.Getenv("DATABASE_MYSQL_URL"); v != "" {
		cfg.MySQLDSN = v
	}
	if v := os.Getenv("DATABASE_POSTGRES_URL"); v != "" {
		cfg.PostgresDSN = v
	} else if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = os.Getenv("DATABASE_URL")
	}
	if v := os.Getenv("COPY_BATCH_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.BatchSize = i
		}
	}
	return cfg
}

func (c *Config) ValidateCopy() error {
	if c.MySQLDSN == "" {
		return errors.New("mysql DSN is required (--mysql-url or DATABASE_MYSQL_URL)")
	}
	if err := c.ValidatePostgres(); err != nil {
		return err
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

func (c *Config) ValidatePostgres() error {
	if c.PostgresDSN == "" {
		return errors.New("postgres DSN is required (--postgres-url, DATABASE_POSTGRES_URL or DATABASE_URL)")
	}
	if !strings.HasPrefix(c.PostgresDSN, "postgres://") && !strings.HasPrefix(c.PostgresDSN, "postgresql://") {
		return errors.New("postgres DSN must start with postgres:// or postgresql://")
	}
	return nil
}

// SplitTables parses a comma-separated flag value into table names.
func SplitTables(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

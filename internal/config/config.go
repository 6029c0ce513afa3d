package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Backends selectable with BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// ReferenceDateLayout is the format of REFERENCE_DATE.
const ReferenceDateLayout = "2006-01-02"

type Config struct {
	Env           string `mapstructure:"ENV"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFormat     string `mapstructure:"LOG_FORMAT"`
	Backend       string `mapstructure:"BACKEND"`
	PatientFile   string `mapstructure:"PATIENT_FILE"`
	LabFile       string `mapstructure:"LAB_FILE"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	ReferenceDate string `mapstructure:"REFERENCE_DATE"`
}

// Load reads configuration from the environment and an optional .env file in
// the working directory. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
	v.SetDefault("BACKEND", BackendMemory)
	v.SetDefault("PATIENT_FILE", "PatientData.txt")
	v.SetDefault("LAB_FILE", "LabData.txt")
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("REFERENCE_DATE", "")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("LOG_FORMAT")
	v.BindEnv("BACKEND")
	v.BindEnv("PATIENT_FILE")
	v.BindEnv("LAB_FILE")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REFERENCE_DATE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ResolvedLogFormat returns LOG_FORMAT when set, otherwise "console" in
// development and "json" elsewhere.
func (c *Config) ResolvedLogFormat() string {
	if c.LogFormat != "" {
		return c.LogFormat
	}
	if c.IsDev() {
		return "console"
	}
	return "json"
}

// AsOf returns the reference date for age calculations, or the zero time when
// REFERENCE_DATE is unset and the current date should be used.
func (c *Config) AsOf() (time.Time, error) {
	if c.ReferenceDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(ReferenceDateLayout, c.ReferenceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("REFERENCE_DATE must be YYYY-MM-DD, got %q", c.ReferenceDate)
	}
	return t, nil
}

// Validate checks that the configuration can be acted on. DATABASE_URL is
// only required for the postgres backend.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when BACKEND is %q", BackendPostgres)
		}
	default:
		return fmt.Errorf("BACKEND must be %q or %q, got %q", BackendMemory, BackendPostgres, c.Backend)
	}

	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1, got %d", c.DBMaxConns)
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS (%d), got %d", c.DBMaxConns, c.DBMinConns)
	}

	switch c.ResolvedLogFormat() {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be \"json\" or \"console\", got %q", c.LogFormat)
	}

	if _, err := c.AsOf(); err != nil {
		return err
	}
	return nil
}

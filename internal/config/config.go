package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database DatabaseConfig  `mapstructure:"database"`
	Audit    AuditConfig     `mapstructure:"audit"`
	Carriers []CarrierConfig `mapstructure:"carriers"`
	Report   ReportConfig    `mapstructure:"report"`
	Logger   LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// AuditConfig holds background audit worker configuration
type AuditConfig struct {
	WorkerEnabled bool          `mapstructure:"worker_enabled"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	BatchLimit    int           `mapstructure:"batch_limit"`
}

// CarrierConfig holds the per-program audit policy knobs. Programs not
// listed here audit with built-in defaults.
type CarrierConfig struct {
	Program                 string            `mapstructure:"program"`
	PassTolerancePercent    float64           `mapstructure:"pass_tolerance_percent"`
	ReviewTolerancePercent  float64           `mapstructure:"review_tolerance_percent"`
	HeavyWeightThresholdKg  float64           `mapstructure:"heavy_weight_threshold_kg"`
	TaxRatePercent          float64           `mapstructure:"tax_rate_percent"`
	FuelPassThrough         bool              `mapstructure:"fuel_pass_through"`
	FuelDefaultRatePercent  float64           `mapstructure:"fuel_default_rate_percent"`
	CustomerBenefitOverride *bool             `mapstructure:"customer_benefit_override"`
	ZoneAliases             map[string]string `mapstructure:"zone_aliases"`
}

// ReportConfig holds xlsx report export configuration
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/freight_audit.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Audit worker defaults
	viper.SetDefault("audit.worker_enabled", true)
	viper.SetDefault("audit.poll_interval", 5*time.Minute)
	viper.SetDefault("audit.batch_limit", 100)

	// Report defaults
	viper.SetDefault("report.output_dir", "reports")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("database.path", "FREIGHT_AUDIT_DB_PATH")
	viper.BindEnv("server.port", "FREIGHT_AUDIT_PORT")
	viper.BindEnv("logger.level", "FREIGHT_AUDIT_LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535")
	}
	if c.Audit.BatchLimit < 0 {
		return fmt.Errorf("audit.batch_limit must be >= 0")
	}
	if c.Audit.WorkerEnabled && c.Audit.PollInterval <= 0 {
		return fmt.Errorf("audit.poll_interval must be > 0 when the worker is enabled")
	}

	seen := make(map[string]bool, len(c.Carriers))
	for i, carrier := range c.Carriers {
		if carrier.Program == "" {
			return fmt.Errorf("carriers[%d].program is required", i)
		}
		if seen[carrier.Program] {
			return fmt.Errorf("duplicate carrier program %q", carrier.Program)
		}
		seen[carrier.Program] = true
	}
	return nil
}

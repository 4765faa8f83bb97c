package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	GitLab    GitLabConfig    `mapstructure:"gitlab"`
	Forgejo   ForgejoConfig   `mapstructure:"forgejo"`
	Migration MigrationConfig `mapstructure:"migration"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Report    ReportConfig    `mapstructure:"report"`
}

// GitLabConfig defines the source system connection
type GitLabConfig struct {
	URL   string `mapstructure:"url"`   // Instance URL (e.g. "https://gitlab.example.com")
	Token string `mapstructure:"token"` // Personal access token with read_api scope
}

// ForgejoConfig defines the target system connection
type ForgejoConfig struct {
	URL   string `mapstructure:"url"`   // Instance URL; "/api/v1" is appended by the client
	Token string `mapstructure:"token"` // Admin token (Sudo impersonation requires admin)
}

// MigrationConfig tunes the reconciliation engine
type MigrationConfig struct {
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"` // default API timeout
	MigrateTimeoutSeconds int    `mapstructure:"migrate_timeout_seconds"` // repo migrate call only
	MigrateAttempts       int    `mapstructure:"migrate_attempts"`        // timeout retries for repo migrate
	MinAccessLevel        int    `mapstructure:"min_access_level"`        // GitLab access level for project eligibility
	PlaceholderDomain     string `mapstructure:"placeholder_domain"`      // synthesized email domain
	ImporterUsername      string `mapstructure:"importer_username"`       // fallback issue author
	EmailCacheSize        int    `mapstructure:"email_cache_size"`        // bound on the per-run email memo
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"` // "json" or "text"
	OutputFile string `mapstructure:"output_file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// ReportConfig defines the optional run-report store. The engine only ever
// appends to it; re-runs never read it back.
type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Type    string `mapstructure:"type"` // "sqlite" or "postgres"
	DSN     string `mapstructure:"dsn"`
}

func Load() (*Config, error) {
	// .env is optional, ignore a missing file
	_ = gotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("G2F")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A config file is optional as long as the environment provides
		// the required settings.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	// Empty defaults register the keys so AutomaticEnv can resolve them
	// when no config file is present.
	viper.SetDefault("gitlab.url", "")
	viper.SetDefault("gitlab.token", "")
	viper.SetDefault("forgejo.url", "")
	viper.SetDefault("forgejo.token", "")
	viper.SetDefault("migration.request_timeout_seconds", 30)
	viper.SetDefault("migration.migrate_timeout_seconds", 1800)
	viper.SetDefault("migration.migrate_attempts", 3)
	viper.SetDefault("migration.min_access_level", 30)
	viper.SetDefault("migration.placeholder_domain", "noemail-git.local")
	viper.SetDefault("migration.importer_username", "forgejo-importer")
	viper.SetDefault("migration.email_cache_size", 10000)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output_file", "./logs/migration.log")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("report.enabled", false)
	viper.SetDefault("report.type", "sqlite")
	viper.SetDefault("report.dsn", "./data/migration-report.db")
}

// Validate reports missing required settings. These are the only fatal
// errors of the whole run: nothing has been migrated yet.
func (c *Config) Validate() error {
	var missing []string
	if c.GitLab.URL == "" {
		missing = append(missing, "gitlab.url")
	}
	if c.GitLab.Token == "" {
		missing = append(missing, "gitlab.token")
	}
	if c.Forgejo.URL == "" {
		missing = append(missing, "forgejo.url")
	}
	if c.Forgejo.Token == "" {
		missing = append(missing, "forgejo.token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	if c.Migration.MigrateAttempts < 1 {
		return fmt.Errorf("migration.migrate_attempts must be at least 1, got %d", c.Migration.MigrateAttempts)
	}
	if c.Report.Enabled {
		switch c.Report.Type {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("unsupported report.type %q (want sqlite or postgres)", c.Report.Type)
		}
	}
	return nil
}

package internal

import (
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Vault     VaultConfig       `yaml:"vault"`
	Schema    SchemaConfig      `yaml:"schema"`
	Catalog   CatalogConfig     `yaml:"catalog"`
	Resolvers ResolversConfig   `yaml:"resolvers"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	return c.Resolvers.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	Workers  int        `yaml:"workers"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	// Normalise unset workers to the default before range-checking.
	if c.Workers == 0 {
		c.Workers = 4
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// VaultConfig holds the path to the vault directory and the media
// extensions that get reference notes generated.
type VaultConfig struct {
	Path            string   `yaml:"path"`
	MediaExtensions []string `yaml:"media_extensions"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MediaExtensions, validation.Each(validation.Required)),
	)
}

// SchemaConfig holds the path to the template-type schema file. An empty
// path selects the built-in schema.
type SchemaConfig struct {
	Path string `yaml:"path"`
}

// CatalogConfig holds SQLite catalog configuration.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ResolversConfig holds field-resolver configuration: a directory of
// compiled resolver plugins and inline expression resolvers keyed by
// registration name.
type ResolversConfig struct {
	PluginDir   string            `yaml:"plugin_dir"`
	Expressions map[string]string `yaml:"expressions"`
}

// Validate validates the resolvers configuration.
func (c *ResolversConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Expressions, validation.Each(validation.Required)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			Workers:  4,
		},
		Vault: VaultConfig{
			Path:            "./vault",
			MediaExtensions: []string{".pdf", ".mp4", ".mov", ".mkv", ".webm"},
		},
		Catalog: CatalogConfig{
			Path: "./othala.db",
		},
	}
}

package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
)

const envPrefix = "SKUMATCH"

// UIConfig configures the browser UI and the terminal client.
type UIConfig struct {
	Port  string `envconfig:"PORT" default:"8090"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	ProcessURL     string        `envconfig:"PROCESS_URL" default:"http://localhost:5001"`
	SearchURL      string        `envconfig:"SEARCH_URL" default:"http://localhost:5000"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"2h"`
}

// BackendConfig configures the collaborator services.
type BackendConfig struct {
	Port  string `envconfig:"PORT" default:"5000"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL   string `envconfig:"DATABASE_URL" required:"true"`
	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"migrations"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"skumatch"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	MappingFile       string        `envconfig:"MAPPING_FILE" default:"mappings.json"`
	SearchLimit       int           `envconfig:"SEARCH_LIMIT" default:"10"`
	SearchConcurrency int           `envconfig:"SEARCH_CONCURRENCY" default:"4"`
	EmbedInterval     time.Duration `envconfig:"EMBED_INTERVAL" default:"10s"`
}

// LoadUI reads UIConfig from the environment, after a best-effort .env load.
func LoadUI() (*UIConfig, error) {
	_ = godotenv.Load()

	var cfg UIConfig
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}

// LoadBackend reads BackendConfig from the environment, after a best-effort
// .env load.
func LoadBackend() (*BackendConfig, error) {
	_ = godotenv.Load()

	var cfg BackendConfig
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.SearchLimit <= 0 {
		return nil, fmt.Errorf("SEARCH_LIMIT must be positive, got %d", cfg.SearchLimit)
	}
	if cfg.SearchConcurrency <= 0 {
		return nil, fmt.Errorf("SEARCH_CONCURRENCY must be positive, got %d", cfg.SearchConcurrency)
	}
	return &cfg, nil
}

func (c *BackendConfig) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *BackendConfig) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// RegisterUIFlags declares the command-line overrides for UIConfig.
func RegisterUIFlags(fs *pflag.FlagSet) {
	fs.StringP("port", "p", "", "Port to listen on")
	RegisterCollaboratorFlags(fs)
}

// RegisterCollaboratorFlags declares the collaborator location overrides
// shared by every command that runs the matching flow.
func RegisterCollaboratorFlags(fs *pflag.FlagSet) {
	fs.String("process-url", "", "Base URL of the PDF processing service")
	fs.String("search-url", "", "Base URL of the search and save service")
	fs.Duration("timeout", 0, "Timeout for each collaborator request")
}

// ApplyFlags overrides fields whose flags were set explicitly. Flags that
// were not registered on fs are ignored.
func (c *UIConfig) ApplyFlags(fs *pflag.FlagSet) {
	setString(fs, "port", &c.Port)
	setString(fs, "process-url", &c.ProcessURL)
	setString(fs, "search-url", &c.SearchURL)
	setDuration(fs, "timeout", &c.RequestTimeout)
}

// RegisterBackendFlags declares the command-line overrides for BackendConfig.
func RegisterBackendFlags(fs *pflag.FlagSet) {
	fs.StringP("port", "p", "", "Port to listen on")
	fs.String("migrations", "", "Directory holding the SQL migrations")
	fs.String("mapping-file", "", "File the latest saved mapping is written to")
	fs.Int("search-limit", 0, "Maximum matches returned per line item")
}

// ApplyFlags overrides fields whose flags were set explicitly.
func (c *BackendConfig) ApplyFlags(fs *pflag.FlagSet) {
	setString(fs, "port", &c.Port)
	setString(fs, "migrations", &c.MigrationsDir)
	setString(fs, "mapping-file", &c.MappingFile)
	if fs.Lookup("search-limit") != nil && fs.Changed("search-limit") {
		if v, err := fs.GetInt("search-limit"); err == nil && v > 0 {
			c.SearchLimit = v
		}
	}
}

func setString(fs *pflag.FlagSet, name string, dst *string) {
	if fs.Lookup(name) == nil || !fs.Changed(name) {
		return
	}
	if v, err := fs.GetString(name); err == nil {
		*dst = v
	}
}

func setDuration(fs *pflag.FlagSet, name string, dst *time.Duration) {
	if fs.Lookup(name) == nil || !fs.Changed(name) {
		return
	}
	if v, err := fs.GetDuration(name); err == nil {
		*dst = v
	}
}

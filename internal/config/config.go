// Package config loads the pipeline configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix shared by every option.
const Prefix = "labpulse"

// Source selects which GitHub API the extractor talks to.
type Source string

const (
	SourceREST    Source = "rest"
	SourceGraphQL Source = "graphql"
)

// Config is passed explicitly into every component at construction time.
type Config struct {
	// RepoOwner and RepoName identify the single repository whose commits are pulled.
	RepoOwner string `split_words:"true" validate:"required"`
	RepoName  string `split_words:"true" validate:"required"`

	// GitHubToken is the bearer credential for the API. LABPULSE_GITHUB_TOKEN wins,
	// a plain GITHUB_TOKEN is accepted as well.
	GitHubToken string `envconfig:"GITHUB_TOKEN" validate:"required"`

	// DBPath is the filesystem path of the SQLite store.
	DBPath string `split_words:"true" default:"data/labpulse.db" validate:"required"`

	// Lookback is subtracted from the run reference time to get the window start.
	Lookback time.Duration `default:"24h" validate:"gt=0"`

	// RetryAttempts counts the first attempt too: 3 means two retries.
	RetryAttempts uint          `split_words:"true" default:"3" validate:"min=1"`
	RetryDelay    time.Duration `split_words:"true" default:"5m" validate:"gte=0"`

	Source Source `default:"rest" validate:"oneof=rest graphql"`

	// APIBaseURL points the clients at a GitHub Enterprise host. Empty means github.com.
	APIBaseURL string `split_words:"true" validate:"omitempty,url"`

	// Schedule is the cron spec used by the schedule command.
	Schedule    string `default:"@daily" validate:"required"`
	MetricsAddr string `split_words:"true" default:":9090"`

	LogFormat string `split_words:"true" default:"console" validate:"oneof=console json"`
	LogFile   string `split_words:"true"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads envFile (if it exists) into the process environment and then parses Config from it.
// A missing envFile is not an error. Every field is validated.
func Load(envFile string) (*Config, error) {
	cfg, err := parse(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// storeFields are the only fields commands that just read the local store depend on.
var storeFields = []string{"DBPath", "LogFormat"}

// LoadStore is Load for commands that never reach GitHub: repository and token may be unset.
func LoadStore(envFile string) (*Config, error) {
	cfg, err := parse(envFile)
	if err != nil {
		return nil, err
	}
	if err := validate.StructPartial(cfg, storeFields...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parse(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the field constraints declared on Config.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Usage prints the recognised environment variables.
func Usage() error {
	return envconfig.Usage(Prefix, &Config{})
}

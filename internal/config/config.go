// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config assembles a PipelineConfig from defaults, a YAML config
// file, a .env file, environment variables and the .secrets/ directory.
//
// Precedence, highest first: bound command flags, environment, config file,
// secrets files (credentials only), defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/fda-label-loader/internal/httputil"
	"github.com/pdiddy/fda-label-loader/internal/openfda"
	"github.com/pdiddy/fda-label-loader/internal/secrets"
	"github.com/pdiddy/fda-label-loader/internal/store"
	"github.com/pdiddy/fda-label-loader/pkg/types"
)

const (
	// EnvPrefix prefixes every non-credential environment variable,
	// e.g. FDA_LOADER_SOURCE_PAGE_SIZE.
	EnvPrefix = "FDA_LOADER"

	// ConfigName is the config file base name looked up by the CLI.
	ConfigName = "fda-loader"

	// SecretsDir is the default credentials directory.
	SecretsDir = ".secrets/"

	// MaxPageSize is the largest limit openFDA accepts.
	MaxPageSize = 1000

	DefaultUserAgent         = "fda-label-loader/0.1"
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerMinute = 240
	DefaultLogDir            = "logs"
)

// ErrMissingCredential is returned by Validate when a required database
// credential is unset.
var ErrMissingCredential = errors.New("missing database credential")

// ErrInvalid is returned by Validate for out-of-range settings.
var ErrInvalid = errors.New("invalid configuration")

// credentialEnv maps viper keys to the unprefixed variables the deployment
// already sets.
var credentialEnv = map[string]string{
	"database.server":   "DB_SERVER",
	"database.name":     "DB_NAME",
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"source.api_key":    "OPENFDA_API_KEY",
}

// SetDefaults registers default values for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", openfda.DefaultBaseURL)
	v.SetDefault("source.search", openfda.DefaultSearch)
	v.SetDefault("source.page_size", openfda.DefaultPageSize)
	v.SetDefault("source.requests_per_minute", DefaultRequestsPerMinute)

	v.SetDefault("http.timeout", DefaultTimeout)
	v.SetDefault("http.user_agent", DefaultUserAgent)

	v.SetDefault("retry.max_attempts", httputil.DefaultMaxAttempts)
	v.SetDefault("retry.base_delay", httputil.DefaultBaseDelay)

	v.SetDefault("database.driver", string(types.DriverSQLServer))
	v.SetDefault("database.table", store.DefaultTable)
	v.SetDefault("database.flush_every", 0)
	v.SetDefault("database.connect_timeout", DefaultTimeout)

	v.SetDefault("log.dir", DefaultLogDir)
	v.SetDefault("log.level", "info")

	v.SetDefault("report.path", "")
	v.SetDefault("metrics.path", "")
}

// BindEnv wires the FDA_LOADER_ prefix for all keys and the unprefixed
// credential variables.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range credentialEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return fmt.Errorf("binding %s: %w", env, err)
		}
	}
	return nil
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load decodes v into a PipelineConfig and fills empty credentials from
// the secrets set. It does not validate; call Validate before connecting.
func Load(v *viper.Viper, sec secrets.Set, log *zap.Logger) (types.PipelineConfig, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg.ReportPath = v.GetString("report.path")
	cfg.MetricsPath = v.GetString("metrics.path")

	db := &cfg.Database
	filled := map[string]bool{
		secrets.DBServer:      sec.Fill(&db.Server, secrets.DBServer),
		secrets.DBName:        sec.Fill(&db.Name, secrets.DBName),
		secrets.DBUser:        sec.Fill(&db.User, secrets.DBUser),
		secrets.DBPassword:    sec.Fill(&db.Password, secrets.DBPassword),
		secrets.OpenFDAAPIKey: sec.Fill(&cfg.Source.APIKey, secrets.OpenFDAAPIKey),
	}
	for name, ok := range filled {
		if ok {
			log.Debug("credential taken from secrets directory", zap.String("name", name))
		}
	}
	return cfg, nil
}

// Validate reports every missing credential at once, then checks ranges.
// SQLite needs only a database name, which is a file path.
func Validate(cfg types.PipelineConfig) error {
	db := cfg.Database
	type credential struct{ env, value string }
	var required []credential
	switch db.Driver {
	case types.DriverSQLite:
		required = []credential{{"DB_NAME", db.Name}}
	case types.DriverSQLServer, types.DriverPostgres, "":
		required = []credential{
			{"DB_SERVER", db.Server},
			{"DB_NAME", db.Name},
			{"DB_USER", db.User},
			{"DB_PASSWORD", db.Password},
		}
	default:
		return fmt.Errorf("%w: unsupported database driver %q", ErrInvalid, db.Driver)
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}

	if err := store.ValidateTable(db.Table); err != nil {
		return err
	}
	if db.FlushEvery < 0 {
		return fmt.Errorf("%w: database.flush_every must not be negative", ErrInvalid)
	}
	return ValidateSource(cfg)
}

// ValidateSource checks the settings a pull needs. Dry runs use it alone
// since they never touch the database.
func ValidateSource(cfg types.PipelineConfig) error {
	if cfg.Source.BaseURL == "" {
		return fmt.Errorf("%w: source.base_url is empty", ErrInvalid)
	}
	if cfg.Source.PageSize < 1 || cfg.Source.PageSize > MaxPageSize {
		return fmt.Errorf("%w: source.page_size must be between 1 and %d, got %d", ErrInvalid, MaxPageSize, cfg.Source.PageSize)
	}
	if cfg.Source.RequestsPerMinute < 0 {
		return fmt.Errorf("%w: source.requests_per_minute must not be negative", ErrInvalid)
	}
	if cfg.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1", ErrInvalid)
	}
	if cfg.Retry.BaseDelay < 0 {
		return fmt.Errorf("%w: retry.base_delay must not be negative", ErrInvalid)
	}
	return nil
}

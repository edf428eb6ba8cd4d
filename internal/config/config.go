// Package config loads serverless-workshop settings.
//
// Settings come from, in increasing order of precedence:
//   - built-in defaults
//   - workshop.yaml in the working directory (optional)
//   - the optional .env.local file (loaded into the process environment
//     without overriding variables that are already set)
//   - the process environment
//
// The environment variable names match the ones the workshop's deployment
// script reads (SENTIMENT_APP_NAME, MAX_CONCURRENT_REQUESTS), so one
// .env.local customizes both the deployed app and the local tooling.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultEnvFile               = ".env.local"
	DefaultAppName               = "sentiment-analyzer"
	DefaultMaxConcurrentRequests = 10
	DefaultPython                = "python3"
	DefaultPlatformBin           = "modal"
	DefaultListenAddr            = "127.0.0.1:8000"
	DefaultRequestTimeout        = 300 * time.Second
	DefaultDeployFile            = "sentiment_api.py"
)

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"app_name":                "SENTIMENT_APP_NAME",
	"max_concurrent_requests": "MAX_CONCURRENT_REQUESTS",
	"endpoint_url":            "SENTIMENT_ENDPOINT_URL",
	"python":                  "WORKSHOP_PYTHON",
	"platform_bin":            "MODAL_BIN",
	"listen_addr":             "WORKSHOP_LISTEN_ADDR",
	"request_timeout":         "WORKSHOP_REQUEST_TIMEOUT",
	"deploy_file":             "WORKSHOP_DEPLOY_FILE",
}

// Config holds the resolved settings.
type Config struct {
	AppName               string        `mapstructure:"app_name"`
	MaxConcurrentRequests int           `mapstructure:"max_concurrent_requests"`
	EndpointURL           string        `mapstructure:"endpoint_url"`
	Python                string        `mapstructure:"python"`
	PlatformBin           string        `mapstructure:"platform_bin"`
	ListenAddr            string        `mapstructure:"listen_addr"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout"`
	DeployFile            string        `mapstructure:"deploy_file"`

	// EnvFile is the path of the optional environment file.
	EnvFile string `mapstructure:"-"`

	// EnvFileLoaded reports whether EnvFile existed and was loaded.
	EnvFileLoaded bool `mapstructure:"-"`

	// ConfigFile is the workshop.yaml that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// Options control where Load looks for files.
type Options struct {
	// Dir is the directory searched for workshop.yaml and the env file.
	// Empty means the current working directory.
	Dir string

	// EnvFile overrides the env file name. Empty means DefaultEnvFile.
	// Relative paths are resolved against Dir.
	EnvFile string
}

// Load resolves the configuration.
//
// The env file is applied first, straight into the process environment,
// so viper's environment bindings see its values exactly like exported
// variables. The returned Config has passed Validate.
//
// Errors:
//   - the env file exists but is a directory or cannot be parsed
//   - workshop.yaml exists but is not valid YAML
//   - a value has the wrong type (e.g. MAX_CONCURRENT_REQUESTS=lots)
//   - a value is out of range (see Validate)
//
// Commands that must run regardless use Defaults as the fallback.
func Load(opts Options) (*Config, error) {
	dir, envFile, err := resolvePaths(opts)
	if err != nil {
		return nil, err
	}

	loaded, err := LoadEnvFile(envFile)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("workshop")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("app_name", DefaultAppName)
	v.SetDefault("max_concurrent_requests", DefaultMaxConcurrentRequests)
	v.SetDefault("endpoint_url", "")
	v.SetDefault("python", DefaultPython)
	v.SetDefault("platform_bin", DefaultPlatformBin)
	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("deploy_file", DefaultDeployFile)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.EnvFile = envFile
	cfg.EnvFileLoaded = loaded
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Defaults returns the built-in settings with EnvFile resolved the same
// way Load resolves it. Commands that must keep going when Load fails
// (setup treats the env file as optional) fall back to this.
func Defaults(opts Options) *Config {
	_, envFile, err := resolvePaths(opts)
	if err != nil {
		envFile = opts.EnvFile
		if envFile == "" {
			envFile = DefaultEnvFile
		}
	}
	return &Config{
		AppName:               DefaultAppName,
		MaxConcurrentRequests: DefaultMaxConcurrentRequests,
		Python:                DefaultPython,
		PlatformBin:           DefaultPlatformBin,
		ListenAddr:            DefaultListenAddr,
		RequestTimeout:        DefaultRequestTimeout,
		DeployFile:            DefaultDeployFile,
		EnvFile:               envFile,
	}
}

// resolvePaths returns the search directory and the absolute env file path.
func resolvePaths(opts Options) (dir, envFile string, err error) {
	dir = opts.Dir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return "", "", fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	envFile = opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(dir, envFile)
	}
	return dir, envFile, nil
}

// Validate checks value ranges that viper cannot express.
func (c *Config) Validate() error {
	if c.MaxConcurrentRequests < 1 {
		return fmt.Errorf("max_concurrent_requests must be at least 1, got %d", c.MaxConcurrentRequests)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.AppName == "" {
		return errors.New("app_name must not be empty")
	}
	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set are left untouched. A missing file is not
// an error; the boolean reports whether the file existed.
func LoadEnvFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return true, nil
}

// DeployEnv returns the KEY=VALUE pairs passed to the deploy process so the
// deployed app sees the same name and limits as the local tooling.
func (c *Config) DeployEnv() []string {
	return []string{
		envBindings["app_name"] + "=" + c.AppName,
		fmt.Sprintf("%s=%d", envBindings["max_concurrent_requests"], c.MaxConcurrentRequests),
	}
}

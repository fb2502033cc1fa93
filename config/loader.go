package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	goerrors "github.com/kbukum/crudkit/errors"
	"github.com/kbukum/crudkit/logger"
)

// LoaderConfig holds the options of LoadConfig.
type LoaderConfig struct {
	// ConfigFile is read instead of searching; it must exist.
	ConfigFile string
	// EnvFile is loaded into the process environment instead of searching.
	EnvFile string
	// EnvPrefix limits environment binding to PREFIX_* variables and strips
	// the prefix. Empty binds every variable.
	EnvPrefix string
	// SearchDirs are tried in order for <service>.yml, config.yml and .env
	// files. Defaults to DefaultSearchDirs.
	SearchDirs []string
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix binds only variables starting with prefix + "_".
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = strings.ToUpper(strings.TrimSuffix(prefix, "_")) }
}

// WithSearchDirs replaces the directories searched for config files.
func WithSearchDirs(dirs ...string) LoaderOption {
	return func(lc *LoaderConfig) { lc.SearchDirs = dirs }
}

// DefaultSearchDirs returns the working directory followed by the user
// config directory for service, e.g. ~/.config/crudctl.
func DefaultSearchDirs(service string) []string {
	dirs := []string{"."}
	if base, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(base, service))
	}
	return dirs
}

// LoadConfig fills cfg from, in increasing precedence: a YAML config file,
// a .env file and the process environment. A missing search result is not
// an error; a missing explicit file is.
func LoadConfig(service string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.SearchDirs == nil {
		lc.SearchDirs = DefaultSearchDirs(service)
	}
	log := logger.Get("config")

	v := viper.New()
	configFile, err := lc.resolve(lc.ConfigFile, service+".yml", "config.yml")
	if err != nil {
		return err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return goerrors.InvalidInput("config", "cannot read "+configFile).WithCause(err)
		}
		log.Debug("config file loaded", logger.Fields("file", configFile))
	}

	envFile, err := lc.resolve(lc.EnvFile, ".env."+service, ".env")
	if err != nil {
		return err
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Warn("env file not loaded", logger.Fields("file", envFile, logger.FieldError, err.Error()))
		}
	}

	bindEnv(v, os.Environ(), lc.EnvPrefix)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config %s: %w", service, err)
	}
	return nil
}

// resolve returns explicit if set, after checking that it exists, or the
// first candidate found in the search directories.
func (lc *LoaderConfig) resolve(explicit string, candidates ...string) (string, error) {
	if explicit != "" {
		if !exists(explicit) {
			return "", goerrors.NotFound("config file", explicit)
		}
		return explicit, nil
	}
	for _, dir := range lc.SearchDirs {
		for _, name := range candidates {
			if path := filepath.Join(dir, name); exists(path) {
				return path, nil
			}
		}
	}
	return "", nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// bindEnv sets every matching variable under each nested key it may name.
// Values set this way take precedence over the config file.
func bindEnv(v *viper.Viper, environ []string, prefix string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if prefix != "" {
			var found bool
			if key, found = strings.CutPrefix(key, prefix+"_"); !found {
				continue
			}
		}
		for _, k := range envKeyVariants(key) {
			v.Set(k, value)
		}
	}
}

// envKeyVariants lists the keys an underscore-separated variable can stand
// for, since underscores separate both nesting levels and words:
//
//	CLIENT_BASE_URL -> client_base_url, client.base_url, client.base.url
func envKeyVariants(envKey string) []string {
	parts := strings.Split(strings.ToLower(envKey), "_")
	if len(parts) == 1 {
		return parts
	}
	variants := []string{strings.Join(parts, "_")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	return variants
}

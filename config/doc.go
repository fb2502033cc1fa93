// Package config loads tool configuration with Viper.
//
// Sources, later ones winning: a YAML file, a .env file, then the process
// environment. Without an explicit path LoadConfig looks for <service>.yml
// or config.yml in the working directory and in the user config directory.
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Client httpclient.Config `yaml:"client" mapstructure:"client"`
//	}
//
//	var cfg Config
//	err := config.LoadConfig("crudctl", &cfg, config.WithEnvPrefix("CRUDCTL"))
//
// Underscores in variable names may separate nesting levels or words, so
// CRUDCTL_CLIENT_BASE_URL sets client.base_url.
package config

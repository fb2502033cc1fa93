package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kbukum/crudkit/httpclient"
	"github.com/kbukum/crudkit/validation"
)

var outputFormats = []string{"table", "json", "yaml"}

// NewRootCommand creates the crudctl command tree. Every flag can also be
// set through a CRUDCTL_ environment variable, e.g. CRUDCTL_BASE_URL.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "crudctl",
		Short: "Read, write, update and delete HTTP resources",
		Long: `crudctl performs single CRUD exchanges against HTTP resources.

Each command sends one request with the default template from the config
file overlaid by flags, prints the response and releases it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringP("config", "c", "", "config file (default: search for crudctl config.yml)")
	f.StringSlice("base-url", nil, "base URL for relative addresses; repeat to balance over several")
	f.StringArrayP("header", "H", nil, "request header as name=value (repeatable)")
	f.StringSlice("accept", nil, "accepted media types, e.g. application/json")
	f.String("content-type", "", "media type of the request body")
	f.String("fail-on", "", `statuses that fail the command: server, non-success, none or codes like "404,500-599"`)
	f.Int("retries", 0, "retries for connection failures and retryable --fail-on statuses")
	f.Duration("timeout", 0, "timeout for each exchange (default 30s)")
	f.StringP("output", "o", "table", "output format (table, json, yaml)")
	f.String("token", "", "bearer token")
	f.BoolP("verbose", "v", false, "verbose output")

	_ = v.BindPFlags(f)
	v.SetEnvPrefix("CRUDCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(
		newGetCommand(v),
		newPutCommand(v),
		newPostCommand(v),
		newDeleteCommand(v),
		NewVersionCommand(v),
	)
	return root
}

// checkFlags validates flag values that the config file cannot carry.
func checkFlags(v *viper.Viper) error {
	if err := validation.New().
		OneOf("output", v.GetString("output"), outputFormats).
		Min("retries", v.GetInt("retries"), 0).
		HTTPURL("base-url", v.GetStringSlice("base-url")...).
		Validate(); err != nil {
		return err
	}
	return nil
}

// settings loads the config file and overlays the flags that were set.
func settings(cmd *cobra.Command, v *viper.Viper) (*Config, error) {
	if err := checkFlags(v); err != nil {
		return nil, err
	}
	cfg, err := loadConfig(v.GetString("config"))
	if err != nil {
		return nil, err
	}

	if v.IsSet("base-url") {
		if urls := v.GetStringSlice("base-url"); len(urls) > 0 {
			cfg.Client.BaseURL, cfg.Endpoints = urls[0], urls[1:]
		}
	}
	if v.IsSet("timeout") {
		cfg.Client.Timeout = v.GetDuration("timeout")
	}
	if v.IsSet("fail-on") {
		cfg.FailOn = v.GetString("fail-on")
	}
	if v.IsSet("retries") {
		cfg.Retry.MaxAttempts = v.GetInt("retries") + 1
	}
	if v.IsSet("token") {
		cfg.Client.Auth = httpclient.BearerAuth(v.GetString("token"))
	}
	if v.IsSet("accept") {
		cfg.Defaults.Accept = v.GetStringSlice("accept")
	}
	if v.IsSet("content-type") {
		cfg.Defaults.ContentType = v.GetString("content-type")
	}
	if v.GetBool("verbose") {
		cfg.Logging.Level = "debug"
	}

	headers, err := cmd.Flags().GetStringArray("header")
	if err != nil {
		return nil, err
	}
	for _, h := range headers {
		name, value, err := parseHeader(h)
		if err != nil {
			return nil, err
		}
		if cfg.Defaults.Headers == nil {
			cfg.Defaults.Headers = make(map[string]string)
		}
		cfg.Defaults.Headers[name] = value
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseHeader splits "name=value" or "name: value".
func parseHeader(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	if i := strings.Index(s, ":"); i >= 0 && (!ok || i < len(name)) {
		name, value, ok = s[:i], s[i+1:], true
	}
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid header %q, want name=value", s)
	}
	return name, strings.TrimSpace(value), nil
}

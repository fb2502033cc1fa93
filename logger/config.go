package logger

import "github.com/kbukum/crudkit/validation"

// Output formats. FormatPretty is an alias of FormatConsole.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
	FormatPretty  = "pretty"
)

// Config is the logging section of a crudkit tool config.
type Config struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console pretty"`
	// Output is stdout or stderr. NewWithWriter ignores it.
	Output    string `yaml:"output" mapstructure:"output" validate:"oneof=stdout stderr"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults selects info level console logging to stderr. Timestamps
// are always on.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
	c.Timestamp = true
}

// Validate checks the level, format and output names.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

// Package validation checks configuration and command-line settings.
//
// Tagged structs go through Validate, which adds header_name, header_value
// and media_type to the go-playground tags:
//
//	type Config struct {
//	    BaseURL string            `mapstructure:"base_url" validate:"omitempty,http_url"`
//	    Headers map[string]string `mapstructure:"headers" validate:"dive,keys,header_name,endkeys,header_value"`
//	}
//
// Loose values, such as flags, use the chained Validator:
//
//	err := validation.New().
//	    OneOf("output", out, []string{"table", "json"}).
//	    HTTPURL("base-url", urls...).
//	    Validate()
//
// Both report a single INVALID_INPUT AppError whose "fields" detail lists
// every failure.
package validation

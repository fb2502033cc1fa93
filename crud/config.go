package crud

import (
	"net/http"

	"github.com/kbukum/crudkit/template"
)

// TemplateConfig is the file form of a default template.
type TemplateConfig struct {
	Accept         []string          `yaml:"accept" mapstructure:"accept"`
	AcceptLanguage []string          `yaml:"accept_language" mapstructure:"accept_language"`
	ContentType    string            `yaml:"content_type" mapstructure:"content_type"`
	Headers        map[string]string `yaml:"headers" mapstructure:"headers"`
	Cookies        map[string]string `yaml:"cookies" mapstructure:"cookies"`
}

// Build validates the configuration and returns the template it describes.
func (c TemplateConfig) Build() (template.Template, error) {
	b := template.NewBuilder()
	for _, a := range c.Accept {
		mt, err := template.ParseMediaType(a)
		if err != nil {
			return template.Template{}, err
		}
		b.Accept(mt)
	}
	b.AcceptLanguageString(c.AcceptLanguage...)
	if c.ContentType != "" {
		mt, err := template.ParseMediaType(c.ContentType)
		if err != nil {
			return template.Template{}, err
		}
		b.ContentType(mt)
	}
	for name, value := range c.Headers {
		b.Header(name, value)
	}
	for name, value := range c.Cookies {
		b.Cookie(http.Cookie{Name: name, Value: value})
	}
	return b.Build()
}

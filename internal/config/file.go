// Package config loads axtree configuration from YAML, fills defaults and
// validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Acquisition modes.
const (
	ModeStatic  = "static"
	ModeBrowser = "browser"
	ModeAuto    = "auto"
)

// Defaults.
const (
	DefaultAttribute       = "data-ax-id"
	DefaultMaxDepth        = 1024
	DefaultFetchTimeout    = 30 * time.Second
	DefaultNavigateTimeout = 30 * time.Second
	DefaultXvfbDisplay     = ":99"
)

// Config is the top-level configuration.
type Config struct {
	Attribute string        `yaml:"attribute" validate:"required,attrname"`
	MaxDepth  int           `yaml:"max_depth" validate:"min=1"`
	Mode      string        `yaml:"mode" validate:"oneof=static browser auto"`
	Prune     bool          `yaml:"prune"`
	Fetch     FetchConfig   `yaml:"fetch"`
	Browser   BrowserConfig `yaml:"browser"`
}

// FetchConfig controls the HTTP path.
type FetchConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" validate:"min=0"`

	// BlockPrivate refuses URLs whose host resolves to a private or
	// loopback address. Applies to the browser path too.
	BlockPrivate bool `yaml:"block_private"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote           string        `yaml:"remote" validate:"omitempty,url"`
	Stealth          string        `yaml:"stealth" validate:"oneof=headless headful"`
	ResourceBlocking []string      `yaml:"resource_blocking" validate:"dive,oneof=images fonts media stylesheets"`
	XvfbDisplay      string        `yaml:"xvfb_display"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout" validate:"min=0"`
}

var (
	validate = newValidator()

	// attrName accepts the names an HTML serialiser can write back out.
	attrName = regexp.MustCompile(`^[^\x00-\x20"'/=<>\x7f]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("attrname", func(fl validator.FieldLevel) bool {
		return attrName.MatchString(fl.Field().String())
	})
	return v
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// LoadFile reads and validates a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints. The first failure is reported by its
// YAML path.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	e := verrs[0]
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: field is required", field)
	case "min":
		return fmt.Errorf("%s: must be at least %s", field, e.Param())
	case "oneof":
		return fmt.Errorf("%s: %q is not one of [%s]", field, e.Value(), e.Param())
	case "attrname":
		return fmt.Errorf("%s: %q is not a valid attribute name", field, e.Value())
	default:
		return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
	}
}

func (c *Config) applyDefaults() {
	if c.Attribute == "" {
		c.Attribute = DefaultAttribute
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = DefaultFetchTimeout
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = DefaultXvfbDisplay
	}
	if c.Browser.NavigateTimeout == 0 {
		c.Browser.NavigateTimeout = DefaultNavigateTimeout
	}
}

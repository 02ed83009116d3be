package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// ErrMissingRequired is returned when a field tagged `required` has no value.
var ErrMissingRequired = errors.New("required environment variable not set")

// LoadOptions defines options for loading configuration from environment variables.
type LoadOptions struct {
	Prefix string // Prefix to prepend to environment variable names (default: "BEAVER_")
	Debug  bool   // Log every resolved variable at debug level
	// Files are .env files to load before reading the environment. Missing files
	// are ignored. Defaults to ".env".
	Files []string
	// Logger receives debug output. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Load populates a struct from .env files and environment variables using reflection.
//
// The function uses struct field tags to determine environment variable names:
//   - `env:"VAR_NAME"`: Maps the field to the specified environment variable
//   - `env:"VAR_NAME,default:value"`: Provides a default value if env var is not set
//   - `env:"VAR_NAME,required"`: Fails with ErrMissingRequired when unset and no default
//
// Nested structs without an env tag are walked recursively so a configuration can
// be split into sections. Environment variable names are prefixed with
// LoadOptions.Prefix (defaults to "BEAVER_").
//
// Example:
//
//	type Config struct {
//	    Issuer string        `env:"OAUTH_ISSUER,required"`
//	    Scopes []string      `env:"OAUTH_SCOPES,default:openid email"`
//	    TTL    time.Duration `env:"OAUTH_TRANSACTION_TTL,default:10m"`
//	}
//
//	var cfg Config
//	err := config.Load(&cfg, config.LoadOptions{Prefix: "MYAPP_"})
//	// Will look for MYAPP_OAUTH_ISSUER, MYAPP_OAUTH_SCOPES, MYAPP_OAUTH_TRANSACTION_TTL
func Load(cfg interface{}, opts ...LoadOptions) error {
	options := LoadOptions{Prefix: "BEAVER_"} // Default
	if len(opts) > 0 {
		options = opts[0]
	}

	files := options.Files
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// Silently skip missing files
		_ = godotenv.Load(f)
	}

	rv := reflect.ValueOf(cfg)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: expected non-nil pointer to struct, got %T", cfg)
	}

	logger := zerolog.Nop()
	if options.Logger != nil {
		logger = *options.Logger
	}
	debug := options.Debug || os.Getenv("BEAVER_CONFIG_DEBUG") == "true"

	return loadStruct(rv.Elem(), options.Prefix, debug, logger)
}

func loadStruct(v reflect.Value, prefix string, debug bool, logger zerolog.Logger) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		envTag := field.Tag.Get("env")
		if envTag == "" {
			if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
				if err := loadStruct(v.Field(i), prefix, debug, logger); err != nil {
					return err
				}
			}
			continue
		}

		parts := strings.Split(envTag, ",")
		envName := parts[0]
		defaultValue := ""
		required := false

		for _, part := range parts[1:] {
			switch {
			case strings.HasPrefix(part, "default:"):
				defaultValue = strings.TrimPrefix(part, "default:")
			case part == "required":
				required = true
			}
		}

		// Apply prefix to environment variable name
		fullEnvName := prefix + envName
		value, ok := os.LookupEnv(fullEnvName)
		if !ok || value == "" {
			value = defaultValue
		}
		if debug {
			logger.Debug().Str("env", fullEnvName).Bool("set", ok).Msg("config variable resolved")
		}

		if value == "" {
			if required {
				return fmt.Errorf("%w: %s", ErrMissingRequired, fullEnvName)
			}
			continue
		}

		if err := setFieldValue(v.Field(i), value); err != nil {
			return fmt.Errorf("config: %s: %w", fullEnvName, err)
		}
	}

	return nil
}

// setFieldValue sets the value of a struct field using reflection and type conversion.
//
// Supported types:
//   - string: Direct assignment
//   - int kinds: Parsed using strconv.ParseInt with base 10
//   - bool: Parsed using strconv.ParseBool
//   - float64: Parsed using strconv.ParseFloat
//   - time.Duration: Parsed using time.ParseDuration
//   - []string: Comma or space separated values
//   - *bool: Parsed like bool, left nil when unset
func setFieldValue(field reflect.Value, value string) error {
	// Check for time.Duration first
	if field.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		field.Set(reflect.ValueOf(SplitList(value)))
	case reflect.Ptr:
		if field.Type().Elem().Kind() != reflect.Bool {
			return nil
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(&b))
	default:
		// Skip unsupported field types silently
		return nil
	}
	return nil
}

// SplitList splits a comma or whitespace separated list, dropping empty entries.
func SplitList(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

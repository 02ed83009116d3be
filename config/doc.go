// Package config loads configuration structs from environment variables with
// support for custom prefixes, automatic type conversion, and .env file loading.
//
// # Basic Usage
//
// Define a configuration struct with environment variable tags:
//
//	type Config struct {
//	    Issuer  string        `env:"OAUTH_ISSUER,required"`
//	    Scopes  []string      `env:"OAUTH_SCOPES,default:openid email"`
//	    PKCE    *bool         `env:"OAUTH_PKCE"`
//	    Timeout time.Duration `env:"OAUTH_HTTP_TIMEOUT,default:30s"`
//	}
//
// Load configuration from environment variables:
//
//	var cfg Config
//	err := config.Load(&cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Custom Prefixes
//
// Use custom prefixes to avoid environment variable conflicts:
//
//	// Will look for MYAPP_OAUTH_ISSUER, MYAPP_OAUTH_SCOPES, etc.
//	err := config.Load(&cfg, config.LoadOptions{Prefix: "MYAPP_"})
//
// Packages in this module expose the same prefix through a builder:
//
//	client, err := oauth.WithPrefix("MYAPP_").New()
//
// # Supported Types
//
//   - string
//   - int kinds and float64
//   - bool and *bool (nil when the variable is unset)
//   - time.Duration ("1h30m", "45s", ...)
//   - []string: comma or whitespace separated values
//
// Nested structs without an env tag are loaded recursively.
//
// # Field Tags
//
//   - `env:"VAR_NAME"`: environment variable name (prefix is prepended)
//   - `env:"VAR_NAME,default:value"`: default when the variable is unset or empty
//   - `env:"VAR_NAME,required"`: ErrMissingRequired when unset and no default
//
// # Environment File Support
//
// .env files are loaded with github.com/joho/godotenv before the environment is
// read. Variables already present in the environment take precedence.
//
//	err := config.Load(&cfg, config.LoadOptions{Files: []string{".env.local", ".env"}})
//
// # Debug Mode
//
//	export BEAVER_CONFIG_DEBUG=true
//
// or LoadOptions{Debug: true, Logger: &logger}. Debug output goes through the
// supplied zerolog logger and never includes values.
package config

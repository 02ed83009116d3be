package oauth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"

	"github.com/gobeaver/beaver-auth/storage"
)

// Default option values
const (
	DefaultTransactionTTL = 10 * time.Minute
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultWellKnownTTL   = 24 * time.Hour
)

// insecureCookieWarning is logged when cookies.secure is requested on an
// origin that is not served over HTTPS.
const insecureCookieWarning = "The current page is not being served with the HTTPS protocol.\n" +
	"For security reasons, we strongly recommend using HTTPS.\n" +
	"If you cannot use HTTPS, set \"cookies.secure\" option to false."

// CookieOptions controls cookies set on behalf of the client
type CookieOptions struct {
	Secure   *bool  `mapstructure:"secure"`
	SameSite string `mapstructure:"sameSite" validate:"omitempty,oneof=none lax strict"`
}

// Options is the resolved base client configuration
type Options struct {
	Issuer              string   `mapstructure:"issuer" validate:"required,issuer"`
	ClientID            string   `mapstructure:"clientId"`
	RedirectURI         string   `mapstructure:"redirectUri" validate:"omitempty,url"`
	PostLogoutRedirect  string   `mapstructure:"postLogoutRedirectUri" validate:"omitempty,url"`
	Origin              string   `mapstructure:"origin" validate:"omitempty,url"`
	ResponseType        []string `mapstructure:"responseType"`
	ResponseMode        string   `mapstructure:"responseMode" validate:"omitempty,oneof=query fragment form_post okta_post_message"`
	Scopes              []string `mapstructure:"scopes"`
	State               string   `mapstructure:"state"`
	PKCE                bool     `mapstructure:"pkce"`
	CodeChallengeMethod string   `mapstructure:"codeChallengeMethod" validate:"omitempty,oneof=S256 plain"`
	IgnoreSignature     *bool    `mapstructure:"ignoreSignature"`
	AcrValues           string   `mapstructure:"acrValues"`
	MaxAge              *int     `mapstructure:"maxAge"`

	AuthorizeURL string `mapstructure:"authorizeUrl" validate:"omitempty,url"`
	TokenURL     string `mapstructure:"tokenUrl" validate:"omitempty,url"`
	UserinfoURL  string `mapstructure:"userinfoUrl" validate:"omitempty,url"`

	Cookies CookieOptions  `mapstructure:"cookies"`
	Storage storage.Config `mapstructure:"storage"`

	TransactionTTL time.Duration `mapstructure:"transactionTTL"`
	WellKnownTTL   time.Duration `mapstructure:"wellKnownTTL"`
	HTTPTimeout    time.Duration `mapstructure:"httpTimeout"`
	Debug          bool          `mapstructure:"debug"`

	// TransactionKey is the storage key of the transaction record, empty for
	// storage.DefaultTransactionKey. Set it per session on a shared backend.
	TransactionKey string `mapstructure:"transactionKey"`

	// Collaborators. Supplied through the raw map under the keys "features",
	// "pkceCrypto", "wellKnownFetcher", "httpClient" and "logger".
	Features         Features         `mapstructure:"-"`
	PKCECrypto       PKCE             `mapstructure:"-"`
	WellKnownFetcher WellKnownFetcher `mapstructure:"-"`
	HTTPClient       HTTPClient       `mapstructure:"-"`
	Logger           zerolog.Logger   `mapstructure:"-"`
}

// OAuthOptions implements OptionsProvider
func (o *Options) OAuthOptions() *Options {
	return o
}

// OptionsProvider is satisfied by base options and by any options type that
// layers fields on top of them.
type OptionsProvider interface {
	OAuthOptions() *Options
}

// NewOptions resolves and validates base options from a raw map. Unknown keys
// are ignored. Validation failures wrap ErrInvalidConfig.
func NewOptions(raw map[string]any) (*Options, error) {
	opts := &Options{
		PKCE:           true,
		TransactionTTL: DefaultTransactionTTL,
		WellKnownTTL:   DefaultWellKnownTTL,
		HTTPTimeout:    DefaultHTTPTimeout,
		Storage:        storage.Config{Driver: "memory", CleanupInterval: time.Minute},
	}

	if err := decodeRaw(raw, opts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	opts.Issuer = strings.TrimRight(opts.Issuer, "/")

	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	if err := applyCollaborators(raw, opts); err != nil {
		return nil, err
	}

	applyCookiePolicy(opts)
	return opts, nil
}

// decodeRaw decodes raw into out with the options decoder settings
func decodeRaw(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(" "),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func applyCollaborators(raw map[string]any, opts *Options) error {
	if v, ok := raw["logger"]; ok && v != nil {
		switch l := v.(type) {
		case zerolog.Logger:
			opts.Logger = l
		case *zerolog.Logger:
			opts.Logger = *l
		default:
			return fmt.Errorf("%w: logger must be a zerolog.Logger, got %T", ErrInvalidConfig, v)
		}
	} else if opts.Debug {
		opts.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		opts.Logger = zerolog.Nop()
	}

	var err error
	if opts.Features, err = collaborator[Features](raw, "features"); err != nil {
		return err
	}
	if opts.Features == nil {
		origin := opts.Origin
		if origin == "" {
			origin = opts.RedirectURI
		}
		opts.Features = NewEnvFeatures(origin)
	}

	if opts.PKCECrypto, err = collaborator[PKCE](raw, "pkceCrypto"); err != nil {
		return err
	}
	if opts.PKCECrypto == nil {
		opts.PKCECrypto = DefaultPKCE{}
	}

	if opts.HTTPClient, err = collaborator[HTTPClient](raw, "httpClient"); err != nil {
		return err
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.HTTPTimeout}
	}

	if opts.WellKnownFetcher, err = collaborator[WellKnownFetcher](raw, "wellKnownFetcher"); err != nil {
		return err
	}
	return nil
}

func collaborator[T any](raw map[string]any, key string) (T, error) {
	var zero T
	v, ok := raw[key]
	if !ok || v == nil {
		return zero, nil
	}
	c, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidConfig, key, v)
	}
	return c, nil
}

// applyCookiePolicy defaults secure to the origin's HTTPS-ness and never lets
// a secure cookie or SameSite=None be requested over plain HTTP.
func applyCookiePolicy(opts *Options) {
	https := opts.Features.IsHTTPS()
	c := &opts.Cookies

	if c.Secure == nil {
		c.Secure = &https
	} else if *c.Secure && !https {
		opts.Logger.Warn().Msg(insecureCookieWarning)
		secure := false
		c.Secure = &secure
	}

	switch {
	case c.SameSite == "":
		if *c.Secure {
			c.SameSite = "none"
		} else {
			c.SameSite = "lax"
		}
	case c.SameSite == "none" && !*c.Secure:
		c.SameSite = "lax"
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Use mapstructure names in error messages
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("issuer", validateIssuer)
	})
	return validate
}

// validateIssuer accepts absolute http(s) URLs that are not admin domains
func validateIssuer(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return !strings.Contains(strings.ToLower(u.Host), "-admin.")
}

func validateOptions(opts *Options) error {
	err := getValidator().Struct(opts)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, e.Field()+": "+formatValidationError(e))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(messages, "; "))
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "issuer":
		return "must be an http(s) URL and not an admin domain"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

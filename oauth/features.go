package oauth

import (
	"crypto/rand"
	"net"
	"net/url"
	"strings"
)

// Features answers capability questions about the environment the client runs in.
type Features interface {
	IsSecureContext() bool
	IsHTTPS() bool
	HasTextEncoder() bool
	HasCrypto() bool
	IsPKCESupported() bool
}

// EnvFeatures derives capabilities from the origin the client serves. An empty
// origin means the client is not running on behalf of a page, which is treated
// as a secure HTTPS context.
type EnvFeatures struct {
	origin *url.URL
}

// NewEnvFeatures parses origin. An unparseable origin reports every
// transport capability as missing.
func NewEnvFeatures(origin string) *EnvFeatures {
	f := &EnvFeatures{}
	if origin == "" {
		return f
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		f.origin = &url.URL{}
		return f
	}
	f.origin = u
	return f
}

func (f *EnvFeatures) IsHTTPS() bool {
	return f.origin == nil || strings.EqualFold(f.origin.Scheme, "https")
}

// IsSecureContext is true on HTTPS and on loopback hosts
func (f *EnvFeatures) IsSecureContext() bool {
	return f.IsHTTPS() || f.IsLocalhost()
}

// IsLocalhost reports whether the origin is a loopback host
func (f *EnvFeatures) IsLocalhost() bool {
	if f.origin == nil {
		return false
	}
	host := f.origin.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// HasTextEncoder is always true; strings are UTF-8 natively
func (f *EnvFeatures) HasTextEncoder() bool {
	return true
}

// HasCrypto probes the system random source
func (f *EnvFeatures) HasCrypto() bool {
	var b [1]byte
	_, err := rand.Read(b[:])
	return err == nil
}

func (f *EnvFeatures) IsPKCESupported() bool {
	return f.IsSecureContext() && f.HasCrypto() && f.HasTextEncoder()
}

// StaticFeatures reports fixed answers. Useful for tests and for hosts that
// know their environment.
type StaticFeatures struct {
	SecureContext bool
	HTTPS         bool
	TextEncoder   bool
	Crypto        bool
}

func (f StaticFeatures) IsSecureContext() bool { return f.SecureContext }
func (f StaticFeatures) IsHTTPS() bool         { return f.HTTPS }
func (f StaticFeatures) HasTextEncoder() bool  { return f.TextEncoder }
func (f StaticFeatures) HasCrypto() bool       { return f.Crypto }

func (f StaticFeatures) IsPKCESupported() bool {
	return f.SecureContext && f.Crypto && f.TextEncoder
}

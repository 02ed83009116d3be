// Package driver holds what every storage backend shares: the not-found
// sentinel and key prefix composition.
package driver

import "errors"

// Common errors returned by every backend.
var (
	ErrNotFound      = errors.New("key not found")
	ErrMaxKeys       = errors.New("max keys limit reached")
	ErrMaxSize       = errors.New("max size limit reached")
	ErrPrefixMissing = errors.New("cannot clear all keys without a prefix")
)

// Prefix combines a namespace and key prefix into the string prepended to
// every key, e.g. ("okta", "auth:") -> "okta:auth:".
func Prefix(namespace, keyPrefix string) string {
	if namespace == "" {
		return keyPrefix
	}
	if keyPrefix != "" {
		return namespace + ":" + keyPrefix
	}
	return namespace + ":"
}

// Package krypto provides the cryptographic helpers the auth client relies on:
// random token generation for state and nonce values, AES-GCM encryption for
// storage at rest, and HS256 signed envelopes for tamper-evident transaction data.
//
// # Token Generation
//
//	// 64 character alphanumeric string
//	state, err := krypto.GenerateRandomString(64)
//
//	// 64 character transaction identifier
//	id := krypto.GenerateToken64()
//
// # AES-GCM Encryption
//
// Keys must be 16, 24 or 32 bytes. NewAESGCMServiceFromSecret derives a
// 32 byte key from an arbitrary secret with HKDF-SHA256:
//
//	svc, err := krypto.NewAESGCMServiceFromSecret([]byte(os.Getenv("STORAGE_SECRET")), nil)
//	sealed, err := krypto.Seal(svc, []byte(`{"state":"abc"}`))
//	plain, err := krypto.Open(svc, sealed)
//
// # Signed Envelopes
//
// SignHS256Envelope wraps a JSON payload in an HS256 JWT. ParseHS256Envelope
// verifies the signature and expiry and returns the original payload:
//
//	token, err := krypto.SignHS256Envelope(payload, key, 10*time.Minute)
//	payload, err := krypto.ParseHS256Envelope(token, key)
//
// Any modification of the token, or a different key, yields ErrInvalidEnvelope.
package krypto

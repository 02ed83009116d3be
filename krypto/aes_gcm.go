package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// hkdfInfo binds derived keys to their use in this module.
const hkdfInfo = "beaver-auth storage encryption v1"

// Service defines the interface for encryption operations
type Service interface {
	Encrypt(data []byte) (ciphertext, nonce []byte, err error)
	Decrypt(ciphertext, nonce []byte) ([]byte, error)
	EncryptString(plaintext string) (ciphertextB64, nonceB64 string, err error)
	DecryptString(ciphertextB64, nonceB64 string) (string, error)
	NonceSize() int
}

// aesGCMService implements the Service interface using AES-GCM
type aesGCMService struct {
	gcm cipher.AEAD // This is all we need
}

// NewAESGCMService creates a new AES-GCM encryption service
func NewAESGCMService(key string) (Service, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &aesGCMService{gcm: gcm}, nil
}

// NewAESGCMServiceFromSecret derives an AES-256 key from an arbitrary-length
// secret with HKDF-SHA256 and returns an AES-GCM service using it. The salt may be
// empty; the same secret and salt always derive the same key.
func NewAESGCMServiceFromSecret(secret, salt []byte) (Service, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("encryption secret cannot be empty")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return NewAESGCMService(string(key))
}

// Seal encrypts data and returns nonce||ciphertext in a single buffer.
func Seal(svc Service, data []byte) ([]byte, error) {
	ciphertext, nonce, err := svc.Encrypt(data)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(ciphertext))
	out = append(out, nonce...)
	return append(out, ciphertext...), nil
}

// Open reverses Seal.
func Open(svc Service, sealed []byte) ([]byte, error) {
	size := svc.NonceSize()
	if len(sealed) < size {
		return nil, fmt.Errorf("sealed data too short: %d bytes", len(sealed))
	}
	return svc.Decrypt(sealed[size:], sealed[:size])
}

// Encrypt encrypts byte data using AES-GCM
func (s *aesGCMService) Encrypt(data []byte) ([]byte, []byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := s.gcm.Seal(nil, nonce, data, nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts byte data using AES-GCM
func (s *aesGCMService) Decrypt(ciphertext, nonce []byte) ([]byte, error) {
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// NonceSize returns the size of the nonce Encrypt produces
func (s *aesGCMService) NonceSize() int {
	return s.gcm.NonceSize()
}

// EncryptString encrypts a string and returns base64 encoded results
func (s *aesGCMService) EncryptString(plaintext string) (string, string, error) {
	ciphertext, nonce, err := s.Encrypt([]byte(plaintext))
	if err != nil {
		return "", "", err
	}

	return base64.StdEncoding.EncodeToString(ciphertext),
		base64.StdEncoding.EncodeToString(nonce),
		nil
}

// DecryptString decrypts base64 encoded strings
func (s *aesGCMService) DecryptString(ciphertextB64, nonceB64 string) (string, error) {
	// Handle empty input cases first
	if ciphertextB64 == "" || nonceB64 == "" {
		return "", fmt.Errorf("empty input: ciphertext and nonce cannot be empty")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return "", fmt.Errorf("failed to decode nonce: %w", err)
	}

	// Validate nonce size before attempting decryption
	if len(nonce) != s.gcm.NonceSize() {
		return "", fmt.Errorf("invalid nonce size: got %d, want %d", len(nonce), s.gcm.NonceSize())
	}

	plaintext, err := s.Decrypt(ciphertext, nonce)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

func GenerateAESKey(keySize int) (string, error) {
	if keySize != 16 && keySize != 24 && keySize != 32 {
		return "", fmt.Errorf("invalid key size: must be 16, 24, or 32 bytes for AES-128, AES-192, or AES-256")
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}

	// Encode to base64 for storage/transmission
	return base64.StdEncoding.EncodeToString(key), nil
}

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gobeaver/beaver-auth/krypto"
)

// Codec converts values to and from their stored form.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// JSONCodec stores values as plain JSON.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// SignedCodec stores values as HS256-signed JWT envelopes, so a record edited
// in the backend fails to decode instead of being trusted. TTL, when set, is
// embedded as the envelope expiry.
type SignedCodec struct {
	Key []byte
	TTL time.Duration
}

// ErrTampered is returned by SignedCodec.Decode for records that fail
// signature or expiry verification.
var ErrTampered = errors.New("stored record failed verification")

func (c SignedCodec) Encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	token, err := krypto.SignHS256Envelope(payload, c.Key, c.TTL)
	if err != nil {
		return nil, err
	}
	return []byte(token), nil
}

func (c SignedCodec) Decode(data []byte, v any) error {
	payload, err := krypto.ParseHS256Envelope(string(data), c.Key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTampered, err)
	}
	return json.Unmarshal(payload, v)
}

package secret

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var (
	ErrInvalidKey    = errors.New("invalid_credentials_key")
	ErrInvalidSealed = errors.New("invalid_sealed_payload")
)

// Sealer encrypts PMS credentials at rest with nacl secretbox.
type Sealer struct {
	key [32]byte
}

// NewSealer accepts the key as 64 hex characters or 32 raw bytes.
func NewSealer(raw string) (*Sealer, error) {
	var key []byte
	if decoded, err := hex.DecodeString(raw); err == nil && len(decoded) == 32 {
		key = decoded
	} else if len(raw) == 32 {
		key = []byte(raw)
	} else {
		return nil, ErrInvalidKey
	}

	s := &Sealer{}
	copy(s.key[:], key)
	return s, nil
}

// Seal encrypts the credential map. The nonce is prepended to the output.
func (s *Sealer) Seal(credentials map[string]string) ([]byte, error) {
	plaintext, err := json.Marshal(credentials)
	if err != nil {
		return nil, err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// Open decrypts a payload produced by Seal.
func (s *Sealer) Open(sealed []byte) (map[string]string, error) {
	if len(sealed) < nonceSize {
		return nil, ErrInvalidSealed
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrInvalidSealed
	}

	var credentials map[string]string
	if err := json.Unmarshal(plaintext, &credentials); err != nil {
		return nil, ErrInvalidSealed
	}
	return credentials, nil
}

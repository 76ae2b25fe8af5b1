package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Prefix identifies the current token format. A change to the hash algorithm
// requires a new prefix so that old tokens stay parseable and are rejected
// distinctly from malformed input.
const Prefix = "pat"

const (
	idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 12
	secretLen  = 32 // 256 bits of entropy
)

// ErrMalformed is returned by Parse for any input that is not a well-formed
// token string. Attacker-supplied garbage must never produce anything else.
var ErrMalformed = errors.New("malformed access token")

// Minted is the result of generating a new token. External is the string
// handed to the user exactly once; Secret is the plaintext and must not be
// persisted or logged.
type Minted struct {
	External string
	ID       string
	Secret   string
	Hash     string
}

// Parsed is the structured identity recovered from an external token string.
type Parsed struct {
	ID     string
	Secret string
}

// Codec generates and parses external token strings of the form
// <prefix>.<id>.<secret>. Hashing uses keyed BLAKE2b-256 with a server-side
// key so the stored digest is deterministic per deployment but useless
// without the key.
type Codec struct {
	key []byte
}

// NewCodec creates a Codec with the given hash key. The key must be between
// 16 and 64 bytes.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) < 16 || len(key) > 64 {
		return nil, fmt.Errorf("token hash key must be 16-64 bytes, got %d", len(key))
	}
	return &Codec{key: key}, nil
}

// Mint generates a fresh token id and secret and returns the external string
// together with the secret's hash.
func (c *Codec) Mint() (Minted, error) {
	idBytes := make([]byte, idLength)
	if _, err := rand.Read(idBytes); err != nil {
		return Minted{}, fmt.Errorf("generate token id: %w", err)
	}
	for i := range idBytes {
		idBytes[i] = idAlphabet[idBytes[i]%byte(len(idAlphabet))]
	}
	id := string(idBytes)

	secretBytes := make([]byte, secretLen)
	if _, err := rand.Read(secretBytes); err != nil {
		return Minted{}, fmt.Errorf("generate token secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	return Minted{
		External: Prefix + "." + id + "." + secret,
		ID:       id,
		Secret:   secret,
		Hash:     c.Hash(secret),
	}, nil
}

// Hash computes the keyed BLAKE2b-256 hex digest of a token secret.
func (c *Codec) Hash(secret string) string {
	h, err := blake2b.New256(c.key)
	if err != nil {
		// Key length is validated in NewCodec.
		panic("blake2b: " + err.Error())
	}
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}

// Parse recovers the token id and secret from an external string. It returns
// ErrMalformed for anything that does not match the expected structure.
func (c *Codec) Parse(external string) (Parsed, error) {
	parts := strings.Split(external, ".")
	if len(parts) != 3 || parts[0] != Prefix {
		return Parsed{}, ErrMalformed
	}
	id, secret := parts[1], parts[2]
	if len(id) != idLength || !isLowerAlnum(id) {
		return Parsed{}, ErrMalformed
	}
	if len(secret) != secretLen*2 || !isHex(secret) {
		return Parsed{}, ErrMalformed
	}
	return Parsed{ID: id, Secret: secret}, nil
}

func isLowerAlnum(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Package vault encrypts individual JSON values with a per-user AES-GCM key.
//
// The key is SHA-256(appSecret + userID). There is no key rotation or scheme
// versioning: changing the secret or the user id makes every value encrypted
// before the change unrecoverable.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

// ErrEmptySecret is returned by New when no application secret is given.
var ErrEmptySecret = errors.New("vault secret must not be empty")

// Result carries either a value or the reason it could not be produced.
// Encrypt and Decrypt never return a bare error; a failed Result wraps
// types.ErrCryptoFailure.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Vault derives per-user keys from one application secret.
type Vault struct {
	secret []byte
	rand   io.Reader
	log    *zap.Logger
}

// Option configures a Vault.
type Option func(*Vault)

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(v *Vault) { v.log = log }
}

// WithRandom overrides the nonce source.
func WithRandom(r io.Reader) Option {
	return func(v *Vault) { v.rand = r }
}

// New returns a Vault for the given application secret.
func New(secret string, opts ...Option) (*Vault, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	v := &Vault{
		secret: []byte(secret),
		rand:   rand.Reader,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// aead derives the AES-256-GCM cipher for userID.
func (v *Vault) aead(userID string) (cipher.AEAD, error) {
	material := make([]byte, 0, len(v.secret)+len(userID))
	material = append(material, v.secret...)
	material = append(material, userID...)
	key := sha256.Sum256(material)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}

// Encrypt serializes value to JSON and seals it for userID. The result is
// base64(nonce || ciphertext).
func (v *Vault) Encrypt(value any, userID string) Result[string] {
	plain, err := json.Marshal(value)
	if err != nil {
		return fail[string](v, "encrypt", userID, fmt.Errorf("marshal value: %w", err))
	}
	aead, err := v.aead(userID)
	if err != nil {
		return fail[string](v, "encrypt", userID, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(v.rand, nonce); err != nil {
		return fail[string](v, "encrypt", userID, fmt.Errorf("generate nonce: %w", err))
	}
	sealed := aead.Seal(nonce, nonce, plain, nil)
	return Result[string]{Value: base64.StdEncoding.EncodeToString(sealed)}
}

// Decrypt opens a value produced by Encrypt for the same userID. Wrong keys,
// damaged ciphertext and malformed JSON all yield a failed Result.
func (v *Vault) Decrypt(cipherText, userID string) Result[any] {
	data, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return fail[any](v, "decrypt", userID, fmt.Errorf("decode base64: %w", err))
	}
	aead, err := v.aead(userID)
	if err != nil {
		return fail[any](v, "decrypt", userID, err)
	}
	if len(data) < aead.NonceSize() {
		return fail[any](v, "decrypt", userID, errors.New("ciphertext too short"))
	}

	nonce, sealed := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return fail[any](v, "decrypt", userID, fmt.Errorf("open: %w", err))
	}

	var value any
	if err := json.Unmarshal(plain, &value); err != nil {
		return fail[any](v, "decrypt", userID, fmt.Errorf("unmarshal value: %w", err))
	}
	return Result[any]{Value: value}
}

func fail[T any](v *Vault, op, userID string, err error) Result[T] {
	v.log.Warn("vault operation failed",
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.Error(err))
	return Result[T]{Err: fmt.Errorf("%w: %s: %v", types.ErrCryptoFailure, op, err)}
}

// EncryptFields returns a copy of rec with each named, non-nil field replaced
// by its ciphertext. Any failure aborts so plaintext is never stored in place
// of a ciphertext.
func (v *Vault) EncryptFields(rec types.Record, fields []string, userID string) (types.Record, error) {
	out := rec.Clone()
	for _, f := range fields {
		val, ok := out[f]
		if !ok || val == nil {
			continue
		}
		res := v.Encrypt(val, userID)
		if !res.OK() {
			return nil, fmt.Errorf("field %s: %w", f, res.Err)
		}
		out[f] = res.Value
	}
	return out, nil
}

// DecryptFields returns a copy of rec with each named string field
// decrypted. A field that cannot be recovered becomes nil.
func (v *Vault) DecryptFields(rec types.Record, fields []string, userID string) types.Record {
	out := rec.Clone()
	for _, f := range fields {
		s, ok := out[f].(string)
		if !ok {
			continue
		}
		res := v.Decrypt(s, userID)
		if !res.OK() {
			out[f] = nil
			continue
		}
		out[f] = res.Value
	}
	return out
}

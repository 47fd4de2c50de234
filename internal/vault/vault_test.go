package vault

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

func newTestVault(t *testing.T, opts ...Option) *Vault {
	t.Helper()
	v, err := New("tracker-hub-secret", opts...)
	require.NoError(t, err)
	return v
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestRoundTrip(t *testing.T) {
	v := newTestVault(t)

	values := []any{
		"journal entry",
		"",
		float64(42),
		3.25,
		true,
		nil,
		[]any{"a", float64(1), false},
		map[string]any{"mood": "calm", "score": float64(7), "tags": []any{"sleep"}},
	}

	for _, val := range values {
		enc := v.Encrypt(val, "user-1")
		require.True(t, enc.OK(), "encrypt %v: %v", val, enc.Err)

		dec := v.Decrypt(enc.Value, "user-1")
		require.True(t, dec.OK(), "decrypt %v: %v", val, dec.Err)
		assert.Equal(t, val, dec.Value)
	}
}

func TestCipherTextIsRandomized(t *testing.T) {
	v := newTestVault(t)
	a := v.Encrypt("same", "u")
	b := v.Encrypt("same", "u")
	require.True(t, a.OK())
	require.True(t, b.OK())
	assert.NotEqual(t, a.Value, b.Value)
	assert.NotContains(t, a.Value, "same")
}

func TestDecryptFailures(t *testing.T) {
	v := newTestVault(t)
	enc := v.Encrypt(map[string]any{"secret": "x"}, "user-1")
	require.True(t, enc.OK())

	raw, err := base64.StdEncoding.DecodeString(enc.Value)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	other, err := New("another-secret")
	require.NoError(t, err)

	tests := []struct {
		name   string
		vault  *Vault
		cipher string
		user   string
	}{
		{name: "other user", vault: v, cipher: enc.Value, user: "user-2"},
		{name: "other secret", vault: other, cipher: enc.Value, user: "user-1"},
		{name: "tampered", vault: v, cipher: tampered, user: "user-1"},
		{name: "not base64", vault: v, cipher: "%%%", user: "user-1"},
		{name: "too short", vault: v, cipher: base64.StdEncoding.EncodeToString([]byte("abc")), user: "user-1"},
		{name: "empty", vault: v, cipher: "", user: "user-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.vault.Decrypt(tt.cipher, tt.user)
			assert.False(t, res.OK())
			assert.Nil(t, res.Value)
			assert.ErrorIs(t, res.Err, types.ErrCryptoFailure)
		})
	}
}

func TestDecryptMalformedJSON(t *testing.T) {
	v := newTestVault(t)
	aead, err := v.aead("u")
	require.NoError(t, err)

	nonce := make([]byte, aead.NonceSize())
	sealed := aead.Seal(nonce, nonce, []byte("{not json"), nil)

	res := v.Decrypt(base64.StdEncoding.EncodeToString(sealed), "u")
	assert.ErrorIs(t, res.Err, types.ErrCryptoFailure)
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestEncryptFailuresAreLogged(t *testing.T) {
	var buf bytes.Buffer
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(&buf),
		zapcore.WarnLevel,
	)
	v := newTestVault(t, WithLogger(zap.New(core)), WithRandom(failingReader{}))

	res := v.Encrypt("x", "u")
	assert.False(t, res.OK())
	assert.Empty(t, res.Value)
	assert.ErrorIs(t, res.Err, types.ErrCryptoFailure)

	res = v.Encrypt(make(chan int), "u")
	assert.False(t, res.OK())

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "vault operation failed"))
	assert.Contains(t, out, "entropy exhausted")
}

func TestEncryptFields(t *testing.T) {
	v := newTestVault(t)
	rec := types.Record{"id": "m1", "mood": "anxious", "notes": "slept badly", "score": float64(3), "empty": nil}

	enc, err := v.EncryptFields(rec, []string{"notes", "score", "empty", "absent"}, "u")
	require.NoError(t, err)
	assert.Equal(t, "anxious", enc["mood"])
	assert.IsType(t, "", enc["notes"])
	assert.NotEqual(t, "slept badly", enc["notes"])
	assert.IsType(t, "", enc["score"])
	assert.Nil(t, enc["empty"])
	assert.NotContains(t, enc, "absent")
	assert.Equal(t, "slept badly", rec["notes"], "input is not modified")

	dec := v.DecryptFields(enc, []string{"notes", "score", "empty", "absent"}, "u")
	assert.Equal(t, rec, dec)
}

func TestDecryptFieldsUnrecoverable(t *testing.T) {
	v := newTestVault(t)
	enc, err := v.EncryptFields(types.Record{"notes": "private"}, []string{"notes"}, "owner")
	require.NoError(t, err)

	dec := v.DecryptFields(enc, []string{"notes"}, "intruder")
	assert.Contains(t, dec, "notes")
	assert.Nil(t, dec["notes"])
}

func TestEncryptFieldsFailure(t *testing.T) {
	v := newTestVault(t, WithRandom(failingReader{}))
	_, err := v.EncryptFields(types.Record{"notes": "x"}, []string{"notes"}, "u")
	assert.ErrorIs(t, err, types.ErrCryptoFailure)
}

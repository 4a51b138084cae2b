package secure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherchat/backend/internal/secure"
)

func newTestCodec(t *testing.T) *secure.Codec {
	t.Helper()
	key, err := secure.NewKey()
	require.NoError(t, err)
	codec, err := secure.NewCodec(key)
	require.NoError(t, err)
	return codec
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	plaintext := []byte(`{"action":"login","username":"alice"}`)
	ciphertext, err := codec.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := codec.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestCodec_EncryptIsNonDeterministic(t *testing.T) {
	codec := newTestCodec(t)

	a, err := codec.Encrypt([]byte("same payload"))
	require.NoError(t, err)
	b, err := codec.Encrypt([]byte("same payload"))
	require.NoError(t, err)

	// A fresh nonce per frame means identical plaintexts never repeat on
	// the wire.
	assert.NotEqual(t, a, b)
}

func TestCodec_TamperedCiphertextFails(t *testing.T) {
	codec := newTestCodec(t)

	ciphertext, err := codec.Encrypt([]byte("hello"))
	require.NoError(t, err)
	ciphertext[len(ciphertext)-1] ^= 0xFF

	_, err = codec.Decrypt(ciphertext)
	assert.ErrorIs(t, err, secure.ErrDecrypt)
}

func TestCodec_TruncatedCiphertextFails(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Decrypt([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, secure.ErrDecrypt)

	_, err = codec.Decrypt(nil)
	assert.ErrorIs(t, err, secure.ErrDecrypt)
}

func TestCodec_WrongKeyFails(t *testing.T) {
	sender := newTestCodec(t)
	eavesdropper := newTestCodec(t)

	ciphertext, err := sender.Encrypt([]byte("secret"))
	require.NoError(t, err)

	_, err = eavesdropper.Decrypt(ciphertext)
	assert.ErrorIs(t, err, secure.ErrDecrypt)
}

func TestNewCodec_RejectsBadKeySize(t *testing.T) {
	_, err := secure.NewCodec([]byte("short"))
	assert.Error(t, err)
}

func TestCodec_KeyReturnsCopy(t *testing.T) {
	key, err := secure.NewKey()
	require.NoError(t, err)
	codec, err := secure.NewCodec(key)
	require.NoError(t, err)

	leaked := codec.Key()
	leaked[0] ^= 0xFF

	assert.Equal(t, key, codec.Key(), "mutating a returned key must not corrupt the codec")
}

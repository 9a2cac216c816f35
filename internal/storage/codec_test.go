package storage

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, KeySize)
}

func TestCodecRoundTrip(t *testing.T) {
	codec, err := NewCodec(testKey(0x01))
	require.NoError(t, err)

	plaintext := []byte(`{"user_id":"u1","amount":50}`)
	sealed, err := codec.Seal(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := codec.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestCodecNoncesAreFresh(t *testing.T) {
	codec, err := NewCodec(testKey(0x01))
	require.NoError(t, err)

	a, err := codec.Seal([]byte("same plaintext"))
	require.NoError(t, err)
	b, err := codec.Seal([]byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCodecWrongKeyFailsAuthentication(t *testing.T) {
	sealer, err := NewCodec(testKey(0x01))
	require.NoError(t, err)
	opener, err := NewCodec(testKey(0x02))
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = opener.Open(sealed)
	require.Error(t, err)
}

func TestCodecTamperedCiphertextFailsAuthentication(t *testing.T) {
	codec, err := NewCodec(testKey(0x01))
	require.NoError(t, err)

	sealed, err := codec.Seal([]byte("secret"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = codec.Open(sealed)
	require.Error(t, err)
}

func TestCodecRejectsShortCiphertext(t *testing.T) {
	codec, err := NewCodec(testKey(0x01))
	require.NoError(t, err)

	_, err = codec.Open([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestNewCodecRejectsBadKeyLength(t *testing.T) {
	_, err := NewCodec([]byte("too short"))
	require.Error(t, err)
}

func TestLoadOrCreateKeyPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "data.key")

	first, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	require.Len(t, first, KeySize)

	second, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

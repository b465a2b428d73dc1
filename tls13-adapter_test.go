package catmint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tls13StatePair(t *testing.T, suite string, keyLen int) (*CipherState, *CipherState) {
	t.Helper()
	write, err := NewCipherState(VersionTLS13, suite, testKey(keyLen), testKey(12), nil)
	require.NoError(t, err)
	read, err := NewCipherState(VersionTLS13, suite, testKey(keyLen), testKey(12), nil)
	require.NoError(t, err)
	return write, read
}

func TestTLS13RoundTripAllSuites(t *testing.T) {
	suites := []struct {
		name   string
		keyLen int
	}{
		{"TLS_AES_128_GCM_SHA256", 16},
		{"TLS_AES_256_GCM_SHA384", 32},
		{"TLS_CHACHA20_POLY1305_SHA256", 32},
		{"TLS_AES_128_CCM_SHA256", 16},
		{"TLS_AES_128_CCM_8_SHA256", 16},
	}
	adapter := &tls13Adapter{}
	plaintext := []byte("inner plaintext")

	for _, s := range suites {
		write, read := tls13StatePair(t, s.name, s.keyLen)

		sealed, err := adapter.applyEncryption(plaintext, write, RecordTypeHandshake)
		require.NoError(t, err, s.name)

		opened, ct, err := adapter.applyDecryption(sealed, read, RecordTypeApplicationData)
		require.NoError(t, err, s.name)
		assert.Equal(t, plaintext, opened, s.name)
		assert.Equal(t, RecordTypeHandshake, ct, s.name)
		assert.Equal(t, uint64(1), write.SequenceNumber(), s.name)
		assert.Equal(t, uint64(1), read.SequenceNumber(), s.name)
	}
}

func TestTLS13CiphertextExpansion(t *testing.T) {
	adapter := &tls13Adapter{}
	write, _ := tls13StatePair(t, "TLS_AES_128_GCM_SHA256", 16)

	plaintext := []byte("abc")
	sealed, err := adapter.applyEncryption(plaintext, write, RecordTypeApplicationData)
	require.NoError(t, err)
	// content + inner type byte + 16-byte tag
	assert.Len(t, sealed, len(plaintext)+1+16)
}

func TestTLS13StripsZeroPadding(t *testing.T) {
	adapter := &tls13Adapter{}
	write, read := tls13StatePair(t, "TLS_AES_128_GCM_SHA256", 16)

	// Build a padded inner plaintext by hand: content || type || 0*5.
	aead, err := aeadForState(write)
	require.NoError(t, err)
	content := []byte("padded record")
	inner := append(dup(content), byte(RecordTypeApplicationData))
	inner = append(inner, make([]byte, 5)...)

	seq, err := write.nextSequenceNumber()
	require.NoError(t, err)
	aad := adapter.additionalData(RecordTypeApplicationData, len(inner)+aead.Overhead())
	sealed := aead.Seal(nil, write.computeNonce(seq), inner, aad)

	opened, ct, err := adapter.applyDecryption(sealed, read, RecordTypeApplicationData)
	require.NoError(t, err)
	assert.Equal(t, content, opened)
	assert.Equal(t, RecordTypeApplicationData, ct)
}

func TestTLS13EmptyPlaintext(t *testing.T) {
	adapter := &tls13Adapter{}
	write, read := tls13StatePair(t, "TLS_AES_128_GCM_SHA256", 16)

	// All-zero inner plaintext: padding with no content type at all.
	aead, err := aeadForState(write)
	require.NoError(t, err)
	inner := make([]byte, 4)

	seq, err := write.nextSequenceNumber()
	require.NoError(t, err)
	aad := adapter.additionalData(RecordTypeApplicationData, len(inner)+aead.Overhead())
	sealed := aead.Seal(nil, write.computeNonce(seq), inner, aad)

	_, _, err = adapter.applyDecryption(sealed, read, RecordTypeApplicationData)
	require.ErrorIs(t, err, ErrEmptyPlaintext)
}

func TestTLS13TamperDetected(t *testing.T) {
	adapter := &tls13Adapter{}
	write, read := tls13StatePair(t, "TLS_CHACHA20_POLY1305_SHA256", 32)

	sealed, err := adapter.applyEncryption([]byte("payload"), write, RecordTypeApplicationData)
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0x80
	_, _, err = adapter.applyDecryption(sealed, read, RecordTypeApplicationData)
	require.ErrorIs(t, err, ErrRecordVerificationFailed)
	assert.Equal(t, uint64(1), read.SequenceNumber())
}

func TestTLS13SequenceBindsNonce(t *testing.T) {
	adapter := &tls13Adapter{}
	write, read := tls13StatePair(t, "TLS_AES_128_GCM_SHA256", 16)

	// Two identical plaintexts seal to different ciphertexts.
	first, err := adapter.applyEncryption([]byte("same"), write, RecordTypeApplicationData)
	require.NoError(t, err)
	second, err := adapter.applyEncryption([]byte("same"), write, RecordTypeApplicationData)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// Records opened out of order fail verification.
	_, _, err = adapter.applyDecryption(second, read, RecordTypeApplicationData)
	require.ErrorIs(t, err, ErrRecordVerificationFailed)
}

func TestTLS13PlaintextOverhead(t *testing.T) {
	adapter := &tls13Adapter{}

	gcm, _ := tls13StatePair(t, "TLS_AES_128_GCM_SHA256", 16)
	n, err := adapter.plaintextOverhead(gcm)
	require.NoError(t, err)
	assert.Equal(t, 1+16, n)

	ccm8, _ := tls13StatePair(t, "TLS_AES_128_CCM_8_SHA256", 16)
	n, err = adapter.plaintextOverhead(ccm8)
	require.NoError(t, err)
	assert.Equal(t, 1+8, n)

	sealed, err := adapter.applyEncryption([]byte("abc"), gcm, RecordTypeApplicationData)
	require.NoError(t, err)
	assert.Len(t, sealed, 3+17)
}

func TestTLS13EncodeForcesCompatibilityVersion(t *testing.T) {
	adapter := &tls13Adapter{}
	buf, err := adapter.encodeRecord(NewTLSPlaintext(RecordTypeApplicationData, VersionTLS13, []byte{0xde, 0xad}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x17, 0x03, 0x03, 0x00, 0x02, 0xde, 0xad}, buf)
}

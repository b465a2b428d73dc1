package catmint

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"strings"

	"github.com/pion/dtls/v3/pkg/crypto/ccm"
	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// CCM for TLS uses a 12-byte nonce, leaving 3 octets for the length
// field (RFC 6655: N = 15 - L).
const (
	ccmLengthOctets = 3
	ccmNonceLen     = 15 - ccmLengthOctets
)

// AEADFactory builds an AEAD from a traffic key.
type AEADFactory func(key []byte) (cipher.AEAD, error)

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func newChaCha20Poly1305(key []byte) (cipher.AEAD, error) {
	return chacha20poly1305.New(key)
}

func newAESCCM(tagLen int) AEADFactory {
	return func(key []byte) (cipher.AEAD, error) {
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return ccm.NewCCM(block, tagLen, ccmNonceLen)
	}
}

// aeadFactoryForSuite maps a suite name to its AEAD construction. Both the
// TLS 1.2 AEAD suites and the five TLS 1.3 suites resolve here.
func aeadFactoryForSuite(suite string) (AEADFactory, error) {
	switch {
	case strings.Contains(suite, "CHACHA20_POLY1305"):
		return newChaCha20Poly1305, nil
	case strings.Contains(suite, "CCM_8"):
		return newAESCCM(8), nil
	case strings.Contains(suite, "CCM"):
		return newAESCCM(16), nil
	case strings.Contains(suite, "GCM"):
		return newAESGCM, nil
	}
	return nil, errors.Errorf("tls.record: no AEAD for suite %q", suite)
}

func aeadForState(state *CipherState) (cipher.AEAD, error) {
	factory, err := aeadFactoryForSuite(state.suite)
	if err != nil {
		return nil, err
	}
	return factory(state.key)
}

// blockCipherForSuite builds the CBC-mode block cipher for a
// MAC-then-Encrypt suite.
func blockCipherForSuite(suite string, key []byte) (cipher.Block, error) {
	if strings.Contains(suite, "3DES") {
		return des.NewTripleDESCipher(key)
	}
	return aes.NewCipher(key)
}

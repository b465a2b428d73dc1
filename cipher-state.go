package catmint

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"strings"

	"github.com/pkg/errors"
)

// CipherState carries the keying material for one direction, plus the
// direction's record sequence number. Everything but the sequence number
// is fixed at construction.
type CipherState struct {
	version   uint16
	suite     string
	key       []byte
	iv        []byte
	macKey    []byte
	seq       uint64
	exhausted bool
}

func NewCipherState(version uint16, suite string, key, iv, macKey []byte) (*CipherState, error) {
	if !knownVersion(version) {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "%04x", version)
	}
	if suite == "" || len(key) == 0 {
		return nil, errors.Wrap(ErrInvalidParameter, "cipher state needs a suite and a key")
	}
	return &CipherState{
		version: version,
		suite:   suite,
		key:     dup(key),
		iv:      dup(iv),
		macKey:  dup(macKey),
	}, nil
}

func (c *CipherState) Version() uint16 {
	return c.version
}

func (c *CipherState) Suite() string {
	return c.suite
}

// SequenceNumber returns the number the next record will use, without
// consuming it.
func (c *CipherState) SequenceNumber() uint64 {
	return c.seq
}

// nextSequenceNumber returns the current sequence number and advances the
// counter. The counter never wraps: once the space is spent the state is
// permanently exhausted and the connection must be rekeyed or closed.
func (c *CipherState) nextSequenceNumber() (uint64, error) {
	if c.exhausted || c.seq == ^uint64(0) {
		c.exhausted = true
		return 0, ErrSequenceExhausted
	}
	s := c.seq
	c.seq++
	return s, nil
}

// computeNonce XORs the zero-extended 64-bit sequence number into the low
// eight bytes of the IV, per RFC 8446, Section 5.3.
func (c *CipherState) computeNonce(seq uint64) []byte {
	nonce := make([]byte, len(c.iv))
	copy(nonce, c.iv)

	s := seq
	offset := len(c.iv)
	for i := 0; i < sequenceNumberLen && offset-i-1 >= 0; i++ {
		nonce[(offset-i)-1] ^= byte(s & 0xff)
		s >>= 8
	}

	return nonce
}

// Suite-name markers. The wire identifiers behind these names are
// negotiated by the handshake, which hands the record layer strings like
// "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256" or "TLS_AES_128_CCM_8_SHA256".
func isAEADSuite(suite string) bool {
	return strings.Contains(suite, "GCM") ||
		strings.Contains(suite, "CCM") ||
		strings.Contains(suite, "CHACHA20_POLY1305")
}

func macForSuite(suite string) (func() hash.Hash, int) {
	switch {
	case strings.Contains(suite, "SHA384"):
		return sha512.New384, sha512.Size384
	case strings.Contains(suite, "SHA256"):
		return sha256.New, sha256.Size
	default:
		return sha1.New, sha1.Size
	}
}

package catmint

import (
	"github.com/pkg/errors"
)

// tls13Adapter protects records per RFC 8446, Section 5.2: AEAD only, the
// true content type rides as the last byte of the plaintext, and the
// outer header always claims application_data over version 0x0303 for
// middlebox compatibility.
type tls13Adapter struct{}

func (a *tls13Adapter) encodeRecord(pt *TLSPlaintext) ([]byte, error) {
	return encodeRecordBytes(pt.contentType, VersionTLS12, pt.fragment)
}

func (a *tls13Adapter) decodeRecord(data []byte) (*TLSPlaintext, error) {
	return decodeRecordBytes(data)
}

// additionalData is the outer record header, with the length of the
// full TLSCiphertext fragment including the tag.
func (a *tls13Adapter) additionalData(outer RecordType, length int) []byte {
	return []byte{byte(outer), 0x03, 0x03, byte(length >> 8), byte(length)}
}

// plaintextOverhead is the per-record expansion: the inner content-type
// byte plus the AEAD tag.
func (a *tls13Adapter) plaintextOverhead(state *CipherState) (int, error) {
	aead, err := aeadForState(state)
	if err != nil {
		return 0, err
	}
	return 1 + aead.Overhead(), nil
}

func (a *tls13Adapter) applyEncryption(fragment []byte, state *CipherState, ct RecordType) ([]byte, error) {
	if len(fragment) > maxFragmentLen {
		return nil, ErrRecordOverflow
	}
	seq, err := state.nextSequenceNumber()
	if err != nil {
		return nil, err
	}
	aead, err := aeadForState(state)
	if err != nil {
		return nil, err
	}

	// TLSInnerPlaintext: content || contentType. No padding is emitted.
	inner := make([]byte, len(fragment)+1)
	copy(inner, fragment)
	inner[len(fragment)] = byte(ct)

	nonce := state.computeNonce(seq)
	aad := a.additionalData(RecordTypeApplicationData, len(inner)+aead.Overhead())
	return aead.Seal(nil, nonce, inner, aad), nil
}

func (a *tls13Adapter) applyDecryption(fragment []byte, state *CipherState, outer RecordType) ([]byte, RecordType, error) {
	seq, err := state.nextSequenceNumber()
	if err != nil {
		return nil, 0, err
	}
	aead, err := aeadForState(state)
	if err != nil {
		return nil, 0, err
	}
	if len(fragment) < aead.Overhead() {
		return nil, 0, verificationFailed(errors.Errorf("record shorter than AEAD tag [%d < %d]", len(fragment), aead.Overhead()))
	}

	nonce := state.computeNonce(seq)
	aad := a.additionalData(outer, len(fragment))
	inner, err := aead.Open(nil, nonce, fragment, aad)
	if err != nil {
		return nil, 0, verificationFailed(err)
	}

	// Scan off the zero padding; the first nonzero byte from the end is
	// the inner content type.
	i := len(inner) - 1
	for i >= 0 && inner[i] == 0 {
		i--
	}
	if i < 0 {
		return nil, 0, ErrEmptyPlaintext
	}
	ct := RecordType(inner[i])
	plaintext := inner[:i]
	if len(plaintext) > maxFragmentLen {
		return nil, 0, ErrRecordOverflow
	}
	return plaintext, ct, nil
}

package catmint

import (
	"crypto/cipher"
	"crypto/hmac"

	"github.com/pkg/errors"
)

// tls12Adapter frames and protects records for TLS 1.0 through 1.2. AEAD
// suites authenticate with the AEAD tag alone; CBC suites use
// MAC-then-Encrypt per RFC 5246, Section 6.2.3.
type tls12Adapter struct {
	version uint16
}

func (a *tls12Adapter) encodeRecord(pt *TLSPlaintext) ([]byte, error) {
	return encodeRecordBytes(pt.contentType, a.version, pt.fragment)
}

func (a *tls12Adapter) decodeRecord(data []byte) (*TLSPlaintext, error) {
	return decodeRecordBytes(data)
}

// additionalData is the AEAD associated data: the record header fields
// with the length of the unprotected fragment.
func (a *tls12Adapter) additionalData(ct RecordType, length int) []byte {
	return []byte{
		byte(ct),
		byte(a.version >> 8), byte(a.version),
		byte(length >> 8), byte(length),
	}
}

// plaintextOverhead is the worst-case per-record expansion: the AEAD
// tag, or MAC plus a full block of padding for CBC suites.
func (a *tls12Adapter) plaintextOverhead(state *CipherState) (int, error) {
	if isAEADSuite(state.suite) {
		aead, err := aeadForState(state)
		if err != nil {
			return 0, err
		}
		return aead.Overhead(), nil
	}
	block, err := blockCipherForSuite(state.suite, state.key)
	if err != nil {
		return 0, err
	}
	_, macLen := macForSuite(state.suite)
	return macLen + block.BlockSize(), nil
}

func (a *tls12Adapter) applyEncryption(fragment []byte, state *CipherState, ct RecordType) ([]byte, error) {
	if len(fragment) > maxFragmentLen {
		return nil, ErrRecordOverflow
	}
	seq, err := state.nextSequenceNumber()
	if err != nil {
		return nil, err
	}
	if isAEADSuite(state.suite) {
		return a.sealAEAD(fragment, state, ct, seq)
	}
	return a.sealCBC(fragment, state, ct, seq)
}

// applyDecryption consumes exactly one sequence number whether or not the
// record verifies, and collapses every cryptographic failure into the
// same opaque error. TLS 1.2 has no inner content type; the outer type
// seen on the wire is handed back unchanged.
func (a *tls12Adapter) applyDecryption(fragment []byte, state *CipherState, outer RecordType) ([]byte, RecordType, error) {
	seq, err := state.nextSequenceNumber()
	if err != nil {
		return nil, 0, err
	}
	var plaintext []byte
	if isAEADSuite(state.suite) {
		plaintext, err = a.openAEAD(fragment, state, outer, seq)
	} else {
		plaintext, err = a.openCBC(fragment, state, outer, seq)
	}
	if err != nil {
		return nil, 0, err
	}
	if len(plaintext) > maxFragmentLen {
		return nil, 0, ErrRecordOverflow
	}
	return plaintext, outer, nil
}

func (a *tls12Adapter) sealAEAD(fragment []byte, state *CipherState, ct RecordType, seq uint64) ([]byte, error) {
	aead, err := aeadForState(state)
	if err != nil {
		return nil, err
	}
	nonce := state.computeNonce(seq)
	aad := a.additionalData(ct, len(fragment))
	return aead.Seal(nil, nonce, fragment, aad), nil
}

func (a *tls12Adapter) openAEAD(fragment []byte, state *CipherState, outer RecordType, seq uint64) ([]byte, error) {
	aead, err := aeadForState(state)
	if err != nil {
		return nil, err
	}
	if len(fragment) < aead.Overhead() {
		return nil, verificationFailed(errors.Errorf("record shorter than AEAD tag [%d < %d]", len(fragment), aead.Overhead()))
	}
	nonce := state.computeNonce(seq)
	aad := a.additionalData(outer, len(fragment)-aead.Overhead())
	plaintext, err := aead.Open(nil, nonce, fragment, aad)
	if err != nil {
		return nil, verificationFailed(err)
	}
	return plaintext, nil
}

// computeMAC is the HMAC over seq || type || version || length || payload,
// the RFC 5246 MAC formula.
func (a *tls12Adapter) computeMAC(state *CipherState, seq uint64, ct RecordType, payload []byte) []byte {
	newHash, _ := macForSuite(state.suite)
	mac := hmac.New(newHash, state.macKey)

	var header [13]byte
	for i := 0; i < sequenceNumberLen; i++ {
		header[sequenceNumberLen-1-i] = byte(seq >> (8 * i))
	}
	header[8] = byte(ct)
	header[9] = byte(a.version >> 8)
	header[10] = byte(a.version)
	header[11] = byte(len(payload) >> 8)
	header[12] = byte(len(payload))

	mac.Write(header[:])
	mac.Write(payload)
	return mac.Sum(nil)
}

func (a *tls12Adapter) sealCBC(fragment []byte, state *CipherState, ct RecordType, seq uint64) ([]byte, error) {
	block, err := blockCipherForSuite(state.suite, state.key)
	if err != nil {
		return nil, err
	}
	if len(state.iv) != block.BlockSize() {
		return nil, errors.Wrap(ErrInvalidParameter, "CBC IV does not match the cipher block size")
	}

	mac := a.computeMAC(state, seq, ct, fragment)
	padded := ApplyPKCS7Padding(append(dup(fragment), mac...), block.BlockSize())

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, state.iv).CryptBlocks(out, padded)
	return out, nil
}

// openCBC decrypts and verifies a MAC-then-Encrypt record. The padding
// check is constant time, and the MAC is computed over a same-length
// best-effort payload even when the padding is bad, so the two failures
// are indistinguishable in both timing and error value.
func (a *tls12Adapter) openCBC(fragment []byte, state *CipherState, outer RecordType, seq uint64) ([]byte, error) {
	block, err := blockCipherForSuite(state.suite, state.key)
	if err != nil {
		return nil, err
	}
	if len(state.iv) != block.BlockSize() {
		return nil, errors.Wrap(ErrInvalidParameter, "CBC IV does not match the cipher block size")
	}
	blockSize := block.BlockSize()
	if len(fragment) == 0 || len(fragment)%blockSize != 0 {
		return nil, verificationFailed(errors.Errorf("ciphertext length %d not a block multiple", len(fragment)))
	}

	plaintext := make([]byte, len(fragment))
	cipher.NewCBCDecrypter(block, state.iv).CryptBlocks(plaintext, fragment)

	padOK, padLen := VerifyPKCS7PaddingConstantTime(plaintext, blockSize)

	_, macLen := macForSuite(state.suite)
	contentLen := len(plaintext) - padLen - macLen
	if contentLen < 0 {
		// Record too short to hold a MAC. Keep the error path
		// uniform: verify a MAC anyway before failing.
		contentLen = 0
		padOK = false
	}
	content := plaintext[:contentLen]
	var gotMAC []byte
	if contentLen+macLen <= len(plaintext) {
		gotMAC = plaintext[contentLen : contentLen+macLen]
	}

	macOK := hmac.Equal(gotMAC, a.computeMAC(state, seq, outer, content))

	if !padOK || !macOK {
		return nil, verificationFailed(errors.New("MAC or padding mismatch"))
	}
	return content, nil
}

package catmint

import (
	"crypto/subtle"
	"strings"

	"github.com/pkg/errors"
)

// ProtectionStrategy names the countermeasure a version/suite pair needs
// against chosen-plaintext and padding-oracle attacks on CBC.
type ProtectionStrategy int

const (
	// ProtectionNone: AEAD suites and TLS 1.3 need no CBC mitigation.
	ProtectionNone ProtectionStrategy = iota
	// ProtectionSplitRecords: 1/n-1 record splitting against BEAST on
	// TLS 1.0 CBC.
	ProtectionSplitRecords
	// ProtectionConstantTimePadding: constant-time PKCS#7 checking
	// against Lucky-13 style oracles on TLS 1.1/1.2 CBC.
	ProtectionConstantTimePadding
)

// ApplyPKCS7Padding appends p bytes of value p, 1 <= p <= blockSize, so
// the result is a whole number of blocks.
func ApplyPKCS7Padding(data []byte, blockSize int) []byte {
	p := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+p)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(p)
	}
	return out
}

// VerifyPKCS7PaddingConstantTime checks the trailing padding without
// branching on secret bytes. The loop always runs blockSize iterations;
// every comparison folds into the validity flag with bitwise ops. The
// returned length is 0 when the padding is invalid.
func VerifyPKCS7PaddingConstantTime(data []byte, blockSize int) (bool, int) {
	if blockSize <= 0 || len(data) == 0 || len(data)%blockSize != 0 {
		return false, 0
	}

	pad := int(data[len(data)-1])
	valid := subtle.ConstantTimeLessOrEq(1, pad) & subtle.ConstantTimeLessOrEq(pad, blockSize)

	for i := 0; i < blockSize; i++ {
		inPad := subtle.ConstantTimeLessOrEq(i+1, pad)
		eq := subtle.ConstantTimeByteEq(data[len(data)-1-i], byte(pad))
		// Positions inside the padding must hold the pad value;
		// positions outside contribute nothing.
		valid &= subtle.ConstantTimeSelect(inPad, eq, 1)
	}

	return valid == 1, subtle.ConstantTimeSelect(valid, pad, 0)
}

// RemovePKCS7Padding strips a valid padding suffix. Callers on a secret
// path must not branch on the error; the CBC decrypt path uses the
// constant-time verifier directly instead.
func RemovePKCS7Padding(data []byte, blockSize int) ([]byte, error) {
	ok, pad := VerifyPKCS7PaddingConstantTime(data, blockSize)
	if !ok {
		return nil, errors.Wrap(ErrRecordVerificationFailed, "bad padding")
	}
	return data[:len(data)-pad], nil
}

// SelectProtectionStrategy picks the mitigation for a version and suite.
func SelectProtectionStrategy(version uint16, suite string) ProtectionStrategy {
	if version == VersionTLS13 {
		return ProtectionNone
	}
	if isAEADSuite(suite) {
		return ProtectionNone
	}
	if version == VersionTLS10 && strings.Contains(suite, "CBC") {
		return ProtectionSplitRecords
	}
	return ProtectionConstantTimePadding
}

// ApplySplitRecordMitigation splits a payload 1/n-1 so the first CBC
// block of the bulk record is no longer attacker-predictable.
func ApplySplitRecordMitigation(plaintext []byte) [][]byte {
	if len(plaintext) < 2 {
		return [][]byte{plaintext}
	}
	return [][]byte{plaintext[:1], plaintext[1:]}
}

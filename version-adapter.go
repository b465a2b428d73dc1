package catmint

import (
	"github.com/pkg/errors"
)

// versionAdapter owns the wire codec and the cryptographic transforms for
// one protocol generation. There are exactly two implementations, chosen
// once at construction: tls12Adapter (covering TLS 1.0-1.2) and
// tls13Adapter.
type versionAdapter interface {
	encodeRecord(pt *TLSPlaintext) ([]byte, error)
	decodeRecord(data []byte) (*TLSPlaintext, error)
	applyEncryption(fragment []byte, state *CipherState, ct RecordType) ([]byte, error)
	applyDecryption(fragment []byte, state *CipherState, outer RecordType) ([]byte, RecordType, error)
	plaintextOverhead(state *CipherState) (int, error)
}

func newVersionAdapter(version uint16) (versionAdapter, error) {
	switch version {
	case VersionTLS10, VersionTLS11, VersionTLS12:
		return &tls12Adapter{version: version}, nil
	case VersionTLS13:
		return &tls13Adapter{}, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedVersion, "%04x", version)
}

func encodeRecordBytes(ct RecordType, version uint16, fragment []byte) ([]byte, error) {
	if len(fragment) > maxCiphertextLen {
		return nil, ErrRecordOverflow
	}
	out := make([]byte, recordHeaderLen+len(fragment))
	out[0] = byte(ct)
	out[1] = byte(version >> 8)
	out[2] = byte(version)
	out[3] = byte(len(fragment) >> 8)
	out[4] = byte(len(fragment))
	copy(out[recordHeaderLen:], fragment)
	return out, nil
}

func decodeRecordBytes(data []byte) (*TLSPlaintext, error) {
	if len(data) < recordHeaderLen {
		return nil, ErrIncompleteRecord
	}
	length := (int(data[3]) << 8) | int(data[4])
	if length > maxCiphertextLen {
		return nil, ErrRecordOverflow
	}
	if len(data) < recordHeaderLen+length {
		return nil, ErrIncompleteRecord
	}
	return &TLSPlaintext{
		contentType: RecordType(data[0]),
		version:     uint16(data[1])<<8 | uint16(data[2]),
		fragment:    dup(data[recordHeaderLen : recordHeaderLen+length]),
	}, nil
}

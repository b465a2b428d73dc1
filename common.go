package catmint

// enum {...} ContentType;
type RecordType byte

const (
	RecordTypeChangeCipherSpec RecordType = 20
	RecordTypeAlert            RecordType = 21
	RecordTypeHandshake        RecordType = 22
	RecordTypeApplicationData  RecordType = 23
	RecordTypeHeartbeat        RecordType = 24
)

// ProtocolVersion as major/minor packed into a uint16
const (
	VersionTLS10 uint16 = 0x0301
	VersionTLS11 uint16 = 0x0302
	VersionTLS12 uint16 = 0x0303
	VersionTLS13 uint16 = 0x0304
)

const (
	sequenceNumberLen = 8       // sequence number length
	recordHeaderLen   = 5       // record header length
	maxFragmentLen    = 1 << 14 // max number of plaintext bytes in a record
	minFragmentLen    = 64      // smallest negotiable fragment ceiling

	// Ciphertext may exceed the plaintext limit by padding, MAC, inner
	// content type, and AEAD tag.
	maxCiphertextLen = maxFragmentLen + 2048

	// The reassembly buffer refuses to grow past two maximum records.
	maxBufferedLen = 2 * (recordHeaderLen + maxCiphertextLen)

	defaultReplayWindowSize = 64 // RFC 6347, Section 4.1.2.6
)

func knownVersion(v uint16) bool {
	switch v {
	case VersionTLS10, VersionTLS11, VersionTLS12, VersionTLS13:
		return true
	}
	return false
}

func knownContentType(t RecordType) bool {
	switch t {
	case RecordTypeChangeCipherSpec, RecordTypeAlert, RecordTypeHandshake,
		RecordTypeApplicationData, RecordTypeHeartbeat:
		return true
	}
	return false
}

// struct {
//     ContentType type;
//     ProtocolVersion record_version;
//     uint16 length;
//     opaque fragment[TLSPlaintext.length];
// } TLSPlaintext;
type TLSPlaintext struct {
	// Omitted: length (computed from fragment)
	contentType RecordType
	version     uint16
	fragment    []byte
}

func NewTLSPlaintext(ct RecordType, version uint16, fragment []byte) *TLSPlaintext {
	return &TLSPlaintext{
		contentType: ct,
		version:     version,
		fragment:    fragment,
	}
}

func (t *TLSPlaintext) ContentType() RecordType {
	return t.contentType
}

func (t *TLSPlaintext) Version() uint16 {
	return t.version
}

func (t *TLSPlaintext) Fragment() []byte {
	return t.fragment
}

func dup(a []byte) []byte {
	r := make([]byte, len(a))
	copy(r, a)
	return r
}

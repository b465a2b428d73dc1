package catmint

import (
	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedVersion is returned by New for versions outside
	// TLS 1.0 through TLS 1.3. SSL 3.0 is rejected.
	ErrUnsupportedVersion = errors.New("tls.record: unsupported protocol version")

	// ErrInvalidParameter is returned for out-of-range settings.
	ErrInvalidParameter = errors.New("tls.record: parameter out of range")

	// ErrIncompleteRecord means the input ends before the full record;
	// the receive loop treats it as "read more".
	ErrIncompleteRecord = errors.New("tls.record: incomplete record")

	// ErrTransportClosed means the transport returned no data: the peer
	// closed the connection or the read timed out.
	ErrTransportClosed = errors.New("tls.record: transport closed")

	// ErrIncompleteSend means the transport accepted fewer bytes than
	// the serialized record.
	ErrIncompleteSend = errors.New("tls.record: incomplete send")

	// ErrRecordVerificationFailed covers AEAD tag, MAC, and padding
	// failures without distinguishing them.
	ErrRecordVerificationFailed = errors.New("tls.record: record verification failed")

	// ErrReplayDetected means the record's sequence number was already
	// accepted inside the replay window.
	ErrReplayDetected = errors.New("tls.record: replay detected")

	// ErrEmptyPlaintext means a decrypted TLS 1.3 record carried no
	// inner content type.
	ErrEmptyPlaintext = errors.New("tls.record: empty plaintext")

	// ErrSequenceExhausted means the 64-bit sequence space is spent;
	// the connection must be rekeyed or closed.
	ErrSequenceExhausted = errors.New("tls.record: sequence number exhausted")

	// ErrRecordOverflow means a record exceeded the wire size limits.
	ErrRecordOverflow = errors.New("tls.record: record size too big")
)

// WouldBlock signals that the frame reader needs more input. It never
// escapes ReceiveRecord.
var WouldBlock = errors.New("tls.record: would have blocked")

// verificationError hides the reason a record failed to verify. The cause
// is kept for logging but the message is fixed and there is no Unwrap, so
// callers cannot select on padding-fail versus MAC-fail.
type verificationError struct {
	cause error
}

func (e *verificationError) Error() string {
	return ErrRecordVerificationFailed.Error()
}

func (e *verificationError) Is(target error) bool {
	return target == ErrRecordVerificationFailed
}

func verificationFailed(cause error) error {
	return &verificationError{cause: cause}
}

// verificationCause exposes the hidden cause to the logging path only.
func verificationCause(err error) error {
	if v, ok := err.(*verificationError); ok && v.cause != nil {
		return v.cause
	}
	return err
}

package catmint

import (
	"github.com/pion/logging"
	"github.com/pkg/errors"
)

// directionState: each direction starts PLAIN and flips to ENCRYPTED on
// the first cipher-spec change. There is no way back; a later change on
// an ENCRYPTED direction is a rekey.
type directionState uint8

const (
	directionPlain directionState = iota
	directionEncrypted
)

// Config carries the construction-time parameters of a RecordLayer. The
// Version is mandatory; everything else has a usable zero value.
type Config struct {
	Version           uint16
	MaxFragmentLength int  // 0 means the protocol maximum, 2^14
	ReplayProtection  bool // enable the anti-replay window on the read side
	ReplayWindowSize  int  // 0 means 64 slots
	LoggerFactory     logging.LoggerFactory
}

// RecordLayer frames, fragments, protects, and reassembles TLS records
// over a Transport. Instances are single-threaded per connection; callers
// serialize access. The read and write directions keep independent cipher
// state but share the transport.
type RecordLayer struct {
	version   uint16
	adapter   versionAdapter
	transport Transport
	frame     *frameReader
	log       logging.LeveledLogger

	maxFragmentLen int

	writeState  directionState
	writeCipher *CipherState
	readState   directionState
	readCipher  *CipherState

	replayProtection bool
	replayWindow     *ReplayWindow
}

// New validates the version and instantiates the matching adapter:
// tls13Adapter for 0x0304, tls12Adapter for 0x0301-0x0303. SSL 3.0 and
// anything else is refused.
func New(transport Transport, config Config) (*RecordLayer, error) {
	if transport == nil {
		return nil, errors.Wrap(ErrInvalidParameter, "nil transport")
	}
	adapter, err := newVersionAdapter(config.Version)
	if err != nil {
		return nil, err
	}

	fragLen := config.MaxFragmentLength
	if fragLen == 0 {
		fragLen = maxFragmentLen
	}
	if fragLen < minFragmentLen || fragLen > maxFragmentLen {
		return nil, errors.Wrapf(ErrInvalidParameter, "max fragment length %d", fragLen)
	}

	windowSize := config.ReplayWindowSize
	if windowSize <= 0 {
		windowSize = defaultReplayWindowSize
	}

	return &RecordLayer{
		version:          config.Version,
		adapter:          adapter,
		transport:        transport,
		frame:            newFrameReader(),
		log:              loggerFor(config.LoggerFactory),
		maxFragmentLen:   fragLen,
		replayProtection: config.ReplayProtection,
		replayWindow:     NewReplayWindow(windowSize),
	}, nil
}

// SendRecord splits data into fragments of at most the configured length,
// protects each under the write cipher state, and writes the serialized
// records to the transport in order. Empty input produces no records.
func (r *RecordLayer) SendRecord(ct RecordType, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	pieces := [][]byte{data}
	if r.writeState == directionEncrypted && ct == RecordTypeApplicationData &&
		SelectProtectionStrategy(r.version, r.writeCipher.suite) == ProtectionSplitRecords {
		pieces = ApplySplitRecordMitigation(data)
	}

	for _, piece := range pieces {
		for len(piece) > 0 {
			n := len(piece)
			if n > r.maxFragmentLen {
				n = r.maxFragmentLen
			}
			if err := r.sendFragment(ct, piece[:n]); err != nil {
				return err
			}
			piece = piece[n:]
		}
	}
	return nil
}

func (r *RecordLayer) sendFragment(ct RecordType, fragment []byte) error {
	outer := ct
	if r.writeState == directionEncrypted {
		protected, err := r.adapter.applyEncryption(fragment, r.writeCipher, ct)
		if err != nil {
			return err
		}
		fragment = protected
		if r.version == VersionTLS13 {
			outer = RecordTypeApplicationData
		}
	}

	buf, err := r.adapter.encodeRecord(NewTLSPlaintext(outer, r.version, fragment))
	if err != nil {
		return err
	}

	r.log.Tracef("WriteRecord [%d] [%x]", outer, fragment)

	n, err := r.transport.Send(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return errors.Wrapf(ErrIncompleteSend, "wrote %d of %d", n, len(buf))
	}
	return nil
}

// ReceiveRecord blocks on the transport until one full record has been
// reassembled, then decodes and, on an ENCRYPTED read side, verifies and
// decrypts it. The returned record carries the decrypted payload and, for
// TLS 1.3, the inner content type; TLS 1.2 keeps the outer type.
func (r *RecordLayer) ReceiveRecord() (*TLSPlaintext, error) {
	hdr, body, err := r.nextFrame()
	if err != nil {
		return nil, err
	}

	raw := append(hdr, body...)
	rec, err := r.adapter.decodeRecord(raw)
	if err != nil {
		r.frame.reset()
		return nil, err
	}
	if !knownContentType(rec.contentType) {
		r.frame.reset()
		return nil, errors.Errorf("tls.record: unknown content type %02x", byte(rec.contentType))
	}

	if r.readState != directionEncrypted {
		r.log.Tracef("ReadRecord [%d] [%x]", rec.contentType, rec.fragment)
		return rec, nil
	}

	seq := r.readCipher.SequenceNumber()
	if r.replayProtection && r.replayWindow.IsReplay(seq) {
		return nil, errors.Wrapf(ErrReplayDetected, "sequence %d", seq)
	}

	plaintext, ct, err := r.adapter.applyDecryption(rec.fragment, r.readCipher, rec.contentType)
	if err != nil {
		r.log.Debugf("record %d failed verification: %v", seq, verificationCause(err))
		return nil, err
	}
	if r.replayProtection {
		r.replayWindow.MarkAsProcessed(seq)
	}

	r.log.Tracef("ReadRecord seq=[%x] [%d] [%x]", seq, ct, plaintext)
	return NewTLSPlaintext(ct, rec.version, plaintext), nil
}

// nextFrame drains buffered bytes and the transport until a full record
// is available. Framing errors clear the buffer before propagating.
func (r *RecordLayer) nextFrame() ([]byte, []byte, error) {
	for {
		hdr, body, err := r.frame.process()
		if err == nil {
			return hdr, body, nil
		}
		if err != WouldBlock {
			r.frame.reset()
			return nil, nil, err
		}

		chunk, err := r.transport.Receive(maxFragmentLen)
		if err != nil {
			return nil, nil, err
		}
		if len(chunk) == 0 {
			return nil, nil, ErrTransportClosed
		}
		if err := r.frame.addChunk(chunk); err != nil {
			r.frame.reset()
			return nil, nil, err
		}
	}
}

// ChangeWriteCipherSpec installs state and flips the write direction to
// ENCRYPTED. Calling it again rekeys.
func (r *RecordLayer) ChangeWriteCipherSpec(state *CipherState) error {
	if err := r.checkCipherState(state); err != nil {
		return err
	}
	r.writeCipher = state
	r.writeState = directionEncrypted
	return nil
}

// ChangeReadCipherSpec installs state, flips the read direction to
// ENCRYPTED, and resets the replay window.
func (r *RecordLayer) ChangeReadCipherSpec(state *CipherState) error {
	if err := r.checkCipherState(state); err != nil {
		return err
	}
	r.readCipher = state
	r.readState = directionEncrypted
	r.replayWindow.Reset()
	return nil
}

func (r *RecordLayer) checkCipherState(state *CipherState) error {
	if state == nil {
		return errors.Wrap(ErrInvalidParameter, "nil cipher state")
	}
	if state.version != r.version {
		return errors.Wrapf(ErrInvalidParameter, "cipher state is for version %04x", state.version)
	}
	return nil
}

func (r *RecordLayer) SetMaxFragmentLength(n int) error {
	if n < minFragmentLen || n > maxFragmentLen {
		return errors.Wrapf(ErrInvalidParameter, "max fragment length %d", n)
	}
	r.maxFragmentLen = n
	return nil
}

func (r *RecordLayer) MaxFragmentLength() int {
	return r.maxFragmentLen
}

// PlaintextOverhead reports the worst-case bytes a record grows by under
// the current write cipher state, so callers can size flights. A PLAIN
// write direction expands nothing.
func (r *RecordLayer) PlaintextOverhead() (int, error) {
	if r.writeState != directionEncrypted {
		return 0, nil
	}
	return r.adapter.plaintextOverhead(r.writeCipher)
}

// SetReplayProtection toggles the anti-replay window; enabling it starts
// from a clean window.
func (r *RecordLayer) SetReplayProtection(enabled bool) {
	if enabled && !r.replayProtection {
		r.replayWindow.Reset()
	}
	r.replayProtection = enabled
}

func (r *RecordLayer) ReplayProtectionEnabled() bool {
	return r.replayProtection
}

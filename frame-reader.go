// Reassemble TLS records from a byte stream that delivers arbitrary
// chunks: partial headers, partial bodies, several records at once.
package catmint

const (
	frameStateHeader = 0
	frameStateBody   = 1
)

type frameReader struct {
	state       uint8
	header      []byte
	body        []byte
	working     []byte
	writeOffset int
	remainder   []byte
}

func newFrameReader() *frameReader {
	hdr := make([]byte, recordHeaderLen)
	return &frameReader{
		state:   frameStateHeader,
		header:  hdr,
		working: hdr,
	}
}

func (f *frameReader) needed() int {
	tmp := (len(f.working) - f.writeOffset) - len(f.remainder)
	if tmp < 0 {
		return 0
	}
	return tmp
}

// buffered reports how many bytes the reader currently holds, across the
// working frame and the remainder. A header that has already been parsed
// while its body is awaited is not counted.
func (f *frameReader) buffered() int {
	return f.writeOffset + len(f.remainder)
}

func (f *frameReader) addChunk(in []byte) error {
	if f.buffered()+len(in) > maxBufferedLen {
		return ErrRecordOverflow
	}
	f.remainder = append(f.remainder, in...)
	return nil
}

// process returns the next complete record as (header, body). It returns
// WouldBlock until enough chunks have arrived, and a protocol error for a
// length field beyond the ciphertext limit.
func (f *frameReader) process() (hdr []byte, body []byte, err error) {
	for f.needed() == 0 {
		// Fill out our working block
		copied := copy(f.working[f.writeOffset:], f.remainder)
		f.remainder = f.remainder[copied:]
		f.writeOffset += copied
		if f.writeOffset < len(f.working) {
			return nil, nil, WouldBlock
		}
		// Reset the write offset, because we are now full.
		f.writeOffset = 0

		// We have read a full frame
		if f.state == frameStateBody {
			f.state = frameStateHeader
			f.working = f.header
			return dup(f.header), dup(f.body), nil
		}

		// We have read the header
		bodyLen := (int(f.header[3]) << 8) | int(f.header[4])
		if bodyLen > maxCiphertextLen {
			return nil, nil, ErrRecordOverflow
		}

		f.body = make([]byte, bodyLen)
		f.working = f.body
		f.writeOffset = 0
		f.state = frameStateBody
	}

	return nil, nil, WouldBlock
}

// reset drops all buffered bytes and any half-read frame. Called after a
// decode failure so a poisoned stream cannot pin memory.
func (f *frameReader) reset() {
	f.state = frameStateHeader
	f.working = f.header
	f.writeOffset = 0
	f.body = nil
	f.remainder = nil
}

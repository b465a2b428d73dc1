package catmint

// ReplayWindow is a sliding-window duplicate detector over record
// sequence numbers. Bit i of the window covers highest-i; anything older
// than the window is treated as a replay. The default width is 64 slots
// (RFC 6347, Section 4.1.2.6).
type ReplayWindow struct {
	size    int
	highest int64 // -1 until the first mark
	bits    []uint64
}

func NewReplayWindow(size int) *ReplayWindow {
	if size <= 0 {
		size = defaultReplayWindowSize
	}
	return &ReplayWindow{
		size:    size,
		highest: -1,
		bits:    make([]uint64, (size+63)/64),
	}
}

func (w *ReplayWindow) WindowSize() int {
	return w.size
}

// IsReplay reports whether seq was already accepted. It has no side
// effects.
func (w *ReplayWindow) IsReplay(seq uint64) bool {
	if w.highest < 0 {
		return false
	}
	if seq > uint64(w.highest) {
		return false
	}
	diff := uint64(w.highest) - seq
	if diff >= uint64(w.size) {
		// Too old to track; refuse it.
		return true
	}
	return w.bit(diff)
}

// MarkAsProcessed records seq as accepted, sliding the window forward
// when seq advances past the highest number seen.
func (w *ReplayWindow) MarkAsProcessed(seq uint64) {
	if w.highest < 0 {
		w.highest = int64(seq)
		w.setBit(0)
		return
	}
	if seq > uint64(w.highest) {
		shift := seq - uint64(w.highest)
		if shift >= uint64(w.size) {
			w.clear()
		} else {
			w.slide(shift)
		}
		w.highest = int64(seq)
		w.setBit(0)
		return
	}
	diff := uint64(w.highest) - seq
	if diff < uint64(w.size) {
		w.setBit(diff)
	}
}

// CheckAndMark is the atomic composition the receive path uses: it
// reports whether seq is a replay and, if it is not, marks it.
func (w *ReplayWindow) CheckAndMark(seq uint64) bool {
	if w.IsReplay(seq) {
		return true
	}
	w.MarkAsProcessed(seq)
	return false
}

func (w *ReplayWindow) Reset() {
	w.highest = -1
	w.clear()
}

func (w *ReplayWindow) bit(i uint64) bool {
	return w.bits[i/64]&(1<<(i%64)) != 0
}

func (w *ReplayWindow) setBit(i uint64) {
	w.bits[i/64] |= 1 << (i % 64)
}

func (w *ReplayWindow) clear() {
	for i := range w.bits {
		w.bits[i] = 0
	}
}

// slide ages every tracked bit by n positions: the bit at position i
// moves to position i+n, so it still covers highest-i once highest
// advances by n.
func (w *ReplayWindow) slide(n uint64) {
	wordShift := int(n / 64)
	bitShift := uint(n % 64)
	for i := len(w.bits) - 1; i >= 0; i-- {
		var v uint64
		if src := i - wordShift; src >= 0 {
			v = w.bits[src] << bitShift
			if bitShift > 0 && src-1 >= 0 {
				v |= w.bits[src-1] >> (64 - bitShift)
			}
		}
		w.bits[i] = v
	}
}

package audio

// DefaultFrameBytes is the default FrameBuffer threshold: 300ms of PCM16
// audio at 16kHz mono.
const DefaultFrameBytes = 9600

// FrameBuffer accumulates PCM bytes until a minimum frame size is reached.
// It bounds how often small, inefficient sends are made to the AI provider
// while bounding added latency to one threshold's worth of audio.
//
// A FrameBuffer is owned by exactly one direction of one stream and is not
// safe for concurrent use.
type FrameBuffer struct {
	buf       []byte
	threshold int
}

// NewFrameBuffer creates a FrameBuffer that drains once at least threshold
// bytes have accumulated. A threshold of zero or less drains on every push.
func NewFrameBuffer(threshold int) *FrameBuffer {
	return &FrameBuffer{threshold: threshold}
}

// Push appends p to the buffer.
func (b *FrameBuffer) Push(p []byte) {
	b.buf = append(b.buf, p...)
}

// Drain returns the accumulated bytes and resets the buffer, but only once
// the threshold has been reached. Below threshold it returns nil and leaves
// the buffer untouched.
func (b *FrameBuffer) Drain() []byte {
	if len(b.buf) < b.threshold || len(b.buf) == 0 {
		return nil
	}
	out := b.buf
	b.buf = nil
	return out
}

// Len reports the number of buffered bytes.
func (b *FrameBuffer) Len() int { return len(b.buf) }

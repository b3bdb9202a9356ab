package audio

import "math"

// ResampleState carries the interpolation position across consecutive
// Resample calls for one direction of one stream. The zero value is the
// correct initial state. States must not be shared between directions or
// between streams: the trailing sample of one stream would bleed into the
// start of another.
type ResampleState struct {
	// last is the final input sample of the previous call, used when the
	// next output position falls between two chunks.
	last int16

	// pos is the position of the next output sample relative to the start
	// of the next input chunk, in input-sample units. May be negative
	// (still within the gap after last) or exceed zero (already inside the
	// next chunk).
	pos float64

	// primed is false until the first non-passthrough call has run.
	primed bool
}

// Resample converts little-endian int16 mono PCM from fromRate to toRate
// using linear interpolation and returns the converted PCM together with the
// updated state. Feeding consecutive chunks of one stream through the same
// threaded state continues the interpolation seamlessly across chunk
// boundaries; starting each chunk from a cold state would introduce an
// audible discontinuity every chunk.
//
// When fromRate == toRate the input is returned unchanged and the state is
// passed through untouched. From a fresh state the output holds
// round(samples·toRate/fromRate) samples, clamped to the int16 domain; with a
// threaded state the carried phase is folded into the length so the stream
// total stays on the rate ratio and the phase stays bounded near zero.
func Resample(pcm []byte, fromRate, toRate int, st ResampleState) ([]byte, ResampleState) {
	if fromRate <= 0 || toRate <= 0 || fromRate == toRate {
		return pcm, st
	}
	n := len(pcm) / 2
	if n == 0 {
		return nil, st
	}

	m := int(math.Round((float64(n) - st.pos) * float64(toRate) / float64(fromRate)))
	if m < 0 {
		m = 0
	}
	ratio := float64(fromRate) / float64(toRate)

	sampleAt := func(idx int) int16 {
		if idx < 0 {
			if st.primed {
				return st.last
			}
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		return int16(pcm[idx*2]) | int16(pcm[idx*2+1])<<8
	}

	out := make([]byte, m*2)
	for i := 0; i < m; i++ {
		p := st.pos + float64(i)*ratio
		idx := int(math.Floor(p))
		frac := p - float64(idx)

		s0 := sampleAt(idx)
		s1 := sampleAt(idx + 1)

		v := float64(s0)*(1-frac) + float64(s1)*frac
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		s := int16(v)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}

	next := ResampleState{
		last:   sampleAt(n - 1),
		pos:    st.pos + float64(m)*ratio - float64(n),
		primed: true,
	}
	return out, next
}

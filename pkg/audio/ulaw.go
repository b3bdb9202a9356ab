// Package audio provides the transcoding primitives for the Larynx bridge:
// G.711 μ-law codec, a stateful sample-rate converter, and the frame buffer
// that batches PCM into provider-sized sends.
//
// All PCM in this package is little-endian signed 16-bit mono, passed around
// as raw byte slices (2 bytes per sample).
package audio

// ulawDecodeTable is the ITU-T G.711 μ-law expansion table. Each unsigned
// byte code maps to a signed 16-bit linear PCM value. Note that 0xFF, the
// value Twilio sends for silence, decodes to 0.
var ulawDecodeTable = [256]int16{
	-32124, -31100, -30076, -29052, -28028, -27004, -25980, -24956,
	-23932, -22908, -21884, -20860, -19836, -18812, -17788, -16764,
	-15996, -15484, -14972, -14460, -13948, -13436, -12924, -12412,
	-11900, -11388, -10876, -10364, -9852, -9340, -8828, -8316,
	-7932, -7676, -7420, -7164, -6908, -6652, -6396, -6140,
	-5884, -5628, -5372, -5116, -4860, -4604, -4348, -4092,
	-3900, -3772, -3644, -3516, -3388, -3260, -3132, -3004,
	-2876, -2748, -2620, -2492, -2364, -2236, -2108, -1980,
	-1884, -1820, -1756, -1692, -1628, -1564, -1500, -1436,
	-1372, -1308, -1244, -1180, -1116, -1052, -988, -924,
	-876, -844, -812, -780, -748, -716, -684, -652,
	-620, -588, -556, -524, -492, -460, -428, -396,
	-372, -356, -340, -324, -308, -292, -276, -260,
	-244, -228, -212, -196, -180, -164, -148, -132,
	-120, -112, -104, -96, -88, -80, -72, -64,
	-56, -48, -40, -32, -24, -16, -8, 0,
	32124, 31100, 30076, 29052, 28028, 27004, 25980, 24956,
	23932, 22908, 21884, 20860, 19836, 18812, 17788, 16764,
	15996, 15484, 14972, 14460, 13948, 13436, 12924, 12412,
	11900, 11388, 10876, 10364, 9852, 9340, 8828, 8316,
	7932, 7676, 7420, 7164, 6908, 6652, 6396, 6140,
	5884, 5628, 5372, 5116, 4860, 4604, 4348, 4092,
	3900, 3772, 3644, 3516, 3388, 3260, 3132, 3004,
	2876, 2748, 2620, 2492, 2364, 2236, 2108, 1980,
	1884, 1820, 1756, 1692, 1628, 1564, 1500, 1436,
	1372, 1308, 1244, 1180, 1116, 1052, 988, 924,
	876, 844, 812, 780, 748, 716, 684, 652,
	620, 588, 556, 524, 492, 460, 428, 396,
	372, 356, 340, 324, 308, 292, 276, 260,
	244, 228, 212, 196, 180, 164, 148, 132,
	120, 112, 104, 96, 88, 80, 72, 64,
	56, 48, 40, 32, 24, 16, 8, 0,
}

// ulawBias is the fixed bias added to the sample magnitude before segment
// search, per G.711.
const ulawBias = 132

// ulawSegmentEnds bounds each of the eight μ-law segments. The segment index
// of a biased magnitude is the index of the first entry it fits under.
var ulawSegmentEnds = [8]int32{0xFF, 0x1FF, 0x3FF, 0x7FF, 0xFFF, 0x1FFF, 0x3FFF, 0x7FFF}

// DecodeUlaw expands μ-law bytes to 16-bit linear PCM. Each input byte
// produces one output sample (2 bytes, little-endian). A zero-length input
// yields a zero-length output.
func DecodeUlaw(ulaw []byte) []byte {
	pcm := make([]byte, len(ulaw)*2)
	for i, code := range ulaw {
		s := ulawDecodeTable[code]
		pcm[i*2] = byte(s)
		pcm[i*2+1] = byte(s >> 8)
	}
	return pcm
}

// EncodeUlaw compresses 16-bit linear PCM to μ-law bytes, one byte per input
// sample. The input must be little-endian int16 PCM; a trailing odd byte is
// ignored.
func EncodeUlaw(pcm []byte) []byte {
	out := make([]byte, len(pcm)/2)
	for i := range out {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = encodeSample(s)
	}
	return out
}

// encodeSample compresses one linear sample per the G.711 μ-law algorithm:
// bias the magnitude, find the segment, extract a 4-bit mantissa, and
// complement the assembled byte.
func encodeSample(s int16) byte {
	var sign int32
	mag := int32(s)
	if mag < 0 {
		sign = 0x80
		mag = -mag // int32, so -32768 does not overflow
	}

	mag += ulawBias
	if mag > 0x7FFF {
		mag = 0x7FFF
	}

	var exponent int32
	for exponent = 0; exponent < 7; exponent++ {
		if mag <= ulawSegmentEnds[exponent] {
			break
		}
	}

	mantissa := (mag >> (exponent + 3)) & 0x0F
	return byte(^(sign | exponent<<4 | mantissa))
}

package audio_test

import (
	"encoding/binary"
	"testing"

	"github.com/wvoelker/larynx/pkg/audio"
)

// samplesToBytes converts a slice of int16 samples to little-endian byte representation.
func samplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// bytesToSamples converts a little-endian byte slice to int16 samples.
func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

func TestDecodeUlaw_SilenceCode(t *testing.T) {
	// 0xFF is the μ-law silence code in the G.711 expansion table.
	got := bytesToSamples(audio.DecodeUlaw([]byte{0xFF}))
	if len(got) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(got))
	}
	if got[0] != 0 {
		t.Errorf("0xFF decoded to %d, want 0", got[0])
	}
}

func TestDecodeUlaw_Extremes(t *testing.T) {
	got := bytesToSamples(audio.DecodeUlaw([]byte{0x00, 0x80}))
	if got[0] != -32124 {
		t.Errorf("0x00 decoded to %d, want -32124", got[0])
	}
	if got[1] != 32124 {
		t.Errorf("0x80 decoded to %d, want 32124", got[1])
	}
}

func TestDecodeUlaw_Empty(t *testing.T) {
	if out := audio.DecodeUlaw(nil); len(out) != 0 {
		t.Errorf("expected empty output, got %d bytes", len(out))
	}
}

func TestEncodeUlaw_Empty(t *testing.T) {
	if out := audio.EncodeUlaw(nil); len(out) != 0 {
		t.Errorf("expected empty output, got %d bytes", len(out))
	}
}

func TestEncodeUlaw_Silence(t *testing.T) {
	out := audio.EncodeUlaw(samplesToBytes([]int16{0, 0, 0}))
	for i, b := range out {
		if b != 0xFF {
			t.Errorf("byte %d: got %#02x, want 0xff", i, b)
		}
	}
}

// TestEncodeDecode_Involution verifies that encoding a decoded code yields
// the original code. 0x7F is excluded: both 0x7F and 0xFF decode to 0, and
// zero re-encodes as 0xFF (positive sign).
func TestEncodeDecode_Involution(t *testing.T) {
	for code := 0; code < 256; code++ {
		if code == 0x7F {
			continue
		}
		pcm := audio.DecodeUlaw([]byte{byte(code)})
		got := audio.EncodeUlaw(pcm)
		if got[0] != byte(code) {
			t.Errorf("code %#02x: round-tripped to %#02x", code, got[0])
		}
	}
}

// TestRoundTrip_BoundedError verifies that decode(encode(x)) differs from x
// by quantization error only. μ-law quantization steps grow with magnitude;
// the segment step for a sample never exceeds (|x|+132)/16.
func TestRoundTrip_BoundedError(t *testing.T) {
	samples := []int16{0, 1, -1, 8, -8, 100, -100, 1000, -1000, 8000, -8000, 20000, -20000, 32767, -32768}
	back := bytesToSamples(audio.DecodeUlaw(audio.EncodeUlaw(samplesToBytes(samples))))
	for i, want := range samples {
		diff := int32(back[i]) - int32(want)
		if diff < 0 {
			diff = -diff
		}
		limit := (abs32(int32(want))+132)/16 + 8
		if diff > limit {
			t.Errorf("sample %d: %d round-tripped to %d (error %d > %d)", i, want, back[i], diff, limit)
		}
	}
}

func TestRoundTrip_SilenceNearZero(t *testing.T) {
	silence := make([]int16, 160)
	back := bytesToSamples(audio.DecodeUlaw(audio.EncodeUlaw(samplesToBytes(silence))))
	for i, s := range back {
		if s > 100 || s < -100 {
			t.Fatalf("sample %d: silence round-tripped to %d, want magnitude < 100", i, s)
		}
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

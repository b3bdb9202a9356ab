package audio_test

import (
	"math"
	"testing"

	"github.com/wvoelker/larynx/pkg/audio"
)

// TestPipeline_ToneSurvivesFullRoundTrip pushes a 20ms 400Hz tone through
// the complete bridge path: μ-law decode, upsample to the provider input
// rate, a simulated provider echo at its output rate, downsample back to the
// telephony rate, and μ-law encode. The signal must survive with its peak
// amplitude well above the noise floor.
func TestPipeline_ToneSurvivesFullRoundTrip(t *testing.T) {
	const (
		freq      = 400.0
		telRate   = 8000
		inRate    = 16000
		outRate   = 24000
		amplitude = 8000.0
	)

	tone := make([]int16, 160) // 20ms at 8kHz
	for i := range tone {
		tone[i] = int16(amplitude * math.Sin(2*math.Pi*freq*float64(i)/telRate))
	}
	ulawIn := audio.EncodeUlaw(samplesToBytes(tone))

	// Telephony → provider.
	pcm8k := audio.DecodeUlaw(ulawIn)
	pcm16k, _ := audio.Resample(pcm8k, telRate, inRate, audio.ResampleState{})

	// Simulated provider echo: it consumes 16kHz and answers at 24kHz.
	pcm24k, _ := audio.Resample(pcm16k, inRate, outRate, audio.ResampleState{})

	// Provider → telephony.
	pcmBack, _ := audio.Resample(pcm24k, outRate, telRate, audio.ResampleState{})
	ulawOut := audio.EncodeUlaw(pcmBack)

	final := bytesToSamples(audio.DecodeUlaw(ulawOut))
	var peak int32
	for _, s := range final {
		if v := abs32(int32(s)); v > peak {
			peak = v
		}
	}
	if peak < 500 {
		t.Errorf("peak amplitude %d after full round trip, want > 500", peak)
	}
}

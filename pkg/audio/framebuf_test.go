package audio_test

import (
	"bytes"
	"testing"

	"github.com/wvoelker/larynx/pkg/audio"
)

func TestFrameBuffer_BelowThresholdNeverDrains(t *testing.T) {
	fb := audio.NewFrameBuffer(100)
	for i := 0; i < 4; i++ {
		fb.Push(make([]byte, 20))
		if out := fb.Drain(); out != nil {
			t.Fatalf("drained %d bytes below threshold", len(out))
		}
	}
	if fb.Len() != 80 {
		t.Errorf("buffered %d bytes, want 80", fb.Len())
	}
}

func TestFrameBuffer_CrossingThresholdDrainsOnce(t *testing.T) {
	fb := audio.NewFrameBuffer(100)
	fb.Push(bytes.Repeat([]byte{1}, 60))
	fb.Push(bytes.Repeat([]byte{2}, 60))

	out := fb.Drain()
	if out == nil {
		t.Fatal("expected a drain after crossing the threshold")
	}
	if len(out) != 120 {
		t.Errorf("drained %d bytes, want all 120 accumulated", len(out))
	}
	if fb.Len() != 0 {
		t.Errorf("buffer holds %d bytes after drain, want 0", fb.Len())
	}
	if again := fb.Drain(); again != nil {
		t.Errorf("second drain returned %d bytes, want nil", len(again))
	}
}

func TestFrameBuffer_ExactThreshold(t *testing.T) {
	fb := audio.NewFrameBuffer(64)
	fb.Push(make([]byte, 64))
	if out := fb.Drain(); len(out) != 64 {
		t.Errorf("drained %d bytes, want 64", len(out))
	}
}

func TestFrameBuffer_ZeroThresholdStillNeedsData(t *testing.T) {
	fb := audio.NewFrameBuffer(0)
	if out := fb.Drain(); out != nil {
		t.Errorf("empty buffer drained %d bytes", len(out))
	}
	fb.Push([]byte{1})
	if out := fb.Drain(); len(out) != 1 {
		t.Errorf("drained %d bytes, want 1", len(out))
	}
}

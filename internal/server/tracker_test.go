package server

import (
	"context"
	"testing"

	"github.com/wvoelker/larynx/internal/bridge"
	"github.com/wvoelker/larynx/pkg/provider/s2s"
	"github.com/wvoelker/larynx/pkg/provider/s2s/mock"
)

type nopWriter struct{}

func (nopWriter) WriteText(context.Context, []byte) error { return nil }

func newTrackedSession(t *testing.T) *bridge.Session {
	t.Helper()
	sess, err := bridge.NewSession(bridge.Config{
		Provider: &mock.Provider{ProviderCapabilities: s2s.Capabilities{InputRate: 16000, OutputRate: 24000}},
		Writer:   nopWriter{},
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return sess
}

func TestCallTracker_AddRemoveLen(t *testing.T) {
	t.Parallel()

	tr := NewCallTracker()
	if tr.Len() != 0 {
		t.Fatalf("new tracker Len = %d; want 0", tr.Len())
	}

	id1 := tr.Add(newTrackedSession(t), func() {})
	id2 := tr.Add(newTrackedSession(t), func() {})
	if id1 == id2 {
		t.Errorf("ids should be unique, both = %d", id1)
	}
	if tr.Len() != 2 {
		t.Errorf("Len = %d; want 2", tr.Len())
	}

	tr.Remove(id1)
	if tr.Len() != 1 {
		t.Errorf("Len after remove = %d; want 1", tr.Len())
	}

	// Removing an unknown id is a no-op.
	tr.Remove(9999)
	if tr.Len() != 1 {
		t.Errorf("Len after bogus remove = %d; want 1", tr.Len())
	}
}

func TestCallTracker_CloseAll(t *testing.T) {
	t.Parallel()

	tr := NewCallTracker()

	cancelled := make([]bool, 2)
	sessions := []*bridge.Session{newTrackedSession(t), newTrackedSession(t)}
	for i, sess := range sessions {
		i := i
		tr.Add(sess, func() { cancelled[i] = true })
	}

	tr.CloseAll(context.Background())

	for i, c := range cancelled {
		if !c {
			t.Errorf("call %d: read loop was not cancelled", i)
		}
	}
	for i, sess := range sessions {
		if sess.State() != bridge.StateClosed {
			t.Errorf("call %d: state = %v; want Closed", i, sess.State())
		}
	}
}

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wvoelker/larynx/pkg/provider/s2s"
	"github.com/wvoelker/larynx/pkg/provider/s2s/mock"
)

func TestGuard_PassesThroughOnSuccess(t *testing.T) {
	sess := mock.NewSession()
	inner := &mock.Provider{
		Session:              sess,
		ProviderCapabilities: s2s.Capabilities{InputRate: 16000, OutputRate: 24000},
	}
	g := Guard(inner, CircuitBreakerConfig{Name: "test"})

	handle, err := g.Connect(context.Background(), s2s.SessionConfig{Voice: "Puck"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if handle != s2s.SessionHandle(sess) {
		t.Error("Connect did not return the inner provider's session")
	}
	if calls := inner.Calls(); len(calls) != 1 || calls[0].Cfg.Voice != "Puck" {
		t.Errorf("inner connect calls = %+v; want one with voice Puck", calls)
	}
	if got := g.Capabilities(); got.InputRate != 16000 {
		t.Errorf("capabilities input rate = %d; want 16000", got.InputRate)
	}
}

func TestGuard_OpensAfterRepeatedFailures(t *testing.T) {
	connectErr := errors.New("dial failed")
	inner := &mock.Provider{ConnectErr: connectErr}
	g := Guard(inner, CircuitBreakerConfig{
		Name:         "test",
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	for i := 0; i < 2; i++ {
		if _, err := g.Connect(context.Background(), s2s.SessionConfig{}); !errors.Is(err, connectErr) {
			t.Fatalf("connect %d: err = %v; want %v", i, err, connectErr)
		}
	}
	if g.Breaker().State() != StateOpen {
		t.Fatalf("breaker state = %v; want open", g.Breaker().State())
	}

	// Once open, the inner provider is no longer dialed.
	before := len(inner.Calls())
	if _, err := g.Connect(context.Background(), s2s.SessionConfig{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v; want ErrCircuitOpen", err)
	}
	if len(inner.Calls()) != before {
		t.Error("open breaker should not dial the inner provider")
	}
}

func TestGuard_RecoversAfterReset(t *testing.T) {
	inner := &mock.Provider{ConnectErr: errors.New("dial failed")}
	g := Guard(inner, CircuitBreakerConfig{Name: "test", MaxFailures: 1, ResetTimeout: time.Hour})

	if _, err := g.Connect(context.Background(), s2s.SessionConfig{}); err == nil {
		t.Fatal("expected connect failure")
	}
	if _, err := g.Connect(context.Background(), s2s.SessionConfig{}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v; want ErrCircuitOpen", err)
	}

	inner.ConnectErr = nil
	g.Breaker().Reset()

	if _, err := g.Connect(context.Background(), s2s.SessionConfig{}); err != nil {
		t.Fatalf("Connect after reset: %v", err)
	}
}

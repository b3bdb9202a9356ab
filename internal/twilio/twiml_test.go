package twilio

import (
	"encoding/xml"
	"strings"
	"testing"
)

func TestStreamTwiML(t *testing.T) {
	t.Parallel()

	body, err := StreamTwiML("wss://example.com/media-stream", "+15550001111", "One moment please.")
	if err != nil {
		t.Fatalf("StreamTwiML: %v", err)
	}

	var doc twimlResponse
	if err := xml.Unmarshal(body, &doc); err != nil {
		t.Fatalf("unmarshal twiml: %v", err)
	}
	if doc.Say != "One moment please." {
		t.Errorf("Say = %q", doc.Say)
	}
	if doc.Connect == nil {
		t.Fatal("missing Connect element")
	}
	if got := doc.Connect.Stream.URL; got != "wss://example.com/media-stream" {
		t.Errorf("stream url = %q", got)
	}
	if len(doc.Connect.Stream.Parameters) != 1 {
		t.Fatalf("parameters = %+v; want one caller parameter", doc.Connect.Stream.Parameters)
	}
	p := doc.Connect.Stream.Parameters[0]
	if p.Name != "caller" || p.Value != "+15550001111" {
		t.Errorf("parameter = %+v", p)
	}
	if !strings.HasPrefix(string(body), "<?xml") {
		t.Error("document should start with an XML declaration")
	}
}

func TestStreamTwiML_NoGreeting(t *testing.T) {
	t.Parallel()

	body, err := StreamTwiML("wss://example.com/media-stream", "unknown", "")
	if err != nil {
		t.Fatalf("StreamTwiML: %v", err)
	}
	if strings.Contains(string(body), "<Say>") {
		t.Error("empty greeting should omit the Say element")
	}
}

func TestStreamURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://bridge.example.com", "wss://bridge.example.com/media-stream"},
		{"https://bridge.example.com/", "wss://bridge.example.com/media-stream"},
		{"http://localhost:8080", "ws://localhost:8080/media-stream"},
	}
	for _, tt := range tests {
		if got := StreamURL(tt.in); got != tt.want {
			t.Errorf("StreamURL(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

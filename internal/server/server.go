// Package server exposes the HTTP surface of the Larynx bridge: the Twilio
// voice webhook, the media-stream WebSocket, health, and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wvoelker/larynx/internal/bridge"
	"github.com/wvoelker/larynx/internal/health"
	"github.com/wvoelker/larynx/internal/observe"
	"github.com/wvoelker/larynx/internal/twilio"
)

// closeTimeout bounds how long session teardown may take once the telephony
// WebSocket has gone away.
const closeTimeout = 10 * time.Second

// SessionFactory creates a bridge session bound to the given telephony
// writer. abort must unblock the WebSocket read loop when invoked; the
// session calls it if the AI leg fails mid-call.
type SessionFactory func(w bridge.TelephonyWriter, abort func()) (*bridge.Session, error)

// Config configures a [Server].
type Config struct {
	// PublicURL is the externally reachable base URL used to build the
	// media-stream WebSocket URL in TwiML responses. When empty, the URL
	// is derived from the incoming request's Host header.
	PublicURL string

	// Greeting is spoken to the caller before the stream connects.
	Greeting string

	// Metrics receives HTTP and bridge instruments.
	Metrics *observe.Metrics

	// ReadyChecks are evaluated by the readiness probe.
	ReadyChecks []health.Checker
}

// Server handles the Twilio-facing HTTP endpoints and hands accepted
// media-stream connections to bridge sessions.
type Server struct {
	cfg     Config
	factory SessionFactory
	calls   *CallTracker
}

// New creates a Server that builds one bridge session per media stream via
// factory.
func New(cfg Config, factory SessionFactory) (*Server, error) {
	if factory == nil {
		return nil, errors.New("server: session factory is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Server{
		cfg:     cfg,
		factory: factory,
		calls:   NewCallTracker(),
	}, nil
}

// Calls returns the tracker of in-flight calls.
func (s *Server) Calls() *CallTracker { return s.calls }

// Handler returns the full route table wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	health.New(s.cfg.ReadyChecks...).Register(mux)
	mux.HandleFunc("POST /incoming", s.handleIncoming)
	mux.HandleFunc("GET /media-stream", s.handleMediaStream)
	mux.Handle("GET /metrics", promhttp.Handler())
	return observe.Middleware(s.cfg.Metrics)(mux)
}

// handleIncoming answers Twilio's voice webhook with TwiML that connects the
// call to the media-stream WebSocket.
func (s *Server) handleIncoming(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form data", http.StatusBadRequest)
		return
	}
	caller := r.PostFormValue("From")
	callSID := r.PostFormValue("CallSid")

	base := s.cfg.PublicURL
	if base == "" {
		scheme := "https"
		if r.TLS == nil {
			scheme = "http"
		}
		base = fmt.Sprintf("%s://%s", scheme, r.Host)
	}

	doc, err := twilio.StreamTwiML(twilio.StreamURL(base), caller, s.cfg.Greeting)
	if err != nil {
		observe.Logger(r.Context()).Error("building TwiML response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	observe.Logger(r.Context()).Info("incoming call", "caller", caller, "call_sid", callSID)
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write(doc)
}

// wsWriter adapts a coder/websocket connection to the bridge's telephony
// writer. The bridge serializes calls, so no extra locking here.
type wsWriter struct {
	conn *websocket.Conn
}

func (w wsWriter) WriteText(ctx context.Context, data []byte) error {
	return w.conn.Write(ctx, websocket.MessageText, data)
}

// handleMediaStream upgrades the connection and runs the telephony read loop
// until the stream ends, then tears the session down.
func (s *Server) handleMediaStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess, err := s.factory(wsWriter{conn: conn}, cancel)
	if err != nil {
		observe.Logger(ctx).Error("creating bridge session", "error", err)
		_ = conn.Close(websocket.StatusInternalError, "session setup failed")
		return
	}
	id := s.calls.Add(sess, cancel)
	defer s.calls.Remove(id)

	s.readLoop(ctx, conn, sess)

	closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer closeCancel()
	if err := sess.Close(closeCtx); err != nil {
		observe.Logger(closeCtx).Warn("session teardown error", "error", err)
	}
	_ = conn.Close(websocket.StatusNormalClosure, "stream ended")
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess *bridge.Session) {
	log := observe.Logger(ctx)
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			// The telephony peer hanging up is the normal end of a call.
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway ||
				errors.Is(err, context.Canceled) {
				log.Info("telephony stream disconnected")
			} else {
				log.Warn("telephony read error", "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			s.cfg.Metrics.RecordDrop(ctx, "binary_frame")
			continue
		}
		if err := sess.HandleMessage(ctx, data); err != nil {
			if errors.Is(err, bridge.ErrSessionEnded) {
				return
			}
			log.Error("session error", "error", err)
			return
		}
	}
}

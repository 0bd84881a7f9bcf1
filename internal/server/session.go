package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/muurk/otastub/internal/config"
	"github.com/muurk/otastub/internal/logging"
	"github.com/muurk/otastub/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	// Devices send no Origin header; browsers used for manual testing may
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket upgrades the request and runs one scripted session on it.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	remoteAddr := r.RemoteAddr
	logging.LogHTTPRequest(remoteAddr, r.Method, r.URL.Path)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}

	s.track(conn, remoteAddr)
	defer s.untrack(conn)

	sess := &session{
		conn:       conn,
		remoteAddr: remoteAddr,
		config:     s.config,
		delay:      s.scriptDelay,
	}
	sess.run(r.Context())
}

// session is the state of a single WebSocket connection. It is only touched
// by the goroutine serving that connection.
type session struct {
	conn       *websocket.Conn
	remoteAddr string
	config     *config.Config
	delay      time.Duration

	// sequenceSent is set by the first hello; later hellos only get a reply
	sequenceSent bool
}

// run pumps inbound frames until the peer closes, a transport error occurs or
// ctx is cancelled during a scripted wait.
func (s *session) run(ctx context.Context) {
	logging.LogConnection(s.remoteAddr, "websocket_upgraded")

	defer func() {
		_ = s.conn.Close()
		logging.LogConnection(s.remoteAddr, "websocket_closed")
	}()

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logging.Info("Connection closed by device",
					zap.String("remote_addr", s.remoteAddr),
				)
			} else {
				logging.Error("WebSocket read error",
					zap.String("remote_addr", s.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			if err := s.handleText(ctx, data); err != nil {
				logging.Error("Session ended",
					zap.String("remote_addr", s.remoteAddr),
					zap.Error(err),
				)
				return
			}

		case websocket.BinaryMessage:
			// Opus audio from the device; only its size is of interest
			if s.config.LogBinary {
				logging.LogBinaryFrame(s.remoteAddr, data)
			}
		}
	}
}

// handleText dispatches a text frame. Malformed or unknown frames are logged
// and dropped; only transport failures are returned.
func (s *session) handleText(ctx context.Context, data []byte) error {
	logging.LogWebSocketMessage(s.remoteAddr, "received", data)

	env, err := protocol.ParseEnvelope(data)
	if err != nil {
		logging.Warn("Non-JSON text message received",
			zap.String("remote_addr", s.remoteAddr),
			zap.Int("length", len(data)),
			zap.Error(err),
		)
		return nil
	}

	switch env.Type {
	case protocol.TypeHello:
		return s.handleHello(ctx)

	case protocol.TypeMCP:
		logging.Info("MCP reply received",
			zap.String("remote_addr", s.remoteAddr),
			zap.ByteString("payload", env.PayloadOrEmpty()),
		)

	default:
		logging.Debug("Ignoring message with unhandled type",
			zap.String("remote_addr", s.remoteAddr),
			zap.String("type", env.Type),
		)
	}

	return nil
}

func (s *session) handleHello(ctx context.Context) error {
	logging.Info("Hello received", zap.String("remote_addr", s.remoteAddr))

	if err := s.send(protocol.NewServerHello()); err != nil {
		return err
	}

	if s.sequenceSent {
		logging.Debug("Scripted sequence already sent on this connection",
			zap.String("remote_addr", s.remoteAddr),
		)
		return nil
	}
	s.sequenceSent = true

	return s.runScript(ctx)
}

// runScript sends the scene set call and, when configured, the scene get call,
// each after a fixed pause.
func (s *session) runScript(ctx context.Context) error {
	settings := protocol.SceneSettings{
		Scene:      s.config.Scene,
		Brightness: s.config.Brightness,
		Speed:      s.config.Speed,
	}

	logging.Info("Sending scripted scene change",
		zap.String("remote_addr", s.remoteAddr),
		zap.Any("arguments", settings.Arguments()),
	)

	if err := wait(ctx, s.delay); err != nil {
		return err
	}
	if err := s.send(protocol.NewSceneSet(settings)); err != nil {
		return err
	}

	if !s.config.DoGet {
		return nil
	}

	if err := wait(ctx, s.delay); err != nil {
		return err
	}
	return s.send(protocol.NewSceneGet())
}

func (s *session) send(msg any) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	logging.LogWebSocketMessage(s.remoteAddr, "sent", data)
	return nil
}

// wait pauses for d without holding up other connections. It returns early
// with ctx's error when the server shuts down.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scripted send abandoned: %w", ctx.Err())
	}
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/otastub/internal/logging"
	"github.com/muurk/otastub/internal/protocol"
)

// DefaultTimeout bounds a whole probe run when the context has no deadline.
const DefaultTimeout = 5 * time.Second

// Options tune a probe run
type Options struct {
	// DialHost replaces the host of the advertised WebSocket URL. Useful when
	// the stub advertises a LAN address the probing machine cannot reach.
	DialHost string

	// Expect is the number of scripted tool calls to wait for (default 1)
	Expect int

	// Reply makes the probe answer every tool call like a device would
	Reply bool

	// Timeout is applied when ctx has no deadline (default DefaultTimeout)
	Timeout time.Duration

	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// Transcript is everything a probe observed
type Transcript struct {
	OTA       *protocol.OTAResponse `json:"ota"`
	DialURL   string                `json:"dial_url"`
	Hello     *protocol.Hello       `json:"hello,omitempty"`
	ToolCalls []*protocol.ToolCall  `json:"tool_calls"`
}

// CheckIn performs the OTA request a device makes at boot.
func CheckIn(ctx context.Context, httpClient *http.Client, otaURL string) (*protocol.OTAResponse, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	body := bytes.NewBufferString(`{"application":{"name":"otastub-probe"}}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, otaURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build OTA request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OTA request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("OTA request returned %d: %s", resp.StatusCode, snippet)
	}

	var ota protocol.OTAResponse
	if err := json.NewDecoder(resp.Body).Decode(&ota); err != nil {
		return nil, fmt.Errorf("failed to decode OTA response: %w", err)
	}
	if ota.WebSocket.URL == "" {
		return nil, fmt.Errorf("OTA response has no websocket url")
	}

	return &ota, nil
}

// Probe checks in at otaURL, opens the advertised WebSocket, sends a device
// hello and collects the server's replies until opts.Expect tool calls have
// arrived.
func Probe(ctx context.Context, otaURL string, opts Options) (*Transcript, error) {
	if opts.Expect <= 0 {
		opts.Expect = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	ota, err := CheckIn(ctx, opts.HTTPClient, otaURL)
	if err != nil {
		return nil, err
	}

	dialURL, err := rewriteHost(ota.WebSocket.URL, opts.DialHost)
	if err != nil {
		return nil, err
	}

	logging.Info("Connecting to session endpoint", zap.String("url", dialURL))

	conn, _, err := opts.Dialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialURL, err)
	}
	defer func() { _ = conn.Close() }()

	// Unblock reads when ctx ends
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	transcript := &Transcript{OTA: ota, DialURL: dialURL}

	if err := writeJSON(conn, protocol.NewDeviceHello()); err != nil {
		return transcript, err
	}

	for len(transcript.ToolCalls) < opts.Expect {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return transcript, fmt.Errorf("received %d of %d tool calls: %w", len(transcript.ToolCalls), opts.Expect, ctx.Err())
			}
			return transcript, fmt.Errorf("read failed: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		logging.LogWebSocketMessage(dialURL, "received", data)

		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			return transcript, fmt.Errorf("server sent malformed frame: %w", err)
		}

		switch env.Type {
		case protocol.TypeHello:
			hello, err := protocol.DecodeHello(data)
			if err != nil {
				return transcript, err
			}
			transcript.Hello = hello

		case protocol.TypeMCP:
			call, err := env.DecodeToolCall()
			if err != nil {
				return transcript, err
			}
			transcript.ToolCalls = append(transcript.ToolCalls, call)
			if opts.Reply {
				if err := writeJSON(conn, protocol.NewToolResult(call.ID, "true")); err != nil {
					return transcript, err
				}
			}
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))

	return transcript, nil
}

func writeJSON(conn *websocket.Conn, msg any) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// rewriteHost swaps the host of rawURL for host, keeping the port.
func rewriteHost(rawURL, host string) (string, error) {
	if host == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket url %q: %w", rawURL, err)
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else {
		u.Host = host
	}
	return u.String(), nil
}

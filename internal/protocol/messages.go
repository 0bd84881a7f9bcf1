package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Message types carried in the "type" field of every text frame
const (
	TypeHello = "hello"
	TypeMCP   = "mcp"
)

const (
	TransportWebSocket = "websocket"

	// SessionID is the fixed session identifier handed out in every hello reply.
	SessionID = "local-test"

	SampleRate    = 16000
	FrameDuration = 60 // milliseconds

	// OTAVersion is the websocket protocol version advertised at check-in.
	OTAVersion = 3
)

// JSON-RPC constants for scripted tool calls
const (
	JSONRPCVersion  = "2.0"
	MethodToolsCall = "tools/call"

	ToolSceneSet = "self.led_scene.set"
	ToolSceneGet = "self.led_scene.get"

	SceneSetID = 1
	SceneGetID = 2
)

// OTAResponse is the check-in descriptor returned by the discovery endpoint.
type OTAResponse struct {
	WebSocket  WebSocketInfo `json:"websocket"`
	ServerTime ServerTime    `json:"server_time"`
}

// WebSocketInfo tells the device where to open its control channel.
type WebSocketInfo struct {
	URL     string `json:"url"`
	Version int    `json:"version"`
}

// ServerTime lets the device set its clock.
type ServerTime struct {
	Timestamp      int64 `json:"timestamp"` // milliseconds since epoch
	TimezoneOffset int   `json:"timezone_offset"`
}

// NewOTAResponse builds a check-in descriptor stamped with now.
func NewOTAResponse(wsURL string, now time.Time) *OTAResponse {
	return &OTAResponse{
		WebSocket: WebSocketInfo{
			URL:     wsURL,
			Version: OTAVersion,
		},
		ServerTime: ServerTime{
			Timestamp:      now.UnixMilli(),
			TimezoneOffset: 0,
		},
	}
}

// AudioParams describes the audio stream negotiated in the hello exchange.
// Format and Channels are only sent by devices.
type AudioParams struct {
	Format        string `json:"format,omitempty"`
	SampleRate    int    `json:"sample_rate"`
	Channels      int    `json:"channels,omitempty"`
	FrameDuration int    `json:"frame_duration"`
}

// Hello is the handshake message exchanged in both directions.
type Hello struct {
	Type        string       `json:"type"`
	Version     int          `json:"version,omitempty"`
	Transport   string       `json:"transport,omitempty"`
	SessionID   string       `json:"session_id,omitempty"`
	AudioParams *AudioParams `json:"audio_params,omitempty"`
}

// NewServerHello builds the hello reply sent to a device.
func NewServerHello() *Hello {
	return &Hello{
		Type:      TypeHello,
		Transport: TransportWebSocket,
		SessionID: SessionID,
		AudioParams: &AudioParams{
			SampleRate:    SampleRate,
			FrameDuration: FrameDuration,
		},
	}
}

// NewDeviceHello builds the hello a device opens its session with.
func NewDeviceHello() *Hello {
	return &Hello{
		Type:      TypeHello,
		Version:   1,
		Transport: TransportWebSocket,
		AudioParams: &AudioParams{
			Format:        "opus",
			SampleRate:    SampleRate,
			Channels:      1,
			FrameDuration: FrameDuration,
		},
	}
}

// ToolCall is a JSON-RPC 2.0 tools/call request.
type ToolCall struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      int                 `json:"id"`
	Method  string              `json:"method"`
	Params  *mcp.CallToolParams `json:"params"`
}

// MCPMessage wraps a tool call in the "mcp" text frame envelope.
type MCPMessage struct {
	Type    string    `json:"type"`
	Payload *ToolCall `json:"payload"`
}

// NewToolCall wraps a tools/call request for the named tool. A nil args map is
// sent as an empty object.
func NewToolCall(id int, name string, args map[string]any) *MCPMessage {
	if args == nil {
		args = map[string]any{}
	}
	return &MCPMessage{
		Type: TypeMCP,
		Payload: &ToolCall{
			JSONRPC: JSONRPCVersion,
			ID:      id,
			Method:  MethodToolsCall,
			Params: &mcp.CallToolParams{
				Name:      name,
				Arguments: args,
			},
		},
	}
}

// ToolResult is a JSON-RPC 2.0 response to a tools/call request.
type ToolResult struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      int                 `json:"id"`
	Result  *mcp.CallToolResult `json:"result"`
}

// MCPResultMessage wraps a tool result the way a device sends it back.
type MCPResultMessage struct {
	Type    string      `json:"type"`
	Payload *ToolResult `json:"payload"`
}

// NewToolResult builds a device reply to call id carrying a single text item.
func NewToolResult(id int, text string) *MCPResultMessage {
	return &MCPResultMessage{
		Type: TypeMCP,
		Payload: &ToolResult{
			JSONRPC: JSONRPCVersion,
			ID:      id,
			Result: &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: text},
				},
			},
		},
	}
}

// SceneSettings are the inputs of a self.led_scene.set call. Negative
// Brightness and Speed below 1 are left out of the call.
type SceneSettings struct {
	Scene      string
	Brightness int
	Speed      int
}

// Arguments returns the tool arguments for s.
func (s SceneSettings) Arguments() map[string]any {
	args := map[string]any{"scene": s.Scene}
	if s.Brightness >= 0 {
		args["brightness"] = s.Brightness
	}
	if s.Speed >= 1 {
		args["speed"] = s.Speed
	}
	return args
}

// NewSceneSet builds the scripted self.led_scene.set call.
func NewSceneSet(s SceneSettings) *MCPMessage {
	return NewToolCall(SceneSetID, ToolSceneSet, s.Arguments())
}

// NewSceneGet builds the scripted self.led_scene.get call.
func NewSceneGet() *MCPMessage {
	return NewToolCall(SceneGetID, ToolSceneGet, nil)
}

// Encode marshals any outbound message to its text frame payload.
func Encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}

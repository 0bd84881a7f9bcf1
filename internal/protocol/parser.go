package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotJSON is returned when a text frame is not a JSON object.
var ErrNotJSON = errors.New("text frame is not a JSON object")

// Envelope is the common shape of inbound text frames. Payload is kept raw
// because only "mcp" frames carry one and it is only logged.
type Envelope struct {
	Type    string
	Payload json.RawMessage
}

// Exact keys read from inbound frames
const (
	keyType    = "type"
	keyPayload = "payload"
)

// ParseEnvelope decodes an inbound text frame. Valid JSON that is not an
// object (arrays, strings, numbers) is rejected like any other malformed input.
//
// Keys are matched exactly, so {"Type":"hello"} has no type. A "type" that is
// not a string leaves Type empty.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSON, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: null", ErrNotJSON)
	}

	env := &Envelope{Payload: fields[keyPayload]}
	if raw, ok := fields[keyType]; ok {
		var typ string
		if err := json.Unmarshal(raw, &typ); err == nil {
			env.Type = typ
		}
	}
	return env, nil
}

// PayloadOrEmpty returns the raw payload, or "{}" when the frame had none.
func (e *Envelope) PayloadOrEmpty() json.RawMessage {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return json.RawMessage("{}")
	}
	return e.Payload
}

// DecodeToolCall extracts the tools/call request from an "mcp" envelope.
func (e *Envelope) DecodeToolCall() (*ToolCall, error) {
	if e.Type != TypeMCP {
		return nil, fmt.Errorf("not an mcp message: type %q", e.Type)
	}
	var call ToolCall
	if err := json.Unmarshal(e.PayloadOrEmpty(), &call); err != nil {
		return nil, fmt.Errorf("failed to decode tool call: %w", err)
	}
	if call.Method != MethodToolsCall || call.Params == nil {
		return nil, fmt.Errorf("mcp payload is not a tools/call request (method %q)", call.Method)
	}
	return &call, nil
}

// DecodeHello decodes a hello frame.
func DecodeHello(data []byte) (*Hello, error) {
	var h Hello
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to decode hello: %w", err)
	}
	if h.Type != TypeHello {
		return nil, fmt.Errorf("not a hello message: type %q", h.Type)
	}
	return &h, nil
}

// ToolArguments returns the call's arguments as a map. An absent arguments
// field yields an empty map.
func (c *ToolCall) ToolArguments() (map[string]any, error) {
	if c.Params == nil || c.Params.Arguments == nil {
		return map[string]any{}, nil
	}
	args, ok := c.Params.Arguments.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("tool arguments are %T, want object", c.Params.Arguments)
	}
	return args, nil
}

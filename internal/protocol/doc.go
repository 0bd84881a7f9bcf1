// Package protocol defines the JSON messages exchanged with the device.
//
// # Check-in
//
// The device first fetches an OTA descriptor over HTTP:
//
//	{"websocket":{"url":"ws://192.168.1.5:8000/ws","version":3},
//	 "server_time":{"timestamp":1760000000000,"timezone_offset":0}}
//
// # Session
//
// Every WebSocket text frame is a JSON object with a "type" field. Two types
// matter:
//
//   - "hello": handshake. The server answers with its own hello carrying the
//     fixed session id "local-test" and 16 kHz / 60 ms audio parameters.
//   - "mcp": a JSON-RPC 2.0 message in "payload". The server sends
//     tools/call requests; the device answers with results.
//
// A scripted scene change looks like:
//
//	{"type":"mcp","payload":{"jsonrpc":"2.0","id":1,"method":"tools/call",
//	  "params":{"name":"self.led_scene.set","arguments":{"scene":"party","brightness":5}}}}
//
// Tool call params use mcp.CallToolParams from the MCP Go SDK so the wire
// shape matches what MCP peers expect.
//
// Binary frames carry opus audio and are opaque to this package.
package protocol

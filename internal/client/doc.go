// Package client plays the device side of the OTA stub protocol.
//
// Probe runs the full device flow against a stub (or a real endpoint):
// check-in over HTTP, WebSocket connect, hello, then collecting the scripted
// tool calls. It backs the "otastub probe" command and end-to-end tests.
package client

// Package server implements the OTA stub: a stand-in for the cloud endpoint an
// LED/voice device checks in with.
//
// Two routes are served from one listener:
//
//	GET|POST /        OTA check-in, returns the session URL and server time
//	GET /ws, /ws/     WebSocket session
//
// # Session Script
//
// Each WebSocket connection is handled on its own goroutine:
//
//  1. The device sends {"type":"hello",...}
//  2. The server replies with its hello (session_id "local-test")
//  3. After 500 ms it sends a tools/call for self.led_scene.set built from
//     the configured scene, brightness and speed
//  4. With do_get enabled, another 500 ms later it sends self.led_scene.get
//
// Steps 3 and 4 happen once per connection; later hellos only get step 2.
// "mcp" frames from the device are logged, binary audio frames are counted
// when log_binary is set, and anything that is not JSON is logged and dropped.
//
// # Usage Example
//
//	cfg := config.Default()
//	cfg.WSHost = "192.168.1.5"
//
//	srv, err := server.New(cfg)
//	if err != nil {
//	    return err
//	}
//
//	// Start blocks until SIGINT/SIGTERM
//	return srv.Start()
//
// # Thread Safety
//
// The configuration is shared read-only. Session state lives on the
// connection's goroutine, so sessions never contend with each other.
package server

// Package config holds the otastub server configuration.
//
// Values are layered in this order, later sources winning:
//
//  1. Built-in defaults (port 8000, scene "party", brightness and speed disabled)
//  2. A YAML file, either passed with --config or found at
//     $XDG_CONFIG_HOME/otastub/config.yaml
//  3. OTASTUB_* environment variables
//  4. Command-line flags that were explicitly set
//
// Example file:
//
//	ws_host: 192.168.1.5
//	port: 8000
//	scene: rainbow
//	brightness: 5
//	do_get: true
//
// The resulting Config is validated once and then treated as read-only for
// the lifetime of the process.
package config

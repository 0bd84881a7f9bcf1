// Otastub is a local stand-in for the OTA check-in and WebSocket control
// servers used by ESP32 voice-assistant firmware.
//
// It answers the device's boot-time OTA request with a descriptor pointing at
// its own WebSocket endpoint, completes the hello handshake and then drives a
// short scripted LED scene change over MCP tool calls. This makes it possible
// to test scene firmware without the cloud backend.
//
// Usage:
//
//	otastub serve --ws-host <lan ip> [flags]
//	otastub probe [flags]
//
// See 'otastub --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/otastub/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "otastub",
	Short: "Local OTA and WebSocket stub for LED scene testing",
	Long: `A standalone stand-in for the OTA check-in and WebSocket control servers
that voice-assistant firmware talks to at boot.

Point the device's OTA URL at 'otastub serve' and it will be told to open its
control channel to this machine, where it receives a self.led_scene.set call
(and optionally self.led_scene.get) a moment after saying hello.

Use 'otastub probe' to play the device side against a running stub.`,
	Version:       version.Version,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Fprintf(cmd.OutOrStdout(), "otastub %s (commit: %s, %s)\n", info.Version, info.Commit, info.GoVersion)
	},
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/otastub/internal/config"
	"github.com/muurk/otastub/internal/logging"
	"github.com/muurk/otastub/internal/protocol"
	"github.com/muurk/otastub/internal/server"
	"github.com/muurk/otastub/internal/ui"
	"github.com/muurk/otastub/internal/version"
)

// Serve command flags
var (
	configPath string
	port       int
	wsHost     string
	scene      string
	brightness int
	speed      int
	logBinary  bool
	doGet      bool
	logLevel   string
	mdns       bool
	mdnsName   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the OTA and WebSocket stub",
	Long: `Start the stub server. It listens on all interfaces and serves:

  GET|POST /      OTA check-in descriptor pointing at ws://<ws-host>:<port>/ws
  GET /ws         WebSocket session that answers hello and sends the scene script

Settings are layered: built-in defaults, then the YAML config file, then
OTASTUB_* environment variables, then flags given on the command line.`,
	Example: `  # Minimal: tell devices to connect back to this machine
  otastub serve --ws-host 192.168.1.20

  # Romantic scene at half brightness, then read the scene back
  otastub serve --ws-host 192.168.1.20 --scene romantic --brightness 4 --do-get

  # Log the size of audio frames the device streams
  otastub serve --ws-host 192.168.1.20 --log-binary --log-level debug

  # Advertise over mDNS so 'otastub probe --mdns' can find it
  otastub serve --ws-host 192.168.1.20 --mdns`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file (default: per-user config file if present)")
	serveCmd.Flags().IntVar(&port, "port", config.DefaultPort, "Port to listen on")
	serveCmd.Flags().StringVar(&wsHost, "ws-host", "", "Host or IP advertised in the WebSocket URL (required)")
	serveCmd.Flags().StringVar(&scene, "scene", config.DefaultScene, "Scene sent in self.led_scene.set")
	serveCmd.Flags().IntVar(&brightness, "brightness", config.Disabled, "Brightness 0-8 (negative leaves it out)")
	serveCmd.Flags().IntVar(&speed, "speed", config.Disabled, "Animation speed 1-10 (below 1 leaves it out)")
	serveCmd.Flags().BoolVar(&logBinary, "log-binary", false, "Log the length of binary frames")
	serveCmd.Flags().BoolVar(&doGet, "do-get", false, "Follow the set call with self.led_scene.get")
	serveCmd.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&mdns, "mdns", false, "Advertise the stub over mDNS")
	serveCmd.Flags().StringVar(&mdnsName, "mdns-name", config.DefaultMDNSName, "mDNS instance name")
}

func runServe(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyServeFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), serveBanner(cfg).Render())

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

// applyServeFlags copies the flags given on the command line over cfg.
// Flags left at their defaults do not override the file or environment.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("ws-host") {
		cfg.WSHost = wsHost
	}
	if flags.Changed("scene") {
		cfg.Scene = scene
	}
	if flags.Changed("brightness") {
		cfg.Brightness = brightness
	}
	if flags.Changed("speed") {
		cfg.Speed = speed
	}
	if flags.Changed("log-binary") {
		cfg.LogBinary = logBinary
	}
	if flags.Changed("do-get") {
		cfg.DoGet = doGet
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("mdns") {
		cfg.MDNS = mdns
	}
	if flags.Changed("mdns-name") {
		cfg.MDNSName = mdnsName
	}
}

func serveBanner(cfg *config.Config) *ui.Banner {
	b := ui.NewBanner("otastub", version.Full())
	b.Add("OTA URL", fmt.Sprintf("http://<this host>:%d/", cfg.Port))
	b.Add("WebSocket URL", cfg.WebSocketURL())
	b.Add("Scene", cfg.Scene)
	b.Add("Brightness", optional(cfg.HasBrightness(), cfg.Brightness))
	b.Add("Speed", optional(cfg.HasSpeed(), cfg.Speed))
	b.Add("Scene get", strconv.FormatBool(cfg.DoGet))
	b.Add("Binary logging", strconv.FormatBool(cfg.LogBinary))
	if cfg.MDNS {
		b.Add("mDNS", cfg.MDNSName)
	}

	for _, w := range cfg.Warnings() {
		b.Warn(w)
	}
	if !protocol.IsKnownScene(cfg.Scene) {
		b.Warn(fmt.Sprintf("scene %q is not built into the firmware (known: %v)", cfg.Scene, protocol.KnownScenes))
	}
	return b
}

func optional(set bool, v int) string {
	if !set {
		return "not sent"
	}
	return strconv.Itoa(v)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/otastub/internal/client"
	"github.com/muurk/otastub/internal/discovery"
	"github.com/muurk/otastub/internal/logging"
	"github.com/muurk/otastub/internal/ui"
)

// Probe command flags
var (
	probeURL      string
	probeDialHost string
	probeTimeout  time.Duration
	probeExpect   int
	probeReply    bool
	probeMDNS     bool
	probeInstance string
	probeFormat   string
	probeLogLevel string
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Act as a device against a running stub",
	Long: `Run the device side of the protocol against an OTA endpoint.

The probe posts an OTA check-in, connects to the advertised WebSocket URL,
sends a device hello and waits for the scripted tool calls. It exits non-zero
if fewer than --expect calls arrive before --timeout.`,
	Example: `  # Probe a stub on this machine
  otastub probe

  # Stub advertises a LAN address; dial it through loopback instead
  otastub probe --url http://127.0.0.1:8000/ --dial-host 127.0.0.1

  # Expect set and get, answering each call like a device would
  otastub probe --expect 2 --reply

  # Find the stub over mDNS and print the transcript as JSON
  otastub probe --mdns --format json`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVar(&probeURL, "url", "http://127.0.0.1:8000/", "OTA check-in URL")
	probeCmd.Flags().StringVar(&probeDialHost, "dial-host", "", "Replace the host of the advertised WebSocket URL")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", client.DefaultTimeout, "Overall probe timeout")
	probeCmd.Flags().IntVar(&probeExpect, "expect", 1, "Number of tool calls to wait for")
	probeCmd.Flags().BoolVar(&probeReply, "reply", false, "Answer each tool call with a result")
	probeCmd.Flags().BoolVar(&probeMDNS, "mdns", false, "Discover the stub over mDNS instead of --url")
	probeCmd.Flags().StringVar(&probeInstance, "instance", "", "mDNS instance name to look for (default: any stub)")
	probeCmd.Flags().StringVar(&probeFormat, "format", "text", "Output format (text, json)")
	probeCmd.Flags().StringVar(&probeLogLevel, "log-level", "", "Log level (empty = silent, or OTASTUB_LOG_LEVEL)")
}

func runProbe(cmd *cobra.Command, args []string) error {
	if probeFormat != "text" && probeFormat != "json" {
		return fmt.Errorf("invalid --format %q (want text or json)", probeFormat)
	}
	cmd.SilenceUsage = true

	if err := logging.Initialize(probeLogLevel); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otaURL := probeURL
	if probeMDNS {
		scanner := discovery.NewScanner()
		scanner.Timeout = probeTimeout
		svc, err := scanner.Find(ctx, probeInstance)
		if err != nil {
			return fmt.Errorf("discovery failed: %w", err)
		}
		logging.Info("Found OTA stub", zap.String("service", svc.String()))
		otaURL = svc.OTAURL()
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	transcript, err := client.Probe(ctx, otaURL, client.Options{
		DialHost: probeDialHost,
		Expect:   probeExpect,
		Reply:    probeReply,
		Timeout:  probeTimeout,
	})

	out := cmd.OutOrStdout()
	if probeFormat == "json" {
		if transcript != nil {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(transcript); encErr != nil {
				return fmt.Errorf("failed to encode transcript: %w", encErr)
			}
		}
		if err != nil {
			return fmt.Errorf("probe failed: %w", err)
		}
		return nil
	}

	fmt.Fprintln(out, probeResult(otaURL, transcript, err).Render())
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	return nil
}

func probeResult(otaURL string, t *client.Transcript, err error) *ui.Result {
	var r *ui.Result
	if err != nil {
		r = ui.NewFailureResult("probe "+otaURL, err)
	} else {
		r = ui.NewSuccessResult("probe " + otaURL)
	}
	if t == nil {
		return r
	}

	r.Add("WebSocket URL", t.DialURL)
	if t.Hello != nil {
		r.Add("Session", t.Hello.SessionID)
	}
	r.Add("Tool calls", strconv.Itoa(len(t.ToolCalls)))
	for _, call := range t.ToolCalls {
		args, _ := json.Marshal(call.Params.Arguments)
		r.Add("#"+strconv.Itoa(call.ID), strings.TrimSpace(call.Params.Name+" "+string(args)))
	}
	return r
}

// rtcping: CLI entry point.
//
// This tool opens a single WebRTC DataChannel to a server through one HTTP
// (or WebSocket) signaling round trip, then sends PING on a fixed interval
// and logs every reply together with the peer's address.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/rtcping/internal/app"
	"github.com/1ureka/rtcping/internal/config"
	"github.com/1ureka/rtcping/internal/util"
)

var version = "dev"

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:           "rtcping",
		Short:         "Keep a WebRTC DataChannel alive with PING messages",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Debug {
				util.EnableDebug()
			}

			u, err := normalizeURL(cfg.SignalingURL)
			if err != nil {
				return err
			}
			cfg.SignalingURL = u

			if err := cfg.Validate(); err != nil {
				return err
			}

			pterm.Info.Println(fmt.Sprintf("rtcping v%s", version))
			pterm.Println()

			return app.RunClient(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.SignalingURL, "url", cfg.SignalingURL, "signaling endpoint receiving the offer (http, https, ws or wss)")
	f.DurationVar(&cfg.KeepaliveInterval, "interval", cfg.KeepaliveInterval, "delay between PING messages")
	f.StringSliceVar(&cfg.STUNServers, "stun", cfg.STUNServers, "STUN server URLs; pass an empty value to gather host candidates only")
	f.IntVar(&cfg.MessageSize, "message-size", cfg.MessageSize, "read buffer size when the peer reports no max message size")
	f.DurationVar(&cfg.GatherTimeout, "gather-timeout", cfg.GatherTimeout, "max wait for ICE gathering before posting the offer (0 posts immediately)")
	f.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "bound on the signaling round trip (0 disables)")
	f.DurationVar(&cfg.StatsInterval, "stats-interval", cfg.StatsInterval, "traffic summary interval (0 disables)")
	f.BoolVar(&cfg.DisableMDNS, "no-mdns", cfg.DisableMDNS, "advertise plain IP host candidates instead of .local names")
	f.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")

	return cmd
}

// normalizeURL trims raw and assumes http:// when no scheme is given.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("missing signaling URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	return raw, nil
}

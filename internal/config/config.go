// Package config holds the client configuration and its defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Defaults used when a flag is not given.
const (
	DefaultSignalingURL      = "http://127.0.0.1:14191/rtc_session"
	DefaultKeepaliveInterval = 5 * time.Second
	DefaultMessageSize       = 1500 // read buffer when SCTP reports no max message size
	DefaultGatherTimeout     = time.Second
	DefaultRequestTimeout    = 10 * time.Second
	DefaultStatsInterval     = 10 * time.Second
)

// DefaultSTUNServers is the ICE server list used when none is configured.
var DefaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
}

// Config stores every parameter the client needs.
type Config struct {
	SignalingURL      string        // HTTP(S) or WS(S) endpoint receiving the offer
	STUNServers       []string      // ICE server URLs
	KeepaliveInterval time.Duration // delay between PING messages
	MessageSize       int           // fallback read buffer size
	GatherTimeout     time.Duration // max wait for ICE gathering before posting the offer; 0 posts immediately
	RequestTimeout    time.Duration // bound on the signaling round trip; 0 means no bound
	StatsInterval     time.Duration // 0 disables the stats reporter
	DisableMDNS       bool          // gather plain IP host candidates instead of .local names
	Debug             bool
}

// Default returns a Config populated with the package defaults.
func Default() Config {
	return Config{
		SignalingURL:      DefaultSignalingURL,
		STUNServers:       append([]string(nil), DefaultSTUNServers...),
		KeepaliveInterval: DefaultKeepaliveInterval,
		MessageSize:       DefaultMessageSize,
		GatherTimeout:     DefaultGatherTimeout,
		RequestTimeout:    DefaultRequestTimeout,
		StatsInterval:     DefaultStatsInterval,
	}
}

// Validate reports the first invalid field, if any.
func (c Config) Validate() error {
	u, err := url.Parse(c.SignalingURL)
	if err != nil {
		return fmt.Errorf("invalid signaling URL %q: %w", c.SignalingURL, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("invalid signaling URL %q: scheme must be http, https, ws or wss", c.SignalingURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid signaling URL %q: missing host", c.SignalingURL)
	}

	if c.KeepaliveInterval <= 0 {
		return errors.New("keepalive interval must be positive")
	}
	if c.MessageSize < 1 || c.MessageSize > 65535 {
		return fmt.Errorf("message size must be 1 ~ 65535 (got %d)", c.MessageSize)
	}
	if c.GatherTimeout < 0 || c.RequestTimeout < 0 || c.StatsInterval < 0 {
		return errors.New("timeouts and intervals must not be negative")
	}
	return nil
}

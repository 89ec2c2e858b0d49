package transport

import (
	"github.com/pion/ice/v4"
	"github.com/pion/logging"
	piontransport "github.com/pion/transport/v3"
	"github.com/pion/webrtc/v4"

	"github.com/1ureka/rtcping/internal/config"
	"github.com/1ureka/rtcping/internal/protocol"
	"github.com/1ureka/rtcping/internal/util"
)

// Options configures the PeerConnection behind a Transport.
type Options struct {
	STUNServers []string
	DisableMDNS bool

	// FallbackMessageSize is the read buffer size used when the SCTP
	// association does not report a maximum message size.
	FallbackMessageSize int

	// Net replaces the OS network stack (e.g. a vnet.Net in tests).
	Net piontransport.Net

	// LoggerFactory receives pion's internal logs. Defaults to util.PionLoggerFactory.
	LoggerFactory logging.LoggerFactory
}

// newAPI builds a webrtc.API with detached DataChannels enabled. Detached
// channels are read and written directly instead of through OnMessage;
// mixing both modes on one API is not supported by pion.
func newAPI(opts Options) *webrtc.API {
	se := webrtc.SettingEngine{}
	if opts.LoggerFactory != nil {
		se.LoggerFactory = opts.LoggerFactory
	} else {
		se.LoggerFactory = util.PionLoggerFactory{}
	}

	se.DetachDataChannels()

	if opts.DisableMDNS {
		se.SetICEMulticastDNSMode(ice.MulticastDNSModeDisabled)
	}
	if opts.Net != nil {
		se.SetNet(opts.Net)
	}

	return webrtc.NewAPI(webrtc.WithSettingEngine(se))
}

// newPeerConnection creates a PeerConnection configured with the given STUN servers.
func newPeerConnection(api *webrtc.API, stunServers []string) (*webrtc.PeerConnection, error) {
	config := webrtc.Configuration{}
	if len(stunServers) > 0 {
		config.ICEServers = []webrtc.ICEServer{
			{URLs: stunServers},
		}
	}
	return api.NewPeerConnection(config)
}

// newDataChannel creates the keepalive DataChannel: unordered and with zero
// retransmits, so a lost PING is simply lost and never delays the next one.
func newDataChannel(pc *webrtc.PeerConnection) (*webrtc.DataChannel, error) {
	ordered := false
	maxRetransmits := uint16(0)

	return pc.CreateDataChannel(protocol.DataChannelLabel, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &maxRetransmits,
	})
}

// OptionsFromConfig maps the user-facing configuration onto transport options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		STUNServers:         cfg.STUNServers,
		DisableMDNS:         cfg.DisableMDNS,
		FallbackMessageSize: cfg.MessageSize,
	}
}

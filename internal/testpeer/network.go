// Package testpeer provides an in-process signaling server and answering
// peer connected to the client over a pion virtual network, for end-to-end
// tests that must not touch real sockets.
package testpeer

import (
	"fmt"

	"github.com/pion/transport/v3/vnet"

	"github.com/1ureka/rtcping/internal/util"
)

const (
	networkCIDR = "10.0.0.0/24"
	clientIP    = "10.0.0.1"
	serverIP    = "10.0.0.2"
)

// Network is a started vnet router with one interface for each side.
type Network struct {
	Router *vnet.Router
	Client *vnet.Net
	Server *vnet.Net
}

// NewNetwork builds and starts the virtual network.
func NewNetwork() (*Network, error) {
	router, err := vnet.NewRouter(&vnet.RouterConfig{
		CIDR:          networkCIDR,
		LoggerFactory: util.PionLoggerFactory{},
	})
	if err != nil {
		return nil, fmt.Errorf("new router: %w", err)
	}

	client, err := vnet.NewNet(&vnet.NetConfig{StaticIPs: []string{clientIP}})
	if err != nil {
		return nil, fmt.Errorf("new client net: %w", err)
	}
	server, err := vnet.NewNet(&vnet.NetConfig{StaticIPs: []string{serverIP}})
	if err != nil {
		return nil, fmt.Errorf("new server net: %w", err)
	}

	if err := router.AddNet(client); err != nil {
		return nil, fmt.Errorf("add client net: %w", err)
	}
	if err := router.AddNet(server); err != nil {
		return nil, fmt.Errorf("add server net: %w", err)
	}
	if err := router.Start(); err != nil {
		return nil, fmt.Errorf("start router: %w", err)
	}

	return &Network{Router: router, Client: client, Server: server}, nil
}

// Close stops the router.
func (n *Network) Close() error {
	return n.Router.Stop()
}

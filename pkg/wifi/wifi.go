// Package wifi brings the node onto the wireless network before anything
// else runs. Association blocks until the link reports Connected.
package wifi

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/itohio/soilsense/pkg/clock"
)

// Status is the association state reported by a Link.
type Status int

const (
	Idle Status = iota
	Connecting
	Connected
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Credentials is the network name and passphrase pair.
type Credentials struct {
	SSID       string
	Passphrase string
}

// Link is a network interface that can be associated with an access point.
type Link interface {
	Begin(ssid, passphrase string) error
	Status() Status
}

var (
	_ Link = (*InterfaceLink)(nil)
	_ Link = StaticLink{}
)

// Associate starts association and polls the link every delay until it
// reports Connected. There is no attempt limit; only ctx ends the wait.
func Associate(ctx context.Context, link Link, creds Credentials, delay time.Duration, sleep clock.Sleeper, logger *zap.Logger) error {
	if sleep == nil {
		sleep = clock.Sleep
	}

	if err := link.Begin(creds.SSID, creds.Passphrase); err != nil {
		return fmt.Errorf("wifi begin: %w", err)
	}

	for link.Status() != Connected {
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		logger.Info("Connecting to WiFi..")
	}

	logger.Info("You're connected to the network", zap.String("ssid", creds.SSID))
	return nil
}

// StaticLink is always connected. It is used when the host already has
// connectivity, e.g. with a mocked front end.
type StaticLink struct{}

// Begin does nothing.
func (StaticLink) Begin(string, string) error { return nil }

// Status always reports Connected.
func (StaticLink) Status() Status { return Connected }

// InterfaceLink watches a host network interface. Association itself is the
// operating system's job; the link reports Connected once the interface is
// up and carries a unicast address.
type InterfaceLink struct {
	name  string
	addrs func(name string) (up bool, addrs []net.Addr, err error)
}

// NewInterfaceLink watches the named interface. An empty name accepts any
// non-loopback interface.
func NewInterfaceLink(name string) *InterfaceLink {
	return &InterfaceLink{name: name, addrs: interfaceAddrs}
}

// Begin records nothing; credentials are managed by the host.
func (l *InterfaceLink) Begin(string, string) error { return nil }

// Status reports Connected when the interface has an address.
func (l *InterfaceLink) Status() Status {
	up, addrs, err := l.addrs(l.name)
	if err != nil {
		return Failed
	}
	if !up {
		return Connecting
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.IsGlobalUnicast() {
			return Connected
		}
	}
	return Connecting
}

func interfaceAddrs(name string) (bool, []net.Addr, error) {
	if name != "" {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			return false, nil, err
		}
		addrs, err := iface.Addrs()
		return iface.Flags&net.FlagUp != 0, addrs, err
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return false, nil, err
	}
	var all []net.Addr
	up := false
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		up = true
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		all = append(all, addrs...)
	}
	return up, all, nil
}

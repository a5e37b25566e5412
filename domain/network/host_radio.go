package network

import (
	"fmt"
	"net"

	customlog "github.com/open-teleop/rover/pkg/log"
)

// HostRadio reports on a host network interface. Association and access point
// setup are owned by the host's own network stack (wpa_supplicant, hostapd),
// so Join and StartAccessPoint only record the request.
type HostRadio struct {
	iface  string
	logger customlog.Logger
}

// NewHostRadio creates a radio backed by the named interface
func NewHostRadio(iface string, logger customlog.Logger) *HostRadio {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &HostRadio{iface: iface, logger: logger}
}

func (r *HostRadio) StartAccessPoint(ssid, password string) error {
	if _, err := net.InterfaceByName(r.iface); err != nil {
		return fmt.Errorf("interface %s: %w", r.iface, err)
	}
	r.logger.Infof("Access point %q expected on %s", ssid, r.iface)
	return nil
}

func (r *HostRadio) Join(ssid, password string) error {
	if _, err := net.InterfaceByName(r.iface); err != nil {
		return fmt.Errorf("interface %s: %w", r.iface, err)
	}
	r.logger.Infof("Waiting for %s to associate with %q", r.iface, ssid)
	return nil
}

// Associated reports whether the interface is up with an IPv4 address
func (r *HostRadio) Associated() bool {
	_, err := r.Address()
	return err == nil
}

// Address returns the first IPv4 address of the interface
func (r *HostRadio) Address() (string, error) {
	ifi, err := net.InterfaceByName(r.iface)
	if err != nil {
		return "", fmt.Errorf("interface %s: %w", r.iface, err)
	}
	if ifi.Flags&net.FlagUp == 0 {
		return "", fmt.Errorf("interface %s is down", r.iface)
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return "", fmt.Errorf("interface %s addresses: %w", r.iface, err)
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok {
			if ip4 := ipn.IP.To4(); ip4 != nil {
				return ip4.String(), nil
			}
		}
	}
	return "", fmt.Errorf("interface %s has no IPv4 address", r.iface)
}

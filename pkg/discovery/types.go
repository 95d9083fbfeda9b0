package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	// ServiceType is the DNS-SD service type of HID++ bridges.
	ServiceType = "_omm-hidpp._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default bridge port.
	DefaultPort = 7410

	// BridgeVersion is the framing version announced in TXT records.
	BridgeVersion = "1"
)

// TXT record keys.
const (
	TXTKeyName    = "name"
	TXTKeyVendor  = "vid"
	TXTKeyProduct = "pid"
	TXTKeyVersion = "ver"
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTValueLen bounds a single TXT value.
	MaxTXTValueLen = 200
)

// Errors.
var (
	ErrMissingRequired     = errors.New("missing required TXT record")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record")
	ErrInstanceNameTooLong = errors.New("instance name too long")
	ErrNotFound            = errors.New("service not found")
	ErrNotAdvertising      = errors.New("not advertising")
)

// BridgeInfo is what a bridge host announces.
type BridgeInfo struct {
	// Instance is the DNS-SD instance name. Defaults to the device name.
	Instance string

	Name      string
	VendorID  uint16
	ProductID uint16
	Port      uint16
}

// BridgeService is a bridge found by browsing.
type BridgeService struct {
	Instance  string   `json:"instance"`
	Host      string   `json:"host"`
	Port      uint16   `json:"port"`
	Addresses []string `json:"addresses"`
	Name      string   `json:"name"`
	VendorID  uint16   `json:"vendorId"`
	ProductID uint16   `json:"productId"`
	Version   string   `json:"version"`
}

// Addr returns host:port for dialing, preferring the first resolved
// address over the host name.
func (s *BridgeService) Addr() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}

// String describes the service for listings.
func (s *BridgeService) String() string {
	return fmt.Sprintf("%s [%04x:%04x] %s", s.Name, s.VendorID, s.ProductID, s.Addr())
}

// Config configures advertisers and browsers.
type Config struct {
	// Interface restricts mDNS to one network interface. Empty means all.
	Interface string

	// TTL of advertised records. Zero uses the library default.
	TTL time.Duration
}

// DefaultConfig returns a configuration using all interfaces.
func DefaultConfig() Config {
	return Config{TTL: 120 * time.Second}
}

func (c Config) interfaces() []net.Interface {
	if c.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(c.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

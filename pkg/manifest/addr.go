package manifest

import (
	"fmt"
	"net"
	"strings"
)

// Addr is a 6-byte hardware destination address.
type Addr [6]byte

// ParseAddr accepts colon or dash separated hex octets.
func ParseAddr(raw string) (Addr, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(raw))
	if err != nil {
		return Addr{}, fmt.Errorf("manifest: parse address %q: %w", raw, err)
	}
	if len(hw) != len(Addr{}) {
		return Addr{}, fmt.Errorf("manifest: address %q is %d bytes, want 6", raw, len(hw))
	}
	var a Addr
	copy(a[:], hw)
	return a, nil
}

func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// IsMulticast reports whether the group bit of the first octet is set.
func (a Addr) IsMulticast() bool {
	return a[0]&0x01 != 0
}

// IsIPv4Mapped reports whether a lies in 01:00:5E:00:00:00-01:00:5E:7F:FF:FF.
func (a Addr) IsIPv4Mapped() bool {
	return a[0] == 0x01 && a[1] == 0x00 && a[2] == 0x5E && a[3]&0x80 == 0
}

// IsMAAP reports whether a lies in the locally administered multicast block
// 91:E0:F0:00:00:00-91:E0:F0:FF:FF:FF reserved for deterministic streams.
func (a Addr) IsMAAP() bool {
	return a[0] == 0x91 && a[1] == 0xE0 && a[2] == 0xF0
}

func (a Addr) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Addr) UnmarshalText(text []byte) error {
	v, err := ParseAddr(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// AddressPolicy selects which multicast ranges a deployment accepts.
type AddressPolicy int

const (
	// PolicyAny accepts both the IPv4-mapped and the MAAP block.
	PolicyAny AddressPolicy = iota
	// PolicyIPv4Mapped accepts only 01:00:5E:00:00:00-01:00:5E:7F:FF:FF.
	PolicyIPv4Mapped
	// PolicyMAAP accepts only 91:E0:F0:00:00:00-91:E0:F0:FF:FF:FF.
	PolicyMAAP
)

func (p AddressPolicy) allows(a Addr) bool {
	switch p {
	case PolicyIPv4Mapped:
		return a.IsIPv4Mapped()
	case PolicyMAAP:
		return a.IsMAAP()
	default:
		return a.IsIPv4Mapped() || a.IsMAAP()
	}
}

func (p AddressPolicy) String() string {
	switch p {
	case PolicyIPv4Mapped:
		return "ipv4-mapped"
	case PolicyMAAP:
		return "maap"
	default:
		return "any"
	}
}

func ParseAddressPolicy(raw string) (AddressPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "any":
		return PolicyAny, nil
	case "ipv4-mapped", "ipv4", "iana":
		return PolicyIPv4Mapped, nil
	case "maap", "local":
		return PolicyMAAP, nil
	default:
		return PolicyAny, fmt.Errorf("manifest: unknown address policy %q", raw)
	}
}

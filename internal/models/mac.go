package models

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var ErrInvalidMAC = errors.New("invalid MAC address")

// NormalizeMAC returns mac in the canonical AA:BB:CC:DD:EE:FF form.
// Accepts colon, dash and dot separated forms as well as 12 bare hex digits.
func NormalizeMAC(mac string) (string, error) {
	normalized := strings.TrimSpace(mac)
	normalized = strings.ReplaceAll(normalized, "-", ":")

	if len(normalized) == 12 && !strings.ContainsAny(normalized, ":.") {
		parts := make([]string, 0, 6)
		for i := 0; i < len(normalized); i += 2 {
			parts = append(parts, normalized[i:i+2])
		}
		normalized = strings.Join(parts, ":")
	}

	hw, err := net.ParseMAC(normalized)
	if err != nil || len(hw) != 6 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}

	return strings.ToUpper(hw.String()), nil
}

// OUIPrefix returns the vendor prefix (first three octets) of a canonical MAC.
func OUIPrefix(mac string) string {
	if len(mac) < 8 {
		return ""
	}
	return strings.ToUpper(mac[:8])
}

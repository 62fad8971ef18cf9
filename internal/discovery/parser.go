package discovery

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yanniedog/blueberry/internal/models"
)

const foundMarker = "dev_found"

var (
	addressPattern = regexp.MustCompile(`(?i)(?:^|[\s:])([0-9a-f]{2}(?::[0-9a-f]{2}){5})(?:\s|$)`)
	rssiPattern    = regexp.MustCompile(`\brssi (-?\d+)`)
	namePattern    = regexp.MustCompile(`(?:^|\s)name (.+)$`)
)

// Sighting is what a single discovery output line says about a device.
type Sighting struct {
	MAC     string
	RSSI    int
	HasRSSI bool
	Name    string
}

// Parser reads btmgmt find output, e.g.
//
//	hci0 dev_found: 11:22:33:44:55:66 type LE Random rssi -80 flags 0x0000
//	AD flags 0x06
//	name Pixel 7
//
// A name line belongs to the most recently found address.
type Parser struct {
	last string
}

// ParseLine returns the sighting described by line, if any.
func (p *Parser) ParseLine(line string) (Sighting, bool) {
	line = strings.TrimRight(line, "\r\n")

	var sighting Sighting
	found := false

	if strings.Contains(line, foundMarker) {
		if match := addressPattern.FindStringSubmatch(line); match != nil {
			if mac, err := models.NormalizeMAC(match[1]); err == nil {
				p.last = mac
				sighting.MAC = mac
				found = true

				if match := rssiPattern.FindStringSubmatch(line); match != nil {
					if rssi, err := strconv.Atoi(match[1]); err == nil {
						sighting.RSSI = rssi
						sighting.HasRSSI = true
					}
				}
			}
		}
	}

	if match := namePattern.FindStringSubmatch(line); match != nil && p.last != "" {
		if name := strings.TrimSpace(match[1]); name != "" {
			sighting.MAC = p.last
			sighting.Name = name
			found = true
		}
	}

	return sighting, found
}

package discovery

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/yanniedog/blueberry/internal/models"
)

// VendorResolver resolves an address to a vendor label, returning "" when unknown.
type VendorResolver interface {
	Resolve(ctx context.Context, mac string) string
}

// Collector builds the observation set of one discovery cycle. The vendor
// of an address is resolved on its first sighting only; later sightings
// replace the signal strength.
type Collector struct {
	resolver     VendorResolver
	parser       Parser
	observations models.Observations
	names        map[string]string
}

func NewCollector(resolver VendorResolver) *Collector {
	return &Collector{
		resolver:     resolver,
		observations: make(models.Observations),
		names:        make(map[string]string),
	}
}

// Add records a sighting.
func (c *Collector) Add(ctx context.Context, sighting Sighting) {
	if sighting.Name != "" {
		c.names[sighting.MAC] = sighting.Name
		if observation, ok := c.observations[sighting.MAC]; ok {
			observation.Name = sighting.Name
			c.observations[sighting.MAC] = observation
		}
	}

	if !sighting.HasRSSI {
		return
	}

	observation, seen := c.observations[sighting.MAC]
	if !seen {
		observation = models.Observation{
			MAC:  sighting.MAC,
			Name: c.names[sighting.MAC],
		}
		if c.resolver != nil {
			observation.Vendor = c.resolver.Resolve(ctx, sighting.MAC)
		}
	}

	observation.RSSI = sighting.RSSI
	c.observations[sighting.MAC] = observation
}

// Feed parses one line of discovery output.
func (c *Collector) Feed(ctx context.Context, line string) {
	if sighting, ok := c.parser.ParseLine(line); ok {
		c.Add(ctx, sighting)
	}
}

// ReadFrom feeds every line of r until EOF.
func (c *Collector) ReadFrom(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		c.Feed(ctx, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read discovery output: %w", err)
	}
	return nil
}

func (c *Collector) Observations() models.Observations {
	return c.observations
}

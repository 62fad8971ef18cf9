// Package discovery finds nearby Bluetooth devices and turns what it sees
// into per-cycle observations.
package discovery

import (
	"context"

	"github.com/yanniedog/blueberry/internal/models"
)

const (
	BACKEND_BTMGMT = "btmgmt"
	BACKEND_BLUEZ  = "bluez"
)

// Scanner runs one discovery pass. On failure it still returns whatever
// was observed before the error.
type Scanner interface {
	Scan(ctx context.Context, resolver VendorResolver) (models.Observations, error)
}

// Package aggregator folds the observations of a discovery cycle into the
// persisted device table.
package aggregator

import (
	"slices"
	"time"

	"github.com/yanniedog/blueberry/internal/models"
)

// Merge applies one cycle of observations to the existing table and returns
// the updated table. Existing rows keep their order, unobserved rows pass
// through unchanged and newly seen addresses are appended in address order.
// Rows are never removed, except later duplicates of an address already seen.
//
// Neither argument is modified.
func Merge(observations models.Observations, existing []models.DeviceRecord, now time.Time) []models.DeviceRecord {
	updated := make([]models.DeviceRecord, 0, len(existing)+len(observations))
	known := make(map[string]struct{}, len(existing))

	for _, record := range existing {
		if _, duplicate := known[record.MAC]; duplicate {
			continue
		}
		known[record.MAC] = struct{}{}

		if observation, ok := observations[record.MAC]; ok {
			record = update(record, observation, now)
		} else {
			record.Samples = slices.Clone(record.Samples)
		}
		updated = append(updated, record)
	}

	var fresh []string
	for mac := range observations {
		if _, ok := known[mac]; !ok {
			fresh = append(fresh, mac)
		}
	}
	slices.Sort(fresh)

	for _, mac := range fresh {
		updated = append(updated, create(observations[mac], now))
	}

	return updated
}

func create(observation models.Observation, now time.Time) models.DeviceRecord {
	return models.DeviceRecord{
		MAC:        observation.MAC,
		Name:       observation.Name,
		Vendor:     observation.Vendor,
		RSSI:       observation.RSSI,
		MinRSSI:    observation.RSSI,
		MaxRSSI:    observation.RSSI,
		AvgRSSI:    float64(observation.RSSI),
		StdDevRSSI: 0,
		FirstSeen:  now,
		LastSeen:   now,
		Duration:   0,
		Count:      1,
		Samples:    models.Samples{observation.RSSI},
	}
}

func update(record models.DeviceRecord, observation models.Observation, now time.Time) models.DeviceRecord {
	// Rows written without a history are seeded with their last known value.
	history := record.Samples
	if len(history) == 0 {
		history = models.Samples{record.RSSI}
		if record.Count == 0 {
			record.Count = 1
		}
	}

	samples := make(models.Samples, len(history), len(history)+1)
	copy(samples, history)
	samples = append(samples, observation.RSSI)

	summary := Summarize(samples)

	record.Samples = samples
	record.RSSI = observation.RSSI
	record.MinRSSI = summary.Min
	record.MaxRSSI = summary.Max
	record.AvgRSSI = summary.Mean
	record.StdDevRSSI = summary.StdDev
	record.LastSeen = now
	if record.FirstSeen.IsZero() {
		record.FirstSeen = now
	}
	record.Duration = record.LastSeen.Sub(record.FirstSeen)
	record.Count++

	if observation.Name != "" {
		record.Name = observation.Name
	}
	if observation.Vendor != "" {
		record.Vendor = observation.Vendor
	}

	return record
}

package models

// Observation is a single device sighting within one discovery cycle.
type Observation struct {
	MAC    string
	RSSI   int
	Name   string
	Vendor string
}

// Observations holds one Observation per address for a discovery cycle.
type Observations map[string]Observation

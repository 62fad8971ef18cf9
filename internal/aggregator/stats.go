package aggregator

import (
	"math"
)

// Summary holds the aggregates derived from an RSSI sample history.
type Summary struct {
	Min    int
	Max    int
	Mean   float64
	StdDev float64
}

// Summarize recomputes every aggregate from the complete sample list.
// StdDev is the sample standard deviation and is 0 for fewer than two samples.
func Summarize(samples []int) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	summary := Summary{Min: samples[0], Max: samples[0]}
	sum := 0.0
	for _, sample := range samples {
		summary.Min = min(summary.Min, sample)
		summary.Max = max(summary.Max, sample)
		sum += float64(sample)
	}

	n := float64(len(samples))
	summary.Mean = sum / n

	if len(samples) < 2 {
		return summary
	}

	squares := 0.0
	for _, sample := range samples {
		delta := float64(sample) - summary.Mean
		squares += delta * delta
	}
	summary.StdDev = math.Sqrt(squares / (n - 1))

	return summary
}

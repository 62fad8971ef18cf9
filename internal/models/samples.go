package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

const sampleSeparator = ";"

// Samples is the full RSSI history of a device, oldest first.
type Samples []int

func ParseSamples(value string) (Samples, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	parts := strings.Split(value, sampleSeparator)
	samples := make(Samples, 0, len(parts))
	for _, part := range parts {
		sample, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid RSSI sample %q: %w", part, err)
		}
		samples = append(samples, sample)
	}

	return samples, nil
}

func (s Samples) String() string {
	parts := make([]string, len(s))
	for i, sample := range s {
		parts[i] = strconv.Itoa(sample)
	}
	return strings.Join(parts, sampleSeparator)
}

// Value implements driver.Valuer so gorm can store the history as text.
func (s Samples) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements sql.Scanner.
func (s *Samples) Scan(value any) error {
	var text string

	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return fmt.Errorf("unsupported samples column type %T", value)
	}

	parsed, err := ParseSamples(text)
	if err != nil {
		return err
	}

	*s = parsed
	return nil
}

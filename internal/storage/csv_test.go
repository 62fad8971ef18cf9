package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanniedog/blueberry/internal/aggregator"
	"github.com/yanniedog/blueberry/internal/models"
)

func sampleRecords() []models.DeviceRecord {
	firstSeen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	return []models.DeviceRecord{
		{
			MAC:        "AA:BB:CC:DD:EE:FF",
			Name:       "Headphones, left",
			Vendor:     "Sony Group Corporation",
			RSSI:       -55,
			MinRSSI:    -70,
			MaxRSSI:    -55,
			AvgRSSI:    -63.333333333333336,
			StdDevRSSI: 7.637626158259733,
			FirstSeen:  firstSeen,
			LastSeen:   firstSeen.Add(90 * time.Second),
			Duration:   90 * time.Second,
			Count:      3,
			Samples:    models.Samples{-65, -70, -55},
		},
		{
			MAC:       "11:22:33:44:55:66",
			RSSI:      -80,
			MinRSSI:   -80,
			MaxRSSI:   -80,
			AvgRSSI:   -80,
			FirstSeen: firstSeen,
			LastSeen:  firstSeen,
			Count:     1,
			Samples:   models.Samples{-80},
		},
	}
}

func TestCSVStoreMissingFileIsEmpty(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "bt.csv"))

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCSVStoreSaveAndLoad(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "nested", "bt.csv"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleRecords()))

	records, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	want := sampleRecords()
	for i := range want {
		assert.Equal(t, want[i].MAC, records[i].MAC)
		assert.Equal(t, want[i].Name, records[i].Name)
		assert.Equal(t, want[i].Vendor, records[i].Vendor)
		assert.Equal(t, want[i].AvgRSSI, records[i].AvgRSSI)
		assert.Equal(t, want[i].StdDevRSSI, records[i].StdDevRSSI)
		assert.True(t, want[i].FirstSeen.Equal(records[i].FirstSeen))
		assert.True(t, want[i].LastSeen.Equal(records[i].LastSeen))
		assert.Equal(t, want[i].Duration, records[i].Duration)
		assert.Equal(t, want[i].Count, records[i].Count)
		assert.Equal(t, want[i].Samples, records[i].Samples)
	}
}

func TestCSVStoreEmptyMergeIsByteIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bt.csv")
	store := NewCSVStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleRecords()))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	records, err := store.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, aggregator.Merge(models.Observations{}, records, time.Now())))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestCSVStoreMalformedFile(t *testing.T) {
	tests := map[string]string{
		"no mac column": "Name,RSSI\nfoo,-50\n",
		"bad number":    "MAC,RSSI\nAA:BB:CC:DD:EE:FF,loud\n",
		"bad address":   "MAC,RSSI\nnot-a-mac,-50\n",
		"bad quoting":   "MAC,Name\nAA:BB:CC:DD:EE:FF,\"unterminated\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bt.csv")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			records, err := NewCSVStore(path).Load(context.Background())
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
			assert.Empty(t, records)
		})
	}
}

func TestReadCSVLegacyLayout(t *testing.T) {
	legacy := "MAC,Name,Manufacturer,RSSI,Min RSSI,Avg RSSI,Max RSSI,Last Seen\n" +
		"AA:BB:CC:DD:EE:FF,Phone,Apple,-60,-72,-66,-58,2023-06-01 08:30:00\n"

	records, err := ReadCSV(strings.NewReader(legacy))
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "Apple", record.Vendor)
	assert.Equal(t, -72, record.MinRSSI)
	assert.Equal(t, -58, record.MaxRSSI)
	assert.Equal(t, -66.0, record.AvgRSSI)
	assert.Empty(t, record.Samples)
	assert.Equal(t, 2023, record.LastSeen.Year())
	assert.True(t, record.FirstSeen.IsZero())
}

func TestWriteCSVHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(Columns, ",")+"\n", buf.String())
}

func TestCSVStoreSaveFailsWhenDirectoryIsAFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := NewCSVStore(filepath.Join(blocker, "bt.csv")).Save(context.Background(), sampleRecords())

	var writeErr *WriteError
	require.True(t, errors.As(err, &writeErr))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("redis", "somewhere")
	assert.Error(t, err)
}

package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanniedog/blueberry/internal/discovery"
	"github.com/yanniedog/blueberry/internal/models"
	"github.com/yanniedog/blueberry/internal/render"
	"github.com/yanniedog/blueberry/internal/storage"
)

type fakeScanner struct {
	cycles []models.Observations
	err    error
	calls  int
}

func (s *fakeScanner) Scan(ctx context.Context, resolver discovery.VendorResolver) (models.Observations, error) {
	defer func() { s.calls++ }()
	if s.calls < len(s.cycles) {
		return s.cycles[s.calls], s.err
	}
	return models.Observations{}, s.err
}

type failingStore struct {
	loadErr error
	saves   int
}

func (s *failingStore) Load(ctx context.Context) ([]models.DeviceRecord, error) {
	return nil, s.loadErr
}

func (s *failingStore) Save(ctx context.Context, records []models.DeviceRecord) error {
	s.saves++
	return &storage.WriteError{Path: "/readonly/bt.csv", Err: os.ErrPermission}
}

func (s *failingStore) Clear(ctx context.Context) error { return nil }
func (s *failingStore) Close() error                   { return nil }

type recordingPublisher struct {
	records  []models.DeviceRecord
	observed models.Observations
}

func (p *recordingPublisher) Publish(records []models.DeviceRecord, observed models.Observations) error {
	p.records = records
	p.observed = observed
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestMonitor(t *testing.T, scanner discovery.Scanner, store storage.Store, out io.Writer) *Monitor {
	t.Helper()
	monitor := NewMonitor(Config{
		Scanner:  scanner,
		Store:    store,
		Output:   out,
		Render:   render.Options{SortKey: render.SortLastSeen, Descending: true},
		Interval: time.Millisecond,
		Logger:   quietLogger(),
	})
	monitor.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local) }
	return monitor
}

func TestRunCyclePersistsAndRenders(t *testing.T) {
	store := storage.NewCSVStore(filepath.Join(t.TempDir(), "bt.csv"))
	scanner := &fakeScanner{cycles: []models.Observations{
		{"11:22:33:44:55:66": {MAC: "11:22:33:44:55:66", RSSI: -50, Vendor: "Acme"}},
	}}
	var out bytes.Buffer

	report, err := newTestMonitor(t, scanner, store, &out).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Observed)
	assert.Equal(t, 1, report.Known)

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Acme", records[0].Vendor)
	assert.Equal(t, 1, records[0].Count)

	assert.Contains(t, out.String(), "11:22:33:44:55:66")
	assert.Contains(t, out.String(), "Acme")
}

func TestRunCycleKeepsPartialResultsOnScanError(t *testing.T) {
	store := storage.NewCSVStore(filepath.Join(t.TempDir(), "bt.csv"))
	scanner := &fakeScanner{
		cycles: []models.Observations{
			{"AA:BB:CC:DD:EE:FF": {MAC: "AA:BB:CC:DD:EE:FF", RSSI: -72}},
		},
		err: errors.New("adapter gone"),
	}

	report, err := newTestMonitor(t, scanner, store, nil).RunCycle(context.Background())
	require.NoError(t, err)
	assert.EqualError(t, report.ScanErr, "adapter gone")

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, -72, records[0].RSSI)
}

func TestRunCycleTreatsMalformedTableAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bt.csv")
	require.NoError(t, os.WriteFile(path, []byte("not a device table\n"), 0o644))

	store := storage.NewCSVStore(path)
	scanner := &fakeScanner{cycles: []models.Observations{
		{"11:22:33:44:55:66": {MAC: "11:22:33:44:55:66", RSSI: -50}},
	}}

	report, err := newTestMonitor(t, scanner, store, nil).RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Known)
}

func TestRunCycleAccumulatesAcrossCycles(t *testing.T) {
	store := storage.NewCSVStore(filepath.Join(t.TempDir(), "bt.csv"))
	scanner := &fakeScanner{cycles: []models.Observations{
		{"11:22:33:44:55:66": {MAC: "11:22:33:44:55:66", RSSI: -65}},
		{"11:22:33:44:55:66": {MAC: "11:22:33:44:55:66", RSSI: -70}},
		{"11:22:33:44:55:66": {MAC: "11:22:33:44:55:66", RSSI: -55}},
	}}
	monitor := newTestMonitor(t, scanner, store, nil)

	for range 3 {
		_, err := monitor.RunCycle(context.Background())
		require.NoError(t, err)
	}

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].Count)
	assert.Equal(t, -70, records[0].MinRSSI)
	assert.Equal(t, -55, records[0].MaxRSSI)
	assert.InDelta(t, -63.33, records[0].AvgRSSI, 0.01)
}

func TestRunCyclePublishesObservedDevices(t *testing.T) {
	store := storage.NewCSVStore(filepath.Join(t.TempDir(), "bt.csv"))
	observations := models.Observations{
		"11:22:33:44:55:66": {MAC: "11:22:33:44:55:66", RSSI: -50},
	}
	publisher := &recordingPublisher{}

	monitor := newTestMonitor(t, &fakeScanner{cycles: []models.Observations{observations}}, store, nil)
	monitor.publisher = publisher

	_, err := monitor.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, publisher.records, 1)
	assert.Equal(t, observations, publisher.observed)
}

func TestRunCycleSkipsSaveWhenLoadFails(t *testing.T) {
	store := &failingStore{loadErr: os.ErrPermission}

	_, err := newTestMonitor(t, &fakeScanner{}, store, nil).RunCycle(context.Background())
	require.ErrorIs(t, err, os.ErrPermission)
	assert.Zero(t, store.saves)
}

func TestRunStopsOnWriteError(t *testing.T) {
	store := &failingStore{}

	err := newTestMonitor(t, &fakeScanner{}, store, nil).Run(context.Background())

	var writeErr *storage.WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, 1, store.saves)
}

func TestRunStopsWhenContextIsCancelled(t *testing.T) {
	store := storage.NewCSVStore(filepath.Join(t.TempDir(), "bt.csv"))
	scanner := &fakeScanner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestMonitor(t, scanner, store, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, scanner.calls)
}

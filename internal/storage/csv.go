package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yanniedog/blueberry/internal/models"
)

const TIME_LAYOUT = "2006-01-02 15:04:05"

const (
	columnMAC       = "MAC"
	columnName      = "Name"
	columnVendor    = "Manufacturer"
	columnRSSI      = "RSSI"
	columnMin       = "Min RSSI"
	columnMax       = "Max RSSI"
	columnAvg       = "Avg RSSI"
	columnStdDev    = "StdDev RSSI"
	columnFirstSeen = "First Seen"
	columnLastSeen  = "Last Seen"
	columnDuration  = "Duration"
	columnCount     = "Count"
	columnSamples   = "Samples"
)

// Columns is the header written by CSVStore.
var Columns = []string{
	columnMAC,
	columnName,
	columnVendor,
	columnRSSI,
	columnMin,
	columnMax,
	columnAvg,
	columnStdDev,
	columnFirstSeen,
	columnLastSeen,
	columnDuration,
	columnCount,
	columnSamples,
}

// CSVStore keeps the table in a CSV file with a header row. Files written
// with only a subset of the columns (older layouts) still load.
type CSVStore struct {
	path string
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) Load(ctx context.Context) ([]models.DeviceRecord, error) {
	file, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open device table: %w", err)
	}
	defer file.Close()

	records, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, s.path, err)
	}

	return records, nil
}

func (s *CSVStore) Save(ctx context.Context, records []models.DeviceRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, records); err != nil {
		tmp.Close()
		return &WriteError{Path: s.path, Err: err}
	}

	if err := tmp.Close(); err != nil {
		return &WriteError{Path: s.path, Err: err}
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return &WriteError{Path: s.path, Err: err}
	}

	return nil
}

func (s *CSVStore) Clear(ctx context.Context) error {
	return s.Save(ctx, nil)
}

func (s *CSVStore) Close() error {
	return nil
}

// WriteCSV writes the header and one row per record.
func WriteCSV(w io.Writer, records []models.DeviceRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Columns); err != nil {
		return err
	}

	for _, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadCSV parses a table written by WriteCSV. Columns are matched by header
// name; MAC is the only required one.
func ReadCSV(r io.Reader) ([]models.DeviceRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, column := range header {
		index[strings.TrimSpace(column)] = i
	}
	if _, ok := index[columnMAC]; !ok {
		return nil, fmt.Errorf("missing %q column", columnMAC)
	}

	var records []models.DeviceRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		record, err := rowToRecord(row, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}

	return records, nil
}

func recordToRow(record models.DeviceRecord) []string {
	return []string{
		record.MAC,
		record.Name,
		record.Vendor,
		strconv.Itoa(record.RSSI),
		strconv.Itoa(record.MinRSSI),
		strconv.Itoa(record.MaxRSSI),
		strconv.FormatFloat(record.AvgRSSI, 'f', -1, 64),
		strconv.FormatFloat(record.StdDevRSSI, 'f', -1, 64),
		formatTime(record.FirstSeen),
		formatTime(record.LastSeen),
		strconv.FormatInt(int64(record.Duration/time.Second), 10),
		strconv.Itoa(record.Count),
		record.Samples.String(),
	}
}

type rowReader struct {
	row   []string
	index map[string]int
	err   error
}

func (r *rowReader) text(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

func (r *rowReader) intAt(column string) int {
	value := r.text(column)
	if value == "" || r.err != nil {
		return 0
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		r.err = fmt.Errorf("invalid %s %q", column, value)
	}
	return n
}

func (r *rowReader) floatAt(column string) float64 {
	value := r.text(column)
	if value == "" || r.err != nil {
		return 0
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.err = fmt.Errorf("invalid %s %q", column, value)
	}
	return f
}

func (r *rowReader) timeAt(column string) time.Time {
	value := r.text(column)
	if value == "" || r.err != nil {
		return time.Time{}
	}

	t, err := time.ParseInLocation(TIME_LAYOUT, value, time.Local)
	if err != nil {
		r.err = fmt.Errorf("invalid %s %q", column, value)
	}
	return t
}

func rowToRecord(row []string, index map[string]int) (models.DeviceRecord, error) {
	r := &rowReader{row: row, index: index}

	mac, err := models.NormalizeMAC(r.text(columnMAC))
	if err != nil {
		return models.DeviceRecord{}, err
	}

	record := models.DeviceRecord{
		MAC:        mac,
		Name:       r.text(columnName),
		Vendor:     r.text(columnVendor),
		RSSI:       r.intAt(columnRSSI),
		MinRSSI:    r.intAt(columnMin),
		MaxRSSI:    r.intAt(columnMax),
		AvgRSSI:    r.floatAt(columnAvg),
		StdDevRSSI: r.floatAt(columnStdDev),
		FirstSeen:  r.timeAt(columnFirstSeen),
		LastSeen:   r.timeAt(columnLastSeen),
		Duration:   time.Duration(r.intAt(columnDuration)) * time.Second,
		Count:      r.intAt(columnCount),
	}
	if r.err != nil {
		return models.DeviceRecord{}, r.err
	}

	record.Samples, err = models.ParseSamples(r.text(columnSamples))
	if err != nil {
		return models.DeviceRecord{}, err
	}

	return record, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format(TIME_LAYOUT)
}

// Package render prints the device table for the terminal.
package render

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"
	"unicode"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/yanniedog/blueberry/internal/models"
)

const (
	clearScreen = "\x1b[H\x1b[2J"

	strongSignal = -60
	fairSignal   = -70
)

type SortKey string

const (
	SortLastSeen  SortKey = "last_seen"
	SortFirstSeen SortKey = "first_seen"
	SortRSSI      SortKey = "rssi"
	SortMAC       SortKey = "mac"
	SortName      SortKey = "name"
	SortVendor    SortKey = "vendor"
	SortCount     SortKey = "count"
)

var SortKeys = []SortKey{SortLastSeen, SortFirstSeen, SortRSSI, SortMAC, SortName, SortVendor, SortCount}

func ParseSortKey(value string) (SortKey, error) {
	key := SortKey(strings.ToLower(strings.TrimSpace(value)))
	if key == "" {
		return SortLastSeen, nil
	}
	if !slices.Contains(SortKeys, key) {
		return "", fmt.Errorf("unknown sort key %q", value)
	}
	return key, nil
}

// ParseDirection reports whether value asks for descending order.
func ParseDirection(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "desc", "descending":
		return true, nil
	case "asc", "ascending":
		return false, nil
	default:
		return false, fmt.Errorf("unknown sort direction %q", value)
	}
}

type Options struct {
	SortKey     SortKey
	Descending  bool
	Color       bool
	ClearScreen bool
}

// Sort returns a sorted copy of records. Ties are broken by address.
func Sort(records []models.DeviceRecord, key SortKey, descending bool) []models.DeviceRecord {
	sorted := slices.Clone(records)

	slices.SortStableFunc(sorted, func(a, b models.DeviceRecord) int {
		var c int
		switch key {
		case SortFirstSeen:
			c = a.FirstSeen.Compare(b.FirstSeen)
		case SortRSSI:
			c = cmp.Compare(a.RSSI, b.RSSI)
		case SortMAC:
			c = 0
		case SortName:
			c = cmp.Compare(a.Name, b.Name)
		case SortVendor:
			c = cmp.Compare(a.Vendor, b.Vendor)
		case SortCount:
			c = cmp.Compare(a.Count, b.Count)
		default:
			c = a.LastSeen.Compare(b.LastSeen)
		}
		if c == 0 {
			c = cmp.Compare(a.MAC, b.MAC)
		}
		if descending {
			return -c
		}
		return c
	})

	return sorted
}

// Table writes records as an aligned table.
func Table(w io.Writer, records []models.DeviceRecord, opts Options) error {
	if opts.ClearScreen {
		if _, err := io.WriteString(w, clearScreen); err != nil {
			return err
		}
	}

	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No devices recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "LAST SEEN\tMAC\tRSSI\tMIN\tAVG\tMAX\tSTDDEV\tSEEN\tDURATION\tNAME\tMANUFACTURER")
	fmt.Fprintln(tw, "---------\t---\t----\t---\t---\t---\t------\t----\t--------\t----\t------------")

	for _, record := range Sort(records, opts.SortKey, opts.Descending) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f\t%d\t%s\t%s\t%s\n",
			formatTime(record.LastSeen),
			record.MAC,
			colorize(fmt.Sprintf("%d", record.RSSI), float64(record.RSSI), opts.Color),
			colorize(fmt.Sprintf("%d", record.MinRSSI), float64(record.MinRSSI), opts.Color),
			colorize(fmt.Sprintf("%.1f", record.AvgRSSI), record.AvgRSSI, opts.Color),
			colorize(fmt.Sprintf("%d", record.MaxRSSI), float64(record.MaxRSSI), opts.Color),
			record.StdDevRSSI,
			record.Count,
			record.Duration.Round(time.Second),
			cleanText(record.Name),
			cleanText(record.Vendor),
		)
	}

	return tw.Flush()
}

// ColorFor returns the color for an RSSI value: green above -60 dBm,
// yellow above -70 dBm, red otherwise.
func ColorFor(rssi float64) color.Attribute {
	switch {
	case rssi > strongSignal:
		return color.FgGreen
	case rssi > fairSignal:
		return color.FgYellow
	default:
		return color.FgRed
	}
}

// Terminal reports whether w is attached to a terminal. Colors and screen
// clearing are only meant for terminals.
func Terminal(w io.Writer) bool {
	file, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

// Every colored cell carries escape sequences of the same length, so
// tabwriter still aligns the columns.
func colorize(text string, rssi float64, enabled bool) string {
	if !enabled {
		return text
	}

	c := color.New(ColorFor(rssi))
	c.EnableColor()
	return c.Sprint(text)
}

// cleanText replaces control characters from advertised names, which would
// otherwise break the row layout.
func cleanText(text string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, text))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(time.Local).Format("2006-01-02 15:04:05")
}

package classify

import (
	"strings"
	"time"

	"github.com/sigreer/assetpulse/internal/device"
)

// DefaultWindow is how recently a device must have been scanned to count as active
const DefaultWindow = 60 * 24 * time.Hour

// Device pairs a merged record with its activity flag for one run
type Device struct {
	device.Record
	Active bool `json:"active"`
}

// IsActive reports whether r was seen within window of now, or reports any
// tool status at all. Tool status content is not inspected: "Not Installed"
// still counts as present.
func IsActive(r *device.Record, now time.Time, window time.Duration) bool {
	if r.LastSeen != nil && !r.LastSeen.Before(now.Add(-window)) {
		return true
	}
	for _, f := range device.ToolFields {
		if s := r.Tool(f); s != nil && strings.TrimSpace(*s) != "" {
			return true
		}
	}
	return false
}

// Classify flags every record. A zero window means DefaultWindow.
func Classify(records []device.Record, now time.Time, window time.Duration) []Device {
	if window <= 0 {
		window = DefaultWindow
	}
	out := make([]Device, len(records))
	for i := range records {
		out[i] = Device{Record: records[i], Active: IsActive(&records[i], now, window)}
	}
	return out
}

// Active returns the active subset
func Active(devices []Device) []Device {
	var out []Device
	for _, d := range devices {
		if d.Active {
			out = append(out, d)
		}
	}
	return out
}

package canon

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/sigreer/assetpulse/internal/device"
)

// Excel serial day 0
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Largest serial Excel accepts (9999-12-31)
const maxSerial = 2958465

var (
	graceRe        = regexp.MustCompile(`grace`)
	nonCompliantRe = regexp.MustCompile(`non[-\s]?compliant|fail|out[-\s]?of[-\s]?compl`)
	compliantRe    = regexp.MustCompile(`compliant|pass`)
)

var truthy = map[string]bool{"true": true, "1": true, "yes": true, "y": true}

// Text renders a raw cell as trimmed text
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(device.TimeLayout)
	}
	if f, ok := number(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

// number converts Go numeric cell values to float64
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case uint32:
		return float64(x), true
	}
	return 0, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// NormalizeText returns trimmed text, or nil when blank
func NormalizeText(v any) *string {
	s := Text(v)
	if s == "" {
		return nil
	}
	return &s
}

// SerialToTime converts an Excel serial day count; fractions are dropped
func SerialToTime(serial float64) (time.Time, bool) {
	if !finite(serial) || math.Abs(serial) > maxSerial {
		return time.Time{}, false
	}
	return excelEpoch.AddDate(0, 0, int(serial)), true
}

// NormalizeDate interprets numbers (and numeric text in serial range) as Excel
// serial days and anything else as free-form date text. Unparseable input
// yields nil.
func NormalizeDate(v any) *time.Time {
	if t, ok := v.(time.Time); ok {
		return &t
	}
	if f, ok := number(v); ok {
		if t, ok := SerialToTime(f); ok {
			return &t
		}
		return nil
	}

	s := Text(v)
	if s == "" {
		return nil
	}
	// compact dates like 20251104 are numeric but out of serial range
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if t, ok := SerialToTime(f); ok {
			return &t
		}
	}
	return parseDateText(s)
}

func parseDateText(s string) (out *time.Time) {
	// dateparse has panicked on malformed input in the past
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// NormalizePercent strips a trailing "%" and parses the rest as a number
func NormalizePercent(v any) *float64 {
	if f, ok := number(v); ok {
		if !finite(f) {
			return nil
		}
		return &f
	}
	s := strings.TrimSpace(strings.TrimSuffix(Text(v), "%"))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(f) {
		return nil
	}
	return &f
}

// NormalizeBool tests membership in {true, 1, yes, y}
func NormalizeBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	if f, ok := number(v); ok {
		return f == 1
	}
	return truthy[strings.ToLower(Text(v))]
}

// NormalizeStatus buckets free-text compliance status. Grace is checked first
// since some sources combine tokens ("compliant - grace period").
// Unrecognized text is kept as-is.
func NormalizeStatus(v any) *string {
	raw := Text(v)
	if raw == "" {
		return nil
	}
	s := strings.ToLower(raw)
	switch {
	case graceRe.MatchString(s):
		return device.StrPtr(device.StatusGracePeriod)
	case nonCompliantRe.MatchString(s):
		return device.StrPtr(device.StatusNonCompliant)
	case compliantRe.MatchString(s):
		return device.StrPtr(device.StatusCompliant)
	}
	return &raw
}

// setters apply a raw cell to the matching record field
var setters = map[device.Field]func(*device.Record, any){
	device.FieldHostname: func(r *device.Record, v any) {
		r.Hostname = Text(v)
	},
	device.FieldOS:               func(r *device.Record, v any) { r.OS = NormalizeText(v) },
	device.FieldDeviceType:       func(r *device.Record, v any) { r.DeviceType = NormalizeText(v) },
	device.FieldComplianceStatus: func(r *device.Record, v any) { r.ComplianceStatus = NormalizeStatus(v) },
	device.FieldLastSeen:         func(r *device.Record, v any) { r.LastSeen = NormalizeDate(v) },
	device.FieldPercentPassing:   func(r *device.Record, v any) { r.PercentPassing = NormalizePercent(v) },
	device.FieldEndOfLife: func(r *device.Record, v any) {
		b := NormalizeBool(v)
		r.EndOfLife = &b
	},
	device.FieldCrowdstrikeStatus: func(r *device.Record, v any) { r.CrowdstrikeStatus = NormalizeText(v) },
	device.FieldTaniumStatus:      func(r *device.Record, v any) { r.TaniumStatus = NormalizeText(v) },
	device.FieldJamfStatus:        func(r *device.Record, v any) { r.JamfStatus = NormalizeText(v) },
}

// Set normalizes a raw value for field and stores it on r
func Set(r *device.Record, field device.Field, v any) {
	if set, ok := setters[field]; ok {
		set(r, v)
	}
}

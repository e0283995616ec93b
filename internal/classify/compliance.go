package classify

import (
	"regexp"
	"strings"

	"github.com/sigreer/assetpulse/internal/device"
)

// Device type buckets; a type may fall in both
var (
	workstationRe = regexp.MustCompile(`(?i)workstation|laptop|desktop`)
	serverRe      = regexp.MustCompile(`(?i)server`)
	toolMissingRe = regexp.MustCompile(`(?i)missing|not\s*installed`)
)

// Compliance returns the canonical bucket of a record's status, or "" when
// the status is absent or was not recognized during normalization.
func Compliance(r *device.Record) string {
	if r.ComplianceStatus == nil {
		return ""
	}
	s := strings.ToLower(strings.TrimSpace(*r.ComplianceStatus))
	switch s {
	case device.StatusCompliant, device.StatusNonCompliant, device.StatusGracePeriod:
		return s
	}
	return ""
}

// IsWorkstation matches workstation, laptop or desktop device types
func IsWorkstation(r *device.Record) bool {
	return r.DeviceType != nil && workstationRe.MatchString(*r.DeviceType)
}

// IsServer matches server device types
func IsServer(r *device.Record) bool {
	return r.DeviceType != nil && serverRe.MatchString(*r.DeviceType)
}

// ToolMissing reports whether the tool field is empty or says the agent is
// missing / not installed.
func ToolMissing(r *device.Record, f device.Field) bool {
	s := r.Tool(f)
	if s == nil || strings.TrimSpace(*s) == "" {
		return true
	}
	return toolMissingRe.MatchString(*s)
}

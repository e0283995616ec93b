package device

import (
	"strings"
	"time"
)

// Field names a canonical device attribute
type Field string

// Canonical fields. The string values double as asset_history column names.
const (
	FieldHostname          Field = "hostname"
	FieldOS                Field = "os"
	FieldDeviceType        Field = "deviceType"
	FieldComplianceStatus  Field = "complianceStatus"
	FieldLastSeen          Field = "lastSeen"
	FieldPercentPassing    Field = "percentPassing"
	FieldEndOfLife         Field = "endOfLife"
	FieldCrowdstrikeStatus Field = "crowdstrikeStatus"
	FieldTaniumStatus      Field = "taniumStatus"
	FieldJamfStatus        Field = "jamfStatus"
)

// Fields lists every canonical field in storage column order
var Fields = []Field{
	FieldHostname,
	FieldOS,
	FieldDeviceType,
	FieldComplianceStatus,
	FieldLastSeen,
	FieldPercentPassing,
	FieldEndOfLife,
	FieldCrowdstrikeStatus,
	FieldTaniumStatus,
	FieldJamfStatus,
}

// ToolFields are the management/security tool status fields
var ToolFields = []Field{FieldCrowdstrikeStatus, FieldTaniumStatus, FieldJamfStatus}

// ParseField resolves a field name case-insensitively
func ParseField(name string) (Field, bool) {
	for _, f := range Fields {
		if strings.EqualFold(string(f), strings.TrimSpace(name)) {
			return f, true
		}
	}
	return "", false
}

// Compliance buckets produced by the status classifier
const (
	StatusCompliant    = "compliant"
	StatusNonCompliant = "non-compliant"
	StatusGracePeriod  = "grace period"
)

// TimeLayout is the ISO-8601 form used for LastSeen in storage and output
const TimeLayout = "2006-01-02T15:04:05"

// Record is one canonicalized device row. Nil pointers mean absent.
type Record struct {
	Hostname          string     `json:"hostname"`
	OS                *string    `json:"os,omitempty"`
	DeviceType        *string    `json:"deviceType,omitempty"`
	ComplianceStatus  *string    `json:"complianceStatus,omitempty"`
	LastSeen          *time.Time `json:"lastSeen,omitempty"`
	PercentPassing    *float64   `json:"percentPassing,omitempty"`
	EndOfLife         *bool      `json:"endOfLife,omitempty"`
	CrowdstrikeStatus *string    `json:"crowdstrikeStatus,omitempty"`
	TaniumStatus      *string    `json:"taniumStatus,omitempty"`
	JamfStatus        *string    `json:"jamfStatus,omitempty"`
}

// Score is the completeness score: the number of non-absent canonical fields
func (r *Record) Score() int {
	n := 0
	if r.Hostname != "" {
		n++
	}
	for _, s := range []*string{r.OS, r.DeviceType, r.ComplianceStatus, r.CrowdstrikeStatus, r.TaniumStatus, r.JamfStatus} {
		if s != nil && *s != "" {
			n++
		}
	}
	if r.LastSeen != nil {
		n++
	}
	if r.PercentPassing != nil {
		n++
	}
	if r.EndOfLife != nil {
		n++
	}
	return n
}

// Tool returns the status text of a tool field, or nil for non-tool fields
func (r *Record) Tool(f Field) *string {
	switch f {
	case FieldCrowdstrikeStatus:
		return r.CrowdstrikeStatus
	case FieldTaniumStatus:
		return r.TaniumStatus
	case FieldJamfStatus:
		return r.JamfStatus
	}
	return nil
}

// IsEOL reports whether the device was flagged end-of-life
func (r *Record) IsEOL() bool {
	return r.EndOfLife != nil && *r.EndOfLife
}

// LastSeenISO formats LastSeen, or returns "" when absent
func (r *Record) LastSeenISO() string {
	if r.LastSeen == nil {
		return ""
	}
	return r.LastSeen.Format(TimeLayout)
}

// Summary is the point-in-time statistics row for one run date
type Summary struct {
	TotalDevices        int     `json:"total_devices"`
	ActiveDevices       int     `json:"active_devices"`
	CompliantDevices    int     `json:"compliant_devices"`
	NoncompliantDevices int     `json:"noncompliant_devices"`
	GraceDevices        int     `json:"grace_devices"`
	CompliancePct       float64 `json:"compliance_pct"`
	Workstations        int     `json:"workstations"`
	Servers             int     `json:"servers"`
	EOLDevices          int     `json:"eol_devices"`
	CSMissing           int     `json:"cs_missing"`
	TaniumMissing       int     `json:"tanium_missing"`
	JamfMissing         int     `json:"jamf_missing"`
}

// StrPtr returns a pointer to s
func StrPtr(s string) *string { return &s }

package canon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sigreer/assetpulse/internal/device"
)

// Rule maps column headers matching Pattern onto a canonical field
type Rule struct {
	Pattern *regexp.Regexp
	Field   device.Field
}

// NewRule compiles a header pattern. Matching is case-insensitive and
// anchored to the whole header. Whitespace in the pattern is rewritten to "_"
// the same way headers are, so "device name" matches "Device Name".
func NewRule(pattern string, field device.Field) (Rule, error) {
	re, err := regexp.Compile(`(?i)^(?:` + NormalizeHeader(pattern) + `)$`)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid column pattern %q: %w", pattern, err)
	}
	return Rule{Pattern: re, Field: field}, nil
}

func mustRule(pattern string, field device.Field) Rule {
	r, err := NewRule(pattern, field)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRules is the built-in header table, in priority order.
// New source formats are supported by appending rules, never by reordering.
var DefaultRules = []Rule{
	mustRule(`host.?name|computer|machine|asset_?name`, device.FieldHostname),
	mustRule(`(normalized_)?os(_platform|_name)?`, device.FieldOS),
	mustRule(`(system|device)_type`, device.FieldDeviceType),
	mustRule(`endpoint_?compliance`, device.FieldComplianceStatus),
	mustRule(`compliance_?last_?scan(_date)?`, device.FieldLastSeen),
	mustRule(`(percent|%).*passing.*|passing_?%`, device.FieldPercentPassing),
	mustRule(`end_?of_?life`, device.FieldEndOfLife),
	mustRule(`crowdstrike_?status`, device.FieldCrowdstrikeStatus),
	mustRule(`tanium_?status`, device.FieldTaniumStatus),
	mustRule(`jamf_?status`, device.FieldJamfStatus),
}

var spaceRun = regexp.MustCompile(`\s+`)

// NormalizeHeader trims a header and turns inner whitespace runs into "_"
func NormalizeHeader(h string) string {
	return spaceRun.ReplaceAllString(strings.TrimSpace(h), "_")
}

// Mapper resolves raw column headers to canonical fields
type Mapper struct {
	rules []Rule
}

// NewMapper builds a mapper over the default rules followed by extra
func NewMapper(extra ...Rule) *Mapper {
	rules := make([]Rule, 0, len(DefaultRules)+len(extra))
	rules = append(rules, DefaultRules...)
	rules = append(rules, extra...)
	return &Mapper{rules: rules}
}

// Rules returns the effective rule table in priority order
func (m *Mapper) Rules() []Rule {
	return m.rules
}

// Match returns the field of the first rule matching the header
func (m *Mapper) Match(header string) (device.Field, bool) {
	h := NormalizeHeader(header)
	for _, r := range m.rules {
		if r.Pattern.MatchString(h) {
			return r.Field, true
		}
	}
	return "", false
}

// Map returns original header -> canonical field for every header that
// matches a rule. Unmatched headers are absent from the result.
func (m *Mapper) Map(headers []string) map[string]device.Field {
	out := make(map[string]device.Field)
	for _, h := range headers {
		if f, ok := m.Match(h); ok {
			out[h] = f
		}
	}
	return out
}

// Bind returns canonical field -> column index. When several columns map to
// the same field the last one wins.
func (m *Mapper) Bind(headers []string) map[device.Field]int {
	out := make(map[device.Field]int)
	for i, h := range headers {
		if f, ok := m.Match(h); ok {
			out[f] = i
		}
	}
	return out
}

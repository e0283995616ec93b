package summary

import (
	"math"

	"github.com/sigreer/assetpulse/internal/classify"
	"github.com/sigreer/assetpulse/internal/device"
)

// Compute reduces a classified device set to its summary.
//
// TotalDevices counts every device; all other counts cover active devices
// only. present lists the tool fields that had a column in at least one
// source sheet; a tool absent from every source reports 0 missing rather
// than every device missing. A nil present map treats all tools as present.
func Compute(devices []classify.Device, present map[device.Field]bool) device.Summary {
	s := device.Summary{TotalDevices: len(devices)}

	toolPresent := func(f device.Field) bool {
		return present == nil || present[f]
	}

	for i := range devices {
		d := &devices[i]
		if !d.Active {
			continue
		}
		s.ActiveDevices++

		switch classify.Compliance(&d.Record) {
		case device.StatusCompliant:
			s.CompliantDevices++
		case device.StatusNonCompliant:
			s.NoncompliantDevices++
		case device.StatusGracePeriod:
			s.GraceDevices++
		}

		if classify.IsWorkstation(&d.Record) {
			s.Workstations++
		}
		if classify.IsServer(&d.Record) {
			s.Servers++
		}
		if d.IsEOL() {
			s.EOLDevices++
		}

		if toolPresent(device.FieldCrowdstrikeStatus) && classify.ToolMissing(&d.Record, device.FieldCrowdstrikeStatus) {
			s.CSMissing++
		}
		if toolPresent(device.FieldTaniumStatus) && classify.ToolMissing(&d.Record, device.FieldTaniumStatus) {
			s.TaniumMissing++
		}
		if toolPresent(device.FieldJamfStatus) && classify.ToolMissing(&d.Record, device.FieldJamfStatus) {
			s.JamfMissing++
		}
	}

	s.CompliancePct = Percent(s.CompliantDevices, s.ActiveDevices)
	return s
}

// Percent returns part/whole*100 rounded to 2 decimals, 0 when whole is 0
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}

package merge

import (
	"sort"

	"github.com/sigreer/assetpulse/internal/device"
)

// Deduplicate folds records into one per hostname, keeping the most complete.
//
// Records without a hostname are dropped. Completeness is device.Record.Score.
// On equal scores the record seen first wins, so callers control ties through
// input order. The result is sorted by hostname.
func Deduplicate(records []device.Record) []device.Record {
	best := make(map[string]int, len(records))
	scores := make(map[string]int, len(records))
	var out []device.Record

	for _, r := range records {
		if r.Hostname == "" {
			continue
		}
		score := r.Score()
		idx, seen := best[r.Hostname]
		if !seen {
			best[r.Hostname] = len(out)
			scores[r.Hostname] = score
			out = append(out, r)
			continue
		}
		if score > scores[r.Hostname] {
			out[idx] = r
			scores[r.Hostname] = score
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Hostname < out[j].Hostname })
	return out
}

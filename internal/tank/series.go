package tank

import (
	"sort"
	"time"

	"github.com/41vi4p/TankLens/internal/models"
)

// Merge folds one freshly fetched reading into a chronologically sorted
// history. The reading is appended only when strictly newer than the last
// entry, so redundant fetches of the same sample are no-ops. The result is
// re-sorted and de-duplicated by exact timestamp as a safety net for
// unioning independently sourced series (persisted history vs live feed).
func Merge(history []models.Reading, latest models.Reading) []models.Reading {
	merged := make([]models.Reading, len(history))
	copy(merged, history)

	if len(merged) == 0 || latest.Timestamp.After(merged[len(merged)-1].Timestamp) {
		merged = append(merged, latest)
	}

	return Dedupe(merged)
}

// Dedupe sorts a series by timestamp and collapses entries with identical
// timestamps, keeping the first occurrence. The sort is stable so "first"
// means first in the input order.
func Dedupe(readings []models.Reading) []models.Reading {
	out := make([]models.Reading, len(readings))
	copy(out, readings)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	deduped := out[:0]
	for _, r := range out {
		if len(deduped) > 0 && r.Timestamp.Equal(deduped[len(deduped)-1].Timestamp) {
			continue
		}
		deduped = append(deduped, r)
	}
	return deduped
}

// FilterWindow returns the subsequence of readings with a timestamp at or
// after now minus the window. An empty result is valid and distinct from a
// fetch failure: the caller gets an empty slice, never an error.
func FilterWindow(readings []models.Reading, w models.Window, now time.Time) []models.Reading {
	cutoff := now.Add(-w.Duration())
	out := make([]models.Reading, 0, len(readings))
	for _, r := range readings {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

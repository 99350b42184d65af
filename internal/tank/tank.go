// Package tank holds the data-shaping rules for water-tank readings:
// freshness classification, raw-sample normalization, history merging,
// time-window filtering and volume derivation. Everything here is pure;
// the service layer supplies the data and persists the results.
package tank

import (
	"math"
	"time"

	"github.com/41vi4p/TankLens/internal/models"
)

// onlineWindow is the freshness threshold for a device's latest sample.
// A sample exactly this old still counts as online.
const onlineWindow = 30 * time.Second

// IsOnline reports whether a producer-supplied timestamp (unix seconds)
// is within the freshness window of now. Malformed or non-positive
// timestamps classify as offline rather than erroring.
func IsOnline(ts int64, now time.Time) bool {
	if ts <= 0 {
		return false
	}
	age := now.UnixMilli() - ts*1000
	return age <= onlineWindow.Milliseconds()
}

// Normalize converts a raw sensor sample into a canonical reading. A nil
// sample (device has never reported) yields a synthetic offline reading
// with level zero. When the sample is stale the reported status is
// overridden with offline regardless of what the device claimed.
func Normalize(sample *models.RawSample, now time.Time) models.Reading {
	if sample == nil {
		return models.Reading{Timestamp: now, Level: 0, Status: models.StatusOffline}
	}

	status := models.StatusOffline
	if IsOnline(sample.Timestamp, now) {
		status = models.ReadingStatus(sample.Status)
		switch status {
		case models.StatusMeasured, models.StatusEstimated:
		default:
			status = models.StatusMeasured
		}
	}

	ts := now
	if sample.Timestamp > 0 {
		ts = time.Unix(sample.Timestamp, 0).UTC()
	}

	return models.Reading{
		Timestamp: ts,
		Level:     roundLevel(sample.WaterLevel),
		Status:    status,
	}
}

// Volume converts a level percentage and a tank capacity into liters.
func Volume(level, maxCapacityLiters float64) int64 {
	return int64(math.Round(level / 100 * maxCapacityLiters))
}

// roundLevel rounds a percentage to one decimal place.
func roundLevel(level float64) float64 {
	return math.Round(level*10) / 10
}

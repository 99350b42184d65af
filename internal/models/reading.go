package models

import "time"

// ReadingStatus tags how a water-level value was obtained.
type ReadingStatus string

const (
	StatusMeasured  ReadingStatus = "measured"
	StatusEstimated ReadingStatus = "estimated"
	StatusOffline   ReadingStatus = "offline"
)

// Reading is one timestamped water-level observation. Level is a
// percentage in [0,100], rounded to one decimal place.
type Reading struct {
	Timestamp time.Time     `json:"timestamp"`
	Level     float64       `json:"level"`
	Status    ReadingStatus `json:"status"`
}

// RawSample is the payload a sensor reports into the realtime store.
// Timestamp is unix seconds as produced by the device clock.
type RawSample struct {
	DeviceID   string  `json:"deviceId,omitempty"`
	WaterLevel float64 `json:"waterLevel"`
	Distance   float64 `json:"distance"`
	Timestamp  int64   `json:"timestamp"`
	Status     string  `json:"status,omitempty"`
	Interval   int     `json:"interval,omitempty"`
}

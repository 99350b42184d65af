package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/41vi4p/TankLens/internal/models"
)

const historyMeasurement = "tank_level"

// InfluxHistory stores the per-device reading series in InfluxDB. One
// point per reading: tag device_id, fields level and status. Writing a
// point at an existing timestamp overwrites it, which is exactly what
// calibration needs.
type InfluxHistory struct {
	client influxdb2.Client
	org    string
	bucket string
}

// NewInfluxHistory creates a history store for one org/bucket.
func NewInfluxHistory(url, token, org, bucket string) *InfluxHistory {
	client := influxdb2.NewClient(url, token)
	return &InfluxHistory{
		client: client,
		org:    org,
		bucket: bucket,
	}
}

// Health checks the connection, matching the startup probe the server does
// for the SQL pool.
func (h *InfluxHistory) Health(ctx context.Context) error {
	health, err := h.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("influx health: %w", err)
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influx health check failed: %s", msg)
	}
	return nil
}

// Close releases the underlying HTTP client.
func (h *InfluxHistory) Close() {
	h.client.Close()
}

// WriteReading appends (or overwrites, on timestamp collision) one reading.
func (h *InfluxHistory) WriteReading(ctx context.Context, deviceID string, reading models.Reading) error {
	writeAPI := h.client.WriteAPIBlocking(h.org, h.bucket)

	p := influxdb2.NewPoint(
		historyMeasurement,
		map[string]string{"device_id": deviceID},
		map[string]interface{}{
			"level":  reading.Level,
			"status": string(reading.Status),
		},
		reading.Timestamp,
	)

	if err := writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write reading for %s: %w", deviceID, err)
	}
	return nil
}

// QueryReadings returns the device's series from `since` onward, sorted by
// time ascending. A zero since means the whole series.
func (h *InfluxHistory) QueryReadings(ctx context.Context, deviceID string, since time.Time) ([]models.Reading, error) {
	queryAPI := h.client.QueryAPI(h.org)

	start := "0"
	if !since.IsZero() {
		start = since.UTC().Format(time.RFC3339)
	}

	fluxQuery := fmt.Sprintf(`
from(bucket: "%s")
	|> range(start: %s)
	|> filter(fn: (r) => r["_measurement"] == "%s")
	|> filter(fn: (r) => r["device_id"] == "%s")
	|> pivot(rowKey: ["_time"], columnKey: ["_field"], valueColumn: "_value")
	|> sort(columns: ["_time"])`,
		h.bucket, start, historyMeasurement, deviceID)

	result, err := queryAPI.Query(ctx, fluxQuery)
	if err != nil {
		return nil, fmt.Errorf("query readings for %s: %w", deviceID, err)
	}

	readings := []models.Reading{}
	for result.Next() {
		record := result.Record()

		r := models.Reading{Timestamp: record.Time()}
		if level, ok := record.ValueByKey("level").(float64); ok {
			r.Level = level
		}
		if status, ok := record.ValueByKey("status").(string); ok {
			r.Status = models.ReadingStatus(status)
		} else {
			r.Status = models.StatusMeasured
		}
		readings = append(readings, r)
	}
	if result.Err() != nil {
		return nil, fmt.Errorf("query readings for %s: %w", deviceID, result.Err())
	}

	return readings, nil
}

// DeleteReadings drops the whole series for a device, used when the device
// itself is deleted.
func (h *InfluxHistory) DeleteReadings(ctx context.Context, deviceID string) error {
	deleteAPI := h.client.DeleteAPI()

	org, err := h.client.OrganizationsAPI().FindOrganizationByName(ctx, h.org)
	if err != nil {
		return fmt.Errorf("find org %s: %w", h.org, err)
	}
	bucket, err := h.client.BucketsAPI().FindBucketByName(ctx, h.bucket)
	if err != nil {
		return fmt.Errorf("find bucket %s: %w", h.bucket, err)
	}

	predicate := fmt.Sprintf(`_measurement="%s" AND device_id="%s"`, historyMeasurement, deviceID)
	err = deleteAPI.Delete(ctx, org, bucket, time.Unix(0, 0), time.Now().UTC(), predicate)
	if err != nil {
		return fmt.Errorf("delete readings for %s: %w", deviceID, err)
	}
	log.Printf("history cleared for device %s", deviceID)
	return nil
}

// tanksim simulates a fleet of ultrasonic tank sensors reporting raw
// samples to the ingest endpoint. Useful for exercising the sync pipeline
// and the dashboard without hardware.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/41vi4p/TankLens/internal/middleware"
	"github.com/41vi4p/TankLens/internal/models"
)

const tankDepthCm = 200.0

func main() {
	server := flag.String("server", "http://localhost:8081", "TankLens server base URL")
	token := flag.String("token", "", "device ingest token")
	count := flag.Int("devices", 3, "number of simulated devices")
	interval := flag.Duration("interval", 10*time.Second, "reporting interval")
	ids := flag.String("ids", "", "comma-separated device ids (overrides -devices)")
	flag.Parse()

	if *token == "" {
		log.Fatal("a device ingest token is required (-token)")
	}

	deviceIDs := []string{}
	if *ids != "" {
		deviceIDs = strings.Split(*ids, ",")
	} else {
		for i := 0; i < *count; i++ {
			deviceIDs = append(deviceIDs, fmt.Sprintf("SIM_%s", uuid.NewString()[:8]))
		}
	}
	log.Printf("simulating %d devices: %s", len(deviceIDs), strings.Join(deviceIDs, ", "))

	client := resty.New().
		SetBaseURL(*server).
		SetHeader(middleware.DeviceTokenHeader, *token)

	levels := make(map[string]float64, len(deviceIDs))
	for _, id := range deviceIDs {
		levels[id] = 20 + rand.Float64()*60
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		for _, id := range deviceIDs {
			levels[id] = drift(levels[id])
			sample := models.RawSample{
				DeviceID:   id,
				WaterLevel: levels[id],
				Distance:   (100 - levels[id]) / 100 * tankDepthCm,
				Timestamp:  time.Now().Unix(),
				Status:     string(models.StatusMeasured),
				Interval:   int(interval.Seconds()),
			}

			resp, err := client.R().SetBody(sample).Post("/ingest")
			if err != nil {
				log.Printf("device %s: report failed: %v", id, err)
				continue
			}
			if resp.IsError() {
				log.Printf("device %s: server said %s: %s", id, resp.Status(), resp.Body())
				continue
			}
			log.Printf("device %s: level %.1f%%", id, sample.WaterLevel)
		}
		<-ticker.C
	}
}

// drift moves a level by a small random step, clamped to [0,100]. Tanks
// drain slowly and refill occasionally.
func drift(level float64) float64 {
	step := -rand.Float64() * 2
	if rand.Float64() < 0.05 {
		step = rand.Float64() * 40
	}
	level += step
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

const (
	// Measurement is the influx measurement every log row is written to.
	Measurement = "spot_log"

	defaultInfluxBatch = 5000
)

var ErrInfluxUnavailable = errors.New("storage: influxdb did not answer ping")

// InfluxConfig locates the bucket runs are written to.
type InfluxConfig struct {
	URL       string
	Token     string
	Org       string
	Bucket    string
	BatchSize int
}

// Influx writes each log row as one point, timestamped from the run start.
type Influx struct {
	client influxdb2.Client
	cfg    InfluxConfig
	logger zerolog.Logger
}

// OpenInflux connects and pings the server.
func OpenInflux(ctx context.Context, cfg InfluxConfig, log zerolog.Logger) (*Influx, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultInfluxBatch
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetBatchSize(uint(cfg.BatchSize)))

	running, err := client.Ping(ctx)
	if err != nil || !running {
		client.Close()
		if err == nil {
			err = ErrInfluxUnavailable
		}
		return nil, fmt.Errorf("connecting to influxdb at %s: %w", cfg.URL, err)
	}

	log = log.With().Str("component", "influx").Logger()
	log.Info().Str("url", cfg.URL).Str("bucket", cfg.Bucket).Msg("influxdb log backend ready")
	return &Influx{client: client, cfg: cfg, logger: log}, nil
}

func (x *Influx) Name() string { return "influx" }

func (x *Influx) Write(ctx context.Context, meta RunMetadata, t Table) error {
	points := Points(meta, t)
	writer := x.client.WriteAPIBlocking(x.cfg.Org, x.cfg.Bucket)
	for start := 0; start < len(points); start += x.cfg.BatchSize {
		end := min(start+x.cfg.BatchSize, len(points))
		if err := writer.WritePoint(ctx, points[start:end]...); err != nil {
			return err
		}
	}
	x.logger.Info().Str("run", meta.ID).Int("points", len(points)).Msg("run written to influxdb")
	return nil
}

func (x *Influx) Close() { x.client.Close() }

// Points converts a table into one point per row. The time column becomes
// the point timestamp and NaN cells are dropped.
func Points(meta RunMetadata, t Table) []*influxdb2_write.Point {
	tags := map[string]string{"run": meta.ID, "mode": meta.Mode}
	times := t.Data["time"]
	points := make([]*influxdb2_write.Point, 0, t.Rows)
	for i := 0; i < t.Rows; i++ {
		fields := make(map[string]interface{}, len(t.Columns))
		for _, c := range t.Columns {
			if c == "time" {
				continue
			}
			if v := t.Data[c][i]; !math.IsNaN(v) {
				fields[c] = v
			}
		}
		var offset time.Duration
		if times != nil {
			offset = time.Duration(times[i] * float64(time.Second))
		}
		points = append(points, influxdb2.NewPoint(Measurement, tags, fields, meta.Timestamp.Add(offset)))
	}
	return points
}

package sink

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "github.com/influxdata/influxdb1-client" // this is important because of the bug in go mod
	client "github.com/influxdata/influxdb1-client/v2"
	"go.uber.org/zap"

	"github.com/crashhook/sdk-go/event"
)

const (
	EnvInfluxDBAddr = "INFLUXDB_ADDR"

	DefaultInfluxDatabase    = "crashhook"
	DefaultInfluxMeasurement = "crash_events"
)

var (
	InfluxBatchLength   = 128
	InfluxBatchInterval = 1 * time.Second
)

type InfluxConfig struct {
	// Addr defaults to $INFLUXDB_ADDR.
	Addr        string
	Database    string
	Measurement string

	// Tags are added to every point.
	Tags map[string]string
}

// InfluxTransport records one point per event, carrying its level,
// exception type and mechanism as tags. Points are written in batches.
type InfluxTransport struct {
	cfg     InfluxConfig
	batcher *batcher
}

var (
	_ Transport = (*InfluxTransport)(nil)
	_ Flusher   = (*InfluxTransport)(nil)
)

func NewInfluxTransport(cfg InfluxConfig, logger *zap.Logger) (*InfluxTransport, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = os.Getenv(EnvInfluxDBAddr)
	}
	if addr == "" {
		return nil, fmt.Errorf("no InfluxDB address in $%s env var", EnvInfluxDBAddr)
	}

	c, err := client.NewHTTPClient(client.HTTPConfig{Addr: addr, Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	return newInfluxTransport(c, cfg, logger), nil
}

func newInfluxTransport(c client.Client, cfg InfluxConfig, logger *zap.Logger) *InfluxTransport {
	if cfg.Database == "" {
		cfg.Database = DefaultInfluxDatabase
	}
	if cfg.Measurement == "" {
		cfg.Measurement = DefaultInfluxMeasurement
	}
	return &InfluxTransport{
		cfg:     cfg,
		batcher: newBatcher(c, cfg.Database, logger, InfluxBatchLength, InfluxBatchInterval),
	}
}

func (t *InfluxTransport) Send(ev *event.Event) error {
	tags := make(map[string]string, len(t.cfg.Tags)+6)
	for k, v := range t.cfg.Tags {
		tags[k] = v
	}
	tags["level"] = string(ev.Level)
	tags["platform"] = ev.Platform
	if ev.Release != "" {
		tags["release"] = ev.Release
	}
	if ev.Environment != "" {
		tags["environment"] = ev.Environment
	}
	if len(ev.Exception) > 0 {
		ex := ev.Exception[len(ev.Exception)-1]
		tags["exception"] = ex.Type
		if ex.Mechanism != nil {
			tags["mechanism"] = ex.Mechanism.Type
		}
	}

	fields := map[string]interface{}{
		"count":       1,
		"breadcrumbs": len(ev.Breadcrumbs),
		"attachments": len(ev.Attachments),
	}

	p, err := client.NewPoint(t.cfg.Measurement, tags, fields, ev.Timestamp)
	if err != nil {
		return err
	}
	t.batcher.WritePoint(p)
	return nil
}

func (t *InfluxTransport) Flush(ctx context.Context) error {
	return t.batcher.Flush(ctx)
}

func (t *InfluxTransport) Close() error {
	return t.batcher.Close()
}

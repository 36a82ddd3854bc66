// Package tsdb is the optional InfluxDB sink for operation metrics:
// one point per completed or failed BridgeOperation, recording its
// latency and outcome. Purely observational — nothing in the bridge
// reads these points back.
package tsdb

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/hamh-bridge/internal/model"
)

const defaultConnectTimeout = 10 * time.Second

// Config describes how to reach the InfluxDB server.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Client is a non-blocking, batched InfluxDB writer for operation
// metrics.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

// Connect pings the server and returns a Client with a batched,
// asynchronous write API.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()
	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("tsdb: ping failed: %w", err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("tsdb: server not healthy")
	}

	return &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
	}, nil
}

// Close flushes pending writes and closes the connection.
func (c *Client) Close() {
	c.writeAPI.Flush()
	c.client.Close()
}

// WriteOperationMetric records the latency and outcome of one finished
// BridgeOperation.
func (c *Client) WriteOperationMetric(op model.BridgeOperation) {
	if op.StartedAt == nil || op.FinishedAt == nil {
		return
	}
	latency := op.FinishedAt.Sub(*op.StartedAt)

	point := write.NewPoint(
		"bridge_operation",
		map[string]string{
			"bridge_id": op.BridgeID,
			"op_type":   string(op.OpType),
			"status":    string(op.Status),
		},
		map[string]interface{}{
			"latency_ms": float64(latency.Milliseconds()),
		},
		*op.FinishedAt,
	)
	c.writeAPI.WritePoint(point)
}

// WriteQueueDepth records the number of operations currently queued.
func (c *Client) WriteQueueDepth(depth int) {
	point := write.NewPoint(
		"operation_queue",
		nil,
		map[string]interface{}{"depth": depth},
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}

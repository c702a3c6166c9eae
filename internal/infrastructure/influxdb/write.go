package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteExportRun writes counters for a completed export run.
//
// This is the primary method for recording export statistics over time,
// which makes graph growth and skip rates visible in dashboards.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - runID: The export run identifier
//   - kind: The export kind ("instances" or "schema")
//   - status: Final run status ("completed" or "failed")
//   - fields: Run counters (devices, entities, triples, duration_seconds, ...)
//
// Example:
//
//	client.WriteExportRun(run.ID, "instances", "completed", map[string]interface{}{
//	    "devices": 12, "entities": 87, "triples": 1430,
//	})
func (c *Client) WriteExportRun(runID string, kind string, status string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"export_runs",
		map[string]string{
			"run_id": runID,
			"kind":   kind,
			"status": status,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSourceLatency records how long a Home Assistant API call took.
//
// Used for tracking responsiveness of the REST and WebSocket endpoints
// that export runs depend on.
//
// Parameters:
//   - endpoint: The API surface queried (e.g., "states", "template", "config")
//   - seconds: Observed round-trip time
func (c *Client) WriteSourceLatency(endpoint string, seconds float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"source_latency",
		map[string]string{
			"endpoint": endpoint,
		},
		map[string]interface{}{
			"seconds": seconds,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "howl-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}

// Package export orchestrates knowledge-graph export runs.
//
// A run walks the connected Home Assistant installation through the
// convert engine, serializes the resulting graph to Turtle and persists
// it as a row in the exports table. Completed runs are announced over
// MQTT and their counters recorded in InfluxDB when those integrations
// are configured.
//
// Runs execute one at a time: the graph walk hammers the Home Assistant
// API with template queries, and overlapping walks would double that
// load for no benefit.
package export

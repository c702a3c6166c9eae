package mqtt

import "fmt"

// Topic prefixes for the HOWL broker surface.
//
// All topics use the flat scheme: howl/{category}/...
const (
	// TopicPrefix is the base for all HOWL topics.
	TopicPrefix = "howl"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "howl/system"
)

// Topics provides builders for HOWL MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.ExportRun("6a1f...")
//	// Returns: "howl/exports/6a1f..."
type Topics struct{}

// Exports returns the topic export run announcements are published on.
//
// Example: howl/exports
func (Topics) Exports() string {
	return fmt.Sprintf("%s/exports", TopicPrefix)
}

// ExportRun returns the per-run announcement topic.
//
// Example: howl/exports/6a1f0b2c
func (Topics) ExportRun(runID string) string {
	return fmt.Sprintf("%s/exports/%s", TopicPrefix, runID)
}

// ExportCommand returns the topic external systems use to request a
// new export run.
//
// Example: howl/command/export
func (Topics) ExportCommand() string {
	return fmt.Sprintf("%s/command/export", TopicPrefix)
}

// SystemStatus returns the system status topic.
//
// Example: howl/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: howl/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// AllExportRuns returns a pattern matching all per-run announcements.
//
// Pattern: howl/exports/+
func (Topics) AllExportRuns() string {
	return fmt.Sprintf("%s/exports/+", TopicPrefix)
}

// AllTopics returns a pattern matching all HOWL topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: howl/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

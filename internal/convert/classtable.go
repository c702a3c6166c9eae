package convert

import (
	"github.com/foldr-org/howl/internal/graph"
	"github.com/foldr-org/howl/internal/ontology"
)

// classMapping resolves one entity domain to the reference ontology.
// Subclass=false means "type instances directly under Super";
// Subclass=true means "declare a domain-named subclass of Super and
// type instances under that", keeping per-domain distinctions
// queryable.
type classMapping struct {
	Subclass bool
	Super    graph.URIRef
}

// classTable is the hand-curated domain mapping. A present key with a
// nil value means the domain is explicitly unsupported (Skip); domains
// missing entirely fall back to a dynamically created Platform
// subclass. Treat entries as versioned configuration, not inferred.
func classTable() map[string]*classMapping {
	saref := func(local string) graph.URIRef { return ontology.SAREF.Term(local) }
	return map[string]*classMapping{
		"air_quality":         {Subclass: true, Super: saref("Sensor")},
		"alarm_control_panel": {Subclass: true, Super: saref("Device")},
		"binary_sensor":       {Subclass: false, Super: saref("Sensor")},
		"button":              {Subclass: true, Super: saref("Sensor")},
		"calendar":            nil,
		"camera":              {Subclass: true, Super: saref("Device")},
		"climate":             {Subclass: false, Super: saref("HVAC")},
		"cover":               {Subclass: true, Super: saref("Actuator")},
		"device_tracker":      {Subclass: true, Super: saref("Sensor")},
		"fan":                 {Subclass: true, Super: saref("Appliance")},
		"geo_location":        nil,
		"humidifier":          {Subclass: true, Super: saref("Appliance")},
		"image_processing":    nil,
		"light":               {Subclass: true, Super: saref("Appliance")},
		"lock":                {Subclass: true, Super: saref("Appliance")},
		"media_player":        {Subclass: true, Super: saref("Appliance")},
		"notify":              nil,
		"number":              nil,
		"remote":              {Subclass: true, Super: saref("Device")},
		"scene":               nil,
		"select":              nil,
		"sensor":              {Subclass: false, Super: saref("Sensor")},
		"siren":               {Subclass: true, Super: saref("Appliance")},
		"stt":                 nil,
		"switch":              {Subclass: false, Super: saref("Switch")},
		"text":                nil,
		"tts":                 nil,
		"update":              nil,
		"vacuum":              {Subclass: true, Super: saref("Appliance")},
		"water_heater":        {Subclass: true, Super: saref("Appliance")},
		"weather":             {Subclass: true, Super: saref("Sensor")},
		// Not an entity platform, but devices resolve through the same
		// table.
		"device": {Subclass: false, Super: saref("Device")},
	}
}

package ontology

import "github.com/foldr-org/howl/internal/graph"

// Vocabulary namespaces. SAREF and S4BLDG are the ETSI reference
// ontologies; HASS is our Home Assistant extension profile that carries
// everything SAREF has no term for.
const (
	SAREF  = graph.Namespace("https://saref.etsi.org/core/")
	S4BLDG = graph.Namespace("https://saref.etsi.org/saref4bldg/")
	HASS   = graph.Namespace("https://www.foldr.org/profiles/homeassistant/v1.0/")

	// Sub-namespaces of the HASS profile, bound separately so Turtle
	// output stays readable.
	HASSAction    = graph.Namespace(HASS + "action/")
	HASSBlueprint = graph.Namespace(HASS + "blueprint/")
	HASSPlatform  = graph.Namespace(HASS + "platform/")
	HASSService   = graph.Namespace(HASS + "service/")
	HASSType      = graph.Namespace(HASS + "type/")
	HASSTrigger   = graph.Namespace(HASS + "trigger/")
)

// DefaultMasterURL is the published Turtle serialization of SAREF core
// consulted for pre-existing class definitions.
const DefaultMasterURL = "https://saref.etsi.org/core/v3.1.1/saref.ttl"

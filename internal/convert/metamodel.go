package convert

import (
	"sort"

	"github.com/foldr-org/howl/internal/graph"
	"github.com/foldr-org/howl/internal/hass"
	"github.com/foldr-org/howl/internal/ontology"
)

// MetamodelMode selects what the bootstrap writes.
type MetamodelMode int

const (
	// ModeImport produces a thin graph that merely imports the
	// vocabulary; used as the base of an instance-populated graph.
	ModeImport MetamodelMode = iota

	// ModeSchema produces the full vocabulary document itself.
	ModeSchema
)

// scriptActionKinds are the action variants the automation schema
// recognizes. Each gets a subclass of action/Action in the vocabulary.
// Versioned configuration tracking Home Assistant's script schema.
var scriptActionKinds = []string{
	"call_service", "delay", "wait_template", "condition", "event",
	"device", "scene", "repeat", "choose", "if", "wait_for_trigger",
	"variables", "stop", "parallel",
}

// setupMetamodel establishes the ontology document and, in schema
// mode, the full fixed vocabulary. Both modes return the identical
// class-resolution table so instance and schema graphs stay
// consistent.
func setupMetamodel(g *graph.Graph, mine graph.Namespace, mode MetamodelMode,
	master *ontology.Master, services map[string][]string) map[string]*classMapping {

	g.Bind("saref", ontology.SAREF)
	g.Bind("s4bldg", ontology.S4BLDG)
	g.Bind("hass", ontology.HASS)
	g.Bind("ha_action", ontology.HASSAction)
	g.Bind("ha_bp", ontology.HASSBlueprint)

	table := classTable()

	if mode == ModeImport {
		g.Bind("mine", mine)
		g.Bind("action", graph.Namespace(mine+"action/"))
		g.Bind("automation", graph.Namespace(mine+"automation/"))
		g.Bind("entity", graph.Namespace(mine+"entity/"))
		g.Bind("service", graph.Namespace(mine+"service/"))

		doc := mine.URI()
		g.Add(doc, graph.RDFType, graph.OWLOntology)
		g.Add(doc, graph.OWLImports, ontology.SAREF.URI())
		g.Add(doc, graph.OWLImports, ontology.S4BLDG.URI())
		g.Add(doc, graph.OWLImports, ontology.HASS.URI())
		return table
	}

	doc := ontology.HASS.URI()
	g.Add(doc, graph.RDFType, graph.OWLOntology)
	g.Add(doc, graph.OWLImports, ontology.SAREF.URI())
	g.Add(doc, graph.OWLImports, ontology.S4BLDG.URI())

	props := newPropertyCache(master)

	// Properties for everything sensors can classify themselves as.
	g.Add(ontology.HASS.Term("Brightness"), graph.RDFSSubClassOf, ontology.SAREF.Term("Property"))
	for _, dc := range hass.SensorDeviceClasses() {
		props.propertyClass(g, titleCase(dc))
	}
	for _, dc := range hass.BinarySensorDeviceClasses() {
		props.propertyClass(g, titleCase(dc))
	}

	// Service classes from the live catalog. turn_on is the one case
	// that maps onto SAREF's existing SwitchOnService instead.
	domains := make([]string, 0, len(services))
	for d := range services {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	for _, d := range domains {
		for _, s := range services[d] {
			if s == hass.ServiceTurnOn {
				continue
			}
			g.Add(ontology.HASSService.Term(titleCase(s)), graph.RDFSSubClassOf, ontology.SAREF.Term("Service"))
		}
	}

	// Domain subclasses from the resolution table.
	tableDomains := make([]string, 0, len(table))
	for d := range table {
		tableDomains = append(tableDomains, d)
	}
	sort.Strings(tableDomains)
	for _, d := range tableDomains {
		if m := table[d]; m != nil && m.Subclass {
			g.Add(ontology.HASS.Term(titleCase(d)), graph.RDFSSubClassOf, m.Super)
		}
	}

	// Object and datatype properties of the extension profile.
	viaDevice := ontology.HASS.Term("via_device")
	g.Add(viaDevice, graph.RDFType, graph.OWLObjectProp)
	g.Add(viaDevice, graph.RDFSDomain, ontology.SAREF.Term("Device"))
	g.Add(viaDevice, graph.RDFSRange, ontology.SAREF.Term("Device"))

	action := ontology.HASSAction.Term("Action")
	consistsOf := ontology.HASS.Term("consistsOf")
	g.Add(consistsOf, graph.RDFType, graph.OWLObjectProp)
	g.Add(consistsOf, graph.OWLInverseOf, ontology.HASS.Term("belongsTo"))
	g.Add(consistsOf, graph.RDFSDomain, ontology.HASS.Term("Automation"))
	g.Add(consistsOf, graph.RDFSRange, action)
	for _, k := range scriptActionKinds {
		g.Add(ontology.HASSAction.Term(titleCase(k)), graph.RDFSSubClassOf, action)
	}

	setupBlueprintSchema(g)
	setupTriggerSchema(g)

	// Light device-actions contribute classes of their own; these come
	// from the light integration's action set, not its service list.
	changeBrightness := ontology.HASSAction.Term("LIGHT_ACTION_CHANGE_BRIGHTNESS")
	g.Add(changeBrightness, graph.RDFSSubClassOf, ontology.HASSAction.Term("Device"))
	byProp := ontology.HASS.Term("changeBrightnessBy")
	g.Add(byProp, graph.RDFType, graph.OWLDatatypeProp)
	g.Add(byProp, graph.RDFSDomain, changeBrightness)
	g.Add(byProp, graph.RDFSRange, graph.XSDString)

	flash := ontology.HASSAction.Term("LIGHT_ACTION_FLASH")
	g.Add(flash, graph.RDFSSubClassOf, ontology.HASSAction.Term("Device"))
	flashLen := ontology.HASS.Term("flashLength")
	g.Add(flashLen, graph.RDFType, graph.OWLDatatypeProp)
	g.Add(flashLen, graph.RDFSDomain, flash)
	g.Add(flashLen, graph.RDFSRange, graph.XSDBoolean)

	return table
}

// setupTriggerSchema declares trigger types, their properties and the
// platform classes that provide them.
func setupTriggerSchema(g *graph.Graph) {
	tt := ontology.HASSType.Term("TriggerType")

	hasTrigger := ontology.HASS.Term("hasTrigger")
	g.Add(hasTrigger, graph.RDFType, graph.OWLObjectProp)
	g.Add(hasTrigger, graph.RDFSDomain, ontology.HASS.Term("Automation"))
	g.Add(hasTrigger, graph.RDFSRange, tt)

	triggerEntity := ontology.HASS.Term("trigger_entity")
	g.Add(triggerEntity, graph.RDFType, graph.OWLObjectProp)
	g.Add(triggerEntity, graph.RDFSDomain, tt)
	g.Add(triggerEntity, graph.RDFSRange, ontology.SAREF.Term("Device"))

	g.Add(ontology.HASSType.Term("NumericStateTrigger"), graph.RDFSSubClassOf, tt)
	g.Add(ontology.HASSType.Term("MQTTTrigger"), graph.RDFSSubClassOf, tt)

	state := ontology.HASSType.Term("StateTrigger")
	g.Add(state, graph.RDFSSubClassOf, tt)
	for _, p := range []string{"from", "to"} {
		prop := ontology.HASS.Term(p)
		g.Add(prop, graph.RDFType, graph.OWLDatatypeProp)
		g.Add(prop, graph.RDFSDomain, state)
		g.Add(prop, graph.RDFSRange, graph.XSDString)
	}

	zone := ontology.HASSType.Term("ZoneTrigger")
	g.Add(zone, graph.RDFSSubClassOf, tt)
	zoneProp := ontology.HASS.Term("zone")
	g.Add(zoneProp, graph.RDFType, graph.OWLObjectProp)
	g.Add(zoneProp, graph.RDFSDomain, zone)
	g.Add(zoneProp, graph.RDFSRange, ontology.SAREF.Term("Device"))

	g.Add(ontology.HASSType.Term("SunTrigger"), graph.RDFSSubClassOf, tt)

	platform := ontology.HASSPlatform.Term("Platform")
	provides := ontology.HASS.Term("providesTrigger")
	g.Add(provides, graph.RDFSDomain, platform)
	g.Add(provides, graph.RDFSRange, tt)

	providedBy := ontology.HASS.Term("provided_by")
	g.Add(providedBy, graph.RDFType, graph.OWLObjectProp)
	g.Add(providedBy, graph.OWLInverseOf, ontology.HASS.Term("provides"))
	g.Add(providedBy, graph.RDFSDomain, ontology.SAREF.Term("Device"))
	g.Add(providedBy, graph.RDFSRange, platform)

	for _, p := range hass.Platforms() {
		g.Add(ontology.HASSPlatform.Term(titleCase(p)), graph.RDFSSubClassOf, platform)
	}
}

// setupBlueprintSchema declares the blueprint vocabulary: blueprints,
// their inputs and the selector kinds inputs may carry.
func setupBlueprintSchema(g *graph.Graph) {
	bp := ontology.HASSBlueprint.Term("Blueprint")
	input := ontology.HASSBlueprint.Term("Input")
	hasInputs := ontology.HASSBlueprint.Term("hasInputs")
	g.Add(hasInputs, graph.RDFType, graph.OWLObjectProp)
	g.Add(hasInputs, graph.RDFSDomain, bp)
	g.Add(hasInputs, graph.RDFSRange, input)

	selector := ontology.HASSBlueprint.Term("Selector")
	hasSelector := ontology.HASSBlueprint.Term("hasSelector")
	g.Add(hasSelector, graph.RDFType, graph.OWLObjectProp)
	g.Add(hasSelector, graph.RDFSDomain, input)
	g.Add(hasSelector, graph.RDFSRange, selector)
	for _, s := range hass.BlueprintSelectors() {
		g.Add(ontology.HASSBlueprint.Term(titleCase(s)), graph.RDFSSubClassOf, selector)
	}

	entitySel := ontology.HASSBlueprint.Term("Selector_Entity")
	integration := ontology.HASSBlueprint.Term("Selector_Entity_Integration")
	g.Add(integration, graph.RDFType, graph.OWLDatatypeProp)
	g.Add(integration, graph.RDFSDomain, entitySel)
	g.Add(integration, graph.RDFSRange, graph.XSDString)

	domainProp := ontology.HASSBlueprint.Term("Selector_Entity_Domain")
	g.Add(domainProp, graph.RDFType, graph.OWLDatatypeProp)
	g.Add(domainProp, graph.RDFSDomain, entitySel)
	g.Add(domainProp, graph.RDFSRange, ontology.HASSPlatform.Term("Platform"))

	deviceClass := ontology.HASSBlueprint.Term("Selector_Entity_DeviceClass")
	g.Add(deviceClass, graph.RDFType, graph.OWLDatatypeProp)
	g.Add(deviceClass, graph.RDFSDomain, entitySel)
	g.Add(deviceClass, graph.RDFSRange, graph.XSDString)
}

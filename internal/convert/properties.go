package convert

import (
	"github.com/foldr-org/howl/internal/graph"
	"github.com/foldr-org/howl/internal/ontology"
)

// propertyCache keeps the graph's class set bounded: each device-class
// or measurement-unit name yields exactly one ontology class per run,
// reusing the master ontology's definition when one exists and
// synthesizing (once) under the extension namespace otherwise.
type propertyCache struct {
	master *ontology.Master
	props  map[string]graph.URIRef
	units  map[string]graph.URIRef
}

func newPropertyCache(master *ontology.Master) *propertyCache {
	return &propertyCache{
		master: master,
		props:  make(map[string]graph.URIRef),
		units:  make(map[string]graph.URIRef),
	}
}

// propertyClass resolves a device-class name (already title-cased) to
// a Property class, creating it in g at most once per run.
func (pc *propertyCache) propertyClass(g *graph.Graph, name string) graph.URIRef {
	if c, ok := pc.props[name]; ok {
		return c
	}
	if c, ok := pc.master.LocalClass(ontology.SAREF, "Property", name); ok {
		pc.props[name] = c
		return c
	}
	c := ontology.HASS.Term(name)
	g.Add(c, graph.RDFSSubClassOf, ontology.SAREF.Term("Property"))
	pc.props[name] = c
	return c
}

// knownUnits maps sensor device classes to SAREF's built-in unit
// classes. Anything else becomes a synthesized UnitOfMeasure subclass
// named after the unit string itself.
var knownUnits = map[string]graph.URIRef{
	"temperature": ontology.SAREF.Term("TemperatureUnit"),
	"current":     ontology.SAREF.Term("PowerUnit"),
	"power":       ontology.SAREF.Term("PowerUnit"),
	"energy":      ontology.SAREF.Term("EnergyUnit"),
	"pressure":    ontology.SAREF.Term("PressureUnit"),
}

// unitClass resolves a (device-class, unit string) pair to a unit
// class, synthesizing dynamic units at most once per run.
func (pc *propertyCache) unitClass(g *graph.Graph, deviceClass, unit string) graph.URIRef {
	if c, ok := knownUnits[deviceClass]; ok {
		return c
	}
	key := mkname(unit)
	if c, ok := pc.units[key]; ok {
		return c
	}
	c := ontology.HASS.Term(key)
	g.Add(c, graph.RDFSSubClassOf, ontology.SAREF.Term("UnitOfMeasure"))
	pc.units[key] = c
	return c
}

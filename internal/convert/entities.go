package convert

import (
	"context"
	"errors"
	"strings"

	"github.com/foldr-org/howl/internal/graph"
	"github.com/foldr-org/howl/internal/hass"
	"github.com/foldr-org/howl/internal/ontology"
)

// handleDevice emits one device node with its manufacturer/model
// superclass, area containment, via_device edge and all owned
// entities. Malformed entity ids are isolated failures; source errors
// abort the run.
func (c *Converter) handleDevice(ctx context.Context, deviceID string) error {
	dNode, err := c.privacy.DeviceURI(ctx, c.src, c.mine, deviceID)
	if err != nil {
		return err
	}

	manufacturer, err := c.src.DeviceAttr(ctx, deviceID, hass.DeviceAttrManufacturer)
	if err != nil {
		return err
	}
	name, err := c.src.DeviceAttr(ctx, deviceID, hass.DeviceAttrName)
	if err != nil {
		return err
	}
	model, err := c.src.DeviceAttr(ctx, deviceID, hass.DeviceAttrModel)
	if err != nil {
		return err
	}
	entryType, err := c.src.DeviceAttr(ctx, deviceID, hass.DeviceAttrEntryType)
	if err != nil {
		return err
	}
	if entryType != hass.None {
		c.log.Info("device has entry type", "device", deviceID, "name", name, "entry_type", entryType)
		c.g.Add(dNode, ontology.HASS.Term("entry_type"), graph.NewLiteral(entryType))
	}

	// Identical bulbs, motion sensors etc. share a synthesized
	// superclass keyed by manufacturer+model.
	dSuper := c.mine.Term("device/" + mkname(manufacturer) + "_" + mkname(model))
	c.g.Add(dSuper, graph.RDFSSubClassOf, ontology.SAREF.Term("Device"))
	c.g.Add(dNode, graph.RDFType, dSuper)
	c.g.Add(dNode, ontology.SAREF.Term("hasManufacturer"), graph.NewLiteral(manufacturer))
	c.g.Add(dNode, ontology.SAREF.Term("hasModel"), graph.NewLiteral(model))

	if err := c.handleDeviceArea(ctx, deviceID, dNode); err != nil {
		return err
	}

	via, err := c.src.DeviceAttr(ctx, deviceID, hass.DeviceAttrViaDevice)
	if err != nil {
		return err
	}
	if via != hass.None {
		other, err := c.privacy.DeviceURI(ctx, c.src, c.mine, via)
		if err != nil {
			return err
		}
		c.log.Info("device reached via another device", "device", deviceID, "via", via)
		c.g.Add(dNode, ontology.HASS.Term("via_device"), other)
	}

	entities, err := c.src.DeviceEntities(ctx, deviceID)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		c.log.Info("device has no entities", "device", deviceID, "name", name)
	}
	for _, e := range entities {
		diagnostic, err := isDiagnosticEntity(e)
		if err != nil {
			c.log.Warn("skipping malformed entity id", "entity", e, "error", err)
			c.stats.SkippedEntities++
			continue
		}
		if diagnostic {
			continue
		}
		eNode, ok, err := c.handleEntity(ctx, deviceID, e)
		if err != nil {
			if errors.Is(err, ErrMalformedEntityID) {
				c.log.Warn("skipping malformed entity id", "entity", e, "error", err)
				c.stats.SkippedEntities++
				continue
			}
			return err
		}
		if ok {
			// Skip'd entities must never appear in the device's
			// consists-of set.
			c.g.Add(dNode, ontology.SAREF.Term("consistsOf"), eNode)
		}
	}

	c.stats.Devices++
	return nil
}

func (c *Converter) handleDeviceArea(ctx context.Context, deviceID string, dNode graph.URIRef) error {
	areaID, err := c.src.AreaID(ctx, deviceID)
	if err != nil {
		return err
	}
	if areaID == hass.None {
		return nil
	}
	area := c.privacy.AreaURI(c.mine, areaID)
	c.g.Add(area, graph.RDFType, ontology.S4BLDG.Term("BuildingSpace"))
	c.g.Add(area, ontology.S4BLDG.Term("contains"), dNode)
	if c.privacy.Allows("area") {
		areaName, err := c.src.AreaName(ctx, deviceID)
		if err != nil {
			return err
		}
		c.g.Add(area, graph.RDFSLabel, graph.NewLiteral(areaName))
	}
	return nil
}

// isDiagnosticEntity reports whether an entity is identify-button
// noise that is not worth modeling.
func isDiagnosticEntity(entityID string) (bool, error) {
	_, name, err := splitEntityID(entityID)
	if err != nil {
		return false, err
	}
	return strings.HasSuffix(name, "_identify") || strings.HasSuffix(name, "_identifybutton"), nil
}

// handleEntity translates one entity. The boolean result is false when
// the domain resolves to Skip; the caller must not link such an entity
// anywhere.
func (c *Converter) handleEntity(ctx context.Context, deviceID, entityID string) (graph.URIRef, bool, error) {
	domain, _, err := splitEntityID(entityID)
	if err != nil {
		return "", false, err
	}
	c.log.Info("handling entity", "entity", entityID, "device", deviceID)

	attrs, err := c.src.EntityAttributes(ctx, entityID)
	if err != nil {
		return "", false, err
	}
	deviceClass := stringAttr(attrs, hass.AttrDeviceClass)

	cls, ok := c.resolveClass(domain, deviceClass, deviceID == "", entityID)
	if !ok {
		return "", false, nil
	}

	node, eName, err := c.privacy.EntityURI(c.mine, entityID)
	if err != nil {
		return "", false, err
	}
	c.g.Add(node, graph.RDFType, cls)

	if friendly := stringAttr(attrs, hass.AttrFriendlyName); friendly != "" && c.privacy.Allows(domain) {
		c.g.Add(node, graph.RDFSLabel, graph.NewLiteral(friendly))
	}

	// Every domain gets a singleton platform instance entities hang off.
	platformInst := c.mine.Term(titleCase(domain) + "_platform")
	c.g.Add(platformInst, graph.RDFType, ontology.HASSPlatform.Term(titleCase(domain)))
	c.g.Add(node, ontology.HASS.Term("provided_by"), platformInst)

	c.emitServiceOffers(node, eName, domain, attrs)
	c.emitDomainSpecifics(node, domain, deviceClass, attrs, entityID)

	c.stats.Entities++
	return node, true, nil
}

// resolveClass applies the resolution table plus the sensor
// device-class override layer. The boolean result is false for Skip.
func (c *Converter) resolveClass(domain, deviceClass string, standalone bool, entityID string) (graph.URIRef, bool) {
	m, inTable := c.table[domain]
	if !inTable {
		if standalone {
			// Unknown domains are never refused: they get isolated
			// under a dynamically declared Platform subclass.
			cls := ontology.HASSPlatform.Term(titleCase(domain))
			c.g.Add(cls, graph.RDFSSubClassOf, ontology.HASSPlatform.Term("Platform"))
			return cls, true
		}
		return ontology.SAREF.Term("Device"), true
	}
	if m == nil {
		c.log.Warn("skipping entity, domain unmapped by design", "entity", entityID, "domain", domain)
		c.stats.SkippedEntities++
		return "", false
	}

	cls := m.Super
	if m.Subclass {
		cls = ontology.HASS.Term(titleCase(domain))
	}
	if m.Super == ontology.SAREF.Term("Sensor") {
		switch deviceClass {
		case "temperature":
			cls = ontology.SAREF.Term("TemperatureSensor")
		case "humidity":
			// Left general on purpose, pending ontology extension.
		case "energy":
			cls = ontology.SAREF.Term("Meter")
		case "":
		default:
			c.log.Warn("no specialized class for device class", "entity", entityID, "device_class", deviceClass)
		}
	}
	return cls, true
}

// emitServiceOffers links the entity to every service its domain
// exposes, minus offers the feature bitmask rules out.
func (c *Converter) emitServiceOffers(node graph.URIRef, eName, domain string, attrs map[string]any) {
	services, ok := c.services[domain]
	if !ok {
		return
	}
	features := intAttr(attrs, hass.AttrSupportedFeatures)
	for _, service := range services {
		if skipServiceOffer(domain, service, features) {
			continue
		}
		sClass := ontology.HASSService.Term(titleCase(service))
		if service == hass.ServiceTurnOn {
			// SAREF ships SwitchOnService; reuse it instead of a
			// parallel class.
			sClass = ontology.SAREF.Term("SwitchOnService")
		}
		inst := c.mine.Term("service/" + mkname(eName) + "_" + service)
		c.g.Add(inst, graph.RDFType, sClass)
		c.g.Add(node, ontology.SAREF.Term("offers"), inst)
	}
}

// skipServiceOffer encodes the per-domain feature gates: a service is
// only offered when the corresponding capability bit is set.
func skipServiceOffer(domain, service string, features int64) bool {
	switch domain {
	case "climate":
		switch service {
		case hass.ServiceSetFanMode:
			return features&hass.ClimateFeatureFanMode == 0
		case hass.ServiceSetHumidity:
			return features&hass.ClimateFeatureTargetHumidity == 0
		case hass.ServiceSetPresetMode:
			return features&hass.ClimateFeaturePresetMode == 0
		case hass.ServiceSetSwingMode:
			return features&hass.ClimateFeatureSwingMode == 0
		}
	case "remote":
		switch service {
		case hass.ServiceLearnCommand:
			return features&hass.RemoteFeatureLearnCommand == 0
		case hass.ServiceDeleteCommand:
			return features&hass.RemoteFeatureDeleteCommand == 0
		}
	}
	return false
}

// emitDomainSpecifics adds the per-domain extras: double typing,
// measured properties and units.
func (c *Converter) emitDomainSpecifics(node graph.URIRef, domain, deviceClass string, attrs map[string]any, entityID string) {
	switch domain {
	case "switch":
		// Double-typed on purpose: a switch also reports its on/off
		// state, which makes it a Sensor too.
		c.g.Add(node, graph.RDFType, ontology.SAREF.Term("Sensor"))
	case "button", "light", "weather":
		// Nothing beyond the base typing.
	case "climate":
		if _, ok := attrs[hass.AttrCurrentTemperature]; ok {
			c.g.Add(node, graph.RDFType, ontology.SAREF.Term("TemperatureSensor"))
		}
		if _, ok := attrs[hass.AttrCurrentHumidity]; ok {
			c.g.Add(node, graph.RDFType, ontology.HASS.Term("HumiditySensor"))
		}
	case "sensor", "binary_sensor":
		if deviceClass != "" {
			propClass := c.props.propertyClass(c.g, titleCase(deviceClass))
			prop := c.mine.Term(titleCase(deviceClass) + "_prop")
			c.g.Add(prop, graph.RDFType, propClass)
			c.g.Add(node, ontology.SAREF.Term("measuresProperty"), prop)
		}
		if unit := stringAttr(attrs, hass.AttrUnitOfMeasurement); unit != "" {
			unitClass := c.props.unitClass(c.g, deviceClass, unit)
			c.g.Add(c.mine.Term(mkname(unit)), graph.RDFType, unitClass)
		}
	default:
		c.log.Warn("no domain-specific handling", "domain", domain, "entity", entityID)
	}
}

// stringAttr reads a string attribute, returning "" when absent or of
// another type.
func stringAttr(attrs map[string]any, key string) string {
	if v, ok := attrs[key].(string); ok {
		return v
	}
	return ""
}

// intAttr reads a numeric attribute; JSON numbers arrive as float64.
func intAttr(attrs map[string]any, key string) int64 {
	switch v := attrs[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}

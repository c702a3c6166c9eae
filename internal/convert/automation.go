package convert

import (
	"context"
	"fmt"
	"strconv"

	"github.com/foldr-org/howl/internal/graph"
	"github.com/foldr-org/howl/internal/hass"
	"github.com/foldr-org/howl/internal/ontology"
)

// handleAutomation translates one automation entity into an Automation
// node with ordered action nodes and typed trigger nodes. The returned
// error is an isolated failure: the caller logs it and moves on to the
// next automation. Source errors pass through and abort the run.
func (c *Converter) handleAutomation(ctx context.Context, attrs map[string]any, name string) error {
	c.log.Debug("handling automation", "automation", name)

	aNode := c.mine.Term("automation/" + mkname(name))
	c.g.Add(aNode, graph.RDFType, ontology.HASS.Term("Automation"))
	if friendly := stringAttr(attrs, hass.AttrFriendlyName); friendly != "" && c.privacy.Allows("automation") {
		c.g.Add(aNode, graph.RDFSLabel, graph.NewLiteral(friendly))
	}

	id := automationID(attrs)
	if id == "" {
		return fmt.Errorf("%w: %s", ErrMissingAutomationID, name)
	}
	cfg, err := c.src.AutomationConfig(ctx, id)
	if err != nil {
		return err
	}

	actions, err := configList(cfg, "action", "actions")
	if err != nil {
		return err
	}
	triggers, err := configList(cfg, "trigger", "triggers")
	if err != nil {
		return err
	}
	conditions, err := configList(cfg, "condition", "conditions")
	if err != nil {
		return err
	}

	// Validate triggers and conditions up front: an automation with an
	// invalid schema gets no action/trigger fragments at all.
	for _, t := range triggers {
		if err := validateTrigger(t); err != nil {
			return err
		}
	}
	for _, cond := range conditions {
		if err := validateCondition(cond); err != nil {
			return err
		}
	}

	if err := c.translateActions(ctx, aNode, name, actions); err != nil {
		return err
	}
	if err := c.translateTriggers(ctx, aNode, name, triggers); err != nil {
		return err
	}
	// Conditions are validated only; translating them is out of scope.

	c.stats.Automations++
	return nil
}

// automationID extracts the stable id. Numeric ids are stringified.
func automationID(attrs map[string]any) string {
	switch v := attrs["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// configList reads a list that may appear under a singular or plural
// key; both are synonyms in the wild.
func configList(cfg map[string]any, singular, plural string) ([]map[string]any, error) {
	raw, ok := cfg[singular]
	if !ok {
		raw, ok = cfg[plural]
	}
	if !ok {
		// Absent sections are simply empty.
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		// A single mapping is shorthand for a one-element list.
		if m, isMap := raw.(map[string]any); isMap {
			return []map[string]any{m}, nil
		}
		return nil, fmt.Errorf("%w: %s is not a list", ErrInvalidConfig, singular)
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s entry is not a mapping", ErrInvalidConfig, singular)
		}
		out = append(out, m)
	}
	return out, nil
}

// determineScriptAction classifies an action mapping by key presence,
// mirroring the platform's script schema.
func determineScriptAction(a map[string]any) (string, error) {
	for _, probe := range []struct{ key, kind string }{
		{"delay", "delay"},
		{"wait_template", "wait_template"},
		{"condition", "condition"},
		{"event", "event"},
		{"device_id", "device"},
		{"scene", "scene"},
		{"repeat", "repeat"},
		{"choose", "choose"},
		{"if", "if"},
		{"wait_for_trigger", "wait_for_trigger"},
		{"variables", "variables"},
		{"stop", "stop"},
		{"parallel", "parallel"},
	} {
		if _, ok := a[probe.key]; ok {
			return probe.kind, nil
		}
	}
	if _, ok := a["service"].(string); ok {
		return "call_service", nil
	}
	// Newer configs use "action" for the service id.
	if _, ok := a["action"].(string); ok {
		return "call_service", nil
	}
	return "", fmt.Errorf("%w: unrecognized action", ErrInvalidConfig)
}

// translateActions emits one node per action, ordered positionally via
// the index suffix in the generated name. No first-class ordering
// predicate exists; the index is the order.
func (c *Converter) translateActions(ctx context.Context, aNode graph.URIRef, name string, actions []map[string]any) error {
	i := 0
	for _, a := range actions {
		kind, err := determineScriptAction(a)
		if err != nil {
			c.log.Warn("cannot classify action, skipping", "automation", name, "error", err)
			continue
		}
		inst := c.mine.Term("action/" + mkname(name) + "_" + strconv.Itoa(i))
		c.g.Add(inst, graph.RDFType, ontology.HASSAction.Term(titleCase(kind)))
		c.g.Add(aNode, ontology.HASS.Term("consistsOf"), inst)
		i++

		switch kind {
		case "call_service":
			serviceID := stringAttr(a, "service")
			if serviceID == "" {
				serviceID = stringAttr(a, "action")
			}
			target, hasTarget := a["target"].(map[string]any)
			if hasTarget && serviceID != "" {
				if err := c.translateServiceTarget(ctx, inst, serviceID, target); err != nil {
					return err
				}
			}
		case "device":
			if err := c.translateDeviceAction(ctx, inst, a); err != nil {
				return err
			}
		case "delay":
			c.g.Add(inst, ontology.HASS.Term("delay"), graph.NewLiteral(formatDelay(a["delay"])))
		default:
			c.log.Warn("skipping action kind", "automation", name, "kind", kind)
		}
	}
	return nil
}

// translateServiceTarget links a call_service action to its targets:
// entity targets become (entity, service) pair nodes, device and area
// targets resolve through their identity paths.
func (c *Converter) translateServiceTarget(ctx context.Context, inst graph.URIRef, serviceID string, target map[string]any) error {
	_, serviceName, err := splitEntityID(serviceID)
	if err != nil {
		return err
	}
	targetProp := ontology.HASS.Term("target")

	for _, e := range stringList(target["entity_id"]) {
		_, tName, err := splitEntityID(e)
		if err != nil {
			return err
		}
		// One node per (target entity, service) pair, diverging from
		// the platform's modeling: the pair is the concrete instance.
		c.g.Add(inst, targetProp, c.mine.Term("service/"+mkname(tName)+"_"+serviceName))
	}
	for _, d := range stringList(target["device_id"]) {
		dev, err := c.privacy.DeviceURI(ctx, c.src, c.mine, d)
		if err != nil {
			return err
		}
		c.g.Add(inst, targetProp, dev)
	}
	for _, a := range stringList(target["area_id"]) {
		c.g.Add(inst, targetProp, c.privacy.AreaURI(c.mine, a))
	}
	return nil
}

// translateDeviceAction dispatches a device_automation action to its
// domain-specific sub-translator.
func (c *Converter) translateDeviceAction(ctx context.Context, inst graph.URIRef, a map[string]any) error {
	dev, err := c.privacy.DeviceURI(ctx, c.src, c.mine, stringAttr(a, "device_id"))
	if err != nil {
		return err
	}
	c.g.Add(inst, ontology.HASS.Term("device"), dev)

	domain := stringAttr(a, "domain")
	switch domain {
	case "binary_sensor", "sensor":
		// Valid domains with nothing to translate.
	case "button":
		node, _, err := c.privacy.EntityURI(c.mine, stringAttr(a, "entity_id"))
		if err != nil {
			return err
		}
		c.g.Add(inst, ontology.HASS.Term("press"), node)
	case "climate":
		return c.translateClimateAction(inst, a)
	case "switch":
		_, _, err := c.translateToggleAction(inst, a)
		return err
	case "light":
		return c.translateLightAction(inst, a)
	default:
		c.log.Warn("skipping device action domain", "domain", domain)
	}
	return nil
}

// translateClimateAction emits a mode-setting service node typed under
// Climate_Mode, carrying the literal mode value.
func (c *Converter) translateClimateAction(inst graph.URIRef, a map[string]any) error {
	_, eName, err := splitEntityID(stringAttr(a, "entity_id"))
	if err != nil {
		return err
	}
	actionType := stringAttr(a, "type")
	svc := c.mine.Term("service/" + titleCase(mkname(eName)+"_"+actionType))
	c.g.Add(inst, ontology.HASS.Term("target"), svc)
	c.g.Add(svc, graph.RDFSSubClassOf, ontology.HASS.Term("Climate_Mode"))

	switch actionType {
	case "set_hvac_mode":
		c.g.Add(svc, ontology.HASS.Term("mode"), graph.NewLiteral(stringAttr(a, "hvac_mode")))
	case "set_preset_mode":
		c.g.Add(svc, ontology.HASS.Term("mode"), graph.NewLiteral(stringAttr(a, "preset_mode")))
	default:
		c.log.Warn("unknown climate action type", "type", actionType)
	}
	return nil
}

// toggleActionTypes is the toggle_entity device-action family shared
// by switch and light.
var toggleActionTypes = map[string]struct{}{
	"turn_on":  {},
	"turn_off": {},
	"toggle":   {},
}

// translateToggleAction handles the shared toggle family and returns
// the entity id and type for sub-translators that extend it.
func (c *Converter) translateToggleAction(inst graph.URIRef, a map[string]any) (string, string, error) {
	entityID := stringAttr(a, "entity_id")
	actionType := stringAttr(a, "type")
	if _, ok := toggleActionTypes[actionType]; ok {
		_, eName, err := splitEntityID(entityID)
		if err != nil {
			return "", "", err
		}
		c.g.Add(inst, ontology.HASS.Term("target"), c.mine.Term("service/"+mkname(eName)+"_"+actionType))
	}
	return entityID, actionType, nil
}

// translateLightAction extends the toggle family with brightness
// stepping (±10 default, explicit percentage override) and flash
// length (default "short").
func (c *Converter) translateLightAction(inst graph.URIRef, a map[string]any) error {
	_, actionType, err := c.translateToggleAction(inst, a)
	if err != nil {
		return err
	}

	retype := func(cls graph.URIRef) {
		c.g.Remove(graph.SP(inst, graph.RDFType))
		c.g.Add(inst, graph.RDFType, cls)
	}

	switch actionType {
	case "brightness_decrease":
		retype(ontology.HASSAction.Term("LIGHT_ACTION_CHANGE_BRIGHTNESS"))
		c.g.Add(inst, ontology.HASS.Term("changeBrightnessBy"), graph.NewLiteral(brightnessPct(a, -10)))
	case "brightness_increase":
		retype(ontology.HASSAction.Term("LIGHT_ACTION_CHANGE_BRIGHTNESS"))
		c.g.Add(inst, ontology.HASS.Term("changeBrightnessBy"), graph.NewLiteral(brightnessPct(a, 10)))
	case "flash":
		retype(ontology.HASSAction.Term("LIGHT_ACTION_FLASH"))
		length := stringAttr(a, "flash")
		if length == "" {
			length = "short"
		}
		c.g.Add(inst, ontology.HASS.Term("flashLength"), graph.NewLiteral(length))
	case "turn_on", "turn_off", "toggle":
		// Covered by the toggle translation above.
	default:
		c.log.Warn("unsupported light action type", "type", actionType)
	}
	return nil
}

// brightnessPct returns the explicit percentage when given, otherwise
// the step default.
func brightnessPct(a map[string]any, def int) int {
	if v, ok := a["brightness_pct"]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// translateTriggers emits one typed node per trigger and links every
// referenced entity. Unknown platforms still get a generically typed
// node so no trigger vanishes from the graph.
func (c *Converter) translateTriggers(ctx context.Context, aNode graph.URIRef, name string, triggers []map[string]any) error {
	n := 0
	for _, t := range triggers {
		n++
		platform := stringAttr(t, "platform")

		tNode := c.mine.Term("trigger/" + mkname(name) + strconv.Itoa(n))
		platformClass := ontology.HASSPlatform.Term(titleCase(platform))
		platformInst := c.mine.Term(titleCase(platform) + "_platform")
		c.g.Add(platformInst, ontology.HASS.Term("providesTrigger"), tNode)
		c.g.Add(platformInst, graph.RDFType, platformClass)
		c.g.Add(platformClass, graph.RDFSSubClassOf, ontology.HASSPlatform.Term("Platform"))

		// A trigger may reference zero, one or many entities; all of
		// them are linked.
		for _, e := range stringList(t["entity_id"]) {
			node, _, err := c.privacy.EntityURI(c.mine, e)
			if err != nil {
				c.log.Warn("trigger references malformed entity id", "entity", e, "error", err)
				continue
			}
			c.g.Add(tNode, ontology.HASS.Term("trigger_entity"), node)
		}

		switch platform {
		case "device":
			dev, err := c.privacy.DeviceURI(ctx, c.src, c.mine, stringAttr(t, "device_id"))
			if err != nil {
				return err
			}
			c.g.Add(tNode, ontology.HASS.Term("device"), dev)
			// Trigger types are picked up dynamically; there is no
			// global catalog to check against.
			tType := ontology.HASSType.Term(titleCase(stringAttr(t, "type")))
			c.g.Add(tType, graph.RDFSSubClassOf, ontology.HASSType.Term("TriggerType"))
			c.g.Add(tNode, graph.RDFType, tType)
		case "zone":
			zoneNode, _, err := c.privacy.EntityURI(c.mine, stringAttr(t, "zone"))
			if err != nil {
				return err
			}
			c.g.Add(tNode, graph.RDFType, ontology.HASSType.Term("ZoneTrigger"))
			c.directAttribute(tNode, "event", t)
			c.g.Add(tNode, ontology.HASS.Term("zone"), zoneNode)
		case "state":
			c.g.Add(tNode, graph.RDFType, ontology.HASSType.Term("StateTrigger"))
			c.directAttribute(tNode, "from", t)
			c.directAttribute(tNode, "to", t)
		case "numeric_state":
			c.g.Add(tNode, graph.RDFType, ontology.HASSType.Term("NumericStateTrigger"))
			c.directAttribute(tNode, "above", t)
			c.directAttribute(tNode, "below", t)
			c.directAttribute(tNode, "attribute", t)
		case "sun":
			c.g.Add(tNode, graph.RDFType, ontology.HASSType.Term("SunTrigger"))
			c.directAttribute(tNode, "event", t)
			c.directAttribute(tNode, "offset", t)
		case "mqtt":
			c.g.Add(tNode, graph.RDFType, ontology.HASSType.Term("MQTTTrigger"))
			c.directAttribute(tNode, "topic", t)
		default:
			c.log.Warn("unhandled trigger platform", "platform", platform, "automation", name)
			fallback := ontology.HASSTrigger.Term(titleCase(platform))
			c.g.Add(tNode, graph.RDFType, fallback)
			c.g.Add(fallback, graph.RDFSSubClassOf, ontology.HASSType.Term("TriggerType"))
			// The node stays reachable via providesTrigger, but we do
			// not assert hasTrigger semantics we did not validate.
			continue
		}
		c.g.Add(aNode, ontology.HASS.Term("hasTrigger"), tNode)
	}
	return nil
}

// directAttribute copies one scalar trigger field onto the node when
// present.
func (c *Converter) directAttribute(node graph.URIRef, key string, t map[string]any) {
	if v, ok := t[key]; ok {
		c.g.Add(node, ontology.HASS.Term(key), graph.NewLiteral(v))
	}
}

// validateTrigger enforces the per-platform required fields. Triggers
// are safety-relevant, so failures abort the whole automation.
func validateTrigger(t map[string]any) error {
	platform := stringAttr(t, "platform")
	if platform == "" {
		return fmt.Errorf("%w: missing platform", ErrInvalidTrigger)
	}
	need := func(keys ...string) error {
		for _, k := range keys {
			if _, ok := t[k]; !ok {
				return fmt.Errorf("%w: %s trigger missing %q", ErrInvalidTrigger, platform, k)
			}
		}
		return nil
	}
	switch platform {
	case "device":
		return need("device_id", "type")
	case "zone":
		return need("entity_id", "zone", "event")
	case "state", "numeric_state":
		if len(stringList(t["entity_id"])) == 0 {
			return fmt.Errorf("%w: %s trigger missing entity_id", ErrInvalidTrigger, platform)
		}
		return nil
	case "sun":
		return need("event")
	case "mqtt":
		return need("topic")
	}
	// Custom platforms validate only the common schema.
	return nil
}

// validateCondition checks the common condition schema: every entry
// must name its condition kind.
func validateCondition(cond map[string]any) error {
	if stringAttr(cond, "condition") == "" {
		return fmt.Errorf("%w: missing condition kind", ErrInvalidCondition)
	}
	return nil
}

// stringList lifts a scalar-or-list field into a string slice.
func stringList(v any) []string {
	switch x := v.(type) {
	case string:
		return []string{x}
	case []any:
		out := make([]string, 0, len(x))
		for _, it := range x {
			if s, ok := it.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return x
	}
	return nil
}

// formatDelay renders the platform's time-period representation the
// way its own tooling prints it: H:MM:SS with optional fractions.
func formatDelay(v any) string {
	switch d := v.(type) {
	case string:
		return d
	case float64:
		return clockString(0, 0, int64(d), 0)
	case map[string]any:
		days := intAttr(d, "days")
		h := intAttr(d, "hours")
		m := intAttr(d, "minutes")
		s := intAttr(d, "seconds")
		ms := intAttr(d, "milliseconds")
		return clockString(days*24+h, m, s, ms)
	}
	return fmt.Sprint(v)
}

func clockString(h, m, s, ms int64) string {
	// Normalize overflow the way a duration type would; whole days
	// split off into a "N day(s), " prefix.
	s, ms = s+ms/1000, ms%1000
	m, s = m+s/60, s%60
	h, m = h+m/60, m%60
	days := h / 24
	h %= 24
	out := fmt.Sprintf("%d:%02d:%02d", h, m, s)
	if ms > 0 {
		out += fmt.Sprintf(".%06d", ms*1000)
	}
	switch {
	case days == 1:
		out = "1 day, " + out
	case days > 1:
		out = fmt.Sprintf("%d days, ", days) + out
	}
	return out
}

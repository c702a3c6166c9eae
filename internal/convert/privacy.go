package convert

import (
	"context"
	"fmt"

	"github.com/foldr-org/howl/internal/graph"
	"github.com/foldr-org/howl/internal/hass"
)

// Privacy decides which object categories keep their real names and
// owns the anonymization counter for one run. A nil allow-set means
// full disclosure; otherwise any category outside the set has its name
// replaced by a counter-based placeholder. The counter is strictly
// increasing within a run and resets with the next run, so anonymized
// URIs are unique and stable per run but not across runs.
type Privacy struct {
	allow   map[string]struct{}
	counter int
}

// NewPrivacy builds the filter. Disabled means no anonymization ever.
// An enabled filter with an empty list applies the built-in default
// allow-set; an explicit list is used verbatim.
func NewPrivacy(enabled bool, allow []string) *Privacy {
	if !enabled {
		return &Privacy{}
	}
	set := make(map[string]struct{})
	if len(allow) == 0 {
		for _, p := range hass.Platforms() {
			set[p] = struct{}{}
		}
		// Device registry identifiers.
		set["device"] = struct{}{}
		// Useful components usually worth exporting that are not
		// entity platforms in core.
		for _, p := range []string{"automation", "climate", "input_datetime", "sun", "time"} {
			set[p] = struct{}{}
		}
		// Mobile devices reveal people; keep them anonymous by default.
		delete(set, "device_tracker")
		// Self-defined area names and zones.
		set["area"] = struct{}{}
		set["zone"] = struct{}{}
	} else {
		for _, p := range allow {
			set[p] = struct{}{}
		}
	}
	return &Privacy{allow: set}
}

// Allows reports whether objects of the category keep their real name.
func (p *Privacy) Allows(category string) bool {
	if p.allow == nil {
		return true
	}
	_, ok := p.allow[category]
	return ok
}

// Enabled reports whether any anonymization is active.
func (p *Privacy) Enabled() bool {
	return p.allow != nil
}

// Describe renders the allow-set for logging.
func (p *Privacy) Describe() string {
	if p.allow == nil {
		return "ALL"
	}
	return fmt.Sprintf("%d categories", len(p.allow))
}

func (p *Privacy) nextPlaceholder(prefix string) string {
	name := fmt.Sprintf("%s_%d", prefix, p.counter)
	p.counter++
	return name
}

// EntityURI mints the node for an entity id, anonymizing the name part
// when the domain is filtered. It returns the node and the (possibly
// anonymized) name, which callers reuse for derived object names.
func (p *Privacy) EntityURI(mine graph.Namespace, entityID string) (graph.URIRef, string, error) {
	domain, name, err := splitEntityID(entityID)
	if err != nil {
		return "", "", err
	}
	if !p.Allows(domain) {
		name = p.nextPlaceholder("entity")
	}
	return mine.Term("entity/" + domain + "_" + mkname(name)), name, nil
}

// AreaURI mints the node for an area name, anonymizing when areas are
// filtered.
func (p *Privacy) AreaURI(mine graph.Namespace, name string) graph.URIRef {
	if !p.Allows("area") {
		name = p.nextPlaceholder("entity")
	}
	return mine.Term("area/" + mkname(name))
}

// DeviceURI mints the node for a device. Naming prefers the user
// override, then the manufacturer-provided name, then the raw id.
func (p *Privacy) DeviceURI(ctx context.Context, src Source, mine graph.Namespace, deviceID string) (graph.URIRef, error) {
	name, err := src.DeviceAttr(ctx, deviceID, hass.DeviceAttrName)
	if err != nil {
		return "", err
	}
	if !p.Allows("device") {
		name = p.nextPlaceholder("device")
	} else {
		byUser, err := src.DeviceAttr(ctx, deviceID, hass.DeviceAttrNameByUser)
		if err != nil {
			return "", err
		}
		if byUser != hass.None {
			name = byUser
		}
	}
	if name == hass.None {
		name = deviceID
	}
	return mine.Term(mkname(name)), nil
}

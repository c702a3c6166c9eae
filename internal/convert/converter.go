package convert

import (
	"context"
	"errors"
	"strings"

	"github.com/foldr-org/howl/internal/graph"
	"github.com/foldr-org/howl/internal/hass"
	"github.com/foldr-org/howl/internal/infrastructure/logging"
	"github.com/foldr-org/howl/internal/ontology"
)

// Options configures one Converter instance.
type Options struct {
	// Namespace is the base URI instance nodes are minted under. A
	// trailing slash is appended when missing.
	Namespace string

	// PrivacyEnabled turns on name anonymization; PrivacyAllow lists
	// the categories that keep their real names (empty means the
	// built-in default allow-set).
	PrivacyEnabled bool
	PrivacyAllow   []string

	// MasterURL overrides where the reference ontology is fetched
	// from. Empty means the published location.
	MasterURL string
}

// Stats counts what one run produced and skipped.
type Stats struct {
	Devices            int
	Entities           int
	SkippedEntities    int
	Automations        int
	SkippedAutomations int
	Triples            int
}

// Converter drives one export: it walks the device registry and state
// machine of a single installation and grows an RDF graph. A Converter
// is single-use and not safe for concurrent calls; the privacy counter
// and memoization caches are scoped to it.
type Converter struct {
	src     Source
	log     *logging.Logger
	opts    Options
	master  *ontology.Master
	mine    graph.Namespace
	privacy *Privacy

	g        *graph.Graph
	table    map[string]*classMapping
	props    *propertyCache
	services map[string][]string
	stats    Stats
}

// New builds a Converter over the given source.
func New(src Source, log *logging.Logger, opts Options) *Converter {
	ns := opts.Namespace
	if ns == "" {
		ns = "http://my.name.space/"
	}
	if !strings.HasSuffix(ns, "/") && !strings.HasSuffix(ns, "#") {
		ns += "/"
	}
	return &Converter{
		src:     src,
		log:     log.With("component", "convert"),
		opts:    opts,
		mine:    graph.Namespace(ns),
		privacy: NewPrivacy(opts.PrivacyEnabled, opts.PrivacyAllow),
	}
}

// SetMaster injects a pre-parsed reference ontology, bypassing the
// network fetch. Used by tests and by callers that cache the document.
func (c *Converter) SetMaster(m *ontology.Master) {
	c.master = m
}

// Stats returns the counters of the last Run or Metamodel call.
func (c *Converter) Stats() Stats {
	return c.stats
}

func (c *Converter) ensureMaster(ctx context.Context) error {
	if c.master != nil {
		return nil
	}
	url := c.opts.MasterURL
	if url == "" {
		url = ontology.DefaultMasterURL
	}
	c.log.Info("fetching reference ontology", "url", url)
	m, err := ontology.Fetch(ctx, url)
	if err != nil {
		return err
	}
	c.master = m
	return nil
}

func (c *Converter) prepare(ctx context.Context, mode MetamodelMode) error {
	if err := c.ensureMaster(ctx); err != nil {
		return err
	}
	services, err := c.src.Services(ctx)
	if err != nil {
		return err
	}
	c.services = services
	c.g = graph.New()
	c.props = newPropertyCache(c.master)
	c.table = setupMetamodel(c.g, c.mine, mode, c.master, services)
	c.stats = Stats{}
	return nil
}

// Run performs a full export and returns the instance graph. Source
// failures abort; per-object schema problems are logged and counted
// but never stop the walk.
func (c *Converter) Run(ctx context.Context) (*graph.Graph, error) {
	if err := c.prepare(ctx, ModeImport); err != nil {
		return nil, err
	}
	c.log.Info("starting export",
		"namespace", string(c.mine),
		"privacy", c.privacy.Describe(),
	)

	devices, err := c.src.Devices(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if err := c.handleDevice(ctx, d); err != nil {
			return nil, err
		}
	}

	if err := c.handleStandalone(ctx); err != nil {
		return nil, err
	}

	c.stats.Triples = c.g.Len()
	c.log.Info("export finished",
		"devices", c.stats.Devices,
		"entities", c.stats.Entities,
		"automations", c.stats.Automations,
		"skipped_entities", c.stats.SkippedEntities,
		"skipped_automations", c.stats.SkippedAutomations,
		"triples", c.stats.Triples,
	)
	return c.g, nil
}

// handleStandalone walks the state machine for everything the device
// registry does not own: automations and device-less entities like
// helpers, zones and the sun.
func (c *Converter) handleStandalone(ctx context.Context) error {
	states, err := c.src.States(ctx)
	if err != nil {
		return err
	}
	for _, st := range states {
		domain, name, err := splitEntityID(st.EntityID)
		if err != nil {
			c.log.Warn("skipping malformed entity id", "entity", st.EntityID, "error", err)
			c.stats.SkippedEntities++
			continue
		}

		owner, err := c.src.DeviceID(ctx, st.EntityID)
		if err != nil {
			return err
		}
		if owner != hass.None {
			// Already covered by the device walk.
			continue
		}

		if domain == "automation" {
			if err := c.handleAutomation(ctx, st.Attributes, name); err != nil {
				if isSchemaError(err) {
					c.log.Warn("skipping automation", "automation", name, "error", err)
					c.stats.SkippedAutomations++
					continue
				}
				return err
			}
			continue
		}

		if _, _, err := c.handleEntity(ctx, "", st.EntityID); err != nil {
			if errors.Is(err, ErrMalformedEntityID) {
				c.log.Warn("skipping malformed entity id", "entity", st.EntityID, "error", err)
				c.stats.SkippedEntities++
				continue
			}
			return err
		}
	}
	return nil
}

// isSchemaError separates per-automation configuration problems from
// source failures that must abort the run.
func isSchemaError(err error) bool {
	return errors.Is(err, ErrMissingAutomationID) ||
		errors.Is(err, ErrInvalidTrigger) ||
		errors.Is(err, ErrInvalidCondition) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMalformedEntityID)
}

// Metamodel produces the standalone vocabulary document instead of an
// instance graph. The same class-resolution table backs both, so an
// instance graph from Run always fits the schema from Metamodel.
func (c *Converter) Metamodel(ctx context.Context) (*graph.Graph, error) {
	if err := c.prepare(ctx, ModeSchema); err != nil {
		return nil, err
	}
	c.stats.Triples = c.g.Len()
	return c.g, nil
}

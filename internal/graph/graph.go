package graph

// Triple is a single (subject, predicate, object) statement.
type Triple struct {
	Subject   URIRef
	Predicate URIRef
	Object    Term
}

// Pattern matches triples. Nil fields are wildcards; Subject and
// Predicate, when set, must be URIRefs.
type Pattern struct {
	Subject   *URIRef
	Predicate *URIRef
	Object    Term
}

// S builds a subject-only pattern.
func S(s URIRef) Pattern { return Pattern{Subject: &s} }

// SP builds a subject+predicate pattern.
func SP(s, p URIRef) Pattern { return Pattern{Subject: &s, Predicate: &p} }

// PO builds a predicate+object pattern.
func PO(p URIRef, o Term) Pattern { return Pattern{Predicate: &p, Object: o} }

func (p Pattern) matches(t Triple) bool {
	if p.Subject != nil && *p.Subject != t.Subject {
		return false
	}
	if p.Predicate != nil && *p.Predicate != t.Predicate {
		return false
	}
	if p.Object != nil && p.Object != t.Object {
		return false
	}
	return true
}

// Graph is an insertion-ordered, duplicate-free triple store with
// namespace prefix bindings for serialization.
type Graph struct {
	triples  []Triple
	seen     map[Triple]struct{}
	prefixes []binding
}

type binding struct {
	prefix string
	ns     Namespace
}

// New returns an empty graph with the core vocabularies pre-bound.
func New() *Graph {
	g := &Graph{seen: make(map[Triple]struct{})}
	g.Bind("rdf", RDF)
	g.Bind("rdfs", RDFS)
	g.Bind("owl", OWL)
	g.Bind("xsd", XSD)
	return g
}

// Bind registers a prefix for Turtle output. Rebinding a prefix
// replaces its namespace.
func (g *Graph) Bind(prefix string, ns Namespace) {
	for i, b := range g.prefixes {
		if b.prefix == prefix {
			g.prefixes[i].ns = ns
			return
		}
	}
	g.prefixes = append(g.prefixes, binding{prefix: prefix, ns: ns})
}

// Add inserts a triple. Duplicate insertions are ignored, which is what
// makes repeated class declarations idempotent.
func (g *Graph) Add(s, p URIRef, o Term) {
	t := Triple{Subject: s, Predicate: p, Object: o}
	if _, ok := g.seen[t]; ok {
		return
	}
	g.seen[t] = struct{}{}
	g.triples = append(g.triples, t)
}

// Remove deletes every triple matching the pattern.
func (g *Graph) Remove(p Pattern) {
	kept := g.triples[:0]
	for _, t := range g.triples {
		if p.matches(t) {
			delete(g.seen, t)
			continue
		}
		kept = append(kept, t)
	}
	g.triples = kept
}

// Triples returns all triples matching the pattern in insertion order.
func (g *Graph) Triples(p Pattern) []Triple {
	var out []Triple
	for _, t := range g.triples {
		if p.matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Contains reports whether at least one triple matches the pattern.
func (g *Graph) Contains(p Pattern) bool {
	for _, t := range g.triples {
		if p.matches(t) {
			return true
		}
	}
	return false
}

// Len returns the number of stored triples.
func (g *Graph) Len() int {
	return len(g.triples)
}

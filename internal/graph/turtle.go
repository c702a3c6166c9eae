package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Serialize writes the graph as Turtle. Triples sharing a subject are
// grouped into one statement block; prefix bindings compress IRIs where
// the local part is a valid Turtle local name.
func (g *Graph) Serialize(w io.Writer) error {
	for _, b := range g.prefixes {
		if _, err := fmt.Fprintf(w, "@prefix %s: <%s> .\n", b.prefix, string(b.ns)); err != nil {
			return err
		}
	}
	if len(g.prefixes) > 0 {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}

	// Group by subject, preserving first-seen subject order.
	order := make([]URIRef, 0)
	bySubject := make(map[URIRef][]Triple)
	for _, t := range g.triples {
		if _, ok := bySubject[t.Subject]; !ok {
			order = append(order, t.Subject)
		}
		bySubject[t.Subject] = append(bySubject[t.Subject], t)
	}

	for _, s := range order {
		ts := bySubject[s]
		if _, err := fmt.Fprintf(w, "%s ", g.qname(s)); err != nil {
			return err
		}
		for i, t := range ts {
			sep := " ;\n    "
			if i == len(ts)-1 {
				sep = " .\n\n"
			}
			if _, err := fmt.Fprintf(w, "%s %s%s", g.qname(t.Predicate), g.renderObject(t.Object), sep); err != nil {
				return err
			}
		}
	}
	return nil
}

// String returns the Turtle serialization.
func (g *Graph) String() string {
	var sb strings.Builder
	_ = g.Serialize(&sb)
	return sb.String()
}

func (g *Graph) renderObject(o Term) string {
	if u, ok := o.(URIRef); ok {
		return g.qname(u)
	}
	if l, ok := o.(Literal); ok && l.Datatype != "" && l.Datatype != XSDString {
		v := Literal{Value: l.Value}.NTriples()
		return v + "^^" + g.qname(l.Datatype)
	}
	return o.NTriples()
}

// qname compresses an IRI against the longest matching bound namespace.
// Predicates rdf:type compress to "a" per Turtle convention.
func (g *Graph) qname(u URIRef) string {
	if u == RDFType {
		return "a"
	}
	best := -1
	for i, b := range g.prefixes {
		ns := string(b.ns)
		if strings.HasPrefix(string(u), ns) && (best < 0 || len(ns) > len(string(g.prefixes[best].ns))) {
			if validLocalName(strings.TrimPrefix(string(u), ns)) {
				best = i
			}
		}
	}
	if best < 0 {
		return u.NTriples()
	}
	return g.prefixes[best].prefix + ":" + strings.TrimPrefix(string(u), string(g.prefixes[best].ns))
}

func validLocalName(local string) bool {
	if local == "" {
		return false
	}
	for _, r := range local {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return false
		}
	}
	// A trailing dot would be parsed as statement end.
	return !strings.HasSuffix(local, ".")
}

// SortedTriples returns a stable lexicographic listing, used by tests
// and diff-friendly exports.
func (g *Graph) SortedTriples() []Triple {
	out := make([]Triple, len(g.triples))
	copy(out, g.triples)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		if out[i].Predicate != out[j].Predicate {
			return out[i].Predicate < out[j].Predicate
		}
		return out[i].Object.NTriples() < out[j].Object.NTriples()
	})
	return out
}

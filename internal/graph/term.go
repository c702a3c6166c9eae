package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// Term is either a URIRef or a Literal. Only these two types implement it.
type Term interface {
	// NTriples renders the term in N-Triples form (no prefix compression).
	NTriples() string
}

// URIRef is an absolute IRI identifying a node or predicate.
type URIRef string

// NTriples renders the IRI wrapped in angle brackets.
func (u URIRef) NTriples() string {
	return "<" + string(u) + ">"
}

// Literal is an RDF literal with an optional datatype.
type Literal struct {
	Value    string
	Datatype URIRef // empty for plain literals
}

// NTriples renders the literal with escaping and datatype suffix.
func (l Literal) NTriples() string {
	v := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`).Replace(l.Value)
	if l.Datatype == "" || l.Datatype == XSD.Term("string") {
		return `"` + v + `"`
	}
	return `"` + v + `"^^` + l.Datatype.NTriples()
}

// NewLiteral builds a Literal from a Go value, choosing the XSD datatype
// the way rdflib-style libraries do: strings stay plain, numbers and
// booleans get typed.
func NewLiteral(v any) Literal {
	switch x := v.(type) {
	case string:
		return Literal{Value: x}
	case bool:
		return Literal{Value: strconv.FormatBool(x), Datatype: XSD.Term("boolean")}
	case int:
		return Literal{Value: strconv.Itoa(x), Datatype: XSD.Term("integer")}
	case int64:
		return Literal{Value: strconv.FormatInt(x, 10), Datatype: XSD.Term("integer")}
	case float64:
		return Literal{Value: strconv.FormatFloat(x, 'g', -1, 64), Datatype: XSD.Term("double")}
	default:
		return Literal{Value: fmt.Sprint(v)}
	}
}

// Namespace is an IRI prefix that local names are appended to.
type Namespace string

// Term returns the IRI for a local name within the namespace.
func (ns Namespace) Term(local string) URIRef {
	return URIRef(string(ns) + local)
}

// URI returns the namespace itself as a node, e.g. for owl:imports targets.
func (ns Namespace) URI() URIRef {
	return URIRef(ns)
}

// Well-known vocabularies.
var (
	RDF  = Namespace("http://www.w3.org/1999/02/22-rdf-syntax-ns#")
	RDFS = Namespace("http://www.w3.org/2000/01/rdf-schema#")
	OWL  = Namespace("http://www.w3.org/2002/07/owl#")
	XSD  = Namespace("http://www.w3.org/2001/XMLSchema#")
)

// Frequently used predicates and classes.
var (
	RDFType         = RDF.Term("type")
	RDFSSubClassOf  = RDFS.Term("subClassOf")
	RDFSLabel       = RDFS.Term("label")
	RDFSDomain      = RDFS.Term("domain")
	RDFSRange       = RDFS.Term("range")
	OWLOntology     = OWL.Term("Ontology")
	OWLImports      = OWL.Term("imports")
	OWLInverseOf    = OWL.Term("inverseOf")
	OWLObjectProp   = OWL.Term("ObjectProperty")
	OWLDatatypeProp = OWL.Term("DatatypeProperty")
	XSDString       = XSD.Term("string")
	XSDBoolean      = XSD.Term("boolean")
)

package graph

import "testing"

const sampleTurtle = `
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix owl:  <http://www.w3.org/2002/07/owl#> .
@prefix saref: <https://saref.etsi.org/core/> .

# A slice of the shapes the reference ontology actually uses.
saref:Temperature a owl:Class ;
    rdfs:subClassOf saref:Property ;
    rdfs:label "Temperature"@en ;
    rdfs:comment """A property of
multiple lines.""" .

saref:TemperatureSensor a owl:Class ;
    rdfs:subClassOf saref:Sensor, saref:Device ;
    rdfs:subClassOf [ a owl:Restriction ;
        owl:onProperty saref:measuresProperty ;
        owl:someValuesFrom saref:Temperature ] .

saref:hasValue a owl:DatatypeProperty .
`

func TestParseTurtle(t *testing.T) {
	g, err := ParseTurtle(sampleTurtle)
	if err != nil {
		t.Fatalf("ParseTurtle() error: %v", err)
	}

	saref := Namespace("https://saref.etsi.org/core/")

	if !g.Contains(SP(saref.Term("Temperature"), RDFSSubClassOf)) {
		t.Error("missing subClassOf for saref:Temperature")
	}

	// Object lists expand to one triple per object.
	supers := g.Triples(SP(saref.Term("TemperatureSensor"), RDFSSubClassOf))
	if len(supers) != 3 {
		t.Errorf("expected 3 superclass triples (two named, one restriction), got %d", len(supers))
	}

	// Language tags are dropped but the value survives.
	labels := g.Triples(SP(saref.Term("Temperature"), RDFSLabel))
	if len(labels) != 1 || labels[0].Object.(Literal).Value != "Temperature" {
		t.Errorf("unexpected label triples: %v", labels)
	}
}

func TestParseTurtleErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown prefix", `foo:a foo:b foo:c .`},
		{"unterminated iri", `<http://example.org/a`},
		{"missing terminator", `<http://x/a> <http://x/b> <http://x/c>`},
		{"unterminated string", `<http://x/a> <http://x/b> "oops`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTurtle(tt.doc); err == nil {
				t.Error("expected parse error, got nil")
			}
		})
	}
}

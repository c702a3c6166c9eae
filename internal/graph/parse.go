package graph

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseTurtle reads a Turtle document into the graph. It covers the
// subset the reference ontologies use: prefix directives, predicate
// and object lists, IRIs, prefixed names, literals (including long
// strings, language tags and datatypes), numbers, booleans, anonymous
// blank nodes and collections. Blank nodes are materialized as
// synthetic IRIs so pattern queries stay uniform.
func ParseTurtle(doc string) (*Graph, error) {
	g := New()
	p := &ttlParser{g: g, input: doc, prefixes: map[string]string{}}
	if err := p.run(); err != nil {
		return nil, err
	}
	return g, nil
}

type ttlParser struct {
	g        *Graph
	input    string
	pos      int
	prefixes map[string]string
	base     string
	bnodeSeq int
}

func (p *ttlParser) run() error {
	for {
		p.skipWS()
		if p.pos >= len(p.input) {
			return nil
		}
		if p.hasDirective("@prefix") || p.hasDirective("PREFIX") {
			if err := p.parsePrefix(); err != nil {
				return err
			}
			continue
		}
		if p.hasDirective("@base") || p.hasDirective("BASE") {
			if err := p.parseBase(); err != nil {
				return err
			}
			continue
		}
		if err := p.parseStatement(); err != nil {
			return err
		}
	}
}

func (p *ttlParser) hasDirective(d string) bool {
	return strings.HasPrefix(p.input[p.pos:], d)
}

func (p *ttlParser) parsePrefix() error {
	atForm := p.input[p.pos] == '@'
	p.pos += len("@prefix")
	if !atForm {
		p.pos = p.pos - len("@prefix") + len("PREFIX")
	}
	p.skipWS()
	end := strings.IndexByte(p.input[p.pos:], ':')
	if end < 0 {
		return fmt.Errorf("turtle: malformed prefix directive at offset %d", p.pos)
	}
	name := strings.TrimSpace(p.input[p.pos : p.pos+end])
	p.pos += end + 1
	p.skipWS()
	iri, err := p.parseIRIRef()
	if err != nil {
		return err
	}
	p.prefixes[name] = iri
	p.skipWS()
	if atForm {
		if p.pos >= len(p.input) || p.input[p.pos] != '.' {
			return fmt.Errorf("turtle: prefix directive missing terminator at offset %d", p.pos)
		}
		p.pos++
	}
	return nil
}

func (p *ttlParser) parseBase() error {
	atForm := p.input[p.pos] == '@'
	if atForm {
		p.pos += len("@base")
	} else {
		p.pos += len("BASE")
	}
	p.skipWS()
	iri, err := p.parseIRIRef()
	if err != nil {
		return err
	}
	p.base = iri
	p.skipWS()
	if atForm && p.pos < len(p.input) && p.input[p.pos] == '.' {
		p.pos++
	}
	return nil
}

func (p *ttlParser) parseStatement() error {
	subj, err := p.parseNode()
	if err != nil {
		return err
	}
	s, ok := subj.(URIRef)
	if !ok {
		return fmt.Errorf("turtle: literal subject at offset %d", p.pos)
	}
	if err := p.parsePredicateObjectList(s); err != nil {
		return err
	}
	p.skipWS()
	if p.pos >= len(p.input) || p.input[p.pos] != '.' {
		return fmt.Errorf("turtle: statement missing terminator at offset %d", p.pos)
	}
	p.pos++
	return nil
}

func (p *ttlParser) parsePredicateObjectList(s URIRef) error {
	for {
		p.skipWS()
		pred, err := p.parsePredicate()
		if err != nil {
			return err
		}
		for {
			p.skipWS()
			obj, err := p.parseNode()
			if err != nil {
				return err
			}
			p.g.Add(s, pred, obj)
			p.skipWS()
			if p.pos < len(p.input) && p.input[p.pos] == ',' {
				p.pos++
				continue
			}
			break
		}
		if p.pos < len(p.input) && p.input[p.pos] == ';' {
			p.pos++
			p.skipWS()
			// Trailing semicolon before '.' or ']' is legal.
			if p.pos < len(p.input) && (p.input[p.pos] == '.' || p.input[p.pos] == ']') {
				return nil
			}
			continue
		}
		return nil
	}
}

func (p *ttlParser) parsePredicate() (URIRef, error) {
	if p.pos < len(p.input) && p.input[p.pos] == 'a' {
		if p.pos+1 >= len(p.input) || isWS(p.input[p.pos+1]) {
			p.pos++
			return RDFType, nil
		}
	}
	n, err := p.parseNode()
	if err != nil {
		return "", err
	}
	u, ok := n.(URIRef)
	if !ok {
		return "", fmt.Errorf("turtle: literal predicate at offset %d", p.pos)
	}
	return u, nil
}

// parseNode parses an IRI, prefixed name, blank node, collection,
// literal, number or boolean.
func (p *ttlParser) parseNode() (Term, error) {
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("turtle: unexpected end of input")
	}
	switch c := p.input[p.pos]; {
	case c == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return URIRef(iri), nil
	case c == '"' || c == '\'':
		return p.parseLiteral()
	case c == '_':
		return p.parseBlankNodeLabel()
	case c == '[':
		return p.parseAnonBlankNode()
	case c == '(':
		return p.parseCollection()
	case c == '+' || c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		if strings.HasPrefix(p.input[p.pos:], "true") {
			p.pos += 4
			return Literal{Value: "true", Datatype: XSDBoolean}, nil
		}
		if strings.HasPrefix(p.input[p.pos:], "false") {
			p.pos += 5
			return Literal{Value: "false", Datatype: XSDBoolean}, nil
		}
		return p.parsePrefixedName()
	}
}

func (p *ttlParser) parseIRIRef() (string, error) {
	if p.pos >= len(p.input) || p.input[p.pos] != '<' {
		return "", fmt.Errorf("turtle: expected IRI at offset %d", p.pos)
	}
	end := strings.IndexByte(p.input[p.pos:], '>')
	if end < 0 {
		return "", fmt.Errorf("turtle: unterminated IRI at offset %d", p.pos)
	}
	iri := p.input[p.pos+1 : p.pos+end]
	p.pos += end + 1
	if p.base != "" && !strings.Contains(iri, ":") {
		iri = p.base + iri
	}
	return iri, nil
}

func (p *ttlParser) parsePrefixedName() (Term, error) {
	start := p.pos
	for p.pos < len(p.input) && !isWS(p.input[p.pos]) &&
		!strings.ContainsRune(",;.)]", rune(p.input[p.pos])) {
		p.pos++
	}
	// A qname may legally end in '.' only when followed by a name char,
	// so strip trailing dots that belong to the statement.
	tok := p.input[start:p.pos]
	for strings.HasSuffix(tok, ".") {
		tok = tok[:len(tok)-1]
		p.pos--
	}
	colon := strings.IndexByte(tok, ':')
	if colon < 0 {
		return nil, fmt.Errorf("turtle: unrecognized token %q at offset %d", tok, start)
	}
	ns, ok := p.prefixes[tok[:colon]]
	if !ok {
		return nil, fmt.Errorf("turtle: unknown prefix %q at offset %d", tok[:colon], start)
	}
	return URIRef(ns + tok[colon+1:]), nil
}

func (p *ttlParser) parseBlankNodeLabel() (Term, error) {
	start := p.pos
	for p.pos < len(p.input) && !isWS(p.input[p.pos]) &&
		!strings.ContainsRune(",;.)]", rune(p.input[p.pos])) {
		p.pos++
	}
	return URIRef("bnode:" + p.input[start+2:p.pos]), nil
}

func (p *ttlParser) parseAnonBlankNode() (Term, error) {
	p.pos++ // consume '['
	p.bnodeSeq++
	node := URIRef(fmt.Sprintf("bnode:anon%d", p.bnodeSeq))
	p.skipWS()
	if p.pos < len(p.input) && p.input[p.pos] == ']' {
		p.pos++
		return node, nil
	}
	if err := p.parsePredicateObjectList(node); err != nil {
		return nil, err
	}
	p.skipWS()
	if p.pos >= len(p.input) || p.input[p.pos] != ']' {
		return nil, fmt.Errorf("turtle: unterminated blank node at offset %d", p.pos)
	}
	p.pos++
	return node, nil
}

func (p *ttlParser) parseCollection() (Term, error) {
	p.pos++ // consume '('
	first := RDF.Term("nil")
	var prev URIRef
	for {
		p.skipWS()
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("turtle: unterminated collection")
		}
		if p.input[p.pos] == ')' {
			p.pos++
			if prev != "" {
				p.g.Add(prev, RDF.Term("rest"), RDF.Term("nil"))
			}
			return first, nil
		}
		item, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		p.bnodeSeq++
		cell := URIRef(fmt.Sprintf("bnode:list%d", p.bnodeSeq))
		if prev == "" {
			first = cell
		} else {
			p.g.Add(prev, RDF.Term("rest"), cell)
		}
		p.g.Add(cell, RDF.Term("first"), item)
		prev = cell
	}
}

func (p *ttlParser) parseLiteral() (Term, error) {
	quote := p.input[p.pos]
	long := strings.HasPrefix(p.input[p.pos:], strings.Repeat(string(quote), 3))
	var value string
	if long {
		delim := strings.Repeat(string(quote), 3)
		end := strings.Index(p.input[p.pos+3:], delim)
		if end < 0 {
			return nil, fmt.Errorf("turtle: unterminated long string at offset %d", p.pos)
		}
		value = p.input[p.pos+3 : p.pos+3+end]
		p.pos += 3 + end + 3
	} else {
		var sb strings.Builder
		i := p.pos + 1
		for i < len(p.input) && p.input[i] != quote {
			if p.input[i] == '\\' && i+1 < len(p.input) {
				switch p.input[i+1] {
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				case 'r':
					sb.WriteByte('\r')
				default:
					sb.WriteByte(p.input[i+1])
				}
				i += 2
				continue
			}
			sb.WriteByte(p.input[i])
			i++
		}
		if i >= len(p.input) {
			return nil, fmt.Errorf("turtle: unterminated string at offset %d", p.pos)
		}
		value = sb.String()
		p.pos = i + 1
	}
	// Optional language tag or datatype; language tags are dropped.
	if strings.HasPrefix(p.input[p.pos:], "@") {
		p.pos++
		for p.pos < len(p.input) && !isWS(p.input[p.pos]) &&
			!strings.ContainsRune(",;.)]", rune(p.input[p.pos])) {
			p.pos++
		}
		return Literal{Value: value}, nil
	}
	if strings.HasPrefix(p.input[p.pos:], "^^") {
		p.pos += 2
		dt, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		u, ok := dt.(URIRef)
		if !ok {
			return nil, fmt.Errorf("turtle: literal datatype must be an IRI at offset %d", p.pos)
		}
		return Literal{Value: value, Datatype: u}, nil
	}
	return Literal{Value: value}, nil
}

func (p *ttlParser) parseNumber() (Term, error) {
	start := p.pos
	isDouble := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '.' {
			// A dot followed by a non-digit terminates the statement.
			if p.pos+1 >= len(p.input) || p.input[p.pos+1] < '0' || p.input[p.pos+1] > '9' {
				break
			}
			isDouble = true
		} else if c == 'e' || c == 'E' {
			isDouble = true
		} else if c != '+' && c != '-' && (c < '0' || c > '9') {
			break
		}
		p.pos++
	}
	dt := XSD.Term("integer")
	if isDouble {
		dt = XSD.Term("decimal")
	}
	return Literal{Value: p.input[start:p.pos], Datatype: dt}, nil
}

func (p *ttlParser) skipWS() {
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '#' {
			nl := strings.IndexByte(p.input[p.pos:], '\n')
			if nl < 0 {
				p.pos = len(p.input)
				return
			}
			p.pos += nl + 1
			continue
		}
		if !isWS(c) {
			return
		}
		p.pos++
	}
}

func isWS(c byte) bool {
	return unicode.IsSpace(rune(c))
}

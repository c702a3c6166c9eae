// Package graph provides an in-memory RDF triple store.
//
// The store is the sole owner of all triples produced by a translation
// run. It supports pattern-matched lookup and removal, namespace prefix
// binding, Turtle serialization, and parsing of the Turtle subset used
// by the reference ontologies it loads.
//
// Thread Safety:
//   - A Graph is NOT safe for concurrent use. Each translation run owns
//     its own instance; runs never share state.
package graph

package ontology

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/foldr-org/howl/internal/graph"
)

// ErrMasterFetch is returned when the master ontology cannot be
// retrieved or parsed. This is fatal to a run: without the master list
// we would mint duplicate classes for concepts SAREF already defines.
var ErrMasterFetch = errors.New("ontology: master fetch failed")

// Master is the read-only reference ontology. It answers one question:
// does a class with a given local name already exist under a given
// superclass?
type Master struct {
	g *graph.Graph
}

// Fetch downloads and parses the master ontology document.
func Fetch(ctx context.Context, url string) (*Master, error) {
	client := &http.Client{Timeout: 60 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMasterFetch, err)
	}
	req.Header.Set("Accept", "text/turtle")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMasterFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from %s", ErrMasterFetch, resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMasterFetch, err)
	}
	return Parse(string(body))
}

// Parse builds a Master from a Turtle document already in hand.
func Parse(doc string) (*Master, error) {
	g, err := graph.ParseTurtle(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMasterFetch, err)
	}
	return &Master{g: g}, nil
}

// Empty returns a master with no known classes. Every lookup misses,
// so all classes are minted fresh.
func Empty() *Master {
	return &Master{g: graph.New()}
}

// LocalClass looks for an existing subclass of ns<super> whose IRI ends
// in "/<local>". On a hit it returns ns<local> so callers reuse the
// reference definition instead of creating their own.
func (m *Master) LocalClass(ns graph.Namespace, super, local string) (graph.URIRef, bool) {
	for _, t := range m.g.Triples(graph.PO(graph.RDFSSubClassOf, ns.Term(super))) {
		if strings.HasSuffix(string(t.Subject), "/"+local) {
			return ns.Term(local), true
		}
	}
	return "", false
}

package evidence

import (
	"fmt"
	"sort"

	"github.com/zero-day-ai/webstrike/scanerr"
)

// Channel identifies how a piece of evidence was discovered.
type Channel string

const (
	// ChannelSeed marks evidence carried over from the target identity.
	ChannelSeed Channel = "seed"

	// ChannelProbe marks evidence from liveness probing.
	ChannelProbe Channel = "probe"

	// ChannelCrawl marks evidence from crawling.
	ChannelCrawl Channel = "crawl"

	// ChannelFuzz marks evidence from content fuzzing.
	ChannelFuzz Channel = "fuzz"

	// ChannelMining marks evidence from dedicated parameter mining.
	ChannelMining Channel = "mining"
)

// EndpointNode is one endpoint in the graph: its canonical path, the HTTP
// methods seen on it, and the parameters referenced from it.
type EndpointNode struct {
	Path    string
	Methods map[string]bool
	Params  map[string]*ParamNode
}

// ParamNode is one parameter in the graph: the endpoints it appears on, the
// channels that discovered it, and its heuristic taint flags.
type ParamNode struct {
	Name      string
	Endpoints map[string]bool
	Channels  map[Channel]bool
	Taints    map[Taint]bool
	Reflected bool
}

// Graph tracks per-parameter provenance so the gate can compute
// per-operation target lists instead of site-wide booleans. Appends are
// refused after Finalize.
type Graph struct {
	endpoints map[string]*EndpointNode
	params    map[string]*ParamNode
	finalized bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		endpoints: make(map[string]*EndpointNode),
		params:    make(map[string]*ParamNode),
	}
}

func (g *Graph) frozen(op string) error {
	if g.finalized {
		return scanerr.Violation(op, scanerr.ErrCodeGraphFinalized,
			"graph is finalized", scanerr.ErrGraphFinalized)
	}
	return nil
}

// AddEndpoint inserts an endpoint by its raw reference, normalizing it and
// indexing any query-parameter names found. It returns the canonical path.
func (g *Graph) AddEndpoint(raw, method string, channel Channel) (string, error) {
	if err := g.frozen("graph.AddEndpoint"); err != nil {
		return "", err
	}

	path, queryParams := Normalize(raw)
	node, ok := g.endpoints[path]
	if !ok {
		node = &EndpointNode{
			Path:    path,
			Methods: make(map[string]bool),
			Params:  make(map[string]*ParamNode),
		}
		g.endpoints[path] = node
	}
	if method != "" {
		node.Methods[method] = true
	}
	for _, name := range queryParams {
		if err := g.addParam(name, path, channel); err != nil {
			return "", err
		}
	}
	return path, nil
}

// AddParam attaches a parameter to an endpoint, classifying its name against
// the hint vocabularies on first sight.
func (g *Graph) AddParam(name, rawEndpoint string, channel Channel) error {
	if err := g.frozen("graph.AddParam"); err != nil {
		return err
	}
	path, _, err := g.ensureEndpoint(rawEndpoint, channel)
	if err != nil {
		return err
	}
	return g.addParam(name, path, channel)
}

func (g *Graph) ensureEndpoint(raw string, channel Channel) (string, *EndpointNode, error) {
	path, err := g.AddEndpoint(raw, "", channel)
	if err != nil {
		return "", nil, err
	}
	return path, g.endpoints[path], nil
}

func (g *Graph) addParam(name, path string, channel Channel) error {
	if name == "" {
		return scanerr.Operational("graph.AddParam",
			scanerr.ErrCodeInvalidInput, "empty parameter name")
	}

	p, ok := g.params[name]
	if !ok {
		p = &ParamNode{
			Name:      name,
			Endpoints: make(map[string]bool),
			Channels:  make(map[Channel]bool),
			Taints:    make(map[Taint]bool),
		}
		for _, taint := range ClassifyParam(name) {
			p.Taints[taint] = true
		}
		g.params[name] = p
	}
	p.Endpoints[path] = true
	p.Channels[channel] = true

	if node, ok := g.endpoints[path]; ok {
		node.Params[name] = p
	}
	return nil
}

// MarkReflected flags a parameter as observed reflecting into a response.
func (g *Graph) MarkReflected(name string) error {
	if err := g.frozen("graph.MarkReflected"); err != nil {
		return err
	}
	p, ok := g.params[name]
	if !ok {
		return scanerr.Operational("graph.MarkReflected",
			scanerr.ErrCodeInvalidInput,
			fmt.Sprintf("unknown parameter %q", name))
	}
	p.Reflected = true
	return nil
}

// Finalize ends the append phase. Taint queries are stable afterwards.
func (g *Graph) Finalize() {
	g.finalized = true
}

// Finalized reports whether the graph has been finalized.
func (g *Graph) Finalized() bool {
	return g.finalized
}

// TaintedParams returns the names of parameters carrying the taint, sorted.
func (g *Graph) TaintedParams(taint Taint) []string {
	var out []string
	for name, p := range g.params {
		if p.Taints[taint] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ReflectedParams returns parameters observed reflecting, sorted.
func (g *Graph) ReflectedParams() []string {
	var out []string
	for name, p := range g.params {
		if p.Reflected {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// EndpointsWithParams returns every endpoint owning at least one parameter,
// sorted.
func (g *Graph) EndpointsWithParams() []string {
	var out []string
	for path, node := range g.endpoints {
		if len(node.Params) > 0 {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// EndpointsForTaint returns every endpoint owning a parameter with the
// taint, sorted. Reflected parameters count toward TaintReflection whether
// or not their names matched the vocabulary.
func (g *Graph) EndpointsForTaint(taint Taint) []string {
	var out []string
	for path, node := range g.endpoints {
		for _, p := range node.Params {
			if p.Taints[taint] || (taint == TaintReflection && p.Reflected) {
				out = append(out, path)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// ParamsOn returns the parameter names attached to the endpoint, sorted.
func (g *Graph) ParamsOn(rawEndpoint string) []string {
	path, _ := Normalize(rawEndpoint)
	node, ok := g.endpoints[path]
	if !ok {
		return nil
	}
	var out []string
	for name := range node.Params {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Endpoints returns every canonical endpoint path, sorted.
func (g *Graph) Endpoints() []string {
	var out []string
	for path := range g.endpoints {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

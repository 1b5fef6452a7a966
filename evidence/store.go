package evidence

import "sort"

// Store is the mutable evidence record for one scan. It is written only by
// the orchestration loop and read by every gating decision; growth is
// monotonic. The embedded Graph carries the detailed per-parameter view.
type Store struct {
	graph *Graph

	endpoints   map[string]bool
	live        map[string]bool
	params      map[string]bool
	reflected   map[string]bool
	commandLike map[string]bool
	ssrfLike    map[string]bool
	forms       map[string]bool
	ports       map[int]bool
	tags        map[string]bool
}

// NewStore returns an empty store with a fresh graph.
func NewStore() *Store {
	return &Store{
		graph:       NewGraph(),
		endpoints:   make(map[string]bool),
		live:        make(map[string]bool),
		params:      make(map[string]bool),
		reflected:   make(map[string]bool),
		commandLike: make(map[string]bool),
		ssrfLike:    make(map[string]bool),
		forms:       make(map[string]bool),
		ports:       make(map[int]bool),
		tags:        make(map[string]bool),
	}
}

// Graph exposes the detailed endpoint/parameter graph.
func (s *Store) Graph() *Graph {
	return s.graph
}

// AddEndpoint records an endpoint by its raw reference and returns the
// canonical path. Query-parameter names in the reference are indexed as
// parameters.
func (s *Store) AddEndpoint(raw string, channel Channel) (string, error) {
	path, err := s.graph.AddEndpoint(raw, "", channel)
	if err != nil {
		return "", err
	}
	s.endpoints[path] = true
	_, queryParams := Normalize(raw)
	for _, name := range queryParams {
		s.indexParam(name)
	}
	return path, nil
}

// MarkLive records an endpoint as confirmed reachable (inserting it first if
// needed) and returns the canonical path.
func (s *Store) MarkLive(raw string, channel Channel) (string, error) {
	path, err := s.AddEndpoint(raw, channel)
	if err != nil {
		return "", err
	}
	s.live[path] = true
	return path, nil
}

// AddParam records a parameter on an endpoint, tagging it against the hint
// vocabularies.
func (s *Store) AddParam(name, rawEndpoint string, channel Channel) error {
	if err := s.graph.AddParam(name, rawEndpoint, channel); err != nil {
		return err
	}
	path, _ := Normalize(rawEndpoint)
	s.endpoints[path] = true
	s.indexParam(name)
	return nil
}

func (s *Store) indexParam(name string) {
	s.params[name] = true
	for _, taint := range ClassifyParam(name) {
		switch taint {
		case TaintReflection:
			s.reflected[name] = true
		case TaintCommand:
			s.commandLike[name] = true
		case TaintSSRF:
			s.ssrfLike[name] = true
		}
	}
}

// MarkReflected records observed reflection for a known parameter.
func (s *Store) MarkReflected(name string) error {
	if err := s.graph.MarkReflected(name); err != nil {
		return err
	}
	s.reflected[name] = true
	return nil
}

// AddForm records a form discovered on an endpoint.
func (s *Store) AddForm(rawEndpoint string, channel Channel) error {
	path, err := s.AddEndpoint(rawEndpoint, channel)
	if err != nil {
		return err
	}
	s.forms[path] = true
	return nil
}

// AddPort records a discovered open port.
func (s *Store) AddPort(port int) {
	if port > 0 && port <= 65535 {
		s.ports[port] = true
	}
}

// AddTag records a free-form signal tag (e.g., "cms:wordpress").
func (s *Store) AddTag(tag string) {
	if tag != "" {
		s.tags[tag] = true
	}
}

// Pure predicates consumed by the gating loop.

// HasParams reports whether any parameter has been discovered.
func (s *Store) HasParams() bool { return len(s.params) > 0 }

// HasReflections reports whether any reflection-tagged or observed-reflecting
// parameter exists.
func (s *Store) HasReflections() bool { return len(s.reflected) > 0 }

// HasLiveEndpoints reports whether any endpoint is confirmed reachable.
func (s *Store) HasLiveEndpoints() bool { return len(s.live) > 0 }

// HasCommandParams reports whether any command-tainted parameter exists.
func (s *Store) HasCommandParams() bool { return len(s.commandLike) > 0 }

// HasSSRFParams reports whether any ssrf-tainted parameter exists.
func (s *Store) HasSSRFParams() bool { return len(s.ssrfLike) > 0 }

// HasForms reports whether any form has been discovered.
func (s *Store) HasForms() bool { return len(s.forms) > 0 }

// Sorted list accessors.

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Endpoints returns every canonical endpoint, sorted.
func (s *Store) Endpoints() []string { return sortedKeys(s.endpoints) }

// LiveEndpoints returns the confirmed-reachable subset, sorted.
func (s *Store) LiveEndpoints() []string { return sortedKeys(s.live) }

// Params returns every discovered parameter name, sorted.
func (s *Store) Params() []string { return sortedKeys(s.params) }

// ReflectedParams returns reflection-tagged parameter names, sorted.
func (s *Store) ReflectedParams() []string { return sortedKeys(s.reflected) }

// CommandParams returns command-tainted parameter names, sorted.
func (s *Store) CommandParams() []string { return sortedKeys(s.commandLike) }

// SSRFParams returns ssrf-tainted parameter names, sorted.
func (s *Store) SSRFParams() []string { return sortedKeys(s.ssrfLike) }

// FormEndpoints returns endpoints carrying forms, sorted.
func (s *Store) FormEndpoints() []string { return sortedKeys(s.forms) }

// Ports returns discovered open ports, ascending.
func (s *Store) Ports() []int {
	out := make([]int, 0, len(s.ports))
	for p := range s.ports {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Tags returns free-form signal tags, sorted.
func (s *Store) Tags() []string { return sortedKeys(s.tags) }

// Summary holds the evidence counts persisted with the scan state.
type Summary struct {
	Endpoints     int `json:"endpoints" yaml:"endpoints"`
	LiveEndpoints int `json:"live_endpoints" yaml:"live_endpoints"`
	Params        int `json:"params" yaml:"params"`
	Reflected     int `json:"reflected_params" yaml:"reflected_params"`
	CommandParams int `json:"command_params" yaml:"command_params"`
	SSRFParams    int `json:"ssrf_params" yaml:"ssrf_params"`
	Forms         int `json:"forms" yaml:"forms"`
	Ports         int `json:"ports" yaml:"ports"`
	Tags          int `json:"tags" yaml:"tags"`
}

// Summarize returns the evidence counts for persistence and reporting.
func (s *Store) Summarize() Summary {
	return Summary{
		Endpoints:     len(s.endpoints),
		LiveEndpoints: len(s.live),
		Params:        len(s.params),
		Reflected:     len(s.reflected),
		CommandParams: len(s.commandLike),
		SSRFParams:    len(s.ssrfLike),
		Forms:         len(s.forms),
		Ports:         len(s.ports),
		Tags:          len(s.tags),
	}
}

// Snapshot returns the evidence state as a flat map for expression gates
// and report rendering.
func (s *Store) Snapshot() map[string]any {
	return map[string]any{
		"endpoints":       len(s.endpoints),
		"live_endpoints":  len(s.live),
		"params":          len(s.params),
		"has_params":      s.HasParams(),
		"has_reflections": s.HasReflections(),
		"has_live":        s.HasLiveEndpoints(),
		"has_command":     s.HasCommandParams(),
		"has_ssrf":        s.HasSSRFParams(),
		"has_forms":       s.HasForms(),
		"ports":           len(s.ports),
		"tags":            sortedKeys(s.tags),
	}
}

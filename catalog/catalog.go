// Package catalog provides the tool-availability collaborator: it knows
// which external binary each operation drives, whether that binary is
// installed, and the command that would install it. The orchestration loop
// consults it once per admitted operation before first use; a missing tool
// is an operational skip, never a fatal error.
//
// Catalog entries can be overridden from a YAML file so deployments can
// point operations at local wrappers or pinned versions.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/webstrike/exec"
)

// Tool describes one external scanner binary.
type Tool struct {
	// Name is the tool identifier, matching the ops catalog binary name.
	Name string `yaml:"name"`

	// Binary is the executable looked up in PATH. Defaults to Name.
	Binary string `yaml:"binary,omitempty"`

	// Install is the command that installs the tool, if known.
	Install string `yaml:"install,omitempty"`

	// Description is a short human-readable summary.
	Description string `yaml:"description,omitempty"`
}

// file is the on-disk catalog shape.
type file struct {
	Tools []Tool `yaml:"tools"`
}

// Catalog answers availability queries for scanner tools.
type Catalog struct {
	tools map[string]Tool

	// probe is swappable for tests; defaults to a PATH lookup.
	probe func(binary string) bool
}

// defaults covers every binary the ops catalog references.
var defaults = []Tool{
	{Name: "nmap", Install: "apt-get install -y nmap",
		Description: "port scanner"},
	{Name: "dnsx", Install: "go install github.com/projectdiscovery/dnsx/cmd/dnsx@latest",
		Description: "dns resolver"},
	{Name: "subfinder", Install: "go install github.com/projectdiscovery/subfinder/v2/cmd/subfinder@latest",
		Description: "subdomain enumerator"},
	{Name: "sslscan", Install: "apt-get install -y sslscan",
		Description: "tls analyzer"},
	{Name: "httpx", Install: "go install github.com/projectdiscovery/httpx/cmd/httpx@latest",
		Description: "http prober"},
	{Name: "katana", Install: "go install github.com/projectdiscovery/katana/cmd/katana@latest",
		Description: "crawler"},
	{Name: "ffuf", Install: "go install github.com/ffuf/ffuf/v2@latest",
		Description: "content fuzzer"},
	{Name: "arjun", Install: "pipx install arjun",
		Description: "parameter miner"},
	{Name: "nuclei", Install: "go install github.com/projectdiscovery/nuclei/v3/cmd/nuclei@latest",
		Description: "template scanner"},
	{Name: "dalfox", Install: "go install github.com/hahwul/dalfox/v2@latest",
		Description: "xss scanner"},
	{Name: "sqlmap", Install: "apt-get install -y sqlmap",
		Description: "sql injection scanner"},
	{Name: "commix", Install: "pipx install commix",
		Description: "command injection scanner"},
}

// New returns a catalog populated with the built-in tool set.
func New() *Catalog {
	c := &Catalog{
		tools: make(map[string]Tool, len(defaults)),
		probe: exec.BinaryExists,
	}
	for _, t := range defaults {
		c.add(t)
	}
	return c
}

// Load returns the built-in catalog with overrides applied from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool catalog %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse tool catalog %s: %w", path, err)
	}

	c := New()
	for _, t := range f.Tools {
		if t.Name == "" {
			return nil, fmt.Errorf("tool catalog %s: entry with empty name", path)
		}
		c.add(t)
	}
	return c, nil
}

func (c *Catalog) add(t Tool) {
	if t.Binary == "" {
		t.Binary = t.Name
	}
	c.tools[t.Name] = t
}

// WithProbe overrides the installed-binary probe. Intended for tests.
func (c *Catalog) WithProbe(probe func(binary string) bool) *Catalog {
	c.probe = probe
	return c
}

// Tool returns the catalog entry for a tool name.
func (c *Catalog) Tool(name string) (Tool, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// IsInstalled reports whether the tool's binary is available. Unknown tools
// are probed by name so operations can reference binaries the catalog never
// described.
func (c *Catalog) IsInstalled(name string) bool {
	if t, ok := c.tools[name]; ok {
		return c.probe(t.Binary)
	}
	return c.probe(name)
}

// InstallCommand returns the install command for the tool, if known.
func (c *Catalog) InstallCommand(name string) (string, bool) {
	t, ok := c.tools[name]
	if !ok || t.Install == "" {
		return "", false
	}
	return t.Install, true
}

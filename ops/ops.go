// Package ops defines the closed set of scanning operations the core can
// dispatch. Every operation the orchestration loop may invoke is declared
// here; the ledger decides each one exactly once, and querying an operation
// outside this set is an architecture violation, not a lookup miss.
package ops

import "time"

// Class groups operations by their role in a scan.
type Class string

const (
	// ClassRecon covers surface enumeration: ports, names, TLS posture.
	ClassRecon Class = "recon"

	// ClassDiscovery covers content discovery: probing, crawling, fuzzing,
	// parameter mining.
	ClassDiscovery Class = "discovery"

	// ClassPayload covers operations that send attack payloads and are
	// subject to evidence gating.
	ClassPayload Class = "payload"
)

// PayloadKind identifies the vulnerability class a payload operation tests.
type PayloadKind string

const (
	PayloadTemplate PayloadKind = "template"
	PayloadXSS      PayloadKind = "xss"
	PayloadSQLI     PayloadKind = "sqli"
	PayloadCMDI     PayloadKind = "cmdi"
	PayloadSSRF     PayloadKind = "ssrf"
)

// Operation identifiers.
const (
	PortScan       = "port_scan"
	DNSResolve     = "dns_resolve"
	SubdomainEnum  = "subdomain_enum"
	TLSScan        = "tls_scan"
	HTTPProbe      = "http_probe"
	Crawl          = "crawl"
	DirFuzz        = "dir_fuzz"
	ParamDiscovery = "param_discovery"
	TemplateScan   = "template_scan"
	XSSScan        = "xss_scan"
	SQLIScan       = "sqli_scan"
	CMDIScan       = "cmdi_scan"
	SSRFProbe      = "ssrf_probe"
)

// Budget categories. Operations sharing a category share one cumulative
// time cap in the orchestration loop, regardless of individual timeouts.
const (
	BudgetDNS       = "dns"
	BudgetRecon     = "recon"
	BudgetDiscovery = "discovery"
	BudgetPayload   = "payload"
)

// Operation describes a dispatchable scanning operation: its class, the
// external binary it drives, the invocation templates rewritten at dispatch
// time, and its default timeout. Templates use {{target}} for a single
// inlined target and {{targets_file}} for a newline-delimited scratch file.
type Operation struct {
	ID             string
	Class          Class
	PayloadKind    PayloadKind
	BudgetCategory string
	Binary         string
	Template       string
	FileTemplate   string
	DefaultTimeout time.Duration
}

// known is the closed operation set, in a stable order. Order matters only
// for deterministic iteration; execution order comes from the strategies.
var known = []Operation{
	{
		ID:             PortScan,
		Class:          ClassRecon,
		BudgetCategory: BudgetRecon,
		Binary:         "nmap",
		Template:       "nmap -Pn -T4 --top-ports 1000 {{target}}",
		DefaultTimeout: 10 * time.Minute,
	},
	{
		ID:             DNSResolve,
		Class:          ClassRecon,
		BudgetCategory: BudgetDNS,
		Binary:         "dnsx",
		Template:       "dnsx -silent -a -resp -d {{target}}",
		FileTemplate:   "dnsx -silent -a -resp -l {{targets_file}}",
		DefaultTimeout: 2 * time.Minute,
	},
	{
		ID:             SubdomainEnum,
		Class:          ClassRecon,
		BudgetCategory: BudgetDNS,
		Binary:         "subfinder",
		Template:       "subfinder -silent -d {{target}}",
		DefaultTimeout: 5 * time.Minute,
	},
	{
		ID:             TLSScan,
		Class:          ClassRecon,
		BudgetCategory: BudgetRecon,
		Binary:         "sslscan",
		Template:       "sslscan --no-colour {{target}}",
		DefaultTimeout: 3 * time.Minute,
	},
	{
		ID:             HTTPProbe,
		Class:          ClassDiscovery,
		BudgetCategory: BudgetDiscovery,
		Binary:         "httpx",
		Template:       "httpx -silent -status-code -title -tech-detect -u {{target}}",
		FileTemplate:   "httpx -silent -status-code -title -tech-detect -l {{targets_file}}",
		DefaultTimeout: 2 * time.Minute,
	},
	{
		ID:             Crawl,
		Class:          ClassDiscovery,
		BudgetCategory: BudgetDiscovery,
		Binary:         "katana",
		Template:       "katana -silent -jc -u {{target}}",
		FileTemplate:   "katana -silent -jc -list {{targets_file}}",
		DefaultTimeout: 5 * time.Minute,
	},
	{
		ID:             DirFuzz,
		Class:          ClassDiscovery,
		BudgetCategory: BudgetDiscovery,
		Binary:         "ffuf",
		Template:       "ffuf -s -u {{target}}/FUZZ -w /usr/share/wordlists/dirb/common.txt",
		DefaultTimeout: 10 * time.Minute,
	},
	{
		ID:             ParamDiscovery,
		Class:          ClassDiscovery,
		BudgetCategory: BudgetDiscovery,
		Binary:         "arjun",
		Template:       "arjun -q -u {{target}}",
		FileTemplate:   "arjun -q -i {{targets_file}}",
		DefaultTimeout: 5 * time.Minute,
	},
	{
		ID:             TemplateScan,
		Class:          ClassPayload,
		PayloadKind:    PayloadTemplate,
		BudgetCategory: BudgetPayload,
		Binary:         "nuclei",
		Template:       "nuclei -silent -u {{target}}",
		FileTemplate:   "nuclei -silent -l {{targets_file}}",
		DefaultTimeout: 15 * time.Minute,
	},
	{
		ID:             XSSScan,
		Class:          ClassPayload,
		PayloadKind:    PayloadXSS,
		BudgetCategory: BudgetPayload,
		Binary:         "dalfox",
		Template:       "dalfox url {{target}} --silence",
		FileTemplate:   "dalfox file {{targets_file}} --silence",
		DefaultTimeout: 10 * time.Minute,
	},
	{
		ID:             SQLIScan,
		Class:          ClassPayload,
		PayloadKind:    PayloadSQLI,
		BudgetCategory: BudgetPayload,
		Binary:         "sqlmap",
		Template:       "sqlmap --batch --random-agent -u {{target}}",
		FileTemplate:   "sqlmap --batch --random-agent -m {{targets_file}}",
		DefaultTimeout: 15 * time.Minute,
	},
	{
		ID:             CMDIScan,
		Class:          ClassPayload,
		PayloadKind:    PayloadCMDI,
		BudgetCategory: BudgetPayload,
		Binary:         "commix",
		Template:       "commix --batch -u {{target}}",
		FileTemplate:   "commix --batch -m {{targets_file}}",
		DefaultTimeout: 10 * time.Minute,
	},
	{
		ID:             SSRFProbe,
		Class:          ClassPayload,
		PayloadKind:    PayloadSSRF,
		BudgetCategory: BudgetPayload,
		Binary:         "nuclei",
		Template:       "nuclei -silent -tags ssrf -u {{target}}",
		FileTemplate:   "nuclei -silent -tags ssrf -l {{targets_file}}",
		DefaultTimeout: 5 * time.Minute,
	},
}

// Known returns the full operation set in stable order. The slice is a copy.
func Known() []Operation {
	out := make([]Operation, len(known))
	copy(out, known)
	return out
}

// Lookup returns the operation with the given id.
func Lookup(id string) (Operation, bool) {
	for _, op := range known {
		if op.ID == id {
			return op, true
		}
	}
	return Operation{}, false
}

// IsPayload reports whether the operation id names a payload-class
// operation.
func IsPayload(id string) bool {
	op, ok := Lookup(id)
	return ok && op.Class == ClassPayload
}

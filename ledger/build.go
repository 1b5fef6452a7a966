package ledger

import (
	"fmt"

	"github.com/zero-day-ai/webstrike/ops"
	"github.com/zero-day-ai/webstrike/scanerr"
	"github.com/zero-day-ai/webstrike/target"
)

// Build constructs and freezes the decision ledger for the given identity.
// Every known operation is decided purely from the identity's category and
// the static evidence sealed into it at classification time. The decision is
// deterministic and total.
func Build(id *target.Identity) (*Ledger, error) {
	if id == nil {
		return nil, scanerr.New("ledger.Build", scanerr.ErrCodeInvalidInput,
			scanerr.ClassViolation, "nil identity")
	}

	b := NewBuilder()
	for i, op := range ops.Known() {
		e := decide(id, op)
		e.Priority = i
		if err := b.Add(e); err != nil {
			return nil, err
		}
	}
	return b.Freeze()
}

// decide produces the entry for one operation. Denials carry the reason a
// report reader needs; conditional entries name the evidence they wait for.
func decide(id *target.Identity, op ops.Operation) Entry {
	e := Entry{
		Operation: op.ID,
		Timeout:   op.DefaultTimeout,
	}

	switch op.ID {
	case ops.PortScan:
		e.Decision = Allow
		e.Reason = "network surface enumeration is always in scope"

	case ops.DNSResolve:
		if id.Category() == target.CategoryNetworkAddress {
			e.Decision = Deny
			e.Reason = "numeric address carries no name to resolve"
		} else {
			e.Decision = Allow
			e.Reason = "named target must be resolved before probing"
		}

	case ops.SubdomainEnum:
		if id.Category() == target.CategoryRootName {
			e.Decision = Allow
			e.Reason = "registrable root gates namespace enumeration"
		} else {
			e.Decision = Deny
			e.Reason = fmt.Sprintf(
				"name enumeration widens scope beyond a %s target", id.Category())
		}

	case ops.TLSScan:
		if id.Scheme() == "https" {
			e.Decision = Allow
			e.Reason = "encrypted web target gates TLS analysis"
		} else {
			e.Decision = Deny
			e.Reason = "no encrypted service declared for target"
		}

	case ops.HTTPProbe:
		e.Decision = Allow
		e.Reason = "liveness probing establishes the discovery baseline"
		if id.Category() != target.CategoryNetworkAddress {
			e.Prerequisites = []string{ops.DNSResolve}
		}

	case ops.Crawl:
		e.Decision = Allow
		e.Reason = "crawling maps the application surface"
		e.Prerequisites = []string{ops.HTTPProbe}

	case ops.DirFuzz:
		e.Decision = Allow
		e.Reason = "content fuzzing complements the crawl"
		e.Prerequisites = []string{ops.HTTPProbe}

	case ops.ParamDiscovery:
		e.Decision = Allow
		e.Reason = "parameter mining feeds payload gating"
		e.Prerequisites = []string{ops.Crawl}

	case ops.TemplateScan:
		e.Decision = Allow
		e.Reason = "template scanning is admissible without evidence"
		e.Prerequisites = []string{ops.HTTPProbe}

	case ops.XSSScan:
		e.Decision = Conditional
		e.Reason = "admitted only with reflection or form evidence"
		e.Prerequisites = []string{ops.Crawl}

	case ops.SQLIScan:
		e.Decision = Conditional
		e.Reason = "admitted only with discovered parameters"
		e.Prerequisites = []string{ops.Crawl}

	case ops.CMDIScan:
		e.Decision = Conditional
		e.Reason = "admitted only with command-tainted parameters"
		e.Prerequisites = []string{ops.Crawl}

	case ops.SSRFProbe:
		e.Decision = Conditional
		e.Reason = "admitted only with ssrf-tainted parameters"
		e.Prerequisites = []string{ops.Crawl}

	default:
		// A catalog operation without a rule is a broken build, surfaced by
		// the Decision validity check in Builder.Add.
		e.Decision = ""
		e.Reason = "no decision rule for operation"
	}

	return e
}

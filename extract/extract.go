// Package extract pulls evidence out of raw scanner output. Extraction is
// best-effort line scanning over known output shapes: a malformed line is
// skipped, a malformed stream is an operational failure, and nothing here
// ever aborts the scan. Extraction feeds the evidence store so later plan
// entries gate on fresh evidence.
package extract

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/zero-day-ai/webstrike/evidence"
	"github.com/zero-day-ai/webstrike/ops"
	"github.com/zero-day-ai/webstrike/scanerr"
)

var (
	urlPattern      = regexp.MustCompile(`https?://[^\s"'<>\[\]]+`)
	openPortPattern = regexp.MustCompile(`^(\d{1,5})/(?:tcp|udp)\s+open`)
	hostPattern     = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*\.[a-z]{2,}$`)
	paramListLine   = regexp.MustCompile(`(?i)parameters?\s+(?:found|detected)[:\s]+(.+)$`)
	paramToken      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]{0,31}$`)
	nucleiFinding   = regexp.MustCompile(`^\[([\w.:-]+)\]`)
	bracketField    = regexp.MustCompile(`\[([^\[\]]+)\]`)
	statusCode      = regexp.MustCompile(`^\d{3}$`)
)

// HasSignal reports whether the raw output carries usable evidence for the
// operation. The orchestration loop uses it to split completed-with-signal
// from completed-without-signal.
func HasSignal(operation string, stdout []byte) bool {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return false
	}

	switch operation {
	case ops.PortScan:
		return matchAnyLine(trimmed, openPortPattern)
	case ops.DNSResolve, ops.SubdomainEnum:
		return firstHost(trimmed) != ""
	case ops.TLSScan:
		return bytes.Contains(trimmed, []byte("Accepted")) ||
			bytes.Contains(trimmed, []byte("Certificate"))
	case ops.HTTPProbe, ops.Crawl:
		return urlPattern.Match(trimmed)
	case ops.DirFuzz, ops.ParamDiscovery:
		return true
	case ops.TemplateScan, ops.SSRFProbe:
		return matchAnyLine(trimmed, nucleiFinding)
	case ops.XSSScan:
		return bytes.Contains(trimmed, []byte("[POC]")) ||
			bytes.Contains(trimmed, []byte("Triggered"))
	case ops.SQLIScan:
		return bytes.Contains(trimmed, []byte("is vulnerable")) ||
			bytes.Contains(trimmed, []byte("Parameter:"))
	case ops.CMDIScan:
		return bytes.Contains(trimmed, []byte("injectable"))
	default:
		return true
	}
}

// Apply extracts evidence from the output of a completed-with-signal
// operation into the store. baseEndpoint is the dispatched target, used as
// the endpoint context for parameter discoveries without one of their own.
func Apply(operation string, stdout []byte, baseEndpoint string, store *evidence.Store) error {
	var err error
	switch operation {
	case ops.PortScan:
		err = applyPorts(stdout, store)
	case ops.DNSResolve:
		err = applyHosts(stdout, "resolved", store)
	case ops.SubdomainEnum:
		err = applyHosts(stdout, "subdomain", store)
	case ops.TLSScan:
		store.AddTag("tls:observed")
	case ops.HTTPProbe:
		err = applyProbe(stdout, store)
	case ops.Crawl:
		err = applyURLs(stdout, evidence.ChannelCrawl, store)
	case ops.DirFuzz:
		err = applyFuzz(stdout, store)
	case ops.ParamDiscovery:
		err = applyParams(stdout, baseEndpoint, store)
	case ops.TemplateScan:
		err = applyFindings(stdout, "template", store)
	case ops.XSSScan:
		store.AddTag("finding:xss")
	case ops.SQLIScan:
		store.AddTag("finding:sqli")
	case ops.CMDIScan:
		store.AddTag("finding:cmdi")
	case ops.SSRFProbe:
		err = applyFindings(stdout, "ssrf", store)
	}
	if err != nil {
		return scanerr.Operational(operation, scanerr.ErrCodeExtractionFailed,
			"evidence extraction failed").WithCause(err)
	}
	return nil
}

func eachLine(data []byte, fn func(line string)) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			fn(line)
		}
	}
	return scanner.Err()
}

func matchAnyLine(data []byte, re *regexp.Regexp) bool {
	found := false
	_ = eachLine(data, func(line string) {
		if re.MatchString(line) {
			found = true
		}
	})
	return found
}

func firstHost(data []byte) string {
	host := ""
	_ = eachLine(data, func(line string) {
		if host == "" {
			candidate := strings.Fields(line)[0]
			if hostPattern.MatchString(strings.ToLower(candidate)) {
				host = candidate
			}
		}
	})
	return host
}

func applyPorts(stdout []byte, store *evidence.Store) error {
	return eachLine(stdout, func(line string) {
		if m := openPortPattern.FindStringSubmatch(line); m != nil {
			if port, err := strconv.Atoi(m[1]); err == nil {
				store.AddPort(port)
			}
		}
	})
}

func applyHosts(stdout []byte, kind string, store *evidence.Store) error {
	return eachLine(stdout, func(line string) {
		candidate := strings.ToLower(strings.Fields(line)[0])
		if hostPattern.MatchString(candidate) {
			store.AddTag(kind + ":" + candidate)
		}
	})
}

// applyProbe reads httpx-style lines: URL followed by bracketed status,
// title, and technology fields. Probed URLs are live by construction.
func applyProbe(stdout []byte, store *evidence.Store) error {
	return eachLine(stdout, func(line string) {
		u := urlPattern.FindString(line)
		if u == "" {
			return
		}
		if _, err := store.MarkLive(u, evidence.ChannelProbe); err != nil {
			return
		}
		for _, m := range bracketField.FindAllStringSubmatch(line, -1) {
			field := strings.TrimSpace(m[1])
			if field == "" || statusCode.MatchString(field) {
				continue
			}
			for _, tech := range strings.Split(field, ",") {
				tech = strings.ToLower(strings.TrimSpace(tech))
				// Titles carry spaces, technology identifiers don't.
				if tech != "" && len(tech) <= 40 && !strings.Contains(tech, " ") {
					store.AddTag("tech:" + tech)
				}
			}
		}
	})
}

func applyURLs(stdout []byte, channel evidence.Channel, store *evidence.Store) error {
	return eachLine(stdout, func(line string) {
		for _, u := range urlPattern.FindAllString(line, -1) {
			_, _ = store.AddEndpoint(u, channel)
		}
	})
}

// applyFuzz treats fuzz hits as confirmed-live paths.
func applyFuzz(stdout []byte, store *evidence.Store) error {
	return eachLine(stdout, func(line string) {
		if u := urlPattern.FindString(line); u != "" {
			_, _ = store.MarkLive(u, evidence.ChannelFuzz)
			return
		}
		if strings.HasPrefix(line, "/") {
			_, _ = store.MarkLive(line, evidence.ChannelFuzz)
		}
	})
}

// applyParams reads both "Parameters found: a, b" summary lines and bare
// one-token-per-line output. The token filter is a heuristic; a stray word
// that slips through only widens payload targeting, it cannot admit an
// operation the gate would otherwise refuse.
func applyParams(stdout []byte, baseEndpoint string, store *evidence.Store) error {
	return eachLine(stdout, func(line string) {
		if m := paramListLine.FindStringSubmatch(line); m != nil {
			for _, name := range strings.Split(m[1], ",") {
				name = strings.TrimSpace(name)
				if paramToken.MatchString(name) {
					_ = store.AddParam(name, baseEndpoint, evidence.ChannelMining)
				}
			}
			return
		}
		if paramToken.MatchString(line) {
			_ = store.AddParam(line, baseEndpoint, evidence.ChannelMining)
		}
	})
}

func applyFindings(stdout []byte, kind string, store *evidence.Store) error {
	return eachLine(stdout, func(line string) {
		if m := nucleiFinding.FindStringSubmatch(line); m != nil {
			store.AddTag("finding:" + kind + ":" + strings.ToLower(m[1]))
		}
	})
}

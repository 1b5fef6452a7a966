package evidence

import "strings"

// Taint is a heuristic vulnerability-class tag for a parameter name.
type Taint string

const (
	// TaintReflection marks parameters whose names suggest their values are
	// echoed back into responses.
	TaintReflection Taint = "reflection"

	// TaintCommand marks parameters whose names suggest they reach a shell
	// or process invocation.
	TaintCommand Taint = "command"

	// TaintSSRF marks parameters whose names suggest they carry a URL or
	// host the server will fetch.
	TaintSSRF Taint = "ssrf"
)

// Fixed hint vocabularies. Tagging against them is a heuristic over naming
// conventions observed in the wild — it biases payload targeting, it does
// not prove anything about the parameter.
var (
	reflectionHints = []string{
		"q", "s", "search", "query", "keyword", "lang", "name", "message",
		"comment", "callback", "redirect", "return", "text", "title", "body",
	}

	commandHints = []string{
		"cmd", "exec", "command", "run", "ping", "query", "jump", "code",
		"process", "daemon", "shell", "system", "func", "arg", "option", "load",
	}

	ssrfHints = []string{
		"url", "uri", "dest", "destination", "redirect", "next", "target",
		"rurl", "link", "src", "source", "site", "domain", "callback", "feed",
		"host", "port", "to", "out", "view", "dir", "show", "navigation", "open",
	}
)

// ClassifyParam tests a parameter name against the three hint vocabularies
// and returns every taint that applies. Matching is case-insensitive and
// exact on the name with common prefixes and suffixes tolerated
// ("redirect_url" matches "url" and "redirect").
func ClassifyParam(name string) []Taint {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return nil
	}

	var taints []Taint
	if matchesVocabulary(n, reflectionHints) {
		taints = append(taints, TaintReflection)
	}
	if matchesVocabulary(n, commandHints) {
		taints = append(taints, TaintCommand)
	}
	if matchesVocabulary(n, ssrfHints) {
		taints = append(taints, TaintSSRF)
	}
	return taints
}

// matchesVocabulary checks the name against a vocabulary, treating "_" and
// "-" as word separators so compound names still match.
func matchesVocabulary(name string, vocab []string) bool {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	for _, hint := range vocab {
		if name == hint {
			return true
		}
		for _, w := range words {
			if w == hint {
				return true
			}
		}
	}
	return false
}

package evidence

import (
	"net/url"
	"strings"
)

// Normalize collapses an endpoint reference to its canonical key: the URL
// path with the query string dropped and the trailing slash stripped (the
// root keeps its slash). "/api", "/api/", and "/api?x=1" all normalize to
// "/api". Normalize is idempotent.
//
// The second return value lists the query-parameter names found in the
// input, which are indexed separately from the canonical key.
func Normalize(raw string) (string, []string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "/", nil
	}

	var path, query string
	if u, err := url.Parse(raw); err == nil {
		path = u.Path
		query = u.RawQuery
	} else {
		path = raw
		if i := strings.Index(path, "?"); i >= 0 {
			query = path[i+1:]
			path = path[:i]
		}
	}

	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}

	var params []string
	if query != "" {
		if values, err := url.ParseQuery(query); err == nil {
			for name := range values {
				if name != "" {
					params = append(params, name)
				}
			}
		}
	}
	return path, params
}

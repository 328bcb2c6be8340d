package result

import (
	"net/url"
	"strings"
	"sync"
)

// Routes maps route names to chi-style patterns such as "/orders/{id}".
type Routes struct {
	mu       sync.RWMutex
	patterns map[string]string
}

func NewRoutes() *Routes {
	return &Routes{patterns: make(map[string]string)}
}

// Name registers pattern under name and returns pattern for inline use.
func (rt *Routes) Name(name, pattern string) string {
	rt.mu.Lock()
	rt.patterns[name] = pattern
	rt.mu.Unlock()
	return pattern
}

// URL expands the named pattern with values. Values are path-escaped; a
// placeholder without a value makes the lookup fail.
func (rt *Routes) URL(name string, values map[string]string) (string, bool) {
	if rt == nil {
		return "", false
	}
	rt.mu.RLock()
	pattern, ok := rt.patterns[name]
	rt.mu.RUnlock()
	if !ok {
		return "", false
	}

	var b strings.Builder
	for {
		open := strings.IndexByte(pattern, '{')
		if open < 0 {
			b.WriteString(pattern)
			break
		}
		end := strings.IndexByte(pattern[open:], '}')
		if end < 0 {
			return "", false
		}
		end += open

		param := pattern[open+1 : end]
		// chi allows "{id:[0-9]+}".
		if i := strings.IndexByte(param, ':'); i >= 0 {
			param = param[:i]
		}
		v, ok := values[param]
		if !ok {
			return "", false
		}

		b.WriteString(pattern[:open])
		b.WriteString(url.PathEscape(v))
		pattern = pattern[end+1:]
	}
	return b.String(), true
}

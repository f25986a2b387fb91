package auth

import (
	"sort"
	"strings"
)

// RouteAccess declares whether a route needs an access credential
type RouteAccess int

const (
	RouteProtected RouteAccess = iota
	RoutePublic
)

// AnyMethod matches every HTTP method in a RouteTable entry
const AnyMethod = "*"

// RouteTable is the explicit capability table consulted by the access
// guard. Routes not listed are protected. A path ending in "/*" covers
// everything below it.
type RouteTable struct {
	exact    map[string]RouteAccess
	prefixes map[string]RouteAccess
}

func NewRouteTable() *RouteTable {
	return &RouteTable{
		exact:    map[string]RouteAccess{},
		prefixes: map[string]RouteAccess{},
	}
}

// Public marks method+path as reachable without credentials
func (t *RouteTable) Public(method, path string) *RouteTable {
	return t.Set(method, path, RoutePublic)
}

// Protected marks method+path as requiring an access credential, which is
// how it is useful: to carve out an exception under a public prefix
func (t *RouteTable) Protected(method, path string) *RouteTable {
	return t.Set(method, path, RouteProtected)
}

func (t *RouteTable) Set(method, path string, access RouteAccess) *RouteTable {
	method = normalizeMethod(method)
	if prefix, ok := strings.CutSuffix(path, "/*"); ok {
		t.prefixes[routeKey(method, normalizePath(prefix))] = access
		return t
	}
	t.exact[routeKey(method, normalizePath(path))] = access
	return t
}

// Merge copies every entry of other into t
func (t *RouteTable) Merge(other *RouteTable) *RouteTable {
	if other == nil {
		return t
	}
	for k, v := range other.exact {
		t.exact[k] = v
	}
	for k, v := range other.prefixes {
		t.prefixes[k] = v
	}
	return t
}

// Lookup resolves the access level of a request. Exact entries win over
// prefixes, the longest prefix wins, and a specific method wins over
// AnyMethod.
func (t *RouteTable) Lookup(method, path string) RouteAccess {
	if t == nil {
		return RouteProtected
	}

	method = normalizeMethod(method)
	path = normalizePath(path)

	for _, m := range []string{method, AnyMethod} {
		if access, ok := t.exact[routeKey(m, path)]; ok {
			return access
		}
	}

	for candidate := path; ; candidate = parentPath(candidate) {
		for _, m := range []string{method, AnyMethod} {
			if access, ok := t.prefixes[routeKey(m, candidate)]; ok {
				return access
			}
		}
		if candidate == "/" {
			break
		}
	}

	return RouteProtected
}

// IsPublic reports whether the request may skip the access guard
func (t *RouteTable) IsPublic(method, path string) bool {
	return t.Lookup(method, path) == RoutePublic
}

// Entries lists the table as "METHOD path" strings, sorted, for logging
func (t *RouteTable) Entries() []string {
	out := make([]string, 0, len(t.exact)+len(t.prefixes))
	for k, v := range t.exact {
		out = append(out, k+" "+accessName(v))
	}
	for k, v := range t.prefixes {
		out = append(out, strings.TrimSuffix(k, "/")+"/* "+accessName(v))
	}
	sort.Strings(out)
	return out
}

func accessName(a RouteAccess) string {
	if a == RoutePublic {
		return "public"
	}
	return "protected"
}

func routeKey(method, path string) string {
	return method + " " + path
}

func normalizeMethod(method string) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return AnyMethod
	}
	return method
}

// normalizePath folds case and trailing slashes the way fiber's default
// router does
func normalizePath(path string) string {
	path = strings.ToLower(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}

func parentPath(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return "/"
	}
	return path[:i]
}

package gateway

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// Behavior is what a route does with a request.
type Behavior string

const (
	BehaviorHealth    Behavior = "health"
	BehaviorProxy     Behavior = "proxy"
	BehaviorEntryPage Behavior = "entry_page"
	BehaviorStatic    Behavior = "static"
)

// Match selects how Route.Path is compared with the request path.
type Match int

const (
	// MatchExact requires the path to equal Route.Path.
	MatchExact Match = iota
	// MatchPrefix accepts Route.Path itself and anything below it, so
	// "/api" matches "/api" and "/api/x" but not "/apix".
	MatchPrefix
	// MatchAny accepts every path.
	MatchAny
)

// ProxyPrefixes are forwarded to the upstream.
var ProxyPrefixes = []string{"/api", "/emergency-hospitals", "/ambulance"}

// Route binds a path to a behavior.
type Route struct {
	Name     string
	Path     string
	Match    Match
	Methods  []string
	Behavior Behavior
	Handler  http.Handler
}

// matchesPath reports whether p is selected by the route's path rule.
func (r Route) matchesPath(p string) bool {
	switch r.Match {
	case MatchExact:
		return p == r.Path
	case MatchPrefix:
		return p == r.Path || strings.HasPrefix(p, strings.TrimSuffix(r.Path, "/")+"/")
	default:
		return true
	}
}

func (r Route) register(router *mux.Router) {
	matcher := router.MatcherFunc(func(req *http.Request, _ *mux.RouteMatch) bool {
		return r.matchesPath(req.URL.Path)
	})
	if len(r.Methods) > 0 {
		matcher = matcher.Methods(r.Methods...)
	}
	matcher.Name(r.Name).Handler(r.Handler)
}

func routeName(prefix string) string {
	return strings.Trim(prefix, "/")
}

package mock

import (
	"net/http"
	"strings"
)

// Route binds a method and path to a handler
type Route struct {
	Method  string
	Path    string
	Name    string
	Handler http.HandlerFunc

	// Public routes are served without a bearer token
	Public bool
}

// Router matches incoming requests to routes
type Router struct {
	routes []*Route
}

// NewRouter creates a new router
func NewRouter() *Router {
	return &Router{
		routes: make([]*Route, 0),
	}
}

// AddRoute adds a route to the router
func (r *Router) AddRoute(route *Route) {
	r.routes = append(r.routes, route)
}

// Match finds the route for method and path. The second return value
// reports whether the path exists under a different method.
func (r *Router) Match(method, path string) (*Route, bool) {
	path = normalizePath(path)

	pathKnown := false
	for _, route := range r.routes {
		if !strings.EqualFold(route.Path, path) {
			continue
		}
		pathKnown = true
		if strings.EqualFold(route.Method, method) {
			return route, true
		}
	}

	return nil, pathKnown
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ChiRouter implements the [Router] interface on top of a chi mux.
type ChiRouter struct {
	mux chi.Router
}

// NewChiRouter creates a new [ChiRouter] instance.
func NewChiRouter() *ChiRouter {
	return &ChiRouter{mux: chi.NewRouter()}
}

// Use adds [Middleware] to the router's stack, applied in the order it's added.
//
// chi requires middleware to be registered before any route on the same router.
func (r *ChiRouter) Use(middleware ...Middleware) {
	for _, m := range middleware {
		r.mux.Use(m)
	}
}

// Handle registers a handler for the specified HTTP method and path.
//
// Paths use chi patterns, e.g. "/admin/students/{id}".
func (r *ChiRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Method(method, path, handler)
}

// HandleFunc registers a handler function for the specified HTTP method and path.
func (r *ChiRouter) HandleFunc(method, path string, fn http.HandlerFunc) {
	r.mux.Method(method, path, fn)
}

// Handler registers a custom Handler implementation for every route it reports.
func (r *ChiRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.mux.Handle(route, handler)
	}
}

// Group registers routes on an inline router that inherits the current middleware and may add its own.
func (r *ChiRouter) Group(fn func(r Router)) {
	r.mux.Group(func(sub chi.Router) {
		fn(&ChiRouter{mux: sub})
	})
}

// Mount attaches a handler below pattern, e.g. a file server under "/static".
func (r *ChiRouter) Mount(pattern string, handler http.Handler) {
	r.mux.Mount(pattern, handler)
}

// NotFound sets the handler for unmatched routes.
func (r *ChiRouter) NotFound(handler http.HandlerFunc) {
	r.mux.NotFound(handler)
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *ChiRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// URLParam returns the named chi path parameter from the request.
func URLParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

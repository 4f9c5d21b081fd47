package server

import (
	"net/http"
	"slices"
)

// BasicRouter maps method patterns such as "PATCH /api/quotes/{id}" onto an [http.ServeMux].
//
// Middleware added with Use wraps only the handlers registered after it, so routes mounted first (health) stay
// outside the token check.
type BasicRouter struct {
	mux    *http.ServeMux
	chain  []Middleware
	routes []string
}

func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware to the chain. The first middleware added is the outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.chain = append(r.chain, middleware...)
}

// Handle mounts one handler. Other methods on the same path get a 405 from the mux.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mount(r.Apply(handler), method+" "+path)
}

// Handler mounts every route of handler behind a single middleware chain.
func (r *BasicRouter) Handler(handler Handler) {
	r.mount(r.Apply(handler), handler.Routes()...)
}

func (r *BasicRouter) mount(h http.Handler, patterns ...string) {
	for _, p := range patterns {
		r.mux.Handle(p, h)
		r.routes = append(r.routes, p)
	}
}

// Routes lists the mounted patterns in registration order.
func (r *BasicRouter) Routes() []string { return slices.Clone(r.routes) }

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler with the current chain.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	for _, mw := range slices.Backward(r.chain) {
		handler = mw(handler)
	}
	return handler
}

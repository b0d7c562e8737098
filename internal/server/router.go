package server

import (
	"net/http"
	"strings"
)

// BasicRouter implements [Router] on top of an [http.ServeMux].
//
// Method filtering is done in a wrapper rather than with the mux's
// "METHOD /path" patterns so OPTIONS preflights still reach the middleware
// chain, where the CORS headers are written.
type BasicRouter struct {
	mux   *http.ServeMux
	stack []Middleware
}

// NewBasicRouter creates an empty router.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware to the stack. The first middleware added runs
// outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.stack = append(r.stack, middleware...)
}

// Handle registers a handler for one method and path, wrapped in the
// middleware stack.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(path, filterMethod(method, r.chain(handler)))
}

// Handler registers a [Handler] under every route it names. No method filter
// is applied; handlers that care check the method themselves.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.chain(handler)
	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// chain wraps a handler in the middleware stack, innermost last.
func (r *BasicRouter) chain(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(r.stack) - 1; i >= 0; i-- {
		wrapped = r.stack[i](wrapped)
	}
	return wrapped
}

// filterMethod rejects requests whose method is neither the registered one
// nor OPTIONS, which must pass through for CORS preflights.
func filterMethod(method string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.EqualFold(req.Method, method) && req.Method != http.MethodOptions {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, req)
	})
}

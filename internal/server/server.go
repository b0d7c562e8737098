package server

import (
	"net/http"
)

// Middleware decorates an [http.Handler] with cross-cutting behavior such as
// request logging or CORS headers.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that also names the route patterns it serves,
// so the router can register it without a separate route table.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers behind a shared middleware stack and serves the
// assembled mux.
type Router interface {
	Use(middleware ...Middleware)                     // append middleware, first added runs outermost
	Handle(method, path string, handler http.Handler) // register one method-filtered route
	Handler(handler Handler)                          // register every route the handler names
	ServeHTTP(w http.ResponseWriter, r *http.Request) // serve the assembled mux
}

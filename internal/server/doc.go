// Package server provides HTTP routing, middleware, and the handlers behind
// the generation API and the CLI login flow.
//
// # Routing
//
// [Router] is the routing contract: register handlers per method and path,
// stack [Middleware] with Use. [BasicRouter] implements it over an
// [http.ServeMux], filtering methods in a wrapper so OPTIONS preflights still
// reach the middleware chain. Middleware runs in registration order, the
// first one added outermost; [Logging] and [CORS] cover the ambient concerns
// of both serving modes.
//
// # OAuth Callback
//
// [CallbackHandler] receives the OAuth2 authorization code redirect. It
// checks the state parameter against the value minted at login (CSRF
// protection), hands the code to the session manager holding the PKCE
// verifier for the token exchange, and delivers the outcome through a
// channel. A second hit is rejected without touching the exchange, so a
// replayed redirect cannot burn the code.
//
// When the user runs authentication commands, a temporary HTTP server starts
// on the configured redirect address, handles the callback, and shuts down
// after the result arrives.
//
// # Generation API
//
// The serve command registers the API handlers on a [BasicRouter]:
//   - [GenerateHandler] : POST /generate, streams run frames with per-frame flush
//   - [WeightsHandler] : GET /generate-weights, mood/activity preset lookup
//   - [StatusHandler] : GET /, liveness probe
//
// [GenerateHandler] builds one engine per request through an [EngineFactory], so
// authenticated requests compile from the caller's library while guest requests
// fall back to cached or sample candidates.
//
// # Handlers
//
// The [Handler] interface extends [http.Handler] with a Routes method, letting
// a handler own the full set of paths it answers and register them in one
// call.
package server

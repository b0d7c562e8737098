// Package session owns the Spotify login lifecycle for a public OAuth2
// client: the authorization code flow with PKCE, the resulting credential,
// and its on-disk cache.
//
// [Manager] drives the flow and tracks the lifecycle phase (logged out,
// logging in, logged in, guest). [TokenStore] guards the credential and
// mirrors it to a JSON cache file so a session survives between CLI
// invocations. Refreshing is always explicit; nothing in this package
// refreshes a token behind the caller's back.
package session

// Package server contains the router, middleware and handlers for the splitx HTTP API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers method-qualified
// [http.ServeMux] patterns and wraps the whole mux in its middleware, last added innermost.
//
// # Middleware
//
//   - [Recover] : panics become 500 responses
//   - [Logging] : request id (X-Request-ID) and one log line per request
//   - [CORS] : the configured client origin, or any origin when unset
//   - [RateLimit] : per client address token bucket
//
// # Routes
//
// Auth routes are public. Everything else requires "Authorization: Bearer <token>"; the token is the user's Spotify
// access token and is never stored by the server.
//
//	GET  /health
//	POST /auth/start
//	GET  /auth/callback
//	GET  /auth/session/{state}
//	POST /auth/refresh
//	GET  /users/me
//	GET  /playlists
//	GET  /playlists/{playlistId}
//	GET  /smart-split/{playlistId}/preview
//	POST /smart-split/{playlistId}/apply
//	POST /smart-split/{playlistId}/filter
//	POST /smart-split/{playlistId}/create
//
// # Errors
//
// Handlers return errors; [StatusFor] maps them to a status and the body is {"error": "...", "details": ...}.
//
// # OAuth Callback Handler
//
// [OAuthHandler] serves the one-shot local callback for `splitx auth`. It validates the state parameter, exchanges
// the code and delivers the tokens through a channel.
package server

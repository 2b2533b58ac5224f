// Package services adapts the external APIs splitx talks to.
//
// # Spotify
//
// [SpotifyCatalog] implements [Catalog] on github.com/zmb3/spotify/v2. A
// catalog is bound to one bearer token; [SpotifyCatalogFactory] creates one
// per request so the server never holds user credentials.
//
// [SpotifyAuth] runs the authorization-code flow against the Spotify accounts
// service. The consent dialog is always shown and an exchange without a
// refresh token fails with [shared.ErrNoRefreshToken].
//
// # Gemini
//
// [GeminiService] implements [Inferer] with the google.golang.org/genai client
// (generateContent for genres, Imagen for covers). Genre answers are expected
// as strict JSON, optionally wrapped in a markdown code block.
//
// # Error Handling
//
//   - [shared.ErrNotAuthenticated] : Spotify rejected the token (401)
//   - [shared.ErrPlaylistNotFound] : Spotify returned 404
//   - [shared.ErrAPIRequest] : any other upstream failure
//   - [shared.ErrServiceUnavailable] : the request never reached the upstream
package services

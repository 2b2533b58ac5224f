// Package services adapts external APIs (the Spotify catalog, Spotify accounts and Gemini) to the application's
// narrow collaborator interfaces.
package services

import (
	"context"

	"github.com/desertthunder/splitx/internal/models"
)

// Catalog is the streaming catalog as seen by one authenticated user.
type Catalog interface {
	// CurrentUser returns the profile bound to the access token.
	CurrentUser(ctx context.Context) (*models.User, error)

	// Playlists returns every playlist the user follows or owns.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// Playlist returns playlist metadata and its tracks. Items without a track id (episodes, local files) are skipped.
	Playlist(ctx context.Context, playlistID string) (*models.Playlist, []models.Track, error)

	// Artists looks up at most [MaxArtistsPerRequest] artists. Unknown ids are omitted from the result.
	Artists(ctx context.Context, ids []string) ([]models.Artist, error)

	// CreatePlaylist creates an empty playlist owned by ownerID.
	CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*models.Playlist, error)

	// AddTracks appends uris in chunks of [MaxTracksPerRequest], in order.
	AddTracks(ctx context.Context, playlistID string, uris []string) error

	// SetCover uploads a JPEG cover image.
	SetCover(ctx context.Context, playlistID string, jpeg []byte) error
}

// CatalogFactory builds a [Catalog] bound to a user's bearer token.
type CatalogFactory interface {
	ForToken(accessToken string) Catalog
}

// Inferer guesses genres and generates cover art. Implementations report whether they are usable via Configured.
type Inferer interface {
	Configured() bool
	InferGenres(ctx context.Context, tracks []models.Track) (map[string]string, error)
	InferGenre(ctx context.Context, track models.Track) (string, error)
	// GenerateCover returns JPEG bytes, or nil when no image was produced.
	GenerateCover(ctx context.Context, name string, genres []string, tracks []models.Track) ([]byte, error)
}

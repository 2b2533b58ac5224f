// Spotify Web API implementation of [Catalog] on github.com/zmb3/spotify/v2
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/shared"
)

const (
	// MaxArtistsPerRequest is the Spotify limit for the several-artists endpoint.
	MaxArtistsPerRequest = 50
	// MaxTracksPerRequest is the Spotify limit for adding items to a playlist.
	MaxTracksPerRequest = 100

	playlistPageSize = 50
	itemsPageSize    = 100
	playlistFields   = "id,name,description,images,owner,public,uri,tracks.total"
)

// SpotifyCatalog implements [Catalog] for one access token.
type SpotifyCatalog struct {
	client *spotify.Client
	logger *log.Logger
}

// NewSpotifyCatalog wraps an authenticated [spotify.Client].
func NewSpotifyCatalog(client *spotify.Client, logger *log.Logger) *SpotifyCatalog {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SpotifyCatalog{client: client, logger: logger}
}

// SpotifyCatalogFactory creates per-token [SpotifyCatalog] instances.
type SpotifyCatalogFactory struct {
	// BaseURL overrides the API root (with trailing slash); empty uses the public API.
	BaseURL string
	// Transport is the base transport under the bearer token; nil uses [http.DefaultTransport].
	Transport http.RoundTripper
	Logger    *log.Logger
}

// ForToken returns a catalog whose requests carry accessToken.
func (f *SpotifyCatalogFactory) ForToken(accessToken string) Catalog {
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   f.Transport,
		},
	}

	var opts []spotify.ClientOption
	if f.BaseURL != "" {
		opts = append(opts, spotify.WithBaseURL(f.BaseURL))
	}
	return NewSpotifyCatalog(spotify.New(httpClient, opts...), f.Logger)
}

// mapError converts Spotify API errors to the application's sentinel errors.
func mapError(err error, what string) error {
	var se spotify.Error
	if errors.As(err, &se) {
		switch se.Status {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s: %s", shared.ErrNotAuthenticated, what, se.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s: %s", shared.ErrPlaylistNotFound, what, se.Message)
		}
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, what, err)
}

func (c *SpotifyCatalog) CurrentUser(ctx context.Context) (*models.User, error) {
	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return nil, mapError(err, "current user")
	}

	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	return &models.User{ID: user.ID, Name: name}, nil
}

func (c *SpotifyCatalog) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	offset := 0

	for {
		page, err := c.client.CurrentUsersPlaylists(ctx, spotify.Limit(playlistPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, mapError(err, "list playlists")
		}

		for _, sp := range page.Playlists {
			playlists = append(playlists, convertSimplePlaylist(sp))
		}

		offset += len(page.Playlists)
		if len(page.Playlists) == 0 || offset >= int(page.Total) {
			break
		}
	}

	return playlists, nil
}

func (c *SpotifyCatalog) Playlist(ctx context.Context, playlistID string) (*models.Playlist, []models.Track, error) {
	full, err := c.client.GetPlaylist(ctx, spotify.ID(playlistID), spotify.Fields(playlistFields))
	if err != nil {
		return nil, nil, mapError(err, "playlist "+playlistID)
	}

	playlist := convertSimplePlaylist(full.SimplePlaylist)
	playlist.TrackCount = int(full.Tracks.Total)

	var tracks []models.Track
	offset := 0
	for {
		page, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(itemsPageSize), spotify.Offset(offset))
		if err != nil {
			return nil, nil, mapError(err, "playlist items "+playlistID)
		}

		for _, item := range page.Items {
			if item.Track.Track == nil || item.Track.Track.ID == "" {
				continue
			}
			tracks = append(tracks, convertTrack(item.Track.Track))
		}

		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= int(page.Total) {
			break
		}
	}

	if playlist.TrackCount == 0 {
		playlist.TrackCount = len(tracks)
	}
	return &playlist, tracks, nil
}

func (c *SpotifyCatalog) Artists(ctx context.Context, ids []string) ([]models.Artist, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxArtistsPerRequest {
		return nil, fmt.Errorf("%w: %d artist ids exceeds limit of %d", shared.ErrInvalidArgument, len(ids), MaxArtistsPerRequest)
	}

	spIDs := make([]spotify.ID, len(ids))
	for i, id := range ids {
		spIDs[i] = spotify.ID(id)
	}

	full, err := c.client.GetArtists(ctx, spIDs...)
	if err != nil {
		return nil, mapError(err, "artists")
	}

	artists := make([]models.Artist, 0, len(full))
	for _, a := range full {
		if a == nil {
			continue
		}
		artists = append(artists, models.Artist{ID: string(a.ID), Name: a.Name, Genres: a.Genres})
	}
	return artists, nil
}

func (c *SpotifyCatalog) CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*models.Playlist, error) {
	full, err := c.client.CreatePlaylistForUser(ctx, ownerID, name, description, public, false)
	if err != nil {
		return nil, mapError(err, "create playlist")
	}

	playlist := convertSimplePlaylist(full.SimplePlaylist)
	playlist.Public = public
	c.logger.Debug("created playlist", "id", playlist.ID, "name", name)
	return &playlist, nil
}

// AddTracks fails with [shared.ErrInvalidInput] before any request when a uri is not a track uri.
func (c *SpotifyCatalog) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	ids := make([]spotify.ID, 0, len(uris))
	for _, uri := range uris {
		id, ok := TrackIDFromURI(uri)
		if !ok {
			return fmt.Errorf("%w: not a track uri: %s", shared.ErrInvalidInput, uri)
		}
		ids = append(ids, spotify.ID(id))
	}

	for start := 0; start < len(ids); start += MaxTracksPerRequest {
		end := min(start+MaxTracksPerRequest, len(ids))
		if _, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids[start:end]...); err != nil {
			return mapError(err, fmt.Sprintf("add tracks %d-%d", start, end))
		}
	}
	return nil
}

func (c *SpotifyCatalog) SetCover(ctx context.Context, playlistID string, jpeg []byte) error {
	if len(jpeg) == 0 {
		return fmt.Errorf("%w: empty cover image", shared.ErrInvalidInput)
	}
	if err := c.client.SetPlaylistImage(ctx, spotify.ID(playlistID), bytes.NewReader(jpeg)); err != nil {
		return mapError(err, "set cover")
	}
	return nil
}

// TrackIDFromURI extracts the id from a "spotify:track:{id}" URI.
func TrackIDFromURI(uri string) (string, bool) {
	id, ok := strings.CutPrefix(uri, models.TrackURIPrefix)
	return id, ok && id != ""
}

func convertImages(images []spotify.Image) []models.Image {
	out := make([]models.Image, 0, len(images))
	for _, img := range images {
		mi := models.Image{URL: img.URL}
		if h := int(img.Height); h > 0 {
			mi.Height = &h
		}
		if w := int(img.Width); w > 0 {
			mi.Width = &w
		}
		out = append(out, mi)
	}
	return out
}

func convertSimplePlaylist(sp spotify.SimplePlaylist) models.Playlist {
	ownerName := sp.Owner.DisplayName
	if ownerName == "" {
		ownerName = sp.Owner.ID
	}
	if ownerName == "" {
		ownerName = "Unknown"
	}

	return models.Playlist{
		ID:          string(sp.ID),
		Name:        sp.Name,
		Description: sp.Description,
		URI:         string(sp.URI),
		Public:      sp.IsPublic,
		Images:      convertImages(sp.Images),
		Owner:       models.Owner{ID: sp.Owner.ID, Name: ownerName},
		TrackCount:  int(sp.Tracks.Total),
	}
}

func convertTrack(ft *spotify.FullTrack) models.Track {
	track := models.Track{
		ID:         string(ft.ID),
		Name:       ft.Name,
		URI:        string(ft.URI),
		DurationMs: int(ft.Duration),
		Album: models.Album{
			ID:     string(ft.Album.ID),
			Name:   ft.Album.Name,
			Images: convertImages(ft.Album.Images),
		},
	}
	if ft.PreviewURL != "" {
		preview := ft.PreviewURL
		track.PreviewURL = &preview
	}
	for _, a := range ft.Artists {
		track.Artists = append(track.Artists, models.Artist{ID: string(a.ID), Name: a.Name})
	}
	return track
}

var _ Catalog = (*SpotifyCatalog)(nil)

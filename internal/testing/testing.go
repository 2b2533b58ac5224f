// Package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/shared"
)

// FakePlaylist is a playlist with its tracks served by [FakeCatalog].
type FakePlaylist struct {
	Playlist models.Playlist
	Tracks   []models.Track
}

// CreatedPlaylist records a CreatePlaylist call.
type CreatedPlaylist struct {
	OwnerID     string
	Playlist    models.Playlist
	Description string
}

// FakeCatalog is an in-memory test double for services.Catalog. It records every call.
type FakeCatalog struct {
	mu sync.Mutex

	User        models.User
	Lists       []models.Playlist
	PlaylistMap map[string]FakePlaylist
	ArtistIndex map[string]models.Artist

	UserErr      error
	PlaylistErr  error
	ArtistsErr   error
	CreateErrors map[string]error // keyed by playlist name
	AddErr       error
	CoverErr     error

	ArtistCalls [][]string
	Created     []CreatedPlaylist
	AddCalls    map[string][][]string // playlist id -> uris per call
	Covers      map[string][]byte
}

// NewFakeCatalog creates an empty FakeCatalog for user "user-1".
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		User:         models.User{ID: "user-1", Name: "Test User"},
		PlaylistMap:  make(map[string]FakePlaylist),
		ArtistIndex:  make(map[string]models.Artist),
		CreateErrors: make(map[string]error),
		AddCalls:     make(map[string][][]string),
		Covers:       make(map[string][]byte),
	}
}

func (f *FakeCatalog) CurrentUser(ctx context.Context) (*models.User, error) {
	if f.UserErr != nil {
		return nil, f.UserErr
	}
	u := f.User
	return &u, nil
}

func (f *FakeCatalog) Playlists(ctx context.Context) ([]models.Playlist, error) {
	if f.PlaylistErr != nil {
		return nil, f.PlaylistErr
	}
	return f.Lists, nil
}

func (f *FakeCatalog) Playlist(ctx context.Context, id string) (*models.Playlist, []models.Track, error) {
	if f.PlaylistErr != nil {
		return nil, nil, f.PlaylistErr
	}
	p, ok := f.PlaylistMap[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	pl := p.Playlist
	return &pl, p.Tracks, nil
}

func (f *FakeCatalog) Artists(ctx context.Context, ids []string) ([]models.Artist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ArtistCalls = append(f.ArtistCalls, append([]string(nil), ids...))
	if f.ArtistsErr != nil {
		return nil, f.ArtistsErr
	}

	out := make([]models.Artist, 0, len(ids))
	for _, id := range ids {
		if a, ok := f.ArtistIndex[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// RequestedArtistIDs flattens every id passed to Artists.
func (f *FakeCatalog) RequestedArtistIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for _, call := range f.ArtistCalls {
		ids = append(ids, call...)
	}
	return ids
}

func (f *FakeCatalog) CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.CreateErrors[name]; err != nil {
		return nil, err
	}

	id := fmt.Sprintf("new-%d", len(f.Created)+1)
	pl := models.Playlist{
		ID:          id,
		Name:        name,
		Description: description,
		Public:      public,
		URI:         "spotify:playlist:" + id,
		Owner:       models.Owner{ID: ownerID},
	}
	f.Created = append(f.Created, CreatedPlaylist{OwnerID: ownerID, Playlist: pl, Description: description})
	return &pl, nil
}

func (f *FakeCatalog) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.AddErr != nil {
		return f.AddErr
	}
	f.AddCalls[playlistID] = append(f.AddCalls[playlistID], append([]string(nil), uris...))
	return nil
}

// AddedURIs returns every uri added to playlistID across calls.
func (f *FakeCatalog) AddedURIs(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var uris []string
	for _, call := range f.AddCalls[playlistID] {
		uris = append(uris, call...)
	}
	return uris
}

func (f *FakeCatalog) SetCover(ctx context.Context, playlistID string, jpeg []byte) error {
	if f.CoverErr != nil {
		return f.CoverErr
	}
	f.mu.Lock()
	f.Covers[playlistID] = jpeg
	f.mu.Unlock()
	return nil
}

// FakeInferer is a scripted genre inference double.
type FakeInferer struct {
	mu sync.Mutex

	Enabled   bool
	Batch     map[string]string
	BatchErr  error
	Single    map[string]string
	SingleErr error
	Cover     []byte
	CoverErr  error

	BatchCalls  [][]string // track ids per InferGenres call
	SingleCalls []string   // track id per InferGenre call
}

func (f *FakeInferer) Configured() bool { return f.Enabled }

func (f *FakeInferer) InferGenres(ctx context.Context, tracks []models.Track) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	f.BatchCalls = append(f.BatchCalls, ids)
	if f.BatchErr != nil {
		return nil, f.BatchErr
	}
	return f.Batch, nil
}

func (f *FakeInferer) InferGenre(ctx context.Context, track models.Track) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SingleCalls = append(f.SingleCalls, track.ID)
	if f.SingleErr != nil {
		return "", f.SingleErr
	}
	return f.Single[track.ID], nil
}

func (f *FakeInferer) GenerateCover(ctx context.Context, name string, genres []string, tracks []models.Track) ([]byte, error) {
	return f.Cover, f.CoverErr
}

// NewTrack builds a track whose artists carry only ids and names.
func NewTrack(id string, artistIDs ...string) models.Track {
	t := models.Track{
		ID:         id,
		Name:       "Song " + id,
		URI:        "spotify:track:" + id,
		DurationMs: 180000,
		Album:      models.Album{ID: "album-" + id, Name: "Album " + id},
	}
	for _, a := range artistIDs {
		t.Artists = append(t.Artists, models.Artist{ID: a, Name: "Artist " + a})
	}
	return t
}

// NewEnriched builds a resolved track.
func NewEnriched(id, genre string, source models.GenreSource) models.EnrichedTrack {
	return models.EnrichedTrack{Track: NewTrack(id), Genre: genre, GenreSource: source}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper returns a canned response or error for every request.
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

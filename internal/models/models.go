package models

import "time"

// GenreSource records which stage of resolution produced a track's genre.
type GenreSource string

const (
	SourceCatalog  GenreSource = "catalog"  // first usable tag of the first tagged artist
	SourceInferred GenreSource = "inferred" // batch or single-track inference
	SourceFallback GenreSource = "fallback" // default genre
)

// TrackURIPrefix starts every catalog track URI. Episodes and local files use other prefixes.
const TrackURIPrefix = "spotify:track:"

// Valid reports whether s is one of the known sources.
func (s GenreSource) Valid() bool {
	switch s {
	case SourceCatalog, SourceInferred, SourceFallback:
		return true
	}
	return false
}

// Image is a catalog artwork reference.
type Image struct {
	URL    string `json:"url"`
	Height *int   `json:"height"`
	Width  *int   `json:"width"`
}

// Artist is a catalog artist. Genres is ordered as reported by the catalog and may be empty.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres,omitempty"`
}

// Album is the album a track belongs to.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track represents a catalog track. Tracks are built once by the catalog adapter and treated as immutable.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URI        string   `json:"uri"`
	DurationMs int      `json:"durationMs"`
	PreviewURL *string  `json:"previewUrl"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
}

// ArtistIDs returns the ids of the track's artists in listed order, skipping blanks.
func (t Track) ArtistIDs() []string {
	ids := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// ArtistNames returns the track's artist names joined with ", ".
func (t Track) ArtistNames() string {
	var out string
	for i, a := range t.Artists {
		if i > 0 {
			out += ", "
		}
		out += a.Name
	}
	return out
}

// EnrichedTrack is a [Track] after genre resolution.
type EnrichedTrack struct {
	Track
	Genre       string      `json:"genre"`
	GenreSource GenreSource `json:"genreSource"`
}

// Owner identifies the owner of a playlist.
type Owner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Playlist represents catalog playlist metadata.
type Playlist struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	URI         string  `json:"uri,omitempty"`
	Public      bool    `json:"public"`
	Images      []Image `json:"images"`
	Owner       Owner   `json:"owner"`
	TrackCount  int     `json:"trackCount"`
}

// PlaylistDetail is a playlist with its resolved tracks.
type PlaylistDetail struct {
	Playlist
	Tracks []EnrichedTrack `json:"tracks"`
}

// User is the authenticated catalog user.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GenreSplit is a genre-labeled group of tracks with a suggested destination name.
type GenreSplit struct {
	Genre         string          `json:"genre"`
	SuggestedName string          `json:"suggestedName"`
	TrackCount    int             `json:"trackCount"`
	Tracks        []EnrichedTrack `json:"tracks"`
}

// SplitInstruction is the intent to materialize one split as a new playlist.
type SplitInstruction struct {
	Genre      string   `json:"genre"`
	Name       string   `json:"name"`
	TrackURIs  []string `json:"trackUris"`
	MakePublic bool     `json:"makePublic,omitempty"`
}

// AppliedSplit is the outcome of one [SplitInstruction]. Error is set when the instruction failed.
type AppliedSplit struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Genre      string `json:"genre"`
	TrackCount int    `json:"trackCount"`
	URI        string `json:"uri,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ApplyResult collects per-instruction outcomes. Instructions are independent: a failure never undoes a creation.
type ApplyResult struct {
	Created []AppliedSplit `json:"created"`
	Failed  []AppliedSplit `json:"failed,omitempty"`
}

// CreatedMix describes a playlist created from a genre selection.
type CreatedMix struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Genres        []string `json:"genres"`
	TrackCount    int      `json:"trackCount"`
	URI           string   `json:"uri"`
	IsPublic      bool     `json:"isPublic"`
	CoverImageSet bool     `json:"coverImageSet"`
}

// AuthTokens is the token set handed to a client after the OAuth exchange.
type AuthTokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    int       `json:"expiresIn"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Scope        string    `json:"scope,omitempty"`
	TokenType    string    `json:"tokenType"`
}

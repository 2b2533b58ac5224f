package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/splitx/internal/genre"
	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/session"
	"github.com/desertthunder/splitx/internal/shared"
	"github.com/desertthunder/splitx/internal/tasks"
)

var completePage = template.Must(template.New("complete").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>{{.Title}}</title>
  </head>
  <body>
    <p>{{.Message}}</p>
    <script>
      window.close();
    </script>
  </body>
</html>
`))

type playlistSummary struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Images      []models.Image `json:"images"`
	Owner       models.Owner   `json:"owner"`
	TrackCount  int            `json:"trackCount"`
}

type playlistDetail struct {
	playlistSummary
	Tracks []models.EnrichedTrack `json:"tracks"`
}

type previewPlaylist struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	TrackCount       int    `json:"trackCount"`
	SuggestedMixName string `json:"suggestedMixName"`
}

type previewResponse struct {
	Playlist previewPlaylist     `json:"playlist"`
	Splits   []models.GenreSplit `json:"splits"`
}

type playlistRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type filterResponse struct {
	Playlist      playlistRef            `json:"playlist"`
	Genres        []string               `json:"genres"`
	TrackCount    int                    `json:"trackCount"`
	SuggestedName string                 `json:"suggestedName"`
	Tracks        []models.EnrichedTrack `json:"tracks"`
}

type startAuthRequest struct {
	RedirectURI string `json:"redirectUri"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type applyRequest struct {
	Splits              []models.SplitInstruction `json:"splits"`
	DescriptionTemplate string                    `json:"descriptionTemplate"`
}

type genresRequest struct {
	Genres     []string `json:"genres"`
	Name       string   `json:"name"`
	MakePublic bool     `json:"makePublic"`
}

// decodeJSON reads a JSON body of at most 1 MiB. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return NewHTTPError(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return &HTTPError{Status: http.StatusBadRequest, Message: "Invalid JSON body", Details: err.Error()}
	}
	return nil
}

func summarize(p models.Playlist) playlistSummary {
	images := p.Images
	if images == nil {
		images = []models.Image{}
	}
	owner := p.Owner
	if owner.Name == "" {
		owner.Name = owner.ID
	}
	if owner.Name == "" {
		owner.Name = "Unknown"
	}
	return playlistSummary{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Images:      images,
		Owner:       owner,
		TrackCount:  p.TrackCount,
	}
}

// relabel returns copies of tracks with their genre in display form.
func relabel(tracks []models.EnrichedTrack) []models.EnrichedTrack {
	out := make([]models.EnrichedTrack, len(tracks))
	for i, t := range tracks {
		t.Genre = genre.Label(t.Genre)
		out[i] = t
	}
	return out
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

func (s *Server) startAuth(w http.ResponseWriter, r *http.Request) error {
	var req startAuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	if req.RedirectURI != "" {
		if u, err := url.Parse(req.RedirectURI); err != nil || u.Scheme == "" {
			return NewHTTPError(http.StatusBadRequest, "redirectUri must be an absolute URL")
		}
	}

	state := session.NewState()
	record := session.Record{State: state, RedirectURI: req.RedirectURI, CreatedAt: s.now()}
	if err := s.sessions.Put(r.Context(), record); err != nil {
		return err
	}

	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"authorizeUrl": s.auth.AuthorizeURL(state),
		"state":        state,
	})
	return nil
}

// callback completes the authorization redirect. Tokens are attached to the session for a single pickup through
// /auth/session/{state}; the browser is sent back to the client or shown a completion page.
func (s *Server) callback(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		return NewHTTPError(http.StatusBadRequest, "Missing code or state")
	}

	record, err := s.sessions.Get(r.Context(), state)
	if err != nil {
		if errors.Is(err, shared.ErrSessionNotFound) {
			return NewHTTPError(http.StatusBadRequest, "Invalid or expired state parameter")
		}
		return err
	}

	tokens, err := s.auth.Exchange(r.Context(), code)
	if err != nil {
		return err
	}
	if _, err := session.AttachTokens(r.Context(), s.sessions, state, *tokens); err != nil {
		return err
	}
	s.log(r).Info("stored auth tokens", "state", state)

	if record.RedirectURI != "" {
		target, err := url.Parse(record.RedirectURI)
		if err != nil {
			return fmt.Errorf("%w: stored redirect uri: %v", shared.ErrInvalidInput, err)
		}
		values := target.Query()
		values.Set("state", state)
		target.RawQuery = values.Encode()
		http.Redirect(w, r, target.String(), http.StatusFound)
		return nil
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return completePage.Execute(w, map[string]string{
		"Title":   "Spotify Auth Complete",
		"Message": "Authentication complete. You may close this window.",
	})
}

func (s *Server) sessionTokens(w http.ResponseWriter, r *http.Request) error {
	tokens, err := s.sessions.Consume(r.Context(), r.PathValue("state"))
	if err != nil {
		if errors.Is(err, shared.ErrSessionNotFound) {
			return NewHTTPError(http.StatusNotFound, "Session not found or already consumed")
		}
		return err
	}

	writeJSON(w, s.logger, http.StatusOK, tokens)
	return nil
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) error {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		return NewHTTPError(http.StatusBadRequest, "refreshToken is required")
	}

	tokens, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	writeJSON(w, s.logger, http.StatusOK, tokens)
	return nil
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request, token string) error {
	user, err := s.catalogs.ForToken(token).CurrentUser(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, s.logger, http.StatusOK, user)
	return nil
}

func (s *Server) listPlaylists(w http.ResponseWriter, r *http.Request, token string) error {
	playlists, err := s.engine(r, token).Playlists(r.Context(), nil)
	if err != nil {
		return err
	}

	payload := make([]playlistSummary, len(playlists))
	for i, p := range playlists {
		payload[i] = summarize(p)
	}
	writeJSON(w, s.logger, http.StatusOK, payload)
	return nil
}

func (s *Server) playlistDetail(w http.ResponseWriter, r *http.Request, token string) error {
	detail, err := s.engine(r, token).PlaylistDetail(r.Context(), nil, r.PathValue("playlistId"))
	if err != nil {
		return err
	}

	summary := summarize(detail.Playlist)
	if summary.TrackCount == 0 {
		summary.TrackCount = len(detail.Tracks)
	}
	writeJSON(w, s.logger, http.StatusOK, playlistDetail{
		playlistSummary: summary,
		Tracks:          relabel(detail.Tracks),
	})
	return nil
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request, token string) error {
	result, err := s.engine(r, token).Preview(r.Context(), nil, r.PathValue("playlistId"))
	if err != nil {
		return err
	}

	trackCount := result.Playlist.TrackCount
	if trackCount == 0 {
		trackCount = result.Stats.Tracks
	}

	splits := make([]models.GenreSplit, len(result.Preview.Splits))
	for i, sp := range result.Preview.Splits {
		sp.Tracks = relabel(sp.Tracks)
		splits[i] = sp
	}

	writeJSON(w, s.logger, http.StatusOK, previewResponse{
		Playlist: previewPlaylist{
			ID:               result.Playlist.ID,
			Name:             result.Playlist.Name,
			Description:      result.Playlist.Description,
			TrackCount:       trackCount,
			SuggestedMixName: result.Preview.SuggestedMixName,
		},
		Splits: splits,
	})
	return nil
}

// apply reports per-split outcomes. When every split failed the response is 502 with the outcomes as details.
func (s *Server) apply(w http.ResponseWriter, r *http.Request, token string) error {
	var req applyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	result, err := s.engine(r, token).Apply(r.Context(), nil, r.PathValue("playlistId"), tasks.ApplyOpts{
		Instructions:        req.Splits,
		DescriptionTemplate: req.DescriptionTemplate,
	})
	if err != nil {
		if result != nil {
			return &HTTPError{Status: StatusFor(err), Message: err.Error(), Details: result}
		}
		return err
	}

	writeJSON(w, s.logger, http.StatusOK, result)
	return nil
}

func (s *Server) filter(w http.ResponseWriter, r *http.Request, token string) error {
	var req genresRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	result, err := s.engine(r, token).Filter(r.Context(), nil, r.PathValue("playlistId"), req.Genres)
	if err != nil {
		return err
	}

	writeJSON(w, s.logger, http.StatusOK, filterResponse{
		Playlist: playlistRef{
			ID:          result.Playlist.ID,
			Name:        result.Playlist.Name,
			Description: result.Playlist.Description,
		},
		Genres:        result.Filter.Genres,
		TrackCount:    result.Filter.TrackCount,
		SuggestedName: result.Filter.SuggestedName,
		Tracks:        relabel(result.Filter.Tracks),
	})
	return nil
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, token string) error {
	var req genresRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	mix, err := s.engine(r, token).CreateFromGenres(r.Context(), nil, r.PathValue("playlistId"), tasks.CreateOpts{
		Genres:     req.Genres,
		Name:       req.Name,
		MakePublic: req.MakePublic,
	})
	if err != nil {
		return err
	}

	writeJSON(w, s.logger, http.StatusOK, map[string]*models.CreatedMix{"playlist": mix})
	return nil
}

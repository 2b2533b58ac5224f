package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"

	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/shared"
)

const (
	batchTemperature  = 0.2
	batchMaxTokens    = 400
	singleTemperature = 0.1
	singleMaxTokens   = 200
	coverSongSamples  = 6
	coverQuality      = 80
)

// GeminiService infers genres with the Gemini text model and renders covers
// with the Imagen model through the genai client.
type GeminiService struct {
	client     *genai.Client
	model      string
	imageModel string
	logger     *log.Logger
}

// NewGeminiService creates a service from configuration. An empty API key
// yields an unconfigured service whose calls return no results. BaseURL
// overrides the API host, e.g. for a proxy.
func NewGeminiService(cfg shared.GeminiConfig, client *http.Client, logger *log.Logger) *GeminiService {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout()}
	}
	if logger == nil {
		logger = log.Default()
	}

	g := &GeminiService{model: cfg.Model, imageModel: cfg.ImageModel, logger: logger}
	if cfg.APIKey == "" {
		return g
	}

	gc, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  client,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		logger.Error("gemini client unavailable, inference disabled", "error", err)
		return g
	}
	g.client = gc
	return g
}

type promptTrack struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Artists []string `json:"artists"`
	Album   string   `json:"album"`
}

type batchAnswer struct {
	Items []struct {
		ID    any `json:"id"`
		Genre any `json:"genre"`
	} `json:"items"`
}

// Configured reports whether a client was built from an API key.
func (g *GeminiService) Configured() bool {
	return g.client != nil
}

// InferGenres asks for one genre per track. Items with a missing id or genre are dropped.
func (g *GeminiService) InferGenres(ctx context.Context, tracks []models.Track) (map[string]string, error) {
	genres := make(map[string]string)
	if len(tracks) == 0 || !g.Configured() {
		return genres, nil
	}

	prompt, err := batchPrompt(tracks)
	if err != nil {
		return genres, err
	}

	text, err := g.generate(ctx, prompt, batchTemperature, batchMaxTokens)
	if err != nil {
		return genres, err
	}
	if text == "" {
		return genres, nil
	}

	var answer batchAnswer
	if err := json.Unmarshal([]byte(text), &answer); err != nil {
		return genres, fmt.Errorf("%w: unparseable genre response: %v", shared.ErrAPIRequest, err)
	}

	for _, item := range answer.Items {
		id, _ := item.ID.(string)
		genre, _ := item.Genre.(string)
		genre = strings.TrimSpace(genre)
		if id != "" && genre != "" {
			genres[id] = genre
		}
	}

	g.logger.Debug("inferred genres", "requested", len(tracks), "answered", len(genres))
	return genres, nil
}

// InferGenre asks for the genre of a single track. A non-JSON answer is
// accepted as plain text with surrounding quotes removed.
func (g *GeminiService) InferGenre(ctx context.Context, track models.Track) (string, error) {
	if !g.Configured() {
		return "", nil
	}

	text, err := g.generate(ctx, singlePrompt(track), singleTemperature, singleMaxTokens)
	if err != nil {
		return "", err
	}
	return parseSingleGenre(text), nil
}

// GenerateCover renders a square JPEG for a playlist.
func (g *GeminiService) GenerateCover(ctx context.Context, name string, genres []string, tracks []models.Track) ([]byte, error) {
	if !g.Configured() {
		return nil, nil
	}

	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, CoverPrompt(name, genres, tracks), &genai.GenerateImagesConfig{
		NumberOfImages:           1,
		AspectRatio:              "1:1",
		OutputMIMEType:           "image/jpeg",
		OutputCompressionQuality: genai.Ptr[int32](coverQuality),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: generate cover: %v", shared.ErrAPIRequest, err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, nil
	}

	img := resp.GeneratedImages[0].Image.ImageBytes
	if len(img) == 0 {
		return nil, nil
	}
	return img, nil
}

func (g *GeminiService) generate(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %v", shared.ErrAPIRequest, err)
	}
	return extractText(resp), nil
}

// extractText joins the non-blank parts of the first candidate that has any.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var parts []string
		for _, p := range c.Content.Parts {
			if p != nil && strings.TrimSpace(p.Text) != "" {
				parts = append(parts, p.Text)
			}
		}
		if len(parts) > 0 {
			return stripFences(strings.Join(parts, "\n"))
		}
	}
	return ""
}

// stripFences removes a surrounding markdown code block.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func parseSingleGenre(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var answer struct {
		Genre any `json:"genre"`
	}
	if err := json.Unmarshal([]byte(text), &answer); err == nil {
		if genre, ok := answer.Genre.(string); ok && strings.TrimSpace(genre) != "" {
			return strings.TrimSpace(genre)
		}
	}

	return strings.TrimSpace(strings.Trim(text, `"`))
}

func batchPrompt(tracks []models.Track) (string, error) {
	payload := make([]promptTrack, len(tracks))
	for i, t := range tracks {
		payload[i] = promptTrack{ID: t.ID, Title: t.Name, Artists: artistNames(t), Album: t.Album.Name}
	}
	songs, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a music metadata expert with deep knowledge of Spotify's public genre taxonomy and historical music context.\n")
	b.WriteString("Your primary goal is to infer a single, mainstream, and widely recognizable genre for every song provided.\n")
	b.WriteString(`- NEVER use placeholders like "Unknown", "None", "Misc", "Other", "N/A" or blank values. You must infer the closest real genre.` + "\n")
	b.WriteString(`- Prioritize well-known, high-level genres that a mainstream listener would expect (e.g. "Pop", "Rock", "Hip Hop", "Jazz").` + "\n")
	b.WriteString("- Use the genre a classic track was known for at its peak, or its most popular modern equivalent.\n")
	b.WriteString("- Capitalize each word of the genre and keep it to 1-3 words.\n\n")
	b.WriteString(`Return the results as strict JSON with the shape {"items": [{"id": string, "genre": string}, ...]}.` + "\n")
	b.WriteString("Songs: ")
	b.Write(songs)
	return b.String(), nil
}

func artistNames(t models.Track) []string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return names
}

func singlePrompt(track models.Track) string {
	return fmt.Sprintf(`You are a music metadata expert. Infer the single best mainstream Spotify genre for the song described below.
- NEVER use placeholders like "Unknown", "None", "Misc", "Other", "N/A" or blank values.
- Always respond with strict JSON exactly like {"genre": "Genre Name"} (Title Case, 1-3 words).
Song: %s
Artists: %s
Album: %s`, track.Name, track.ArtistNames(), track.Album.Name)
}

// CoverPrompt builds the image prompt from the playlist name, its genres and
// up to six sample songs.
func CoverPrompt(name string, genres []string, tracks []models.Track) string {
	samples := tracks[:min(len(tracks), coverSongSamples)]
	songs := make([]string, len(samples))
	for i, t := range samples {
		songs[i] = t.Name + " by " + t.ArtistNames()
	}

	return fmt.Sprintf(
		`Design a modern, text-free Spotify playlist cover for a playlist titled "%s" featuring the genres %s. `+
			`Capture the shared mood of these songs: %s. Use vibrant colors, expressive abstract art, and square 1:1 composition.`,
		name, strings.Join(genres, ", "), strings.Join(songs, "; "),
	)
}

var _ Inferer = (*GeminiService)(nil)

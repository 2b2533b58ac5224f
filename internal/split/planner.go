package split

import (
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/splitx/internal/genre"
	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/shared"
)

const (
	defaultBaseName = "Playlist"
	nameSeparator   = " • "

	tokenGenre  = "{{genre}}"
	tokenSource = "{{source}}"
)

// Group is the tracks sharing one genre label, in input order.
type Group struct {
	Genre  string
	Tracks []models.EnrichedTrack
}

// Preview is the planned split of a playlist.
type Preview struct {
	Splits           []models.GenreSplit `json:"splits"`
	SuggestedMixName string              `json:"suggestedMixName"`
}

// FilterResult is the subset of a playlist matching a genre selection.
type FilterResult struct {
	Genres        []string               `json:"genres"`
	TrackCount    int                    `json:"trackCount"`
	SuggestedName string                 `json:"suggestedName"`
	Tracks        []models.EnrichedTrack `json:"tracks"`
}

// CreatePlan holds everything needed to create a single playlist from a genre selection and request its cover.
type CreatePlan struct {
	Name        string
	Description string
	Genres      []string
	URIs        []string
	MakePublic  bool
	Tracks      []models.EnrichedTrack
}

func baseName(source string) string {
	if trimmed := strings.TrimSpace(source); trimmed != "" {
		return trimmed
	}
	return defaultBaseName
}

// GroupByGenre groups tracks by display label, ordered by each label's first occurrence.
func GroupByGenre(tracks []models.EnrichedTrack) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, t := range tracks {
		label := genre.Label(t.Genre)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Genre: label})
		}
		groups[i].Tracks = append(groups[i].Tracks, t)
	}
	return groups
}

// SuggestSplitName names the playlist for a single genre of source.
func SuggestSplitName(source, g string) string {
	return baseName(source) + nameSeparator + genre.Label(g)
}

// SuggestMixName names a playlist combining genres from source.
func SuggestMixName(source string, genres []string) string {
	base := baseName(source)
	labels := genre.Labels(genres)

	switch len(labels) {
	case 0:
		return base
	case 1:
		return base + nameSeparator + labels[0]
	case 2:
		return fmt.Sprintf("%s%s%s & %s", base, nameSeparator, labels[0], labels[1])
	case 3:
		return fmt.Sprintf("%s%s%s, %s & %s", base, nameSeparator, labels[0], labels[1], labels[2])
	default:
		return fmt.Sprintf("%s%s%s, %s + More", base, nameSeparator, labels[0], labels[1])
	}
}

// FilterByGenres keeps tracks whose genre key is in the key set of genres. No genres selects nothing.
func FilterByGenres(tracks []models.EnrichedTrack, genres []string) []models.EnrichedTrack {
	out := []models.EnrichedTrack{}
	if len(genres) == 0 {
		return out
	}

	keys := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		keys[genre.Key(g)] = struct{}{}
	}

	for _, t := range tracks {
		if _, ok := keys[genre.Key(t.Genre)]; ok {
			out = append(out, t)
		}
	}
	return out
}

// DistinctLabels returns the display labels present in tracks, in first-seen order.
func DistinctLabels(tracks []models.EnrichedTrack) []string {
	labels := []string{}
	seen := make(map[string]struct{})
	for _, t := range tracks {
		label := genre.Label(t.Genre)
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}

// PlanPreview builds one split per genre group plus a mix name covering every genre present.
func PlanPreview(playlistName string, tracks []models.EnrichedTrack) Preview {
	groups := GroupByGenre(tracks)
	preview := Preview{Splits: make([]models.GenreSplit, 0, len(groups))}
	genres := make([]string, 0, len(groups))

	for _, g := range groups {
		preview.Splits = append(preview.Splits, models.GenreSplit{
			Genre:         g.Genre,
			SuggestedName: SuggestSplitName(playlistName, g.Genre),
			TrackCount:    len(g.Tracks),
			Tracks:        g.Tracks,
		})
		genres = append(genres, g.Genre)
	}

	preview.SuggestedMixName = SuggestMixName(playlistName, genres)
	return preview
}

// PlanFilter selects the tracks matching genres and names the resulting mix.
func PlanFilter(playlistName string, tracks []models.EnrichedTrack, genres []string) (*FilterResult, error) {
	if len(genres) == 0 {
		return nil, shared.ErrEmptyGenres
	}

	filtered := FilterByGenres(tracks, genres)
	labels := DistinctLabels(filtered)
	return &FilterResult{
		Genres:        labels,
		TrackCount:    len(filtered),
		SuggestedName: SuggestMixName(playlistName, labels),
		Tracks:        filtered,
	}, nil
}

// Describe renders a split playlist description. Every {{genre}} and {{source}} in template is replaced; an empty
// template yields the default description.
func Describe(template, g, source string) string {
	label := genre.Label(g)
	if template == "" {
		return fmt.Sprintf(`Smart split from "%s" (%s)`, source, label)
	}
	return strings.NewReplacer(tokenGenre, label, tokenSource, source).Replace(template)
}

// DescribeMix renders the description of a playlist created from a genre selection.
func DescribeMix(source string, genres []string) string {
	return fmt.Sprintf(`Generated from "%s" focusing on %s.`, source, strings.Join(genre.Labels(genres), ", "))
}

// UniqueURIs deduplicates uris preserving first occurrence and dropping blanks.
func UniqueURIs(uris []string) []string {
	out := make([]string, 0, len(uris))
	seen := make(map[string]struct{}, len(uris))
	for _, uri := range uris {
		if uri == "" {
			continue
		}
		if _, ok := seen[uri]; ok {
			continue
		}
		seen[uri] = struct{}{}
		out = append(out, uri)
	}
	return out
}

// AddableURIs deduplicates uris and keeps only catalog track URIs.
func AddableURIs(uris []string) []string {
	out := UniqueURIs(uris)
	return slices.DeleteFunc(out, func(uri string) bool { return !strings.HasPrefix(uri, models.TrackURIPrefix) })
}

// TrackURIs returns the deduplicated URIs of tracks.
func TrackURIs(tracks []models.EnrichedTrack) []string {
	uris := make([]string, len(tracks))
	for i, t := range tracks {
		uris[i] = t.URI
	}
	return UniqueURIs(uris)
}

// PlanCreateFromGenres plans one playlist holding every track of the selected genres.
func PlanCreateFromGenres(playlistName string, tracks []models.EnrichedTrack, selectedGenres []string, requestedName string, makePublic bool) (*CreatePlan, error) {
	if len(selectedGenres) == 0 {
		return nil, shared.ErrEmptyGenres
	}

	filtered := FilterByGenres(tracks, selectedGenres)
	if len(filtered) == 0 {
		return nil, shared.ErrNoMatchingTracks
	}

	labels := DistinctLabels(filtered)
	name := strings.TrimSpace(requestedName)
	if name == "" {
		name = SuggestMixName(playlistName, labels)
	}

	return &CreatePlan{
		Name:        name,
		Description: DescribeMix(playlistName, labels),
		Genres:      labels,
		URIs:        TrackURIs(filtered),
		MakePublic:  makePublic,
		Tracks:      filtered,
	}, nil
}

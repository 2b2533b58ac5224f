package split

import (
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/shared"
	tu "github.com/desertthunder/splitx/internal/testing"
)

func trackIDs(tracks []models.EnrichedTrack) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

func sampleTracks() []models.EnrichedTrack {
	return []models.EnrichedTrack{
		tu.NewEnriched("1", "Rock", models.SourceCatalog),
		tu.NewEnriched("2", "Jazz", models.SourceInferred),
		tu.NewEnriched("3", "Rock", models.SourceCatalog),
		tu.NewEnriched("4", "Pop", models.SourceFallback),
		tu.NewEnriched("5", "Jazz", models.SourceCatalog),
	}
}

func TestSuggestMixName(t *testing.T) {
	tc := []struct {
		name   string
		source string
		genres []string
		want   string
	}{
		{name: "no genres", source: "Focus Mix", genres: nil, want: "Focus Mix"},
		{name: "one", source: "Focus Mix", genres: []string{"rock"}, want: "Focus Mix • Rock"},
		{name: "two", source: "Focus Mix", genres: []string{"rock", "jazz"}, want: "Focus Mix • Rock & Jazz"},
		{name: "three", source: "Focus Mix", genres: []string{"rock", "jazz", "pop"}, want: "Focus Mix • Rock, Jazz & Pop"},
		{name: "four", source: "Focus Mix", genres: []string{"rock", "jazz", "pop", "soul"}, want: "Focus Mix • Rock, Jazz + More"},
		{name: "blank source", source: "  ", genres: []string{"rock"}, want: "Playlist • Rock"},
		{name: "trimmed source", source: " Road Trip ", genres: nil, want: "Road Trip"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestMixName(tt.source, tt.genres); got != tt.want {
				t.Errorf("SuggestMixName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuggestSplitName(t *testing.T) {
	tc := []struct {
		source, genre, want string
	}{
		{source: "Focus Mix", genre: "hip hop", want: "Focus Mix • Hip Hop"},
		{source: "", genre: "jazz", want: "Playlist • Jazz"},
		{source: "Focus Mix", genre: "", want: "Focus Mix • Unknown"},
	}

	for _, tt := range tc {
		if got := SuggestSplitName(tt.source, tt.genre); got != tt.want {
			t.Errorf("SuggestSplitName(%q, %q) = %q, want %q", tt.source, tt.genre, got, tt.want)
		}
	}
}

func TestGroupByGenre(t *testing.T) {
	groups := GroupByGenre(sampleTracks())

	var genres []string
	for _, g := range groups {
		genres = append(genres, g.Genre)
	}
	if !slices.Equal(genres, []string{"Rock", "Jazz", "Pop"}) {
		t.Fatalf("group order = %v", genres)
	}
	if got := trackIDs(groups[0].Tracks); !slices.Equal(got, []string{"1", "3"}) {
		t.Errorf("rock tracks = %v", got)
	}
	if got := trackIDs(groups[1].Tracks); !slices.Equal(got, []string{"2", "5"}) {
		t.Errorf("jazz tracks = %v", got)
	}
}

func TestFilterByGenres(t *testing.T) {
	tracks := sampleTracks()

	t.Run("empty selection matches nothing", func(t *testing.T) {
		got := FilterByGenres(tracks, nil)
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", got)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		got := FilterByGenres(tracks, []string{"ROCK", " jazz "})
		if ids := trackIDs(got); !slices.Equal(ids, []string{"1", "2", "3", "5"}) {
			t.Errorf("got %v", ids)
		}
	})

	t.Run("placeholder selects default genre", func(t *testing.T) {
		got := FilterByGenres(tracks, []string{"unknown"})
		if ids := trackIDs(got); !slices.Equal(ids, []string{"4"}) {
			t.Errorf("got %v", ids)
		}
	})
}

func TestPlanPreview(t *testing.T) {
	preview := PlanPreview("Focus Mix", sampleTracks())

	if len(preview.Splits) != 3 {
		t.Fatalf("expected 3 splits, got %d", len(preview.Splits))
	}
	first := preview.Splits[0]
	if first.Genre != "Rock" || first.SuggestedName != "Focus Mix • Rock" || first.TrackCount != 2 {
		t.Errorf("unexpected first split %+v", first)
	}
	if preview.SuggestedMixName != "Focus Mix • Rock, Jazz & Pop" {
		t.Errorf("mix name = %q", preview.SuggestedMixName)
	}

	empty := PlanPreview("Focus Mix", nil)
	if len(empty.Splits) != 0 || empty.SuggestedMixName != "Focus Mix" {
		t.Errorf("unexpected empty preview %+v", empty)
	}
}

func TestPlanFilter(t *testing.T) {
	t.Run("no genres", func(t *testing.T) {
		if _, err := PlanFilter("Focus Mix", sampleTracks(), nil); !errors.Is(err, shared.ErrEmptyGenres) {
			t.Errorf("expected ErrEmptyGenres, got %v", err)
		}
	})

	t.Run("matches", func(t *testing.T) {
		got, err := PlanFilter("Focus Mix", sampleTracks(), []string{"jazz", "pop"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(got.Genres, []string{"Jazz", "Pop"}) || got.TrackCount != 3 {
			t.Errorf("unexpected result %+v", got)
		}
		if got.SuggestedName != "Focus Mix • Jazz & Pop" {
			t.Errorf("suggested name = %q", got.SuggestedName)
		}
	})

	t.Run("no matches is not an error", func(t *testing.T) {
		got, err := PlanFilter("Focus Mix", sampleTracks(), []string{"metal"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.TrackCount != 0 || got.SuggestedName != "Focus Mix" {
			t.Errorf("unexpected result %+v", got)
		}
	})
}

func TestDescribe(t *testing.T) {
	tc := []struct {
		name     string
		template string
		want     string
	}{
		{name: "default", template: "", want: `Smart split from "Focus Mix" (Hip Hop)`},
		{name: "tokens", template: "{{genre}} cuts from {{source}}", want: "Hip Hop cuts from Focus Mix"},
		{name: "repeated tokens", template: "{{genre}}/{{genre}} {{source}}{{source}}", want: "Hip Hop/Hip Hop Focus MixFocus Mix"},
		{name: "no tokens", template: "static", want: "static"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.template, "hip hop", "Focus Mix"); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUniqueURIs(t *testing.T) {
	got := UniqueURIs([]string{"a", "", "b", "a", "c", "b"})
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("UniqueURIs() = %v", got)
	}
}

func TestPlanCreateFromGenres(t *testing.T) {
	tracks := append(sampleTracks(), tu.NewEnriched("1", "Rock", models.SourceCatalog))

	t.Run("suggested name", func(t *testing.T) {
		plan, err := PlanCreateFromGenres("Focus Mix", tracks, []string{"rock", "jazz"}, "  ", true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if plan.Name != "Focus Mix • Rock & Jazz" {
			t.Errorf("name = %q", plan.Name)
		}
		if plan.Description != `Generated from "Focus Mix" focusing on Rock, Jazz.` {
			t.Errorf("description = %q", plan.Description)
		}
		want := []string{"spotify:track:1", "spotify:track:2", "spotify:track:3", "spotify:track:5"}
		if !slices.Equal(plan.URIs, want) {
			t.Errorf("uris = %v, want %v", plan.URIs, want)
		}
		if !plan.MakePublic || len(plan.Tracks) != 5 {
			t.Errorf("unexpected plan %+v", plan)
		}
	})

	t.Run("requested name is trimmed", func(t *testing.T) {
		plan, err := PlanCreateFromGenres("Focus Mix", tracks, []string{"pop"}, " Late Night ", false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if plan.Name != "Late Night" {
			t.Errorf("name = %q", plan.Name)
		}
	})

	t.Run("no matching tracks", func(t *testing.T) {
		if _, err := PlanCreateFromGenres("Focus Mix", tracks, []string{"metal"}, "", false); !errors.Is(err, shared.ErrNoMatchingTracks) {
			t.Errorf("expected ErrNoMatchingTracks, got %v", err)
		}
	})

	t.Run("no genres", func(t *testing.T) {
		if _, err := PlanCreateFromGenres("Focus Mix", tracks, nil, "", false); !errors.Is(err, shared.ErrEmptyGenres) {
			t.Errorf("expected ErrEmptyGenres, got %v", err)
		}
	})
}

package genre

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"unicode"

	"github.com/desertthunder/splitx/internal/models"
	tu "github.com/desertthunder/splitx/internal/testing"
)

func TestResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("first tagged artist wins", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.ArtistIndex["a"] = models.Artist{ID: "a", Genres: []string{"hip hop", "trap"}}
		catalog.ArtistIndex["b"] = models.Artist{ID: "b", Genres: []string{"lo-fi"}}

		out, err := NewResolver(catalog, nil, nil).Resolve(ctx, []models.Track{tu.NewTrack("t1", "a", "b")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[0].Genre != "Hip Hop" || out[0].GenreSource != models.SourceCatalog {
			t.Errorf("got %q/%q, want Hip Hop/catalog", out[0].Genre, out[0].GenreSource)
		}
	})

	t.Run("untagged first artist is skipped", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.ArtistIndex["a"] = models.Artist{ID: "a"}
		catalog.ArtistIndex["b"] = models.Artist{ID: "b", Genres: []string{"lo-fi"}}

		out, err := NewResolver(catalog, nil, nil).Resolve(ctx, []models.Track{tu.NewTrack("t1", "a", "b")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[0].Genre != "Lo-fi" || out[0].GenreSource != models.SourceCatalog {
			t.Errorf("got %q/%q, want Lo-fi/catalog", out[0].Genre, out[0].GenreSource)
		}
	})

	t.Run("placeholder tag falls through to next artist", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.ArtistIndex["a"] = models.Artist{ID: "a", Genres: []string{"misc", "rock"}}
		catalog.ArtistIndex["b"] = models.Artist{ID: "b", Genres: []string{"jazz"}}

		out, err := NewResolver(catalog, nil, nil).Resolve(ctx, []models.Track{tu.NewTrack("t1", "a", "b")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[0].Genre != "Jazz" {
			t.Errorf("got %q, want Jazz", out[0].Genre)
		}
	})

	t.Run("batch inference resolves missing", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		inferer := &tu.FakeInferer{Enabled: true, Batch: map[string]string{"t1": "indie pop"}}

		out, err := NewResolver(catalog, inferer, nil).Resolve(ctx, []models.Track{tu.NewTrack("t1", "a")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[0].Genre != "Indie Pop" || out[0].GenreSource != models.SourceInferred {
			t.Errorf("got %q/%q, want Indie Pop/inferred", out[0].Genre, out[0].GenreSource)
		}
		if len(inferer.SingleCalls) != 0 {
			t.Errorf("expected no retries, got %v", inferer.SingleCalls)
		}
	})

	t.Run("placeholder then null falls back to default", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		inferer := &tu.FakeInferer{Enabled: true, Batch: map[string]string{"t1": "Unknown"}}

		out, err := NewResolver(catalog, inferer, nil).Resolve(ctx, []models.Track{tu.NewTrack("t1", "a")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[0].Genre != DefaultGenre || out[0].GenreSource != models.SourceFallback {
			t.Errorf("got %q/%q, want Pop/fallback", out[0].Genre, out[0].GenreSource)
		}
		if !slices.Equal(inferer.SingleCalls, []string{"t1"}) {
			t.Errorf("expected one retry for t1, got %v", inferer.SingleCalls)
		}
	})

	t.Run("retry resolves omitted batch entries", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		inferer := &tu.FakeInferer{
			Enabled: true,
			Batch:   map[string]string{"t1": "soul"},
			Single:  map[string]string{"t2": "funk"},
		}

		tracks := []models.Track{tu.NewTrack("t1", "a"), tu.NewTrack("t2", "b")}
		out, stats, err := NewResolver(catalog, inferer, nil).ResolveWithStats(ctx, tracks)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[0].Genre != "Soul" || out[1].Genre != "Funk" {
			t.Errorf("got %q, %q", out[0].Genre, out[1].Genre)
		}
		if stats.BatchCalls != 1 || stats.RetryCalls != 1 || stats.Inferred != 2 {
			t.Errorf("unexpected stats %+v", stats)
		}
	})

	t.Run("batch failure degrades to retries", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.ArtistIndex["a"] = models.Artist{ID: "a", Genres: []string{"rock"}}
		inferer := &tu.FakeInferer{
			Enabled:  true,
			BatchErr: errors.New("boom"),
			Single:   map[string]string{"t2": "blues"},
		}

		tracks := []models.Track{tu.NewTrack("t1", "a"), tu.NewTrack("t2", "b"), tu.NewTrack("t3", "c")}
		out, err := NewResolver(catalog, inferer, nil).Resolve(ctx, tracks)
		if err != nil {
			t.Fatalf("batch failure must not propagate: %v", err)
		}
		if out[0].GenreSource != models.SourceCatalog {
			t.Errorf("catalog result lost: %+v", out[0])
		}
		if !slices.Equal(inferer.BatchCalls[0], []string{"t2", "t3"}) {
			t.Errorf("batch should only see unresolved tracks, got %v", inferer.BatchCalls[0])
		}
		if out[2].GenreSource != models.SourceFallback {
			t.Errorf("expected fallback for t3, got %+v", out[2])
		}
	})

	t.Run("retry failure stays unresolved", func(t *testing.T) {
		inferer := &tu.FakeInferer{Enabled: true, SingleErr: errors.New("timeout")}

		out, err := NewResolver(tu.NewFakeCatalog(), inferer, nil).Resolve(ctx, []models.Track{tu.NewTrack("t1", "a")})
		if err != nil {
			t.Fatalf("retry failure must not propagate: %v", err)
		}
		if out[0].GenreSource != models.SourceFallback {
			t.Errorf("expected fallback, got %+v", out[0])
		}
	})

	t.Run("unconfigured inferer is never called", func(t *testing.T) {
		inferer := &tu.FakeInferer{Enabled: false, Batch: map[string]string{"t1": "rock"}}

		out, err := NewResolver(tu.NewFakeCatalog(), inferer, nil).Resolve(ctx, []models.Track{tu.NewTrack("t1", "a")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(inferer.BatchCalls) != 0 || len(inferer.SingleCalls) != 0 {
			t.Error("inferer called while unconfigured")
		}
		if out[0].Genre != DefaultGenre || out[0].GenreSource != models.SourceFallback {
			t.Errorf("got %+v", out[0])
		}
	})

	t.Run("artist lookup failure propagates", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		catalog.ArtistsErr = errors.New("catalog down")

		if _, err := NewResolver(catalog, nil, nil).Resolve(ctx, []models.Track{tu.NewTrack("t1", "a")}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		catalog := tu.NewFakeCatalog()
		out, err := NewResolver(catalog, nil, nil).Resolve(ctx, nil)
		if err != nil || len(out) != 0 {
			t.Errorf("got %v, %v", out, err)
		}
		if len(catalog.ArtistCalls) != 0 {
			t.Error("expected no artist lookups")
		}
	})
}

func TestResolverArtistDeduplication(t *testing.T) {
	catalog := tu.NewFakeCatalog()
	var tracks []models.Track
	for i := range 120 {
		a := fmt.Sprintf("artist-%d", i%7)
		b := fmt.Sprintf("artist-%d", (i+1)%7)
		tracks = append(tracks, tu.NewTrack(fmt.Sprintf("t%d", i), a, b))
	}

	_, stats, err := NewResolver(catalog, nil, nil).ResolveWithStats(context.Background(), tracks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	requested := catalog.RequestedArtistIDs()
	if len(requested) != 7 {
		t.Errorf("expected 7 unique artist ids requested, got %d", len(requested))
	}
	if stats.ArtistIDs != 7 || stats.ArtistBatches != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestResolverArtistBatches(t *testing.T) {
	catalog := tu.NewFakeCatalog()
	var tracks []models.Track
	for i := range 120 {
		id := fmt.Sprintf("artist-%d", i)
		catalog.ArtistIndex[id] = models.Artist{ID: id, Genres: []string{"genre " + id}}
		tracks = append(tracks, tu.NewTrack(fmt.Sprintf("t%d", i), id))
	}

	out, err := NewResolver(catalog, nil, nil).Resolve(context.Background(), tracks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(catalog.ArtistCalls) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(catalog.ArtistCalls))
	}
	for _, call := range catalog.ArtistCalls {
		if len(call) > ArtistBatchSize {
			t.Errorf("batch of %d exceeds limit", len(call))
		}
	}
	for i, et := range out {
		want := fmt.Sprintf("Genre Artist-%d", i)
		if et.ID != tracks[i].ID || et.Genre != want {
			t.Errorf("out[%d] = %s/%q, want %s/%q", i, et.ID, et.Genre, tracks[i].ID, want)
		}
	}
}

func TestResolvedTracksAlwaysCarryGenre(t *testing.T) {
	catalog := tu.NewFakeCatalog()
	catalog.ArtistIndex["a"] = models.Artist{ID: "a", Genres: []string{"rock"}}
	inferer := &tu.FakeInferer{Enabled: true, Batch: map[string]string{"t2": "n/a"}, Single: map[string]string{"t3": "dream pop"}}
	tracks := []models.Track{tu.NewTrack("t1", "a"), tu.NewTrack("t2"), tu.NewTrack("t3", "z"), tu.NewTrack("t4")}

	out, err := NewResolver(catalog, inferer, nil).Resolve(context.Background(), tracks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, et := range out {
		if et.Genre == "" || !et.GenreSource.Valid() {
			t.Errorf("track %s missing genre or source: %+v", et.ID, et)
		}
		if r := []rune(et.Genre)[0]; !unicode.IsUpper(r) {
			t.Errorf("genre %q not title cased", et.Genre)
		}
	}
}

func TestStageTransitions(t *testing.T) {
	states := make([]resolution, 3)
	states[0].resolve("Rock", models.SourceCatalog)
	advanceAll(states, []int{0, 1, 2}, CatalogChecked)

	if states[0].stage != Resolved {
		t.Errorf("resolved track moved to %s", states[0].stage)
	}
	if got := pendingAt(states, CatalogChecked); !slices.Equal(got, []int{1, 2}) {
		t.Errorf("pendingAt = %v", got)
	}

	advanceAll(states, []int{1, 2}, RetryChecked)
	defaultStage(states)
	for i, s := range states {
		if s.stage != Resolved {
			t.Errorf("state %d ended at %s", i, s.stage)
		}
	}
	if states[1].genre != DefaultGenre || states[1].source != models.SourceFallback {
		t.Errorf("unexpected default state %+v", states[1])
	}
}

func TestUniqueArtistIDs(t *testing.T) {
	tracks := []models.Track{tu.NewTrack("1", "b", "a"), tu.NewTrack("2", "a", "c"), tu.NewTrack("3", "", "b")}
	if got := UniqueArtistIDs(tracks); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Errorf("UniqueArtistIDs() = %v", got)
	}
}

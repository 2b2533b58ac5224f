package genre

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/shared"
)

const (
	// ArtistBatchSize is the catalog's ceiling on artist ids per lookup.
	ArtistBatchSize = 50
	// MaxConcurrentBatches bounds in-flight artist lookups for one pass.
	MaxConcurrentBatches = 4
)

// Stage is the position of a single track in the resolution cascade.
type Stage int

const (
	Unresolved Stage = iota
	CatalogChecked
	BatchChecked
	RetryChecked
	Resolved
)

func (s Stage) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case CatalogChecked:
		return "catalog-checked"
	case BatchChecked:
		return "batch-checked"
	case RetryChecked:
		return "retry-checked"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// ArtistLookup fetches artist metadata for at most [ArtistBatchSize] ids.
type ArtistLookup interface {
	Artists(ctx context.Context, ids []string) ([]models.Artist, error)
}

// Inferer guesses genres when catalog metadata is absent. Both calls may fail or return partial results.
type Inferer interface {
	Configured() bool
	// InferGenres returns raw genre strings keyed by track id.
	InferGenres(ctx context.Context, tracks []models.Track) (map[string]string, error)
	// InferGenre returns a raw genre for one track, or "" when it has no answer.
	InferGenre(ctx context.Context, track models.Track) (string, error)
}

// Stats summarizes one resolution pass.
type Stats struct {
	Tracks        int // tracks resolved
	Catalog       int // resolved from artist tags
	Inferred      int // resolved by batch or retry inference
	Fallback      int // assigned [DefaultGenre]
	ArtistIDs     int // unique artist ids looked up
	ArtistBatches int // artist lookup calls
	BatchCalls    int // InferGenres calls
	RetryCalls    int // InferGenre calls
}

// Resolver assigns exactly one genre and source to every track.
type Resolver struct {
	artists     ArtistLookup
	inferer     Inferer
	logger      *log.Logger
	concurrency int
}

// NewResolver creates a Resolver. inferer may be nil, in which case unresolved tracks fall straight to the default.
func NewResolver(artists ArtistLookup, inferer Inferer, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{
		artists:     artists,
		inferer:     inferer,
		logger:      logger,
		concurrency: MaxConcurrentBatches,
	}
}

// resolution is the cascade state of one track.
type resolution struct {
	stage  Stage
	genre  string
	source models.GenreSource
}

func (r *resolution) resolve(genre string, source models.GenreSource) {
	r.genre, r.source, r.stage = genre, source, Resolved
}

// advance moves an unresolved track to the next checked stage.
func (r *resolution) advance(to Stage) {
	if r.stage != Resolved {
		r.stage = to
	}
}

// Resolve returns one [models.EnrichedTrack] per input track, in input order.
func (r *Resolver) Resolve(ctx context.Context, tracks []models.Track) ([]models.EnrichedTrack, error) {
	out, _, err := r.ResolveWithStats(ctx, tracks)
	return out, err
}

// ResolveWithStats is [Resolver.Resolve] that also reports what each stage did.
func (r *Resolver) ResolveWithStats(ctx context.Context, tracks []models.Track) ([]models.EnrichedTrack, Stats, error) {
	stats := Stats{Tracks: len(tracks)}
	if len(tracks) == 0 {
		return []models.EnrichedTrack{}, stats, nil
	}

	states := make([]resolution, len(tracks))

	if err := r.catalogStage(ctx, tracks, states, &stats); err != nil {
		return nil, stats, err
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}
	r.batchStage(ctx, tracks, states, &stats)
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}
	r.retryStage(ctx, tracks, states, &stats)
	defaultStage(states)

	out := make([]models.EnrichedTrack, len(tracks))
	for i, t := range tracks {
		out[i] = models.EnrichedTrack{Track: t, Genre: states[i].genre, GenreSource: states[i].source}
		switch states[i].source {
		case models.SourceCatalog:
			stats.Catalog++
		case models.SourceInferred:
			stats.Inferred++
		default:
			stats.Fallback++
		}
	}

	r.logger.Info("resolved genres",
		"tracks", stats.Tracks,
		"catalog", stats.Catalog,
		"inferred", stats.Inferred,
		"fallback", stats.Fallback,
		"artists", stats.ArtistIDs,
		"retries", stats.RetryCalls,
	)
	return out, stats, nil
}

// catalogStage takes the first tag of the first artist, in listed order, whose first tag is usable.
func (r *Resolver) catalogStage(ctx context.Context, tracks []models.Track, states []resolution, stats *Stats) error {
	ids := UniqueArtistIDs(tracks)
	stats.ArtistIDs = len(ids)

	artists, err := r.fetchArtists(ctx, ids, stats)
	if err != nil {
		return err
	}

	for i, t := range tracks {
		for _, ref := range t.Artists {
			a, ok := artists[ref.ID]
			if !ok || len(a.Genres) == 0 {
				continue
			}
			if g, ok := Normalize(a.Genres[0]); ok {
				states[i].resolve(g, models.SourceCatalog)
				break
			}
		}
		states[i].advance(CatalogChecked)
	}
	return nil
}

// fetchArtists looks up ids in concurrent batches and merges the results by artist id.
func (r *Resolver) fetchArtists(ctx context.Context, ids []string, stats *Stats) (map[string]models.Artist, error) {
	merged := make(map[string]models.Artist, len(ids))
	if len(ids) == 0 {
		return merged, nil
	}
	if r.artists == nil {
		return nil, fmt.Errorf("%w: artist lookup not configured", shared.ErrServiceUnavailable)
	}

	batches := slices.Collect(slices.Chunk(ids, ArtistBatchSize))
	results := make([][]models.Artist, len(batches))
	stats.ArtistBatches = len(batches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			artists, err := r.artists.Artists(gctx, batch)
			if err != nil {
				return err
			}
			results[i] = artists
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch artists: %w", err)
	}

	for _, batch := range results {
		for _, a := range batch {
			merged[a.ID] = a
		}
	}
	return merged, nil
}

func (r *Resolver) inferenceEnabled() bool {
	return r.inferer != nil && r.inferer.Configured()
}

// batchStage sends every track still unresolved to a single InferGenres call. Failures resolve nothing.
func (r *Resolver) batchStage(ctx context.Context, tracks []models.Track, states []resolution, stats *Stats) {
	pending := pendingAt(states, CatalogChecked)
	if len(pending) == 0 || !r.inferenceEnabled() {
		advanceAll(states, pending, BatchChecked)
		return
	}

	batch := make([]models.Track, len(pending))
	for j, i := range pending {
		batch[j] = tracks[i]
	}

	stats.BatchCalls++
	genres, err := r.inferer.InferGenres(ctx, batch)
	if err != nil {
		r.logger.Warn("batch genre inference failed", "tracks", len(batch), "err", err)
		genres = nil
	}

	for _, i := range pending {
		if g, ok := Normalize(genres[tracks[i].ID]); ok {
			states[i].resolve(g, models.SourceInferred)
			continue
		}
		states[i].advance(BatchChecked)
	}
}

// retryStage asks for each remaining track individually, one call at a time.
func (r *Resolver) retryStage(ctx context.Context, tracks []models.Track, states []resolution, stats *Stats) {
	pending := pendingAt(states, BatchChecked)
	if len(pending) == 0 || !r.inferenceEnabled() {
		advanceAll(states, pending, RetryChecked)
		return
	}

	for _, i := range pending {
		if ctx.Err() != nil {
			states[i].advance(RetryChecked)
			continue
		}

		stats.RetryCalls++
		raw, err := r.inferer.InferGenre(ctx, tracks[i])
		if err != nil {
			r.logger.Warn("single track genre inference failed", "track", tracks[i].ID, "err", err)
		} else if g, ok := Normalize(raw); ok {
			states[i].resolve(g, models.SourceInferred)
			continue
		}
		states[i].advance(RetryChecked)
	}
}

func defaultStage(states []resolution) {
	for i := range states {
		if states[i].stage == RetryChecked {
			states[i].resolve(DefaultGenre, models.SourceFallback)
		}
	}
}

func pendingAt(states []resolution, stage Stage) []int {
	var idx []int
	for i := range states {
		if states[i].stage == stage {
			idx = append(idx, i)
		}
	}
	return idx
}

func advanceAll(states []resolution, idx []int, to Stage) {
	for _, i := range idx {
		states[i].advance(to)
	}
}

// UniqueArtistIDs returns every artist id referenced by tracks, deduplicated in first-seen order.
func UniqueArtistIDs(tracks []models.Track) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, t := range tracks {
		for _, id := range t.ArtistIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/splitx/internal/genre"
	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/services"
	"github.com/desertthunder/splitx/internal/shared"
	"github.com/desertthunder/splitx/internal/split"
)

// PreviewResult is a resolved playlist with its planned splits.
type PreviewResult struct {
	Playlist models.Playlist `json:"playlist"`
	Preview  split.Preview   `json:"preview"`
	Stats    genre.Stats     `json:"-"`
}

// FilterRunResult is a resolved playlist narrowed to a genre selection.
type FilterRunResult struct {
	Playlist models.Playlist    `json:"playlist"`
	Filter   split.FilterResult `json:"filter"`
}

// ApplyOpts configures a batch of split instructions.
type ApplyOpts struct {
	Instructions        []models.SplitInstruction
	DescriptionTemplate string
}

// CreateOpts selects the genres of a single new playlist.
type CreateOpts struct {
	Genres     []string
	Name       string
	MakePublic bool
}

// SplitEngine defines the smart-split operations on one user's catalog.
type SplitEngine interface {
	// Playlists lists the user's playlists.
	Playlists(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Playlist, error)

	// PlaylistDetail fetches a playlist and resolves a genre for every track.
	PlaylistDetail(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*models.PlaylistDetail, error)

	// Preview groups a playlist's tracks by genre without writing anything.
	Preview(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*PreviewResult, error)

	// Filter narrows a playlist to the selected genres without writing anything.
	Filter(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, genres []string) (*FilterRunResult, error)

	// Apply creates one playlist per instruction.
	Apply(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, opts ApplyOpts) (*models.ApplyResult, error)

	// CreateFromGenres creates one playlist holding every track of the selected genres, with a generated cover.
	CreateFromGenres(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, opts CreateOpts) (*models.CreatedMix, error)
}

// PlaylistEngine implements [SplitEngine] over a [services.Catalog] and an optional [services.Inferer].
type PlaylistEngine struct {
	catalog  services.Catalog
	inferer  services.Inferer
	resolver *genre.Resolver
	logger   *log.Logger
}

// NewPlaylistEngine creates an engine bound to catalog. inferer may be nil.
func NewPlaylistEngine(catalog services.Catalog, inferer services.Inferer, logger *log.Logger) *PlaylistEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var gi genre.Inferer
	if inferer != nil {
		gi = inferer
	}

	return &PlaylistEngine{
		catalog:  catalog,
		inferer:  inferer,
		resolver: genre.NewResolver(catalog, gi, logger),
		logger:   logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *PlaylistEngine) ready() error {
	if e.catalog == nil {
		return fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

func (e *PlaylistEngine) Playlists(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Playlist, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchPlaylistsUpdate())
	playlists, err := e.catalog.Playlists(ctx)
	if err != nil {
		return nil, err
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	return playlists, nil
}

func (e *PlaylistEngine) PlaylistDetail(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*models.PlaylistDetail, error) {
	playlist, tracks, _, err := e.resolvePlaylist(ctx, progress, playlistID)
	if err != nil {
		return nil, err
	}
	return &models.PlaylistDetail{Playlist: *playlist, Tracks: tracks}, nil
}

func (e *PlaylistEngine) Preview(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*PreviewResult, error) {
	playlist, tracks, stats, err := e.resolvePlaylist(ctx, progress, playlistID)
	if err != nil {
		return nil, err
	}

	preview := split.PlanPreview(playlist.Name, tracks)
	e.sendProgress(progress, plannedUpdate(len(preview.Splits)))

	return &PreviewResult{Playlist: *playlist, Preview: preview, Stats: stats}, nil
}

func (e *PlaylistEngine) Filter(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, genres []string) (*FilterRunResult, error) {
	if len(genres) == 0 {
		return nil, shared.ErrEmptyGenres
	}

	playlist, tracks, _, err := e.resolvePlaylist(ctx, progress, playlistID)
	if err != nil {
		return nil, err
	}

	filter, err := split.PlanFilter(playlist.Name, tracks, genres)
	if err != nil {
		return nil, err
	}
	return &FilterRunResult{Playlist: *playlist, Filter: *filter}, nil
}

// Apply validates the instructions before touching the catalog, then looks up the
// source name and owner and hands off to [split.Apply]. When every instruction
// fails the partial result is returned along with the error.
func (e *PlaylistEngine) Apply(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, opts ApplyOpts) (*models.ApplyResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, err := split.ValidateInstructions(opts.Instructions); err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchingSourceUpdate(playlistID))
	playlist, _, err := e.catalog.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	user, err := e.catalog.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	result, err := split.Apply(ctx, e.catalog, split.ApplyRequest{
		OwnerID:             user.ID,
		SourceName:          playlist.Name,
		Instructions:        opts.Instructions,
		DescriptionTemplate: opts.DescriptionTemplate,
		OnOutcome: func(done, total int, outcome models.AppliedSplit, err error) {
			if err != nil {
				e.logger.Warn("split failed", "playlist", playlistID, "name", outcome.Name, "error", err)
			}
			e.sendProgress(progress, appliedSplitUpdate(done, total, outcome, err))
		},
	})
	if result != nil {
		e.logger.Info("applied splits", "playlist", playlistID, "created", len(result.Created), "failed", len(result.Failed))
	}
	return result, err
}

func (e *PlaylistEngine) CreateFromGenres(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, opts CreateOpts) (*models.CreatedMix, error) {
	if len(opts.Genres) == 0 {
		return nil, shared.ErrEmptyGenres
	}

	playlist, tracks, _, err := e.resolvePlaylist(ctx, progress, playlistID)
	if err != nil {
		return nil, err
	}

	plan, err := split.PlanCreateFromGenres(playlist.Name, tracks, opts.Genres, opts.Name, opts.MakePublic)
	if err != nil {
		return nil, err
	}

	user, err := e.catalog.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	created, err := e.catalog.CreatePlaylist(ctx, user.ID, plan.Name, plan.Description, plan.MakePublic)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist %q: %w", plan.Name, err)
	}
	e.sendProgress(progress, createPlaylistUpdate(created))

	if err := e.catalog.AddTracks(ctx, created.ID, plan.URIs); err != nil {
		return nil, fmt.Errorf("failed to add tracks to %q: %w", plan.Name, err)
	}
	e.sendProgress(progress, addTracksUpdate(plan.Name, len(plan.URIs)))

	coverSet := e.applyCover(ctx, created.ID, plan)
	e.sendProgress(progress, coverUpdate(plan.Name, coverSet))

	name := created.Name
	if name == "" {
		name = plan.Name
	}
	return &models.CreatedMix{
		ID:            created.ID,
		Name:          name,
		Genres:        plan.Genres,
		TrackCount:    len(plan.URIs),
		URI:           created.URI,
		IsPublic:      plan.MakePublic,
		CoverImageSet: coverSet,
	}, nil
}

// applyCover generates and uploads a cover. Failures are logged and reported as false.
func (e *PlaylistEngine) applyCover(ctx context.Context, playlistID string, plan *split.CreatePlan) bool {
	if e.inferer == nil || !e.inferer.Configured() {
		return false
	}

	tracks := make([]models.Track, len(plan.Tracks))
	for i, t := range plan.Tracks {
		tracks[i] = t.Track
	}

	img, err := e.inferer.GenerateCover(ctx, plan.Name, plan.Genres, tracks)
	if err != nil {
		e.logger.Error("failed to generate cover", "playlist", playlistID, "error", err)
		return false
	}
	if len(img) == 0 {
		return false
	}

	if err := e.catalog.SetCover(ctx, playlistID, img); err != nil {
		e.logger.Error("failed to upload cover", "playlist", playlistID, "error", err)
		return false
	}
	return true
}

func (e *PlaylistEngine) resolvePlaylist(ctx context.Context, progress chan<- ProgressUpdate, playlistID string) (*models.Playlist, []models.EnrichedTrack, genre.Stats, error) {
	if err := e.ready(); err != nil {
		return nil, nil, genre.Stats{}, err
	}
	if playlistID == "" {
		return nil, nil, genre.Stats{}, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	e.sendProgress(progress, fetchingSourceUpdate(playlistID))
	playlist, tracks, err := e.catalog.Playlist(ctx, playlistID)
	if err != nil {
		return nil, nil, genre.Stats{}, err
	}
	e.sendProgress(progress, foundSourceUpdate(playlist, len(tracks)))

	e.sendProgress(progress, resolvingUpdate(len(tracks)))
	enriched, stats, err := e.resolver.ResolveWithStats(ctx, tracks)
	if err != nil {
		return nil, nil, stats, err
	}
	e.sendProgress(progress, resolvedUpdate(stats))

	return playlist, enriched, stats, nil
}

var _ SplitEngine = (*PlaylistEngine)(nil)

package tasks

import (
	"fmt"

	"github.com/desertthunder/splitx/internal/genre"
	"github.com/desertthunder/splitx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or server logs for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylists Phase = iota
	FetchSource
	ResolveGenres
	PlanSplits
	CreatePlaylist
	AddTracks
	GenerateCover
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchSource:
		return "fetch_source"
	case ResolveGenres:
		return "resolve_genres"
	case PlanSplits:
		return "plan_splits"
	case CreatePlaylist:
		return "create_playlist"
	case AddTracks:
		return "add_tracks"
	case GenerateCover:
		return "generate_cover"
	default:
		return ""
	}
}

func fetchPlaylistsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: "Fetching playlists from Spotify...",
	}
}

func fetchingSourceUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s...", id),
	}
}

func foundSourceUpdate(pl *models.Playlist, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", pl.Name, tracks),
		Data:    pl,
	}
}

func resolvingUpdate(tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveGenres,
		Step:    0,
		Total:   tracks,
		Message: fmt.Sprintf("Resolving genres for %d tracks...", tracks),
	}
}

func resolvedUpdate(stats genre.Stats) ProgressUpdate {
	return ProgressUpdate{
		Phase: ResolveGenres,
		Step:  stats.Tracks,
		Total: stats.Tracks,
		Message: fmt.Sprintf("Resolved genres: %d from artists, %d inferred, %d defaulted",
			stats.Catalog, stats.Inferred, stats.Fallback),
		Data: stats,
	}
}

func plannedUpdate(groups int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PlanSplits,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Planned %d genre splits", groups),
	}
}

func appliedSplitUpdate(step, total int, outcome models.AppliedSplit, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{
			Phase:   CreatePlaylist,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, outcome.Name, err),
			Data:    outcome,
		}
	}
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, outcome.Name, outcome.TrackCount),
		Data:    outcome,
	}
}

func createPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func addTracksUpdate(name string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Added %d tracks to %s", count, name),
	}
}

func coverUpdate(name string, set bool) ProgressUpdate {
	msg := fmt.Sprintf("Cover image set for %s", name)
	if !set {
		msg = fmt.Sprintf("No cover image for %s", name)
	}
	return ProgressUpdate{
		Phase:   GenerateCover,
		Step:    1,
		Total:   1,
		Message: msg,
	}
}

package split

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/splitx/internal/genre"
	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/shared"
)

// PlaylistWriter is the subset of the catalog that materializes splits.
type PlaylistWriter interface {
	CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (*models.Playlist, error)
	// AddTracks appends uris in order, chunking as the catalog requires.
	AddTracks(ctx context.Context, playlistID string, uris []string) error
}

// ApplyRequest describes a batch of split instructions for one source playlist.
type ApplyRequest struct {
	OwnerID             string
	SourceName          string
	Instructions        []models.SplitInstruction
	DescriptionTemplate string

	// OnOutcome, when set, is called after each instruction with its position and outcome.
	OnOutcome func(done, total int, outcome models.AppliedSplit, err error)
}

// ValidateInstructions reduces each instruction to its deduplicated track URIs and drops instructions left without
// any. Episode and local-file URIs cannot be added to a playlist and are discarded here. It fails when the batch is
// empty or nothing survives.
func ValidateInstructions(instrs []models.SplitInstruction) ([]models.SplitInstruction, error) {
	if len(instrs) == 0 {
		return nil, shared.ErrEmptySplits
	}

	valid := make([]models.SplitInstruction, 0, len(instrs))
	for _, in := range instrs {
		in.TrackURIs = AddableURIs(in.TrackURIs)
		if len(in.TrackURIs) == 0 {
			continue
		}
		valid = append(valid, in)
	}
	if len(valid) == 0 {
		return nil, shared.ErrNoSplitTracks
	}
	return valid, nil
}

// Apply creates one playlist per valid instruction, sequentially, and appends its deduplicated URIs.
//
// Outcomes are independent: a failed instruction is recorded in Failed and later instructions still run. Nothing is
// rolled back. When every instruction fails the result is returned together with an [shared.ErrAPIRequest] error.
func Apply(ctx context.Context, w PlaylistWriter, req ApplyRequest) (*models.ApplyResult, error) {
	instrs, err := ValidateInstructions(req.Instructions)
	if err != nil {
		return nil, err
	}

	result := &models.ApplyResult{Created: []models.AppliedSplit{}}
	for i, in := range instrs {
		outcome, err := applyOne(ctx, w, req, in)
		if err != nil {
			outcome.Error = err.Error()
			result.Failed = append(result.Failed, outcome)
		} else {
			result.Created = append(result.Created, outcome)
		}

		if req.OnOutcome != nil {
			req.OnOutcome(i+1, len(instrs), outcome, err)
		}
	}

	if len(result.Created) == 0 {
		return result, fmt.Errorf("%w: none of %d split playlists could be created", shared.ErrAPIRequest, len(instrs))
	}
	return result, nil
}

func applyOne(ctx context.Context, w PlaylistWriter, req ApplyRequest, in models.SplitInstruction) (models.AppliedSplit, error) {
	label := genre.Label(in.Genre)
	uris := in.TrackURIs

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = SuggestSplitName(req.SourceName, in.Genre)
	}
	outcome := models.AppliedSplit{Name: name, Genre: label, TrackCount: len(uris)}

	if err := ctx.Err(); err != nil {
		return outcome, err
	}

	created, err := w.CreatePlaylist(ctx, req.OwnerID, name, Describe(req.DescriptionTemplate, in.Genre, req.SourceName), in.MakePublic)
	if err != nil {
		return outcome, fmt.Errorf("failed to create playlist %q: %w", name, err)
	}
	outcome.ID, outcome.URI = created.ID, created.URI
	if created.Name != "" {
		outcome.Name = created.Name
	}

	if err := w.AddTracks(ctx, created.ID, uris); err != nil {
		return outcome, fmt.Errorf("failed to add tracks to %q: %w", name, err)
	}
	return outcome, nil
}

package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/splitx/internal/formatter"
	"github.com/desertthunder/splitx/internal/genre"
	"github.com/desertthunder/splitx/internal/models"
	"github.com/desertthunder/splitx/internal/shared"
	"github.com/desertthunder/splitx/internal/split"
	"github.com/desertthunder/splitx/internal/tasks"
	"github.com/desertthunder/splitx/internal/ui"
)

func playlistArg(cmd *cli.Command) (string, error) {
	id := cmd.StringArg("id")
	if id == "" {
		return "", fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	return id, nil
}

func (r *Runner) previewPlaylist(ctx context.Context, id string) (*tasks.PreviewResult, error) {
	engine, err := r.engine(ctx)
	if err != nil {
		return nil, err
	}

	progress, stop := r.progress()
	result, err := engine.Preview(ctx, progress, id)
	stop()
	return result, err
}

// SplitPreview prints the genre groups of a playlist in the requested format.
func (r *Runner) SplitPreview(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistArg(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	result, err := r.previewPlaylist(ctx, id)
	if err != nil {
		return err
	}
	defer r.persistRefreshedToken()

	r.logger.Info("resolved genres",
		"catalog", result.Stats.Catalog, "inferred", result.Stats.Inferred, "fallback", result.Stats.Fallback)

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WritePreviewFile(path, format, result.Playlist, result.Preview)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Preview written to %s\n", written)
	}

	if format == formatter.FormatTable {
		r.writePlain("%s\n", ui.Styles.Title(fmt.Sprintf("%s (%d tracks)", result.Playlist.Name, result.Stats.Tracks)))
	}
	return formatter.WritePreview(r.output, format, result.Playlist, result.Preview)
}

// SplitFilter prints the tracks matching the selected genres.
func (r *Runner) SplitFilter(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistArg(cmd)
	if err != nil {
		return err
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}
	defer r.persistRefreshedToken()

	progress, stop := r.progress()
	result, err := engine.Filter(ctx, progress, id, cmd.StringSlice("genre"))
	stop()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("%s\n", ui.Styles.Title(result.Filter.SuggestedName))
	r.writePlain("Genres: %v\n", result.Filter.Genres)
	r.writePlain("Tracks: %d\n\n", result.Filter.TrackCount)
	return r.writePlain("%s\n", formatter.TracksToTable(result.Filter.Tracks))
}

// SplitCreate creates one playlist holding every track of the selected genres.
func (r *Runner) SplitCreate(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistArg(cmd)
	if err != nil {
		return err
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}
	defer r.persistRefreshedToken()

	progress, stop := r.progress()
	mix, err := engine.CreateFromGenres(ctx, progress, id, tasks.CreateOpts{
		Genres:     cmd.StringSlice("genre"),
		Name:       cmd.String("name"),
		MakePublic: cmd.Bool("public"),
	})
	stop()
	if err != nil {
		return err
	}

	return r.writePlain("%s", formatter.MixToText(mix))
}

// SplitApply previews a playlist and creates one playlist per selected genre group.
func (r *Runner) SplitApply(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistArg(cmd)
	if err != nil {
		return err
	}

	result, err := r.previewPlaylist(ctx, id)
	if err != nil {
		return err
	}
	defer r.persistRefreshedToken()

	instructions := instructionsFromPreview(result.Preview, cmd.StringSlice("genre"), cmd.Int("min-tracks"), cmd.Bool("public"))
	if len(instructions) == 0 {
		return fmt.Errorf("%w: no genre groups match the selection", shared.ErrEmptySplits)
	}

	if cmd.Bool("dry-run") {
		r.writePlain("%s\n", ui.Styles.Title(fmt.Sprintf("Would create %d playlists", len(instructions))))
		for _, in := range instructions {
			r.writePlain("  %s (%d tracks)\n", in.Name, len(in.TrackURIs))
		}
		return nil
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	progress, stop := r.progress()
	applied, err := engine.Apply(ctx, progress, id, tasks.ApplyOpts{
		Instructions:        instructions,
		DescriptionTemplate: cmd.String("template"),
	})
	stop()

	if applied != nil {
		r.writePlain("%s", formatter.ApplyResultToText(applied))
	}
	return err
}

// instructionsFromPreview turns the preview splits into apply instructions. Only splits whose genre is in genres
// (all when empty) and which hold at least minTracks tracks are kept.
func instructionsFromPreview(preview split.Preview, genres []string, minTracks int, public bool) []models.SplitInstruction {
	keys := make([]string, len(genres))
	for i, g := range genres {
		keys[i] = genre.Key(g)
	}

	var out []models.SplitInstruction
	for _, sp := range preview.Splits {
		if len(keys) > 0 && !slices.Contains(keys, genre.Key(sp.Genre)) {
			continue
		}
		if sp.TrackCount < minTracks {
			continue
		}
		out = append(out, models.SplitInstruction{
			Genre:      sp.Genre,
			Name:       sp.SuggestedName,
			TrackURIs:  split.TrackURIs(sp.Tracks),
			MakePublic: public,
		})
	}
	return out
}

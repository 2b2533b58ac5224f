package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/splitx/internal/formatter"
	"github.com/desertthunder/splitx/internal/shared"
)

// Playlists lists the user's playlists with an optional limit.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}
	defer r.persistRefreshedToken()

	playlists, err := engine.Playlists(ctx, nil)
	if err != nil {
		return err
	}

	if limit := cmd.Int("limit"); limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	return r.writePlain("%s\n", formatter.PlaylistsToTable(playlists))
}

// PlaylistShow prints a playlist's tracks with their resolved genres.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}
	defer r.persistRefreshedToken()

	progress, stop := r.progress()
	detail, err := engine.PlaylistDetail(ctx, progress, id)
	stop()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(detail, true)
	}

	r.writePlain("Playlist: %s\n", detail.Name)
	if detail.Description != "" {
		r.writePlain("Description: %s\n", detail.Description)
	}
	r.writePlain("Tracks: %d\n\n", len(detail.Tracks))
	return r.writePlain("%s\n", formatter.TracksToTable(detail.Tracks))
}

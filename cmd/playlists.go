package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/focusync/internal/formatter"
	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/ui"
)

// PlaylistsList prints the quote playlists. The active playlist is marked.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	playlists := a.quotes.Playlists()
	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}
	if len(playlists) == 0 {
		return r.writePlain("No playlists\n")
	}

	active := a.quotes.Record().ActivePlaylist
	for _, pl := range playlists {
		mark := " "
		if pl.ID == active {
			mark = ui.Styles.OK("▶")
		}
		r.writePlain("%s %s %s (%d quotes)%s\n", mark, ui.Styles.Help(pl.ID), pl.Name, len(pl.MemberIDs), localMark(pl.LocalOnly))
	}
	return nil
}

// PlaylistsShow prints one playlist as Markdown with its members resolved.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	id := cmd.StringArg("id")
	for _, pl := range a.quotes.Playlists() {
		if pl.ID == id {
			_, err := r.output.Write(formatter.PlaylistToMarkdown(pl, a.quotes.Merged()))
			return err
		}
	}
	return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
}

// PlaylistsCreate creates a playlist and waits for the remote to confirm it.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 1 {
		return fmt.Errorf("%w: usage: playlists create <name> [quote-id...]", shared.ErrMissingArgument)
	}

	a, err := r.open()
	if err != nil {
		return err
	}

	args := cmd.Args().Slice()
	_, pending, err := a.quotes.CreatePlaylist(ctx, args[0], args[1:]...)
	if err != nil {
		return err
	}
	_, err = settle(ctx, r, "created playlist", true, pending)
	return err
}

func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	playlistID, quoteID, err := playlistArgs(cmd)
	if err != nil {
		return err
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	pending, err := a.quotes.AddToPlaylist(ctx, playlistID, quoteID)
	if err != nil {
		return err
	}
	_, err = settle(ctx, r, "added "+quoteID+" to playlist", true, pending)
	return err
}

func (r *Runner) PlaylistsRemove(ctx context.Context, cmd *cli.Command) error {
	playlistID, quoteID, err := playlistArgs(cmd)
	if err != nil {
		return err
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	pending, err := a.quotes.RemoveFromPlaylist(ctx, playlistID, quoteID)
	if err != nil {
		return err
	}
	_, err = settle(ctx, r, "removed "+quoteID+" from playlist", true, pending)
	return err
}

func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	pending, err := a.quotes.DeletePlaylist(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}
	_, err = settle(ctx, r, "deleted playlist", true, pending)
	return err
}

// PlaylistsUse sets the playlist quote rotation draws from.
func (r *Runner) PlaylistsUse(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	id := cmd.StringArg("id")
	if err := a.quotes.SetActivePlaylist(id); err != nil {
		return err
	}
	if id == "" {
		return r.writePlain("%s rotation is random\n", ui.Styles.OK("✓"))
	}
	return r.writePlain("%s rotating through %s\n", ui.Styles.OK("✓"), id)
}

func playlistArgs(cmd *cli.Command) (playlistID, quoteID string, err error) {
	if cmd.Args().Len() != 2 {
		return "", "", fmt.Errorf("%w: expected <playlist-id> <quote-id>", shared.ErrMissingArgument)
	}
	return cmd.Args().Get(0), cmd.Args().Get(1), nil
}

package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/focusync/internal/drafter"
	"github.com/desertthunder/focusync/internal/formatter"
	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/ui"
)

// QuotesList prints the merged quote collection.
func (r *Runner) QuotesList(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	quotes := refresh(ctx, r, a.quotes, cmd.Bool("refresh"))
	if cmd.Bool("favorites") {
		quotes = a.quotes.Favorites()
	}
	if quotes, err = where(cmd.String("where"), quotes); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(quotes, true)
	}
	if len(quotes) == 0 {
		return r.writePlain("No quotes\n")
	}

	favorites := a.quotes.Record().Favorites
	for _, q := range quotes {
		star := " "
		if slices.Contains(favorites, q.ID) {
			star = ui.Styles.Warn("★")
		}
		line := fmt.Sprintf("%s %s \"%s\"", star, ui.Styles.Help(q.ID), q.Text)
		if q.Author != "" {
			line += " -- " + q.Author
		}
		r.writePlain("%s%s\n", line, localMark(q.LocalOnly))
	}
	return nil
}

// QuotesAdd creates a quote optimistically and waits for the remote.
func (r *Runner) QuotesAdd(ctx context.Context, cmd *cli.Command) error {
	text := strings.TrimSpace(cmd.StringArg("text"))
	if text == "" {
		return fmt.Errorf("%w: quote text is required", shared.ErrMissingArgument)
	}

	a, err := r.open()
	if err != nil {
		return err
	}

	q := models.NewQuote(text, cmd.String("author"), cmd.String("category"))
	if err := q.Validate(); err != nil {
		return err
	}
	_, pending := a.quotes.Create(ctx, q)
	_, err = settle(ctx, r, "added", true, pending)
	return err
}

// QuotesEdit patches the flags that were set.
func (r *Runner) QuotesEdit(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: quote id is required", shared.ErrMissingArgument)
	}

	patch := models.Patch{}
	for _, field := range []string{"text", "author", "category"} {
		if cmd.IsSet(field) {
			patch[field] = cmd.String(field)
		}
	}
	if len(patch) == 0 {
		return fmt.Errorf("%w: nothing to change, set --text, --author or --category", shared.ErrMissingArgument)
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	applied, pending := a.quotes.Update(ctx, id, patch)
	_, err = settle(ctx, r, "updated", applied, pending)
	return err
}

// QuotesRemove deletes a quote and removes it from every playlist.
func (r *Runner) QuotesRemove(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}
	applied, pending := a.quotes.Delete(ctx, cmd.StringArg("id"))
	_, err = settle(ctx, r, "deleted", applied, pending)
	return err
}

// QuotesFavorite toggles the favorite flag.
func (r *Runner) QuotesFavorite(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	id := cmd.StringArg("id")
	favorite, err := a.quotes.ToggleFavorite(id)
	if err != nil {
		return err
	}
	if favorite {
		return r.writePlain("%s %s is a favorite\n", ui.Styles.Warn("★"), id)
	}
	return r.writePlain("%s is no longer a favorite\n", id)
}

func (r *Runner) QuotesSync(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}
	return syncLocal(ctx, r, a.quotes)
}

// QuotesNext prints the next rotated quote.
func (r *Runner) QuotesNext(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	sel, ok := a.rotation.Next(cmd.String("playlist"))
	if !ok {
		return r.writePlain("No quotes yet. Add one with `focusync quotes add`.\n")
	}

	q := sel.Entity
	r.writePlain("\"%s\"\n", q.Text)
	if q.Author != "" {
		r.writePlain("  -- %s\n", q.Author)
	}
	if sel.PlaylistName != "" {
		r.writePlain("%s\n", ui.Styles.Help("from "+sel.PlaylistName))
	}
	return nil
}

// QuotesExport writes the merged collection to a file.
func (r *Runner) QuotesExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	quotes, err := where(cmd.String("where"), a.quotes.Merged())
	if err != nil {
		return err
	}

	data, err := formatter.Quotes(format, quotes, a.quotes.Record().Favorites)
	if err != nil {
		return err
	}
	return r.export(cmd.String("output"), format.Filename(models.KindQuote), data, len(quotes))
}

// QuotesDraft asks the drafter for a quote. A malformed reply creates nothing.
func (r *Runner) QuotesDraft(ctx context.Context, cmd *cli.Command) error {
	completer := r.completer
	if completer == nil {
		c, err := drafter.NewAnthropicCompleter(r.config.Drafter)
		if err != nil {
			return err
		}
		completer = c
	}

	draft, err := drafter.NewQuoteDrafter(completer, r.logger).Draft(ctx, cmd.StringArg("topic"))
	if err != nil {
		return fmt.Errorf("failed to draft quote: %w", err)
	}

	r.writePlain("\"%s\"\n", draft.Text)
	if draft.Author != "" {
		r.writePlain("  -- %s\n", draft.Author)
	}
	if !cmd.Bool("save") {
		return nil
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	_, pending := a.quotes.Create(ctx, draft.Quote())
	_, err = settle(ctx, r, "added", true, pending)
	return err
}

// QuotesSort sets how the merged collection is ordered, e.g. "newest" or "author".
func (r *Runner) QuotesSort(ctx context.Context, cmd *cli.Command) error {
	mode, field, err := models.ParseSortMode(cmd.StringArg("mode"))
	if err != nil {
		return err
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	if err := a.quotes.SetSortMode(mode, field); err != nil {
		return err
	}
	return r.writePlain("%s sort mode %s\n", ui.Styles.OK("✓"), cmd.StringArg("mode"))
}

// QuotesMove places a quote at index in the custom order.
func (r *Runner) QuotesMove(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("%w: usage: quotes move <id> <index>", shared.ErrMissingArgument)
	}
	id := cmd.Args().Get(0)
	index, err := strconv.Atoi(cmd.Args().Get(1))
	if err != nil {
		return fmt.Errorf("%w: index must be a number", shared.ErrInvalidArgument)
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	if err := a.quotes.MoveTo(id, index); err != nil {
		return err
	}
	return r.writePlain("%s moved %s to %d\n", ui.Styles.OK("✓"), id, index)
}

// export writes data to path, or to the default filename.
func (r *Runner) export(path, fallback string, data []byte, count int) error {
	if path == "" {
		path = fallback
	}
	if err := formatter.WriteExport(path, data); err != nil {
		return err
	}
	r.logger.Info("exported", "path", path, "count", count)
	return r.writePlain("%s Exported %d to %s\n", ui.Styles.OK("✓"), count, path)
}

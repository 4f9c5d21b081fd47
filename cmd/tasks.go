package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/focusync/internal/formatter"
	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/ui"
)

// TasksList prints the merged task collection.
func (r *Runner) TasksList(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	tasks, err := where(cmd.String("where"), refresh(ctx, r, a.tasks, cmd.Bool("refresh")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tasks, true)
	}
	if len(tasks) == 0 {
		return r.writePlain("No tasks\n")
	}

	for _, t := range tasks {
		box := "[ ]"
		if t.Done {
			box = ui.Styles.OK("[x]")
		}
		line := fmt.Sprintf("%s %s %s", box, ui.Styles.Help(t.ID), t.Title)
		if t.Priority > 0 {
			line += fmt.Sprintf(" (p%d)", t.Priority)
		}
		r.writePlain("%s%s\n", line, localMark(t.LocalOnly))
	}
	return nil
}

// TasksAdd creates a task optimistically and waits for the remote.
func (r *Runner) TasksAdd(ctx context.Context, cmd *cli.Command) error {
	title := strings.TrimSpace(cmd.StringArg("title"))
	if title == "" {
		return fmt.Errorf("%w: task title is required", shared.ErrMissingArgument)
	}

	a, err := r.open()
	if err != nil {
		return err
	}

	_, pending := a.tasks.Create(ctx, models.NewTask(title, cmd.String("notes"), int(cmd.Int("priority"))))
	_, err = settle(ctx, r, "added", true, pending)
	return err
}

// TasksDone marks a task done, or not done with --undo.
func (r *Runner) TasksDone(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	verb := "completed"
	if cmd.Bool("undo") {
		verb = "reopened"
	}
	applied, pending := a.tasks.Update(ctx, cmd.StringArg("id"), models.Patch{"done": !cmd.Bool("undo")})
	_, err = settle(ctx, r, verb, applied, pending)
	return err
}

// TasksEdit patches the flags that were set.
func (r *Runner) TasksEdit(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: task id is required", shared.ErrMissingArgument)
	}

	patch := models.Patch{}
	for _, field := range []string{"title", "notes"} {
		if cmd.IsSet(field) {
			patch[field] = cmd.String(field)
		}
	}
	if cmd.IsSet("priority") {
		patch["priority"] = int(cmd.Int("priority"))
	}
	if len(patch) == 0 {
		return fmt.Errorf("%w: nothing to change, set --title, --notes or --priority", shared.ErrMissingArgument)
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	applied, pending := a.tasks.Update(ctx, id, patch)
	_, err = settle(ctx, r, "updated", applied, pending)
	return err
}

func (r *Runner) TasksRemove(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}
	applied, pending := a.tasks.Delete(ctx, cmd.StringArg("id"))
	_, err = settle(ctx, r, "deleted", applied, pending)
	return err
}

func (r *Runner) TasksSync(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}
	return syncLocal(ctx, r, a.tasks)
}

// TasksExport writes the merged task collection to a file.
func (r *Runner) TasksExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	a, err := r.open()
	if err != nil {
		return err
	}
	tasks, err := where(cmd.String("where"), a.tasks.Merged())
	if err != nil {
		return err
	}

	data, err := formatter.Tasks(format, tasks)
	if err != nil {
		return err
	}
	return r.export(cmd.String("output"), format.Filename(models.KindTask), data, len(tasks))
}

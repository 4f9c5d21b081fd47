package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/ui"
)

// Login signs in. Every scoped record switches to the user's scope.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	user := cmd.String("user")
	if err := a.session.SignIn(user, cmd.String("token")); err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}

	r.logger.Info("authentication successful", "user", user)
	return r.writePlain("%s Signed in as %s\n", ui.Styles.OK("✓"), user)
}

// Logout signs out. Local state for the user stays in the store for the next sign-in.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	if !a.session.Session().SignedIn() {
		return r.writePlain("Not signed in\n")
	}
	if err := a.session.SignOut(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return r.writePlain("%s Signed out\n", ui.Styles.OK("✓"))
}

// Whoami prints the session and checks the remote's /health endpoint.
func (r *Runner) Whoami(ctx context.Context, cmd *cli.Command) error {
	a, err := r.open()
	if err != nil {
		return err
	}

	s := a.session.Session()
	if s.SignedIn() {
		r.writePlain("User: %s\n", s.UserID)
		r.writePlain("Signed in: %s\n", s.SignedInAt.Format("2006-01-02 15:04"))
	} else {
		r.writePlain("User: %s\n", ui.Styles.Warn(shared.AnonymousScope))
	}

	if a.api == nil {
		return r.writePlain("Remote: %s\n", ui.Styles.Warn("offline (remote.base_url is empty)"))
	}

	resp, err := a.api.Get(ctx, "/health")
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		r.logger.Debug("health check failed", "error", err)
		return r.writePlain("Remote: %s %s\n", a.api.BaseURL(), ui.Styles.Err("unreachable"))
	}
	return r.writePlain("Remote: %s %s\n", a.api.BaseURL(), ui.Styles.OK("healthy"))
}

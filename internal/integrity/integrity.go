// package integrity checks that playlists only reference entities that exist and reconciles local playlists with the
// remote copy.
//
// Validation is read-only. Repair is directional: an empty side adopts the non-empty one, and two non-empty sides that
// disagree are reported as a [Conflict] without touching either.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/focusync/internal/identity"
	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/reconcile"
	"github.com/desertthunder/focusync/internal/services"
	"github.com/desertthunder/focusync/internal/shared"
	"github.com/desertthunder/focusync/internal/state"
)

// Report is the outcome of a validation pass.
type Report struct {
	Valid     bool
	Issues    []string
	CheckedAt time.Time
}

// Validator checks one scoped record.
type Validator[E models.Entity] struct {
	store *state.PersistedState[models.Record[E]]
	now   func() time.Time
}

func NewValidator[E models.Entity](store *state.PersistedState[models.Record[E]]) *Validator[E] {
	return &Validator[E]{store: store, now: time.Now}
}

// Validate flags empty playlists when there are entities to fill them with, and every member that does not resolve.
func (v *Validator[E]) Validate() Report {
	r := v.store.Read()
	index := reconcile.Index(reconcile.MergeRecord(nil, r))

	issues := []string{}
	for _, pl := range r.Playlists {
		if len(pl.MemberIDs) == 0 && len(index) > 0 {
			issues = append(issues, fmt.Sprintf("playlist %q (%s) is empty", pl.Name, pl.ID))
			continue
		}
		for _, id := range pl.MemberIDs {
			if _, ok := index[id]; !ok {
				issues = append(issues, fmt.Sprintf("playlist %q (%s) references missing entity %s", pl.Name, pl.ID, id))
			}
		}
	}

	return Report{Valid: len(issues) == 0, Issues: issues, CheckedAt: v.now()}
}

// Conflict is a playlist whose local and remote members are both non-empty and differ.
type Conflict struct {
	PlaylistID string
	Name       string
	Local      []string
	Remote     []string
}

// RepairReport lists what a repair pass changed.
type RepairReport struct {
	Adopted   []string   // Adopted lists playlists whose local members were replaced by the remote copy
	Pushed    []string   // Pushed lists playlists whose local members were sent to the remote
	Failed    []string   // Failed lists playlists whose push was refused or did not arrive
	Conflicts []Conflict // Conflicts lists playlists left untouched because both sides disagree
	Stale     bool       // Stale reports that the remote could not be listed and the last known mirror was used
}

// Changed reports whether the pass adopted or pushed anything.
func (r RepairReport) Changed() bool { return len(r.Adopted)+len(r.Pushed) > 0 }

// Repairer reconciles local playlists with the remote playlist collection.
type Repairer[E models.Entity] struct {
	store    *state.PersistedState[models.Record[E]]
	remote   services.Remote[models.Playlist]
	identity identity.Provider
	logger   *log.Logger
}

func NewRepairer[E models.Entity](store *state.PersistedState[models.Record[E]], remote services.Remote[models.Playlist], ident identity.Provider, logger *log.Logger) *Repairer[E] {
	return &Repairer[E]{
		store:    store,
		remote:   remote,
		identity: ident,
		logger:   shared.WithLogger(logger, "component", "integrity"),
	}
}

// Repair refreshes the playlist mirror and repairs each playlist in the direction of the non-empty side.
//
// When the remote cannot be listed the last known mirror is used. Playlists that only exist locally are left alone,
// unless there are no local playlists at all, in which case the remote set is adopted wholesale. A failed push does
// not stop the pass; the report is complete and the error joins every push failure.
func (rp *Repairer[E]) Repair(ctx context.Context) (RepairReport, error) {
	var report RepairReport

	mirror, err := rp.remote.List(ctx, identity.UserID(rp.identity), "")
	if err != nil {
		rp.logger.Warn("using last known playlist mirror", "error", err)
		mirror = rp.store.Read().PlaylistMirror
		report.Stale = true
	} else {
		rp.store.Write(func(r models.Record[E]) models.Record[E] {
			r = r.Normalize()
			r.PlaylistMirror = mirror
			return r
		})
	}

	local := rp.store.Read().Playlists
	if len(local) == 0 && len(mirror) > 0 {
		rp.store.Write(func(r models.Record[E]) models.Record[E] {
			r = r.Normalize()
			for _, pl := range mirror {
				pl.MemberIDs = slices.Clone(pl.MemberIDs)
				r.Playlists = append(r.Playlists, pl.WithLocalOnly(false))
				report.Adopted = append(report.Adopted, pl.ID)
			}
			return r
		})
		rp.logger.Info("adopted remote playlists", "count", len(report.Adopted))
		return report, nil
	}

	var errs []error
	remoteByID := reconcile.Index(mirror)
	for _, pl := range local {
		remote, ok := remoteByID[pl.ID]
		if !ok {
			continue
		}

		switch {
		case len(pl.MemberIDs) == 0 && len(remote.MemberIDs) > 0:
			rp.adopt(pl.ID, remote.MemberIDs)
			report.Adopted = append(report.Adopted, pl.ID)
			rp.logger.Info("adopted remote members", "playlist", pl.ID, "members", len(remote.MemberIDs))

		case len(pl.MemberIDs) > 0 && len(remote.MemberIDs) == 0:
			if err := rp.push(ctx, pl); err != nil {
				report.Failed = append(report.Failed, pl.ID)
				errs = append(errs, fmt.Errorf("failed to push playlist %s: %w", pl.ID, err))
				rp.logger.Warn("push failed", "playlist", pl.ID, "error", err)
				continue
			}
			report.Pushed = append(report.Pushed, pl.ID)
			rp.logger.Info("pushed local members", "playlist", pl.ID, "members", len(pl.MemberIDs))

		case !slices.Equal(pl.MemberIDs, remote.MemberIDs):
			report.Conflicts = append(report.Conflicts, Conflict{
				PlaylistID: pl.ID,
				Name:       pl.Name,
				Local:      slices.Clone(pl.MemberIDs),
				Remote:     slices.Clone(remote.MemberIDs),
			})
			rp.logger.Warn("playlist conflict, not repaired", "playlist", pl.ID, "local", len(pl.MemberIDs), "remote", len(remote.MemberIDs))
		}
	}

	return report, errors.Join(errs...)
}

func (rp *Repairer[E]) adopt(playlistID string, members []string) {
	rp.store.Write(func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		if i := models.FindPlaylist(r.Playlists, playlistID); i >= 0 {
			r.Playlists[i].MemberIDs = slices.Clone(members)
		}
		return r
	})
}

// push sends confirmed members of pl to the remote. Temporary IDs are held back until they are promoted.
func (rp *Repairer[E]) push(ctx context.Context, pl models.Playlist) error {
	members := slices.DeleteFunc(slices.Clone(pl.MemberIDs), models.IsTemporaryID)
	if err := rp.remote.Update(ctx, pl.ID, models.Patch{"member_ids": members}); err != nil {
		return err
	}

	rp.store.Write(func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		if i := models.FindPlaylist(r.PlaylistMirror, pl.ID); i >= 0 {
			r.PlaylistMirror[i].MemberIDs = members
		}
		return r
	})
	return nil
}

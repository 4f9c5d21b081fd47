// package reconcile merges the three sources of an entity collection into one deduplicated, ordered list.
//
// The sources are the remote result set, the cached mirror of the last remote result, and entities that only exist
// locally. The remote set is authoritative when it is non-empty; otherwise the cached mirror stands in for it, which
// covers the fully offline case.
package reconcile

import (
	"slices"
	"strings"

	"github.com/desertthunder/focusync/internal/models"
)

// Options controls ordering of the merged collection.
type Options struct {
	SortMode    models.SortMode
	CustomOrder []string // CustomOrder lists IDs in user-arranged order for [models.SortCustom]
	Field       string   // Field names the sort key for [models.SortField], e.g. "author"
}

// OptionsFor reads the ordering options stored in a record.
func OptionsFor[E any](r models.Record[E]) Options {
	return Options{SortMode: r.SortMode, CustomOrder: r.CustomOrder, Field: r.SortField}
}

// Merge combines remote, cachedMirror and localOnly into one collection in which every ID appears once.
//
// Local-only entities whose ID is already present in the authoritative source are dropped. Within a source the first
// occurrence of an ID wins. None of the inputs are modified.
func Merge[E models.Entity](remote, cachedMirror, localOnly []E, opts Options) []E {
	authoritative := remote
	if len(remote) == 0 {
		authoritative = cachedMirror
	}

	seen := make(map[string]struct{}, len(authoritative)+len(localOnly))
	merged := make([]E, 0, len(authoritative)+len(localOnly))
	for _, src := range [][]E{authoritative, localOnly} {
		for _, e := range src {
			id := e.EntityID()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, e)
		}
	}

	Sort(merged, opts)
	return merged
}

// Sort orders items in place. The sort is stable; unknown modes fall back to newest first.
func Sort[E models.Entity](items []E, opts Options) {
	switch opts.SortMode {
	case models.SortOldest:
		slices.SortStableFunc(items, func(a, b E) int { return a.Created().Compare(b.Created()) })
	case models.SortCustom:
		pos := make(map[string]int, len(opts.CustomOrder))
		for i, id := range opts.CustomOrder {
			if _, ok := pos[id]; !ok {
				pos[id] = i
			}
		}
		slices.SortStableFunc(items, func(a, b E) int {
			pa, oka := pos[a.EntityID()]
			pb, okb := pos[b.EntityID()]
			switch {
			case oka && okb:
				return pa - pb
			case oka:
				return -1
			case okb:
				return 1
			}
			return newestFirst(a, b)
		})
	case models.SortField:
		slices.SortStableFunc(items, func(a, b E) int {
			if c := strings.Compare(a.SortValue(opts.Field), b.SortValue(opts.Field)); c != 0 {
				return c
			}
			return newestFirst(a, b)
		})
	default:
		slices.SortStableFunc(items, newestFirst[E])
	}
}

func newestFirst[E models.Entity](a, b E) int {
	return b.Created().Compare(a.Created())
}

// Dedupe returns items without repeated IDs, keeping the first occurrence.
func Dedupe[E models.Entity](items []E) []E {
	seen := make(map[string]struct{}, len(items))
	out := make([]E, 0, len(items))
	for _, e := range items {
		if _, dup := seen[e.EntityID()]; dup {
			continue
		}
		seen[e.EntityID()] = struct{}{}
		out = append(out, e)
	}
	return out
}

// IDs returns the identifiers of items in order.
func IDs[E models.Entity](items []E) []string {
	ids := make([]string, len(items))
	for i, e := range items {
		ids[i] = e.EntityID()
	}
	return ids
}

// Index maps each ID to its entity. Later duplicates do not replace earlier ones.
func Index[E models.Entity](items []E) map[string]E {
	idx := make(map[string]E, len(items))
	for _, e := range items {
		if _, ok := idx[e.EntityID()]; !ok {
			idx[e.EntityID()] = e
		}
	}
	return idx
}

// MergeRecord merges a record's cached mirror and local-only entities with remote using the record's ordering.
func MergeRecord[E models.Entity](remote []E, r models.Record[E]) []E {
	return Merge(remote, r.CachedMirror, r.LocalOnly, OptionsFor(r))
}

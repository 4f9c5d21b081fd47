package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/reconcile"
	"github.com/desertthunder/focusync/internal/shared"
)

// ToggleFavorite flips the favorite flag of id and returns the new value.
func (p *Pipeline[E]) ToggleFavorite(id string) (bool, error) {
	id = p.queue.resolve(id)
	if _, ok := find(p.store.Read(), id); !ok {
		return false, fmt.Errorf("%w: %s", shared.ErrEntityNotFound, id)
	}

	var favorite bool
	p.store.Write(func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		if i := slices.Index(r.Favorites, id); i >= 0 {
			r.Favorites = slices.Delete(r.Favorites, i, i+1)
			favorite = false
		} else {
			r.Favorites = append(r.Favorites, id)
			favorite = true
		}
		return r
	})
	return favorite, nil
}

// Favorites returns the favorited entities in merged order.
func (p *Pipeline[E]) Favorites() []E {
	r := p.store.Read()
	out := []E{}
	for _, e := range reconcile.MergeRecord(nil, r) {
		if slices.Contains(r.Favorites, e.EntityID()) {
			out = append(out, e)
		}
	}
	return out
}

// SetSortMode changes how the merged collection is ordered. field is required for [models.SortField].
func (p *Pipeline[E]) SetSortMode(mode models.SortMode, field string) error {
	switch mode {
	case models.SortCustom, models.SortNewest, models.SortOldest:
		field = ""
	case models.SortField:
		if strings.TrimSpace(field) == "" {
			return fmt.Errorf("%w: field sort needs a field name", shared.ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: unknown sort mode %q", shared.ErrInvalidArgument, mode)
	}

	p.store.Write(func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		r.SortMode, r.SortField = mode, field
		return r
	})
	return nil
}

// MoveTo places id at index of the custom order and switches to [models.SortCustom].
//
// The custom order is seeded from the currently displayed order. index is clamped to the collection.
func (p *Pipeline[E]) MoveTo(id string, index int) error {
	id = p.queue.resolve(id)
	if _, ok := find(p.store.Read(), id); !ok {
		return fmt.Errorf("%w: %s", shared.ErrEntityNotFound, id)
	}

	p.store.Write(func(r models.Record[E]) models.Record[E] {
		r = r.Normalize()
		order := slices.DeleteFunc(reconcile.IDs(reconcile.MergeRecord(nil, r)), func(s string) bool { return s == id })
		index = max(0, min(index, len(order)))
		r.CustomOrder = slices.Insert(order, index, id)
		r.SortMode, r.SortField = models.SortCustom, ""
		return r
	})
	return nil
}

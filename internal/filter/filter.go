// package filter compiles boolean list filters written in the expr language.
//
// An expression sees every patchable field of an entity plus id, local_only and created_at:
//
//	author == "Seneca" && category in ["stoic", "focus"]
//	!done && priority >= 2
//	len(member_ids) > 0
package filter

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

// Filter is a compiled expression. The zero value and a nil *Filter match everything.
type Filter struct {
	source  string
	program *vm.Program
}

// Compile parses src. Blank input yields a filter that matches everything.
func Compile(src string) (*Filter, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return &Filter{}, nil
	}

	program, err := expr.Compile(src, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: filter %q: %v", shared.ErrInvalidArgument, src, err)
	}
	return &Filter{source: src, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Empty reports whether f matches everything.
func (f *Filter) Empty() bool { return f == nil || f.program == nil }

// Match evaluates f against one entity.
func Match[E models.Item[E]](f *Filter, e E) (bool, error) {
	if f.Empty() {
		return true, nil
	}

	out, err := expr.Run(f.program, Env(e))
	if err != nil {
		return false, fmt.Errorf("filter %q on %s: %w", f.source, e.EntityID(), err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// Apply returns the entities matching f in their original order.
func Apply[E models.Item[E]](f *Filter, items []E) ([]E, error) {
	if f.Empty() {
		return items, nil
	}

	out := make([]E, 0, len(items))
	for _, e := range items {
		ok, err := Match(f, e)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Env builds the evaluation environment for e.
func Env[E models.Item[E]](e E) map[string]any {
	env := map[string]any(e.Fields())
	if env == nil {
		env = map[string]any{}
	}
	env["id"] = e.EntityID()
	env["local_only"] = e.IsLocalOnly()
	env["created_at"] = e.Created()
	return env
}

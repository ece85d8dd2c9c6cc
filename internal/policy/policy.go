// Package policy loads the CUE document that overrides notification
// category defaults and the assessed-submission sweep.
//
// Example:
//
//	defaults: "notification.tutorial-group-notification.tutorial-group-delete-update": {webapp: true, email: true}
//	sweep: include_automatic_results: false
package policy

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/coursenotify/internal/notification"
	"github.com/roach88/coursenotify/internal/recipient"
)

//go:embed schema.cue
var schemaCUE string

// Policy holds category default overrides and the sweep policy. The zero
// value is usable and changes nothing.
type Policy struct {
	overrides map[notification.Category]notification.Defaults
	Sweep     recipient.SweepPolicy
}

// Builtin returns a policy with no overrides.
func Builtin() *Policy {
	return &Policy{}
}

// Default returns the effective default for c: the override if present,
// else the compiled-in category default.
func (p *Policy) Default(c notification.Category) notification.Defaults {
	if p != nil {
		if d, ok := p.overrides[c]; ok {
			return d
		}
	}
	return c.Defaults()
}

// Override is one category override, used for listing.
type Override struct {
	Category notification.Category
	Defaults notification.Defaults
}

// Overrides lists the overridden categories in key order. A nil policy has
// none.
func (p *Policy) Overrides() []Override {
	if p == nil {
		return nil
	}
	out := make([]Override, 0, len(p.overrides))
	for c, d := range p.overrides {
		out = append(out, Override{Category: c, Defaults: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category.Key() < out[j].Category.Key() })
	return out
}

// Load reads and compiles a policy file.
func Load(path string) (*Policy, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return Compile(path, string(src))
}

// Compile validates src against the embedded schema and builds a Policy.
// filename is used only for error positions.
func Compile(filename, src string) (*Policy, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("policy schema: %w", err)
	}

	doc := ctx.CompileString(src, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Policy")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	p := &Policy{overrides: make(map[notification.Category]notification.Defaults)}

	if defaults := v.LookupPath(cue.ParsePath("defaults")); defaults.Exists() {
		iter, err := defaults.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			key := iter.Label()
			c, err := notification.ParseCategory(key)
			if err != nil {
				return nil, &Error{
					Field:   "defaults",
					Message: fmt.Sprintf("unknown category %q", key),
					Pos:     iter.Value().Pos(),
				}
			}
			d, err := switches(iter.Value())
			if err != nil {
				return nil, err
			}
			p.overrides[c] = d
		}
	}

	if inc := v.LookupPath(cue.ParsePath("sweep.include_automatic_results")); inc.Exists() {
		b, err := inc.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		p.Sweep.IncludeAutomaticResults = b
	}

	return p, nil
}

func switches(v cue.Value) (notification.Defaults, error) {
	webapp, err := v.LookupPath(cue.ParsePath("webapp")).Bool()
	if err != nil {
		return notification.Defaults{}, formatCUEError(err)
	}
	email, err := v.LookupPath(cue.ParsePath("email")).Bool()
	if err != nil {
		return notification.Defaults{}, formatCUEError(err)
	}
	return notification.Defaults{WebApp: webapp, Email: email}, nil
}

// Error is a policy compile error with its source position.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &Error{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

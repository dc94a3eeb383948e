// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package ipcgen

import (
	"errors"
	"fmt"

	"github.com/creachadair/mds/mapset"
	"github.com/hashicorp/go-multierror"
)

// reservedNames are identifiers the generated code uses for its own
// parameters and locals. Description arguments may not take these names.
var reservedNames = mapset.New(
	"cmd", "result", "msg", "reply",
	"ret", "xret", "sync_result", "receive_handle_result",
	"ipc_c", "cs",
)

// validate checks every structural rule the generators depend on and
// reports all violations together. Generators assume a validated protocol
// and do not re-check any of this.
func validate(p *Protocol) error {
	var errs *multierror.Error
	if len(p.Calls) == 0 {
		errs = multierror.Append(errs, errors.New("protocol defines no calls"))
	}

	names := mapset.New[string]()
	tags := make(map[string]string) // tag name → call name
	stems := make(map[string]stemUse)
	for _, c := range p.Calls {
		if !isIdent(c.Name) {
			errs = multierror.Append(errs, fmt.Errorf("invalid call name %q", c.Name))
			continue
		}
		if names.Has(c.Name) {
			errs = multierror.Append(errs, fmt.Errorf("duplicate call name %q", c.Name))
			continue
		}
		names.Add(c.Name)
		if prev, ok := tags[c.TagName()]; ok {
			errs = multierror.Append(errs, fmt.Errorf(
				"call %q: tag %s collides with call %q", c.Name, c.TagName(), prev))
		} else {
			tags[c.TagName()] = c.Name
		}
		errs = checkCall(errs, c)
		errs = checkStems(errs, c, stems)
	}
	return errs.ErrorOrNil()
}

// checkCall checks the arguments and handle groups of a single call.
func checkCall(errs *multierror.Error, c *Call) *multierror.Error {
	seen := mapset.New[string]()
	addName := func(name string) {
		switch {
		case !isIdent(name):
			errs = multierror.Append(errs, fmt.Errorf("call %q: invalid argument name %q", c.Name, name))
		case reservedNames.Has(name):
			errs = multierror.Append(errs, fmt.Errorf("call %q: argument name %q is reserved", c.Name, name))
		case seen.Has(name):
			errs = multierror.Append(errs, fmt.Errorf("call %q: duplicate argument name %q", c.Name, name))
		default:
			seen.Add(name)
		}
	}

	for _, a := range c.In {
		addName(a.Name)
		errs = checkArgType(errs, c, a)
	}
	for _, a := range c.Out {
		addName(a.Name)
		errs = checkArgType(errs, c, a)
	}

	if c.Varlen && (c.InHandles != nil || c.OutHandles != nil) {
		errs = multierror.Append(errs, fmt.Errorf("call %q: varlen calls cannot carry handles", c.Name))
	}
	if c.InHandles != nil {
		errs = checkHandles(errs, c, "in_handles", c.InHandles, addName)
		if n := len(c.InHandles.ArgNames); n > 1 {
			errs = multierror.Append(errs, fmt.Errorf(
				"call %q: in_handles carries %d arrays, request groups carry exactly one", c.Name, n))
		}
	}
	if c.OutHandles != nil {
		errs = checkHandles(errs, c, "out_handles", c.OutHandles, addName)
	}
	return errs
}

// checkArgType checks that a scalar argument names a recognized wire type.
// Aggregate types are opaque to the generator and pass unexamined.
func checkArgType(errs *multierror.Error, c *Call, a Arg) *multierror.Error {
	if a.Aggregate {
		return errs
	}
	if _, ok := scalars[a.Type]; !ok {
		errs = multierror.Append(errs, fmt.Errorf(
			"call %q: argument %q: unknown type %q", c.Name, a.Name, a.Type))
	}
	return errs
}

// checkHandles checks one handle group. Array and count names share the
// call's argument namespace, so addName folds them into the same
// duplicate detection as ordinary arguments.
func checkHandles(errs *multierror.Error, c *Call, dir string, g *HandleGroup, addName func(string)) *multierror.Error {
	fail := func(format string, args ...any) {
		errs = multierror.Append(errs, fmt.Errorf("call %q: %s: %s", c.Name, dir, fmt.Sprintf(format, args...)))
	}
	if g.Type == "" {
		fail("missing element type")
	}
	if !isIdent(g.Stem) {
		fail("invalid stem %q", g.Stem)
	}
	if len(g.ArgNames) == 0 {
		fail("names no array argument")
	}
	for _, name := range g.ArgNames {
		addName(name)
	}
	switch {
	case g.CountName == "":
		fail("missing count field")
	default:
		addName(g.CountName)
	}
	if st, ok := scalars[g.CountType]; !ok || !st.unsigned {
		fail("count type %q is not a recognized unsigned type", g.CountType)
	} else if st.max < MaxHandles {
		fail("count type %q cannot represent %d handles", g.CountType, MaxHandles)
	}
	return errs
}

// stemUse records the first observed signature of a transfer stem.
type stemUse struct {
	call  string // first call that used the stem
	typ   string
	count string
	arity int
}

// checkStems enforces that every handle group sharing a stem agrees on the
// element type, count type, and array arity, since all of them bind to one
// hand-written transfer function signature.
func checkStems(errs *multierror.Error, c *Call, stems map[string]stemUse) *multierror.Error {
	for _, g := range []*HandleGroup{c.InHandles, c.OutHandles} {
		if g == nil || g.Stem == "" {
			continue
		}
		use, ok := stems[g.Stem]
		if !ok {
			stems[g.Stem] = stemUse{call: c.Name, typ: g.Type, count: g.CountType, arity: len(g.ArgNames)}
			continue
		}
		if use.typ != g.Type {
			errs = multierror.Append(errs, fmt.Errorf(
				"call %q: stem %q element type %q does not match %q used by call %q",
				c.Name, g.Stem, g.Type, use.typ, use.call))
		}
		if use.count != g.CountType {
			errs = multierror.Append(errs, fmt.Errorf(
				"call %q: stem %q count type %q does not match %q used by call %q",
				c.Name, g.Stem, g.CountType, use.count, use.call))
		}
		if use.arity != len(g.ArgNames) {
			errs = multierror.Append(errs, fmt.Errorf(
				"call %q: stem %q carries %d arrays but call %q carries %d",
				c.Name, g.Stem, len(g.ArgNames), use.call, use.arity))
		}
	}
	return errs
}

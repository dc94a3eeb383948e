// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package ipcgen

import (
	"fmt"
	"math"
	"strings"
)

// MaxHandles is the maximum number of OS handles that may travel with a
// single call in either direction. The generated server dispatch sizes its
// receive buffers from this constant, and validation rejects handle groups
// whose count type cannot represent it.
const MaxHandles = 8

// tagSize is the wire size in bytes of a command tag, and resultSize the
// wire size of a result code. Both are emitted as 32-bit enums.
const (
	tagSize    = 4
	resultSize = 4
)

// A Protocol is a parsed and validated IPC protocol description.
// The order of Calls is the order of the description file.
type Protocol struct {
	Calls []*Call
}

// Call returns the call with the given name, or nil if no such call exists.
func (p *Protocol) Call(name string) *Call {
	for _, c := range p.Calls {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// A Call is a single synchronous request/reply exchange.
type Call struct {
	Name string // lower_snake identifier from the description
	Tag  int    // command tag; assigned contiguously from 1 in file order

	In  []Arg // arguments marshaled into the request message
	Out []Arg // arguments unmarshaled from the reply message

	InHandles  *HandleGroup // handles sent with the request, or nil
	OutHandles *HandleGroup // handles returned with the reply, or nil

	// Varlen marks a call whose reply size is not known to the generator.
	// The generated client is split into separate send and receive stubs,
	// and the server handler owns the reply framing.
	Varlen bool
}

// TagName returns the C enumerator name for the call's command tag,
// for example "IPC_GET_INFO" for a call named get_info.
func (c *Call) TagName() string { return "IPC_" + strings.ToUpper(c.Name) }

// NeedsRequestStruct reports whether the call requires a dedicated request
// message struct. Calls with no input arguments and no input handles send a
// bare tag message instead.
func (c *Call) NeedsRequestStruct() bool { return len(c.In) > 0 || c.InHandles != nil }

// RequestSize reports the packed wire size in bytes of the call's request
// message. The size accounts for the leading tag, every input argument, and
// the handle count field if the call sends handles. It reports false if the
// request contains an aggregate argument, whose size is not known here.
func (c *Call) RequestSize() (int, bool) {
	if !c.NeedsRequestStruct() {
		return tagSize, true
	}
	size := tagSize
	for _, a := range c.In {
		if a.Aggregate {
			return 0, false
		}
		size += scalars[a.Type].size
	}
	if c.InHandles != nil {
		size += scalars[c.InHandles.CountType].size
	}
	return size, true
}

// ReplySize reports the packed wire size in bytes of the call's reply
// message, including the leading result code. Calls with no output
// arguments share a generic result-only reply. It reports false if the
// reply contains an aggregate argument.
func (c *Call) ReplySize() (int, bool) {
	size := resultSize
	for _, a := range c.Out {
		if a.Aggregate {
			return 0, false
		}
		size += scalars[a.Type].size
	}
	return size, true
}

// An Arg is a single named argument of a call.
type Arg struct {
	Name string
	Type string // C type name as it appears in generated code

	// Aggregate marks struct and union types. Aggregates are passed by
	// pointer in generated signatures and copied into the wire message
	// whole; scalars are passed by value and size-checked against the
	// recognized type table.
	Aggregate bool
}

// A HandleGroup describes the OS handles traveling with a call in one
// direction. Handles move out of band through hand-written transfer
// functions selected by Stem; only the handle count crosses the wire inside
// the request message.
type HandleGroup struct {
	Type string // element type of the handle array
	Stem string // transfer function family, as in ipc_send_handles_<stem>

	// ArgNames lists the handle array arguments in signature order. Groups
	// on the request side carry exactly one array; reply-side groups may
	// carry several that travel together, sharing one count.
	ArgNames []string

	CountName string // name of the count argument and message field
	CountType string // unsigned scalar type of the count
}

// A SchemaError reports one or more problems found while loading or
// validating a protocol description. Err collects every problem found, not
// only the first.
type SchemaError struct {
	Path string // description file path, or "" if parsed from memory
	Err  error
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Err.Error()
	}
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Err.Error())
}

// Unwrap returns the underlying validation error.
func (e *SchemaError) Unwrap() error { return e.Err }

// scalar describes a recognized scalar wire type.
type scalar struct {
	size     int    // packed size in bytes
	max      uint64 // greatest representable value, unsigned types only
	unsigned bool
}

// scalars is the table of recognized scalar types. Only types with a fixed
// wire size are admitted, so that packed message layouts are identical for
// every compiler and platform; size_t and other platform-width types are
// deliberately absent.
var scalars = map[string]scalar{
	"uint8_t":  {size: 1, max: math.MaxUint8, unsigned: true},
	"uint16_t": {size: 2, max: math.MaxUint16, unsigned: true},
	"uint32_t": {size: 4, max: math.MaxUint32, unsigned: true},
	"uint64_t": {size: 8, max: math.MaxUint64, unsigned: true},

	"int8_t":  {size: 1},
	"int16_t": {size: 2},
	"int32_t": {size: 4},
	"int64_t": {size: 8},

	"float":  {size: 4},
	"double": {size: 8},
	"bool":   {size: 1},

	"ipc_result_t": {size: 4},
}

// isAggregateType reports whether name spells a C aggregate type.
func isAggregateType(name string) bool {
	return strings.HasPrefix(name, "struct ") || strings.HasPrefix(name, "union ")
}

// isIdent reports whether s is an acceptable description identifier: an
// ASCII letter followed by letters, digits, and underscores. A leading
// underscore is not accepted; the generated code reserves that namespace
// for its own locals.
func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			// ok
		case i > 0 && (r == '_' || r >= '0' && r <= '9'):
			// ok
		default:
			return false
		}
	}
	return s != ""
}

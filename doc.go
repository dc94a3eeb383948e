// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package ipcgen generates C marshaling code for a synchronous IPC protocol
// from a declarative JSON description.
//
// An IPC protocol is a flat collection of calls. Each call is a synchronous
// request and reply exchanged over a trusted duplex channel between a client
// and a server, optionally carrying OS handles (file descriptors or their
// platform equivalents) out of band in either direction. The description
// names the calls, their arguments, and their handle traffic; this package
// parses and validates the description into a [Protocol], and the gen
// subpackage renders the protocol into generated C source artifacts.
//
// # Descriptions
//
// A description is a JSON object with a "calls" array. Order matters: the
// position of a call in the array fixes its command tag, so appending new
// calls preserves the tags of existing ones. A minimal description:
//
//	{
//	  "calls": [
//	    {"name": "get_info", "out": [{"name": "version", "type": "uint32_t"}]},
//	    {"name": "destroy"}
//	  ]
//	}
//
// Each call record may define input arguments ("in"), output arguments
// ("out"), a group of handles sent with the request ("in_handles"), a group
// of handles returned with the reply ("out_handles"), and a "varlen" flag
// marking calls whose reply framing is owned by the server handler rather
// than the generated code.
//
// Argument types are either recognized scalar types with a fixed wire size
// (uint32_t, int64_t, float, bool, and so on) or aggregates. A type whose
// name begins with "struct " or "union " is an aggregate, as is any type
// whose record sets "aggregate": true; aggregates are copied into the wire
// message whole and are otherwise opaque to the generator.
//
// Use [Load] to read and parse a description file, or [Parse] for a
// description already in memory. Both validate the description completely
// and report all problems at once in a [*SchemaError]; a description that
// loads without error is guaranteed to generate without one.
//
// # Tags
//
// Every call is assigned a distinct command tag, a small integer carried as
// the first field of every request message. Tags are assigned contiguously
// from 1 in description order. Tag 0 is reserved as an error sentinel and is
// never assigned to a call, so a zeroed buffer can never be mistaken for a
// valid request.
//
// # Handles
//
// A handle group names the element type of the handle array, the argument
// and count names used in generated signatures, and a "stem" that selects
// the hand-written transfer function family used to move the handles across
// the channel. All groups sharing a stem must agree on their element type
// and count type, since they share a transfer function signature. At most
// [MaxHandles] handles may travel with a single call.
package ipcgen

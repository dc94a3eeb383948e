// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package gen renders a validated IPC protocol into generated C source
// artifacts.
//
// # Artifacts
//
// A generation request names output paths, and [Emit] selects what to
// render into each path by matching its name against the five artifact
// names:
//
//	ipc_protocol_generated.h   wire layout shared by both sides
//	ipc_client_generated.h     client call prototypes
//	ipc_client_generated.c     client call stubs
//	ipc_server_generated.h     server dispatch and handler prototypes
//	ipc_server_generated.c     server dispatch and size lookup
//
// A path matches an artifact when it ends with the artifact name, so
// outputs may live anywhere in a build tree. Paths matching no artifact
// are skipped without error, which lets a build system list outputs
// speculatively; use [Recognizes] to detect such paths when that silence
// is unwanted.
//
// Each artifact is rendered completely in memory from the protocol alone
// before anything is written, so two runs over the same description
// produce byte-identical files and a failed run cannot leave a truncated
// artifact behind unless the write itself fails partway.
//
// # Transport contract
//
// Generated code marshals messages and sequences exchanges; it does not
// move bytes or handles. It is compiled against a small hand-written
// transport layer that supplies:
//
//	ipc_result_t            result code; IPC_SUCCESS, IPC_ERROR_IPC_FAILURE
//	struct ipc_connection   client side state: imc channel and mutex
//	struct ipc_client_state server side per-client state: imc channel
//	ipc_send, ipc_receive   blocking exchange of exactly-sized messages
//	ipc_send_handles_<stem>, ipc_receive_handles_<stem>
//	                        message exchange carrying OS handles out of
//	                        band, one family per handle stem
//	ipc_mutex_lock, ipc_mutex_unlock
//	                        exclusive use of the client connection
//	IPC_TRACE, IPC_LOG_E    diagnostics
//
// The client declarations are expected in "ipc_client.h", the server
// declarations in "ipc_server.h", and the shared types in the protocol
// header's include list (by default "ipc_transport.h").
package gen

import (
	"fmt"

	"github.com/creachadair/ipcgen"
	"github.com/creachadair/ipcgen/cwrite"
)

// A Config carries the rendering options shared by all artifacts.
// A nil *Config is ready for use and provides all defaults.
type Config struct {
	// Tool is the generator name reported in artifact banners.
	// If empty, it defaults to "ipcgen".
	Tool string

	// Copyright lines are emitted verbatim ahead of each artifact banner.
	Copyright []string

	// Includes lists the headers included by the generated protocol
	// header, which must supply the transport contract types. Entries
	// beginning with "<" are emitted as system includes. If nil, it
	// defaults to "ipc_transport.h" alone.
	Includes []string
}

func (c *Config) toolName() string {
	if c == nil || c.Tool == "" {
		return "ipcgen"
	}
	return c.Tool
}

func (c *Config) copyright() []string {
	if c == nil {
		return nil
	}
	return c.Copyright
}

func (c *Config) includes() []string {
	if c == nil || c.Includes == nil {
		return []string{"ipc_transport.h"}
	}
	return c.Includes
}

// banner writes the artifact banner: any configured copyright lines, the
// generated-code marker, and a doxygen block naming the artifact group.
func banner(s *cwrite.Source, cfg *Config, brief, group string) {
	for _, line := range cfg.copyright() {
		s.Comment(line)
	}
	s.Comment(fmt.Sprintf("Code generated by %s. DO NOT EDIT.", cfg.toolName()))
	s.Blank()
	s.Line("/*!")
	s.Line(" * @file")
	s.Linef(" * @brief %s.", brief)
	s.Linef(" * @ingroup %s", group)
	s.Line(" */")
}

// msgStructName returns the request message struct name for c.
// It is only meaningful for calls that need a request struct.
func msgStructName(c *ipcgen.Call) string { return fmt.Sprintf("ipc_%s_msg", c.Name) }

// replyStructName returns the reply struct name for c. Calls without
// output arguments share the generic result-only reply.
func replyStructName(c *ipcgen.Call) string {
	if len(c.Out) == 0 {
		return "ipc_result_reply"
	}
	return fmt.Sprintf("ipc_%s_reply", c.Name)
}

// argField renders a as a message struct field, without its semicolon.
func argField(a ipcgen.Arg) string { return a.Type + " " + a.Name }

// argParamIn renders a as an input parameter. Aggregates are passed by
// const pointer, scalars by value.
func argParamIn(a ipcgen.Arg) string {
	if a.Aggregate {
		return "const " + a.Type + " *" + a.Name
	}
	return a.Type + " " + a.Name
}

// argParamOut renders a as an output parameter.
func argParamOut(a ipcgen.Arg) string { return a.Type + " *out_" + a.Name }

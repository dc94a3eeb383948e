// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package gen

import (
	"github.com/creachadair/ipcgen"
	"github.com/creachadair/ipcgen/cwrite"
)

// ProtocolHeader renders the wire layout header shared by the client and
// server artifacts: the command tag enum, the tag name lookup, and the
// packed request and reply message structs for every call.
func ProtocolHeader(p *ipcgen.Protocol, cfg *Config) []byte {
	s := new(cwrite.Source)
	banner(s, cfg, "Generated IPC protocol header", "ipc")
	s.Blank()
	s.Line("#pragma once")
	s.Blank()
	s.Include("<stddef.h>")
	s.Include("<stdint.h>")
	for _, path := range cfg.includes() {
		s.Include(path)
	}
	s.Blank()
	s.BeginExternC()
	s.Blank()
	s.Line("struct ipc_connection;")
	s.Blank()

	// Tag values are part of the wire format: IPC_ERR pins zero so that a
	// zeroed buffer never looks like a valid request, and the calls count
	// up from 1 in description order.
	enums := make([]string, 0, len(p.Calls)+1)
	enums = append(enums, "IPC_ERR = 0")
	for _, c := range p.Calls {
		enums = append(enums, c.TagName())
	}
	s.TypedefEnum("ipc_command", "ipc_command_t", enums...)
	s.Blank()
	s.Linef("#define IPC_MAX_HANDLES %d", ipcgen.MaxHandles)
	s.Blank()

	appendTagNames(s, p)
	s.Blank()
	s.BeginPacked()
	s.Blank()
	s.StructDef("ipc_command_msg", "ipc_command_t cmd")
	s.Blank()
	s.StructDef("ipc_result_reply", "ipc_result_t result")
	s.Blank()
	for _, c := range p.Calls {
		if c.NeedsRequestStruct() {
			s.StructDef(msgStructName(c), msgFields(c)...)
			s.Blank()
		}
		if len(c.Out) > 0 {
			s.StructDef(replyStructName(c), replyFields(c)...)
			s.Blank()
		}
	}
	s.EndPacked()
	s.Blank()
	s.EndExternC()
	return s.Bytes()
}

// appendTagNames emits the tag-to-name lookup used for diagnostics.
func appendTagNames(s *cwrite.Source, p *ipcgen.Protocol) {
	s.Decl("static inline const char *", "ipc_cmd_to_str", "ipc_command_t cmd")
	s.Open()
	s.Line("\tswitch (cmd) {")
	s.Line(`	case IPC_ERR: return "IPC_ERR";`)
	for _, c := range p.Calls {
		s.Linef("\tcase %s: return %q;", c.TagName(), c.TagName())
	}
	s.Line(`	default: return "IPC_UNKNOWN";`)
	s.Line("\t}")
	s.Close()
}

// msgFields returns the request struct fields for c: the command tag,
// every input argument in order, and the handle count when the request
// carries handles. Only the count crosses the wire; the handles
// themselves travel out of band.
func msgFields(c *ipcgen.Call) []string {
	fields := []string{"ipc_command_t cmd"}
	for _, a := range c.In {
		fields = append(fields, argField(a))
	}
	if g := c.InHandles; g != nil {
		fields = append(fields, g.CountType+" "+g.CountName)
	}
	return fields
}

// replyFields returns the reply struct fields for c: the result code
// followed by every output argument in order.
func replyFields(c *ipcgen.Call) []string {
	fields := []string{"ipc_result_t result"}
	for _, a := range c.Out {
		fields = append(fields, argField(a))
	}
	return fields
}

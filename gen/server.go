// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package gen

import (
	"github.com/creachadair/ipcgen"
	"github.com/creachadair/ipcgen/cwrite"
)

// ServerHeader renders the server-side prototypes: the dispatch entry
// point, the request size lookup, and one handler prototype per call for
// the server implementation to satisfy. The dispatch and size prototypes
// are fixed in shape but live here because they mention the generated
// command enum.
func ServerHeader(p *ipcgen.Protocol, cfg *Config) []byte {
	s := new(cwrite.Source)
	banner(s, cfg, "Generated IPC server dispatch", "ipc_server")
	s.Blank()
	s.Line("#pragma once")
	s.Blank()
	s.Include("ipc_server.h")
	s.Include("ipc_protocol_generated.h")
	s.Blank()
	s.BeginExternC()
	s.Blank()
	s.Proto("ipc_result_t", "ipc_dispatch", "struct ipc_client_state *cs", "ipc_command_t *cmd")
	s.Blank()
	s.Proto("size_t", "ipc_command_size", "ipc_command_t cmd")
	for _, c := range p.Calls {
		s.Blank()
		s.Proto("ipc_result_t", "ipc_handle_"+c.Name, handlerParams(c)...)
	}
	s.Blank()
	s.EndExternC()
	return s.Bytes()
}

// ServerSource renders the dispatch switch and the request size lookup.
func ServerSource(p *ipcgen.Protocol, cfg *Config) []byte {
	s := new(cwrite.Source)
	banner(s, cfg, "Generated IPC server dispatch", "ipc_server")
	s.Blank()
	s.Include("ipc_server.h")
	s.Include("ipc_protocol_generated.h")
	s.Include("ipc_server_generated.h")
	s.Blank()
	s.Decl("ipc_result_t", "ipc_dispatch", "struct ipc_client_state *cs", "ipc_command_t *cmd")
	s.Open()
	s.Line("\tswitch (*cmd) {")
	for _, c := range p.Calls {
		appendDispatchCase(s, c)
	}
	s.Line("\tdefault:")
	s.Line(`		IPC_LOG_E("Unhandled IPC command %d", *cmd);`)
	s.Line("\t\treturn IPC_ERROR_IPC_FAILURE;")
	s.Line("\t}")
	s.Close()
	s.Blank()
	appendSizeLookup(s, p)
	return s.Bytes()
}

// handlerParams returns the parameter list of the handler prototype for
// c, in the order the dispatch case passes them: the client state,
// inputs, outputs, reply handle arguments, then request handle
// arguments. Varlen handlers take no outputs; they frame their own
// reply.
func handlerParams(c *ipcgen.Call) []string {
	params := []string{"struct ipc_client_state *cs"}
	for _, a := range c.In {
		params = append(params, argParamIn(a))
	}
	if !c.Varlen {
		for _, a := range c.Out {
			params = append(params, argParamOut(a))
		}
	}
	if g := c.OutHandles; g != nil {
		params = append(params, g.CountType+" max_"+g.CountName)
		for _, name := range g.ArgNames {
			params = append(params, g.Type+" *out_"+name)
		}
		params = append(params, g.CountType+" *out_"+g.CountName)
	}
	if g := c.InHandles; g != nil {
		params = append(params,
			g.Type+" *"+g.ArgNames[0],
			g.CountType+" "+g.CountName)
	}
	return params
}

// appendDispatchCase emits one switch case of the dispatch function. For
// calls that receive handles, the case completes the sync exchange and
// collects the handle payload before invoking the handler; for calls
// that return handles, the reply travels through the handle-bearing send
// variant.
func appendDispatchCase(s *cwrite.Source, c *ipcgen.Call) {
	s.Linef("\tcase %s: {", c.TagName())
	s.Linef("\t\tIPC_TRACE(cs, \"Dispatching %s\");", c.Name)
	s.Blank()
	if c.NeedsRequestStruct() {
		s.Linef("\t\tstruct %s *msg = (struct %s *)cmd;", msgStructName(c), msgStructName(c))
	}
	if c.Varlen {
		s.Line("\t\t// The handler frames its own reply.")
	} else {
		s.Linef("\t\tstruct %s reply = {0};", replyStructName(c))
	}
	if g := c.InHandles; g != nil {
		s.Line("\t\tstruct ipc_result_reply _sync = {IPC_SUCCESS};")
		s.Line("\t\tstruct ipc_command_msg _handle_msg = {0};")
		s.Linef("\t\t%s in_%s[IPC_MAX_HANDLES] = {0};", g.Type, g.ArgNames[0])
		s.Linef("\t\t%s _handle_count = 0;", g.CountType)
	}
	if g := c.OutHandles; g != nil {
		for _, name := range g.ArgNames {
			s.Linef("\t\t%s %s[IPC_MAX_HANDLES] = {0};", g.Type, name)
		}
		s.Linef("\t\t%s %s = 0;", g.CountType, g.CountName)
	}
	s.Blank()
	if g := c.InHandles; g != nil {
		s.Line("\t\t// The claimed count must fit the fixed receive buffer.")
		s.Linef("\t\tif (msg->%s > IPC_MAX_HANDLES) {", g.CountName)
		s.Line("\t\t\treturn IPC_ERROR_IPC_FAILURE;")
		s.Line("\t\t}")
		s.Blank()
		s.Line("\t\t// Tell the client the handle payload may follow.")
		s.Invoke("\t\t", "ipc_result_t sync_result", "ipc_send", "&cs->imc", "&_sync", "sizeof(_sync)")
		s.Line("\t\tif (sync_result != IPC_SUCCESS) {")
		s.Line("\t\t\treturn sync_result;")
		s.Line("\t\t}")
		s.Blank()
		s.Invoke("\t\t", "ipc_result_t receive_handle_result", "ipc_receive_handles_"+g.Stem,
			"&cs->imc", "&_handle_msg", "sizeof(_handle_msg)",
			"in_"+g.ArgNames[0], "msg->"+g.CountName, "&_handle_count")
		s.Line("\t\tif (receive_handle_result != IPC_SUCCESS) {")
		s.Line("\t\t\treturn receive_handle_result;")
		s.Line("\t\t}")
		s.Blank()
		s.Line("\t\t// The handle payload must restate the command it belongs to.")
		s.Linef("\t\tif (_handle_msg.cmd != %s) {", c.TagName())
		s.Line("\t\t\treturn IPC_ERROR_IPC_FAILURE;")
		s.Line("\t\t}")
		s.Blank()
	}
	target := "reply.result"
	if c.Varlen {
		target = "ipc_result_t xret"
	}
	s.Invoke("\t\t", target, "ipc_handle_"+c.Name, handlerArgs(c)...)
	if !c.Varlen {
		s.Blank()
		if g := c.OutHandles; g != nil {
			args := []string{"&cs->imc", "&reply", "sizeof(reply)"}
			args = append(args, g.ArgNames...)
			args = append(args, g.CountName)
			s.Invoke("\t\t", "ipc_result_t xret", "ipc_send_handles_"+g.Stem, args...)
		} else {
			s.Invoke("\t\t", "ipc_result_t xret", "ipc_send", "&cs->imc", "&reply", "sizeof(reply)")
		}
	}
	s.Line("\t\treturn xret;")
	s.Line("\t}")
}

// handlerArgs returns the arguments the dispatch case passes to the
// handler, mirroring [handlerParams] exactly.
func handlerArgs(c *ipcgen.Call) []string {
	args := []string{"cs"}
	for _, a := range c.In {
		if a.Aggregate {
			args = append(args, "&msg->"+a.Name)
		} else {
			args = append(args, "msg->"+a.Name)
		}
	}
	if !c.Varlen {
		for _, a := range c.Out {
			args = append(args, "&reply."+a.Name)
		}
	}
	if g := c.OutHandles; g != nil {
		args = append(args, "IPC_MAX_HANDLES")
		args = append(args, g.ArgNames...)
		args = append(args, "&"+g.CountName)
	}
	if g := c.InHandles; g != nil {
		args = append(args, "&in_"+g.ArgNames[0]+"[0]", "msg->"+g.CountName)
	}
	return args
}

// appendSizeLookup emits ipc_command_size, which maps a received tag to
// the exact number of bytes the server must read for that request.
// Unknown tags report zero so the caller cannot size a read from them.
func appendSizeLookup(s *cwrite.Source, p *ipcgen.Protocol) {
	s.Decl("size_t", "ipc_command_size", "ipc_command_t cmd")
	s.Open()
	s.Line("\tswitch (cmd) {")
	for _, c := range p.Calls {
		if c.NeedsRequestStruct() {
			s.Linef("\tcase %s: return sizeof(struct %s);", c.TagName(), msgStructName(c))
		} else {
			s.Linef("\tcase %s: return sizeof(struct ipc_command_msg);", c.TagName())
		}
	}
	s.Line("\tdefault:")
	s.Line(`		IPC_LOG_E("Unhandled IPC command %d", cmd);`)
	s.Line("\t\treturn 0;")
	s.Line("\t}")
	s.Close()
}

// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package gen

import (
	"github.com/creachadair/ipcgen"
	"github.com/creachadair/ipcgen/cwrite"
)

// ClientHeader renders the prototypes for the generated client stubs.
func ClientHeader(p *ipcgen.Protocol, cfg *Config) []byte {
	s := new(cwrite.Source)
	banner(s, cfg, "Generated IPC client stubs", "ipc_client")
	s.Blank()
	s.Line("#pragma once")
	s.Blank()
	s.Include("ipc_client.h")
	s.Include("ipc_protocol_generated.h")
	s.Blank()
	s.BeginExternC()
	for _, c := range p.Calls {
		s.Blank()
		if c.Varlen {
			s.Proto("ipc_result_t", "ipc_send_"+c.Name, sendParams(c)...)
			s.Blank()
			s.Proto("ipc_result_t", "ipc_receive_"+c.Name, receiveParams(c)...)
		} else {
			s.Proto("ipc_result_t", "ipc_call_"+c.Name, callParams(c)...)
		}
	}
	s.Blank()
	s.EndExternC()
	return s.Bytes()
}

// ClientSource renders the client stub definitions. Each fixed call stub
// performs a complete exchange under the connection mutex; varlen calls
// get separate send and receive stubs, each holding the mutex for its own
// half of the exchange.
func ClientSource(p *ipcgen.Protocol, cfg *Config) []byte {
	s := new(cwrite.Source)
	banner(s, cfg, "Generated IPC client stubs", "ipc_client")
	s.Blank()
	s.Include("ipc_client.h")
	s.Include("ipc_protocol_generated.h")
	s.Include("ipc_client_generated.h")
	for _, c := range p.Calls {
		s.Blank()
		if c.Varlen {
			appendSendStub(s, c)
			s.Blank()
			appendReceiveStub(s, c)
		} else {
			appendCallStub(s, c)
		}
	}
	return s.Bytes()
}

// callParams returns the parameter list of a fixed-call stub: the
// connection, inputs, outputs, and finally the handle arguments.
func callParams(c *ipcgen.Call) []string {
	params := []string{"struct ipc_connection *ipc_c"}
	for _, a := range c.In {
		params = append(params, argParamIn(a))
	}
	for _, a := range c.Out {
		params = append(params, argParamOut(a))
	}
	if g := c.InHandles; g != nil {
		params = append(params,
			"const "+g.Type+" *"+g.ArgNames[0],
			g.CountType+" "+g.CountName)
	}
	if g := c.OutHandles; g != nil {
		params = append(params, g.CountType+" max_"+g.CountName)
		for _, name := range g.ArgNames {
			params = append(params, g.Type+" *out_"+name)
		}
		params = append(params, g.CountType+" *out_"+g.CountName)
	}
	return params
}

// sendParams returns the parameter list of a varlen send stub.
func sendParams(c *ipcgen.Call) []string {
	params := []string{"struct ipc_connection *ipc_c"}
	for _, a := range c.In {
		params = append(params, argParamIn(a))
	}
	return params
}

// receiveParams returns the parameter list of a varlen receive stub.
func receiveParams(c *ipcgen.Call) []string {
	params := []string{"struct ipc_connection *ipc_c"}
	for _, a := range c.Out {
		params = append(params, argParamOut(a))
	}
	return params
}

// appendCallStub emits the stub for a fixed call. The exchange holds the
// connection mutex from before the request is sent until after the reply
// arrives, and every failure path releases it before returning.
func appendCallStub(s *cwrite.Source, c *ipcgen.Call) {
	s.Decl("ipc_result_t", "ipc_call_"+c.Name, callParams(c)...)
	s.Open()
	s.Linef("\tIPC_TRACE(ipc_c, \"Calling %s\");", c.Name)
	s.Blank()
	appendRequestLocal(s, c)
	s.Linef("\tstruct %s _reply = {0};", replyStructName(c))
	if c.InHandles != nil {
		s.Line("\tstruct ipc_result_reply _sync = {0};")
	}
	s.Blank()
	s.Line("\t// The connection carries one exchange at a time.")
	s.Line("\tipc_mutex_lock(&ipc_c->mutex);")
	s.Blank()
	s.Invoke("\t", "ipc_result_t ret", "ipc_send", "&ipc_c->imc", "&_msg", "sizeof(_msg)")
	appendUnlockGuard(s)
	if g := c.InHandles; g != nil {
		s.Blank()
		s.Line("\t// Wait until the server expects the handle payload.")
		s.Invoke("\t", "ret", "ipc_receive", "&ipc_c->imc", "&_sync", "sizeof(_sync)")
		appendUnlockGuard(s)
		s.Blank()
		s.Line("\t// The body is filler; the handles travel out of band.")
		s.Line("\tstruct ipc_command_msg _handle_msg = {")
		s.Linef("\t    .cmd = %s,", c.TagName())
		s.Line("\t};")
		s.Invoke("\t", "ret", "ipc_send_handles_"+g.Stem,
			"&ipc_c->imc", "&_handle_msg", "sizeof(_handle_msg)", g.ArgNames[0], g.CountName)
		appendUnlockGuard(s)
	}
	s.Blank()
	s.Line("\t// Wait for the reply.")
	if g := c.OutHandles; g != nil {
		args := []string{"&ipc_c->imc", "&_reply", "sizeof(_reply)"}
		for _, name := range g.ArgNames {
			args = append(args, "out_"+name)
		}
		args = append(args, "max_"+g.CountName, "out_"+g.CountName)
		s.Invoke("\t", "ret", "ipc_receive_handles_"+g.Stem, args...)
	} else {
		s.Invoke("\t", "ret", "ipc_receive", "&ipc_c->imc", "&_reply", "sizeof(_reply)")
	}
	appendUnlockGuard(s)
	if len(c.Out) > 0 {
		s.Blank()
		for _, a := range c.Out {
			s.Linef("\t*out_%s = _reply.%s;", a.Name, a.Name)
		}
	}
	s.Blank()
	s.Line("\tipc_mutex_unlock(&ipc_c->mutex);")
	s.Line("\treturn _reply.result;")
	s.Close()
}

// appendSendStub emits the request half of a varlen call.
func appendSendStub(s *cwrite.Source, c *ipcgen.Call) {
	s.Decl("ipc_result_t", "ipc_send_"+c.Name, sendParams(c)...)
	s.Open()
	s.Linef("\tIPC_TRACE(ipc_c, \"Sending %s\");", c.Name)
	s.Blank()
	appendRequestLocal(s, c)
	s.Blank()
	s.Line("\tipc_mutex_lock(&ipc_c->mutex);")
	s.Blank()
	s.Invoke("\t", "ipc_result_t ret", "ipc_send", "&ipc_c->imc", "&_msg", "sizeof(_msg)")
	s.Blank()
	s.Line("\tipc_mutex_unlock(&ipc_c->mutex);")
	s.Line("\treturn ret;")
	s.Close()
}

// appendReceiveStub emits the reply half of a varlen call.
func appendReceiveStub(s *cwrite.Source, c *ipcgen.Call) {
	s.Decl("ipc_result_t", "ipc_receive_"+c.Name, receiveParams(c)...)
	s.Open()
	s.Linef("\tIPC_TRACE(ipc_c, \"Receiving %s\");", c.Name)
	s.Blank()
	s.Linef("\tstruct %s _reply = {0};", replyStructName(c))
	s.Blank()
	s.Line("\tipc_mutex_lock(&ipc_c->mutex);")
	s.Blank()
	s.Line("\t// Wait for the reply.")
	s.Invoke("\t", "ipc_result_t ret", "ipc_receive", "&ipc_c->imc", "&_reply", "sizeof(_reply)")
	appendUnlockGuard(s)
	if len(c.Out) > 0 {
		s.Blank()
		for _, a := range c.Out {
			s.Linef("\t*out_%s = _reply.%s;", a.Name, a.Name)
		}
	}
	s.Blank()
	s.Line("\tipc_mutex_unlock(&ipc_c->mutex);")
	s.Line("\treturn _reply.result;")
	s.Close()
}

// appendRequestLocal emits the request message local, tagged and
// populated from the stub parameters. Calls that marshal nothing send a
// bare tag message.
func appendRequestLocal(s *cwrite.Source, c *ipcgen.Call) {
	if c.NeedsRequestStruct() {
		s.Linef("\tstruct %s _msg = {", msgStructName(c))
	} else {
		s.Line("\tstruct ipc_command_msg _msg = {")
	}
	s.Linef("\t    .cmd = %s,", c.TagName())
	for _, a := range c.In {
		if a.Aggregate {
			s.Linef("\t    .%s = *%s,", a.Name, a.Name)
		} else {
			s.Linef("\t    .%s = %s,", a.Name, a.Name)
		}
	}
	if g := c.InHandles; g != nil {
		s.Linef("\t    .%s = %s,", g.CountName, g.CountName)
	}
	s.Line("\t};")
}

// appendUnlockGuard emits the failure check that releases the connection
// before propagating a transport error.
func appendUnlockGuard(s *cwrite.Source) {
	s.Line("\tif (ret != IPC_SUCCESS) {")
	s.Line("\t\tipc_mutex_unlock(&ipc_c->mutex);")
	s.Line("\t\treturn ret;")
	s.Line("\t}")
}

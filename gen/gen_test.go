// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package gen_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/creachadair/ipcgen"
	"github.com/creachadair/ipcgen/gen"
	"github.com/google/go-cmp/cmp"
)

func mustProtocol(t *testing.T, desc string) *ipcgen.Protocol {
	t.Helper()
	p, err := ipcgen.Parse([]byte(desc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return p
}

// scenarioDesc covers the interesting shapes: a bare in-less call, an
// aggregate request with inbound handles, outbound handles, and a varlen
// call split into send and receive halves.
const scenarioDesc = `{
  "calls": [
    {
      "name": "get_info",
      "out": [{"name": "version", "type": "uint32_t"}]
    },
    {
      "name": "submit_frame",
      "in": [{"name": "desc", "type": "struct ipc_frame_desc"}],
      "in_handles": {
        "type": "ipc_shmem_handle_t",
        "stem": "shmem",
        "arg_name": "buffers",
        "count_arg_name": "buffer_count",
        "count_arg_type": "uint32_t"
      }
    },
    {
      "name": "swapchain_images",
      "in": [{"name": "id", "type": "uint32_t"}],
      "out_handles": {
        "type": "ipc_graphics_handle_t",
        "stem": "swapchain",
        "arg_names": ["images"],
        "count_arg_name": "image_count",
        "count_arg_type": "uint32_t"
      }
    },
    {
      "name": "read_events",
      "varlen": true,
      "in": [{"name": "max_events", "type": "uint32_t"}],
      "out": [{"name": "count", "type": "uint32_t"}]
    }
  ]
}`

// The complete renderings of a protocol with a single bare call. These
// pin the exact texture of every artifact: banner, guards, wrapping, and
// indentation.
const (
	pingProtocolH = `// Code generated by ipcgen. DO NOT EDIT.

/*!
 * @file
 * @brief Generated IPC protocol header.
 * @ingroup ipc
 */

#pragma once

#include <stddef.h>
#include <stdint.h>
#include "ipc_transport.h"

#ifdef __cplusplus
extern "C" {
#endif

struct ipc_connection;

typedef enum ipc_command
{
	IPC_ERR = 0,
	IPC_PING,
} ipc_command_t;

#define IPC_MAX_HANDLES 8

static inline const char *
ipc_cmd_to_str(ipc_command_t cmd)
{
	switch (cmd) {
	case IPC_ERR: return "IPC_ERR";
	case IPC_PING: return "IPC_PING";
	default: return "IPC_UNKNOWN";
	}
}

#pragma pack(push, 1)

struct ipc_command_msg
{
	ipc_command_t cmd;
};

struct ipc_result_reply
{
	ipc_result_t result;
};

#pragma pack(pop)

#ifdef __cplusplus
} // extern "C"
#endif
`

	pingClientH = `// Code generated by ipcgen. DO NOT EDIT.

/*!
 * @file
 * @brief Generated IPC client stubs.
 * @ingroup ipc_client
 */

#pragma once

#include "ipc_client.h"
#include "ipc_protocol_generated.h"

#ifdef __cplusplus
extern "C" {
#endif

ipc_result_t
ipc_call_ping(struct ipc_connection *ipc_c);

#ifdef __cplusplus
} // extern "C"
#endif
`

	pingClientC = `// Code generated by ipcgen. DO NOT EDIT.

/*!
 * @file
 * @brief Generated IPC client stubs.
 * @ingroup ipc_client
 */

#include "ipc_client.h"
#include "ipc_protocol_generated.h"
#include "ipc_client_generated.h"

ipc_result_t
ipc_call_ping(struct ipc_connection *ipc_c)
{
	IPC_TRACE(ipc_c, "Calling ping");

	struct ipc_command_msg _msg = {
	    .cmd = IPC_PING,
	};
	struct ipc_result_reply _reply = {0};

	// The connection carries one exchange at a time.
	ipc_mutex_lock(&ipc_c->mutex);

	ipc_result_t ret = ipc_send(&ipc_c->imc,
	                            &_msg,
	                            sizeof(_msg));
	if (ret != IPC_SUCCESS) {
		ipc_mutex_unlock(&ipc_c->mutex);
		return ret;
	}

	// Wait for the reply.
	ret = ipc_receive(&ipc_c->imc,
	                  &_reply,
	                  sizeof(_reply));
	if (ret != IPC_SUCCESS) {
		ipc_mutex_unlock(&ipc_c->mutex);
		return ret;
	}

	ipc_mutex_unlock(&ipc_c->mutex);
	return _reply.result;
}
`

	pingServerH = `// Code generated by ipcgen. DO NOT EDIT.

/*!
 * @file
 * @brief Generated IPC server dispatch.
 * @ingroup ipc_server
 */

#pragma once

#include "ipc_server.h"
#include "ipc_protocol_generated.h"

#ifdef __cplusplus
extern "C" {
#endif

ipc_result_t
ipc_dispatch(struct ipc_client_state *cs,
             ipc_command_t *cmd);

size_t
ipc_command_size(ipc_command_t cmd);

ipc_result_t
ipc_handle_ping(struct ipc_client_state *cs);

#ifdef __cplusplus
} // extern "C"
#endif
`

	pingServerC = `// Code generated by ipcgen. DO NOT EDIT.

/*!
 * @file
 * @brief Generated IPC server dispatch.
 * @ingroup ipc_server
 */

#include "ipc_server.h"
#include "ipc_protocol_generated.h"
#include "ipc_server_generated.h"

ipc_result_t
ipc_dispatch(struct ipc_client_state *cs,
             ipc_command_t *cmd)
{
	switch (*cmd) {
	case IPC_PING: {
		IPC_TRACE(cs, "Dispatching ping");

		struct ipc_result_reply reply = {0};

		reply.result = ipc_handle_ping(cs);

		ipc_result_t xret = ipc_send(&cs->imc,
		                             &reply,
		                             sizeof(reply));
		return xret;
	}
	default:
		IPC_LOG_E("Unhandled IPC command %d", *cmd);
		return IPC_ERROR_IPC_FAILURE;
	}
}

size_t
ipc_command_size(ipc_command_t cmd)
{
	switch (cmd) {
	case IPC_PING: return sizeof(struct ipc_command_msg);
	default:
		IPC_LOG_E("Unhandled IPC command %d", cmd);
		return 0;
	}
}
`
)

func TestMinimalProtocol(t *testing.T) {
	p := mustProtocol(t, `{"calls": [{"name": "ping"}]}`)

	tests := []struct {
		name   string
		render func(*ipcgen.Protocol, *gen.Config) []byte
		want   string
	}{
		{"ProtocolHeader", gen.ProtocolHeader, pingProtocolH},
		{"ClientHeader", gen.ClientHeader, pingClientH},
		{"ClientSource", gen.ClientSource, pingClientC},
		{"ServerHeader", gen.ServerHeader, pingServerH},
		{"ServerSource", gen.ServerSource, pingServerC},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := string(tc.render(p, nil))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Rendered text (-want, +got):\n%s", diff)
			}
		})
	}
}

// checkOrder verifies that each sub occurs in text, after the end of the
// previous sub.
func checkOrder(t *testing.T, text string, subs ...string) {
	t.Helper()
	pos := 0
	for _, sub := range subs {
		i := strings.Index(text[pos:], sub)
		if i < 0 {
			t.Fatalf("Missing %q after offset %d", sub, pos)
		}
		pos += i + len(sub)
	}
}

func TestProtocolHeader(t *testing.T) {
	p := mustProtocol(t, scenarioDesc)
	got := string(gen.ProtocolHeader(p, nil))

	// Tag values count up from the reserved error sentinel in
	// description order.
	checkOrder(t, got,
		"typedef enum ipc_command\n{\n",
		"\tIPC_ERR = 0,\n",
		"\tIPC_GET_INFO,\n",
		"\tIPC_SUBMIT_FRAME,\n",
		"\tIPC_SWAPCHAIN_IMAGES,\n",
		"\tIPC_READ_EVENTS,\n",
		"} ipc_command_t;\n",
		`	case IPC_SUBMIT_FRAME: return "IPC_SUBMIT_FRAME";`,
	)

	// Message structs carry the tag, the arguments, and the handle count;
	// the handles themselves never appear in a wire struct.
	for _, want := range []string{
		`struct ipc_submit_frame_msg
{
	ipc_command_t cmd;
	struct ipc_frame_desc desc;
	uint32_t buffer_count;
};`,
		`struct ipc_get_info_reply
{
	ipc_result_t result;
	uint32_t version;
};`,
		`struct ipc_swapchain_images_msg
{
	ipc_command_t cmd;
	uint32_t id;
};`,
		`struct ipc_read_events_reply
{
	ipc_result_t result;
	uint32_t count;
};`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Missing struct definition:\n%s", want)
		}
	}
	if strings.Contains(got, "ipc_graphics_handle_t images") {
		t.Error("Handle array leaked into a wire struct")
	}

	// get_info sends a bare tag and shares the generic reply, so it gets
	// no structs of its own.
	for _, bad := range []string{"ipc_get_info_msg", "ipc_submit_frame_reply"} {
		if strings.Contains(got, bad) {
			t.Errorf("Unexpected struct %q", bad)
		}
	}

	// All packed structs live inside one pack region.
	checkOrder(t, got,
		"#pragma pack(push, 1)",
		"struct ipc_command_msg",
		"struct ipc_read_events_reply",
		"#pragma pack(pop)",
	)
}

func TestClientStubs(t *testing.T) {
	p := mustProtocol(t, scenarioDesc)

	t.Run("Header", func(t *testing.T) {
		got := string(gen.ClientHeader(p, nil))
		checkOrder(t, got,
			"ipc_result_t\nipc_call_get_info(struct ipc_connection *ipc_c,\n                  uint32_t *out_version);\n",
			"ipc_result_t\nipc_call_submit_frame(struct ipc_connection *ipc_c,\n",
			"ipc_result_t\nipc_call_swapchain_images(struct ipc_connection *ipc_c,\n",
			"ipc_result_t\nipc_send_read_events(struct ipc_connection *ipc_c,\n",
			"ipc_result_t\nipc_receive_read_events(struct ipc_connection *ipc_c,\n",
		)
		if strings.Contains(got, "ipc_call_read_events") {
			t.Error("Varlen call got a combined stub prototype")
		}
	})

	t.Run("HandleSend", func(t *testing.T) {
		got := string(gen.ClientSource(p, nil))

		// The full exchange of a call that sends handles: request, sync
		// handshake, handle payload, reply, all under one lock.
		want := `ipc_result_t
ipc_call_submit_frame(struct ipc_connection *ipc_c,
                      const struct ipc_frame_desc *desc,
                      const ipc_shmem_handle_t *buffers,
                      uint32_t buffer_count)
{
	IPC_TRACE(ipc_c, "Calling submit_frame");

	struct ipc_submit_frame_msg _msg = {
	    .cmd = IPC_SUBMIT_FRAME,
	    .desc = *desc,
	    .buffer_count = buffer_count,
	};
	struct ipc_result_reply _reply = {0};
	struct ipc_result_reply _sync = {0};

	// The connection carries one exchange at a time.
	ipc_mutex_lock(&ipc_c->mutex);

	ipc_result_t ret = ipc_send(&ipc_c->imc,
	                            &_msg,
	                            sizeof(_msg));
	if (ret != IPC_SUCCESS) {
		ipc_mutex_unlock(&ipc_c->mutex);
		return ret;
	}

	// Wait until the server expects the handle payload.
	ret = ipc_receive(&ipc_c->imc,
	                  &_sync,
	                  sizeof(_sync));
	if (ret != IPC_SUCCESS) {
		ipc_mutex_unlock(&ipc_c->mutex);
		return ret;
	}

	// The body is filler; the handles travel out of band.
	struct ipc_command_msg _handle_msg = {
	    .cmd = IPC_SUBMIT_FRAME,
	};
	ret = ipc_send_handles_shmem(&ipc_c->imc,
	                             &_handle_msg,
	                             sizeof(_handle_msg),
	                             buffers,
	                             buffer_count);
	if (ret != IPC_SUCCESS) {
		ipc_mutex_unlock(&ipc_c->mutex);
		return ret;
	}

	// Wait for the reply.
	ret = ipc_receive(&ipc_c->imc,
	                  &_reply,
	                  sizeof(_reply));
	if (ret != IPC_SUCCESS) {
		ipc_mutex_unlock(&ipc_c->mutex);
		return ret;
	}

	ipc_mutex_unlock(&ipc_c->mutex);
	return _reply.result;
}`
		if !strings.Contains(got, want) {
			t.Errorf("Client source lacks the submit_frame stub; got:\n%s", got)
		}

		// Only the handle-sending call performs the sync handshake.
		if n := strings.Count(got, "// Wait until the server expects the handle payload."); n != 1 {
			t.Errorf("Sync handshake appears %d times, want 1", n)
		}
	})

	t.Run("HandleReceive", func(t *testing.T) {
		got := string(gen.ClientSource(p, nil))
		checkOrder(t, got,
			"ipc_call_swapchain_images(struct ipc_connection *ipc_c,\n",
			"                          uint32_t id,\n",
			"                          uint32_t max_image_count,\n",
			"                          ipc_graphics_handle_t *out_images,\n",
			"                          uint32_t *out_image_count)\n",
			"\tret = ipc_receive_handles_swapchain(&ipc_c->imc,\n",
			"\t                                    &_reply,\n",
			"\t                                    sizeof(_reply),\n",
			"\t                                    out_images,\n",
			"\t                                    max_image_count,\n",
			"\t                                    out_image_count);\n",
		)
	})

	t.Run("VarlenHalves", func(t *testing.T) {
		got := string(gen.ClientSource(p, nil))

		// Each half takes and releases the lock itself; the send half
		// does not wait for a reply.
		checkOrder(t, got,
			`IPC_TRACE(ipc_c, "Sending read_events");`,
			"\tipc_mutex_lock(&ipc_c->mutex);",
			"\tipc_result_t ret = ipc_send(&ipc_c->imc,",
			"\tipc_mutex_unlock(&ipc_c->mutex);",
			"\treturn ret;",
			`IPC_TRACE(ipc_c, "Receiving read_events");`,
			"\tipc_mutex_lock(&ipc_c->mutex);",
			"\tipc_result_t ret = ipc_receive(&ipc_c->imc,",
			"\t*out_count = _reply.count;",
			"\tipc_mutex_unlock(&ipc_c->mutex);",
			"\treturn _reply.result;",
		)
		if n := strings.Count(got, "ipc_send_read_events"); n != 1 {
			t.Errorf("ipc_send_read_events appears %d times, want 1", n)
		}
	})
}

func TestServerDispatch(t *testing.T) {
	p := mustProtocol(t, scenarioDesc)

	t.Run("Header", func(t *testing.T) {
		got := string(gen.ServerHeader(p, nil))
		checkOrder(t, got,
			"ipc_result_t\nipc_dispatch(struct ipc_client_state *cs,\n             ipc_command_t *cmd);\n",
			"size_t\nipc_command_size(ipc_command_t cmd);\n",
			"ipc_result_t\nipc_handle_get_info(struct ipc_client_state *cs,\n                    uint32_t *out_version);\n",
			"ipc_result_t\nipc_handle_submit_frame(struct ipc_client_state *cs,\n",
			"ipc_result_t\nipc_handle_read_events(struct ipc_client_state *cs,\n                       uint32_t max_events);\n",
		)

		// Varlen handlers frame their own reply, so the count output of
		// read_events does not appear in its handler prototype.
		i := strings.Index(got, "ipc_handle_read_events")
		if i < 0 {
			t.Fatal("Missing ipc_handle_read_events")
		}
		if sub := got[i:]; strings.Contains(sub[:strings.Index(sub, ";")], "out_count") {
			t.Error("Varlen handler prototype exposes a reply output")
		}
	})

	t.Run("HandleReceive", func(t *testing.T) {
		got := string(gen.ServerSource(p, nil))

		// The complete inbound-handle sequence: bounds check, sync reply,
		// handle payload, tag check, then the handler.
		want := `	case IPC_SUBMIT_FRAME: {
		IPC_TRACE(cs, "Dispatching submit_frame");

		struct ipc_submit_frame_msg *msg = (struct ipc_submit_frame_msg *)cmd;
		struct ipc_result_reply reply = {0};
		struct ipc_result_reply _sync = {IPC_SUCCESS};
		struct ipc_command_msg _handle_msg = {0};
		ipc_shmem_handle_t in_buffers[IPC_MAX_HANDLES] = {0};
		uint32_t _handle_count = 0;

		// The claimed count must fit the fixed receive buffer.
		if (msg->buffer_count > IPC_MAX_HANDLES) {
			return IPC_ERROR_IPC_FAILURE;
		}

		// Tell the client the handle payload may follow.
		ipc_result_t sync_result = ipc_send(&cs->imc,
		                                    &_sync,
		                                    sizeof(_sync));
		if (sync_result != IPC_SUCCESS) {
			return sync_result;
		}

		ipc_result_t receive_handle_result = ipc_receive_handles_shmem(&cs->imc,
		                                                               &_handle_msg,
		                                                               sizeof(_handle_msg),
		                                                               in_buffers,
		                                                               msg->buffer_count,
		                                                               &_handle_count);
		if (receive_handle_result != IPC_SUCCESS) {
			return receive_handle_result;
		}

		// The handle payload must restate the command it belongs to.
		if (_handle_msg.cmd != IPC_SUBMIT_FRAME) {
			return IPC_ERROR_IPC_FAILURE;
		}

		reply.result = ipc_handle_submit_frame(cs,
		                                       &msg->desc,
		                                       &in_buffers[0],
		                                       msg->buffer_count);

		ipc_result_t xret = ipc_send(&cs->imc,
		                             &reply,
		                             sizeof(reply));
		return xret;
	}`
		if !strings.Contains(got, want) {
			t.Errorf("Server dispatch lacks the submit_frame case; got:\n%s", got)
		}
	})

	t.Run("HandleSend", func(t *testing.T) {
		got := string(gen.ServerSource(p, nil))
		checkOrder(t, got,
			`		IPC_TRACE(cs, "Dispatching swapchain_images");`,
			"\t\tipc_graphics_handle_t images[IPC_MAX_HANDLES] = {0};",
			"\t\tuint32_t image_count = 0;",
			"\t\treply.result = ipc_handle_swapchain_images(cs,",
			"\t\t                                           msg->id,",
			"\t\t                                           IPC_MAX_HANDLES,",
			"\t\t                                           images,",
			"\t\t                                           &image_count);",
			"\t\tipc_result_t xret = ipc_send_handles_swapchain(&cs->imc,",
			"\t\t                                               &reply,",
			"\t\t                                               sizeof(reply),",
			"\t\t                                               images,",
			"\t\t                                               image_count);",
			"\t\treturn xret;",
		)
	})

	t.Run("Varlen", func(t *testing.T) {
		got := string(gen.ServerSource(p, nil))
		checkOrder(t, got,
			`		IPC_TRACE(cs, "Dispatching read_events");`,
			"\t\tstruct ipc_read_events_msg *msg = (struct ipc_read_events_msg *)cmd;",
			"\t\t// The handler frames its own reply.",
			"\t\tipc_result_t xret = ipc_handle_read_events(cs,",
			"\t\t                                           msg->max_events);",
			"\t\treturn xret;",
		)
	})

	t.Run("SizeLookup", func(t *testing.T) {
		got := string(gen.ServerSource(p, nil))
		checkOrder(t, got,
			"size_t\nipc_command_size(ipc_command_t cmd)\n{\n",
			"\tcase IPC_GET_INFO: return sizeof(struct ipc_command_msg);\n",
			"\tcase IPC_SUBMIT_FRAME: return sizeof(struct ipc_submit_frame_msg);\n",
			"\tcase IPC_SWAPCHAIN_IMAGES: return sizeof(struct ipc_swapchain_images_msg);\n",
			"\tcase IPC_READ_EVENTS: return sizeof(struct ipc_read_events_msg);\n",
			"\tdefault:\n",
			"\t\treturn 0;\n",
		)
	})
}

func TestConfig(t *testing.T) {
	p := mustProtocol(t, `{"calls": [{"name": "ping"}]}`)
	cfg := &gen.Config{
		Tool:      "protogen v3",
		Copyright: []string{"Copyright 2026, Example Org.", "SPDX-License-Identifier: BSL-1.0"},
		Includes:  []string{"<sys/types.h>", "example_transport.h"},
	}

	got := string(gen.ProtocolHeader(p, cfg))
	checkOrder(t, got,
		"// Copyright 2026, Example Org.\n",
		"// SPDX-License-Identifier: BSL-1.0\n",
		"// Code generated by protogen v3. DO NOT EDIT.\n",
		"#include <stddef.h>\n",
		"#include <sys/types.h>\n",
		`#include "example_transport.h"`,
	)
	if strings.Contains(got, "ipc_transport.h") {
		t.Error("Default include emitted despite an explicit include list")
	}

	// The copyright and tool banner lead every artifact, not only the
	// protocol header.
	for name, render := range map[string]func(*ipcgen.Protocol, *gen.Config) []byte{
		"ClientHeader": gen.ClientHeader,
		"ClientSource": gen.ClientSource,
		"ServerHeader": gen.ServerHeader,
		"ServerSource": gen.ServerSource,
	} {
		text := string(render(p, cfg))
		if !strings.HasPrefix(text, "// Copyright 2026, Example Org.\n") {
			t.Errorf("%s does not begin with the copyright banner", name)
		}
		if !strings.Contains(text, "Code generated by protogen v3. DO NOT EDIT.") {
			t.Errorf("%s lacks the tool banner", name)
		}
	}
}

func TestDeterminism(t *testing.T) {
	p := mustProtocol(t, scenarioDesc)

	renders := map[string]func(*ipcgen.Protocol, *gen.Config) []byte{
		"ProtocolHeader": gen.ProtocolHeader,
		"ClientHeader":   gen.ClientHeader,
		"ClientSource":   gen.ClientSource,
		"ServerHeader":   gen.ServerHeader,
		"ServerSource":   gen.ServerSource,
	}
	for name, render := range renders {
		if a, b := render(p, nil), render(p, nil); !bytes.Equal(a, b) {
			t.Errorf("%s rendered differently on a second run", name)
		}
	}
}

func TestRecognizes(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"ipc_protocol_generated.h", true},
		{"ipc_client_generated.h", true},
		{"ipc_client_generated.c", true},
		{"ipc_server_generated.h", true},
		{"ipc_server_generated.c", true},
		{"out/build/ipc_server_generated.c", true},

		{"", false},
		{"notes.txt", false},
		{"ipc_protocol_generated", false},
		{"ipc_protocol_generated.hh", false},
		{"ipc_client.h", false},
	}
	for _, tc := range tests {
		if got := gen.Recognizes(tc.path); got != tc.want {
			t.Errorf("Recognizes(%q): got %v, want %v", tc.path, got, tc.want)
		}
	}
}

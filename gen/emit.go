// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package gen

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/creachadair/ipcgen"
	"github.com/creachadair/taskgroup"
)

// A GenerationError reports the failure to write one output artifact.
type GenerationError struct {
	Path string // the output path being written
	Err  error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("generate %s: %v", e.Path, e.Err) }

// Unwrap returns the underlying write error.
func (e *GenerationError) Unwrap() error { return e.Err }

// artifacts maps artifact name suffixes to their renderers.
var artifacts = []struct {
	Suffix string
	Render func(*ipcgen.Protocol, *Config) []byte
}{
	{"ipc_protocol_generated.h", ProtocolHeader},
	{"ipc_client_generated.h", ClientHeader},
	{"ipc_client_generated.c", ClientSource},
	{"ipc_server_generated.h", ServerHeader},
	{"ipc_server_generated.c", ServerSource},
}

// Recognizes reports whether path names a generated artifact, meaning
// [Emit] would write it rather than skip it.
func Recognizes(path string) bool { return renderer(path) != nil }

// renderer returns the render function for path, or nil if path does not
// name an artifact.
func renderer(path string) func(*ipcgen.Protocol, *Config) []byte {
	for _, a := range artifacts {
		if strings.HasSuffix(path, a.Suffix) {
			return a.Render
		}
	}
	return nil
}

// Emit renders and writes each recognized artifact among paths, working
// concurrently across paths. Paths naming no artifact are skipped without
// error. Each artifact is rendered completely in memory before its file
// is touched, so a rendering problem cannot truncate an existing output.
//
// Emit waits for all artifacts to settle and reports the first failure as
// a [*GenerationError], or nil if every recognized path was written.
func Emit(p *ipcgen.Protocol, cfg *Config, paths ...string) error {
	var mu sync.Mutex
	var firstErr error
	g := taskgroup.New(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	})
	for _, path := range paths {
		render := renderer(path)
		if render == nil {
			rootMetrics.skipped.Add(1)
			continue
		}
		g.Go(func() error {
			if err := os.WriteFile(path, render(p, cfg), 0644); err != nil {
				rootMetrics.failed.Add(1)
				return &GenerationError{Path: path, Err: err}
			}
			rootMetrics.written.Add(1)
			return nil
		})
	}
	g.Wait()
	return firstErr
}

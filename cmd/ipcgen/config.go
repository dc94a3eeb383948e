package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/creachadair/ipcgen/gen"
)

// configFile mirrors the TOML generator settings file:
//
//	tool = "xrgen"
//	copyright = [
//	  "Copyright 2026 Example Org.",
//	  "SPDX-License-Identifier: BSL-1.0",
//	]
//	includes = ["xr/xr_transport.h"]
//
// All keys are optional. An absent includes key keeps the default
// transport include; an explicitly empty list removes it.
type configFile struct {
	Tool      string   `toml:"tool"`
	Copyright []string `toml:"copyright"`
	Includes  []string `toml:"includes"`
}

// loadSettings reads the generator settings at path. An empty path
// selects the built-in defaults. Unknown keys are reported as errors
// rather than ignored.
func loadSettings(path string) (*gen.Config, error) {
	if path == "" {
		return nil, nil // a nil config provides all defaults
	}
	var cf configFile
	meta, err := toml.DecodeFile(path, &cf)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("load settings: unknown key %q", undec[0].String())
	}
	return &gen.Config{
		Tool:      cf.Tool,
		Copyright: cf.Copyright,
		Includes:  cf.Includes,
	}, nil
}

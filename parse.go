// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package ipcgen

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fileProtocol is the JSON shape of a protocol description. Unknown fields
// are rejected at decode time, so a typo in a description is an error
// rather than a silently ignored key.
type fileProtocol struct {
	Schema string     `json:"$schema"` // ignored, for editor tooling
	Calls  []fileCall `json:"calls"`
}

type fileCall struct {
	Name       string       `json:"name"`
	In         []fileArg    `json:"in"`
	Out        []fileArg    `json:"out"`
	InHandles  *fileHandles `json:"in_handles"`
	OutHandles *fileHandles `json:"out_handles"`
	Varlen     bool         `json:"varlen"`
}

type fileArg struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Aggregate bool   `json:"aggregate"`
}

type fileHandles struct {
	Type      string   `json:"type"`
	Stem      string   `json:"stem"`
	ArgName   string   `json:"arg_name"`
	ArgNames  []string `json:"arg_names"`
	CountName string   `json:"count_arg_name"`
	CountType string   `json:"count_arg_type"`
}

// Parse parses and validates the protocol description in data.
// If the description is malformed or inconsistent, Parse reports a
// [*SchemaError] collecting every problem found. A protocol returned
// without error is safe to hand to a generator.
func Parse(data []byte) (*Protocol, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var fp fileProtocol
	if err := dec.Decode(&fp); err != nil {
		return nil, &SchemaError{Err: fmt.Errorf("parse description: %w", err)}
	} else if dec.More() {
		return nil, &SchemaError{Err: errors.New("parse description: trailing data after protocol object")}
	}

	p := buildProtocol(&fp)
	if err := validate(p); err != nil {
		return nil, &SchemaError{Err: err}
	}
	return p, nil
}

// Load reads, parses, and validates the protocol description at path.
func Load(path string) (*Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read description: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			se.Path = path
		}
		return nil, err
	}
	return p, nil
}

// buildProtocol converts the raw file shape into the protocol model,
// assigning command tags in file order starting at 1. Tag 0 is reserved
// for the error sentinel and is never assigned.
func buildProtocol(fp *fileProtocol) *Protocol {
	p := &Protocol{Calls: make([]*Call, len(fp.Calls))}
	for i, fc := range fp.Calls {
		p.Calls[i] = &Call{
			Name:       fc.Name,
			Tag:        i + 1,
			In:         buildArgs(fc.In),
			Out:        buildArgs(fc.Out),
			InHandles:  buildHandles(fc.InHandles),
			OutHandles: buildHandles(fc.OutHandles),
			Varlen:     fc.Varlen,
		}
	}
	return p
}

func buildArgs(args []fileArg) []Arg {
	if len(args) == 0 {
		return nil
	}
	out := make([]Arg, len(args))
	for i, a := range args {
		out[i] = Arg{
			Name:      a.Name,
			Type:      a.Type,
			Aggregate: a.Aggregate || isAggregateType(a.Type),
		}
	}
	return out
}

func buildHandles(f *fileHandles) *HandleGroup {
	if f == nil {
		return nil
	}
	// The plural arg_names form, when present, wins over arg_name.
	names := f.ArgNames
	if len(names) == 0 && f.ArgName != "" {
		names = []string{f.ArgName}
	}
	return &HandleGroup{
		Type:      f.Type,
		Stem:      f.Stem,
		ArgNames:  names,
		CountName: f.CountName,
		CountType: f.CountType,
	}
}

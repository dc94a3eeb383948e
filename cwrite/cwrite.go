// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

// Package cwrite provides support for rendering C source text.
//
// A [Source] accumulates lines, declarations, and balanced structural
// blocks (extern "C" guards, packed-layout regions) into an in-memory
// buffer. It knows nothing about any particular protocol; it only enforces
// the lexical conventions shared by all generated artifacts: tab
// indentation, one parameter or argument per wrapped line, and blocks that
// must be closed before the text is complete.
package cwrite

import (
	"bytes"
	"fmt"
	"strings"
)

// A Source is a buffer that accumulates C source text. The zero value is
// ready for use as an empty source.
type Source struct {
	buf     bytes.Buffer
	externs int // open extern "C" guards
	packs   int // open packed-layout blocks
}

// Line appends s followed by a newline.
func (s *Source) Line(text string) { s.buf.WriteString(text); s.buf.WriteByte('\n') }

// Linef appends the formatted text followed by a newline.
func (s *Source) Linef(format string, args ...any) {
	fmt.Fprintf(&s.buf, format, args...)
	s.buf.WriteByte('\n')
}

// Blank appends an empty line.
func (s *Source) Blank() { s.buf.WriteByte('\n') }

// Comment appends each line as a line comment. An empty line becomes a
// bare comment delimiter, so multi-paragraph comments stay joined.
func (s *Source) Comment(lines ...string) {
	for _, line := range lines {
		if line == "" {
			s.Line("//")
		} else {
			s.Line("// " + line)
		}
	}
}

// Include appends an #include directive for path. Paths beginning with "<"
// are emitted as written; all others are quoted.
func (s *Source) Include(path string) {
	if strings.HasPrefix(path, "<") {
		s.Linef("#include %s", path)
	} else {
		s.Linef("#include %q", path)
	}
}

// BeginExternC opens an extern "C" linkage guard. Every guard must be
// closed with [Source.EndExternC] before the text is read back.
func (s *Source) BeginExternC() {
	s.Line("#ifdef __cplusplus")
	s.Line(`extern "C" {`)
	s.Line("#endif")
	s.externs++
}

// EndExternC closes the innermost extern "C" guard.
// It panics if no guard is open.
func (s *Source) EndExternC() {
	if s.externs == 0 {
		panic(`cwrite: unbalanced extern "C" guard`)
	}
	s.externs--
	s.Line("#ifdef __cplusplus")
	s.Line(`} // extern "C"`)
	s.Line("#endif")
}

// BeginPacked opens a region of byte-packed struct layout. Every region
// must be closed with [Source.EndPacked] before the text is read back.
func (s *Source) BeginPacked() {
	s.Line("#pragma pack(push, 1)")
	s.packs++
}

// EndPacked closes the innermost packed-layout region.
// It panics if no region is open.
func (s *Source) EndPacked() {
	if s.packs == 0 {
		panic("cwrite: unbalanced pack block")
	}
	s.packs--
	s.Line("#pragma pack(pop)")
}

// StructDef appends a struct definition with one field per line. Fields
// are given without their trailing semicolons.
func (s *Source) StructDef(name string, fields ...string) {
	s.Linef("struct %s", name)
	s.Line("{")
	for _, f := range fields {
		s.Linef("\t%s;", f)
	}
	s.Line("};")
}

// TypedefEnum appends a typedef'd enum definition with one enumerator per
// line. Enumerators are given fully rendered, including any explicit
// value assignment.
func (s *Source) TypedefEnum(name, typedefName string, enumerators ...string) {
	s.Linef("typedef enum %s", name)
	s.Line("{")
	for _, e := range enumerators {
		s.Linef("\t%s,", e)
	}
	s.Linef("} %s;", typedefName)
}

// Decl appends a function declarator: the return type on its own line,
// then the function name and parameter list with every parameter after
// the first aligned beneath it. No terminator is appended, so the caller
// can follow with ";" for a prototype or an open brace for a definition.
func (s *Source) Decl(ret, name string, params ...string) {
	s.Line(ret)
	s.buf.WriteString(name)
	s.buf.WriteByte('(')
	pad := ",\n" + strings.Repeat(" ", len(name)+1)
	for i, p := range params {
		if i > 0 {
			s.buf.WriteString(pad)
		}
		s.buf.WriteString(p)
	}
	s.buf.WriteByte(')')
}

// Proto appends a function prototype: a declarator as for [Source.Decl]
// terminated by a semicolon.
func (s *Source) Proto(ret, name string, params ...string) {
	s.Decl(ret, name, params...)
	s.Line(";")
}

// Open terminates the current declarator line and opens a function body.
func (s *Source) Open() {
	s.buf.WriteByte('\n')
	s.Line("{")
}

// Close closes a function body opened by [Source.Open].
func (s *Source) Close() { s.Line("}") }

// Invoke appends an assignment invocation of the form
//
//	target = name(arg1,
//	              arg2);
//
// at the given indentation, with every argument after the first aligned
// beneath it. The target may carry a declaration, as in "int ret".
func (s *Source) Invoke(indent, target, name string, args ...string) {
	start := target + " = " + name + "("
	s.buf.WriteString(indent)
	s.buf.WriteString(start)
	pad := ",\n" + indent + strings.Repeat(" ", len(start))
	for i, a := range args {
		if i > 0 {
			s.buf.WriteString(pad)
		}
		s.buf.WriteString(a)
	}
	s.Line(");")
}

// Len reports the number of bytes currently in the buffer.
func (s *Source) Len() int { return s.buf.Len() }

// Bytes reports the accumulated text. It panics if any structural block
// opened on s has not been closed, since such text cannot be complete.
// The source retains ownership of the reported slice, and the caller must
// not modify its contents.
func (s *Source) Bytes() []byte {
	if s.externs != 0 {
		panic(`cwrite: unclosed extern "C" guard`)
	}
	if s.packs != 0 {
		panic("cwrite: unclosed pack block")
	}
	return s.buf.Bytes()
}

// String reports the accumulated text as a string, with the same
// completeness requirement as [Source.Bytes].
func (s *Source) String() string { return string(s.Bytes()) }

// Reset discards the contents of s and leaves it empty.
func (s *Source) Reset() {
	s.buf.Reset()
	s.externs = 0
	s.packs = 0
}

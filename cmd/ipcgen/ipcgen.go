// Program ipcgen generates C marshaling code for a synchronous IPC
// protocol from a declarative JSON description.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/creachadair/ipcgen"
	"github.com/creachadair/ipcgen/gen"
	"github.com/sirupsen/logrus"
)

var flags = struct {
	LogLevel string `flag:"log-level,Log level (trace, debug, info, warn, error)"`
}{
	LogLevel: "warn",
}

var genFlags struct {
	Config string `flag:"config,Path of a TOML generator settings file"`
}

func main() {
	root := &command.C{
		Name: filepath.Base(os.Args[0]),
		Help: `Generate IPC wire types, client stubs, and server dispatch code.

A protocol description is a JSON file listing synchronous calls. From one
description this tool renders five C artifacts, selected by the name of
each requested output path:

  ipc_protocol_generated.h   wire layout shared by both sides
  ipc_client_generated.h     client call prototypes
  ipc_client_generated.c     client call stubs
  ipc_server_generated.h     server dispatch and handler prototypes
  ipc_server_generated.c     server dispatch and size lookup

Output paths matching none of these names are skipped with a warning.`,

		SetFlags: command.Flags(flax.MustBind, &flags),
		Commands: []*command.C{
			{
				Name:  "generate",
				Usage: "<description-file> <output-path>...",
				Help: `Generate code from a protocol description.

Each output path is written completely or not at all; a failure in one
artifact does not truncate the others.`,
				SetFlags: command.Flags(flax.MustBind, &genFlags),
				Run:      runGenerate,
			},
			{
				Name:  "check",
				Usage: "<description-file>",
				Help:  "Validate a protocol description without generating anything.",
				Run:   runCheck,
			},
			{
				Name:  "dump",
				Usage: "<description-file>",
				Help:  "Print a human-readable summary of a protocol description.",
				Run:   runDump,
			},
			command.VersionCommand(),
			command.HelpCommand(nil),
		},
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}

// setupLogs applies the requested diagnostic log level.
func setupLogs() error {
	level, err := logrus.ParseLevel(flags.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logrus.SetLevel(level)
	return nil
}

func runGenerate(env *command.Env) error {
	if err := setupLogs(); err != nil {
		return err
	}
	if len(env.Args) < 2 {
		return env.Usagef("required: <description-file> <output-path>...")
	}
	desc, outs := env.Args[0], env.Args[1:]

	cfg, err := loadSettings(genFlags.Config)
	if err != nil {
		return err
	}
	p, err := ipcgen.Load(desc)
	if err != nil {
		return err
	}
	logrus.Debugf("Loaded %d calls from %s", len(p.Calls), desc)

	var known int
	for _, out := range outs {
		if gen.Recognizes(out) {
			known++
		} else {
			logrus.Warnf("Skipping %s: name matches no generated artifact", out)
		}
	}
	if err := gen.Emit(p, cfg, outs...); err != nil {
		return err
	}
	logrus.Infof("Generated %d artifacts from %d calls", known, len(p.Calls))
	return nil
}

func runCheck(env *command.Env) error {
	if err := setupLogs(); err != nil {
		return err
	}
	if len(env.Args) != 1 {
		return env.Usagef("required: <description-file>")
	}
	p, err := ipcgen.Load(env.Args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok (%d calls)\n", env.Args[0], len(p.Calls))
	return nil
}

func runDump(env *command.Env) error {
	if err := setupLogs(); err != nil {
		return err
	}
	if len(env.Args) != 1 {
		return env.Usagef("required: <description-file>")
	}
	p, err := ipcgen.Load(env.Args[0])
	if err != nil {
		return err
	}
	for _, c := range p.Calls {
		fmt.Printf("%s (%s = %d)\n", c.Name, c.TagName(), c.Tag)
		if c.Varlen {
			fmt.Println("  varlen: reply framed by the server handler")
		}
		if n, ok := c.RequestSize(); ok {
			fmt.Printf("  request: %d bytes\n", n)
		}
		if n, ok := c.ReplySize(); ok {
			fmt.Printf("  reply: %d bytes\n", n)
		}
		dumpArgs("in", c.In)
		dumpArgs("out", c.Out)
		dumpHandles("in_handles", c.InHandles)
		dumpHandles("out_handles", c.OutHandles)
	}
	return nil
}

func dumpArgs(label string, args []ipcgen.Arg) {
	if len(args) == 0 {
		return
	}
	fmt.Printf("  %s:\n", label)
	for _, a := range args {
		fmt.Printf("    %s %s\n", a.Type, a.Name)
	}
}

func dumpHandles(label string, g *ipcgen.HandleGroup) {
	if g == nil {
		return
	}
	fmt.Printf("  %s: %s %s[%s %s] via stem %q\n",
		label, g.Type, strings.Join(g.ArgNames, ", "), g.CountType, g.CountName, g.Stem)
}

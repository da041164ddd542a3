// Package cmd assembles the colpress CLI's command tree, mirroring
// cmd/bio-pamtool/cmd/main.go's v.io/x/lib/cmdline idiom.
package cmd

import (
	"log"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"

	"github.com/colpress/colpress/errs"
)

func newCmdView() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "view",
		Short:    "View a colpress file's schema and chunk summary",
		ArgsName: "path",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return errs.New(errs.InvalidArgument, "view takes one pathname argument, but got %v", argv)
		}
		return view(argv[0])
	})
	return cmd
}

func newCmdStat() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "stat",
		Short:    "Print per-chunk field statistics as JSON",
		ArgsName: "path",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return errs.New(errs.InvalidArgument, "stat takes one pathname argument, but got %v", argv)
		}
		return stat(argv[0])
	})
	return cmd
}

func newCmdScan() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "scan",
		Short:    "Scan a file, optionally applying a \"field op literal\" predicate",
		ArgsName: "path",
	}
	pred := cmd.Flags.String("filter", "", `A single predicate clause, e.g. "score > 10".`)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return errs.New(errs.InvalidArgument, "scan takes one pathname argument, but got %v", argv)
		}
		return scan(argv[0], *pred)
	})
	return cmd
}

func newCmdChecksum() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "checksum",
		Short:    "Compute a per-field checksum of a colpress file",
		ArgsName: "path",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return errs.New(errs.InvalidArgument, "checksum takes one pathname argument, but got %v", argv)
		}
		return checksum(argv[0])
	})
	return cmd
}

// Run is the CLI entry point.
func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(&cmdline.Command{
		Name:     "colpress",
		Short:    "Tools for working with colpress files",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdView(),
			newCmdStat(),
			newCmdScan(),
			newCmdChecksum(),
		},
	})
}

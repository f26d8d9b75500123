// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

/*
bio-faidx builds .fai indexes for FASTA files and uses them to extract
subsequences.

Exit status is 0 on success, 2 on usage errors, 3 if the input cannot be
opened, 4 if the input is not well-formed FASTA, and 1 otherwise.
*/

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/faidx/encoding/fasta"
	"v.io/x/lib/cmdline"
)

const (
	exitUnavailable = 3
	exitMalformed   = 4
)

// errDiffer is returned by verify when the stored index is stale.
var errDiffer = errors.E(errors.Invalid, "index differs from FASTA contents")

func newCmdIndex() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "index",
		Short:    "Build a .fai index for a FASTA file",
		ArgsName: "fastapath",
	}
	flags := indexFlags{}
	cmd.Flags.StringVar(&flags.out, "o", "", "Output index path. By default, set to fastapath + .fai")
	cmd.Flags.BoolVar(&flags.continueOnMismatch, "continue", false,
		"Skip records with inconsistent line widths instead of failing. The index then omits those records.")
	cmd.Flags.IntVar(&flags.trailingBlankLines, "trailing-blank-lines", -1,
		"Number of blank lines tolerated at the end of a sequence; negative means any number")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return env.UsageErrorf("index takes one pathname argument, but got %v", argv)
		}
		return exitStatus(runIndex(vcontext.Background(), flags, argv[0]))
	})
	return cmd
}

func newCmdGet() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "get",
		Short: "Print subsequences of a FASTA file",
		Long: `
Regions are given as name, name:pos or name:begin-end, where [begin, end] is a
1-based closed interval, as in samtools faidx. If no index exists next to the
FASTA file, one is built in memory.`,
		ArgsName: "fastapath region...",
	}
	flags := getFlags{}
	cmd.Flags.StringVar(&flags.index, "index", "", "Input index path. By default, set to fastapath + .fai")
	cmd.Flags.IntVar(&flags.width, "width", 60, "Bases per output line; 0 disables wrapping")
	cmd.Flags.StringVar(&flags.bed, "bed", "", "BED file (optionally gzipped) of additional regions to extract")
	cmd.Flags.BoolVar(&flags.oneBased, "one-based-bed", false, "Interpret -bed intervals as 1-based closed")
	cmd.Flags.BoolVar(&flags.reverseComplement, "i", false, "Print the reverse complement of each region")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 1 || (len(argv) < 2 && flags.bed == "") {
			return env.UsageErrorf("get takes fastapath and at least one region or -bed, but got %v", argv)
		}
		return exitStatus(runGet(vcontext.Background(), env.Stdout, flags, argv[0], argv[1:]))
	})
	return cmd
}

func newCmdVerify() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "verify",
		Short:    "Check that a .fai index matches its FASTA file",
		ArgsName: "fastapath",
	}
	indexPath := cmd.Flags.String("index", "", "Input index path. By default, set to fastapath + .fai")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return env.UsageErrorf("verify takes one pathname argument, but got %v", argv)
		}
		return exitStatus(runVerify(vcontext.Background(), env.Stdout, argv[0], *indexPath))
	})
	return cmd
}

func newCmdStats() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "stats",
		Short:    "Summarize sequence lengths of a FASTA file",
		ArgsName: "fastapath",
	}
	height := cmd.Flags.Int("plot-height", 0, "Height of a length plot; 0 disables the plot")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return env.UsageErrorf("stats takes one pathname argument, but got %v", argv)
		}
		return exitStatus(runStats(vcontext.Background(), env.Stdout, argv[0], *height))
	})
	return cmd
}

// exitStatus logs err and maps it to the command's exit status.
func exitStatus(err error) error {
	if err == nil {
		return nil
	}
	var mismatch *fasta.LineWidthError
	switch {
	case goerrors.As(err, &mismatch):
		log.Error.Printf("malformed FASTA: sequence %s, line %d, near byte %d: line has %d bases in %d bytes, expected %d bases in %d bytes",
			mismatch.Name, mismatch.Line, mismatch.Offset, mismatch.GotBases, mismatch.Got, mismatch.WantBases, mismatch.Want)
		return cmdline.ErrExitCode(exitMalformed)
	case errors.Is(errors.NotExist, err), errors.Is(errors.Unavailable, err):
		log.Error.Printf("%v", err)
		return cmdline.ErrExitCode(exitUnavailable)
	case errors.Is(errors.Invalid, err):
		log.Error.Printf("malformed input: %v", err)
		return cmdline.ErrExitCode(exitMalformed)
	}
	return err
}

func indexPathFor(fastaPath, indexPath string) string {
	if indexPath != "" {
		return indexPath
	}
	return fastaPath + ".fai"
}

func closeFile(ctx context.Context, c interface{ Close(context.Context) error }, err *error) {
	if e := c.Close(ctx); e != nil && *err == nil {
		*err = fmt.Errorf("close: %v", e)
	}
}

func main() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-faidx",
			Short:    "Index FASTA files and read subsequences through the index",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdIndex(),
				newCmdGet(),
				newCmdVerify(),
				newCmdStats(),
			},
		})
}

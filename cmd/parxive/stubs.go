package main

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/rTiGd2/ParXive/errs"
)

// outer-decode and split are reserved for an outer Reed-Solomon pass over
// volumes themselves (double protection against whole-volume loss). That
// layer is explicitly out of scope; the commands are registered so the CLI
// surface is stable, but both report the feature as unavailable.

var outerDecodeCmd = &cobra.Command{
	Use:   "outer-decode <parity-dir>",
	Short: "reserved: outer Reed-Solomon recovery across volumes (not implemented)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(emitResult(nil, errs.New(errs.KindInternal, "outer-decode", nil).
			WithVariant("FeatureUnavailable")))
	},
}

var splitCmd = &cobra.Command{
	Use:   "split <parity-dir>",
	Short: "reserved: re-split volumes against a new volume count (not implemented)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(emitResult(nil, errs.New(errs.KindInternal, "split", nil).
			WithVariant("FeatureUnavailable")))
	},
}

// hashcat shells out to an external hashcat binary, if one is on $PATH, to
// let an operator brute-force a benchmark catalogue against corrupted
// chunks. ParXive implements none of that catalogue itself; this command
// only locates and execs the collaborator.
var hashcatCmd = &cobra.Command{
	Use:   "hashcat [-- hashcat-args...]",
	Short: "shell out to an external hashcat binary if present on $PATH",
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runHashcat(args))
	},
}

func runHashcat(args []string) int {
	bin, err := exec.LookPath("hashcat")
	if err != nil {
		return emitResult(nil, errs.New(errs.KindInternal, "hashcat", err).
			WithVariant("FeatureUnavailable"))
	}

	c := exec.Command(bin, args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Stdin = os.Stdin
	if err := c.Run(); err != nil {
		return emitResult(nil, errs.New(errs.KindInternal, "hashcat", err))
	}
	return errs.ExitOK
}

// Command parxive protects a directory tree with Reed-Solomon erasure
// coding: create writes a manifest and parity volumes, verify/audit/repair
// operate against them afterward.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rTiGd2/ParXive/build"
	"github.com/rTiGd2/ParXive/errs"
)

var (
	// Flags shared across subcommands.
	flagOutput          string
	flagParity          string
	flagStripeK         int
	flagParityPct       int
	flagChunkSize       int64
	flagVolumeSizes     []string
	flagInterleaveFiles bool
	flagThreads         int
	flagJSON            bool
	flagSkipBackup      bool
)

var rootCmd *cobra.Command

func emitResult(v interface{}, err error) int {
	code := errs.ExitCode(err)
	if flagJSON {
		if v != nil {
			b, _ := json.Marshal(v)
			fmt.Fprintln(os.Stdout, string(b))
		}
		if err != nil {
			rec := errs.ToJSONRecord(err)
			b, _ := json.Marshal(rec)
			fmt.Fprintln(os.Stderr, string(b))
		}
		return code
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return code
	}
	return errs.ExitOK
}

func main() {
	root := &cobra.Command{
		Use:   "parxive",
		Short: "ParXive v" + build.Version + " -- erasure-coded data protection",
		Long:  "ParXive v" + build.Version + " -- erasure-coded data protection",
	}
	rootCmd = root

	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit structured JSON results instead of human-readable text")
	root.PersistentFlags().IntVar(&flagThreads, "threads", 0, "worker pool size (0 = number of logical CPUs)")

	root.AddCommand(createCmd)
	root.AddCommand(verifyCmd)
	root.AddCommand(auditCmd)
	root.AddCommand(repairCmd)
	root.AddCommand(quickcheckCmd)
	root.AddCommand(paritycheckCmd)
	root.AddCommand(outerDecodeCmd)
	root.AddCommand(splitCmd)
	root.AddCommand(hashcatCmd)

	if err := root.Execute(); err != nil {
		os.Exit(errs.ExitUsage)
	}
}

package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rTiGd2/ParXive/errs"
	"github.com/rTiGd2/ParXive/manifest"
	"github.com/rTiGd2/ParXive/verifier"
)

var flagMerkle bool

var verifyCmd = &cobra.Command{
	Use:   "verify <dataset-root>",
	Short: "re-hash a dataset and report per-chunk status against its manifest",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runVerify(args[0]))
	},
}

func init() {
	verifyCmd.Flags().StringVar(&flagOutput, "output", "", "directory containing manifest.json (default: dataset root)")
	verifyCmd.Flags().BoolVar(&flagMerkle, "merkle", true, "also recompute and compare the Merkle root")
}

func loadManifestFor(root string) (*manifest.Manifest, error) {
	dir := flagOutput
	if dir == "" {
		dir = root
	}
	return manifest.Load(filepath.Join(dir, "manifest.json"))
}

func runVerify(root string) int {
	m, err := loadManifestFor(root)
	if err != nil {
		return emitResult(nil, err)
	}
	report, err := verifier.Verify(context.Background(), m, root, flagMerkle)
	if err != nil {
		return emitResult(nil, err)
	}
	if !report.OK {
		return emitResult(report, errs.New(errs.KindData, "verify", nil).WithVariant("IntegrityMismatch"))
	}
	return emitResult(report, nil)
}

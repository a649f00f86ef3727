package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/rTiGd2/ParXive/auditor"
	"github.com/rTiGd2/ParXive/errs"
	"github.com/rTiGd2/ParXive/repair"
	"github.com/rTiGd2/ParXive/verifier"
	"github.com/rTiGd2/ParXive/volume"
)

var repairCmd = &cobra.Command{
	Use:   "repair <dataset-root>",
	Short: "reconstruct corrupt or missing data chunks from parity",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runRepair(args[0]))
	},
}

func init() {
	repairCmd.Flags().StringVar(&flagOutput, "output", "", "directory containing manifest.json (default: dataset root)")
	repairCmd.Flags().StringVar(&flagParity, "parity", "", "directory containing volume files (default: --output)")
	repairCmd.Flags().BoolVar(&flagSkipBackup, "no-backup", false, "do not write <file>.parx.bak before repairing a file")
}

func runRepair(root string) int {
	m, err := loadManifestFor(root)
	if err != nil {
		return emitResult(nil, err)
	}
	layout := m.Layout()

	report, err := verifier.Verify(context.Background(), m, root, false)
	if err != nil {
		return emitResult(nil, err)
	}

	parityDir := flagParity
	if parityDir == "" {
		parityDir = flagOutput
	}
	if parityDir == "" {
		parityDir = root
	}
	avail := probeVolumes(parityDir, m.Config.NumVolumes)

	audit, err := auditor.Audit(m, layout, report, avail)
	if err != nil {
		return emitResult(nil, err)
	}

	readers := make(map[int]*volume.Reader)
	volSrc := func(id int) (*volume.Reader, error) {
		if r, ok := readers[id]; ok {
			return r, nil
		}
		r, err := volume.Open(volumeCandidatePath(parityDir, id))
		if err != nil {
			return nil, err
		}
		readers[id] = r
		return r, nil
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	repairReport, err := repair.Run(m, layout, audit, root, parityDir, volSrc, repair.Options{SkipBackup: flagSkipBackup})
	if err != nil {
		return emitResult(nil, err)
	}
	if len(repairReport.UnrepairedStripes) > 0 || len(repairReport.FailedChunks) > 0 {
		return emitResult(repairReport, errs.New(errs.KindData, "repair", nil).WithVariant("PartialRepair"))
	}
	return emitResult(repairReport, nil)
}

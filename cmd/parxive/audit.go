package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rTiGd2/ParXive/auditor"
	"github.com/rTiGd2/ParXive/errs"
	"github.com/rTiGd2/ParXive/verifier"
	"github.com/rTiGd2/ParXive/volume"
)

var auditCmd = &cobra.Command{
	Use:   "audit <dataset-root>",
	Short: "combine verification results with volume availability into per-stripe health",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runAudit(args[0]))
	},
}

func init() {
	auditCmd.Flags().StringVar(&flagOutput, "output", "", "directory containing manifest.json (default: dataset root)")
	auditCmd.Flags().StringVar(&flagParity, "parity", "", "directory containing volume files (default: --output)")
}

// probeVolumes opens every volume file under parityDir the manifest's
// layout references and reports which ones are readable.
func probeVolumes(parityDir string, numVolumes int) auditor.VolumeAvailability {
	avail := make(auditor.VolumeAvailability, numVolumes)
	for i := 0; i < numVolumes; i++ {
		path := volumeCandidatePath(parityDir, i)
		r, err := volume.Open(path)
		if err != nil {
			avail[i] = false
			continue
		}
		r.Close()
		avail[i] = true
	}
	return avail
}

func volumeCandidatePath(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("volume-%04d.parx", id))
}

func runAudit(root string) int {
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
	if !audit.OK() {
		return emitResult(audit, errs.New(errs.KindData, "audit", nil).WithVariant("Unrecoverable"))
	}
	return emitResult(audit, nil)
}

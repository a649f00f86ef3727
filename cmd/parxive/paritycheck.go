package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rTiGd2/ParXive/errs"
	"github.com/rTiGd2/ParXive/volume"
)

var paritycheckCmd = &cobra.Command{
	Use:   "paritycheck <parity-dir>",
	Short: "summarize volume presence and index integrity under a parity directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runParitycheck(args[0]))
	},
}

type paritySummary struct {
	TotalVolumes int            `json:"total_volumes"`
	GoodVolumes  int            `json:"good_volumes"`
	BadVolumes   []volumeStatus `json:"bad_volumes,omitempty"`
	TotalEntries int            `json:"total_entries"`
}

func runParitycheck(parityDir string) int {
	entries, err := os.ReadDir(parityDir)
	if err != nil {
		return emitResult(nil, errs.New(errs.KindInput, "paritycheck", err).WithPath(parityDir))
	}

	summary := paritySummary{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".parx" {
			continue
		}
		summary.TotalVolumes++
		path := filepath.Join(parityDir, e.Name())
		r, err := volume.Open(path)
		if err != nil {
			summary.BadVolumes = append(summary.BadVolumes, volumeStatus{File: e.Name(), Status: "ERROR", Error: err.Error()})
			continue
		}
		summary.GoodVolumes++
		summary.TotalEntries += len(r.Entries())
		r.Close()
	}

	if len(summary.BadVolumes) > 0 {
		return emitResult(summary, errs.New(errs.KindVolume, "paritycheck", nil).WithVariant("TrailerCorrupt"))
	}
	return emitResult(summary, nil)
}

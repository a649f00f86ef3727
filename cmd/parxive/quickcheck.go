package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rTiGd2/ParXive/errs"
	"github.com/rTiGd2/ParXive/volume"
)

var quickcheckCmd = &cobra.Command{
	Use:   "quickcheck <parity-dir>",
	Short: "report OK/ERROR per volume index without touching the dataset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runQuickcheck(args[0]))
	},
}

type volumeStatus struct {
	File   string `json:"file"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func runQuickcheck(parityDir string) int {
	entries, err := os.ReadDir(parityDir)
	if err != nil {
		return emitResult(nil, errs.New(errs.KindInput, "quickcheck", err).WithPath(parityDir))
	}

	var results []volumeStatus
	anyError := false
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".parx" {
			continue
		}
		path := filepath.Join(parityDir, e.Name())
		r, err := volume.Open(path)
		if err != nil {
			results = append(results, volumeStatus{File: e.Name(), Status: "ERROR", Error: err.Error()})
			anyError = true
			continue
		}
		r.Close()
		results = append(results, volumeStatus{File: e.Name(), Status: "OK"})
	}

	if anyError {
		return emitResult(results, errs.New(errs.KindVolume, "quickcheck", nil).WithVariant("TrailerCorrupt"))
	}
	return emitResult(results, nil)
}

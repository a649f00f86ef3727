package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rTiGd2/ParXive/chunker"
	"github.com/rTiGd2/ParXive/codec"
	"github.com/rTiGd2/ParXive/config"
	"github.com/rTiGd2/ParXive/crypto"
	"github.com/rTiGd2/ParXive/errs"
	"github.com/rTiGd2/ParXive/manifest"
	"github.com/rTiGd2/ParXive/stripe"
	"github.com/rTiGd2/ParXive/volume"
)

var createCmd = &cobra.Command{
	Use:   "create <dataset-root>",
	Short: "protect a directory tree with erasure-coded parity",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runCreate(args[0]))
	},
}

func init() {
	createCmd.Flags().StringVar(&flagOutput, "output", "", "directory to write manifest.json into (default: dataset root)")
	createCmd.Flags().StringVar(&flagParity, "parity", "", "directory to write volume files into (default: --output)")
	createCmd.Flags().IntVar(&flagStripeK, "stripe-k", 8, "number of data chunks per stripe")
	createCmd.Flags().IntVar(&flagParityPct, "parity-pct", 25, "percentage of K used to compute M parity chunks")
	createCmd.Flags().Int64Var(&flagChunkSize, "chunk-size", 4<<20, "chunk size in bytes")
	createCmd.Flags().StringSliceVar(&flagVolumeSizes, "volume-sizes", []string{"1GiB"}, "target volume sizes, e.g. 1GiB,512MiB")
	createCmd.Flags().BoolVar(&flagInterleaveFiles, "interleave-files", false, "round-robin chunks across files before striping")
}

func parseVolumeSizes(raw []string) ([]int64, error) {
	sizes := make([]int64, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		n, err := humanize.ParseBytes(s)
		if err != nil {
			return nil, errs.New(errs.KindConfig, "parseVolumeSizes", err).WithVariant("InvalidVolumeSize")
		}
		sizes = append(sizes, int64(n))
	}
	return sizes, nil
}

func runCreate(root string) int {
	volSizes, err := parseVolumeSizes(flagVolumeSizes)
	if err != nil {
		return emitResult(nil, err)
	}

	cfg := config.DefaultConfig()
	cfg.StripeK = flagStripeK
	cfg.ParityPct = flagParityPct
	cfg.ChunkSize = int(flagChunkSize)
	cfg.VolumeSizes = volSizes
	cfg.InterleaveFiles = flagInterleaveFiles
	if flagThreads > 0 {
		cfg.Threads = flagThreads
	}
	if err := cfg.Validate(); err != nil {
		return emitResult(nil, err)
	}

	outDir := flagOutput
	if outDir == "" {
		outDir = root
	}
	parityDir := flagParity
	if parityDir == "" {
		parityDir = outDir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return emitResult(nil, errs.New(errs.KindIO, "runCreate", err).WithVariant("CannotCreateOutput").WithPath(outDir))
	}
	if err := os.MkdirAll(parityDir, 0755); err != nil {
		return emitResult(nil, errs.New(errs.KindIO, "runCreate", err).WithVariant("CannotCreateOutput").WithPath(parityDir))
	}

	ft, err := chunker.Walk(root, chunker.WalkOptions{ChunkSize: cfg.ChunkSize})
	if err != nil {
		return emitResult(nil, err)
	}

	out := make(chan chunker.ChunkRef, 64)
	errOut := make(chan error, 1)
	go chunker.Chunks(ft, out, errOut)

	hashes := make([]crypto.Hash, ft.NumChunks)
	paddedByChunk := make([][]byte, ft.NumChunks)
	for ref := range out {
		hashes[ref.GlobalIndex] = crypto.HashBytes(ref.Padded)
		paddedByChunk[ref.GlobalIndex] = ref.Padded
	}
	if err := <-errOut; err != nil {
		return emitResult(nil, err)
	}

	m := cfg.ParityM()
	numVolumes := len(volSizes)
	fileChunkCounts := make([]uint32, len(ft.Files))
	for i, f := range ft.Files {
		fileChunkCounts[i] = f.ChunkCount
	}
	layout, err := stripe.Plan(ft.NumChunks, cfg.StripeK, m, numVolumes, cfg.InterleaveFiles, fileChunkCounts)
	if err != nil {
		return emitResult(nil, err)
	}

	sc, err := codec.New(cfg.StripeK, m)
	if err != nil {
		return emitResult(nil, err)
	}

	writers := make([]*volume.Writer, numVolumes)
	for i := range writers {
		target := volSizes[i%len(volSizes)]
		w, err := volume.Create(parityDir, volume.VolumeID(i), target)
		if err != nil {
			return emitResult(nil, err)
		}
		writers[i] = w
	}

	for _, s := range layout.Stripes() {
		// Always allocate the full K+M width: a short last stripe (spec.md
		// §3/§4.D) has fewer real data chunks than K, and the missing
		// positions are treated as all-zero for RS math, not omitted.
		shards := make([][]byte, cfg.StripeK+m)
		for i, g := range s.DataChunks {
			shards[i] = paddedByChunk[g]
		}
		for i := len(s.DataChunks); i < cfg.StripeK; i++ {
			shards[i] = make([]byte, cfg.ChunkSize)
		}
		for j := 0; j < m; j++ {
			shards[cfg.StripeK+j] = make([]byte, cfg.ChunkSize)
		}
		if err := sc.Encode(shards); err != nil {
			return emitResult(nil, err)
		}
		for j := 0; j < m; j++ {
			vol := s.ParityVolumes[j]
			if err := writers[vol].WriteParityChunk(s.ID, uint16(j), shards[cfg.StripeK+j]); err != nil {
				return emitResult(nil, err)
			}
		}
	}

	for _, w := range writers {
		if err := w.Close(); err != nil {
			return emitResult(nil, err)
		}
	}

	mcfg := manifest.Config{
		ChunkSize:  cfg.ChunkSize,
		StripeK:    cfg.StripeK,
		ParityM:    m,
		NumVolumes: numVolumes,
		Interleave: cfg.InterleaveFiles,
	}
	mf, err := manifest.Build(ft, mcfg, hashes, layout)
	if err != nil {
		return emitResult(nil, err)
	}
	manifestPath := filepath.Join(outDir, "manifest.json")
	if err := manifest.Save(mf, manifestPath); err != nil {
		return emitResult(nil, err)
	}

	result := map[string]interface{}{
		"manifest":    manifestPath,
		"num_chunks":  ft.NumChunks,
		"num_volumes": numVolumes,
		"stripe_k":    cfg.StripeK,
		"parity_m":    m,
	}
	if !flagJSON {
		os.Stdout.WriteString("wrote " + manifestPath + " (" + strconv.FormatUint(uint64(ft.NumChunks), 10) + " chunks)\n")
	}
	return emitResult(result, nil)
}

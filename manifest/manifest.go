// Package manifest serializes everything needed for offline verify/repair
// of a parity set without reading any volume: the file table, per-chunk
// hashes, Merkle root, and stripe layout.
package manifest

import (
	"github.com/rTiGd2/ParXive/build"
	"github.com/rTiGd2/ParXive/chunker"
	"github.com/rTiGd2/ParXive/crypto"
	"github.com/rTiGd2/ParXive/errs"
	"github.com/rTiGd2/ParXive/persist"
	"github.com/rTiGd2/ParXive/stripe"
)

const schemaVersion = "1"

var metadataHeader = persist.Metadata{Header: "ParXive Manifest", Version: schemaVersion}

// Config is the subset of dataset-protection parameters recorded in the
// manifest so repair can reconstruct stripe membership without
// re-deriving it from a config file.
type Config struct {
	ChunkSize   int
	StripeK     int
	ParityM     int
	NumVolumes  int
	Interleave  bool
}

// FileEntry mirrors chunker.FileEntry for the manifest's JSON shape.
type FileEntry struct {
	RelativePath string `json:"relative_path"`
	LengthBytes  int64  `json:"length_bytes"`
	FirstChunkG  uint32 `json:"first_chunk_g"`
	ChunkCount   uint32 `json:"chunk_count"`
}

// Manifest is the full persisted description of one protected dataset.
type Manifest struct {
	SchemaVersion   string      `json:"schema_version"`
	ParXiveVersion  string      `json:"parxive_version"`
	Config          Config      `json:"config"`
	NumChunks       uint32      `json:"num_chunks"`
	Files           []FileEntry `json:"files"`
	PerChunkBLAKE3  [][32]byte  `json:"per_chunk_blake3"`
	MerkleRoot      [32]byte    `json:"merkle_root"`
	Permutation     []uint32    `json:"permutation,omitempty"`
	InvPermutation  []uint32    `json:"inverse_permutation,omitempty"`
}

// Build assembles a Manifest from a walked file table, the per-chunk
// padded-chunk hashes in global-index order, and the stripe layout
// produced for the same dataset.
func Build(ft *chunker.FileTable, cfg Config, chunkHashes []crypto.Hash, layout *stripe.Layout) (*Manifest, error) {
	if uint32(len(chunkHashes)) != ft.NumChunks {
		return nil, errs.New(errs.KindInternal, "manifest.Build", nil).WithVariant("ChunkHashCountMismatch")
	}

	files := make([]FileEntry, len(ft.Files))
	for i, f := range ft.Files {
		files[i] = FileEntry{
			RelativePath: f.RelativePath,
			LengthBytes:  f.LengthBytes,
			FirstChunkG:  f.FirstChunkG,
			ChunkCount:   f.ChunkCount,
		}
	}

	perChunk := make([][32]byte, len(chunkHashes))
	for i, h := range chunkHashes {
		perChunk[i] = [32]byte(h)
	}

	root := crypto.MerkleRoot(chunkHashes)

	m := &Manifest{
		SchemaVersion:  schemaVersion,
		ParXiveVersion: build.Version,
		Config:         cfg,
		NumChunks:      ft.NumChunks,
		Files:          files,
		PerChunkBLAKE3: perChunk,
		MerkleRoot:     [32]byte(root),
	}
	if layout != nil && layout.Interleaved {
		m.Permutation = layout.Permutation
		m.InvPermutation = layout.InversePermutation
	}
	return m, nil
}

// Save writes the manifest to path atomically.
func Save(m *Manifest, path string) error {
	return persist.SaveJSON(metadataHeader, m, path)
}

// Load reads and validates a manifest from path.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if err := persist.LoadJSON(metadataHeader, &m, path); err != nil {
		return nil, err
	}
	if m.SchemaVersion != schemaVersion {
		return nil, errs.New(errs.KindData, "manifest.Load", nil).WithVariant("UnsupportedSchemaVersion").WithPath(path)
	}
	return &m, nil
}

// ChunkHash returns the stored hash for global chunk index g.
func (m *Manifest) ChunkHash(g uint32) (crypto.Hash, bool) {
	if g >= uint32(len(m.PerChunkBLAKE3)) {
		return crypto.Hash{}, false
	}
	return crypto.Hash(m.PerChunkBLAKE3[g]), true
}

// Layout reconstructs a *stripe.Layout from the manifest's recorded
// permutation (or lack of one), so verify/audit/repair never need the
// original interleave computation rerun.
func (m *Manifest) Layout() *stripe.Layout {
	layout := &stripe.Layout{
		K:           m.Config.StripeK,
		M:           m.Config.ParityM,
		NumChunks:   m.NumChunks,
		NumVolumes:  m.Config.NumVolumes,
		Interleaved: m.Config.Interleave,
	}
	if m.Config.Interleave {
		layout.Permutation = m.Permutation
		layout.InversePermutation = m.InvPermutation
	}
	return layout
}

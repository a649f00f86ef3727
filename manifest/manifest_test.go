package manifest

import (
	"path/filepath"
	"testing"

	"github.com/rTiGd2/ParXive/chunker"
	"github.com/rTiGd2/ParXive/crypto"
	"github.com/rTiGd2/ParXive/stripe"
)

func sampleFileTable() *chunker.FileTable {
	return &chunker.FileTable{
		Root:      "/dataset",
		ChunkSize: 8,
		NumChunks: 3,
		Files: []chunker.FileEntry{
			{RelativePath: "a.txt", LengthBytes: 20, FirstChunkG: 0, ChunkCount: 3},
		},
	}
}

func TestBuildAndSaveLoadRoundTrip(t *testing.T) {
	ft := sampleFileTable()
	hashes := []crypto.Hash{
		crypto.HashBytes([]byte("chunk0")),
		crypto.HashBytes([]byte("chunk1")),
		crypto.HashBytes([]byte("chunk2")),
	}
	layout, err := stripe.Plan(3, 2, 1, 2, false, nil)
	if err != nil {
		t.Fatal(err)
	}

	m, err := Build(ft, Config{ChunkSize: 8, StripeK: 2, ParityM: 1, NumVolumes: 2}, hashes, layout)
	if err != nil {
		t.Fatal(err)
	}
	if m.MerkleRoot == ([32]byte{}) {
		t.Fatal("expected a non-zero merkle root")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	if err := Save(m, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.NumChunks != m.NumChunks {
		t.Fatalf("expected %d chunks, got %d", m.NumChunks, loaded.NumChunks)
	}
	if loaded.MerkleRoot != m.MerkleRoot {
		t.Fatal("merkle root mismatch after round trip")
	}
	if len(loaded.Files) != 1 || loaded.Files[0].RelativePath != "a.txt" {
		t.Fatalf("unexpected files after round trip: %+v", loaded.Files)
	}
}

func TestBuildRejectsHashCountMismatch(t *testing.T) {
	ft := sampleFileTable()
	_, err := Build(ft, Config{}, []crypto.Hash{crypto.HashBytes([]byte("only one"))}, nil)
	if err == nil {
		t.Fatal("expected an error when chunk hash count does not match file table")
	}
}

func TestChunkHashLookup(t *testing.T) {
	ft := sampleFileTable()
	hashes := []crypto.Hash{
		crypto.HashBytes([]byte("chunk0")),
		crypto.HashBytes([]byte("chunk1")),
		crypto.HashBytes([]byte("chunk2")),
	}
	m, err := Build(ft, Config{}, hashes, nil)
	if err != nil {
		t.Fatal(err)
	}
	h, ok := m.ChunkHash(1)
	if !ok || h != hashes[1] {
		t.Fatal("ChunkHash(1) did not return the expected hash")
	}
	if _, ok := m.ChunkHash(99); ok {
		t.Fatal("ChunkHash should return false for an out-of-range index")
	}
}

func TestLayoutReconstructionWithInterleave(t *testing.T) {
	ft := sampleFileTable()
	hashes := []crypto.Hash{
		crypto.HashBytes([]byte("chunk0")),
		crypto.HashBytes([]byte("chunk1")),
		crypto.HashBytes([]byte("chunk2")),
	}
	layout, err := stripe.Plan(3, 2, 1, 2, true, []uint32{3})
	if err != nil {
		t.Fatal(err)
	}
	cfg := Config{ChunkSize: 8, StripeK: 2, ParityM: 1, NumVolumes: 2, Interleave: true}
	m, err := Build(ft, cfg, hashes, layout)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Permutation) != 3 {
		t.Fatalf("expected permutation recorded in manifest, got %v", m.Permutation)
	}

	reconstructed := m.Layout()
	if !reconstructed.Interleaved {
		t.Fatal("expected reconstructed layout to be interleaved")
	}
	for i, g := range layout.Permutation {
		if reconstructed.Permutation[i] != g {
			t.Fatalf("permutation[%d] = %d, want %d", i, reconstructed.Permutation[i], g)
		}
	}
}

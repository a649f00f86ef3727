package verifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rTiGd2/ParXive/chunker"
	"github.com/rTiGd2/ParXive/crypto"
	"github.com/rTiGd2/ParXive/manifest"
)

func buildTestManifest(t *testing.T, dir string, content []byte, chunkSize int) *manifest.Manifest {
	t.Helper()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	ft, err := chunker.Walk(dir, chunker.WalkOptions{ChunkSize: chunkSize})
	if err != nil {
		t.Fatal(err)
	}

	out := make(chan chunker.ChunkRef, 100)
	errOut := make(chan error, 1)
	go chunker.Chunks(ft, out, errOut)

	hashes := make([]crypto.Hash, ft.NumChunks)
	for ref := range out {
		hashes[ref.GlobalIndex] = crypto.HashBytes(ref.Padded)
	}
	if err := <-errOut; err != nil {
		t.Fatal(err)
	}

	m, err := manifest.Build(ft, manifest.Config{ChunkSize: chunkSize}, hashes, nil)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestVerifyCleanDataset(t *testing.T) {
	dir := t.TempDir()
	m := buildTestManifest(t, dir, []byte("0123456789abcdef"), 8)

	report, err := Verify(context.Background(), m, dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK {
		t.Fatal("expected clean dataset to verify OK")
	}
	for _, s := range report.Present {
		if s != StatusOK {
			t.Fatalf("expected all chunks OK, got %v", s)
		}
	}
	if !report.MerkleOK {
		t.Fatal("expected merkle root to match")
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	m := buildTestManifest(t, dir, []byte("0123456789abcdef"), 8)

	path := filepath.Join(dir, "data.bin")
	data, _ := os.ReadFile(path)
	data[0] = 'X'
	os.WriteFile(path, data, 0644)

	report, err := Verify(context.Background(), m, dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if report.OK {
		t.Fatal("expected corrupted dataset to fail verification")
	}
	if report.Present[0] != StatusCorrupt {
		t.Fatalf("expected chunk 0 to be CORRUPT, got %v", report.Present[0])
	}
	if report.MerkleOK {
		t.Fatal("expected merkle root mismatch after corruption")
	}
}

func TestVerifyDetectsMissingFile(t *testing.T) {
	dir := t.TempDir()
	m := buildTestManifest(t, dir, []byte("0123456789abcdef"), 8)
	os.Remove(filepath.Join(dir, "data.bin"))

	report, err := Verify(context.Background(), m, dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.OK {
		t.Fatal("expected missing file to fail verification")
	}
	for _, s := range report.Present {
		if s != StatusMissing {
			t.Fatalf("expected all chunks MISSING, got %v", s)
		}
	}
}

func TestVerifyDetectsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	m := buildTestManifest(t, dir, []byte("0123456789abcdef"), 8)
	os.WriteFile(filepath.Join(dir, "data.bin"), []byte("01234567"), 0644)

	report, err := Verify(context.Background(), m, dir, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.Present[0] != StatusOK {
		t.Fatalf("expected first chunk still OK, got %v", report.Present[0])
	}
	if report.Present[1] != StatusMissing {
		t.Fatalf("expected second chunk MISSING after truncation, got %v", report.Present[1])
	}
}

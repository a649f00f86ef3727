// Package verifier re-hashes a dataset against its manifest and reports
// per-chunk and per-file status without touching any parity volume.
package verifier

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rTiGd2/ParXive/crypto"
	"github.com/rTiGd2/ParXive/errs"
	"github.com/rTiGd2/ParXive/manifest"
)

// ChunkStatus is the verification outcome for one global chunk index.
type ChunkStatus int

const (
	StatusOK ChunkStatus = iota
	StatusCorrupt
	StatusMissing
)

func (s ChunkStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusCorrupt:
		return "CORRUPT"
	case StatusMissing:
		return "MISSING"
	default:
		return "UNKNOWN"
	}
}

// FileReport is the verification outcome for one file entry.
type FileReport struct {
	RelativePath string
	OK           bool
}

// Report is the full result of a Verify call.
type Report struct {
	Present         []ChunkStatus // indexed by global chunk index
	Files           []FileReport
	MerkleVerified  bool
	MerkleOK        bool
	OK              bool
}

// Verify re-hashes every chunk of every file under root and compares
// against m.PerChunkBLAKE3, producing a chunk-presence map. If
// checkMerkle is true, it also recomputes the Merkle root over the
// re-hashed chunks (substituting the zero hash for missing chunks) and
// compares it against m.MerkleRoot as a tamper-evident sanity check.
func Verify(ctx context.Context, m *manifest.Manifest, root string, checkMerkle bool) (*Report, error) {
	present := make([]ChunkStatus, m.NumChunks)
	for i := range present {
		present[i] = StatusMissing
	}

	files := make([]FileReport, len(m.Files))
	overallOK := true

	for fi, f := range m.Files {
		select {
		case <-ctx.Done():
			return nil, errs.New(errs.KindInternal, "Verify", ctx.Err()).WithVariant("Cancelled")
		default:
		}

		fileOK, err := verifyFile(m, f, root, present)
		if err != nil {
			return nil, err
		}
		files[fi] = FileReport{RelativePath: f.RelativePath, OK: fileOK}
		if !fileOK {
			overallOK = false
		}
	}

	report := &Report{Present: present, Files: files, OK: overallOK}

	if checkMerkle {
		leaves := make([]crypto.Hash, len(present))
		for g, status := range present {
			if status == StatusOK {
				h, _ := m.ChunkHash(uint32(g))
				leaves[g] = h
			}
			// CORRUPT/MISSING chunks contribute the zero hash, so a
			// tampered or absent chunk still changes the recomputed root
			// relative to what was stored.
		}
		recomputed := crypto.MerkleRoot(leaves)
		report.MerkleVerified = true
		report.MerkleOK = recomputed == crypto.Hash(m.MerkleRoot)
		if !report.MerkleOK {
			report.OK = false
		}
	}

	return report, nil
}

func verifyFile(m *manifest.Manifest, f manifest.FileEntry, root string, present []ChunkStatus) (bool, error) {
	path := filepath.Join(root, filepath.FromSlash(f.RelativePath))
	file, err := os.Open(path)
	if err != nil {
		// Missing file: every chunk it owns is MISSING (already the
		// default), and that is not an IoError worth failing the whole
		// run over — it's exactly what verify is supposed to detect.
		return false, nil
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return false, errs.New(errs.KindIO, "verifyFile", err).WithPath(f.RelativePath)
	}
	if info.Size() < f.LengthBytes {
		// Shorter than recorded: chunks past the truncation point are
		// MISSING; chunks before it are still checked below.
	}

	chunkSize := m.Config.ChunkSize
	buf := make([]byte, chunkSize)
	ok := true
	for i := uint32(0); i < f.ChunkCount; i++ {
		g := f.FirstChunkG + i
		offset := int64(i) * int64(chunkSize)
		if offset >= info.Size() {
			present[g] = StatusMissing
			ok = false
			continue
		}
		n, rerr := file.ReadAt(buf, offset)
		if rerr != nil && rerr != io.EOF {
			return false, errs.New(errs.KindIO, "verifyFile", rerr).WithPath(f.RelativePath)
		}
		padded := make([]byte, chunkSize)
		copy(padded, buf[:n])

		want, _ := m.ChunkHash(g)
		got := crypto.HashBytes(padded)
		if got == want {
			present[g] = StatusOK
		} else {
			present[g] = StatusCorrupt
			ok = false
		}
	}
	return ok, nil
}

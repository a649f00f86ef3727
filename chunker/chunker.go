// Package chunker walks a dataset root and streams it as fixed-size,
// globally-indexed chunks. It is the first stage of both encode (chunker ->
// crypto -> stripe -> codec -> volume) and verify (chunker -> crypto ->
// compare against manifest).
package chunker

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rTiGd2/ParXive/errs"
)

// SymlinkMode controls how the walk treats symlinks encountered under root.
type SymlinkMode int

const (
	// SymlinkReject fails the walk with an InputError as soon as a symlink
	// is encountered. This is the default: silently following symlinks is
	// how parity sets end up protecting the wrong bytes.
	SymlinkReject SymlinkMode = iota

	// SymlinkFollowContained follows a symlink only if its resolved target
	// is still inside root; otherwise it is rejected the same as
	// SymlinkReject.
	SymlinkFollowContained
)

// WalkOptions configures Walk.
type WalkOptions struct {
	ChunkSize int
	Symlinks  SymlinkMode
}

// FileEntry describes one file in the dataset, as recorded in the manifest.
type FileEntry struct {
	RelativePath string
	LengthBytes  int64
	FirstChunkG  uint32
	ChunkCount   uint32
}

// FileTable is the sorted, deterministic list of files under a dataset
// root, plus the chunk-count bookkeeping needed to map a global chunk index
// back to its owning file.
type FileTable struct {
	Root      string
	ChunkSize int
	Files     []FileEntry
	NumChunks uint32
}

// FileByChunk returns the index into Files that owns global chunk index g,
// or -1 if g is out of range.
func (ft *FileTable) FileByChunk(g uint32) int {
	// Files are contiguous and sorted by FirstChunkG, so a linear scan is
	// fine at manifest-sized file counts; a dataset with enough files to
	// need binary search here has bigger problems than this lookup.
	for i, f := range ft.Files {
		if g >= f.FirstChunkG && g < f.FirstChunkG+f.ChunkCount {
			return i
		}
	}
	return -1
}

// normalizeRelPath converts an absolute path under root into a
// forward-slashed, root-relative path, rejecting traversal outside root.
func normalizeRelPath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") || rel == ".." || strings.HasPrefix(rel, "/") {
		return "", errs.New(errs.KindInput, "normalizeRelPath", nil).WithVariant("PathTraversal").WithPath(path)
	}
	return rel, nil
}

// checkSymlinkContainment resolves path (known to be a symlink) and
// verifies the resolved target is still inside root.
func checkSymlinkContainment(root, path string) error {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return errs.New(errs.KindInput, "checkSymlinkContainment", err).WithPath(path)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return errs.New(errs.KindInput, "checkSymlinkContainment", err).WithPath(root)
	}
	rel, err := filepath.Rel(absRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return errs.New(errs.KindInput, "checkSymlinkContainment", nil).
			WithVariant("SymlinkEscape").WithPath(path)
	}
	return nil
}

// Walk builds the file table for root in one deterministic pass: files are
// collected then sorted by normalized relative path, so the manifest's
// file_table and the chunk coordinate stream produced by Chunks are always
// derived from the same ordering.
func Walk(root string, opts WalkOptions) (*FileTable, error) {
	if opts.ChunkSize <= 0 {
		return nil, errs.New(errs.KindConfig, "Walk", nil).WithVariant("InvalidChunkSize")
	}

	type rawEntry struct {
		relPath string
		length  int64
	}
	var raw []rawEntry

	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errs.New(errs.KindInput, "Walk", err).WithPath(path)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			switch opts.Symlinks {
			case SymlinkFollowContained:
				if cerr := checkSymlinkContainment(root, path); cerr != nil {
					return cerr
				}
				target, statErr := os.Stat(path)
				if statErr != nil {
					return errs.New(errs.KindInput, "Walk", statErr).WithPath(path)
				}
				if target.IsDir() {
					return nil
				}
			default:
				return errs.New(errs.KindInput, "Walk", nil).WithVariant("SymlinkRejected").WithPath(path)
			}
		}
		if info.IsDir() {
			return nil
		}
		rel, nerr := normalizeRelPath(root, path)
		if nerr != nil {
			return nerr
		}
		raw = append(raw, rawEntry{relPath: rel, length: info.Size()})
		return nil
	})
	if walkErr != nil {
		if _, ok := walkErr.(*errs.Error); ok {
			return nil, walkErr
		}
		return nil, errs.New(errs.KindInput, "Walk", walkErr).WithPath(root)
	}

	sort.Slice(raw, func(i, j int) bool { return raw[i].relPath < raw[j].relPath })

	ft := &FileTable{Root: root, ChunkSize: opts.ChunkSize}
	var g uint32
	for _, r := range raw {
		count := uint32(0)
		if r.length > 0 {
			count = uint32((r.length + int64(opts.ChunkSize) - 1) / int64(opts.ChunkSize))
		} else {
			// A zero-length file still occupies one chunk slot (all
			// padding) so it participates in RS protection like any other
			// file entry.
			count = 1
		}
		ft.Files = append(ft.Files, FileEntry{
			RelativePath: r.relPath,
			LengthBytes:  r.length,
			FirstChunkG:  g,
			ChunkCount:   count,
		})
		g += count
	}
	ft.NumChunks = g
	return ft, nil
}

// ChunkRef is one entry of the lazy chunk-coordinate sequence produced by
// Chunks: the chunk's raw (unpadded) bytes, which are shorter than ChunkSize
// only for a file's last chunk, plus the same bytes zero-padded out to
// ChunkSize, ready for hashing or RS encoding.
type ChunkRef struct {
	GlobalIndex uint32
	FileIndex   int
	Offset      int64
	Raw         []byte
	Padded      []byte
}

// Chunks streams every chunk of every file in root's file table, in file
// table order, into out. It closes out when done (successfully or not) and
// sends at most one error, as the final value read from errOut, before
// closing that channel too.
func Chunks(ft *FileTable, out chan<- ChunkRef, errOut chan<- error) {
	defer close(out)
	defer close(errOut)

	for fi, f := range ft.Files {
		if err := streamFile(ft.Root, ft.ChunkSize, fi, f, out); err != nil {
			errOut <- err
			return
		}
	}
}

func streamFile(root string, chunkSize int, fileIndex int, f FileEntry, out chan<- ChunkRef) error {
	path := filepath.Join(root, filepath.FromSlash(f.RelativePath))
	file, err := os.Open(path)
	if err != nil {
		return errs.New(errs.KindInput, "streamFile", err).WithPath(f.RelativePath)
	}
	defer file.Close()

	buf := make([]byte, chunkSize)
	g := f.FirstChunkG
	var offset int64
	for {
		n, rerr := io.ReadFull(file, buf)
		if n == 0 && rerr == io.EOF {
			break
		}
		if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
			return errs.New(errs.KindInput, "streamFile", rerr).WithPath(f.RelativePath)
		}
		raw := make([]byte, n)
		copy(raw, buf[:n])
		padded := make([]byte, chunkSize)
		copy(padded, buf[:n])

		out <- ChunkRef{
			GlobalIndex: g,
			FileIndex:   fileIndex,
			Offset:      offset,
			Raw:         raw,
			Padded:      padded,
		}
		g++
		offset += int64(n)
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF || n < chunkSize {
			break
		}
	}
	// A zero-length file produced no iterations above; emit its single
	// all-zero chunk slot so FirstChunkG..FirstChunkG+ChunkCount stays
	// consistent with what Walk computed.
	if f.LengthBytes == 0 {
		out <- ChunkRef{
			GlobalIndex: f.FirstChunkG,
			FileIndex:   fileIndex,
			Offset:      0,
			Raw:         nil,
			Padded:      make([]byte, chunkSize),
		}
	}
	return nil
}

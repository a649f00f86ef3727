// Package persist provides atomic file persistence primitives: a SafeFile
// that writes to a temporary sibling and renames over the target only on
// Commit, JSON save/load built on top of it, and a small file-backed
// logger. Every on-disk write in ParXive (manifest, volume containers,
// repaired files) goes through one of these.
package persist

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/rTiGd2/ParXive/errs"
)

const tempSuffix = "_temp"

// RandomSuffix returns a short random hex string, used to make concurrent
// SafeFile temp names collision-free.
func RandomSuffix() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the OS entropy source is broken; there
		// is no sane fallback, so surface a fixed value rather than panic
		// mid-write.
		return "000000000000"
	}
	return hex.EncodeToString(b)
}

// SafeFile is an *os.File opened against a temporary path that is renamed
// to its final name only when Commit is called. An uncommitted SafeFile
// leaves the final path untouched; a process crash or cancellation between
// Write and Commit is invisible to readers of finalName.
type SafeFile struct {
	*os.File
	finalName string
	tempName  string
}

// NewSafeFile creates a temporary file alongside finalName (same directory,
// so the later rename is same-filesystem and atomic) and returns a SafeFile
// wrapping it.
func NewSafeFile(finalName string) (*SafeFile, error) {
	dir := filepath.Dir(finalName)
	base := filepath.Base(finalName)
	tempName := filepath.Join(dir, base+"."+RandomSuffix()+tempSuffix)

	f, err := os.OpenFile(tempName, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, errs.New(errs.KindIO, "NewSafeFile", err).WithPath(tempName)
	}
	return &SafeFile{File: f, finalName: finalName, tempName: tempName}, nil
}

// Commit fsyncs the temp file's contents and metadata, then renames it over
// finalName and fsyncs the containing directory so the rename itself is
// durable.
func (sf *SafeFile) Commit() error {
	if err := sf.File.Sync(); err != nil {
		return errs.New(errs.KindIO, "Commit", err).WithPath(sf.tempName)
	}
	if err := sf.File.Close(); err != nil {
		return errs.New(errs.KindIO, "Commit", err).WithPath(sf.tempName)
	}
	if err := os.Rename(sf.tempName, sf.finalName); err != nil {
		return errs.New(errs.KindIO, "Commit", err).WithPath(sf.finalName)
	}
	dir, err := os.Open(filepath.Dir(sf.finalName))
	if err != nil {
		return errs.New(errs.KindIO, "Commit", err).WithPath(sf.finalName)
	}
	defer dir.Close()
	if err := dir.Sync(); err != nil {
		return errs.New(errs.KindIO, "Commit", err).WithPath(sf.finalName)
	}
	return nil
}

// Close removes the temporary file without committing it; harmless to call
// after a successful Commit (the temp file is already gone, so the remove
// silently no-ops the second time via the already-closed descriptor).
func (sf *SafeFile) Close() error {
	sf.File.Close()
	os.Remove(sf.tempName)
	return nil
}

// Package repair drives reconstruction of corrupt or missing data chunks:
// for each repairable stripe, assemble K available shards, invoke RS
// decode, and atomically write recovered bytes back into their owning
// files.
package repair

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/rTiGd2/ParXive/auditor"
	"github.com/rTiGd2/ParXive/codec"
	"github.com/rTiGd2/ParXive/crypto"
	"github.com/rTiGd2/ParXive/errs"
	"github.com/rTiGd2/ParXive/lock"
	"github.com/rTiGd2/ParXive/manifest"
	"github.com/rTiGd2/ParXive/persist"
	"github.com/rTiGd2/ParXive/stripe"
	"github.com/rTiGd2/ParXive/volume"
)

const globalLockName = ".parxive.lock"
const maxFileLockTime = 5 * time.Minute

// VolumeSource resolves a volume ID to an open reader. Repair holds at most
// one reader per volume for the duration of a single Run.
type VolumeSource func(id int) (*volume.Reader, error)

// Options configures one repair run.
type Options struct {
	SkipBackup bool // suppress writing <file>.parx.bak before overwriting
}

// ChunkResult is the outcome for one recovered global chunk index.
type ChunkResult struct {
	GlobalIndex uint32
	OK          bool
	Err         error
}

// Report summarizes a repair run.
type Report struct {
	RepairedChunks    int
	FailedChunks      []ChunkResult
	UnrepairedStripes []uint32
}

// fileLocks serializes writes to the same dataset-relative path across
// goroutines within one process; adapted from lock.Lock but trimmed to a
// single read/write distinction ParXive doesn't need (a data file is
// either being repaired or it isn't).
type fileLocks struct {
	l *lock.Lock
}

func newFileLocks() *fileLocks {
	return &fileLocks{l: lock.New(maxFileLockTime)}
}

func (fl *fileLocks) withLock(path string, fn func() error) error {
	c := fl.l.Lock(path)
	defer fl.l.Unlock(path, c)
	return fn()
}

// Run repairs every repairable stripe in audit that has at least one
// missing or corrupt data chunk, reading parity from volSrc and writing
// recovered bytes back under root. It acquires a cross-process advisory
// lock on parityDir for the duration of the run.
func Run(m *manifest.Manifest, layout *stripe.Layout, audit *auditor.Report, root, parityDir string, volSrc VolumeSource, opts Options) (*Report, error) {
	fl := flock.New(filepath.Join(parityDir, globalLockName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errs.New(errs.KindLock, "repair.Run", err).WithPath(parityDir)
	}
	if !locked {
		return nil, errs.New(errs.KindLock, "repair.Run", nil).WithVariant("HeldElsewhere").WithPath(parityDir)
	}
	defer fl.Unlock()

	c, err := codec.New(layout.K, layout.M)
	if err != nil {
		return nil, err
	}

	stripes := layout.Stripes()
	stripeByID := make(map[uint32]stripe.Stripe, len(stripes))
	for _, s := range stripes {
		stripeByID[s.ID] = s
	}

	locks := newFileLocks()
	report := &Report{}

	for _, health := range audit.Stripes {
		if health.DataBad == 0 {
			continue
		}
		if !health.Repairable {
			report.UnrepairedStripes = append(report.UnrepairedStripes, health.StripeID)
			continue
		}
		s, ok := stripeByID[health.StripeID]
		if !ok {
			continue
		}
		recovered, failed, rerr := repairStripe(m, s, c, root, volSrc, locks, opts)
		if rerr != nil {
			report.UnrepairedStripes = append(report.UnrepairedStripes, s.ID)
			continue
		}
		report.RepairedChunks += recovered
		report.FailedChunks = append(report.FailedChunks, failed...)
	}

	return report, nil
}

// repairStripe decodes the missing/corrupt data chunks of s and writes
// them back to their owning files. It returns the count of chunks
// successfully repaired and the per-chunk results of any write-backs that
// failed despite a successful decode.
func repairStripe(m *manifest.Manifest, s stripe.Stripe, c *codec.StripeCodec, root string, volSrc VolumeSource, locks *fileLocks, opts Options) (int, []ChunkResult, error) {
	chunkSize := m.Config.ChunkSize
	k := c.K()
	// Always allocate the full K+M width: a short last stripe (spec.md
	// §3/§4.D) has fewer real data chunks than K, and the phantom
	// positions between len(s.DataChunks) and K are all-zero for RS math,
	// not missing — only genuinely absent/corrupt real chunks are nil'd
	// out below.
	shards := make([][]byte, k+len(s.ParityVolumes))
	missing := make([]bool, len(s.DataChunks))

	for i, g := range s.DataChunks {
		data, err := readChunkFromFile(m, root, g, chunkSize)
		if err != nil {
			missing[i] = true
			continue
		}
		shards[i] = data
	}
	for i := len(s.DataChunks); i < k; i++ {
		shards[i] = make([]byte, chunkSize)
	}

	for j := range s.ParityVolumes {
		vol, err := volSrc(s.ParityVolumes[j])
		if err != nil {
			continue
		}
		data, err := vol.ReadParityChunk(s.ID, uint16(j))
		if err != nil {
			continue
		}
		shards[k+j] = data
	}

	if err := c.ReconstructData(shards); err != nil {
		return 0, nil, err
	}

	recovered := 0
	var failed []ChunkResult
	for i, g := range s.DataChunks {
		if !missing[i] {
			continue
		}
		if err := writeBack(m, root, g, shards[i], locks, opts); err != nil {
			failed = append(failed, ChunkResult{GlobalIndex: g, OK: false, Err: err})
			continue
		}
		recovered++
	}
	return recovered, failed, nil
}

func readChunkFromFile(m *manifest.Manifest, root string, g uint32, chunkSize int) ([]byte, error) {
	fi := -1
	for i, f := range m.Files {
		if g >= f.FirstChunkG && g < f.FirstChunkG+f.ChunkCount {
			fi = i
			break
		}
	}
	if fi == -1 {
		return nil, errs.New(errs.KindInternal, "readChunkFromFile", nil).WithVariant("NoOwningFile")
	}
	f := m.Files[fi]
	path := filepath.Join(root, filepath.FromSlash(f.RelativePath))
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.KindInput, "readChunkFromFile", err).WithPath(f.RelativePath)
	}
	defer file.Close()

	offset := int64(g-f.FirstChunkG) * int64(chunkSize)
	buf := make([]byte, chunkSize)
	n, rerr := file.ReadAt(buf, offset)
	if rerr != nil && rerr != io.EOF {
		return nil, errs.New(errs.KindIO, "readChunkFromFile", rerr).WithPath(f.RelativePath)
	}
	padded := make([]byte, chunkSize)
	copy(padded, buf[:n])

	want, _ := m.ChunkHash(g)
	got := crypto.HashBytes(padded)
	if got != want {
		return nil, errs.New(errs.KindData, "readChunkFromFile", nil).WithVariant("Corrupt").WithPath(f.RelativePath)
	}
	return padded, nil
}

// writeBack writes the recovered chunk's true (unpadded) tail bytes into
// its owning file at the correct offset, honoring the file's original
// length, under the per-file lock, with a pre-write backup unless
// suppressed.
func writeBack(m *manifest.Manifest, root string, g uint32, paddedChunk []byte, locks *fileLocks, opts Options) error {
	fi := -1
	for i, f := range m.Files {
		if g >= f.FirstChunkG && g < f.FirstChunkG+f.ChunkCount {
			fi = i
			break
		}
	}
	if fi == -1 {
		return errs.New(errs.KindInternal, "writeBack", nil).WithVariant("NoOwningFile")
	}
	f := m.Files[fi]
	path := filepath.Join(root, filepath.FromSlash(f.RelativePath))

	return locks.withLock(f.RelativePath, func() error {
		if !opts.SkipBackup {
			if err := backupFile(path); err != nil {
				return err
			}
		}

		chunkSize := int64(m.Config.ChunkSize)
		offset := int64(g-f.FirstChunkG) * chunkSize
		trueLen := f.LengthBytes - offset
		if trueLen > chunkSize {
			trueLen = chunkSize
		}
		if trueLen < 0 {
			trueLen = 0
		}

		return atomicPatch(path, offset, paddedChunk[:trueLen], f.LengthBytes)
	})
}

func backupFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // nothing to back up yet
		}
		return errs.New(errs.KindIO, "backupFile", err).WithPath(path)
	}
	defer src.Close()

	sf, err := persist.NewSafeFile(path + ".parx.bak")
	if err != nil {
		return err
	}
	defer sf.Close()
	if _, err := io.Copy(sf, src); err != nil {
		return errs.New(errs.KindIO, "backupFile", err).WithPath(path)
	}
	return sf.Commit()
}

// atomicPatch writes patch into path at offset, sized to fileLen, via a
// temp-file-and-rename that mirrors the original file's full contents
// everywhere except the patched window, so a crash mid-write never leaves
// a partially modified original visible.
func atomicPatch(path string, offset int64, patch []byte, fileLen int64) error {
	original, err := os.Open(path)
	originalExists := err == nil
	if err != nil && !os.IsNotExist(err) {
		return errs.New(errs.KindIO, "atomicPatch", err).WithPath(path)
	}
	if originalExists {
		defer original.Close()
	}

	sf, err := persist.NewSafeFile(path)
	if err != nil {
		return err
	}
	defer sf.Close()

	if originalExists {
		copied, err := io.CopyN(sf, original, offset)
		if err != nil && err != io.EOF {
			return errs.New(errs.KindIO, "atomicPatch", err).WithPath(path)
		}
		if copied < offset {
			// The original is shorter than offset: zero-fill the gap so
			// the patch still lands at offset.
			if _, err := sf.Write(make([]byte, offset-copied)); err != nil {
				return errs.New(errs.KindIO, "atomicPatch", err).WithPath(path)
			}
		}
	} else {
		if _, err := sf.Write(make([]byte, offset)); err != nil {
			return errs.New(errs.KindIO, "atomicPatch", err).WithPath(path)
		}
	}

	if _, err := sf.Write(patch); err != nil {
		return errs.New(errs.KindIO, "atomicPatch", err).WithPath(path)
	}

	if originalExists {
		if _, err := original.Seek(offset+int64(len(patch)), io.SeekStart); err == nil {
			io.Copy(sf, original)
		}
	}

	if err := sf.Truncate(fileLen); err != nil {
		return errs.New(errs.KindIO, "atomicPatch", err).WithPath(path)
	}

	return sf.Commit()
}

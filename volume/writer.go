package volume

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/rTiGd2/ParXive/crypto"
	"github.com/rTiGd2/ParXive/errs"
	"github.com/rTiGd2/ParXive/persist"
)

// Writer accumulates parity chunks for a single volume file and commits the
// whole thing (header + payload + compressed index + fixed trailer)
// atomically on Close.
type Writer struct {
	id         VolumeID
	targetSize int64
	sf         *persist.SafeFile
	offset     int64
	entries    []IndexEntry
	closed     bool
}

// Create opens a new volume writer for id under dir. targetSize is the
// total file size (header + payload + trailer) that WouldExceed measures
// against; the writer itself does not enforce it, and WriteParityChunk
// accepts chunks past it.
func Create(dir string, id VolumeID, targetSize int64) (*Writer, error) {
	sf, err := persist.NewSafeFile(fileName(dir, id))
	if err != nil {
		return nil, err
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], headerMagic)
	binary.LittleEndian.PutUint16(header[4:6], formatVersion)
	binary.LittleEndian.PutUint32(header[6:10], uint32(id))
	binary.LittleEndian.PutUint16(header[10:12], 0) // flags, reserved

	if _, err := sf.Write(header); err != nil {
		sf.Close()
		return nil, errs.New(errs.KindIO, "volume.Create", err).WithPath(fileName(dir, id))
	}

	return &Writer{
		id:         id,
		targetSize: targetSize,
		sf:         sf,
		offset:     int64(headerSize),
	}, nil
}

// ID returns the volume's identifier.
func (w *Writer) ID() VolumeID { return w.id }

// Size returns the number of bytes written so far, header plus payload (not
// counting the as-yet-unwritten index/trailer).
func (w *Writer) Size() int64 { return w.offset }

// WouldExceed reports whether writing one more parity chunk of
// nextChunkLen bytes, plus a worst-case index/trailer, would push this
// volume past its target size. Neither the stripe planner nor the create
// command calls it: parity chunks go to volume (stripe*M + parity) mod V
// whatever the volume's size, and no rollover to another volume happens.
func (w *Writer) WouldExceed(nextChunkLen int) bool {
	// Budget the index conservatively: indexEntrySize bytes per existing
	// entry plus one more, uncompressed (zstd only shrinks this), plus the
	// fixed trailer.
	indexBudget := int64(len(w.entries)+1) * int64(indexEntrySize)
	projected := w.offset + int64(nextChunkLen) + indexBudget + int64(footerSize)
	return projected > w.targetSize
}

// WriteParityChunk appends one parity chunk to the payload and records its
// index entry.
func (w *Writer) WriteParityChunk(stripeID uint32, parityIndex uint16, data []byte) error {
	if w.closed {
		return errs.New(errs.KindInternal, "WriteParityChunk", nil).WithVariant("WriterClosed")
	}
	n, err := w.sf.Write(data)
	if err != nil {
		return errs.New(errs.KindIO, "WriteParityChunk", err)
	}
	w.entries = append(w.entries, IndexEntry{
		StripeID:    stripeID,
		ParityIndex: parityIndex,
		PayloadOff:  uint64(w.offset),
		Length:      uint32(n),
		BLAKE3:      crypto.HashBytes(data),
	})
	w.offset += int64(n)
	return nil
}

// Close writes the compressed index and fixed trailer, fsyncs, and renames
// the temp file into place. Calling Close without ever calling
// WriteParityChunk still produces a valid, empty volume.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	indexBytes := encodeIndex(w.entries)
	if _, err := w.sf.Write(indexBytes); err != nil {
		w.sf.Close()
		return errs.New(errs.KindIO, "volume.Close", err)
	}

	trailer := make([]byte, footerSize)
	binary.LittleEndian.PutUint64(trailer[0:8], uint64(w.offset))
	binary.LittleEndian.PutUint64(trailer[8:16], uint64(len(indexBytes)))
	binary.LittleEndian.PutUint32(trailer[16:20], crc32.ChecksumIEEE(indexBytes))
	binary.LittleEndian.PutUint32(trailer[20:24], footerMagic)

	if _, err := w.sf.Write(trailer); err != nil {
		w.sf.Close()
		return errs.New(errs.KindIO, "volume.Close", err)
	}

	return w.sf.Commit()
}

// Abort discards the writer's temp file without committing anything.
func (w *Writer) Abort() error {
	w.closed = true
	return w.sf.Close()
}

package volume

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"

	"github.com/rTiGd2/ParXive/crypto"
	"github.com/rTiGd2/ParXive/errs"
)

// Reader provides random access to a committed volume's parity chunks by
// (stripe_id, parity_index).
type Reader struct {
	id      VolumeID
	file    *os.File
	index   map[uint64]IndexEntry // key: stripeID<<16 | parityIndex
	entries []IndexEntry
}

func indexKey(stripeID uint32, parityIndex uint16) uint64 {
	return uint64(stripeID)<<16 | uint64(parityIndex)
}

// Open reads path's header and trailer, decompresses and CRC-checks the
// index, and returns a Reader ready for random access.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.KindInput, "volume.Open", err).WithPath(path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errs.New(errs.KindIO, "volume.Open", err).WithPath(path)
	}
	if info.Size() < int64(headerSize+footerSize) {
		f.Close()
		return nil, errs.New(errs.KindVolume, "volume.Open", nil).WithVariant("Truncated").WithPath(path)
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(f, header); err != nil {
		f.Close()
		return nil, errs.New(errs.KindVolume, "volume.Open", err).WithVariant("Truncated").WithPath(path)
	}
	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != headerMagic {
		f.Close()
		return nil, errs.New(errs.KindVolume, "volume.Open", nil).WithVariant("TrailerCorrupt").WithPath(path)
	}
	id := VolumeID(binary.LittleEndian.Uint32(header[6:10]))

	trailer := make([]byte, footerSize)
	if _, err := f.ReadAt(trailer, info.Size()-int64(footerSize)); err != nil {
		f.Close()
		return nil, errs.New(errs.KindVolume, "volume.Open", err).WithVariant("Truncated").WithPath(path)
	}
	indexOffset := binary.LittleEndian.Uint64(trailer[0:8])
	indexLength := binary.LittleEndian.Uint64(trailer[8:16])
	wantCRC := binary.LittleEndian.Uint32(trailer[16:20])
	gotMagic := binary.LittleEndian.Uint32(trailer[20:24])
	if gotMagic != footerMagic {
		f.Close()
		return nil, errs.New(errs.KindVolume, "volume.Open", nil).WithVariant("TrailerCorrupt").WithPath(path)
	}
	if int64(indexOffset+indexLength)+int64(footerSize) > info.Size() {
		f.Close()
		return nil, errs.New(errs.KindVolume, "volume.Open", nil).WithVariant("Truncated").WithPath(path)
	}

	compressedIndex := make([]byte, indexLength)
	if _, err := f.ReadAt(compressedIndex, int64(indexOffset)); err != nil {
		f.Close()
		return nil, errs.New(errs.KindVolume, "volume.Open", err).WithVariant("Truncated").WithPath(path)
	}
	if crc32.ChecksumIEEE(compressedIndex) != wantCRC {
		f.Close()
		return nil, errs.New(errs.KindVolume, "volume.Open", nil).WithVariant("TrailerCorrupt").WithPath(path)
	}

	entries, err := decodeIndex(compressedIndex)
	if err != nil {
		f.Close()
		return nil, err
	}

	idx := make(map[uint64]IndexEntry, len(entries))
	for _, e := range entries {
		idx[indexKey(e.StripeID, e.ParityIndex)] = e
	}

	return &Reader{id: id, file: f, index: idx, entries: entries}, nil
}

// ID returns the volume's identifier.
func (r *Reader) ID() VolumeID { return r.id }

// Entries returns every index entry in this volume, in index order.
func (r *Reader) Entries() []IndexEntry {
	return append([]IndexEntry(nil), r.entries...)
}

// ReadParityChunk returns the bytes of the parity chunk for (stripeID,
// parityIndex), verified against its stored BLAKE3 hash.
func (r *Reader) ReadParityChunk(stripeID uint32, parityIndex uint16) ([]byte, error) {
	entry, ok := r.index[indexKey(stripeID, parityIndex)]
	if !ok {
		return nil, errs.New(errs.KindData, "ReadParityChunk", nil).WithVariant("MissingEntry")
	}
	buf := make([]byte, entry.Length)
	if _, err := r.file.ReadAt(buf, int64(entry.PayloadOff)); err != nil {
		return nil, errs.New(errs.KindIO, "ReadParityChunk", err)
	}
	if crypto.HashBytes(buf) != entry.BLAKE3 {
		return nil, errs.New(errs.KindData, "ReadParityChunk", nil).WithVariant("Corrupt")
	}
	return buf, nil
}

// Close releases the underlying file descriptor.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Package volume implements the parity container file format: a fixed
// header, an appended payload of parity chunks, a zstd-compressed index
// trailer, and a fixed footer with a CRC32 over the index bytes.
package volume

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/rTiGd2/ParXive/crypto"
	"github.com/rTiGd2/ParXive/errs"
)

// VolumeID identifies a volume file within a parity set.
type VolumeID uint32

const (
	headerMagic = uint32(0x50585631) // "PXV1"
	footerMagic = uint32(0x50585845) // "PXXE" ("PXV1" trailer companion)
	formatVersion = uint16(1)

	headerSize = 4 + 2 + 4 + 2 // magic, version, volume_id, flags
	footerSize = 8 + 8 + 4 + 4 // index_offset, index_length, crc32, footer_magic
)

// IndexEntry locates one parity chunk inside a volume's payload.
type IndexEntry struct {
	StripeID    uint32
	ParityIndex uint16
	PayloadOff  uint64
	Length      uint32
	BLAKE3      crypto.Hash
}

func fileName(dir string, id VolumeID) string {
	return filepath.Join(dir, volumeBaseName(id))
}

func volumeBaseName(id VolumeID) string {
	return fmt.Sprintf("volume-%04d.parx", uint32(id))
}

func marshalIndexEntry(e IndexEntry) []byte {
	buf := make([]byte, 4+2+8+4+crypto.HashSize)
	binary.LittleEndian.PutUint32(buf[0:4], e.StripeID)
	binary.LittleEndian.PutUint16(buf[4:6], e.ParityIndex)
	binary.LittleEndian.PutUint64(buf[6:14], e.PayloadOff)
	binary.LittleEndian.PutUint32(buf[14:18], e.Length)
	copy(buf[18:], e.BLAKE3[:])
	return buf
}

const indexEntrySize = 4 + 2 + 8 + 4 + crypto.HashSize

func unmarshalIndexEntry(buf []byte) IndexEntry {
	var e IndexEntry
	e.StripeID = binary.LittleEndian.Uint32(buf[0:4])
	e.ParityIndex = binary.LittleEndian.Uint16(buf[4:6])
	e.PayloadOff = binary.LittleEndian.Uint64(buf[6:14])
	e.Length = binary.LittleEndian.Uint32(buf[14:18])
	copy(e.BLAKE3[:], buf[18:])
	return e
}

func encodeIndex(entries []IndexEntry) []byte {
	var raw bytes.Buffer
	for _, e := range entries {
		raw.Write(marshalIndexEntry(e))
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		// zstd.NewWriter(nil) with no options only fails on invalid option
		// combinations; there are none here, so this path is unreachable in
		// practice, but we still must return something rather than panic.
		return raw.Bytes()
	}
	return enc.EncodeAll(raw.Bytes(), nil)
}

func decodeIndex(compressed []byte) ([]IndexEntry, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errs.New(errs.KindInternal, "decodeIndex", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, errs.New(errs.KindVolume, "decodeIndex", err).WithVariant("TrailerCorrupt")
	}
	if len(raw)%indexEntrySize != 0 {
		return nil, errs.New(errs.KindVolume, "decodeIndex", nil).WithVariant("TrailerCorrupt")
	}
	n := len(raw) / indexEntrySize
	entries := make([]IndexEntry, n)
	for i := 0; i < n; i++ {
		entries[i] = unmarshalIndexEntry(raw[i*indexEntrySize : (i+1)*indexEntrySize])
	}
	return entries, nil
}

package persist

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"

	"github.com/rTiGd2/ParXive/crypto"
	perrs "github.com/rTiGd2/ParXive/errs"
)

// Metadata identifies the schema and version of a persisted JSON object, so
// LoadJSON can refuse to load a file written by an incompatible header or
// version.
type Metadata struct {
	Header  string
	Version string
}

// ErrBadFilenameSuffix is returned when LoadJSON is asked to load a path
// that is itself a SafeFile temp file (identifiable by its temp suffix),
// which is never a valid committed file to read.
var ErrBadFilenameSuffix = errors.New("cannot load a file with the temp-file suffix")

// ErrBadHeader is returned when the decoded metadata header does not match
// the expected one.
var ErrBadHeader = errors.New("wrong header for this type of persisted object")

// ErrBadVersion is returned when the decoded metadata version does not
// match the expected one.
var ErrBadVersion = errors.New("wrong version for this type of persisted object")

type jsonEnvelope struct {
	Metadata Metadata
	Checksum string
	Data     json.RawMessage
}

// SaveJSON writes object as JSON to filename, tagged with meta and a BLAKE3
// checksum of the encoded data, atomically (temp file + fsync + rename).
func SaveJSON(meta Metadata, object interface{}, filename string) error {
	data, err := json.Marshal(object)
	if err != nil {
		return perrs.New(perrs.KindInternal, "SaveJSON", err).WithPath(filename)
	}
	sum := crypto.HashBytes(data)
	envelope := jsonEnvelope{
		Metadata: meta,
		Checksum: hex.EncodeToString(sum[:]),
		Data:     data,
	}
	encoded, err := json.MarshalIndent(envelope, "", "\t")
	if err != nil {
		return perrs.New(perrs.KindInternal, "SaveJSON", err).WithPath(filename)
	}

	sf, err := NewSafeFile(filename)
	if err != nil {
		return err
	}
	defer sf.Close()
	if _, err := sf.Write(encoded); err != nil {
		return perrs.New(perrs.KindIO, "SaveJSON", err).WithPath(filename)
	}
	return sf.Commit()
}

// LoadJSON reads filename, verifies its metadata and checksum, and decodes
// its data into object.
func LoadJSON(meta Metadata, object interface{}, filename string) error {
	if len(filename) >= len(tempSuffix) && filename[len(filename)-len(tempSuffix):] == tempSuffix {
		return ErrBadFilenameSuffix
	}

	raw, err := os.ReadFile(filename)
	if err != nil {
		return perrs.New(perrs.KindInput, "LoadJSON", err).WithPath(filename)
	}

	var envelope jsonEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return perrs.New(perrs.KindData, "LoadJSON", err).WithPath(filename)
	}
	if envelope.Metadata.Header != meta.Header {
		return perrs.New(perrs.KindData, "LoadJSON", ErrBadHeader).WithPath(filename)
	}
	if envelope.Metadata.Version != meta.Version {
		return perrs.New(perrs.KindData, "LoadJSON", ErrBadVersion).WithPath(filename)
	}

	wantSum, err := hex.DecodeString(envelope.Checksum)
	if err != nil || len(wantSum) != crypto.HashSize {
		return perrs.New(perrs.KindData, "LoadJSON", nil).WithVariant("BadChecksum").WithPath(filename)
	}
	gotSum := crypto.HashBytes(envelope.Data)
	for i := range gotSum {
		if gotSum[i] != wantSum[i] {
			return perrs.New(perrs.KindData, "LoadJSON", nil).WithVariant("ChecksumMismatch").WithPath(filename)
		}
	}

	if err := json.Unmarshal(envelope.Data, object); err != nil {
		return perrs.New(perrs.KindData, "LoadJSON", err).WithPath(filename)
	}
	return nil
}

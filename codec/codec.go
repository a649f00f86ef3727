// Package codec wraps klauspost/reedsolomon into the stripe-shaped API the
// rest of ParXive uses: a StripeCodec knows its own K and M and translates
// the library's sentinel errors into the taxonomy from errs.
package codec

import (
	"github.com/klauspost/reedsolomon"

	"github.com/rTiGd2/ParXive/errs"
)

// StripeCodec performs systematic Reed-Solomon encode/decode over GF(2^8)
// for stripes of a fixed (K, M) shape.
type StripeCodec struct {
	k, m int
	enc  reedsolomon.Encoder
}

// New constructs a StripeCodec for k data shards and m parity shards, using
// a Cauchy matrix (klauspost's default Vandermonde construction can fail to
// invert for certain shard counts; Cauchy is unconditionally invertible for
// any K of the K+M rows, which is the property spec.md requires).
func New(k, m int) (*StripeCodec, error) {
	if k < 1 || k > 255 {
		return nil, errs.New(errs.KindConfig, "codec.New", nil).WithVariant("InvalidK")
	}
	if m < 0 {
		return nil, errs.New(errs.KindConfig, "codec.New", nil).WithVariant("InvalidM")
	}
	if k+m > 255 {
		return nil, errs.New(errs.KindConfig, "codec.New", nil).WithVariant("TooManyShards")
	}
	if m == 0 {
		// A zero-parity "codec" is valid configuration (parity_pct = 0) but
		// klauspost/reedsolomon requires at least one parity shard; treat
		// it as a pass-through that never has anything to reconstruct.
		return &StripeCodec{k: k, m: m, enc: nil}, nil
	}
	enc, err := reedsolomon.New(k, m, reedsolomon.WithCauchyMatrix())
	if err != nil {
		return nil, errs.New(errs.KindInternal, "codec.New", err)
	}
	return &StripeCodec{k: k, m: m, enc: enc}, nil
}

// K returns the number of data shards.
func (c *StripeCodec) K() int { return c.k }

// M returns the number of parity shards.
func (c *StripeCodec) M() int { return c.m }

// Encode computes the M parity shards from K data shards, all of identical
// length. shards must be a slice of length K+M; the first K entries are the
// data shards (already populated), the trailing M entries must be non-nil,
// correctly-sized buffers that Encode fills in place.
func (c *StripeCodec) Encode(shards [][]byte) error {
	if c.m == 0 {
		return nil
	}
	if len(shards) != c.k+c.m {
		return errs.New(errs.KindInternal, "Encode", nil).WithVariant("ShardCountMismatch")
	}
	if err := c.enc.Encode(shards); err != nil {
		return translateErr("Encode", err)
	}
	return nil
}

// Reconstruct fills in any missing (nil) entries of shards, given at least
// K of the K+M are present. shards must have length K+M.
func (c *StripeCodec) Reconstruct(shards [][]byte) error {
	if c.m == 0 {
		return errs.New(errs.KindCodec, "Reconstruct", nil).WithVariant("Insufficient")
	}
	if len(shards) != c.k+c.m {
		return errs.New(errs.KindInternal, "Reconstruct", nil).WithVariant("ShardCountMismatch")
	}
	if err := c.enc.Reconstruct(shards); err != nil {
		return translateErr("Reconstruct", err)
	}
	return nil
}

// ReconstructData is like Reconstruct but only fills in the K data shards,
// skipping parity reconstruction when the caller only needs the originals
// back (the common case for file write-back during repair).
func (c *StripeCodec) ReconstructData(shards [][]byte) error {
	if c.m == 0 {
		return errs.New(errs.KindCodec, "ReconstructData", nil).WithVariant("Insufficient")
	}
	if len(shards) != c.k+c.m {
		return errs.New(errs.KindInternal, "ReconstructData", nil).WithVariant("ShardCountMismatch")
	}
	if err := c.enc.ReconstructData(shards); err != nil {
		return translateErr("ReconstructData", err)
	}
	return nil
}

// Verify reports whether the parity shards are consistent with the data
// shards, all of which must be present.
func (c *StripeCodec) Verify(shards [][]byte) (bool, error) {
	if c.m == 0 {
		return true, nil
	}
	if len(shards) != c.k+c.m {
		return false, errs.New(errs.KindInternal, "Verify", nil).WithVariant("ShardCountMismatch")
	}
	ok, err := c.enc.Verify(shards)
	if err != nil {
		return false, translateErr("Verify", err)
	}
	return ok, nil
}

func translateErr(op string, err error) error {
	if err == reedsolomon.ErrTooFewShards {
		return errs.New(errs.KindCodec, op, err).WithVariant("Insufficient")
	}
	return errs.New(errs.KindCodec, op, err)
}

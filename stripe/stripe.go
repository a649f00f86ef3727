// Package stripe groups a dataset's chunks into stripes of K data chunks
// plus M parity chunks, and assigns each stripe's parity chunks to volumes.
package stripe

import (
	"github.com/rTiGd2/ParXive/errs"
)

// Layout is the result of planning: how many chunks per stripe, how many
// stripes, the optional interleave permutation, and the parity-to-volume
// assignment function.
type Layout struct {
	K           int
	M           int
	NumChunks   uint32
	NumVolumes  int
	Interleaved bool

	// Permutation[i] is the global chunk index that occupies logical
	// position i in the stripe sequence. Nil when Interleaved is false, in
	// which case the sequence is the identity. InversePermutation is its
	// inverse, stored so repair never
	// needs to regenerate round-robin order from scratch.
	Permutation        []uint32
	InversePermutation []uint32
}

// Stripe describes one stripe's data-chunk membership (by global chunk
// index, in logical order; the last stripe may be short) plus its M
// parity-chunk volume assignments.
type Stripe struct {
	ID             uint32
	DataChunks     []uint32 // global chunk indices, len <= K
	ParityVolumes  []int    // len == M; ParityVolumes[j] is the volume for parity index j
}

// Plan builds the stripe layout for numChunks chunks, stripe width k,
// parity count m, and numVolumes output volumes. When interleave is true,
// chunks are permuted round-robin across files before being sliced into
// stripes, per spec.md's stripe-planner interleave rule.
func Plan(numChunks uint32, k, m, numVolumes int, interleave bool, fileChunkCounts []uint32) (*Layout, error) {
	if k < 1 || k > 255 {
		return nil, errs.New(errs.KindConfig, "stripe.Plan", nil).WithVariant("InvalidK")
	}
	if m < 0 || k+m > 255 {
		return nil, errs.New(errs.KindConfig, "stripe.Plan", nil).WithVariant("InvalidM")
	}
	if numVolumes < 1 {
		return nil, errs.New(errs.KindConfig, "stripe.Plan", nil).WithVariant("InvalidVolumeCount")
	}

	layout := &Layout{K: k, M: m, NumChunks: numChunks, NumVolumes: numVolumes, Interleaved: interleave}

	if interleave {
		perm := interleavePermutation(numChunks, fileChunkCounts)
		inv := make([]uint32, len(perm))
		for pos, g := range perm {
			inv[g] = uint32(pos)
		}
		layout.Permutation = perm
		layout.InversePermutation = inv
	}

	return layout, nil
}

// interleavePermutation builds the round-robin-over-files permutation: for
// each "round" r, take chunk r of every file that has one, in file order.
// fileChunkCounts[i] is file i's chunk count; files are assumed to be laid
// out contiguously in global-chunk-index order exactly as chunker.Walk
// produces them (file i's chunks start at sum(fileChunkCounts[:i])).
func interleavePermutation(numChunks uint32, fileChunkCounts []uint32) []uint32 {
	starts := make([]uint32, len(fileChunkCounts))
	var acc uint32
	for i, c := range fileChunkCounts {
		starts[i] = acc
		acc += c
	}

	maxCount := uint32(0)
	for _, c := range fileChunkCounts {
		if c > maxCount {
			maxCount = c
		}
	}

	perm := make([]uint32, 0, numChunks)
	for round := uint32(0); round < maxCount; round++ {
		for fi, c := range fileChunkCounts {
			if round < c {
				perm = append(perm, starts[fi]+round)
			}
		}
	}
	return perm
}

// Stripes returns the full ordered list of stripes for layout, honoring the
// interleave permutation if one is set.
func (layout *Layout) Stripes() []Stripe {
	sequence := layout.logicalSequence()
	numStripes := (uint32(len(sequence)) + uint32(layout.K) - 1) / uint32(layout.K)
	stripes := make([]Stripe, 0, numStripes)

	for s := uint32(0); s < numStripes; s++ {
		start := s * uint32(layout.K)
		end := start + uint32(layout.K)
		if end > uint32(len(sequence)) {
			end = uint32(len(sequence))
		}
		data := append([]uint32(nil), sequence[start:end]...)

		parityVolumes := make([]int, layout.M)
		for j := 0; j < layout.M; j++ {
			parityVolumes[j] = ParityVolume(s, j, layout.M, layout.NumVolumes)
		}

		stripes = append(stripes, Stripe{
			ID:            s,
			DataChunks:    data,
			ParityVolumes: parityVolumes,
		})
	}
	return stripes
}

func (layout *Layout) logicalSequence() []uint32 {
	if layout.Interleaved {
		return layout.Permutation
	}
	seq := make([]uint32, layout.NumChunks)
	for i := range seq {
		seq[i] = uint32(i)
	}
	return seq
}

// ParityVolume implements the round-robin parity-to-volume assignment from
// spec.md §4.D: for stripe s, parity index j lands in volume (s*M+j) mod V.
func ParityVolume(stripeID uint32, parityIndex, m, numVolumes int) int {
	return int((stripeID*uint32(m) + uint32(parityIndex)) % uint32(numVolumes))
}

// StripeCount returns the number of stripes numChunks chunks divide into at
// width k.
func StripeCount(numChunks uint32, k int) uint32 {
	return (numChunks + uint32(k) - 1) / uint32(k)
}

package stripe

import "testing"

func TestPlanSequentialStripeMembership(t *testing.T) {
	layout, err := Plan(10, 4, 2, 3, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	stripes := layout.Stripes()
	if len(stripes) != 3 {
		t.Fatalf("expected 3 stripes for 10 chunks at K=4, got %d", len(stripes))
	}
	if len(stripes[0].DataChunks) != 4 || stripes[0].DataChunks[0] != 0 {
		t.Fatalf("unexpected first stripe: %+v", stripes[0])
	}
	if len(stripes[2].DataChunks) != 2 {
		t.Fatalf("expected short last stripe of 2 chunks, got %d", len(stripes[2].DataChunks))
	}
}

func TestParityVolumeRoundRobin(t *testing.T) {
	// With M=2, V=3: stripe 0 -> volumes 0,1; stripe 1 -> volumes 2,0; stripe 2 -> volumes 1,2
	cases := []struct {
		stripe, parity, want int
	}{
		{0, 0, 0}, {0, 1, 1},
		{1, 0, 2}, {1, 1, 0},
		{2, 0, 1}, {2, 1, 2},
	}
	for _, c := range cases {
		got := ParityVolume(uint32(c.stripe), c.parity, 2, 3)
		if got != c.want {
			t.Errorf("ParityVolume(%d,%d) = %d, want %d", c.stripe, c.parity, got, c.want)
		}
	}
}

func TestInterleavePermutationIsBijection(t *testing.T) {
	fileChunkCounts := []uint32{3, 1, 2}
	layout, err := Plan(6, 2, 1, 2, true, fileChunkCounts)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[uint32]bool)
	for _, g := range layout.Permutation {
		if seen[g] {
			t.Fatalf("permutation is not a bijection: global index %d repeated", g)
		}
		seen[g] = true
	}
	if len(seen) != 6 {
		t.Fatalf("expected all 6 global indices covered, got %d", len(seen))
	}
	for g := uint32(0); g < 6; g++ {
		pos := layout.InversePermutation[g]
		if layout.Permutation[pos] != g {
			t.Fatalf("inverse permutation mismatch for global index %d", g)
		}
	}
}

func TestInterleaveRoundRobinOrder(t *testing.T) {
	// file0 has 2 chunks (global 0,1), file1 has 2 chunks (global 2,3).
	// round-robin: file0[0], file1[0], file0[1], file1[1] -> 0,2,1,3
	layout, err := Plan(4, 4, 0, 1, true, []uint32{2, 2})
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{0, 2, 1, 3}
	for i, g := range want {
		if layout.Permutation[i] != g {
			t.Fatalf("permutation[%d] = %d, want %d", i, layout.Permutation[i], g)
		}
	}
}

func TestStripeCount(t *testing.T) {
	if StripeCount(10, 4) != 3 {
		t.Fatal("expected ceil(10/4) = 3")
	}
	if StripeCount(8, 4) != 2 {
		t.Fatal("expected exact division 8/4 = 2")
	}
}

func TestPlanRejectsInvalidShape(t *testing.T) {
	if _, err := Plan(10, 0, 2, 1, false, nil); err == nil {
		t.Fatal("expected error for k=0")
	}
	if _, err := Plan(10, 4, 2, 0, false, nil); err == nil {
		t.Fatal("expected error for numVolumes=0")
	}
}

package auditor

import (
	"testing"

	"github.com/rTiGd2/ParXive/manifest"
	"github.com/rTiGd2/ParXive/stripe"
	"github.com/rTiGd2/ParXive/verifier"
)

func TestAuditAllHealthy(t *testing.T) {
	layout, err := stripe.Plan(4, 2, 1, 2, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	m := &manifest.Manifest{NumChunks: 4}
	vr := &verifier.Report{Present: []verifier.ChunkStatus{
		verifier.StatusOK, verifier.StatusOK, verifier.StatusOK, verifier.StatusOK,
	}}
	volAvail := VolumeAvailability{0: true, 1: true}

	report, err := Audit(m, layout, vr, volAvail)
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() {
		t.Fatalf("expected all stripes repairable, got unrecoverable: %v", report.Unrecoverable)
	}
	for _, s := range report.Stripes {
		if s.DataOK != 2 || s.DataBad != 0 {
			t.Fatalf("unexpected stripe health: %+v", s)
		}
	}
}

func TestAuditRepairableWithCorruptDataButGoodParity(t *testing.T) {
	layout, err := stripe.Plan(4, 2, 1, 2, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	m := &manifest.Manifest{NumChunks: 4}
	vr := &verifier.Report{Present: []verifier.ChunkStatus{
		verifier.StatusCorrupt, verifier.StatusOK, verifier.StatusOK, verifier.StatusOK,
	}}
	volAvail := VolumeAvailability{0: true, 1: true}

	report, err := Audit(m, layout, vr, volAvail)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Stripes[0].Repairable {
		t.Fatal("stripe with 1 bad data chunk + 1 good parity chunk should be repairable (1+1 >= K=2)")
	}
}

func TestAuditUnrecoverableStripe(t *testing.T) {
	layout, err := stripe.Plan(4, 2, 1, 2, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	m := &manifest.Manifest{NumChunks: 4}
	vr := &verifier.Report{Present: []verifier.ChunkStatus{
		verifier.StatusCorrupt, verifier.StatusCorrupt, verifier.StatusOK, verifier.StatusOK,
	}}
	// Both data chunks in stripe 0 are bad, and its one parity volume is
	// unavailable too: 0 + 0 < K=2.
	volAvail := VolumeAvailability{0: false, 1: true}

	report, err := Audit(m, layout, vr, volAvail)
	if err != nil {
		t.Fatal(err)
	}
	if report.OK() {
		t.Fatal("expected report to be not-OK with an unrecoverable stripe")
	}
	if len(report.Unrecoverable) != 1 || report.Unrecoverable[0] != 0 {
		t.Fatalf("expected stripe 0 to be unrecoverable, got %v", report.Unrecoverable)
	}
}

func TestAuditShortLastStripeIsRepairableWithoutCorruption(t *testing.T) {
	// 3 chunks, K=2: stripe 0 has 2 real data chunks, stripe 1 has only 1
	// real data chunk (its second slot is an all-zero RS placeholder, not
	// a missing chunk) plus 1 parity volume.
	layout, err := stripe.Plan(3, 2, 1, 1, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	m := &manifest.Manifest{NumChunks: 3}
	vr := &verifier.Report{Present: []verifier.ChunkStatus{
		verifier.StatusOK, verifier.StatusOK, verifier.StatusOK,
	}}
	volAvail := VolumeAvailability{0: true}

	report, err := Audit(m, layout, vr, volAvail)
	if err != nil {
		t.Fatal(err)
	}
	if !report.OK() {
		t.Fatalf("expected short last stripe to be repairable with zero corruption, got unrecoverable: %v", report.Unrecoverable)
	}
	last := report.Stripes[len(report.Stripes)-1]
	if !last.Repairable {
		t.Fatalf("expected short last stripe to be repairable, got %+v", last)
	}
}

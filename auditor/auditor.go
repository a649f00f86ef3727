// Package auditor combines a verifier chunk-presence map with parity-volume
// availability to produce per-stripe recoverability health.
package auditor

import (
	"github.com/rTiGd2/ParXive/errs"
	"github.com/rTiGd2/ParXive/manifest"
	"github.com/rTiGd2/ParXive/stripe"
	"github.com/rTiGd2/ParXive/verifier"
)

// StripeHealth is the recoverability verdict for one stripe.
type StripeHealth struct {
	StripeID       uint32
	DataOK         int
	DataBad        int
	ParityOK       int
	ParityMissing  int
	Repairable     bool
}

// Report is the full per-stripe audit result.
type Report struct {
	Stripes      []StripeHealth
	Unrecoverable []uint32 // stripe IDs with Repairable == false
}

// VolumeAvailability reports, for each volume ID in use, whether it could
// be opened and its index read (true) or not (false) — a volume that
// failed to open contributes ParityMissing for every stripe that placed a
// parity chunk there.
type VolumeAvailability map[int]bool

// Audit combines verifyReport's chunk-presence map with volAvail to
// produce per-stripe health for every stripe in layout.
func Audit(m *manifest.Manifest, layout *stripe.Layout, verifyReport *verifier.Report, volAvail VolumeAvailability) (*Report, error) {
	if layout == nil {
		return nil, errs.New(errs.KindInternal, "Audit", nil).WithVariant("NilLayout")
	}
	stripes := layout.Stripes()
	report := &Report{Stripes: make([]StripeHealth, len(stripes))}

	for i, s := range stripes {
		health := StripeHealth{StripeID: s.ID}
		for _, g := range s.DataChunks {
			if int(g) >= len(verifyReport.Present) {
				health.DataBad++
				continue
			}
			switch verifyReport.Present[g] {
			case verifier.StatusOK:
				health.DataOK++
			default:
				health.DataBad++
			}
		}
		for _, vol := range s.ParityVolumes {
			if volAvail[vol] {
				health.ParityOK++
			} else {
				health.ParityMissing++
			}
		}
		// A short last stripe (spec.md §3/§4.D) has fewer real data chunks
		// than K; the phantom positions between len(s.DataChunks) and K are
		// all-zero for RS math and always satisfied, not absent, so they
		// count toward sufficiency here the same way they do at encode and
		// repair time.
		phantomOK := layout.K - len(s.DataChunks)
		health.Repairable = (health.DataOK + phantomOK + health.ParityOK) >= layout.K
		report.Stripes[i] = health
		if !health.Repairable {
			report.Unrecoverable = append(report.Unrecoverable, s.ID)
		}
	}

	return report, nil
}

// OK reports whether every stripe in the audit is repairable.
func (r *Report) OK() bool {
	return len(r.Unrecoverable) == 0
}

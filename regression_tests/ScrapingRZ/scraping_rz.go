/*
Package ScrapingRZ checks particle scraping on an embedded boundary in RZ.
Electrons start between r=0.15 and r=0.2 moving inward toward a cylindrical
surface at r=0.1, where they are removed. 512 electrons remain at the end, and
the boundary scraping diagnostic must account for every removed particle.
*/
package ScrapingRZ

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/notargets/picval/openpmd"
	"github.com/notargets/picval/regression_tests"
)

const (
	Remaining      = 512
	Species        = "electron"
	FullSeries     = "diags/diag2"
	ScrapingSeries = "diags/diag3/particles_at_eb"
)

type Analysis struct {
	*regression_tests.Config
	Filename string
}

func New(cfg *regression_tests.Config, filename string) *Analysis {
	return &Analysis{Config: cfg, Filename: filename}
}

func (a *Analysis) Run(ctx context.Context) (err error) {
	pf, err := a.Plotfile(a.Filename)
	if err != nil {
		return
	}
	electrons, err := pf.ReadParticles(Species)
	if err != nil {
		return
	}
	remaining := int(a.Constant("Remaining", Remaining))
	if err = a.Require("remaining particles", electrons.Len() == remaining,
		float64(electrons.Len()-remaining), 0); err != nil {
		return
	}
	full, err := a.Series(FullSeries)
	if err != nil {
		return
	}
	defer full.Close()
	scraped, err := a.Series(ScrapingSeries)
	if err != nil {
		return
	}
	defer scraped.Close()
	if err = a.checkAccounting(full, scraped); err != nil {
		return
	}
	if err = a.checkIDs(full, scraped); err != nil {
		return
	}
	opts := a.ChecksumOptions()
	opts.DoParticles = false
	return a.EvaluateChecksum(ctx, a.Filename, opts)
}

// checkAccounting requires remaining plus scraped particles to equal the initial
// number at every iteration of the full diagnostic
func (a *Analysis) checkAccounting(full, scraped *openpmd.Series) (err error) {
	var q [][]float64
	if q, err = scraped.GetParticle(Species, []string{"stepScraped"}, scraped.Iterations()[0]); err != nil {
		return
	}
	stepScraped := q[0]
	var (
		total, worst int
	)
	for n, it := range full.Iterations() {
		if q, err = full.GetParticle(Species, []string{"w"}, it); err != nil {
			return
		}
		var nScraped int
		for _, s := range stepScraped {
			if s <= float64(it) {
				nScraped++
			}
		}
		nRemaining := len(q[0])
		if n == 0 {
			total = nRemaining
		}
		a.Log().Debug("particle accounting", zap.Int("iteration", it),
			zap.Int("remaining", nRemaining), zap.Int("scraped", nScraped))
		if diff := nRemaining + nScraped - total; diff != 0 && (worst == 0 || abs(diff) > abs(worst)) {
			worst = diff
		}
	}
	return a.Require("remaining + scraped == initial", worst == 0, float64(worst), 0)
}

// checkIDs requires the initial ids to be the scraped ids plus the final ids
func (a *Analysis) checkIDs(full, scraped *openpmd.Series) (err error) {
	var (
		its              = full.Iterations()
		initial, q, last [][]float64
	)
	if initial, err = full.GetParticle(Species, []string{"id"}, its[0]); err != nil {
		return
	}
	if q, err = scraped.GetParticle(Species, []string{"id"}, scraped.Iterations()[0]); err != nil {
		return
	}
	if last, err = full.GetParticle(Species, []string{"id"}, its[len(its)-1]); err != nil {
		return
	}
	var (
		want = append([]float64(nil), initial[0]...)
		got  = append(append([]float64(nil), q[0]...), last[0]...)
	)
	sort.Float64s(want)
	sort.Float64s(got)
	mismatch := abs(len(want) - len(got))
	for i := 0; i < len(want) && i < len(got); i++ {
		if want[i] != got[i] {
			mismatch++
		}
	}
	if mismatch != 0 {
		a.Log().Error("particle ids differ", zap.Int("initial", len(want)), zap.Int("scraped_and_final", len(got)))
	}
	return a.Require("initial ids == scraped ids + final ids", mismatch == 0, float64(mismatch), 0)
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// Package OpenPMDRegression runs the checksum regression alone on openPMD output.
package OpenPMDRegression

import (
	"context"
	"strings"

	"github.com/notargets/picval/checksum"
	"github.com/notargets/picval/regression_tests"
)

// SinglePrecisionRtol applies to runs whose output path names single_precision
const SinglePrecisionRtol = 2.e-6

type Analysis struct {
	*regression_tests.Config
	Filename string
}

func New(cfg *regression_tests.Config, filename string) *Analysis {
	return &Analysis{Config: cfg, Filename: filename}
}

func (a *Analysis) Options() checksum.Options {
	opts := a.ChecksumOptions()
	opts.OutputFormat = checksum.OpenPMD
	if strings.Contains(a.Filename, "single_precision") && (a.Params == nil || a.Params.Rtol == 0) {
		opts.Rtol = SinglePrecisionRtol
	}
	return opts
}

func (a *Analysis) Run(ctx context.Context) error {
	return a.EvaluateChecksum(ctx, a.Filename, a.Options())
}

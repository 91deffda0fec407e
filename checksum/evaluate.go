package checksum

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/notargets/picval/openpmd"
	"github.com/notargets/picval/readfiles"
)

type OutputFormat string

const (
	Plotfile OutputFormat = "plotfile"
	OpenPMD  OutputFormat = "openpmd"
)

type Options struct {
	OutputFormat OutputFormat
	DoFields     bool
	DoParticles  bool
	Rtol, Atol   float64
}

func DefaultOptions() Options {
	return Options{
		OutputFormat: Plotfile,
		DoFields:     true,
		DoParticles:  true,
		Rtol:         DefaultRtol,
		Atol:         DefaultAtol,
	}
}

// Evaluator is the final checksum regression step of every analysis
type Evaluator interface {
	EvaluateChecksum(testName, path string, opts Options) error
}

// Checker evaluates checksums against JSON benchmarks in BenchmarkDir. With Reset set
// the benchmark is rewritten from the output instead of compared.
type Checker struct {
	BenchmarkDir string
	Reset        bool
	Logger       *zap.Logger
}

func NewChecker(dir string, reset bool, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{BenchmarkDir: dir, Reset: reset, Logger: logger}
}

func (c *Checker) EvaluateChecksum(testName, path string, opts Options) (err error) {
	var (
		d Data
	)
	if d, err = Compute(path, opts); err != nil {
		return
	}
	if c.Reset {
		c.Logger.Info("resetting benchmark", zap.String("test", testName),
			zap.String("file", BenchmarkFile(c.BenchmarkDir, testName)))
		return SaveBenchmark(c.BenchmarkDir, testName, d)
	}
	var bench Data
	if bench, err = LoadBenchmark(c.BenchmarkDir, testName); err != nil {
		return
	}
	if err = Compare(d, bench, opts.Rtol, opts.Atol); err != nil {
		if me, ok := err.(*MismatchError); ok {
			for _, p := range me.Problems {
				c.Logger.Error("checksum mismatch", zap.String("test", testName), zap.String("detail", p))
			}
		}
		return fmt.Errorf("test %s: %w", testName, err)
	}
	c.Logger.Info("checksum regression passed", zap.String("test", testName),
		zap.Float64("rtol", opts.Rtol), zap.Float64("atol", opts.Atol))
	return
}

// Compute reads the output at path in the given format and reduces it to checksums
func Compute(path string, opts Options) (d Data, err error) {
	switch opts.OutputFormat {
	case Plotfile, "":
		var pf *readfiles.Plotfile
		if pf, err = readfiles.OpenPlotfile(path); err != nil {
			return
		}
		return FromPlotfile(pf, opts.DoFields, opts.DoParticles)
	case OpenPMD:
		var s *openpmd.Series
		if s, err = openpmd.OpenSeries(path); err != nil {
			return
		}
		defer s.Close()
		return FromOpenPMD(s, opts.DoFields, opts.DoParticles)
	}
	return nil, fmt.Errorf("unknown output format %q", opts.OutputFormat)
}

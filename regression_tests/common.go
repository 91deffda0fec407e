// Package regression_tests holds what every analysis of a regression run shares:
// its configuration, the failure type of a physics check and the checksum step.
// Each analysis lives in its own sub package.
package regression_tests

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/notargets/picval/InputParameters"
	"github.com/notargets/picval/checksum"
	"github.com/notargets/picval/openpmd"
	"github.com/notargets/picval/readfiles"
)

// Analysis loads the output of one regression run, checks it and finishes with
// the checksum regression
type Analysis interface {
	Run(ctx context.Context) error
}

// Failure is a physics check that did not hold
type Failure struct {
	Test      string
	Check     string
	Value     float64
	Tolerance float64
}

func (f *Failure) Error() string {
	return fmt.Sprintf("test %s: check %q failed: value %.6g, tolerance %.6g",
		f.Test, f.Check, f.Value, f.Tolerance)
}

type Config struct {
	TestName string
	WorkDir  string // relative diagnostic paths (diags/diag2) resolve against it
	Logger   *zap.Logger
	Checksum checksum.Evaluator
	Params   *InputParameters.InputParameters
	// Openers default to the readfiles and openpmd readers
	OpenPlotfile func(dir string) (*readfiles.Plotfile, error)
	OpenSeries   func(path string) (*openpmd.Series, error)
}

func (c *Config) Log() *zap.Logger {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c.Logger
}

func (c *Config) Path(rel string) string {
	if filepath.IsAbs(rel) || c.WorkDir == "" {
		return rel
	}
	return filepath.Join(c.WorkDir, rel)
}

// Glob matches a pattern against WorkDir, the matches are returned relative to it
func (c *Config) Glob(pattern string) (matches []string, err error) {
	if matches, err = filepath.Glob(c.Path(pattern)); err != nil {
		return nil, fmt.Errorf("test %s: %w", c.TestName, err)
	}
	if c.WorkDir == "" || filepath.IsAbs(pattern) {
		return
	}
	for i, m := range matches {
		if matches[i], err = filepath.Rel(c.WorkDir, m); err != nil {
			return nil, err
		}
	}
	return
}

// Constant returns the parameter file override of name, or def
func (c *Config) Constant(name string, def float64) float64 {
	return c.Params.Constant(name, def)
}

func (c *Config) Plotfile(dir string) (*readfiles.Plotfile, error) {
	open := c.OpenPlotfile
	if open == nil {
		open = readfiles.OpenPlotfile
	}
	return open(c.Path(dir))
}

func (c *Config) Series(path string) (*openpmd.Series, error) {
	open := c.OpenSeries
	if open == nil {
		open = openpmd.OpenSeries
	}
	return open(c.Path(path))
}

// Require logs a check and returns a *Failure when it does not hold
func (c *Config) Require(check string, ok bool, value, tolerance float64) error {
	if !ok {
		c.Log().Error("check failed", zap.String("test", c.TestName), zap.String("check", check),
			zap.Float64("value", value), zap.Float64("tolerance", tolerance))
		return &Failure{Test: c.TestName, Check: check, Value: value, Tolerance: tolerance}
	}
	c.Log().Info("check passed", zap.String("test", c.TestName), zap.String("check", check),
		zap.Float64("value", value), zap.Float64("tolerance", tolerance))
	return nil
}

// ChecksumOptions starts from the checksum defaults and applies parameter overrides
func (c *Config) ChecksumOptions() checksum.Options {
	opts := checksum.DefaultOptions()
	if c.Params != nil {
		if c.Params.OutputFormat != "" {
			opts.OutputFormat = checksum.OutputFormat(c.Params.OutputFormat)
		}
		if c.Params.Rtol != 0 {
			opts.Rtol = c.Params.Rtol
		}
		if c.Params.Atol != 0 {
			opts.Atol = c.Params.Atol
		}
	}
	return opts
}

func (c *Config) EvaluateChecksum(ctx context.Context, path string, opts checksum.Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.Checksum == nil {
		return fmt.Errorf("test %s: no checksum evaluator configured", c.TestName)
	}
	c.Log().Debug("evaluating checksum", zap.String("test", c.TestName), zap.String("path", path),
		zap.String("format", string(opts.OutputFormat)), zap.Bool("fields", opts.DoFields),
		zap.Bool("particles", opts.DoParticles))
	return c.Checksum.EvaluateChecksum(c.TestName, c.Path(path), opts)
}

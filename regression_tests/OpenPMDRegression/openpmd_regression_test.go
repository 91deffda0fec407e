package OpenPMDRegression

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/picval/InputParameters"
	"github.com/notargets/picval/checksum"
	"github.com/notargets/picval/regression_tests"
)

func TestOpenPMDRegression(t *testing.T) {
	ev := &checksum.RecordingEvaluator{}
	cfg := &regression_tests.Config{TestName: "openpmd_rz", Checksum: ev}
	require.NoError(t, New(cfg, "diags/diag1/").Run(context.Background()))
	require.NoError(t, New(cfg, "diags/single_precision_diag/").Run(context.Background()))
	require.Len(t, ev.Calls, 2)
	assert.Equal(t, checksum.OpenPMD, ev.Calls[0].Options.OutputFormat)
	assert.Equal(t, checksum.DefaultRtol, ev.Calls[0].Options.Rtol)
	assert.Equal(t, SinglePrecisionRtol, ev.Calls[1].Options.Rtol)
	assert.Equal(t, checksum.DefaultAtol, ev.Calls[1].Options.Atol)

	cfg.Params = &InputParameters.InputParameters{Rtol: 1.e-4}
	assert.Equal(t, 1.e-4, New(cfg, "diags/single_precision_diag/").Options().Rtol)
}

func TestOpenPMDRegressionCanceled(t *testing.T) {
	ev := &checksum.RecordingEvaluator{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(&regression_tests.Config{TestName: "openpmd", Checksum: ev}, "diags/diag1").Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ev.Calls)

	assert.Error(t, New(&regression_tests.Config{TestName: "openpmd"}, "diags/diag1").Run(context.Background()))
}

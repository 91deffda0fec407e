package InputParameters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testInput = `
Title: "electrostatic sphere, heavy electrons"
OutputFormat: openpmd
Rtol: 2.0e-6
Constants:
  L2Tolerance: 0.096
  ElectronMass: 10
`

func TestParse(t *testing.T) {
	var ip InputParameters
	require.NoError(t, ip.Parse([]byte(testInput)))
	assert.Equal(t, "electrostatic sphere, heavy electrons", ip.Title)
	assert.Equal(t, "openpmd", ip.OutputFormat)
	assert.Equal(t, 2.e-6, ip.Rtol)
	assert.Equal(t, 0., ip.Atol)
	assert.Equal(t, 0.096, ip.Constant("L2Tolerance", 0.05))
	assert.Equal(t, 10., ip.Constant("ElectronMass", 9.1e-31))
	assert.Equal(t, 0.7, ip.Constant("PotentialDrop", 0.7))
	ip.Print()

	var nilIP *InputParameters
	assert.Equal(t, 1., nilIP.Constant("anything", 1))

	assert.Error(t, ip.Parse([]byte("Constants: [1, 2")))
}

func TestRead(t *testing.T) {
	name := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(name, []byte(testInput), 0644))
	ip, err := Read(name)
	require.NoError(t, err)
	assert.Len(t, ip.Constants, 2)

	_, err = Read(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

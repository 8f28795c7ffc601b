package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSweep(t *testing.T) {
	name, values, err := parseSweep("pid.Kp=1:2:3")
	require.NoError(t, err)
	assert.Equal(t, "pid.Kp", name)
	assert.Equal(t, []float64{1, 1.5, 2}, values)

	for _, bad := range []string{"pid.Kp", "pid.Kp=1:2", "pid.Kp=a:2:3", "pid.Kp=1:2:0"} {
		_, _, err := parseSweep(bad)
		assert.Error(t, err, bad)
	}
}

func projectCmd(t *testing.T, flags ...string) *cobra.Command {
	t.Helper()
	preset, overrides, logSignals = "", nil, nil
	cmd := &cobra.Command{Use: "test"}
	addProjectFlags(cmd)
	require.NoError(t, cmd.ParseFlags(flags))
	return cmd
}

func TestLoadProjectAppliesChangedFlags(t *testing.T) {
	cmd := projectCmd(t, "--preset", "integrator", "--time", "2", "--set", "step.value_after=3")
	p, err := loadProject(cmd, nil)
	require.NoError(t, err)

	assert.Equal(t, 2.0, p.Simulation.T)
	assert.Equal(t, 0.1, p.Simulation.Dt)
	b, ok := p.Block("step")
	require.True(t, ok)
	assert.Equal(t, 3, b.Parameters["value_after"])
}

func TestLoadProjectErrors(t *testing.T) {
	_, err := loadProject(projectCmd(t), nil)
	assert.Error(t, err)

	_, err = loadProject(projectCmd(t, "--preset", "nope"), nil)
	assert.Error(t, err)

	_, err = loadProject(projectCmd(t, "--preset", "integrator", "--set", "ghost.gain=1"), nil)
	assert.Error(t, err)
}

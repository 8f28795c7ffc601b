package experiment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/blocksim/internal/block"
	"github.com/san-kum/blocksim/internal/config"
	"github.com/san-kum/blocksim/internal/signal"
	"github.com/san-kum/blocksim/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRegistryCoversCatalog(t *testing.T) {
	r := NewRegistry()
	want := map[string][]string{
		"sources":     {"constant", "step", "ramp", "sinusoidal", "white_noise", "file_source", "manual", "function_source"},
		"operators":   {"gain", "sum", "mux", "saturation", "discrete_integrator", "discrete_derivator", "delay", "algebraic_function"},
		"controllers": {"pid", "state_feedback"},
		"systems":     {"linear_state_space"},
	}
	for cat, types := range want {
		for _, typ := range types {
			_, err := r.Lookup(cat, typ)
			assert.NoError(t, err, "%s/%s", cat, typ)
		}
	}
	_, err := r.Lookup("sources", "function")
	assert.ErrorIs(t, err, ErrUnknownBlock)
	assert.Len(t, r.Entries(), 19)
}

func TestBuildRejectsUnknownParameter(t *testing.T) {
	r := NewRegistry()
	_, err := r.Build(config.BlockConfig{
		Name: "g", Category: "operators", Type: "gain",
		Parameters: map[string]any{"gain": 2, "gian": 3},
	}, "")
	var pe *block.ParameterError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "gian", pe.Param)
}

func TestBuildSampleTime(t *testing.T) {
	r := NewRegistry()
	b, err := r.Build(config.BlockConfig{
		Name: "g", Category: "operators", Type: "gain",
		Parameters: map[string]any{"sample_time": 0.2},
	}, "")
	require.NoError(t, err)
	st, ok := b.SampleTime()
	assert.True(t, ok)
	assert.Equal(t, 0.2, st)

	_, err = r.Build(config.BlockConfig{
		Name: "g", Category: "operators", Type: "gain",
		Parameters: map[string]any{"sample_time": -1},
	}, "")
	assert.ErrorIs(t, err, block.ErrParameter)
}

func TestSumSigns(t *testing.T) {
	r := NewRegistry()
	for _, signs := range []any{"+-", []any{1, -1}} {
		b, err := r.Build(config.BlockConfig{
			Name: "s", Category: "operators", Type: "sum",
			Parameters: map[string]any{"signs": signs},
		}, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"in1", "in2"}, b.Inputs().Names())
	}
	_, err := r.Build(config.BlockConfig{
		Name: "s", Category: "operators", Type: "sum",
		Parameters: map[string]any{"signs": "+x"},
	}, "")
	assert.ErrorIs(t, err, block.ErrParameter)
}

func TestBuildAlgebraicFunction(t *testing.T) {
	r := NewRegistry()
	b, err := r.Build(config.BlockConfig{
		Name: "f", Category: "operators", Type: "algebraic_function",
		Parameters: map[string]any{
			"function_name": "max",
			"input_keys":    []any{"a", "b"},
		},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, b.Inputs().Names())
	assert.Equal(t, []string{"out"}, b.Outputs().Names())

	b.Inputs().Set("a", signal.Scalar(2))
	b.Inputs().Set("b", signal.Scalar(5))
	require.NoError(t, b.OutputUpdate(0, 0.1))
	assert.Equal(t, 5.0, b.Outputs().Get("out").At(0, 0))
}

func TestBuildFunctionErrors(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		name   string
		typ    string
		params map[string]any
		param  string
	}{
		{"unknown function", "algebraic_function", map[string]any{"function_name": "nope", "input_keys": []any{"u"}}, "function_name"},
		{"no function", "algebraic_function", map[string]any{"input_keys": []any{"u"}}, "function_name"},
		{"no inputs", "algebraic_function", map[string]any{"function_name": "abs"}, "input_keys"},
		{"bad keys", "algebraic_function", map[string]any{"function_name": "abs", "input_keys": []any{1}}, "input_keys"},
		{"unknown source function", "function_source", map[string]any{"function_name": "nope"}, "function_name"},
		{"function name type", "function_source", map[string]any{"function_name": 3}, "function_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := "operators"
			if tt.typ == "function_source" {
				cat = "sources"
			}
			_, err := r.Build(config.BlockConfig{Name: "f", Category: cat, Type: tt.typ, Parameters: tt.params}, "")
			var pe *block.ParameterError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.param, pe.Param)
		})
	}
}

func TestRegistryCustomFunctions(t *testing.T) {
	double := func(t, dt float64, in map[string]*mat.Dense) (map[string]*mat.Dense, error) {
		var y mat.Dense
		y.Scale(2, in["u"])
		return map[string]*mat.Dense{"y": &y}, nil
	}
	clock := func(t, dt float64) (*mat.Dense, error) { return signal.Scalar(t), nil }
	r := NewRegistry(WithFunction("double", double), WithSourceFunction("clock", clock))

	algebraic, source := r.FunctionNames()
	assert.Contains(t, algebraic, "double")
	assert.Contains(t, algebraic, "product")
	assert.Contains(t, source, "clock")

	p := config.DefaultProject()
	p.Project.Name = "custom"
	p.Simulation.Dt = 0.1
	p.Simulation.T = 0.5
	p.Diagram.Blocks = []config.BlockConfig{
		{Name: "clk", Category: "sources", Type: "function_source", Parameters: map[string]any{"function_name": "clock"}},
		{Name: "dbl", Category: "operators", Type: "algebraic_function", Parameters: map[string]any{
			"function_name": "double", "input_keys": []any{"u"}, "output_keys": []any{"y"},
		}},
	}
	p.Diagram.Connections = []config.Connection{config.Connect("clk.out", "dbl.u")}
	p.Simulation.Logging = []string{"dbl.outputs.y"}

	e := New(p, r)
	require.NoError(t, e.Setup())
	log, err := e.Run(context.Background())
	require.NoError(t, err)
	y := log.Scalars("dbl.outputs.y")
	require.Len(t, y, 5)
	assert.InDelta(t, 0.8, y[4], 1e-12)

	_, err = NewRegistry().BuildModel(p)
	assert.ErrorIs(t, err, block.ErrParameter)
}

func TestDerivatorLoopIsAlgebraic(t *testing.T) {
	p := config.DefaultProject()
	p.Diagram.Blocks = []config.BlockConfig{
		{Name: "d", Category: "operators", Type: "discrete_derivator"},
		{Name: "g", Category: "operators", Type: "gain", Parameters: map[string]any{"gain": 0.5}},
	}
	p.Diagram.Connections = []config.Connection{
		config.Connect("d.out", "g.in"),
		config.Connect("g.out", "d.in"),
	}
	m, err := NewRegistry().BuildModel(p)
	require.NoError(t, err)

	_, _, err = m.BuildExecutionOrder()
	var le *sim.AlgebraicLoopError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, []string{"d", "g"}, le.Blocks)
}

func TestModulationPreset(t *testing.T) {
	e := New(config.GetPreset("modulation"), nil)
	require.NoError(t, e.Setup())
	log, err := e.Run(context.Background())
	require.NoError(t, err)
	gate := log.Scalars("gate.outputs.out")
	mix := log.Scalars("mix.outputs.out")
	require.Len(t, mix, len(gate))
	assert.Equal(t, 1.0, gate[10])
	assert.Equal(t, -1.0, gate[60])
	assert.InDelta(t, 1.0, e.Simulator().Metrics()["peak"], 1e-6)
}

func TestExperimentRunsPresets(t *testing.T) {
	for _, name := range config.ListPresets() {
		t.Run(name, func(t *testing.T) {
			e := New(config.GetPreset(name), nil)
			require.NoError(t, e.Setup())
			log, err := e.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, e.Project().Simulation.Logging, log.SignalKeys())
			assert.Positive(t, log.Len())
		})
	}
}

func TestIntegratorPreset(t *testing.T) {
	e := New(config.GetPreset("integrator"), nil)
	require.NoError(t, e.Setup())
	log, err := e.Run(context.Background())
	require.NoError(t, err)
	y := log.Scalars("integ.outputs.out")
	require.Len(t, y, 10)
	assert.InDelta(t, 0.0, y[1], 1e-12)
	assert.InDelta(t, 0.1, y[2], 1e-12)
	assert.InDelta(t, 0.8, y[9], 1e-9)
}

func TestPIDLoopTracks(t *testing.T) {
	e := New(config.GetPreset("pid_loop"), nil)
	require.NoError(t, e.Setup())
	log, err := e.Run(context.Background())
	require.NoError(t, err)
	y := log.Scalars("plant.outputs.y")
	assert.InDelta(t, 1.0, y[len(y)-1], 0.05)
	assert.Contains(t, e.Simulator().Metrics(), "peak")
}

func TestRunBeforeSetup(t *testing.T) {
	_, err := New(config.GetPreset("integrator"), nil).Run(context.Background())
	assert.Error(t, err)
}

func TestBuildModelErrors(t *testing.T) {
	p := config.GetPreset("integrator")
	p.Diagram.Connections = append(p.Diagram.Connections, config.Connect("step.out", "integ.in"))
	_, err := NewRegistry().BuildModel(p)
	assert.ErrorIs(t, err, sim.ErrConfiguration)

	p = config.GetPreset("integrator")
	p.Diagram.Blocks[0].Type = "nope"
	_, err = NewRegistry().BuildModel(p)
	assert.ErrorIs(t, err, ErrUnknownBlock)
}

func TestFileSourceRelativePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.csv"), []byte("time,u\n0,1\n0.1,2\n0.2,3\n"), 0644))

	p := config.DefaultProject()
	p.Simulation.Dt, p.Simulation.T = 0.1, 0.5
	p.Simulation.Logging = []string{"file.outputs.out"}
	p.Diagram.Blocks = []config.BlockConfig{{
		Name: "file", Category: "sources", Type: "file_source",
		Parameters: map[string]any{"file_path": "data.csv", "key": "u", "file_type": "csv"},
	}}
	p.Dir = dir

	e := New(p, nil)
	require.NoError(t, e.Setup())
	log, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 0, 0}, log.Scalars("file.outputs.out"))
}

func TestEnsembleReseeds(t *testing.T) {
	p := config.GetPreset("noise")
	p.Simulation.T = 0.5
	logs, err := RunEnsemble(context.Background(), p, nil, 3, 2)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.NotEqual(t, logs[0].Scalars("noise.outputs.out"), logs[1].Scalars("noise.outputs.out"))

	again, err := RunEnsemble(context.Background(), p, nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, logs[0].Scalars("noise.outputs.out"), again[0].Scalars("noise.outputs.out"))
	assert.Equal(t, 7, p.Diagram.Blocks[0].Parameters["seed"], "original project modified")
}

func TestWithParams(t *testing.T) {
	p := config.GetPreset("pid_loop")
	cp, err := WithParams(p, map[string]any{"pid.Kp": 4.0})
	require.NoError(t, err)

	b, _ := cp.Block("pid")
	assert.Equal(t, 4.0, b.Parameters["Kp"])
	orig, _ := p.Block("pid")
	assert.Equal(t, 2.0, orig.Parameters["Kp"])

	_, err = WithParams(p, map[string]any{"nope.Kp": 1.0})
	assert.Error(t, err)
	_, err = WithParams(p, map[string]any{"Kp": 1.0})
	assert.Error(t, err)
}

func TestParseOverride(t *testing.T) {
	k, v, err := ParseOverride("plant.A=[[0.5]]")
	require.NoError(t, err)
	assert.Equal(t, "plant.A", k)
	assert.Equal(t, []any{[]any{0.5}}, v)

	_, v, err = ParseOverride("pid.controller_type=PI")
	require.NoError(t, err)
	assert.Equal(t, "PI", v)

	_, _, err = ParseOverride("missing-equals")
	assert.Error(t, err)
}

package config

import "sort"

var presets = map[string]func() *Project{
	"integrator": func() *Project {
		p := newPreset("integrator", 0.1, 1.0)
		p.Diagram.Blocks = []BlockConfig{
			{Name: "step", Category: "sources", Type: "step", Parameters: map[string]any{
				"value_before": 0.0, "value_after": 1.0, "start_time": 0.1,
			}},
			{Name: "integ", Category: "operators", Type: "discrete_integrator", Parameters: map[string]any{
				"method": "euler forward",
			}},
		}
		p.Diagram.Connections = []Connection{Connect("step.out", "integ.in")}
		p.Simulation.Logging = []string{"step.outputs.out", "integ.outputs.out"}
		return p
	},
	"derivator": func() *Project {
		p := newPreset("derivator", 0.1, 1.0)
		p.Diagram.Blocks = []BlockConfig{
			{Name: "step", Category: "sources", Type: "step", Parameters: map[string]any{
				"value_before": 0.0, "value_after": 1.0, "start_time": 0.1,
			}},
			{Name: "der", Category: "operators", Type: "discrete_derivator"},
		}
		p.Diagram.Connections = []Connection{Connect("step.out", "der.in")}
		p.Simulation.Logging = []string{"step.outputs.out", "der.outputs.out"}
		return p
	},
	"pid_loop": func() *Project {
		p := newPreset("pid_loop", 0.01, 5.0)
		p.Diagram.Blocks = []BlockConfig{
			{Name: "ref", Category: "sources", Type: "step", Parameters: map[string]any{
				"value_before": 0.0, "value_after": 1.0, "start_time": 0.5,
			}},
			{Name: "error", Category: "operators", Type: "sum", Parameters: map[string]any{
				"signs": "+-",
			}},
			{Name: "pid", Category: "controllers", Type: "pid", Parameters: map[string]any{
				"controller_type": "PID", "Kp": 2.0, "Ki": 3.0, "Kd": 0.01, "u_min": -5.0, "u_max": 5.0,
			}},
			{Name: "plant", Category: "systems", Type: "linear_state_space", Parameters: map[string]any{
				"A": []any{[]any{0.98}}, "B": []any{[]any{0.02}}, "C": []any{[]any{1.0}}, "x0": 0.0,
			}},
		}
		p.Diagram.Connections = []Connection{
			Connect("ref.out", "error.in1"),
			Connect("plant.y", "error.in2"),
			Connect("error.out", "pid.e"),
			Connect("pid.u", "plant.u"),
		}
		p.Simulation.Logging = []string{"ref.outputs.out", "plant.outputs.y", "pid.outputs.u"}
		p.Simulation.Plots = []Plot{
			{Title: "tracking", Signals: []string{"ref.outputs.out", "plant.outputs.y"}},
			{Title: "command", Signals: []string{"pid.outputs.u"}},
		}
		p.Simulation.Metrics = []MetricConfig{
			{Kind: "peak", Signal: "plant.outputs.y"},
			{Kind: "control_effort", Signal: "pid.outputs.u"},
		}
		return p
	},
	"multirate": func() *Project {
		p := newPreset("multirate", 0.01, 2.0)
		p.Diagram.Blocks = []BlockConfig{
			{Name: "sine", Category: "sources", Type: "sinusoidal", Parameters: map[string]any{
				"amplitude": 1.0, "frequency": 2.0,
			}},
			{Name: "hold", Category: "operators", Type: "gain", Parameters: map[string]any{
				"gain": 1.0, "sample_time": 0.1,
			}},
			{Name: "delay", Category: "operators", Type: "delay", Parameters: map[string]any{
				"num_delays": 2, "sample_time": 0.05,
			}},
		}
		p.Diagram.Connections = []Connection{
			Connect("sine.out", "hold.in"),
			Connect("sine.out", "delay.in"),
		}
		p.Simulation.Logging = []string{"sine.outputs.out", "hold.outputs.out", "delay.outputs.out"}
		return p
	},
	"modulation": func() *Project {
		p := newPreset("modulation", 0.01, 3.0)
		p.Diagram.Blocks = []BlockConfig{
			{Name: "carrier", Category: "sources", Type: "sinusoidal", Parameters: map[string]any{
				"amplitude": 1.0, "frequency": 5.0,
			}},
			{Name: "gate", Category: "sources", Type: "function_source", Parameters: map[string]any{
				"function_name": "square",
			}},
			{Name: "mix", Category: "operators", Type: "algebraic_function", Parameters: map[string]any{
				"function_name": "product",
				"input_keys":    []any{"carrier", "gate"},
				"output_keys":   []any{"out"},
			}},
		}
		p.Diagram.Connections = []Connection{
			Connect("carrier.out", "mix.carrier"),
			Connect("gate.out", "mix.gate"),
		}
		p.Simulation.Logging = []string{"gate.outputs.out", "mix.outputs.out"}
		p.Simulation.Metrics = []MetricConfig{{Kind: "peak", Signal: "mix.outputs.out"}}
		return p
	},
	"noise": func() *Project {
		p := newPreset("noise", 0.01, 10.0)
		p.Diagram.Blocks = []BlockConfig{
			{Name: "noise", Category: "sources", Type: "white_noise", Parameters: map[string]any{
				"mean": 0.0, "std": 1.0, "seed": 7,
			}},
			{Name: "walk", Category: "operators", Type: "discrete_integrator"},
		}
		p.Diagram.Connections = []Connection{Connect("noise.out", "walk.in")}
		p.Simulation.Logging = []string{"noise.outputs.out", "walk.outputs.out"}
		p.Simulation.Metrics = []MetricConfig{{Kind: "rms", Signal: "noise.outputs.out"}}
		return p
	},
}

func newPreset(name string, dt, T float64) *Project {
	p := DefaultProject()
	p.Project.Name = name
	p.Simulation.Dt = dt
	p.Simulation.T = T
	return p
}

// GetPreset returns a fresh copy of a built-in project, or nil.
func GetPreset(name string) *Project {
	build, ok := presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package sim

import (
	"errors"
	"reflect"
	"testing"
)

func mustAdd(t *testing.T, m *Model, bs ...*fake) {
	t.Helper()
	for _, b := range bs {
		if err := m.AddBlock(b); err != nil {
			t.Fatal(err)
		}
	}
}

func mustConnect(t *testing.T, m *Model, src, dst string) {
	t.Helper()
	if err := m.Connect(src, "out", dst, "in"); err != nil {
		t.Fatal(err)
	}
}

func TestAddBlockDuplicate(t *testing.T) {
	m := NewModel("m")
	mustAdd(t, m, source("a", 1))
	err := m.AddBlock(source("a", 2))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestConnectErrors(t *testing.T) {
	tests := []struct {
		name                       string
		src, srcPort, dst, dstPort string
	}{
		{"unknown source", "nope", "out", "g", "in"},
		{"unknown destination", "s", "out", "nope", "in"},
		{"unknown output port", "s", "y", "g", "in"},
		{"unknown input port", "s", "out", "g", "u"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel("m")
			mustAdd(t, m, source("s", 1), comb("g", "in"))
			err := m.Connect(tt.src, tt.srcPort, tt.dst, tt.dstPort)
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Errorf("expected *ConfigurationError, got %v", err)
			}
		})
	}
}

func TestSingleWriter(t *testing.T) {
	m := NewModel("m")
	mustAdd(t, m, source("a", 1), source("b", 2), comb("g", "in"))
	mustConnect(t, m, "a", "g")
	if err := m.Connect("b", "out", "g", "in"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("second writer accepted: %v", err)
	}
	if len(m.Connections()) != 1 {
		t.Errorf("rejected connection was recorded")
	}
}

func TestFanOut(t *testing.T) {
	m := NewModel("m")
	mustAdd(t, m, source("s", 1), comb("g1", "in"), comb("g2", "in"))
	mustConnect(t, m, "s", "g1")
	mustConnect(t, m, "s", "g2")
	if got := m.Downstream("s"); !reflect.DeepEqual(got, []string{"g1", "g2"}) {
		t.Errorf("Downstream = %v", got)
	}
	if in := m.Inbound("g2"); len(in) != 1 || in[0].SrcBlock != "s" {
		t.Errorf("Inbound = %v", in)
	}
}

func TestExecutionOrderCategories(t *testing.T) {
	m := NewModel("m")
	// inserted so that insertion order differs from the expected order
	mustAdd(t, m,
		comb("g2", "in"),
		comb("g1", "in"),
		delay("z"),
		source("s", 1),
	)
	mustConnect(t, m, "s", "g1")
	mustConnect(t, m, "g1", "g2")
	mustConnect(t, m, "g2", "z")

	out, state, err := m.BuildExecutionOrder()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := names(out), []string{"z", "s", "g1", "g2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("output order = %v, want %v", got, want)
	}
	if got, want := names(state), []string{"z"}; !reflect.DeepEqual(got, want) {
		t.Errorf("state order = %v, want %v", got, want)
	}
}

func TestTieBreakInsertionOrder(t *testing.T) {
	m := NewModel("m")
	mustAdd(t, m, comb("c"), comb("a"), comb("b"))
	out, _, err := m.BuildExecutionOrder()
	if err != nil {
		t.Fatal(err)
	}
	if got := names(out); !reflect.DeepEqual(got, []string{"c", "a", "b"}) {
		t.Errorf("order = %v", got)
	}
}

func TestAlgebraicLoop(t *testing.T) {
	m := NewModel("m")
	mustAdd(t, m, comb("A", "in"), comb("B", "in"), comb("C", "in"))
	mustConnect(t, m, "A", "B")
	mustConnect(t, m, "B", "A")

	_, _, err := m.BuildExecutionOrder()
	var le *AlgebraicLoopError
	if !errors.As(err, &le) {
		t.Fatalf("expected *AlgebraicLoopError, got %v", err)
	}
	if !reflect.DeepEqual(le.Blocks, []string{"A", "B"}) {
		t.Errorf("loop blocks = %v", le.Blocks)
	}
	if !errors.Is(err, ErrAlgebraicLoop) {
		t.Error("errors.Is(ErrAlgebraicLoop) failed")
	}
}

func TestSelfLoop(t *testing.T) {
	m := NewModel("m")
	mustAdd(t, m, comb("A", "in"))
	mustConnect(t, m, "A", "A")
	if _, _, err := m.BuildExecutionOrder(); !errors.Is(err, ErrAlgebraicLoop) {
		t.Errorf("expected loop, got %v", err)
	}
}

func TestDelayBreaksLoop(t *testing.T) {
	m := NewModel("m")
	mustAdd(t, m, comb("A", "in"), delay("z"))
	mustConnect(t, m, "A", "z")
	mustConnect(t, m, "z", "A")
	out, _, err := m.BuildExecutionOrder()
	if err != nil {
		t.Fatal(err)
	}
	if got := names(out); !reflect.DeepEqual(got, []string{"z", "A"}) {
		t.Errorf("order = %v", got)
	}
}

func TestStatefulOnlyLoop(t *testing.T) {
	m := NewModel("m")
	mustAdd(t, m, delay("z1"), delay("z2"))
	mustConnect(t, m, "z1", "z2")
	mustConnect(t, m, "z2", "z1")
	if _, _, err := m.BuildExecutionOrder(); err != nil {
		t.Errorf("loop of delays should be schedulable: %v", err)
	}
}

func TestStatefulFeedthroughLoop(t *testing.T) {
	m := NewModel("m")
	d1 := newFake("d1", false, true, true, "in")
	d2 := newFake("d2", false, true, true, "in")
	mustAdd(t, m, d1, d2)
	mustConnect(t, m, "d1", "d2")
	mustConnect(t, m, "d2", "d1")
	if _, _, err := m.BuildExecutionOrder(); !errors.Is(err, ErrAlgebraicLoop) {
		t.Errorf("feedthrough loop should fail, got %v", err)
	}
}

func TestExecutionOrderCache(t *testing.T) {
	m := NewModel("m")
	mustAdd(t, m, source("s", 1))
	first, _, err := m.ExecutionOrder()
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, m, comb("g", "in"))
	second, _, err := m.ExecutionOrder()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 || len(second) != 2 {
		t.Errorf("cache not invalidated: %v then %v", names(first), names(second))
	}
}

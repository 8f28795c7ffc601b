package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/blocksim/internal/analysis"
	"github.com/san-kum/blocksim/internal/control"
	"github.com/san-kum/blocksim/internal/sim"
)

const (
	historyCapacity = 600
	frameRate       = 30
	nudgeStep       = 0.1
)

type TickMsg time.Time

// param is one live-tunable scalar of a block.
type param struct {
	block   string
	name    string
	target  control.Tunable
	initial float64
}

func (p param) value() float64 { return p.target.Params()[p.name] }

// Model is the bubbletea model of a running simulation. It steps the
// simulator on every tick and keeps a rolling history of the watched
// signals.
type Model struct {
	sim          *sim.Simulator
	title        string
	signals      []string
	shown        int
	history      map[string][]float64
	stepsPerTick int
	running      bool
	finished     bool
	err          error
	params       []param
	selected     int
	manuals      []*control.Manual
	manual       int
	phaseView    bool
	canvas       *Canvas
	showHelp     bool
	width        int
}

// NewModel initializes s and prepares a view of the given signal keys.
func NewModel(s *sim.Simulator, title string, signals []string) (Model, error) {
	if err := s.Initialize(); err != nil {
		return Model{}, err
	}
	m := Model{
		sim:          s,
		title:        title,
		signals:      signals,
		history:      make(map[string][]float64, len(signals)),
		stepsPerTick: 1,
		running:      true,
		canvas:       NewCanvas(40, 12),
		width:        60,
	}
	for _, b := range s.Model().Blocks() {
		if t, ok := b.(control.Tunable); ok {
			for _, name := range control.ParamNames(t) {
				m.params = append(m.params, param{block: b.Name(), name: name, target: t, initial: t.Params()[name]})
			}
		}
		if man, ok := b.(*control.Manual); ok {
			m.manuals = append(m.manuals, man)
		}
	}
	return m, nil
}

// SetStepsPerTick sets how many base steps run per frame.
func (m *Model) SetStepsPerTick(n int) {
	if n > 0 {
		m.stepsPerTick = n
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if !m.finished && m.err == nil {
				m.running = !m.running
			}
		case "r":
			m.reset()
		case "tab":
			if len(m.params) > 0 {
				m.selected = (m.selected + 1) % len(m.params)
			}
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "right", "l":
			m.nudge(nudgeStep)
		case "left", "h":
			m.nudge(-nudgeStep)
		case "m":
			if len(m.manuals) > 0 {
				m.manual = (m.manual + 1) % len(m.manuals)
			}
		case "s":
			if len(m.signals) > 0 {
				m.shown = (m.shown + 1) % len(m.signals)
			}
		case "p":
			m.phaseView = !m.phaseView
		case "n":
			if !m.running {
				m.advance(1)
			}
		case "t":
			nextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		m.width = max(20, msg.Width-60)
	case TickMsg:
		if m.running {
			m.advance(m.stepsPerTick)
		}
		return m, tick()
	}
	return m, nil
}

// done reports whether the final time has been reached.
func (m *Model) done() bool {
	T := m.sim.Config().T
	if math.IsInf(T, 1) {
		return false
	}
	return m.sim.Time()+1e-12*math.Max(1, math.Abs(T)) >= T
}

func (m *Model) advance(steps int) {
	for i := 0; i < steps; i++ {
		if m.done() {
			m.finished, m.running = true, false
			return
		}
		if err := m.sim.Step(); err != nil {
			m.err, m.running = err, false
			return
		}
		m.record()
	}
}

// current returns element (0,0) of a watched output, NaN while unset.
func (m *Model) current(key string) float64 {
	name, port, ok := sim.ParseSignalKey(key)
	if !ok {
		return math.NaN()
	}
	b, ok := m.sim.Model().Block(name)
	if !ok {
		return math.NaN()
	}
	v := b.Outputs().Get(port)
	if v == nil {
		return math.NaN()
	}
	return v.At(0, 0)
}

func (m *Model) record() {
	for _, key := range m.signals {
		h := append(m.history[key], m.current(key))
		if len(h) > historyCapacity {
			h = h[1:]
		}
		m.history[key] = h
	}
}

func (m *Model) adjustParam(factor float64) {
	if len(m.params) == 0 {
		return
	}
	p := m.params[m.selected]
	_ = p.target.SetParam(p.name, p.value()*factor)
}

func (m *Model) nudge(delta float64) {
	if len(m.manuals) == 0 {
		return
	}
	m.manuals[m.manual].Nudge(0, delta)
}

// reset restarts the run with the initial gains. Manual values are kept.
func (m *Model) reset() {
	for _, p := range m.params {
		_ = p.target.SetParam(p.name, p.initial)
	}
	m.err, m.finished = nil, false
	for k := range m.history {
		m.history[k] = m.history[k][:0]
	}
	if err := m.sim.Initialize(); err != nil {
		m.err, m.running = err, false
		return
	}
	m.running = true
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func (m Model) status(st styles) string {
	switch {
	case m.err != nil:
		return st.failed.Render("FAILED: " + m.err.Error())
	case m.finished:
		return st.finished.Render("FINISHED")
	case m.running:
		return st.running.Render("RUNNING")
	}
	return st.paused.Render("PAUSED")
}

func (m Model) plot(st styles) string {
	if len(m.signals) == 0 {
		return st.label.Render("no signals selected")
	}
	if m.phaseView && len(m.signals) >= 2 {
		xk, yk := m.signals[0], m.signals[1]
		portrait := analysis.NewPhasePortrait(xk, m.history[xk], yk, m.history[yk])
		m.canvas.Clear()
		m.canvas.Trace(portrait.Points)
		return st.graph.Render(m.canvas.String() + fmt.Sprintf("%s vs %s", yk, xk))
	}
	key := m.signals[m.shown]
	data := finite(m.history[key])
	if len(data) == 0 {
		return st.label.Render("waiting for " + key)
	}
	chart := asciigraph.Plot(data, asciigraph.Height(10), asciigraph.Width(m.width), asciigraph.Caption(key))
	return st.graph.Render(chart)
}

func (m Model) panel(st styles) string {
	var s strings.Builder
	cfg := m.sim.Config()
	s.WriteString(st.label.Render("Time") + st.value.Render(fmt.Sprintf("%.3fs", m.sim.Time())) + "\n")
	s.WriteString(st.label.Render("Steps") + st.value.Render(fmt.Sprintf("%d", m.sim.Steps())) + "\n")
	if !math.IsInf(cfg.T, 1) {
		frac := (m.sim.Time() - cfg.T0) / (cfg.T - cfg.T0)
		s.WriteString(st.label.Render("Progress") + ProgressBar(frac, 20) + "\n")
	}

	s.WriteString("\nSIGNALS\n")
	for i, key := range m.signals {
		h := m.history[key]
		last := math.NaN()
		if len(h) > 0 {
			last = h[len(h)-1]
		}
		line := fmt.Sprintf("%-22s %9.4f %s", key, last, Sparkline(h, 8))
		if i == m.shown {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.value.Render(line) + "\n")
		}
	}

	if len(m.params) > 0 {
		s.WriteString("\nGAINS\n")
		for i, p := range m.params {
			line := fmt.Sprintf("%s.%s = %.4g", p.block, p.name, p.value())
			if i == m.selected {
				s.WriteString(st.active.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + st.value.Render(line) + "\n")
			}
		}
	}
	if len(m.manuals) > 0 {
		s.WriteString("\nMANUAL\n")
		for i, man := range m.manuals {
			line := fmt.Sprintf("%s = %.3f", man.Name(), man.Value().At(0, 0))
			if i == m.manual {
				s.WriteString(st.active.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + st.value.Render(line) + "\n")
			}
		}
	}
	s.WriteString(st.help.Render("SP:pause N:step R:reset Q:quit\nS:signal P:phase T:theme ?:help"))
	return st.panel.Render(s.String())
}

const helpText = `
  Space    pause or resume
  N        single step while paused
  R        restart with the initial gains
  S        cycle the plotted signal
  P        toggle phase view of the first two signals
  Tab      select the next gain
  Up/K     increase the gain by 5%
  Down/J   decrease the gain by 5%
  M        select the next manual input
  Left/H   decrease the manual input
  Right/L  increase the manual input
  T        cycle themes
  Q        quit
`

func (m Model) View() string {
	st := themed()
	head := st.header.Render(strings.ToUpper(m.title)) + "  " + m.status(st)
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.plot(st), "  ", m.panel(st))
	if m.showHelp {
		return head + "\n" + st.help.Render(helpText) + "\n" + body
	}
	return head + "\n\n" + body
}

// RunLive runs the model until the user quits.
func RunLive(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

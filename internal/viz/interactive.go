package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/blocksim/internal/config"
	"github.com/san-kum/blocksim/internal/experiment"
)

// picker lists the built-in projects and hands the chosen one to a live
// view.
type picker struct {
	presets  []string
	cursor   int
	registry *experiment.Registry
	live     *Model
	err      error
}

func NewPicker(r *experiment.Registry) tea.Model {
	return picker{presets: config.ListPresets(), registry: r}
}

func (p picker) Init() tea.Cmd { return nil }

func (p picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if p.live != nil {
		next, cmd := p.live.Update(msg)
		live := next.(Model)
		p.live = &live
		return p, cmd
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.presets)-1 {
			p.cursor++
		}
	case "enter":
		return p.start()
	}
	return p, nil
}

func (p picker) start() (tea.Model, tea.Cmd) {
	project := config.GetPreset(p.presets[p.cursor])
	exp := experiment.New(project, p.registry)
	if err := exp.Setup(); err != nil {
		p.err = err
		return p, nil
	}
	live, err := NewModel(exp.Simulator(), project.Project.Name, project.PlotSignals())
	if err != nil {
		p.err = err
		return p, nil
	}
	p.live = &live
	return p, live.Init()
}

func (p picker) View() string {
	if p.live != nil {
		return p.live.View()
	}
	st := themed()
	var s strings.Builder
	s.WriteString(st.header.Render("BLOCKSIM") + "\n\n")
	for i, name := range p.presets {
		project := config.GetPreset(name)
		line := fmt.Sprintf("%-12s %d blocks, dt=%g, T=%g", name,
			len(project.Diagram.Blocks), project.Simulation.Dt, project.Simulation.T)
		if i == p.cursor {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.value.Render(line) + "\n")
		}
	}
	if p.err != nil {
		s.WriteString("\n" + st.failed.Render(p.err.Error()) + "\n")
	}
	s.WriteString(st.help.Render("\n↑↓:select Enter:run Q:quit"))
	return s.String()
}

// RunInteractive starts the preset picker.
func RunInteractive(r *experiment.Registry) error {
	_, err := tea.NewProgram(NewPicker(r), tea.WithAltScreen()).Run()
	return err
}

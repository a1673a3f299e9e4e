package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/RazorBest/Pendulum-Sandbox/internal/config"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	pink   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("#444455"))
	keyHi  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
	title  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
)

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// pickerParam is one scene setting the picker can nudge before starting.
type pickerParam struct {
	name string
	step float64
	get  func(*config.Config) float64
	set  func(*config.Config, float64)
}

var pickerParams = []pickerParam{
	{"friction", 0.01,
		func(c *config.Config) float64 { return c.Friction },
		func(c *config.Config, v float64) { c.Friction = max(0, v) }},
	{"dt", 0.0005,
		func(c *config.Config) float64 { return c.Dt },
		func(c *config.Config, v float64) { c.Dt = max(0.0001, v) }},
	{"gravity", 0.5,
		func(c *config.Config) float64 { return c.Gravity },
		func(c *config.Config, v float64) { c.Gravity = v }},
	{"scale", 10,
		func(c *config.Config) float64 { return c.Scale },
		func(c *config.Config, v float64) { c.Scale = max(1, v) }},
}

// Picker lists the presets, lets the user tweak a few settings and then
// hands over to the live view.
type Picker struct {
	state       int
	cursor      int
	presets     []string
	selected    string
	cfg         *config.Config
	paramCursor int
	log         *log.Logger
	opts        Options
	live        Model
	err         error
}

func NewPicker(logger *log.Logger, opts Options) Picker {
	opts.Logger = logger
	return Picker{
		state:   stateMenu,
		presets: config.ListPresets(),
		log:     logger,
		opts:    opts,
	}
}

func (m Picker) Init() tea.Cmd { return nil }

func (m Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateSim {
		next, cmd := m.live.Update(msg)
		m.live = next.(Model)
		return m, cmd
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch m.state {
		case stateMenu:
			return m.menuKey(msg)
		case stateConfig:
			return m.configKey(msg)
		}
	}
	return m, nil
}

func (m Picker) menuKey(msg tea.KeyMsg) (Picker, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.presets[m.cursor]
		m.cfg = config.GetPreset(m.selected)
		m.state, m.paramCursor = stateConfig, 0
	}
	return m, nil
}

func (m Picker) configKey(msg tea.KeyMsg) (Picker, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.state, m.err = stateMenu, nil
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(pickerParams)-1 {
			m.paramCursor++
		}
	case "left", "h":
		p := pickerParams[m.paramCursor]
		p.set(m.cfg, p.get(m.cfg)-p.step)
	case "right", "l":
		p := pickerParams[m.paramCursor]
		p.set(m.cfg, p.get(m.cfg)+p.step)
	case "enter", "s":
		return m.start()
	}
	return m, nil
}

func (m Picker) start() (Picker, tea.Cmd) {
	s, err := m.cfg.Build(m.log)
	if err != nil {
		m.err = err
		return m, nil
	}
	opts := m.opts
	opts.Title = m.selected
	opts.SampleEvery = m.cfg.SampleEvery
	live, err := NewModel(s, opts)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.live, m.state = live, stateSim
	return m, live.Init()
}

func (m Picker) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.live.View()
	}
	return ""
}

func hints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(keyHi.Render(pairs[i]) + dim.Render(" "+pairs[i+1]+"  "))
	}
	return b.String()
}

func (m Picker) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + title.Render("PENDULUM SANDBOX") + "\n    " + dim.Render("multi-link pendulum dynamics") + "\n    " + dim.Render("─────────────────────────") + "\n\n")
	for i, name := range m.presets {
		desc := config.Describe(config.Presets[name])
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", cyan.Render("▸"), white.Render(fmt.Sprintf("%-10s", name)), pink.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", dim.Render(fmt.Sprintf("  %-10s", name)), dimmer.Render(desc)))
		}
	}
	b.WriteString("\n    " + hints("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (m Picker) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + title.Render(strings.ToUpper(m.selected)) + "\n    " + dim.Render(config.Describe(m.cfg)) + "\n    " + dim.Render("─────────────────────────") + "\n\n")
	for i, p := range pickerParams {
		val := fmt.Sprintf("%8.4g", p.get(m.cfg))
		if i == m.paramCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", cyan.Render("▸"), white.Render(fmt.Sprintf("%-10s", p.name)), pink.Bold(true).Render(val)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", dim.Render(fmt.Sprintf("  %-10s", p.name)), dimmer.Render(val)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + StatusFault.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + hints("j/k", "select", "h/l", "adjust", "s", "start", "esc", "back") + "\n")
	return b.String()
}

// RunInteractive starts the preset picker full screen.
func RunInteractive(logger *log.Logger, opts Options) error {
	_, err := tea.NewProgram(NewPicker(logger, opts), tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

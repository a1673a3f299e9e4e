package viz

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"

	"github.com/RazorBest/Pendulum-Sandbox/internal/export"
	"github.com/RazorBest/Pendulum-Sandbox/internal/metrics"
	"github.com/RazorBest/Pendulum-Sandbox/internal/pendulum"
	"github.com/RazorBest/Pendulum-Sandbox/internal/scene"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	trailCapacity   = 120
	frameRate       = 60
	frictionStep    = 0.01
)

// Parameters the arrow keys tune on the selected pendulum.
var tunable = []string{"gravity", "scale", "dt"}

type TickMsg time.Time

type Options struct {
	Title       string
	Logger      *log.Logger
	SampleEvery int
	// OutDir receives GIF recordings and SVG frames.
	OutDir string
	Theme  string
}

// Model is the live view of one scene.
type Model struct {
	scene     *scene.Scene
	log       *log.Logger
	title     string
	tracker   *metrics.EnergyTracker
	stability *metrics.Stability

	canvas *Canvas
	view   Viewport
	theme  Theme
	trails map[int][]pendulum.Point

	param         int
	initialParams map[int]map[string]float64

	dragging   int
	isDragging bool
	hovered    int
	hasHover   bool

	nextBob       int
	pendingSelect int
	hasPending    bool

	recorder  *Recorder
	recording bool
	showHelp  bool
	outDir    string
	status    string
}

// NewModel wraps s in a live view and starts it.
func NewModel(s *scene.Scene, opts Options) (Model, error) {
	if opts.SampleEvery < 1 {
		opts.SampleEvery = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.OutDir == "" {
		opts.OutDir = "."
	}

	tracker, err := metrics.NewEnergyTracker(s.TotalProbe(), opts.SampleEvery, historyCapacity)
	if err != nil {
		return Model{}, err
	}

	m := Model{
		scene:         s,
		log:           opts.Logger,
		title:         opts.Title,
		tracker:       tracker,
		stability:     metrics.NewStability(),
		canvas:        NewCanvas(width, height),
		theme:         GetTheme(opts.Theme),
		trails:        make(map[int][]pendulum.Point),
		initialParams: make(map[int]map[string]float64),
		recorder:      NewRecorder(),
		outDir:        opts.OutDir,
		nextBob:       1,
	}

	snaps := s.Snapshot()
	for _, c := range snaps {
		for _, b := range c.Bobs {
			m.nextBob = max(m.nextBob, b.ID+1)
		}
	}
	m.fit(snaps)
	if _, ok := s.Selected(); !ok {
		s.SelectNext()
	}
	tracker.Observe()
	s.Start()
	return m, nil
}

func (m *Model) fit(snaps []scene.ChainSnapshot) {
	w, h := m.canvas.Size()
	m.view = FitViewport(snaps, w, h)
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and advances the scene on frame ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.finishRecording()
			m.scene.Stop()
			return m, tea.Quit
		}
		m.handleKey(msg.String())
	case tea.MouseMsg:
		m.handleMouse(msg)
	case TickMsg:
		m.frame()
		return m, tick()
	}
	return m, nil
}

// frame runs one display frame: scene tick, sampling, trails.
func (m *Model) frame() {
	r := m.scene.Tick()
	m.stability.Observe(r)
	for _, id := range r.Faults() {
		m.status = fmt.Sprintf("pendulum %d faulted, press r to reset", id)
	}
	for _, err := range r.QueueErrors {
		m.status = err.Error()
	}

	if m.hasPending && m.scene.Select(m.pendingSelect) == nil {
		m.hasPending = false
	}
	if _, ok := m.scene.Selected(); !ok {
		m.scene.SelectNext()
	}

	m.tracker.Tick()

	snaps := m.scene.Snapshot()
	live := make(map[int]bool, len(snaps))
	for _, c := range snaps {
		live[c.ID] = true
		if len(c.Points) < 2 || c.Fault != nil {
			continue
		}
		tr := append(m.trails[c.ID], c.Points[len(c.Points)-1])
		if len(tr) > trailCapacity {
			tr = tr[len(tr)-trailCapacity:]
		}
		m.trails[c.ID] = tr
	}
	for id := range m.trails {
		if !live[id] {
			delete(m.trails, id)
		}
	}

	if m.recording {
		m.draw(snaps)
		m.recorder.Capture(m.canvas)
	}
}

func (m *Model) handleKey(key string) {
	sel, hasSel := m.scene.Selected()

	switch key {
	case " ":
		m.scene.SetPaused(!m.scene.Paused())
	case "s":
		if m.scene.Running() {
			m.scene.Stop()
		} else {
			m.scene.Start()
		}
	case ".":
		if m.scene.Paused() || !m.scene.Running() {
			m.stability.Observe(m.scene.Step())
		}
	case "r":
		m.reset()
	case "tab":
		m.scene.SelectNext()
	case "+", "=":
		m.scene.SetFriction(m.scene.Friction() + frictionStep)
	case "-", "_":
		m.scene.SetFriction(max(0, m.scene.Friction()-frictionStep))
	case "p":
		m.param = (m.param + 1) % len(tunable)
	case "up", "k":
		if hasSel {
			m.adjustParam(sel, 1.05)
		}
	case "down", "j":
		if hasSel {
			m.adjustParam(sel, 0.95)
		}
	case "a":
		if hasSel {
			m.addBob(sel)
		}
	case "x":
		if hasSel {
			m.removeBob(sel)
		}
	case "n":
		m.addPendulum()
	case "d":
		if hasSel {
			m.report(m.scene.RemovePendulum(sel))
		}
	case "f":
		m.fit(m.scene.Snapshot())
	case "t":
		m.theme = NextTheme(m.theme)
	case "g":
		if m.recording {
			m.finishRecording()
		} else {
			m.recording = true
			m.status = "recording"
		}
	case "e":
		m.exportSVG()
	case "?":
		m.showHelp = !m.showHelp
	}
}

func (m *Model) report(err error) {
	if err != nil {
		m.status = err.Error()
		m.log.Warn("edit rejected", "err", err)
	}
}

func (m *Model) adjustParam(id int, factor float64) {
	params, err := m.scene.Params(id)
	if err != nil {
		m.report(err)
		return
	}
	if _, ok := m.initialParams[id]; !ok {
		m.initialParams[id] = params
	}
	key := tunable[m.param]
	m.report(m.scene.SetParam(id, key, params[key]*factor))
}

func (m *Model) addBob(id int) {
	p := pendulum.DefaultBobParams()
	p.Length *= 0.6
	p.Angle = 0.5
	if err := m.scene.AddBob(id, m.nextBob, p); err != nil {
		m.report(err)
		return
	}
	m.nextBob++
}

func (m *Model) removeBob(id int) {
	bobs, err := m.scene.Bobs(id)
	if err != nil || len(bobs) == 0 {
		m.report(err)
		return
	}
	m.report(m.scene.RemoveBob(id, bobs[len(bobs)-1].ID))
}

func (m *Model) addPendulum() {
	offset := float64(m.scene.Len()%5-2) * 60 * m.view.Scale
	x := m.view.CenterX + offset
	y := m.view.CenterY - float64(m.view.H)/4*m.view.Scale

	dt := 0.001
	if sel, ok := m.scene.Selected(); ok {
		if params, err := m.scene.Params(sel); err == nil {
			dt = params["dt"]
		}
	}
	id, err := m.scene.NewPendulum(x, y, dt)
	if err != nil {
		m.report(err)
		return
	}
	m.addBob(id)
	m.pendingSelect, m.hasPending = id, true
}

// reset restores every pendulum to its checkpoint and clears the histories.
func (m *Model) reset() {
	m.scene.Reset()
	clear(m.trails)
	m.tracker.Reset()
	m.tracker.Observe()
	m.stability.Reset()
	for id, params := range m.initialParams {
		for k, v := range params {
			m.scene.SetParam(id, k, v)
		}
	}
	m.status = "reset"
}

func (m *Model) finishRecording() {
	if !m.recording {
		return
	}
	m.recording = false
	path := filepath.Join(m.outDir, fmt.Sprintf("pendulum_%d.gif", time.Now().Unix()))
	if err := m.recorder.Save(path); err != nil {
		m.report(err)
		return
	}
	m.status = "saved " + path
	m.log.Info("recording saved", "path", path)
}

func (m *Model) exportSVG() {
	path := filepath.Join(m.outDir, fmt.Sprintf("pendulum_%d.svg", time.Now().Unix()))
	svg := export.SceneSVG(m.scene.Snapshot(), m.trails, 800, 600)
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		m.report(err)
		return
	}
	m.status = "saved " + path
	m.log.Info("frame exported", "path", path)
}

// cellToCanvas maps a terminal cell to the sub-pixel at its center.
func cellToCanvas(col, row int) (int, int) {
	col -= canvasStyle.GetPaddingLeft()
	row -= canvasStyle.GetPaddingTop()
	return col*2 + 1, row*4 + 2
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	x, y := cellToCanvas(msg.X, msg.Y)
	p := m.view.ToScene(x, y)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		hit, ok := m.scene.HitTest(p.X, p.Y)
		if !ok {
			return
		}
		m.scene.Select(hit.Pendulum)
		if hit.Pivot {
			m.dragging, m.isDragging = hit.Pendulum, true
		}
	case tea.MouseActionMotion:
		if m.isDragging {
			m.report(m.scene.SetPivot(m.dragging, p.X, p.Y))
			return
		}
		m.updateHover(p)
	case tea.MouseActionRelease:
		m.isDragging = false
	}
}

func (m *Model) updateHover(p pendulum.Point) {
	hit, ok := m.scene.HitTest(p.X, p.Y)
	if m.hasHover && (!ok || hit.Pendulum != m.hovered) {
		m.scene.SetHovered(m.hovered, false)
		m.hasHover = false
	}
	if ok {
		m.scene.SetHovered(hit.Pendulum, true)
		m.hovered, m.hasHover = hit.Pendulum, true
	}
}

func (m *Model) draw(snaps []scene.ChainSnapshot) {
	m.canvas.Clear()

	for _, tr := range m.trails {
		for _, p := range tr {
			m.canvas.Set(m.view.ToCanvas(p))
		}
	}

	bobR := m.view.Radius(pendulum.BobRadius)
	pivotR := m.view.Radius(pendulum.PivotRadius / 2)
	for _, c := range snaps {
		for i := 1; i < len(c.Points); i++ {
			x0, y0 := m.view.ToCanvas(c.Points[i-1])
			x1, y1 := m.view.ToCanvas(c.Points[i])
			m.canvas.DrawLine(x0, y0, x1, y1)
		}
		px, py := m.view.ToCanvas(c.Pivot)
		m.canvas.DrawCircle(px, py, pivotR)

		for _, p := range c.Points[1:] {
			x, y := m.view.ToCanvas(p)
			switch {
			case c.Selected:
				m.canvas.FillCircle(x, y, bobR)
			case c.Hovered:
				m.canvas.DrawCircle(x, y, bobR)
				m.canvas.DrawCircle(x, y, bobR+1)
			default:
				m.canvas.DrawCircle(x, y, bobR)
			}
		}
	}
}

func (m Model) statusLine(snaps []scene.ChainSnapshot) string {
	var parts []string
	switch {
	case !m.scene.Running():
		parts = append(parts, StatusPaused.Render("STOPPED"))
	case m.scene.Paused():
		parts = append(parts, StatusPaused.Render("PAUSED"))
	default:
		parts = append(parts, StatusRunning.Render("RUNNING"))
	}
	if m.recording {
		parts = append(parts, StatusRecording.Render(fmt.Sprintf("● REC %d", m.recorder.Len())))
	}
	for _, c := range snaps {
		if c.Fault != nil {
			parts = append(parts, StatusFault.Render(fmt.Sprintf("FAULT #%d", c.ID)))
		}
	}
	return strings.Join(parts, " ")
}

// View renders the canvas and the stats panel side by side.
func (m Model) View() string {
	snaps := m.scene.Snapshot()
	m.draw(snaps)

	canvasView := canvasStyle.Render(lipgloss.NewStyle().Foreground(m.theme.Primary).Render(m.canvas.String()))

	var s strings.Builder
	title := m.title
	if title == "" {
		title = "pendulum"
	}
	s.WriteString(headerStyle.Foreground(m.theme.Accent).Render(strings.ToUpper(title)) + "\n")
	s.WriteString(m.statusLine(snaps) + "\n\n")

	total := m.tracker.Total()
	if len(total) > 1 {
		chart := asciigraph.Plot(total, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Total energy (J)"))
		s.WriteString(graphStyle.Render(chart) + "\n")
		s.WriteString(labelStyle.Render("Kinetic") + SparklineChart(m.tracker.Kinetic(), 30) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Pendulums", fmt.Sprintf("%d", len(snaps)))
	row("Friction", fmt.Sprintf("%.3f", m.scene.Friction()))
	row("Drift", fmt.Sprintf("%.3f%%", 100*m.tracker.MaxDrift()))
	row("Stability", fmt.Sprintf("%.1f%%", 100*m.stability.Value()))

	sel, hasSel := m.scene.Selected()
	if hasSel {
		for _, c := range snaps {
			if c.ID != sel {
				continue
			}
			s.WriteString("\n" + activeParamStyle.Render(fmt.Sprintf("PENDULUM #%d", c.ID)) + "\n")
			row("Bobs", fmt.Sprintf("%d", len(c.Bobs)))
			row("Kinetic", fmt.Sprintf("%.3f J", c.Kinetic))
			row("Potential", fmt.Sprintf("%.3f J", c.Potential))
			row("Total", fmt.Sprintf("%.3f J", c.Total()))
		}

		if params, err := m.scene.Params(sel); err == nil {
			initial, ok := m.initialParams[sel]
			if !ok {
				initial = params
			}
			s.WriteString("\nPARAMETERS\n")
			for i, k := range tunable {
				line := fmt.Sprintf("%-8s %s %.4g", k, ParamBar(params[k], initial[k], 10), params[k])
				if i == m.param {
					s.WriteString(activeParamStyle.Render("> "+line) + "\n")
				} else {
					s.WriteString("  " + labelStyle.UnsetWidth().Render(line) + "\n")
				}
			}
		}
	}

	if m.status != "" {
		s.WriteString("\n" + Subtle.Render(m.status) + "\n")
	}
	s.WriteString(helpStyle.Render("─────────────────────\nSP:Pause S:Start/Stop R:Reset Q:Quit\nTab:Select +/-:Friction P/↑↓:Tune\nA/X:Bob N/D:Pendulum ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n\n" + mainView
	}
	return mainView
}

const helpOverlay = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  S        - Start/Stop               ║
║  .        - Single step              ║
║  R        - Reset to checkpoint      ║
║  Tab      - Select next pendulum     ║
║  +/-      - Friction up/down         ║
║  P        - Cycle parameter          ║
║  Up/K     - Increase parameter (+5%) ║
║  Down/J   - Decrease parameter (-5%) ║
║  A/X      - Add/remove bob           ║
║  N/D      - New/delete pendulum      ║
║  F        - Fit view                 ║
║  T        - Cycle themes             ║
║  G        - Toggle GIF recording     ║
║  E        - Export frame as SVG      ║
║  Q        - Quit                     ║
║  Mouse    - Select, drag pivots      ║
╚══════════════════════════════════════╝`

// Run shows the model full screen with mouse support until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

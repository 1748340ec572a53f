package viz

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/sphlab/internal/config"
	"github.com/san-kum/sphlab/internal/metrics"
	"github.com/san-kum/sphlab/internal/scenario"
)

const (
	canvasWidth     = 80
	canvasHeight    = 22
	historyCapacity = 600
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(40)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// scatterFields are the per-particle scalars selectable as the vertical
// axis of the 1D view.
var scatterFields = []string{"rho", "p", "e"}

// Model runs the simulation and renders it at the tick rate.
type Model struct {
	cfg *config.Config
	log *slog.Logger
	sim *scenario.Sim

	canvas       *Canvas
	mets         []metrics.Metric
	history      []float64
	field        int
	stepsPerTick int
	running      bool
	err          error
}

// NewModel seeds the configured scenario and prepares the live view.
func NewModel(cfg *config.Config, log *slog.Logger) (Model, error) {
	sim, err := scenario.New(cfg, log)
	if err != nil {
		return Model{}, err
	}
	return Model{
		cfg:          cfg,
		log:          log,
		sim:          sim,
		canvas:       NewCanvas(canvasWidth, canvasHeight),
		mets:         metrics.Standard(),
		history:      make([]float64, 0, historyCapacity),
		stepsPerTick: 10,
		running:      true,
	}, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "e":
			m.field = (m.field + 1) % len(scatterFields)
		}
		return m, nil

	case TickMsg:
		if m.running && m.err == nil && !m.sim.Done() {
			m.step()
		}
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) step() {
	ctx := context.Background()
	for i := 0; i < m.stepsPerTick; i++ {
		if err := m.sim.Step(ctx); err != nil {
			m.err = err
			return
		}
	}
	for _, met := range m.mets {
		met.Observe(m.sim.Fluid(), m.sim.Time())
	}
	if len(m.history) == historyCapacity {
		m.history = m.history[1:]
	}
	m.history = append(m.history, m.mets[0].Value())
}

func (m *Model) reset() {
	sim, err := scenario.New(m.cfg, m.log)
	if err != nil {
		m.err = err
		return
	}
	m.sim = sim
	m.err = nil
	m.history = m.history[:0]
	for _, met := range m.mets {
		met.Reset()
	}
}

func (m Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("simulation failed: %v\n\npress q to quit\n", m.err)
	}

	m.draw()

	stats := m.statsView()
	main := lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(m.canvas.String()),
		statsStyle.Render(stats),
	)

	graph := ""
	if len(m.history) > 1 {
		graph = graphStyle.Render(asciigraph.Plot(m.history,
			asciigraph.Height(7),
			asciigraph.Width(70),
			asciigraph.Caption("kinetic energy"),
		))
	}

	help := helpStyle.Render("space pause · r reset · e field · q quit")
	return lipgloss.JoinVertical(lipgloss.Left, main, graph, help)
}

func (m Model) statsView() string {
	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
	}

	s := headerStyle.Render("sphlab · "+m.cfg.Scenario) + "\n"
	s += row("t", fmt.Sprintf("%.4f / %.4f", m.sim.Time(), m.cfg.Duration))
	s += row("step", fmt.Sprintf("%d", m.sim.StepCount()))
	s += row("particles", fmt.Sprintf("%d", m.sim.Fluid().Len()))
	s += row("kernel", m.cfg.Kernel)
	if m.cfg.Dim == 1 {
		s += row("field", scatterFields[m.field])
	}
	status := "running"
	if !m.running {
		status = "paused"
	}
	if m.sim.Done() {
		status = "done"
	}
	s += row("status", status) + "\n"

	for _, met := range m.mets {
		s += row(met.Name(), fmt.Sprintf("%.5g", met.Value()))
	}
	return s
}

// draw renders the particles: a profile of the selected field for 1D
// runs, a position scatter otherwise.
func (m Model) draw() {
	m.canvas.Clear()
	fluid := m.sim.Fluid()

	xs, err := fluid.Floats("x")
	if err != nil {
		return
	}
	var ys []float64
	if m.cfg.Dim == 1 {
		ys, err = fluid.Floats(scatterFields[m.field])
	} else {
		ys, err = fluid.Floats("y")
	}
	if err != nil {
		return
	}

	xmin, xmax := bounds(xs)
	ymin, ymax := bounds(ys)
	if m.cfg.Dim == 1 {
		ymin = math.Min(ymin, 0)
	}
	m.canvas.Plot(xs, ys, xmin, xmax, ymin, ymax)
}

// bounds pads the data extent so edge particles stay visible.
func bounds(vals []float64) (lo, hi float64) {
	if len(vals) == 0 {
		return 0, 1
	}
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := 0.05 * (hi - lo)
	if pad == 0 {
		pad = 0.5
	}
	return lo - pad, hi + pad
}

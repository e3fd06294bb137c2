package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/ole-kvern/buoysim/internal/engine"
)

const (
	canvasWidth     = 44
	canvasHeight    = 22
	historyCapacity = 600
)

var (
	canvasStyle  = lipgloss.NewStyle().Padding(1, 2)
	statsStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(48)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	alertStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	engagedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Bold(true)
	graphStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// Model is the dashboard state. The engine runs in its own goroutine; the
// model only reads snapshots and queues commands.
type Model struct {
	eng          *engine.Engine
	canvas       *Canvas
	snap         *engine.Snapshot
	powerHistory []float64
}

func NewModel(eng *engine.Engine) Model {
	return Model{
		eng:          eng,
		canvas:       NewCanvas(canvasWidth, canvasHeight),
		snap:         eng.Latest(),
		powerHistory: make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and pulls the latest engine snapshot.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.eng.Running() {
				m.eng.Apply(engine.Pause{})
			} else {
				m.eng.Apply(engine.Resume{})
			}
		case "r":
			m.eng.Apply(engine.Reset{})
			m.powerHistory = m.powerHistory[:0]
		case "m":
			m.toggleMode()
		case "n":
			m.eng.Apply(engine.ToggleEffect{Name: "nanobubble", Enabled: !m.eng.Config().Effects.NanobubbleEnabled})
		case "t":
			m.eng.Apply(engine.ToggleEffect{Name: "thermal", Enabled: !m.eng.Config().Effects.ThermalEnabled})
		case "+", "=":
			m.eng.Apply(engine.SetFloaterCount{N: len(m.snap.Floaters) + 1})
		case "-", "_":
			m.eng.Apply(engine.SetFloaterCount{N: len(m.snap.Floaters) - 1})
		}
	case TickMsg:
		m.snap = m.eng.Latest()
		m.powerHistory = append(m.powerHistory, m.snap.OutputPower)
		if len(m.powerHistory) > historyCapacity {
			m.powerHistory = m.powerHistory[1:]
		}
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) toggleMode() {
	cfg := m.eng.Config()
	cmd := engine.SetGeneratorMode{
		TargetSpeed:  cfg.Generator.TargetSpeed,
		TargetTorque: cfg.Generator.TargetTorque,
		Kp:           cfg.Generator.Kp,
		Ki:           cfg.Generator.Ki,
	}
	if cfg.Generator.Mode == "speed" {
		cmd.Mode = "torque"
	} else {
		cmd.Mode = "speed"
	}
	m.eng.Apply(cmd)
}

// drawLoop renders the floater ring: bottom of the circle is the injection
// station, the right half is the ascending column.
func (m *Model) drawLoop() {
	m.canvas.Clear()
	cw, ch := canvasWidth*2, canvasHeight*4
	cx, cy := cw/2, ch/2
	r := float64(ch)/2 - 6
	const aspect = 1.0

	m.canvas.DrawCircle(cx, cy, r, aspect)
	for _, f := range m.snap.Floaters {
		x := cx + int(r*aspect*math.Sin(f.LoopPosition))
		y := cy + int(r*math.Cos(f.LoopPosition))
		size := 1
		if f.FillFraction > 0.5 {
			size = 2 // buoyant floaters draw fat
		}
		m.canvas.DrawDot(x, y, size)
	}
	// station markers: stems pointing at the injection (bottom) and vent
	// (top) positions
	m.canvas.DrawLine(cx, cy+int(r)+1, cx, cy+int(r)+4)
	m.canvas.DrawLine(cx, cy-int(r)-1, cx, cy-int(r)-4)
	m.canvas.DrawDot(cx, cy+int(r)+4, 0)
	m.canvas.DrawDot(cx, cy-int(r)-4, 0)
}

// View renders the dashboard.
func (m Model) View() string {
	m.drawLoop()
	canvasView := canvasStyle.Render(m.canvas.String())

	snap := m.snap
	var s strings.Builder
	s.WriteString(headerStyle.Render("BUOYSIM") + "\n")

	status := "RUNNING"
	if !snap.Running {
		status = "PAUSED"
	}
	s.WriteString(status + "\n\n")

	if len(m.powerHistory) > 1 {
		chart := asciigraph.Plot(m.powerHistory, asciigraph.Height(5), asciigraph.Width(34), asciigraph.Caption("Output power [W]"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2f s", snap.Time)) + "\n")
	s.WriteString(labelStyle.Render("Chain speed") + valueStyle.Render(fmt.Sprintf("%.3f rad/s", snap.OmegaChain)) + "\n")
	s.WriteString(labelStyle.Render("Gen speed") + valueStyle.Render(fmt.Sprintf("%.3f rad/s", snap.OmegaGen)) + "\n")
	s.WriteString(labelStyle.Render("Chain torque") + valueStyle.Render(fmt.Sprintf("%.1f Nm", snap.ChainTorque)) + "\n")
	s.WriteString(labelStyle.Render("Load torque") + valueStyle.Render(fmt.Sprintf("%.1f Nm", snap.LoadTorque)) + "\n")
	s.WriteString(labelStyle.Render("Output power") + valueStyle.Render(fmt.Sprintf("%.1f W", snap.OutputPower)) + "\n")
	s.WriteString(labelStyle.Render("Mean power") + valueStyle.Render(fmt.Sprintf("%.1f W", snap.Stats.MeanPower)) + "\n")
	s.WriteString(labelStyle.Render("Tank") + valueStyle.Render(fmt.Sprintf("%.0f kPa", snap.TankPressure/1000)) + "\n")

	clutch := "disengaged"
	if snap.ClutchEngaged {
		clutch = engagedStyle.Render("ENGAGED")
	}
	s.WriteString(labelStyle.Render("Clutch") + clutch + "\n")
	if snap.Diag.OverloadActive {
		s.WriteString(alertStyle.Render("GENERATOR OVERLOAD") + "\n")
	}
	if snap.Diag.SkippedTicks > 0 {
		s.WriteString(labelStyle.Render("Skipped ticks") + alertStyle.Render(fmt.Sprintf("%d", snap.Diag.SkippedTicks)) + "\n")
	}

	s.WriteString("\nFLOATERS\n")
	for _, f := range snap.Floaters {
		s.WriteString(fmt.Sprintf("  %2d %s %s %-10s\n", f.ID, fillBar(f.FillFraction, 10), dirGlyph(f.Direction), f.Valve))
	}

	s.WriteString(helpStyle.Render("SP:Pause R:Reset M:Mode Q:Quit\nN:Nanobubble T:Thermal +/-:Floaters"))
	statsView := statsStyle.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
}

func fillBar(fill float64, width int) string {
	if fill < 0 {
		fill = 0
	}
	if fill > 1 {
		fill = 1
	}
	filled := int(fill * float64(width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

func dirGlyph(dir float64) string {
	if dir > 0 {
		return "↑"
	}
	return "↓"
}

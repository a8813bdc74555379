package viz

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/stipple/internal/driver"
	"github.com/san-kum/stipple/internal/metrics"
	"github.com/san-kum/stipple/internal/sim"
)

const (
	width           = 60
	height          = 24
	historyCapacity = 300
	maxStepsPerTick = 64
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// LiveOptions configure a Model.
type LiveOptions struct {
	Stepper   *sim.Stepper
	Builder   driver.FieldBuilder
	Frames    []driver.Frame
	Schedule  driver.Schedule
	Telemetry *metrics.Telemetry
	Seed      int64
	// StepsPerTick is the number of timesteps run per 60 Hz tick.
	StepsPerTick int
	// GIFPath is where a recording is written when it stops.
	GIFPath string
}

// Model steps the simulation on every tick and draws the particles. Frames
// loop once the last transition completes.
type Model struct {
	opts         LiveOptions
	canvas       *Canvas
	frame        int
	transition   int
	done         int
	stepsPerTick int
	running      bool
	energy       []float64
	recording    bool
	gifFrames    []*image.Paletted
	showHelp     bool
	err          error
}

func NewModel(opts LiveOptions) (Model, error) {
	if len(opts.Frames) == 0 {
		return Model{}, driver.ErrNoFrames
	}
	if opts.StepsPerTick < 1 {
		opts.StepsPerTick = 1
	}
	if opts.GIFPath == "" {
		opts.GIFPath = "stipple.gif"
	}

	m := Model{
		opts:         opts,
		canvas:       NewCanvas(width, height),
		stepsPerTick: opts.StepsPerTick,
		running:      true,
		energy:       make([]float64, 0, historyCapacity),
	}
	if err := m.loadFrame(0); err != nil {
		return Model{}, err
	}
	m.draw()
	return m, nil
}

func (m Model) Init() tea.Cmd { return tick() }

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "n":
			m.err = m.advance()
		case "r":
			m.err = m.rescatter()
		case "+", "=":
			m.stepsPerTick = min(m.stepsPerTick*2, maxStepsPerTick)
		case "-", "_":
			m.stepsPerTick = max(m.stepsPerTick/2, 1)
		case "t":
			NextTheme()
		case "g":
			if m.recording {
				m.err = m.saveGIF()
				m.recording = false
				m.gifFrames = nil
			} else {
				m.recording = true
				m.gifFrames = make([]*image.Paletted, 0)
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.err = m.step()
		}
		m.draw()
		if m.recording {
			m.captureFrame()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) loadFrame(i int) error {
	f := m.opts.Frames[i]
	fld, err := m.opts.Builder.Build(f.Image)
	if err != nil {
		return fmt.Errorf("frame %d: %w", f.Index, err)
	}
	m.opts.Stepper.SetField(fld)
	m.frame = i
	m.done = 0
	return nil
}

// advance moves to the next frame, wrapping to the first.
func (m *Model) advance() error {
	m.transition++
	return m.loadFrame((m.frame + 1) % len(m.opts.Frames))
}

func (m *Model) rescatter() error {
	store := m.opts.Stepper.Store()
	if err := store.Initialize(store.NumDots(), m.opts.Seed); err != nil {
		return err
	}
	m.transition = 0
	m.energy = m.energy[:0]
	if m.opts.Telemetry != nil {
		m.opts.Telemetry.Reset()
	}
	return m.loadFrame(0)
}

func (m *Model) step() error {
	total := m.opts.Schedule.StepsFor(m.transition)
	n := min(m.stepsPerTick, total-m.done)
	if n <= 0 {
		return m.advance()
	}

	if err := m.opts.Stepper.Step(context.Background(), n); err != nil {
		return err
	}
	m.done += n

	if m.opts.Telemetry != nil {
		if r, ok := m.opts.Telemetry.Last(); ok {
			m.energy = append(m.energy, r.KineticEnergy)
			if len(m.energy) > historyCapacity {
				m.energy = m.energy[1:]
			}
		}
	}
	return nil
}

func (m *Model) draw() {
	m.canvas.Clear()
	m.canvas.PlotAll(m.opts.Stepper.Store().Positions())
}

// View renders the TUI interface.
func (m Model) View() string {
	dots := lipgloss.NewStyle().Foreground(CurrentTheme.Dots)
	canvasView := canvasStyle.Render(dots.Render(m.canvas.String()))

	var s strings.Builder
	s.WriteString(headerStyle.Foreground(CurrentTheme.Accent).Render("STIPPLE") + "\n")

	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	if m.recording {
		status += " ● REC"
	}
	s.WriteString(status + "\n\n")

	f := m.opts.Frames[m.frame]
	total := m.opts.Schedule.StepsFor(m.transition)
	progress := 1.0
	if total > 0 {
		progress = float64(m.done) / float64(total)
	}

	s.WriteString(labelStyle.Render("Frame") + valueStyle.Render(fmt.Sprintf("%d (%d/%d)", f.Index, m.frame+1, len(m.opts.Frames))) + "\n")
	s.WriteString(labelStyle.Render("Transition") + ProgressBar(progress, 16) + "\n")
	s.WriteString(labelStyle.Render("Step") + valueStyle.Render(fmt.Sprintf("%d", m.opts.Stepper.Steps())) + "\n")
	s.WriteString(labelStyle.Render("Steps/tick") + valueStyle.Render(fmt.Sprintf("%d", m.stepsPerTick)) + "\n")
	s.WriteString(labelStyle.Render("Dots") + valueStyle.Render(fmt.Sprintf("%d", m.opts.Stepper.Store().NumDots())) + "\n")
	s.WriteString(labelStyle.Render("Backend") + valueStyle.Render(m.opts.Stepper.Backend().Name()) + "\n")

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
		s.WriteString(Sparkline(m.energy, 30) + "\n")
	}

	if m.err != nil {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}

	s.WriteString(helpStyle.Render("SP:Pause N:Next R:Reset Q:Quit\n+/-:Speed T:Theme G:Record ?:Help"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))

	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume stepping    ║
║  N        - Next frame               ║
║  R        - Re-scatter particles     ║
║  +/-      - Steps per tick x2 / ÷2   ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  Q        - Quit                     ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

func (m *Model) captureFrame() {
	const dot = 4
	img := image.NewPaletted(image.Rect(0, 0, m.canvas.SubWidth()*dot, m.canvas.SubHeight()*dot),
		color.Palette{color.Black, color.White})
	for y := 0; y < m.canvas.SubHeight(); y++ {
		for x := 0; x < m.canvas.SubWidth(); x++ {
			if !m.canvas.IsSet(x, y) {
				continue
			}
			for py := 0; py < dot; py++ {
				for px := 0; px < dot; px++ {
					img.SetColorIndex(x*dot+px, y*dot+py, 1)
				}
			}
		}
	}
	m.gifFrames = append(m.gifFrames, img)
}

func (m *Model) saveGIF() error {
	if len(m.gifFrames) == 0 {
		return nil
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.gifFrames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 2)
	}
	f, err := os.Create(m.opts.GIFPath)
	if err != nil {
		return err
	}
	if err := gif.EncodeAll(f, &anim); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

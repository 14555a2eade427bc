// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vibe/internal/render"
	"vibe/internal/scheduler"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	recordingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#C0392B")).
			Padding(0, 1).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E74C3C"))
)

// Status describes the session for the status line.
type Status struct {
	Source string
	Gain   string
}

// RecordToggle starts or stops recording and returns the new state.
type RecordToggle func() (recording bool, err error)

type visualizerKeys struct {
	Quit   key.Binding
	Status key.Binding
	Record key.Binding
}

var defaultVisualizerKeys = visualizerKeys{
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	Status: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status")),
	Record: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record")),
}

// VisualizerModel draws the latest frame as a radial spectrum.
type VisualizerModel struct {
	frames   <-chan scheduler.Frame
	canvas   *render.Canvas
	keys     visualizerKeys
	status   Status
	toggle   RecordToggle
	ready    bool
	width    int
	height   int
	frame    scheduler.Frame
	fps      float64
	lastSeen time.Time

	showStatus bool
	recording  bool
	err        error
}

// NewVisualizerModel creates a model that reads frames from sink. toggle may be
// nil, in which case the record key does nothing.
func NewVisualizerModel(sink *FrameSink, status Status, showStatus bool, toggle RecordToggle) VisualizerModel {
	return VisualizerModel{
		frames:     sink.Frames(),
		canvas:     render.NewCanvas(0, 0),
		keys:       defaultVisualizerKeys,
		status:     status,
		toggle:     toggle,
		showStatus: showStatus,
	}
}

// Init starts waiting for frames.
func (m VisualizerModel) Init() tea.Cmd {
	return waitForFrame(m.frames)
}

// Update handles frames, resizes and keys.
func (m VisualizerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resize()
		render.Radial(m.canvas, m.frame.Bands)

	case frameMsg:
		f := scheduler.Frame(msg)
		m.updateFPS(f.Time)
		m.frame = f
		render.Radial(m.canvas, f.Bands)
		return m, waitForFrame(m.frames)

	case framesClosedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Status):
			m.showStatus = !m.showStatus
			m.resize()
			render.Radial(m.canvas, m.frame.Bands)
		case key.Matches(msg, m.keys.Record):
			if m.toggle != nil {
				m.recording, m.err = m.toggle()
			}
		}
	}
	return m, nil
}

func (m *VisualizerModel) resize() {
	h := m.height
	if m.showStatus {
		h--
	}
	m.canvas.Resize(m.width, max(h, 0))
}

// updateFPS keeps an exponential moving average of the frame rate.
func (m *VisualizerModel) updateFPS(t time.Time) {
	if !m.lastSeen.IsZero() {
		if dt := t.Sub(m.lastSeen).Seconds(); dt > 0 {
			inst := 1 / dt
			if m.fps == 0 {
				m.fps = inst
			} else {
				m.fps = 0.9*m.fps + 0.1*inst
			}
		}
	}
	m.lastSeen = t
}

// View renders the canvas and the status line.
func (m VisualizerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sb strings.Builder
	renderCanvas(&sb, m.canvas)
	if m.showStatus {
		sb.WriteString(m.statusLine())
	}
	return sb.String()
}

func (m VisualizerModel) statusLine() string {
	line := statusStyle.Render(fmt.Sprintf("%s • %.0f fps • gain: %s • frame %d",
		m.status.Source, m.fps, m.status.Gain, m.frame.Seq))
	if m.recording {
		line += recordingStyle.Render("REC")
	}
	if m.err != nil {
		line += " " + errorStyle.Render(m.err.Error())
	}
	help := fmt.Sprintf(" %s: %s • %s: %s", m.keys.Quit.Help().Key, m.keys.Quit.Help().Desc,
		m.keys.Status.Help().Key, m.keys.Status.Help().Desc)
	if m.toggle != nil {
		help += fmt.Sprintf(" • %s: %s", m.keys.Record.Help().Key, m.keys.Record.Help().Desc)
	}
	return line + help
}

// renderCanvas writes the canvas rows, styling runs of equally coloured cells
// together.
func renderCanvas(sb *strings.Builder, c *render.Canvas) {
	var run strings.Builder
	for y := range c.Height() {
		row := c.Row(y)
		for x := 0; x < len(row); {
			cell := row[x]
			if cell.Empty() {
				sb.WriteByte(' ')
				x++
				continue
			}

			run.Reset()
			end := x
			for ; end < len(row) && !row[end].Empty() && row[end].Color == cell.Color; end++ {
				run.WriteRune(row[end].Glyph)
			}
			sb.WriteString(cellStyle(cell.Color).Render(run.String()))
			x = end
		}
		sb.WriteByte('\n')
	}
}

func cellStyle(c colorful.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex()))
}

// Run shows the visualizer until the user quits, ctx is cancelled or the sink
// is closed. The alternate screen is restored on every exit path.
func Run(ctx context.Context, sink *FrameSink, status Status, showStatus bool, toggle RecordToggle) error {
	p := tea.NewProgram(
		NewVisualizerModel(sink, status, showStatus, toggle),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

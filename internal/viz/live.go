package viz

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/orbitprop/internal/dynamo"
	"github.com/san-kum/orbitprop/internal/experiment"
	"github.com/san-kum/orbitprop/internal/orbit"
)

const (
	canvasWidth     = 60
	canvasHeight    = 24
	historyCapacity = 2000
	graphCapacity   = 120
)

// Feed hands accepted solver steps to the live view. OnStep blocks while
// the buffer is full, so a paused view holds the solver back. Once stopped,
// OnStep drops samples instead of blocking.
type Feed struct {
	samples  chan experiment.Sample
	stopped  chan struct{}
	stopOnce sync.Once
	closed   sync.Once
	clock    experiment.ChainClock
}

func NewFeed(buffer int) *Feed {
	return &Feed{
		samples: make(chan experiment.Sample, max(buffer, 1)),
		stopped: make(chan struct{}),
	}
}

func (f *Feed) OnStep(x dynamo.StateVector, t float64) {
	at, ok := f.clock.Shift(t)
	if !ok {
		return
	}
	select {
	case f.samples <- experiment.Sample{T: at, X: x.Clone()}:
	case <-f.stopped:
	}
}

// Stop releases a blocked producer and makes later OnStep calls no-ops.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() { close(f.stopped) })
}

// Close is called by the producer once no more samples will be sent.
func (f *Feed) Close() {
	f.closed.Do(func() { close(f.samples) })
}

func (f *Feed) next() tea.Msg {
	s, ok := <-f.samples
	if !ok {
		return feedClosedMsg{}
	}
	return sampleMsg(s)
}

type (
	sampleMsg     experiment.Sample
	feedClosedMsg struct{}
	doneMsg       struct {
		result *experiment.Result
		err    error
	}
)

// LiveModel runs an experiment and draws its trajectory as it is computed.
// The experiment must have been built with the model's feed as an observer.
type LiveModel struct {
	title   string
	exp     *experiment.Experiment
	feed    *Feed
	ctx     context.Context
	cancel  context.CancelFunc
	radius  float64
	mu      float64
	canvas  *Canvas
	camera  *Camera
	theme   Theme
	trail   []r3.Vec
	alt     []float64
	last    experiment.Sample
	samples int

	running  bool
	waiting  bool
	finished bool
	showHelp bool
	result   *experiment.Result
	err      error
}

func NewLiveModel(ctx context.Context, title string, exp *experiment.Experiment, feed *Feed, theme Theme) *LiveModel {
	ctx, cancel := context.WithCancel(ctx)
	central := exp.Environment().CentralBody()
	return &LiveModel{
		title:   title,
		exp:     exp,
		feed:    feed,
		ctx:     ctx,
		cancel:  cancel,
		radius:  central.Radius,
		mu:      central.Mu,
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		camera:  NewCamera(),
		theme:   theme,
		trail:   make([]r3.Vec, 0, historyCapacity),
		alt:     make([]float64, 0, graphCapacity),
		running: true,
		waiting: true,
	}
}

func (m *LiveModel) Init() tea.Cmd {
	return tea.Batch(m.run, m.feed.next)
}

func (m *LiveModel) run() tea.Msg {
	res, err := m.exp.Run(m.ctx)
	m.feed.Close()
	return doneMsg{result: res, err: err}
}

func (m *LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			m.feed.Stop()
			return m, tea.Quit
		case " ":
			m.running = !m.running
			if m.running && !m.waiting && !m.finished {
				m.waiting = true
				return m, m.feed.next
			}
		case "h", "left":
			m.camera.Rotate(-0.1, 0)
		case "l", "right":
			m.camera.Rotate(0.1, 0)
		case "k", "up":
			m.camera.Rotate(0, 0.1)
		case "j", "down":
			m.camera.Rotate(0, -0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "t":
			m.theme = NextTheme(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case sampleMsg:
		m.push(experiment.Sample(msg))
		if !m.running {
			m.waiting = false
			return m, nil
		}
		return m, m.feed.next
	case feedClosedMsg:
		m.waiting = false
	case doneMsg:
		m.finished = true
		m.result, m.err = msg.result, msg.err
	}
	return m, nil
}

func (m *LiveModel) push(s experiment.Sample) {
	m.samples++
	m.last = s
	if len(s.X) < 3 {
		return
	}
	p := r3.Vec{X: s.X[0], Y: s.X[1], Z: s.X[2]}
	if len(m.trail) == historyCapacity {
		m.trail = append(m.trail[:0], m.trail[historyCapacity/2:]...)
	}
	m.trail = append(m.trail, p)
	if len(m.alt) == graphCapacity {
		m.alt = append(m.alt[:0], m.alt[1:]...)
	}
	m.alt = append(m.alt, (r3.Norm(p)-m.radius)/1e3)
}

func (m *LiveModel) status() string {
	st := m.theme.styles()
	switch {
	case m.finished && m.err != nil:
		return st.failure.Render("FAILED")
	case m.finished && m.result != nil && m.result.ConditionSatisfied:
		return st.success.Render("EVENT " + m.result.Condition)
	case m.finished:
		return st.success.Render("DONE")
	case !m.running:
		return st.warning.Render("PAUSED")
	}
	return st.success.Render("PROPAGATING")
}

func (m *LiveModel) View() string {
	st := m.theme.styles()

	m.canvas.Clear()
	OrbitPlot(m.canvas, m.camera, m.trail, m.radius)
	canvasView := lipgloss.NewStyle().Foreground(m.theme.Primary).Padding(1, 2).Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")

	if len(m.alt) > 1 {
		chart := asciigraph.Plot(m.alt, asciigraph.Height(5), asciigraph.Width(32), asciigraph.Caption("altitude [km]"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.1f s", m.last.T))
	row("Samples", fmt.Sprintf("%d", m.samples))
	if len(m.last.X) >= 6 {
		r := r3.Vec{X: m.last.X[0], Y: m.last.X[1], Z: m.last.X[2]}
		v := r3.Vec{X: m.last.X[3], Y: m.last.X[4], Z: m.last.X[5]}
		row("Altitude", fmt.Sprintf("%.3f km", (r3.Norm(r)-m.radius)/1e3))
		row("Speed", fmt.Sprintf("%.4f km/s", r3.Norm(v)/1e3))
		if coe, err := orbit.ElementsFromCartesian(r, v, m.mu); err == nil {
			row("SMA", fmt.Sprintf("%.3f km", coe.SemiMajorAxis/1e3))
			row("Ecc", fmt.Sprintf("%.6f", coe.Eccentricity))
			row("Inc", fmt.Sprintf("%.4f deg", displayElement(coe, orbit.Inclination)))
		}
	}
	if m.err != nil {
		s.WriteString("\n" + st.failure.Render(m.err.Error()) + "\n")
	}

	s.WriteString(st.muted.Render("\nSP:Pause Q:Quit T:Theme ?:Help\nHJKL:Rotate +/-:Zoom"))
	statsView := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(m.theme.Border).
		Padding(1, 2).
		Width(46).
		Render(s.String())

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		help := st.panel.Render(strings.Join([]string{
			st.title.Render("KEYBOARD SHORTCUTS"),
			"Space   pause / resume propagation",
			"H L     rotate azimuth",
			"J K     tilt elevation",
			"+ -     zoom",
			"T       cycle themes (" + strings.Join(ThemeNames(), ", ") + ")",
			"?       toggle this help",
			"Q       quit",
		}, "\n"))
		return help + "\n\n" + mainView
	}
	return mainView
}

// Result is the experiment outcome once the run has finished.
func (m *LiveModel) Result() (*experiment.Result, error) {
	return m.result, m.err
}

// RunLive shows the propagation until the user quits. It returns the result
// when the run finished before quitting.
func RunLive(ctx context.Context, title string, exp *experiment.Experiment, feed *Feed, theme Theme) (*experiment.Result, error) {
	m := NewLiveModel(ctx, title, exp, feed, theme)
	defer m.cancel()
	defer feed.Stop()
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return nil, err
	}
	return m.Result()
}

package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ctmc/internal/markov"
)

const (
	canvasWidth     = 36
	canvasHeight    = 12
	historyCapacity = 600
	maxStepsPerTick = 64
)

const (
	statusRunning   = "RUNNING"
	statusPaused    = "PAUSED"
	statusConverged = "CONVERGED"
	statusMaxIter   = "MAX ITER"
	statusError     = "ERROR"
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// tracker is shared between copies of Model, since bubbletea passes the
// model by value while the run reports through a single observer.
type tracker struct {
	next       markov.Observer
	mean       []float64
	rejections int
}

func (t *tracker) OnIteration(it markov.Iteration) {
	t.mean = append(t.mean, stat.Mean(it.EPR, nil))
	if len(t.mean) > historyCapacity {
		t.mean = t.mean[1:]
	}
	for _, r := range it.Rejected {
		if r {
			t.rejections++
		}
	}
	if t.next != nil {
		t.next.OnIteration(it)
	}
}

// Model steps a MEPS run on every tick and renders its progress.
type Model struct {
	chain *markov.Chain
	opts  markov.MEPSOptions
	ness  markov.Batch
	title string

	run   *markov.MEPSRun
	track *tracker
	err   error

	canvas       *Canvas
	ring         bool
	selected     int
	stepsPerTick int
	running      bool
	showHelp     bool
	frame        int
}

// NewModel prepares a MEPS run on chain. The chain's cached NESS, if any, is
// shown as the reference distribution.
func NewModel(chain *markov.Chain, opts markov.MEPSOptions, title string) (Model, error) {
	m := Model{
		chain:        chain,
		opts:         opts,
		title:        title,
		canvas:       NewCanvas(canvasWidth, canvasHeight),
		ring:         chain.States() <= 24,
		stepsPerTick: 1,
		running:      true,
	}
	if ness, ok := chain.CachedNESS(); ok {
		m.ness = ness.State
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) reset() error {
	t := &tracker{next: m.opts.Observer}
	opts := m.opts
	opts.Observer = t
	run, err := m.chain.NewMEPSRun(opts)
	if err != nil {
		return err
	}
	m.run, m.track, m.err = run, t, nil
	return nil
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "tab":
			m.selected = (m.selected + 1) % m.chain.Chains()
		case "v":
			m.ring = !m.ring
		case "+", "=":
			m.stepsPerTick = min(m.stepsPerTick*2, maxStepsPerTick)
		case "-", "_":
			m.stepsPerTick = max(m.stepsPerTick/2, 1)
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		m.frame++
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	for i := 0; i < m.stepsPerTick; i++ {
		if !m.run.Step() {
			return
		}
	}
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return statusError
	case m.run.Finished() && m.run.Result().Converged:
		return statusConverged
	case m.run.Finished():
		return statusMaxIter
	case !m.running:
		return statusPaused
	}
	return statusRunning
}

func (m Model) View() string {
	var s strings.Builder
	status := m.status()
	indicator := status
	if status == statusRunning {
		indicator = AnimatedSpinner(m.frame) + " " + status
	}
	s.WriteString(headerStyle().Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(statusStyle(status).Render(indicator) + "\n\n")
	if m.err != nil {
		s.WriteString(valueStyle.Render(m.err.Error()) + "\n")
	}

	state := m.run.State()
	k := m.selected
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Iteration", fmt.Sprintf("%d / %d", m.run.Iteration(), m.opts.MaxIter))
	row("dt", fmt.Sprintf("%.4g", m.run.Dt()))
	row("Chain", fmt.Sprintf("%d / %d", k+1, m.chain.Chains()))
	row("States", fmt.Sprintf("%d", m.chain.States()))
	if eprs := m.run.EPR(); len(eprs) > 0 {
		row("EPR", fmt.Sprintf("%.6g", eprs[len(eprs)-1][k]))
	}
	if m.ness != nil {
		if d, err := markov.KL(state[k], m.ness[k]); err == nil {
			row("KL(p‖ness)", fmt.Sprintf("%.4g", d))
		}
	}
	row("Rejections", fmt.Sprintf("%d", m.track.rejections))
	row("Steps/tick", fmt.Sprintf("%d", m.stepsPerTick))

	done := 0
	for _, d := range m.run.Done() {
		if d {
			done++
		}
	}
	frac := float64(done) / float64(m.chain.Chains())
	s.WriteString(labelStyle.Render("Done") + ProgressBar(frac, 16) + valueStyle.Render(fmt.Sprintf(" %d", done)) + "\n")
	s.WriteString(labelStyle.Render("Chain EPR") + SparklineChart(m.chainEPR(k), 24) + "\n")

	s.WriteString("\n" + Separator(36) + "\n")
	s.WriteString(helpStyle.Render("SP:Pause R:Reset Q:Quit TAB:Chain\nV:View +/-:Speed T:Theme ?:Help"))
	stats := statsStyle.Render(s.String())

	m.canvas.Clear()
	if m.ring {
		m.canvas.Ring(state[k])
	} else {
		m.canvas.Bars(state[k])
	}
	left := panelStyle.Render(m.canvas.String())
	if len(m.track.mean) > 1 {
		graph := asciigraph.Plot(m.track.mean,
			asciigraph.Height(6),
			asciigraph.Width(canvasWidth),
			asciigraph.Caption("mean EPR"),
			asciigraph.SeriesColors(CurrentTheme.Graph),
		)
		left = lipgloss.JoinVertical(lipgloss.Left, left, graph)
	}

	main := lipgloss.JoinHorizontal(lipgloss.Top, left, stats)
	if m.showHelp {
		return helpOverlay + "\n\n" + main
	}
	return main
}

func (m Model) chainEPR(k int) []float64 {
	eprs := m.run.EPR()
	out := make([]float64, len(eprs))
	for i, row := range eprs {
		out[i] = row[k]
	}
	return out
}

// Finished reports whether the MEPS run has ended.
func (m Model) Finished() bool { return m.run.Finished() }

// Result returns the finished run's result, or nil.
func (m Model) Result() *markov.MEPSResult { return m.run.Result() }

const helpOverlay = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Restart the MEPS run     ║
║  Q        - Quit                     ║
║  Tab      - Next chain               ║
║  V        - Ring / bar view          ║
║  + / -    - Iterations per frame     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

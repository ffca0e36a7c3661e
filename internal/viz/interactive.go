package viz

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/ctmc/internal/config"
	"github.com/san-kum/ctmc/internal/experiment"
	"github.com/san-kum/ctmc/internal/generators"
)

var generatorInfo = map[string]string{
	"uniform":          "uniform random rates",
	"normal":           "folded normal rates",
	"gamma":            "gamma distributed rates",
	"cyclic":           "banded ring of jumps",
	"detailed_balance": "equilibrium energies",
	"landscape":        "driven noise landscape",
}

const (
	stateMenu = iota
	statePreset
	stateConfig
	stateSim
)

const defaultPreset = "(defaults)"

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	descStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

// field is one editable number on the config screen.
type field struct {
	name string
	get  func(*config.Config) float64
	set  func(*config.Config, float64)
}

type model struct {
	state, cursor int
	registry      *generators.Registry
	generators    []string
	presets       []string
	selected      string
	cfg           *config.Config
	fields        []field
	fieldCursor   int
	editing       bool
	editBuf       string
	err           error
	liveModel     Model
}

func NewInteractiveApp() *model {
	reg := generators.NewRegistry()
	return &model{
		state:      stateMenu,
		registry:   reg,
		generators: reg.Names(),
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		if m.state == stateSim {
			newLive, cmd := m.liveModel.Update(msg)
			m.liveModel = newLive.(Model)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case statePreset:
		return m.presetKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		newLive, cmd := m.liveModel.Update(msg)
		m.liveModel = newLive.(Model)
		return m, cmd
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, len(m.generators)-1)
	case "enter", " ":
		m.selected = m.generators[m.cursor]
		m.presets = append([]string{defaultPreset}, config.ListPresets(m.selected)...)
		m.state, m.cursor = statePreset, 0
	}
	return m, nil
}

func (m model) presetKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.state, m.cursor = stateMenu, 0
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, len(m.presets)-1)
	case "enter", " ":
		cfg := config.GetPreset(m.selected, m.presets[m.cursor])
		if cfg == nil {
			cfg = config.DefaultConfig()
			cfg.Generator = m.selected
		}
		m.cfg = cfg
		m.fields = fieldsFor(cfg)
		m.state, m.fieldCursor, m.err = stateConfig, 0, nil
	}
	return m, nil
}

func fieldsFor(cfg *config.Config) []field {
	fields := []field{
		{"states", func(c *config.Config) float64 { return float64(c.States) }, func(c *config.Config, v float64) { c.States = int(v) }},
		{"batch", func(c *config.Config) float64 { return float64(c.Batch) }, func(c *config.Config, v float64) { c.Batch = int(v) }},
		{"seed", func(c *config.Config) float64 { return float64(c.Seed) }, func(c *config.Config, v float64) { c.Seed = uint64(max(v, 0)) }},
		{"dt0", func(c *config.Config) float64 { return c.MEPS.Dt0 }, func(c *config.Config, v float64) { c.MEPS.Dt0 = v }},
	}
	keys := make([]string, 0, len(cfg.Params))
	for k := range cfg.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, field{
			name: k,
			get:  func(c *config.Config) float64 { return c.Params[k] },
			set:  func(c *config.Config, v float64) { c.Params[k] = v },
		})
	}
	return fields
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	f := m.fields[m.fieldCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			if _, err := fmt.Sscanf(m.editBuf, "%g", &val); err == nil {
				f.set(m.cfg, val)
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == 'e' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state, m.cursor = statePreset, 0
	case "up", "k":
		m.fieldCursor = max(m.fieldCursor-1, 0)
	case "down", "j":
		m.fieldCursor = min(m.fieldCursor+1, len(m.fields)-1)
	case "enter", " ":
		m.editing, m.editBuf = true, fmt.Sprintf("%g", f.get(m.cfg))
	case "left", "h":
		f.set(m.cfg, f.get(m.cfg)-nudge(f.get(m.cfg)))
	case "right", "l":
		f.set(m.cfg, f.get(m.cfg)+nudge(f.get(m.cfg)))
	case "s":
		return m.start()
	}
	return m, nil
}

// nudge is the h/l increment: 1 for whole numbers, 0.1 otherwise.
func nudge(v float64) float64 {
	if v == float64(int64(v)) && v != 0 {
		return 1
	}
	return 0.1
}

// start computes the NESS so the watch view can compare against it, then
// hands over to the live model.
func (m model) start() (model, tea.Cmd) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exp := experiment.New(m.cfg, experiment.WithRegistry(m.registry), experiment.WithLogger(logger))
	chain, err := exp.Build()
	if err != nil {
		m.err = err
		return m, nil
	}
	if _, err := chain.NESS(experiment.NESSOptions(m.cfg)); err != nil {
		m.err = err
		return m, nil
	}
	live, err := NewModel(chain, experiment.MEPSOptions(m.cfg), m.selected)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.liveModel, m.state = live, stateSim
	return m, live.Init()
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case statePreset:
		return m.viewPresets()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.liveModel.View()
	}
	return ""
}

func banner(title, sub string) string {
	return "\n\n    " + titleStyle.Render(title) + "\n    " + Subtle.Render(sub) + "\n    " + Subtle.Render("─────────────────────────") + "\n\n"
}

func hints(pairs ...string) string {
	var b strings.Builder
	b.WriteString("\n    ")
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(keyStyle.Render(pairs[i]) + idleStyle.Render(" "+pairs[i+1]+"  "))
	}
	return b.String() + "\n"
}

func (m model) viewMenu() string {
	var b strings.Builder
	b.WriteString(banner("CTMC", "entropy production explorer"))
	for i, name := range m.generators {
		desc := generatorInfo[name]
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", cursorStyle.Render("▸"), activeStyle.Render(fmt.Sprintf("%-18s", name)), descStyle.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", idleStyle.Render(fmt.Sprintf("  %-18s", name)), idleStyle.Render(desc)))
		}
	}
	b.WriteString(hints("j/k", "navigate", "enter", "select", "q", "quit"))
	return b.String()
}

func (m model) viewPresets() string {
	var b strings.Builder
	b.WriteString(banner(strings.ToUpper(m.selected), generatorInfo[m.selected]))
	for i, name := range m.presets {
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s\n", cursorStyle.Render("▸"), activeStyle.Render(name)))
		} else {
			b.WriteString(fmt.Sprintf("      %s\n", idleStyle.Render(name)))
		}
	}
	b.WriteString(hints("j/k", "navigate", "enter", "select", "esc", "back"))
	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder
	b.WriteString(banner(strings.ToUpper(m.selected), generatorInfo[m.selected]))
	for i, f := range m.fields {
		valStr := fmt.Sprintf("%10.4g", f.get(m.cfg))
		if m.editing && i == m.fieldCursor {
			valStr = fmt.Sprintf("%10s", m.editBuf+"_")
		}
		if i == m.fieldCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", cursorStyle.Render("▸"), activeStyle.Render(fmt.Sprintf("%-12s", f.name)), descStyle.Bold(true).Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", idleStyle.Render(fmt.Sprintf("  %-12s", f.name)), idleStyle.Render(valStr)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + SparkLow.Render(m.err.Error()) + "\n")
	}
	b.WriteString(hints("j/k", "select", "h/l", "adjust", "enter", "edit", "s", "start", "esc", "back"))
	return b.String()
}

func RunInteractive() error {
	_, err := tea.NewProgram(NewInteractiveApp(), tea.WithAltScreen()).Run()
	return err
}

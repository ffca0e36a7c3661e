package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/ctmc/internal/markov"
)

func testChain(t *testing.T) *markov.Chain {
	t.Helper()
	chain, err := markov.NewMatrix([][]float64{{0, 3, 1}, {1, 0, 2}, {4, 1, 0}}, markov.WithSeed(1))
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if _, err := chain.NESS(markov.DefaultNESSOptions()); err != nil {
		t.Fatalf("ness: %v", err)
	}
	return chain
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m tea.Model, msgs ...tea.Msg) tea.Model {
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

func TestModelRunsToConvergence(t *testing.T) {
	m, err := NewModel(testChain(t), markov.DefaultMEPSOptions(), "three state")
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	var tm tea.Model = m
	for i := 0; i < 100 && !tm.(Model).Finished(); i++ {
		tm = send(tm, TickMsg{})
	}
	lm := tm.(Model)
	if !lm.Finished() || !lm.Result().Converged {
		t.Fatal("expected the run to converge")
	}

	view := lm.View()
	for _, want := range []string{"THREE STATE", statusConverged, "mean EPR", "KL(p‖ness)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelKeys(t *testing.T) {
	m, err := NewModel(testChain(t), markov.DefaultMEPSOptions(), "keys")
	if err != nil {
		t.Fatal(err)
	}

	tm := send(m, key(" "), TickMsg{})
	if tm.(Model).run.Iteration() != 0 {
		t.Error("paused model should not step")
	}
	if !strings.Contains(tm.View(), statusPaused) {
		t.Error("expected paused status")
	}

	tm = send(tm, key(" "), key("+"), key("+"), TickMsg{})
	if got := tm.(Model).run.Iteration(); got != 4 {
		t.Errorf("expected 4 iterations at 4 steps per tick, got %d", got)
	}

	tm = send(tm, key("r"))
	if tm.(Model).run.Iteration() != 0 || len(tm.(Model).track.mean) != 0 {
		t.Error("reset should start a fresh run")
	}

	tm = send(tm, key("v"), key("?"))
	if !strings.Contains(tm.View(), "KEYBOARD SHORTCUTS") {
		t.Error("expected help overlay")
	}

	_, cmd := tm.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestCanvas(t *testing.T) {
	c := NewCanvas(10, 4)
	if w, h := c.Dots(); w != 20 || h != 16 {
		t.Errorf("expected 20x16 dots, got %dx%d", w, h)
	}

	blank := c.String()
	c.Bars([]float64{0.1, 0.5, 0.4})
	if c.String() == blank {
		t.Error("bars drew nothing")
	}
	// the tallest bar reaches the top row
	if c.Grid[0][c.Width/3] == brailleBlank && c.Grid[0][c.Width/3+1] == brailleBlank {
		t.Error("expected the largest bar to reach the top row")
	}

	c.Clear()
	if c.String() != blank {
		t.Error("clear left dots behind")
	}
	c.Ring([]float64{0.2, 0.2, 0.2, 0.4})
	if c.String() == blank {
		t.Error("ring drew nothing")
	}

	c.Set(-1, -1)
	c.Set(1000, 1000)
}

func TestInteractiveFlow(t *testing.T) {
	var tm tea.Model = NewInteractiveApp()
	if !strings.Contains(tm.View(), "CTMC") {
		t.Fatal("expected menu banner")
	}

	// cyclic sits first in the sorted generator list
	tm = send(tm, key("enter"))
	if tm.(model).selected != "cyclic" {
		t.Fatalf("expected cyclic, got %s", tm.(model).selected)
	}
	tm = send(tm, key("j"), key("enter"))
	if tm.(model).state != stateConfig || tm.(model).cfg.States != 12 {
		t.Fatalf("expected the many preset config, got state %d", tm.(model).state)
	}

	tm = send(tm, key("l"))
	if tm.(model).cfg.States != 13 {
		t.Errorf("expected states 13, got %d", tm.(model).cfg.States)
	}

	tm = send(tm, key("s"))
	if tm.(model).state != stateSim {
		t.Fatalf("expected sim state, err %v", tm.(model).err)
	}
	if !strings.Contains(tm.View(), "CYCLIC") {
		t.Error("expected live view")
	}
}

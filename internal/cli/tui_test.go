package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestProgressModel(t *testing.T) {
	var m tea.Model = newProgressModel()
	if got := m.View(); !strings.Contains(got, "loading graph") {
		t.Errorf("initial View() = %q, want loading message", got)
	}

	msgs := []tea.Msg{
		mapStartMsg{vertices: 8, terminals: 4, policy: "size"},
		roundMsg{round: 1, pending: 2},
		jobMsg{vertices: 8},
		jobMsg{vertices: 4},
		jobMsg{vertices: 2, terminal: true},
		jobMsg{vertices: 2, terminal: true},
	}
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}

	pm := m.(progressModel)
	if pm.placed != 4 || pm.jobs != 4 || pm.round != 1 || pm.pending != 2 {
		t.Errorf("model = %+v, want 4 placed by 4 jobs in round 1", pm)
	}
	if got := m.View(); !strings.Contains(got, "4/8 placed") {
		t.Errorf("View() = %q, want 4/8 placed", got)
	}

	m, cmd := m.Update(doneMsg{})
	if cmd == nil {
		t.Error("doneMsg should quit the program")
	}
	if got := m.View(); got != "" {
		t.Errorf("final View() = %q, want empty", got)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		n, total int
		full     int
	}{
		{0, 10, 0},
		{5, 10, barWidth / 2},
		{10, 10, barWidth},
		{3, 0, 0},
	}
	for _, tt := range tests {
		got := strings.Count(progressBar(tt.n, tt.total), "█")
		if got != tt.full {
			t.Errorf("progressBar(%d, %d) has %d full cells, want %d", tt.n, tt.total, got, tt.full)
		}
	}
}

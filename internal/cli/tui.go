package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/drbmap/pkg/observability"
	"github.com/matzehuels/drbmap/pkg/pipeline"
)

var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const barWidth = 30

// =============================================================================
// Messages
// =============================================================================

type mapStartMsg struct {
	vertices, terminals int
	policy              string
}

type roundMsg struct{ round, pending int }

type jobMsg struct {
	vertices int
	terminal bool
}

type tickMsg time.Time

type doneMsg struct{}

// =============================================================================
// progressModel - live view of a mapping run
// =============================================================================

// progressModel shows how many vertices have reached a terminal domain.
type progressModel struct {
	policy    string
	vertices  int
	terminals int
	placed    int
	jobs      int
	round     int
	pending   int
	frame     int
	started   time.Time
	mapping   bool
	done      bool
}

func newProgressModel() progressModel {
	return progressModel{started: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m progressModel) Init() tea.Cmd {
	return tick()
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case mapStartMsg:
		m.mapping = true
		m.vertices, m.terminals, m.policy = msg.vertices, msg.terminals, msg.policy
		m.placed, m.jobs, m.round, m.pending = 0, 0, 0, 0
	case roundMsg:
		m.round, m.pending = msg.round, msg.pending
	case jobMsg:
		m.jobs++
		if msg.terminal {
			m.placed += msg.vertices
		}
	case tickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case doneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}
	spin := styleIconSpinner.Render(spinnerFrames[m.frame])
	if !m.mapping {
		return spin + " " + StyleDim.Render("loading graph") + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s mapping %s vertices onto %s terminals %s\n",
		spin,
		StyleNumber.Render(fmt.Sprint(m.vertices)),
		StyleNumber.Render(fmt.Sprint(m.terminals)),
		StyleDim.Render("("+m.policy+")"))

	b.WriteString("  ")
	b.WriteString(progressBar(m.placed, m.vertices))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %d/%d placed · round %d · %d pending · %d jobs · %s",
		m.placed, m.vertices, m.round, m.pending, m.jobs,
		time.Since(m.started).Round(100*time.Millisecond))))
	b.WriteString("\n")
	return b.String()
}

func progressBar(n, total int) string {
	full := 0
	if total > 0 {
		full = min(barWidth, n*barWidth/total)
	}
	return barFullStyle.Render(strings.Repeat("█", full)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-full))
}

// =============================================================================
// Hook bridge
// =============================================================================

// progressHooks forwards mapper events to a running program.
type progressHooks struct {
	p *tea.Program
}

func (h progressHooks) OnMapStart(_ context.Context, vertices, terminals int, policy string) {
	h.p.Send(mapStartMsg{vertices: vertices, terminals: terminals, policy: policy})
}

func (h progressHooks) OnRound(_ context.Context, round, pending int) {
	h.p.Send(roundMsg{round: round, pending: pending})
}

func (h progressHooks) OnJobDone(_ context.Context, _, vertices int, terminal bool) {
	h.p.Send(jobMsg{vertices: vertices, terminal: terminal})
}

func (h progressHooks) OnMapComplete(context.Context, int, time.Duration, error) {}

// runWithProgress runs fn while drawing its progress on stderr.
func runWithProgress(ctx context.Context, fn func(context.Context) (*pipeline.Result, error)) (*pipeline.Result, error) {
	p := tea.NewProgram(newProgressModel(),
		tea.WithOutput(os.Stderr),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
		tea.WithContext(ctx),
	)
	observability.SetMapperHooks(progressHooks{p: p})
	defer observability.SetMapperHooks(observability.NoopMapperHooks{})

	type result struct {
		res *pipeline.Result
		err error
	}
	ch := make(chan result, 1)
	go func() {
		res, err := fn(ctx)
		ch <- result{res, err}
		p.Send(doneMsg{})
	}()

	// The program stops early only when ctx is canceled; fn observes the
	// same context, so its result is still awaited.
	_, _ = p.Run()
	r := <-ch
	return r.res, r.err
}

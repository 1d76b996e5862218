package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"songbench/internal/runner"
	"songbench/internal/tui/components"
	"songbench/internal/tui/styles"
)

type statsMsg runner.StatsSnapshot

type runDoneMsg struct{ err error }

// Model is the live dashboard of one load run. It starts the run itself and
// switches to a result view once the final snapshot arrives.
type Model struct {
	Runner   *runner.Runner
	Progress progress.Model

	RpsLine     components.Sparkline
	LatencyLine components.Sparkline

	Stats      runner.StatsSnapshot
	LastUpdate time.Time
	LastReqs   uint64

	Finished bool
	Err      error

	ctx    context.Context
	cancel context.CancelFunc

	Width  int
	Height int
}

func NewModel(ctx context.Context, r *runner.Runner) Model {
	ctx, cancel := context.WithCancel(ctx)

	return Model{
		Runner:      r,
		Progress:    progress.New(progress.WithDefaultGradient()),
		RpsLine:     components.NewSparkline(40, "RPS", "req/s", styles.Active),
		LatencyLine: components.NewSparkline(40, "Latency P90", "ms", styles.Warn),
		LastUpdate:  time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startRun(), waitForUpdate(m.Runner.Updates))
}

func (m Model) startRun() tea.Cmd {
	r, ctx := m.Runner, m.ctx
	return func() tea.Msg {
		return runDoneMsg{err: r.Run(ctx)}
	}
}

func waitForUpdate(sub runner.StatsUpdateChan) tea.Cmd {
	return func() tea.Msg {
		return statsMsg(<-sub)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.Finished {
				return m, tea.Quit
			}
			// Stop the run; the final snapshot flips to the result view.
			m.cancel()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4

		half := (msg.Width / 2) - 8
		m.RpsLine.Resize(half)
		m.LatencyLine.Resize(half)
		return m, nil

	case statsMsg:
		snap := runner.StatsSnapshot(msg)
		m = m.applySnapshot(snap)

		cmds := []tea.Cmd{m.Progress.SetPercent(m.percent())}
		if snap.Finished {
			m.Finished = true
		} else {
			cmds = append(cmds, waitForUpdate(m.Runner.Updates))
		}
		return m, tea.Batch(cmds...)

	case runDoneMsg:
		m.Err = msg.err
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) applySnapshot(snap runner.StatsSnapshot) Model {
	now := time.Now()
	dt := now.Sub(m.LastUpdate).Seconds()
	if dt < 0.01 {
		dt = 0.01
	}

	rps := float64(snap.Requests-m.LastReqs) / dt
	m.RpsLine.Add(rps)
	m.LatencyLine.Add(snap.P90ServiceMs)

	m.Stats = snap
	m.LastReqs = snap.Requests
	m.LastUpdate = now
	return m
}

func (m Model) percent() float64 {
	total := m.Runner.Cfg.TotalDuration()
	if total <= 0 || m.Finished {
		return 1
	}
	pct := float64(m.Stats.RunTime) / float64(total)
	if pct > 1.0 {
		pct = 1.0
	}
	return pct
}

func (m Model) View() string {
	if m.Finished {
		return m.resultView()
	}
	return m.liveView()
}

func (m Model) header() string {
	cfg := m.Runner.Cfg
	s := strings.Builder{}
	s.WriteString(styles.Title.Render("🐝 songbench"))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("%s %s\n", cfg.Behavior.Method, cfg.Behavior.URL()))
	s.WriteString(styles.Subtle.Render(fmt.Sprintf(
		"Shape: %s | Target: %d users @ %d/s | Duration: %s | Think: %s",
		cfg.Shape, cfg.TargetRPS, cfg.TargetRPS, cfg.Duration, cfg.Behavior.WaitTime,
	)))
	s.WriteString("\n\n")
	return s.String()
}

func (m Model) liveView() string {
	s := strings.Builder{}
	s.WriteString(m.header())

	reqs := m.Stats.Requests
	errRate := 0.0
	if reqs > 0 {
		errRate = (float64(m.Stats.Fail) / float64(reqs)) * 100
	}

	col1 := fmt.Sprintf("REQ:   %d\nUSERS: %d", reqs, m.Stats.Users)
	col2 := styles.ErrorRateStyle(errRate).Render(fmt.Sprintf("ERR:  %.2f%%\nFAIL: %d", errRate, m.Stats.Fail))
	col3 := fmt.Sprintf("TIME: %s\nKB:   %d", m.Stats.RunTime.Round(time.Second), m.Stats.Bytes/1024)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(col2),
		styles.Box.Render(col3),
	))
	s.WriteString("\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.RpsLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n")

	s.WriteString(styles.Box.Render(fmt.Sprintf(
		"P50: %.2f ms  |  P90: %.2f ms  |  P99: %.2f ms  |  Max: %d ms",
		m.Stats.P50ServiceMs, m.Stats.P90ServiceMs, m.Stats.P99ServiceMs, m.Stats.MaxServiceMs,
	)))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.View())
	s.WriteString("\n")
	s.WriteString(styles.RenderKey("q", "stop"))

	return s.String()
}

func (m Model) resultView() string {
	st := m.Runner.Stats
	s := strings.Builder{}
	s.WriteString(m.header())

	s.WriteString(styles.Success.Render("📊 Test Complete"))
	s.WriteString("\n")

	s.WriteString(styles.Box.Render(fmt.Sprintf(
		"Total Requests: %d\nSuccess:        %d\nFailed:         %d\nTotal Bytes:    %d\nRun Time:       %s",
		st.Requests, st.Success, st.Fail, st.Bytes, m.Stats.RunTime.Round(time.Millisecond),
	)))
	s.WriteString("\n")

	s.WriteString(styles.Active.Render("Latency (Service Time)"))
	s.WriteString("\n")
	s.WriteString(styles.Box.Render(fmt.Sprintf(
		"Avg: %.2f ms\nP50: %.2f ms\nP90: %.2f ms\nP99: %.2f ms\nMax: %d ms",
		st.AvgServiceMs(), st.GetP50Service(), st.GetP90Service(), st.GetP99Service(), st.MaxServiceMs(),
	)))
	s.WriteString("\n")

	if m.Err != nil {
		s.WriteString(styles.Error.Render("Run error: " + m.Err.Error()))
		s.WriteString("\n")
	}

	s.WriteString(styles.RenderKey("q", "quit"))
	return s.String()
}

// Run shows the dashboard until the user quits after the run finished.
func Run(ctx context.Context, r *runner.Runner) error {
	m := NewModel(ctx, r)
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}

	if fm, ok := final.(Model); ok && fm.Err != nil {
		return fm.Err
	}
	return nil
}

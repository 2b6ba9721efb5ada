package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/containment/internal/trial"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const (
	barWidth   = 30
	recentRows = 8
)

// TrialDoneMsg reports a finished trial.
type TrialDoneMsg struct {
	Done   int
	Total  int
	Report *trial.TrialReport
}

// FinishedMsg ends the program once the batch returns.
type FinishedMsg struct{ Err error }

type row struct {
	index   int
	names   string
	active  string
	success bool
	elapsed time.Duration
}

type model struct {
	kind    trial.Kind
	total   int
	done    int
	started time.Time
	rows    []row
	err     error
	quit    bool
	cancel  context.CancelFunc
}

func newModel(kind trial.Kind, total int, cancel context.CancelFunc) model {
	return model{kind: kind, total: total, started: time.Now(), cancel: cancel}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case TrialDoneMsg:
		m.done = msg.Done
		m.total = msg.Total
		if r := msg.Report; r != nil && r.Result != nil {
			m.rows = append(m.rows, row{
				index:   r.Index,
				names:   r.Setup.Names["object"] + " in " + r.Setup.Names["container"],
				active:  formatFrames(r.Result.Active()),
				success: r.Result.Success,
				elapsed: r.Duration,
			})
			if len(m.rows) > recentRows {
				m.rows = m.rows[len(m.rows)-recentRows:]
			}
		}
		return m, nil
	case FinishedMsg:
		m.err = msg.Err
		m.quit = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("    " + cyan.Render("c o n t a i n m e n t") + "  " + dim.Render(string(m.kind)) + "\n")
	b.WriteString(dimmer.Render("    "+strings.Repeat("─", barWidth+12)) + "\n\n")

	filled := 0
	if m.total > 0 {
		filled = m.done * barWidth / m.total
	}
	bar := green.Render(strings.Repeat("█", filled)) + dimmer.Render(strings.Repeat("░", barWidth-filled))
	b.WriteString(fmt.Sprintf("    %s %s\n", bar, white.Render(fmt.Sprintf("%d/%d", m.done, m.total))))
	b.WriteString("    " + dim.Render(fmt.Sprintf("elapsed %s", time.Since(m.started).Round(time.Second))) + "\n\n")

	for _, r := range m.rows {
		mark := green.Render("✓")
		if !r.success {
			mark = red.Render("✗")
		}
		b.WriteString(fmt.Sprintf("    %s %s %s %s\n",
			mark,
			white.Render(fmt.Sprintf("#%-4d", r.index)),
			dim.Render(fmt.Sprintf("%-40s", r.names)),
			dimmer.Render(r.active+"  "+r.elapsed.Round(time.Millisecond).String()),
		))
	}

	if m.err != nil {
		b.WriteString("\n    " + red.Render(m.err.Error()) + "\n")
	}
	if !m.quit {
		b.WriteString("\n" + dim.Render("    q stop") + "\n")
	}
	return b.String()
}

func formatFrames(frames []int) string {
	const shown = 6
	parts := make([]string, 0, shown+1)
	for i, f := range frames {
		if i == shown {
			parts = append(parts, "…")
			break
		}
		parts = append(parts, fmt.Sprint(f))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Work runs the batch, reporting each finished trial through progress.
type Work func(ctx context.Context, progress trial.Progress) error

// Run shows live batch progress while work executes. Pressing q cancels the
// context passed to work.
func Run(ctx context.Context, kind trial.Kind, total int, work Work) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newModel(kind, total, cancel))
	errc := make(chan error, 1)
	go func() {
		err := work(ctx, func(done, total int, r *trial.TrialReport) {
			p.Send(TrialDoneMsg{Done: done, Total: total, Report: r})
		})
		errc <- err
		p.Send(FinishedMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-errc
		return err
	}
	return <-errc
}

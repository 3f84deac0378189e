package stats

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	statsdto "komekome/internal/modules/stats/dto"
	"komekome/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type StatsPort interface {
	Overview(ctx context.Context, period string) (statsdto.OverviewOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type OverviewLoadedMsg struct {
	Overview statsdto.OverviewOutput
	Err      error
}

// ─── model ───────────────────────────────────────────────────────────────────

var periods = []string{"day", "week", "month", "year", "all"}

type Model struct {
	port     StatsPort
	overview statsdto.OverviewOutput
	period   string
	spinner  spinner.Model
	loading  bool
	status   string
	width    int
	height   int
}

func New(port StatsPort) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:    port,
		period:  "week",
		spinner: sp,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.spinner.Tick)
}

// Reload refreshes the overview, e.g. after a session recorded new attempts.
func (m Model) Reload() tea.Cmd {
	return m.loadCmd()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case OverviewLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.status = "stats: " + msg.Err.Error()
			return m, nil
		}
		m.overview = msg.Overview
		m.status = ""

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "d":
			return m.switchPeriod("day")
		case "w":
			return m.switchPeriod("week")
		case "m":
			return m.switchPeriod("month")
		case "y":
			return m.switchPeriod("year")
		case "a":
			return m.switchPeriod("all")
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}
	return m, nil
}

func (m Model) switchPeriod(period string) (Model, tea.Cmd) {
	m.period = period
	m.loading = true
	return m, m.loadCmd()
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Crunching attempts…")
	}
	o := m.overview

	var sb strings.Builder
	sb.WriteString(m.renderPeriodBar() + "\n\n")
	sb.WriteString(fmt.Sprintf("%s %d  %s %d  %s %d  %s %d%%\n",
		theme.Muted.Render("attempts"), o.Total,
		theme.Good.Render("correct"), o.Correct,
		theme.Bad.Render("incorrect"), o.Incorrect,
		theme.Muted.Render("accuracy"), o.AccuracyPct))
	sb.WriteString(fmt.Sprintf("%s %dm%02ds  %s %d (%d%% of catalog)  %s %d days\n\n",
		theme.Muted.Render("time"), o.StudySeconds/60, o.StudySeconds%60,
		theme.Muted.Render("items"), o.UniqueItems, o.CoveragePct,
		theme.Hot.Render("streak"), o.StreakDays))

	if len(o.Daily) > 0 {
		sb.WriteString(theme.Title.Render("Daily") + "\n")
		maxTotal := 0
		for _, p := range o.Daily {
			maxTotal = max(maxTotal, p.Total)
		}
		for _, p := range o.Daily {
			bar := barFor(p.Correct, maxTotal)
			wrong := barWrongFor(p.Incorrect, maxTotal)
			sb.WriteString(fmt.Sprintf("  %s %s%s %d\n", theme.Muted.Render(p.Date),
				theme.Good.Render(bar), theme.Bad.Render(wrong), p.Total))
		}
		sb.WriteString("\n")
	}

	if len(o.WeakItems) > 0 {
		sb.WriteString(theme.Title.Render("Weak items") + "\n")
		for _, weak := range o.WeakItems {
			title := weak.Title
			if title == "" {
				title = weak.ItemID
			}
			sb.WriteString(fmt.Sprintf("  %s %s\n", theme.Bad.Render(fmt.Sprintf("%2d×", weak.Wrong)), title))
		}
		sb.WriteString("\n")
	}

	if len(o.Mistakes) > 0 {
		sb.WriteString(theme.Title.Render("Mistake breakdown") + "\n")
		for _, tag := range o.Mistakes {
			sb.WriteString(fmt.Sprintf("  %3d %s\n", tag.Count, tag.Tag))
		}
	}

	if m.status != "" {
		sb.WriteString("\n" + theme.Warn.Render(m.status))
	}
	sb.WriteString("\n" + theme.Muted.Render("d/w/m/y/a: period  r: refresh"))

	return lipgloss.NewStyle().Padding(1, 2).Render(sb.String())
}

func (m Model) renderPeriodBar() string {
	parts := make([]string, len(periods))
	for i, p := range periods {
		if p == m.period {
			parts[i] = theme.Hot.Render(p)
		} else {
			parts[i] = theme.Muted.Render(p)
		}
	}
	return strings.Join(parts, theme.Muted.Render(" · "))
}

const barWidth = 30

func barFor(n, maxTotal int) string {
	if maxTotal == 0 {
		return ""
	}
	return strings.Repeat("█", n*barWidth/maxTotal)
}

func barWrongFor(n, maxTotal int) string {
	if maxTotal == 0 {
		return ""
	}
	return strings.Repeat("░", n*barWidth/maxTotal)
}

// ─── async commands ──────────────────────────────────────────────────────────

func (m Model) loadCmd() tea.Cmd {
	period := m.period
	return func() tea.Msg {
		overview, err := m.port.Overview(context.Background(), period)
		return OverviewLoadedMsg{Overview: overview, Err: err}
	}
}

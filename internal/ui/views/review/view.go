package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	reviewdomain "komekome/internal/modules/review/domain"
	reviewdto "komekome/internal/modules/review/dto"
	apperrors "komekome/internal/platform/errors"
	"komekome/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

type ReviewPort interface {
	StartSession(ctx context.Context) (reviewdto.StartOutput, error)
	Current(ctx context.Context) (reviewdto.CurrentOutput, error)
	SubmitAnswer(ctx context.Context, input reviewdto.AnswerInput) (reviewdto.AnswerOutput, error)
	AbortSession(ctx context.Context) error
	DueItems(ctx context.Context) ([]reviewdto.ItemOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

type DueLoadedMsg struct {
	Items []reviewdto.ItemOutput
	Err   error
}

// SessionFinishedMsg bubbles up to the app model so the finished batch can be
// handed to the sync engine.
type SessionFinishedMsg struct {
	SessionID  string
	AttemptIDs []string
	Correct    int
	Incorrect  int
	Cycles     int
}

type sessionStartedMsg struct {
	out reviewdto.StartOutput
	err error
}

type currentLoadedMsg struct {
	cur reviewdto.CurrentOutput
	err error
}

type answerRecordedMsg struct {
	out reviewdto.AnswerOutput
	err error
}

type abortedMsg struct{ err error }

// ─── list item ───────────────────────────────────────────────────────────────

type dueItem struct {
	item reviewdto.ItemOutput
}

func (i dueItem) Title() string { return i.item.Title }
func (i dueItem) Description() string {
	return fmt.Sprintf("stage %d  kome %d  %s", i.item.IntervalIndex, i.item.KomeTotal, i.item.Book)
}
func (i dueItem) FilterValue() string { return i.item.Title }

// ─── model ───────────────────────────────────────────────────────────────────

type state int

const (
	stateDue state = iota
	stateQuestion
	stateTagging
	stateSummary
)

type Model struct {
	port ReviewPort

	state   state
	dueList list.Model
	spinner spinner.Model
	loading bool

	cur         reviewdto.CurrentOutput
	presentedAt time.Time
	lastAnswer  reviewdto.AnswerOutput

	// mistake tag picker
	tagCursor   int
	tagSelected map[int]bool

	// running session tallies for the summary screen
	correct   int
	incorrect int
	cycles    int
	sessionID string
	finished  SessionFinishedMsg

	status string
	width  int
	height int
}

func New(port ReviewPort) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Due today"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:    port,
		dueList: l,
		spinner: sp,
		loading: true,
	}
}

// Init resumes an interrupted session when one exists, otherwise shows the
// due queue.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.resumeCmd(), m.spinner.Tick)
}

// Reload refreshes the due queue, e.g. after a sync pulled new content.
func (m Model) Reload() tea.Cmd {
	if m.state != stateDue {
		return nil
	}
	return m.loadDueCmd()
}

// InSession reports whether a question is on screen, in which case global
// single-letter key bindings must yield to the answer keys.
func (m Model) InSession() bool {
	return m.state == stateQuestion || m.state == stateTagging
}

// Filtering reports whether the due list's search filter is active.
func (m Model) Filtering() bool {
	return m.state == stateDue && m.dueList.FilterState() == list.Filtering
}

// ─── update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.dueList.SetSize(m.width, m.height)

	case DueLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.status = "load due: " + msg.Err.Error()
			return m, nil
		}
		items := make([]list.Item, len(msg.Items))
		for i, it := range msg.Items {
			items[i] = dueItem{item: it}
		}
		cmds = append(cmds, m.dueList.SetItems(items))
		m.status = fmt.Sprintf("%d items due", len(msg.Items))

	case sessionStartedMsg:
		if msg.err != nil {
			m.status = "start: " + msg.err.Error()
			return m, nil
		}
		if msg.out.Total == 0 {
			m.status = "nothing due today"
			return m, nil
		}
		m.sessionID = msg.out.SessionID
		m.correct, m.incorrect, m.cycles = 0, 0, 0
		cmds = append(cmds, m.loadCurrentCmd())

	case currentLoadedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, apperrors.ErrNoActiveSession) {
				m.state = stateDue
				cmds = append(cmds, m.loadDueCmd())
			} else {
				m.status = "current: " + msg.err.Error()
			}
			return m, tea.Batch(cmds...)
		}
		m.state = stateQuestion
		m.cur = msg.cur
		m.sessionID = msg.cur.SessionID
		m.presentedAt = time.Now()
		m.status = ""

	case answerRecordedMsg:
		if msg.err != nil {
			m.status = "answer: " + msg.err.Error()
			return m, nil
		}
		m.lastAnswer = msg.out
		if msg.out.Result == string(reviewdomain.ResultCorrect) {
			m.correct++
		} else {
			m.incorrect++
		}
		if msg.out.CycleCompleted {
			m.cycles++
		}
		if msg.out.Finished {
			m.state = stateSummary
			m.finished = SessionFinishedMsg{
				SessionID:  msg.out.SessionID,
				AttemptIDs: msg.out.SessionAttemptIDs,
				Correct:    m.correct,
				Incorrect:  m.incorrect,
				Cycles:     m.cycles,
			}
			finished := m.finished
			return m, func() tea.Msg { return finished }
		}
		cmds = append(cmds, m.loadCurrentCmd())

	case abortedMsg:
		if msg.err != nil {
			m.status = "abort: " + msg.err.Error()
			return m, nil
		}
		m.state = stateDue
		m.loading = true
		cmds = append(cmds, m.loadDueCmd())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.state == stateDue && !m.loading {
		var cmd tea.Cmd
		m.dueList, cmd = m.dueList.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.state {
	case stateDue:
		if m.dueList.FilterState() != list.Filtering && msg.String() == "s" {
			return m, m.startCmd()
		}
		var cmd tea.Cmd
		m.dueList, cmd = m.dueList.Update(msg)
		return m, cmd

	case stateQuestion:
		switch msg.String() {
		case "o":
			return m, m.answerCmd(string(reviewdomain.ResultCorrect), nil)
		case "x":
			m.state = stateTagging
			m.tagCursor = 0
			m.tagSelected = map[int]bool{}
			return m, nil
		case "esc":
			return m, m.abortCmd()
		}

	case stateTagging:
		switch msg.String() {
		case "up", "k":
			if m.tagCursor > 0 {
				m.tagCursor--
			}
		case "down", "j":
			if m.tagCursor < len(reviewdomain.MistakeTags)-1 {
				m.tagCursor++
			}
		case " ":
			m.tagSelected[m.tagCursor] = !m.tagSelected[m.tagCursor]
		case "enter":
			var tags []string
			for i, tag := range reviewdomain.MistakeTags {
				if m.tagSelected[i] {
					tags = append(tags, tag)
				}
			}
			m.state = stateQuestion
			return m, m.answerCmd(string(reviewdomain.ResultIncorrect), tags)
		case "esc":
			m.state = stateQuestion
		}

	case stateSummary:
		switch msg.String() {
		case "enter", "esc":
			m.state = stateDue
			m.loading = true
			return m, m.loadDueCmd()
		}
	}
	return m, nil
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	switch m.state {
	case stateQuestion:
		return m.renderQuestion()
	case stateTagging:
		return m.renderTagging()
	case stateSummary:
		return m.renderSummary()
	}
	if m.loading {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Loading due items…")
	}
	footer := theme.Muted.Render("s: start session")
	if m.status != "" {
		footer = theme.Muted.Render(m.status) + "  " + footer
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.dueList.View(), footer)
}

func (m Model) renderQuestion() string {
	var sb strings.Builder
	sb.WriteString(theme.Muted.Render(fmt.Sprintf("[%d/%d]", m.cur.Position, m.cur.QueueLength)) + "\n\n")
	sb.WriteString(theme.Title.Render(m.cur.Title) + "\n\n")
	if m.cur.Book != "" {
		sb.WriteString(theme.Muted.Render("book:     ") + m.cur.Book + "\n")
	}
	if m.cur.Category != "" {
		sb.WriteString(theme.Muted.Render("category: ") + m.cur.Category + "\n")
	}
	if m.cur.Kind != "" {
		sb.WriteString(theme.Muted.Render("kind:     ") + m.cur.Kind + "\n")
	}
	if m.cur.TargetMinutes > 0 {
		sb.WriteString(theme.Muted.Render("target:   ") + fmt.Sprintf("%d min", m.cur.TargetMinutes) + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(theme.Muted.Render(fmt.Sprintf("stage %d  kome %d", m.cur.IntervalIndex, m.cur.KomeTotal)))
	if m.cur.SessionMisses > 0 {
		sb.WriteString("  " + theme.Warn.Render(fmt.Sprintf("misses this session: %d", m.cur.SessionMisses)))
	}
	sb.WriteString("\n\n")
	sb.WriteString(theme.Good.Render("o") + theme.Muted.Render(": correct   ") +
		theme.Bad.Render("x") + theme.Muted.Render(": incorrect   esc: abort"))
	if m.status != "" {
		sb.WriteString("\n" + theme.Warn.Render(m.status))
	}
	return m.centered(theme.PaneActive.Width(min(m.width-4, 70)).Render(sb.String()))
}

func (m Model) renderTagging() string {
	var sb strings.Builder
	sb.WriteString(theme.Bad.Render("incorrect") + theme.Muted.Render(" — what went wrong?") + "\n\n")
	for i, tag := range reviewdomain.MistakeTags {
		cursor := "  "
		if i == m.tagCursor {
			cursor = theme.Hot.Render("> ")
		}
		mark := "[ ]"
		if m.tagSelected[i] {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s%s %s", cursor, mark, tag)
		if i == m.tagCursor {
			sb.WriteString(theme.Hot.Render(line) + "\n")
		} else {
			sb.WriteString(line + "\n")
		}
	}
	sb.WriteString("\n" + theme.Muted.Render("space: toggle  enter: record  esc: back"))
	return m.centered(theme.PaneActive.Width(min(m.width-4, 50)).Render(sb.String()))
}

func (m Model) renderSummary() string {
	f := m.finished
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Session complete") + "\n\n")
	sb.WriteString(theme.Good.Render(fmt.Sprintf("correct:   %d", f.Correct)) + "\n")
	sb.WriteString(theme.Bad.Render(fmt.Sprintf("incorrect: %d", f.Incorrect)) + "\n")
	sb.WriteString(fmt.Sprintf("cycles:    %d\n", f.Cycles))
	sb.WriteString("\n" + theme.Muted.Render("enter: back to due list"))
	return m.centered(theme.Pane.Width(min(m.width-4, 50)).Render(sb.String()))
}

func (m Model) centered(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// ─── async commands ──────────────────────────────────────────────────────────

func (m Model) resumeCmd() tea.Cmd {
	return func() tea.Msg {
		cur, err := m.port.Current(context.Background())
		return currentLoadedMsg{cur: cur, err: err}
	}
}

func (m Model) loadDueCmd() tea.Cmd {
	return func() tea.Msg {
		items, err := m.port.DueItems(context.Background())
		return DueLoadedMsg{Items: items, Err: err}
	}
}

func (m Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.port.StartSession(context.Background())
		return sessionStartedMsg{out: out, err: err}
	}
}

func (m Model) loadCurrentCmd() tea.Cmd {
	return func() tea.Msg {
		cur, err := m.port.Current(context.Background())
		return currentLoadedMsg{cur: cur, err: err}
	}
}

func (m Model) answerCmd(result string, tags []string) tea.Cmd {
	elapsed := int(time.Since(m.presentedAt).Seconds())
	itemID := m.cur.ItemID
	return func() tea.Msg {
		out, err := m.port.SubmitAnswer(context.Background(), reviewdto.AnswerInput{
			ItemID:         itemID,
			Result:         result,
			ElapsedSeconds: elapsed,
			Mistakes:       tags,
		})
		return answerRecordedMsg{out: out, err: err}
	}
}

func (m Model) abortCmd() tea.Cmd {
	return func() tea.Msg {
		return abortedMsg{err: m.port.AbortSession(context.Background())}
	}
}

package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	reviewdto "komekome/internal/modules/review/dto"
	statsdto "komekome/internal/modules/stats/dto"
	syncdto "komekome/internal/modules/sync/dto"
	"komekome/internal/ui/components"
	"komekome/internal/ui/theme"
	reviewview "komekome/internal/ui/views/review"
	statsview "komekome/internal/ui/views/stats"
)

// ─── ports ───────────────────────────────────────────────────────────────────
// Each port is the minimal interface that this orchestration layer requires.
// Sub-view ports are defined in their own packages and narrowed further.

type reviewPort interface {
	StartSession(ctx context.Context) (reviewdto.StartOutput, error)
	Current(ctx context.Context) (reviewdto.CurrentOutput, error)
	SubmitAnswer(ctx context.Context, input reviewdto.AnswerInput) (reviewdto.AnswerOutput, error)
	AbortSession(ctx context.Context) error
	SessionStatus(ctx context.Context) (reviewdto.SessionStatusOutput, error)
	DueItems(ctx context.Context) ([]reviewdto.ItemOutput, error)
}

type syncPort interface {
	SyncNow(ctx context.Context) (syncdto.SyncOutput, error)
	EnqueueSessionBatch(ctx context.Context, sessionID string, attemptIDs []string) (syncdto.EnqueueOutput, error)
	FlushPending(ctx context.Context) (syncdto.FlushOutput, error)
	Status(ctx context.Context) (syncdto.StatusOutput, error)
}

type statsPort interface {
	Overview(ctx context.Context, period string) (statsdto.OverviewOutput, error)
	Reindex(ctx context.Context) (int, error)
}

// ─── tab index ───────────────────────────────────────────────────────────────

type tabID int

const (
	tabReview tabID = iota
	tabStats
	tabCount
)

var tabLabels = [tabCount]string{"Review", "Stats"}

// ─── async messages ──────────────────────────────────────────────────────────

type syncDoneMsg struct {
	out syncdto.SyncOutput
	err error
}

type batchQueuedMsg struct {
	out syncdto.EnqueueOutput
	err error
}

type flushDoneMsg struct {
	out syncdto.FlushOutput
	err error
}

type reindexDoneMsg struct {
	count int
	err   error
}

// ─── key bindings ────────────────────────────────────────────────────────────

type keyMap struct {
	Tab     key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
	Start   key.Binding
	Answer  key.Binding
	Sync    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "palette")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Start:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start session")),
		Answer:  key.NewBinding(key.WithKeys("o", "x"), key.WithHelp("o/x", "answer")),
		Sync:    key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sync now")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Palette, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Answer},
		{k.Sync, k.Tab},
		{k.Help, k.Palette, k.Quit},
	}
}

var paletteHints = []string{
	"session:start",
	"session:abort",
	"sync:now",
	"sync:flush",
	"stats:reindex",
	"stats:period <day|week|month|year|all>",
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It owns tab routing, the sync status
// surface, the help overlay, and the command palette. All business logic is
// delegated to port interfaces; all rendering is delegated to sub-views.
type Model struct {
	dataDir string

	sync  syncPort
	stats statsPort

	reviewView reviewview.Model
	statsView  statsview.Model

	activeTab  tabID
	keys       keyMap
	help       help.Model
	showHelp   bool
	palette    components.Palette
	syncState  string
	pendingCnt int
	status     string
	width      int
	height     int
}

func NewModel(dataDir string, review reviewPort, sync syncPort, stats statsPort) Model {
	return Model{
		dataDir:    dataDir,
		sync:       sync,
		stats:      stats,
		reviewView: reviewview.New(reviewPortBridge{p: review}),
		statsView:  statsview.New(statsPortBridge{p: stats}),
		activeTab:  tabReview,
		keys:       defaultKeys(),
		help:       help.New(),
		palette:    components.NewPalette(paletteHints),
		syncState:  "idle",
		status:     "ready",
	}
}

// Init starts the sub-views and kicks off the startup pull so a fresh device
// sees remote content before the first session.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.reviewView.Init(),
		m.statsView.Init(),
		m.syncNowCmd(),
	)
}

// ─── update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// The palette intercepts all input while open.
	if m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width
		m.propagateSize()

	case syncDoneMsg:
		if msg.err != nil {
			m.syncState = "error"
			m.status = "sync: " + msg.err.Error()
			break
		}
		m.syncState = msg.out.Status
		m.pendingCnt = msg.out.PendingBatches
		m.status = fmt.Sprintf("sync: +%d/%d content, %d attempts in, %d out",
			msg.out.ContentCreated, msg.out.ContentUpdated, msg.out.AttemptsAdopted, msg.out.Pushed)
		// New content may have changed what is due.
		cmds = append(cmds, m.reviewView.Reload())

	case batchQueuedMsg:
		if msg.err != nil {
			m.syncState = "offline"
			m.status = "batch queued for retry: " + msg.err.Error()
			break
		}
		if msg.out.Delivered {
			m.syncState = "synced"
			m.status = fmt.Sprintf("pushed %d attempts", msg.out.Attempts)
		} else {
			m.syncState = "offline"
			m.pendingCnt++
			m.status = fmt.Sprintf("queued %d attempts for later", msg.out.Attempts)
		}
		cmds = append(cmds, m.statsView.Reload())

	case flushDoneMsg:
		if msg.err != nil {
			m.status = "flush: " + msg.err.Error()
			break
		}
		m.pendingCnt = msg.out.Remaining
		if msg.out.Remaining == 0 {
			m.syncState = "synced"
		}
		m.status = fmt.Sprintf("flushed %d batches, %d remaining", msg.out.Delivered, msg.out.Remaining)

	case reindexDoneMsg:
		if msg.err != nil {
			m.status = "reindex: " + msg.err.Error()
			break
		}
		m.status = fmt.Sprintf("indexed %d attempts", msg.count)
		cmds = append(cmds, m.statsView.Reload())

	case reviewview.SessionFinishedMsg:
		// Hand the finished batch to the sync engine, then let the review
		// view render its summary.
		cmds = append(cmds, m.enqueueBatchCmd(msg.SessionID, msg.AttemptIDs))
		var cmd tea.Cmd
		m.reviewView, cmd = m.reviewView.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		if m.reviewView.Filtering() {
			break
		}

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			// q answers nothing mid-session, so only quit outside one.
			if m.activeTab != tabReview || !m.reviewView.InSession() {
				return m, tea.Quit
			}
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		case ":":
			cmds = append(cmds, m.palette.Open())
			return m, tea.Batch(cmds...)
		case "S":
			m.syncState = "syncing"
			cmds = append(cmds, m.syncNowCmd())
		}
	}

	var tabCmd tea.Cmd
	switch m.activeTab {
	case tabReview:
		m.reviewView, tabCmd = m.reviewView.Update(msg)
	case tabStats:
		m.statsView, tabCmd = m.statsView.Update(msg)
	}
	cmds = append(cmds, tabCmd)

	return m, tea.Batch(cmds...)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	tabBarH := lipgloss.Height(tabBar)
	statusBarH := lipgloss.Height(statusBar)

	contentH := m.height - tabBarH - statusBarH
	if contentH < 1 {
		contentH = 1
	}

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).
			Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH,
			lipgloss.Center, lipgloss.Center, m.palette.View())
	default:
		content = m.activeView()
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) activeView() string {
	switch m.activeTab {
	case tabReview:
		return m.reviewView.View()
	case tabStats:
		return m.statsView.View()
	}
	return ""
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		label := tabLabels[i]
		if i == m.activeTab {
			parts[i] = theme.Hot.Render(" " + label + " ")
		} else {
			parts[i] = theme.Muted.Render(" " + label + " ")
		}
	}
	sep := theme.Muted.Render(" │ ")
	bar := "komekome  " + strings.Join(parts, sep)
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	right := theme.Muted.Render("?:help  tab:switch  :::palette  q:quit")
	badge := m.syncBadge()
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(badge) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	bar := badge + "  " + left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(bar)
}

func (m Model) syncBadge() string {
	label := "● " + m.syncState
	if m.pendingCnt > 0 {
		label = fmt.Sprintf("● %s (%d pending)", m.syncState, m.pendingCnt)
	}
	switch m.syncState {
	case "synced":
		return theme.Good.Render(label)
	case "offline", "syncing":
		return theme.Warn.Render(label)
	case "error":
		return theme.Bad.Render(label)
	}
	return theme.Muted.Render(label)
}

// ─── palette execution ───────────────────────────────────────────────────────

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(input) == "" {
		return m, nil
	}
	parts := strings.Fields(input)

	switch parts[0] {
	case "session:start":
		m.activeTab = tabReview
		var cmd tea.Cmd
		m.reviewView, cmd = m.reviewView.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
		return m, cmd

	case "session:abort":
		m.activeTab = tabReview
		var cmd tea.Cmd
		m.reviewView, cmd = m.reviewView.Update(tea.KeyMsg{Type: tea.KeyEsc})
		return m, cmd

	case "sync:now":
		m.syncState = "syncing"
		return m, m.syncNowCmd()

	case "sync:flush":
		return m, m.flushCmd()

	case "stats:reindex":
		return m, m.reindexCmd()

	case "stats:period":
		if len(parts) < 2 {
			m.status = "usage: stats:period <day|week|month|year|all>"
			return m, nil
		}
		m.activeTab = tabStats
		key := map[string]rune{"day": 'd', "week": 'w', "month": 'm', "year": 'y', "all": 'a'}[parts[1]]
		if key == 0 {
			m.status = "unknown period: " + parts[1]
			return m, nil
		}
		var cmd tea.Cmd
		m.statsView, cmd = m.statsView.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{key}})
		return m, cmd

	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (m *Model) propagateSize() {
	sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
	m.reviewView, _ = m.reviewView.Update(sz)
	m.statsView, _ = m.statsView.Update(sz)
}

// ─── async commands ──────────────────────────────────────────────────────────

func (m Model) syncNowCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.sync.SyncNow(context.Background())
		return syncDoneMsg{out: out, err: err}
	}
}

func (m Model) enqueueBatchCmd(sessionID string, attemptIDs []string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.sync.EnqueueSessionBatch(context.Background(), sessionID, attemptIDs)
		return batchQueuedMsg{out: out, err: err}
	}
}

func (m Model) flushCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.sync.FlushPending(context.Background())
		return flushDoneMsg{out: out, err: err}
	}
}

func (m Model) reindexCmd() tea.Cmd {
	return func() tea.Msg {
		count, err := m.stats.Reindex(context.Background())
		return reindexDoneMsg{count: count, err: err}
	}
}

// ─── port bridges ────────────────────────────────────────────────────────────
// Each bridge narrows a broad port interface to the minimal interface needed
// by a specific sub-view.

type reviewPortBridge struct{ p reviewPort }

func (b reviewPortBridge) StartSession(ctx context.Context) (reviewdto.StartOutput, error) {
	return b.p.StartSession(ctx)
}
func (b reviewPortBridge) Current(ctx context.Context) (reviewdto.CurrentOutput, error) {
	return b.p.Current(ctx)
}
func (b reviewPortBridge) SubmitAnswer(ctx context.Context, input reviewdto.AnswerInput) (reviewdto.AnswerOutput, error) {
	return b.p.SubmitAnswer(ctx, input)
}
func (b reviewPortBridge) AbortSession(ctx context.Context) error {
	return b.p.AbortSession(ctx)
}
func (b reviewPortBridge) DueItems(ctx context.Context) ([]reviewdto.ItemOutput, error) {
	return b.p.DueItems(ctx)
}

type statsPortBridge struct{ p statsPort }

func (b statsPortBridge) Overview(ctx context.Context, period string) (statsdto.OverviewOutput, error) {
	return b.p.Overview(ctx, period)
}

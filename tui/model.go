// Package tui is the terminal interview room: the question, the avatar
// notice, and the live transcript, with keys to finish or leave.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randalmurphal/interviewroom/finalize"
	"github.com/randalmurphal/interviewroom/interview"
	"github.com/randalmurphal/interviewroom/transcript"
)

// RefreshInterval is how often the transcript view is redrawn. The view
// is updated by the synchronizer; the model only reads it.
const RefreshInterval = 250 * time.Millisecond

// Room is the session the model drives. *interview.Controller satisfies
// it.
type Room interface {
	Session() interview.Session
	Status() interview.Status
	View() *transcript.View
	End()
	Unload() <-chan struct{}
	Done() <-chan struct{}
}

// Model is the root bubbletea model for one interview.
type Model struct {
	room   Room
	nav    *Navigator
	viewer *transcript.Viewer
	notice string

	// Snapshot of the room, refreshed on every tick.
	session  interview.Session
	status   interview.Status
	lines    []transcript.Utterance
	revision uint64

	// UI state
	width  int
	height int
	scroll int
	live   bool

	finishing bool
	leaving   bool
	results   string
}

// New creates a room model. notice is the avatar explanation, empty when
// the avatar is available.
func New(room Room, nav *Navigator, notice string) Model {
	m := Model{
		room:   room,
		nav:    nav,
		viewer: transcript.NewViewer(""),
		notice: notice,
		live:   true,
	}
	m.snapshot()
	return m
}

// Init starts the redraw ticker and the completion watchers.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{refreshCmd(), waitDoneCmd(m.room.Done())}
	if m.nav != nil {
		cmds = append(cmds, waitNavigationCmd(m.nav.Changes()))
	}
	return tea.Batch(cmds...)
}

func refreshCmd() tea.Cmd {
	return tea.Tick(RefreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func waitDoneCmd(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return DoneMsg{}
	}
}

func waitNavigationCmd(changes <-chan string) tea.Cmd {
	return func() tea.Msg {
		return NavigatedMsg{Path: <-changes}
	}
}

func unloadCmd(room Room) tea.Cmd {
	return func() tea.Msg {
		<-room.Unload()
		return unloadedMsg{}
	}
}

// Results is the results path the pipeline navigated to, or "" if the
// room was left before finalize finished.
func (m Model) Results() string {
	return m.results
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.live {
			m.scrollToBottom()
		}
		return m, nil

	case refreshMsg:
		m.snapshot()
		return m, refreshCmd()

	case NavigatedMsg:
		m.results = msg.Path
		return m, nil

	case DoneMsg:
		m.snapshot()
		if m.results == "" && m.nav != nil && finalize.AtResults(m.nav.Location(), m.session.ID) {
			m.results = m.nav.Location()
		}
		return m, tea.Quit

	case unloadedMsg:
		return m, tea.Quit
	}

	return m, nil
}

// snapshot copies room state into the model. The transcript is only
// re-copied when its revision moved.
func (m *Model) snapshot() {
	m.session = m.room.Session()
	m.status = m.room.Status()

	view := m.room.View()
	if rev := view.Revision(); rev != m.revision || m.lines == nil {
		m.lines = view.Snapshot()
		m.revision = rev
		if m.live {
			m.scrollToBottom()
		}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyFinish, KeyFinishUpper:
		if m.finishing || m.leaving {
			return m, nil
		}
		m.finishing = true
		m.room.End()
		m.snapshot()
		return m, nil

	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		if m.leaving {
			return m, nil
		}
		m.leaving = true
		if m.status == interview.StatusNotStarted {
			return m, tea.Quit
		}
		return m, unloadCmd(m.room)

	case KeyUp, KeyK:
		m.live = false
		if m.scroll > 0 {
			m.scroll--
		}
		return m, nil

	case KeyDown, KeyJ:
		m.scroll++
		if maxScroll := m.maxScroll(); m.scroll >= maxScroll {
			m.scroll = maxScroll
			m.live = true
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) scrollToBottom() {
	m.scroll = m.maxScroll()
}

func (m Model) maxScroll() int {
	visible := m.visibleLines()
	if len(m.lines) <= visible {
		return 0
	}
	return len(m.lines) - visible
}

func (m Model) visibleLines() int {
	if m.height == 0 {
		return 20
	}
	// header, status, question, two dividers, footer, and the notice box
	reserved := 7
	if m.notice != "" {
		reserved += strings.Count(m.notice, "\n") + 3
	}
	return max(3, m.height-reserved)
}

// View renders the room.
func (m Model) View() string {
	width := m.width
	if width == 0 {
		width = 80
	}
	divider := DividerStyle.Render(strings.Repeat("─", width))

	sections := []string{m.renderHeader(), m.renderStatus()}
	if m.notice != "" {
		sections = append(sections, NoticeStyle.Width(max(20, width-4)).Render(m.notice))
	}
	sections = append(sections,
		m.renderQuestion(),
		divider,
		m.renderTranscript(),
		divider,
		m.renderFooter(),
	)
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := TitleStyle.Render("INTERVIEW ROOM")
	if m.session.ID != 0 {
		title += DimStyle.Render(fmt.Sprintf(" #%d", m.session.ID))
	}
	return title
}

func (m Model) renderStatus() string {
	switch m.status {
	case interview.StatusActive:
		return LiveDotStyle.Render("● LIVE") + DimStyle.Render("  speak your answer")
	case interview.StatusFinishing:
		return FinishingStyle.Render("◐ FINISHING") + DimStyle.Render("  uploading and closing the session")
	case interview.StatusCompleted:
		if m.results != "" {
			return DoneStyle.Render("✓ COMPLETED") + DimStyle.Render("  "+m.results)
		}
		return DoneStyle.Render("✓ COMPLETED")
	default:
		return DimStyle.Render("○ NOT STARTED")
	}
}

func (m Model) renderQuestion() string {
	q, ok := m.session.CurrentQuestion()
	if !ok {
		return DimStyle.Render("No question yet.")
	}
	return QuestionStyle.Render(fmt.Sprintf("Q%d of %d: %s", m.session.Current+1, len(m.session.Questions), q.Text))
}

func (m Model) renderTranscript() string {
	if len(m.lines) == 0 {
		return DimStyle.Render("Waiting for the conversation to begin...")
	}

	start := min(m.scroll, len(m.lines))
	end := min(start+m.visibleLines(), len(m.lines))

	out := make([]string, 0, end-start)
	for _, u := range m.lines[start:end] {
		label := m.viewer.Label(u.Speaker)
		if u.Speaker == transcript.SpeakerAI {
			label = InterviewerLabelStyle.Render(label)
		} else {
			label = CandidateLabelStyle.Render(label)
		}
		out = append(out, label+": "+u.Text)
	}
	return strings.Join(out, "\n")
}

func (m Model) renderFooter() string {
	switch {
	case m.leaving:
		return HelpStyle.Render("Leaving...")
	case m.status == interview.StatusActive:
		return HelpStyle.Render("f finish  ↑/↓ scroll  q leave")
	default:
		return HelpStyle.Render("↑/↓ scroll  q leave")
	}
}

package tui

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randalmurphal/interviewroom/interview"
	"github.com/randalmurphal/interviewroom/transcript"
)

type fakeRoom struct {
	mu      sync.Mutex
	session interview.Session
	status  interview.Status
	view    *transcript.View
	ends    int
	unloads int
	done    chan struct{}
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{
		session: interview.Session{
			ID: 12,
			Questions: []interview.Question{
				{ID: 100, Text: "Tell me about yourself."},
				{ID: 101, Text: "Why Go?"},
			},
		},
		status: interview.StatusActive,
		view:   transcript.NewView(),
		done:   make(chan struct{}),
	}
}

func (r *fakeRoom) Session() interview.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

func (r *fakeRoom) Status() interview.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *fakeRoom) View() *transcript.View { return r.view }

func (r *fakeRoom) End() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends++
	r.status = interview.StatusFinishing
}

func (r *fakeRoom) Unload() <-chan struct{} {
	r.mu.Lock()
	r.unloads++
	r.mu.Unlock()
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (r *fakeRoom) Done() <-chan struct{} { return r.done }

func key(s string) tea.KeyMsg {
	if s == KeyCtrlC {
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestNewModel(t *testing.T) {
	m := New(newFakeRoom(), NewNavigator("/interview"), "")

	if !m.live {
		t.Error("new model should follow the transcript")
	}
	if m.status != interview.StatusActive {
		t.Errorf("status = %q, want active", m.status)
	}

	out := m.View()
	for _, want := range []string{"INTERVIEW ROOM", "#12", "LIVE", "Q1 of 2: Tell me about yourself.", "Waiting for the conversation"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q:\n%s", want, out)
		}
	}
}

func TestView_Notice(t *testing.T) {
	m := New(newFakeRoom(), nil, "Avatar unavailable\nout of credits")
	if out := m.View(); !strings.Contains(out, "out of credits") {
		t.Errorf("View() missing notice:\n%s", out)
	}
}

func TestRefresh_PicksUpTranscript(t *testing.T) {
	room := newFakeRoom()
	m := New(room, nil, "")

	room.view.Replace([]transcript.Utterance{
		{Speaker: transcript.SpeakerAI, Text: "Welcome."},
		{Speaker: transcript.SpeakerCandidate, Text: "Thanks for having me."},
	})

	updated, cmd := m.Update(refreshMsg{})
	model := updated.(Model)

	if cmd == nil {
		t.Error("refresh should schedule the next tick")
	}
	if len(model.lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(model.lines))
	}
	out := model.View()
	if !strings.Contains(out, "Interviewer: Welcome.") || !strings.Contains(out, "Candidate: Thanks for having me.") {
		t.Errorf("View() transcript:\n%s", out)
	}
}

func TestFinishKey(t *testing.T) {
	room := newFakeRoom()
	m := New(room, nil, "")

	updated, _ := m.Update(key(KeyFinish))
	model := updated.(Model)
	updated, _ = model.Update(key(KeyFinishUpper))
	model = updated.(Model)

	if room.ends != 1 {
		t.Errorf("End() calls = %d, want 1", room.ends)
	}
	if model.status != interview.StatusFinishing {
		t.Errorf("status = %q, want finishing", model.status)
	}
	if !strings.Contains(model.View(), "FINISHING") {
		t.Error("View() should show finishing")
	}
}

func TestQuitKey_Active(t *testing.T) {
	room := newFakeRoom()
	m := New(room, nil, "")

	updated, cmd := m.Update(key(KeyQuit))
	model := updated.(Model)

	if !model.leaving {
		t.Error("model should be leaving")
	}
	if cmd == nil {
		t.Fatal("quit while active should unload")
	}
	if _, ok := cmd().(unloadedMsg); !ok {
		t.Error("unload command should report unloadedMsg")
	}
	if room.unloads != 1 {
		t.Errorf("Unload() calls = %d, want 1", room.unloads)
	}

	_, cmd = model.Update(unloadedMsg{})
	if !isQuit(cmd) {
		t.Error("unloadedMsg should quit")
	}
}

func TestQuitKey_NotStarted(t *testing.T) {
	room := newFakeRoom()
	room.status = interview.StatusNotStarted
	m := New(room, nil, "")

	_, cmd := m.Update(key(KeyCtrlC))
	if !isQuit(cmd) {
		t.Error("quit before start should exit immediately")
	}
	if room.unloads != 0 {
		t.Errorf("Unload() calls = %d, want 0", room.unloads)
	}
}

func TestDone_RecordsResults(t *testing.T) {
	room := newFakeRoom()
	nav := NewNavigator("/interview")
	m := New(room, nav, "")

	updated, _ := m.Update(key(KeyFinish))
	model := updated.(Model)

	nav.Navigate("/results/12")
	room.mu.Lock()
	room.status = interview.StatusCompleted
	room.mu.Unlock()

	updated, cmd := model.Update(DoneMsg{})
	model = updated.(Model)

	if !isQuit(cmd) {
		t.Error("DoneMsg should quit")
	}
	if model.Results() != "/results/12" {
		t.Errorf("Results() = %q, want /results/12", model.Results())
	}
	if !strings.Contains(model.View(), "COMPLETED") {
		t.Error("View() should show completed")
	}
}

func TestDone_WithoutNavigation(t *testing.T) {
	room := newFakeRoom()
	m := New(room, NewNavigator("/interview"), "")

	updated, _ := m.Update(DoneMsg{})
	if got := updated.(Model).Results(); got != "" {
		t.Errorf("Results() = %q, want empty", got)
	}
}

func TestNavigatedMsg(t *testing.T) {
	m := New(newFakeRoom(), nil, "")
	updated, cmd := m.Update(NavigatedMsg{Path: "/results/12"})
	if cmd != nil {
		t.Error("navigation alone should not quit")
	}
	if got := updated.(Model).Results(); got != "/results/12" {
		t.Errorf("Results() = %q", got)
	}
}

func TestScroll(t *testing.T) {
	room := newFakeRoom()
	var lines []transcript.Utterance
	for i := 0; i < 30; i++ {
		lines = append(lines, transcript.Utterance{Speaker: transcript.SpeakerCandidate, Text: "line", At: time.Now()})
	}
	room.view.Replace(lines)

	m := New(room, nil, "")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 17})
	model := updated.(Model)

	if model.scroll != model.maxScroll() || model.maxScroll() == 0 {
		t.Fatalf("scroll = %d, max = %d; want pinned to bottom", model.scroll, model.maxScroll())
	}

	updated, _ = model.Update(key(KeyK))
	model = updated.(Model)
	if model.live {
		t.Error("scrolling up should leave live mode")
	}

	updated, _ = model.Update(key(KeyJ))
	model = updated.(Model)
	if !model.live {
		t.Error("scrolling back to the bottom should resume live mode")
	}
}

func TestNavigator(t *testing.T) {
	nav := NewNavigator("/interview")
	if nav.Location() != "/interview" {
		t.Errorf("Location() = %q", nav.Location())
	}

	// More navigations than the buffer holds must not block.
	for i := 0; i < 10; i++ {
		nav.Navigate("/results/1")
	}
	if nav.Location() != "/results/1" {
		t.Errorf("Location() = %q", nav.Location())
	}

	select {
	case got := <-nav.Changes():
		if got != "/results/1" {
			t.Errorf("change = %q", got)
		}
	default:
		t.Error("expected a buffered change")
	}
}

package transcript

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Header is the session metadata printed above a transcript.
type Header struct {
	SessionID    int64
	Status       string
	StartedAt    time.Time
	EndedAt      time.Time
	RecordingURL string
}

// Viewer displays transcripts
type Viewer struct {
	aiLabel string
}

// NewViewer creates a viewer. aiLabel names the avatar side in output;
// empty means "interviewer".
func NewViewer(aiLabel string) *Viewer {
	if aiLabel == "" {
		aiLabel = "interviewer"
	}
	return &Viewer{aiLabel: aiLabel}
}

// Label returns the display name for a speaker.
func (v *Viewer) Label(s Speaker) string {
	// Casers carry state, so each call gets its own.
	caser := cases.Title(language.English)
	if s == SpeakerAI {
		return caser.String(v.aiLabel)
	}
	return caser.String(string(s))
}

// ViewFull displays the complete transcript
func (v *Viewer) ViewFull(w io.Writer, h Header, utterances []Utterance) error {
	v.writeHeader(w, h, len(utterances))

	for _, u := range utterances {
		v.writeUtterance(w, u)
	}

	return nil
}

// ViewSummary displays one truncated line per utterance
func (v *Viewer) ViewSummary(w io.Writer, h Header, utterances []Utterance) error {
	v.writeHeader(w, h, len(utterances))

	fmt.Fprintln(w, "\nConversation:")
	for i, u := range utterances {
		preview := strings.ReplaceAll(u.Text, "\n", " ")
		preview = truncate(preview, 100)
		fmt.Fprintf(w, "  [%d] %s: %s\n", i+1, v.Label(u.Speaker), preview)
	}

	return nil
}

func (v *Viewer) writeHeader(w io.Writer, h Header, count int) {
	sep := strings.Repeat("=", 60)

	fmt.Fprintln(w, sep)
	fmt.Fprintf(w, "Interview: %d | Status: %s\n", h.SessionID, h.Status)
	if !h.StartedAt.IsZero() {
		line := fmt.Sprintf("Started: %s", h.StartedAt.Format("2006-01-02 15:04:05"))
		if !h.EndedAt.IsZero() {
			line += fmt.Sprintf(" | Duration: %s", h.EndedAt.Sub(h.StartedAt).Round(time.Second))
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "Utterances: %d\n", count)
	if h.RecordingURL != "" {
		fmt.Fprintf(w, "Recording: %s\n", h.RecordingURL)
	}
	fmt.Fprintln(w, sep)
}

func (v *Viewer) writeUtterance(w io.Writer, u Utterance) {
	fmt.Fprintln(w)
	header := v.Label(u.Speaker)
	if !u.At.IsZero() {
		header += fmt.Sprintf(" (%s)", u.At.Format("15:04:05"))
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w, u.Text)
}

// ExportMarkdown exports to markdown format
func (v *Viewer) ExportMarkdown(w io.Writer, h Header, utterances []Utterance) error {
	fmt.Fprintf(w, "# Interview %d\n\n", h.SessionID)

	fmt.Fprintf(w, "## Metadata\n\n")
	fmt.Fprintf(w, "| Field | Value |\n")
	fmt.Fprintf(w, "|-------|-------|\n")
	fmt.Fprintf(w, "| Status | %s |\n", h.Status)
	if !h.StartedAt.IsZero() {
		fmt.Fprintf(w, "| Started | %s |\n", h.StartedAt.Format(time.RFC3339))
	}
	if !h.EndedAt.IsZero() {
		fmt.Fprintf(w, "| Ended | %s |\n", h.EndedAt.Format(time.RFC3339))
	}
	if h.RecordingURL != "" {
		fmt.Fprintf(w, "| Recording | %s |\n", h.RecordingURL)
	}
	fmt.Fprintf(w, "| Utterances | %d |\n", len(utterances))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "## Conversation\n\n")
	for _, u := range utterances {
		if u.At.IsZero() {
			fmt.Fprintf(w, "**%s:** %s\n\n", v.Label(u.Speaker), u.Text)
			continue
		}
		fmt.Fprintf(w, "**%s** _%s_: %s\n\n", v.Label(u.Speaker), u.At.Format("15:04:05"), u.Text)
	}

	return nil
}

// truncate shortens a string to max runes
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

package transcript

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// Speaker identifies who said an utterance.
type Speaker string

// Speakers.
const (
	SpeakerAI        Speaker = "ai"
	SpeakerCandidate Speaker = "candidate"
)

// SpeakerFromSender maps the backend's sender field ("AI" or "User") to a
// Speaker. Anything that is not the AI is attributed to the candidate.
func SpeakerFromSender(sender string) Speaker {
	if strings.EqualFold(strings.TrimSpace(sender), "ai") {
		return SpeakerAI
	}
	return SpeakerCandidate
}

// Utterance is a single recognized unit of speech. Values are never mutated
// once created.
type Utterance struct {
	Speaker Speaker
	Text    string
	At      time.Time
}

// View is the ordered client-side replica of the transcript. Insertion
// order is chronological order. It is safe for concurrent use.
type View struct {
	mu         sync.RWMutex
	utterances []Utterance
	revision   uint64
}

// NewView creates an empty view.
func NewView() *View {
	return &View{}
}

// Replace swaps the whole view for utterances. Callers only invoke it
// with a complete, successful pull.
func (v *View) Replace(utterances []Utterance) {
	next := slices.Clone(utterances)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.utterances = next
	v.revision++
}

// AppendLocal adds an optimistic echo of a locally recognized utterance.
func (v *View) AppendLocal(u Utterance) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.utterances = append(v.utterances, u)
	v.revision++
}

// Snapshot returns a copy of the current utterances.
func (v *View) Snapshot() []Utterance {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.utterances)
}

// Len returns the number of utterances.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.utterances)
}

// Revision increments on every change; renderers compare it to skip
// redraws.
func (v *View) Revision() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.revision
}

// Package transcript models the interview conversation as the client sees it.
//
// Core types:
//   - Utterance: one line of speech attributed to the avatar or the candidate
//   - View: the client's replica of the server-side transcript
//   - Viewer: terminal display and Markdown export
//
// The server holds the authoritative transcript. A View is refreshed by
// replacing it wholesale with each successful pull; the only local write is
// an optimistic echo of what the candidate just said, which the next pull
// overwrites.
//
//	view := transcript.NewView()
//	view.AppendLocal(transcript.Utterance{Speaker: transcript.SpeakerCandidate, Text: "Hi"})
//	view.Replace(pulled)
//	for _, u := range view.Snapshot() {
//	    fmt.Println(u.Speaker, u.Text)
//	}
package transcript

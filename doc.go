// Package interviewroom is the client side of a live mock interview: it
// starts a session against the interview backend, turns the candidate's
// speech into answers, keeps the transcript in step with the server, and
// finalizes the session when it ends.
//
// The package is organized into subpackages by domain:
//
//   - interview: Session lifecycle controller, transcript synchronizer, crash recovery
//   - finalize: End-of-session pipeline (upload, attach, end, navigate)
//   - recognition: Continuous speech recognition with automatic restart
//   - capture: Local audio/video recording and microphone input via ffmpeg
//   - artifact: Local recording retention
//   - transcript: Ordered, deduplicated transcript view and Markdown export
//   - backend: Interview API client
//   - storage: Signed recording uploads
//   - store: Saved login and session journal (SQLite)
//   - auth: Access token parsing and the signed-in session
//   - config: Layered configuration (defaults, files, env, flags)
//   - context: Service dependency injection
//   - notify: Notification services (Slack, webhook)
//   - prompt: Message templates
//   - tui: Terminal interview room
//   - http: HTTP client utilities
//   - testutil: Test utilities and fixtures
//
// # Quick Start
//
//	import (
//	    "github.com/randalmurphal/interviewroom/backend"
//	    "github.com/randalmurphal/interviewroom/interview"
//	)
//
//	ctrl, err := interview.New(interview.Config{
//	    Backend: backend.New(backend.Config{BaseURL: url, Token: token}),
//	})
//	if err != nil {
//	    return err
//	}
//	defer ctrl.Close()
//
//	if err := ctrl.Start(ctx, interview.OptionsFromSession(sess)); err != nil {
//	    return err
//	}
//	// ... candidate answers ...
//	ctrl.End()
//	_ = ctrl.Wait(ctx)
//
// The interviewroom command in cmd/interviewroom wires these together
// behind a terminal UI.
package interviewroom

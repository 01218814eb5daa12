// Package finalize runs the one-time sequence that closes an interview:
// hand over the local recording, fetch signed upload credentials, upload to
// cloud storage, attach the resulting URL to the interview, mark the
// interview ended, and show the results.
//
// The steps are nodes in a flowgraph graph:
//
//	materialize ──(empty)──────────────┐
//	     │                             │
//	 signature ──(no credentials)──────┤
//	     │                             │
//	  upload ──(failed)────────────────┤
//	     │                             ▼
//	  attach ──────────────────► end_session ──► navigate
//
// Every step is best-effort. A failure is logged, reported through the
// notifier in the context, and recorded on the returned State; the
// end_session and navigate steps always run.
//
// The pipeline does not guard against being run twice. Callers own that
// (see interview.FinalizeGuard).
package finalize

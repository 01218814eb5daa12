// Package interview is the live interview session controller.
//
// A Controller owns one session from start request to completion. It
// starts the local recorder, continuous speech recognition, and the
// transcript Synchronizer, and funnels every way a session can end into a
// single run of the finalize pipeline:
//
//   - End while recording stops the recorder; finalize runs when the
//     recording settles.
//   - End without a recording runs finalize immediately with no artifact.
//   - Unload fires one end request without waiting for upload.
//
// A FinalizeGuard makes sure only one of these runs the end sequence.
//
// Session lifecycle:
//
//	NotStarted ──Start──► Active ──End/recorder stop/Unload──► Finishing ──► Completed
//
// Recognition and transcript pulls run only while the session is Active.
// Everything after Start is best-effort: failures are logged and reported
// through the notifier in the Start context, never returned.
//
// Recover ends sessions a previous process left open, using the local
// journal.
package interview

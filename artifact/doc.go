// Package artifact manages the lifecycle of local interview recordings.
//
// A recording is staged under the recording directory until finalize has
// uploaded it and attached the URL to the interview. Release removes it
// right after that. A recording that never reached storage is kept for the
// retention window so it can be recovered by hand, and Cleanup deletes it
// afterwards.
//
// Example usage:
//
//	mgr := artifact.NewLifecycleManager(cfg.RecordingDir(), artifact.RetentionConfig{
//	    RetentionDays: 7,
//	})
//	result, err := mgr.Cleanup(false)
package artifact

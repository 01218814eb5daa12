package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randalmurphal/interviewroom/capture"
	"github.com/randalmurphal/interviewroom/config"
	ircontext "github.com/randalmurphal/interviewroom/context"
	cerrors "github.com/randalmurphal/interviewroom/errors"
	"github.com/randalmurphal/interviewroom/interview"
	"github.com/randalmurphal/interviewroom/recognition"
	"github.com/randalmurphal/interviewroom/storage"
	"github.com/randalmurphal/interviewroom/tui"
)

// interviewPath is where the navigator starts; finalize moves it to the
// results view.
const interviewPath = "/interview"

// defaultUnloadWait bounds how long leaving waits for the end request.
const defaultUnloadWait = 5 * time.Second

func runStart(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	role := fs.String("role", "", "interview for this role instead of the profile's target role")
	noRecord := fs.Bool("no-record", false, "do not record the session")
	unloadWait := fs.Duration("unload-wait", defaultUnloadWait, "how long leaving waits for the end request")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess := ircontext.Session(ctx)
	if sess == nil {
		return cerrors.NewNotAuthenticatedError()
	}
	cfg := ircontext.MustConfig(ctx)
	api := ircontext.MustBackend(ctx)
	st := ircontext.MustStore(ctx)
	prompts := ircontext.MustPrompt(ctx)
	logger := slog.Default()

	// Keep the profile current; a failed refresh falls back to what the
	// session already holds.
	if profile, err := api.Profile(ctx); err != nil {
		logger.Warn("profile refresh failed", "error", err)
	} else {
		sess.SetProfile(profile.TargetRole, profile.TechStack, "")
	}

	if report, err := interview.Recover(ctx, st, api, logger); err != nil {
		logger.Warn("recovery sweep failed", "error", err)
	} else if len(report.Recovered) > 0 {
		fmt.Fprintf(output(ctx), "Ended %d interview(s) left open by a previous run\n", len(report.Recovered))
	}
	cleanupRecordings(ctx)

	nav := tui.NewNavigator(interviewPath)
	icfg := interview.Config{
		Backend:       api,
		Uploader:      storage.NewUploader(storage.Config{URLTemplate: cfg.UploadURLTemplate, Logger: logger}),
		Navigator:     nav,
		Journal:       st,
		Retention:     recordingManager(ctx).WithLogger(logger),
		PollInterval:  cfg.PollInterval,
		TranscriptDir: cfg.TranscriptDir(),
		Logger:        logger,
	}
	if rec := newRecognizer(cfg, logger); rec != nil {
		icfg.Recognizer = rec
	}
	if !*noRecord {
		icfg.Recorder = capture.NewRecorder(capture.NewFFmpegCapture(cfg.CaptureArgs, logger), capture.RecorderConfig{
			Dir:    cfg.RecordingDir(),
			Ext:    cfg.CaptureExt,
			Logger: logger,
		})
	}

	ctrl, err := interview.New(icfg)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	opts := interview.OptionsFromSession(sess)
	if *role != "" {
		opts.TargetRole = *role
	}
	if err := ctrl.Start(ctx, opts); err != nil {
		if msg, rerr := prompts.StartFailure(opts.TargetRole, err); rerr == nil {
			fmt.Fprintln(output(ctx), msg)
		}
		return err
	}

	notice, err := prompts.AvatarNotice(ctrl.Session())
	if err != nil {
		logger.Warn("render avatar notice", "error", err)
	}

	p := tea.NewProgram(tui.New(ctrl, nav, notice), tea.WithAltScreen(), tea.WithContext(ctx))
	final, runErr := p.Run()

	if ctrl.Status() != interview.StatusCompleted {
		// The room was left without finishing or the process is being
		// stopped: end the session without uploading.
		select {
		case <-ctrl.Unload():
		case <-time.After(*unloadWait):
			logger.Warn("end request still pending on exit", "session_id", ctrl.Session().ID)
		}
	}
	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("interview room: %w", runErr)
	}

	model, ok := final.(tui.Model)
	if !ok || model.Results() == "" {
		fmt.Fprintf(output(ctx), "Interview %d ended. Run `interviewroom results %d` once scoring is done.\n",
			ctrl.Session().ID, ctrl.Session().ID)
		return nil
	}
	return printSummary(ctx, ctrl.Session().ID)
}

// newRecognizer returns nil when no speech engine is configured; the
// room then runs without live answers.
func newRecognizer(cfg *config.Client, logger *slog.Logger) *recognition.Adapter {
	if cfg.STTURL == "" {
		return nil
	}
	const sampleRate = 16000
	mic := capture.NewMicrophone("", sampleRate, logger)
	stream := recognition.NewWebSocketStream(recognition.WebSocketConfig{
		URL:        cfg.STTURL,
		APIKey:     cfg.STTAPIKey,
		SampleRate: sampleRate,
		Logger:     logger,
	}, mic)
	return recognition.NewAdapter(stream, recognition.WithLogger(logger))
}

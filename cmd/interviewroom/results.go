package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/randalmurphal/interviewroom/artifact"
	ircontext "github.com/randalmurphal/interviewroom/context"
	cerrors "github.com/randalmurphal/interviewroom/errors"
	"github.com/randalmurphal/interviewroom/interview"
)

func runResults(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("results", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: interviewroom results <interview-id>")
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid interview id %q", fs.Arg(0))
	}
	if ircontext.Session(ctx) == nil {
		return cerrors.NewNotAuthenticatedError()
	}
	return printSummary(ctx, id)
}

func printSummary(ctx context.Context, interviewID int64) error {
	summary, err := ircontext.MustBackend(ctx).Summary(ctx, interviewID)
	if err != nil {
		return cerrors.WrapInterviewError(err, interviewID)
	}
	text, err := ircontext.MustPrompt(ctx).ResultsSummary(summary)
	if err != nil {
		return err
	}
	fmt.Fprintln(output(ctx), text)
	return nil
}

func runRecover(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recover", flag.ContinueOnError)
	list := fs.Bool("list", false, "list journaled interviews and stored recordings without ending anything")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *list {
		return listSessions(ctx)
	}
	if ircontext.Session(ctx) == nil {
		return cerrors.NewNotAuthenticatedError()
	}

	report, err := interview.Recover(ctx, ircontext.MustStore(ctx), ircontext.MustBackend(ctx), nil)
	if err != nil {
		return err
	}

	out := output(ctx)
	cleanupRecordings(ctx)
	if len(report.Recovered) == 0 && len(report.Failed) == 0 {
		fmt.Fprintln(out, "No open interviews")
		return nil
	}
	for _, id := range report.Recovered {
		fmt.Fprintf(out, "ended   %d\n", id)
	}
	failed := make([]int64, 0, len(report.Failed))
	for id := range report.Failed {
		failed = append(failed, id)
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })
	for _, id := range failed {
		fmt.Fprintf(out, "failed  %d: %v\n", id, report.Failed[id])
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d interview(s) could not be ended; run recover again later", len(failed))
	}
	return nil
}

// listSessions prints the session journal and the recordings still on
// disk. It works offline.
func listSessions(ctx context.Context) error {
	entries, err := ircontext.MustStore(ctx).Sessions(ctx)
	if err != nil {
		return err
	}
	out := output(ctx)
	if len(entries) == 0 {
		fmt.Fprintln(out, "No interviews journaled")
	} else {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tRECORDING")
		for _, e := range entries {
			url := e.RecordingURL
			if url == "" {
				url = "-"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.InterviewID, e.Status, e.StartedAt.Local().Format(time.DateTime), url)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	usage, err := recordingManager(ctx).DiskUsage()
	if err != nil {
		return err
	}
	if usage.Count > 0 {
		fmt.Fprintf(out, "%d local recording(s) not uploaded, %d bytes\n", usage.Count, usage.TotalSize)
	}
	return nil
}

func recordingManager(ctx context.Context) *artifact.LifecycleManager {
	cfg := ircontext.MustConfig(ctx)
	retention := artifact.DefaultRetentionConfig()
	retention.RetentionDays = cfg.RecordingRetentionDays
	return artifact.NewLifecycleManager(cfg.RecordingDir(), retention)
}

// cleanupRecordings removes recordings past the retention window. Failure
// is logged; it never blocks the command.
func cleanupRecordings(ctx context.Context) {
	result, err := recordingManager(ctx).Cleanup(false)
	if err != nil {
		slog.Warn("recording cleanup failed", "error", err)
		return
	}
	for _, msg := range result.Errors {
		slog.Warn("recording cleanup", "error", msg)
	}
	if len(result.Deleted) > 0 {
		fmt.Fprintf(output(ctx), "Removed %d expired recording(s)\n", len(result.Deleted))
	}
}

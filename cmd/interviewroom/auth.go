package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/randalmurphal/interviewroom/auth"
	ircontext "github.com/randalmurphal/interviewroom/context"
	cerrors "github.com/randalmurphal/interviewroom/errors"
	"github.com/randalmurphal/interviewroom/store"
)

// passwordEnv lets scripts log in without a prompt.
const passwordEnv = "INTERVIEWROOM_PASSWORD"

func runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := bufio.NewReader(os.Stdin)
	out := output(ctx)
	if *email == "" {
		fmt.Fprint(out, "Email: ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read email: %w", err)
		}
		*email = strings.TrimSpace(line)
	}
	password := os.Getenv(passwordEnv)
	if password == "" {
		fmt.Fprint(out, "Password: ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if *email == "" || password == "" {
		return errors.New("email and password are required")
	}

	resp, err := ircontext.MustBackend(ctx).Login(ctx, *email, password)
	if err != nil {
		return err
	}
	sess, err := auth.NewSession(resp.AccessToken, resp.User, time.Now())
	if err != nil {
		return err
	}

	if err := ircontext.MustStore(ctx).SaveCredentials(ctx, store.Credentials{
		Token:    resp.AccessToken,
		Identity: resp.User,
		SavedAt:  time.Now(),
	}); err != nil {
		return err
	}

	fmt.Fprintf(out, "Logged in as %s <%s>\n", sess.Identity().Name, sess.Identity().Email)

	cfg := ircontext.MustConfig(ctx)
	profile, err := ircontext.NewBackend(cfg, sess, slog.Default()).Profile(ctx)
	if err != nil {
		fmt.Fprintf(out, "Profile unavailable: %v\n", err)
		return nil
	}
	if profile.TargetRole == "" {
		fmt.Fprintln(out, "No target role on your profile yet; interviews will use a general role.")
		return nil
	}
	fmt.Fprintf(out, "Target role: %s\n", profile.TargetRole)
	if len(profile.TechStack) > 0 {
		fmt.Fprintf(out, "Skills: %s\n", strings.Join(profile.TechStack, ", "))
	}
	return nil
}

func runLogout(ctx context.Context, args []string) error {
	if err := flag.NewFlagSet("logout", flag.ContinueOnError).Parse(args); err != nil {
		return err
	}
	if err := ircontext.MustStore(ctx).ClearCredentials(ctx); err != nil {
		return err
	}
	if sess := ircontext.Session(ctx); sess != nil {
		sess.Teardown()
	}
	fmt.Fprintln(output(ctx), "Logged out")
	return nil
}

func runWhoami(ctx context.Context, args []string) error {
	if err := flag.NewFlagSet("whoami", flag.ContinueOnError).Parse(args); err != nil {
		return err
	}
	sess := ircontext.Session(ctx)
	if sess == nil {
		return cerrors.NewNotAuthenticatedError()
	}

	id := sess.Identity()
	out := output(ctx)
	fmt.Fprintf(out, "%s <%s>\n", id.Name, id.Email)
	fmt.Fprintf(out, "  user:    %d (%s)\n", id.UserID, id.Role)
	fmt.Fprintf(out, "  token:   %s\n", auth.Fingerprint(sess.Token()))
	if exp := sess.ExpiresAt(); !exp.IsZero() {
		fmt.Fprintf(out, "  expires: %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/randalmurphal/interviewroom/config"
)

func runConfig(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return configList(ctx)
	}
	switch args[0] {
	case "list":
		return configList(ctx)
	case "set":
		return configSet(ctx, args[1:])
	case "unset":
		return configUnset(ctx, args[1:])
	default:
		return fmt.Errorf("unknown config command %q (want list, set, or unset)", args[0])
	}
}

func configList(ctx context.Context) error {
	resolver := config.NewClientResolver()
	resolved := resolver.Resolve()

	w := tabwriter.NewWriter(output(ctx), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
	for _, key := range config.Keys {
		value, src := resolved.GetWithSource(key)
		if config.Secret(key) && value != "" {
			value = mask(value)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", key, value, src)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(output(ctx), "\nglobal: %s\nlocal:  %s\n", resolver.GlobalPath(), resolver.LocalPath())
	return nil
}

func configSet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("config set", flag.ContinueOnError)
	local := fs.Bool("local", false, "write to .interviewroom.yaml in the working directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: interviewroom config set [--local] <key> <value>")
	}
	key, value := fs.Arg(0), fs.Arg(1)

	saver := config.NewSaver()
	if *local {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		if err := saver.SaveLocal(dir, key, value); err != nil {
			return err
		}
	} else if err := saver.SaveGlobal(key, value); err != nil {
		return err
	}

	// Reject values the client could not start with, after saving so the
	// user sees which source is at fault.
	if _, err := config.Parse(config.NewClientResolver().Resolve()); err != nil {
		fmt.Fprintf(output(ctx), "warning: %v\n", err)
	}
	if config.Secret(key) {
		value = mask(value)
	}
	fmt.Fprintf(output(ctx), "%s = %s\n", key, value)
	return nil
}

func configUnset(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: interviewroom config unset <key>")
	}
	if err := config.NewSaver().DeleteGlobalKey(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(output(ctx), "%s unset\n", args[0])
	return nil
}

// mask keeps the last four characters of a secret.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// Package context carries the interviewroom client services through
// context.Context.
//
// Services bundles the resolved config, the backend client, the local
// store, the prompt loader, the auth session, and the notifier:
//
//	services, err := context.NewServices(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer services.Close()
//	ctx = services.InjectAll(ctx)
//
//	// Later, in a subcommand
//	sess := context.Session(ctx) // nil when logged out
//	api := context.MustBackend(ctx)
package context

// Package errors turns failures into messages a candidate can act on.
//
// CLIError carries a message, an optional detail line, and a suggestion.
// The Wrap helpers recognize auth, connection, and not-found failures,
// including typed http.APIError values, and map them onto sentinels:
//
//	if err := c.StartInterview(ctx, req); err != nil {
//	    return errors.Wrap(err, cfg.APIURL)
//	}
//
// Messages come from an ErrorMessenger. DefaultMessenger points at the
// interviewroom subcommands; tests and embedders can swap it with
// WithMessenger.
package errors

// Package prompt renders the candidate-facing messages: the avatar
// unavailable notice, start failures, and the results summary.
//
// Templates are text/template files embedded in the binary. A file of the
// same name in one of the loader's directories replaces the embedded one:
//
//	l := prompt.NewLoader(filepath.Join(cfg.DataDir, "prompts"))
//	notice, err := l.AvatarNotice(ctrl.Session())
package prompt

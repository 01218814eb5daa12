// Package auth holds the signed-in candidate's session: who they are, the
// bearer token the backend issued them, and the profile data the interview
// start request needs.
//
// A Session is created on login and torn down on logout. It is passed
// explicitly to the components that need it rather than living in a global:
//
//	sess, err := auth.NewSession(resp.AccessToken, identity, time.Now())
//	if err != nil {
//	    return err // malformed or expired token
//	}
//	sess.SetProfile(profile.TargetRole, profile.TechStack, "")
//	...
//	sess.Teardown()
//
// # Tokens
//
// The backend signs its own tokens; the client cannot verify the signature
// and does not try to. ParseAccessToken reads the subject and expiry so an
// expired token is rejected before any request is made.
//
// # Token Hashing
//
// Tokens never appear in logs. Fingerprint gives a short stable identifier
// derived from HashToken:
//
//	logger.Info("signed in", "token", auth.Fingerprint(token))
package auth

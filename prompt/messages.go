package prompt

import (
	"github.com/randalmurphal/interviewroom/backend"
	"github.com/randalmurphal/interviewroom/interview"
)

// AvatarNotice explains why the avatar is missing. It returns "" when the
// avatar is ready.
func (l *Loader) AvatarNotice(s interview.Session) (string, error) {
	switch s.Avatar() {
	case interview.AvatarOutOfCredits:
		return l.Render(AvatarCredits, nil)
	case interview.AvatarUnavailable:
		return l.Render(AvatarGeneric, map[string]string{"Error": s.AvatarError})
	default:
		return "", nil
	}
}

// StartFailure renders the message shown when an interview cannot start.
func (l *Loader) StartFailure(role string, err error) (string, error) {
	return l.Render(StartFailed, map[string]string{"Role": role, "Error": err.Error()})
}

// ResultsSummary renders a scored interview.
func (l *Loader) ResultsSummary(s *backend.Summary) (string, error) {
	return l.Render(Results, s)
}

package interview

import "strings"

// AvatarStatus says whether the avatar conversation can be shown and, if
// not, why.
type AvatarStatus int

const (
	// AvatarReady means a conversation URL was issued, or nothing went
	// wrong worth reporting.
	AvatarReady AvatarStatus = iota

	// AvatarOutOfCredits means the avatar provider refused for quota.
	AvatarOutOfCredits

	// AvatarUnavailable covers every other avatar failure.
	AvatarUnavailable
)

func (a AvatarStatus) String() string {
	switch a {
	case AvatarOutOfCredits:
		return "credits"
	case AvatarUnavailable:
		return "unavailable"
	default:
		return "ready"
	}
}

// Avatar classifies the session's avatar outcome. The session proceeds
// either way; voice and transcript alone are scorable.
func (s Session) Avatar() AvatarStatus {
	if s.ConversationURL != "" || s.AvatarError == "" {
		return AvatarReady
	}
	return classifyAvatarError(s.AvatarError)
}

func classifyAvatarError(msg string) AvatarStatus {
	if strings.Contains(msg, "402") || strings.Contains(strings.ToLower(msg), "credits") {
		return AvatarOutOfCredits
	}
	return AvatarUnavailable
}

package auth

import (
	"slices"
	"sync"
	"time"
)

// Identity is the signed-in user as reported by the backend at login.
type Identity struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Complete reports whether the identity carries the fields an interview
// start request needs.
func (i Identity) Complete() bool {
	return i.Name != "" && i.Email != ""
}

// Session is the session-scoped auth context: identity, bearer token, and
// profile enrichment. It is safe for concurrent use.
type Session struct {
	mu            sync.RWMutex
	token         string
	identity      Identity
	expiresAt     time.Time
	targetRole    string
	skills        []string
	resumeSummary string
	active        bool
}

// NewSession validates the token and initializes a session for identity.
func NewSession(token string, identity Identity, now time.Time) (*Session, error) {
	claims, err := ParseAccessToken(token, now)
	if err != nil {
		return nil, err
	}

	s := &Session{
		token:    token,
		identity: identity,
		active:   true,
	}
	if claims.ExpiresAt != nil {
		s.expiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Token returns the bearer token, or "" after Teardown.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Identity returns the signed-in identity.
func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// ExpiresAt returns the token expiry, zero if the token has none.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Active reports whether the session has not been torn down.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetProfile records the profile enrichment used by interview start.
// Empty values leave the current value in place.
func (s *Session) SetProfile(targetRole string, skills []string, resumeSummary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if targetRole != "" {
		s.targetRole = targetRole
	}
	if len(skills) > 0 {
		s.skills = slices.Clone(skills)
	}
	if resumeSummary != "" {
		s.resumeSummary = resumeSummary
	}
}

// TargetRole returns the role the candidate is interviewing for, falling
// back to the account role and then "candidate".
func (s *Session) TargetRole() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.targetRole != "":
		return s.targetRole
	case s.identity.Role != "":
		return s.identity.Role
	default:
		return "candidate"
	}
}

// Skills returns a copy of the resume-derived skills.
func (s *Session) Skills() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.skills)
}

// ResumeSummary returns the resume summary, possibly empty.
func (s *Session) ResumeSummary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resumeSummary
}

// Teardown clears the token and profile. The session cannot be reused.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.identity = Identity{}
	s.targetRole = ""
	s.skills = nil
	s.resumeSummary = ""
	s.active = false
}

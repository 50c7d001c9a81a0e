package session

// GuardResult represents decision of route guard.
type GuardResult int

const (
	// GuardWait means session is not resolved and nothing is rendered.
	GuardWait GuardResult = iota
	// GuardAllow means page can be rendered.
	GuardAllow
	// GuardRedirect means user is silently sent to dashboard.
	GuardRedirect
)

// RequireAdmin checks access to admin-only pages.
func (s *Store) RequireAdmin() GuardResult {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	switch s.state {
	case Unknown, Loading:
		return GuardWait
	}
	if s.user == nil || !s.user.IsAdmin {
		return GuardRedirect
	}
	return GuardAllow
}

// RequireUser checks access to pages for authenticated users.
func (s *Store) RequireUser() GuardResult {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	switch s.state {
	case Unknown, Loading:
		return GuardWait
	case Authenticated:
		return GuardAllow
	}
	return GuardRedirect
}

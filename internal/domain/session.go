package domain

// SessionState is the transient state of one page session.
// A nil Current means no quote has been shown yet.
//
// LikeCount is reset to zero exactly when Current changes and otherwise only
// moves by one through Like. The zero value is the initial state.
type SessionState struct {
	current   *Quote
	likeCount int
}

// Current returns the displayed quote and whether one is displayed.
func (s *SessionState) Current() (Quote, bool) {
	if s.current == nil {
		return Quote{}, false
	}

	return *s.current, true
}

// LikeCount returns the likes recorded for the current quote.
func (s *SessionState) LikeCount() int {
	return s.likeCount
}

// Show replaces the current quote and resets the like count.
func (s *SessionState) Show(q Quote) {
	s.current = &q
	s.likeCount = 0
}

// Like increments the like count by one and returns the new count.
// It returns false and leaves the state untouched when no quote is displayed.
func (s *SessionState) Like() (int, bool) {
	if s.current == nil {
		return 0, false
	}

	s.likeCount++

	return s.likeCount, true
}

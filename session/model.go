package session

// Session is one visitor's server-side state. UserID is empty until the
// visitor has passed the credential step.
type Session struct {
	SchemaVersion uint8
	ID            string
	UserID        string
	Values        map[string]string

	CreatedAt int64
	ExpiresAt int64
}

// Value returns the named value and whether it is set.
func (s *Session) Value(name string) (string, bool) {
	if s == nil || s.Values == nil {
		return "", false
	}
	v, ok := s.Values[name]
	return v, ok
}

// Set stores a named value.
func (s *Session) Set(name, value string) {
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
	s.Values[name] = value
}

// Delete removes a named value. Deleting a missing name is a no-op.
func (s *Session) Delete(name string) {
	if s.Values == nil {
		return
	}
	delete(s.Values, name)
}

package models

// User is the identity record returned by the auth endpoints. It is kept
// opaque by the core: only ID and Username are ever interpreted.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Session is the authenticated state persisted between runs.
type Session struct {
	User         User
	AccessToken  string
	RefreshToken string
}

// Valid reports whether all three parts of the session are populated.
// A partially populated session is never stored.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != "" && s.User.Username != ""
}

package domain

// Session is the signed-in user as returned by the auth backend. A nil
// *Session means the profile is anonymous.
type Session struct {
	Token    string `json:"token"`
	ID       UserID `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Valid reports whether the session carries a token and a user ID.
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && s.ID > 0
}

// Public returns the session without its token, for API responses.
func (s *Session) Public() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Token = ""
	return &out
}

// Registration is the sign-up request forwarded to the auth backend.
// Username is optional; the backend derives one when it is empty.
type Registration struct {
	Name     string `json:"name" validate:"required,max=100"`
	Username string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Credentials is the login request forwarded to the auth backend.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

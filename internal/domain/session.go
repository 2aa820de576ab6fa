package domain

// User is the authenticated account identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the credential pair plus identity held by the session manager.
// Only RefreshToken is ever persisted.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         User
}

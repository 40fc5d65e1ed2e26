package models

// Identity is the authenticated principal owned by the identity provider.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Credentials is what the identity provider hands back after a successful
// sign-up or sign-in.
type Credentials struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
}

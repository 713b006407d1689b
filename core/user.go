package core

type (
	// User is the authenticated designer behind a request.
	User struct {
		Subject   string `json:"subject"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatarUrl"`
		Name      string `json:"name"`
	}
)

// DefaultDisplayName is used when the token carries no name.
const DefaultDisplayName = "Youngin Designer"

// DisplayName returns the name shown on saved designs.
func (u *User) DisplayName() string {
	if u == nil || u.Name == "" {
		return DefaultDisplayName
	}
	return u.Name
}

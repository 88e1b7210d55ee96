package models

type User struct {
	ID         int64
	Email      string
	Username   string
	PassHash   []byte
	IsVerified bool
	ProfileImg string
}

// Summary is the client-facing projection of a user record. The password
// hash never leaves the service boundary.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		IsVerified: u.IsVerified,
		ProfileImg: u.ProfileImg,
	}
}

type UserSummary struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	IsVerified bool   `json:"is_verified"`
	ProfileImg string `json:"profile_img,omitempty"`
}

// ProfilePatch carries optional profile changes; nil fields are left as is.
// ProfileImg is an opaque reference owned by the media service.
type ProfilePatch struct {
	Username   *string
	ProfileImg *string
}

type Message struct {
	Email   string `json:"to"`
	Link    string `json:"link"`
	Purpose string `json:"purpose"`
}

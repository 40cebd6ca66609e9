package entities

import (
	"encoding/json"
	"strings"
)

// User is the profile the backend resolves an auth token to.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
	Bio    string `json:"bio,omitempty"`
}

// ProfileUpdate is a partial profile change; nil fields are not sent.
type ProfileUpdate struct {
	Name *string `json:"name,omitempty"`
	Bio  *string `json:"bio,omitempty"`
}

// IsEmpty reports whether the update carries no fields.
func (p ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Bio == nil
}

// UnmarshalJSON normalizes the user identifier (id, falling back to _id).
func (u *User) UnmarshalJSON(data []byte) error {
	type userAlias User
	var wire struct {
		userAlias
		AltID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*u = User(wire.userAlias)
	u.ID = NormalizeID(wire.userAlias.ID, wire.AltID)
	return nil
}

// Initials returns up to two upper-case initials for avatar fallbacks.
func (u User) Initials() string {
	var initials []rune
	for _, word := range strings.Fields(u.Name) {
		initials = append(initials, []rune(word)[0])
		if len(initials) == 2 {
			break
		}
	}
	if len(initials) == 0 {
		return "?"
	}
	return strings.ToUpper(string(initials))
}

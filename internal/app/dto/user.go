package dto

import (
	"time"

	domainuser "esocial/internal/domain/user"
)

type UserProfile struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	Role         string       `json:"role"`
	University   string       `json:"university"`
	Faculty      string       `json:"faculty,omitempty"`
	Major        string       `json:"major,omitempty"`
	StudentGroup string       `json:"student_group,omitempty"`
	AvatarURL    string       `json:"avatar_url,omitempty"`
	Bio          string       `json:"bio,omitempty"`
	SocialLinks  []SocialLink `json:"social_links,omitempty"`
	Verified     bool         `json:"verified"`
	Online       bool         `json:"online"`
	LastSeen     time.Time    `json:"last_seen"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// UserSnapshot is the compact directory view embedded in conversations,
// search results and other listings.
type UserSnapshot struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Online    bool      `json:"online"`
	LastSeen  time.Time `json:"last_seen"`
}

type AuthResponse struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	profile := UserProfile{
		ID:           string(user.ID),
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Role:         string(user.Role),
		University:   user.University,
		Faculty:      user.Faculty,
		Major:        user.Major,
		StudentGroup: user.StudentGroup,
		AvatarURL:    user.AvatarURL,
		Bio:          user.Bio,
		Verified:     user.Verified,
		Online:       user.Online,
		LastSeen:     user.LastSeen,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	for _, link := range user.SocialLinks {
		profile.SocialLinks = append(profile.SocialLinks, SocialLink{Platform: link.Platform, URL: link.URL})
	}
	return profile
}

func MapUserSnapshot(s domainuser.Snapshot) UserSnapshot {
	return UserSnapshot{
		ID:        string(s.ID),
		FirstName: s.FirstName,
		LastName:  s.LastName,
		AvatarURL: s.AvatarURL,
		Online:    s.Online,
		LastSeen:  s.LastSeen,
	}
}

func MapUserSnapshots(snaps []domainuser.Snapshot) []UserSnapshot {
	out := make([]UserSnapshot, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, MapUserSnapshot(s))
	}
	return out
}

func NewAuthResponse(user *domainuser.User, token string) AuthResponse {
	return AuthResponse{
		User:  MapUserProfile(user),
		Token: token,
	}
}

package members

import "github.com/vivaldi20/member-directory/internal/auth"

// Member is the public representation of a user.
type Member struct {
	ID           uint    `json:"id"`
	Username     string  `json:"username"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        string  `json:"email"`
	Profession   string  `json:"profession"`
	Bio          string  `json:"bio"`
	ProfilePhoto *string `json:"profile_photo"`
}

func (h *Handler) member(u *auth.User) Member {
	m := Member{
		ID:         u.ID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Profession: u.Profession,
		Bio:        u.Bio,
	}
	if u.HasPhoto() {
		url := h.files.URL(*u.ProfilePhoto)
		m.ProfilePhoto = &url
	}
	return m
}

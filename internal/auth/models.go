package auth

import "time"

// Schema is the Postgres schema holding the directory tables.
const Schema = "directory"

const (
	DefaultProfession = "AWS Cloud Practitioner"
	DefaultBio        = "No bio provided"
)

type User struct {
	ID             uint       `gorm:"primaryKey"`
	Username       string     `gorm:"size:150;uniqueIndex;not null"`
	HashedPassword string     `gorm:"not null"`
	FirstName      string     `gorm:"size:150;not null;default:''"`
	LastName       string     `gorm:"size:150;not null;default:''"`
	Email          string     `gorm:"size:254;not null;default:''"`
	Profession     string     `gorm:"size:100;not null;default:'AWS Cloud Practitioner'"`
	Bio            string     `gorm:"type:text;not null;default:'No bio provided'"`
	ProfilePhoto   *string    `gorm:"size:255"`
	DateJoined     time.Time  `gorm:"autoCreateTime"`
	LastLogin      *time.Time
	Token          *AuthToken `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// AuthToken is the opaque login token; one per user, no expiry.
type AuthToken struct {
	Key     string    `gorm:"primaryKey;size:40"`
	UserID  uint      `gorm:"uniqueIndex;not null"`
	Created time.Time `gorm:"autoCreateTime"`
}

func (User) TableName() string      { return Schema + ".users" }
func (AuthToken) TableName() string { return Schema + ".auth_tokens" }

// HasPhoto reports whether the user references a stored photo.
func (u *User) HasPhoto() bool {
	return u.ProfilePhoto != nil && *u.ProfilePhoto != ""
}

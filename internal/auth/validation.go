package auth

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vivaldi20/member-directory/internal/utils"
	"golang.org/x/text/unicode/norm"
)

const (
	maxUsernameLength   = 150
	maxNameLength       = 150
	maxEmailLength      = 254
	maxProfessionLength = 100

	// bcrypt only looks at the first 72 bytes and rejects longer input.
	maxPasswordBytes = 72

	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
)

// MsgUsernameTaken is the username error for a name another user holds.
const MsgUsernameTaken = "A user with that username already exists."

var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// ProfileInput carries the editable user fields. Nil means "not supplied".
type ProfileInput struct {
	Username   *string `json:"username"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Email      *string `json:"email"`
	Profession *string `json:"profession"`
	Bio        *string `json:"bio"`
}

type RegisterInput struct {
	ProfileInput
	Password *string `json:"password"`
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NormalizeUsername trims and applies NFKC so visually identical names collide.
func NormalizeUsername(username string) string {
	return norm.NFKC.String(strings.TrimSpace(username))
}

// Validate normalises the input in place and returns field errors. With
// partial set, absent fields are skipped; otherwise username is required.
func (in *ProfileInput) Validate(partial bool) utils.FieldErrors {
	errs := make(utils.FieldErrors)

	switch {
	case in.Username == nil:
		if !partial {
			errs.Add("username", msgRequired)
		}
	default:
		username := NormalizeUsername(*in.Username)
		in.Username = &username
		validateUsername(username, errs)
	}

	if in.FirstName != nil {
		checkLength(errs, "first_name", strings.TrimSpace(*in.FirstName), maxNameLength)
	}
	if in.LastName != nil {
		checkLength(errs, "last_name", strings.TrimSpace(*in.LastName), maxNameLength)
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		in.Email = &email
		if email != "" {
			if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
				errs.Add("email", "Enter a valid email address.")
			}
			checkLength(errs, "email", email, maxEmailLength)
		}
	}
	if in.Profession != nil {
		profession := strings.TrimSpace(*in.Profession)
		if profession == "" {
			errs.Add("profession", msgBlank)
		}
		checkLength(errs, "profession", profession, maxProfessionLength)
	}

	return errs
}

// Apply copies every supplied field onto u.
func (in *ProfileInput) Apply(u *User) {
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.Profession != nil {
		u.Profession = strings.TrimSpace(*in.Profession)
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
}

func (in *RegisterInput) Validate() utils.FieldErrors {
	errs := in.ProfileInput.Validate(false)
	switch {
	case in.Password == nil || *in.Password == "":
		errs.Add("password", msgRequired)
	case len(*in.Password) > maxPasswordBytes:
		errs.Add("password", fmt.Sprintf("Ensure this field has no more than %d bytes.", maxPasswordBytes))
	}
	return errs
}

func (in LoginInput) Validate() utils.FieldErrors {
	errs := make(utils.FieldErrors)
	if strings.TrimSpace(in.Username) == "" {
		errs.Add("username", msgRequired)
	}
	if in.Password == "" {
		errs.Add("password", msgRequired)
	}
	return errs
}

func validateUsername(username string, errs utils.FieldErrors) {
	if username == "" {
		errs.Add("username", msgRequired)
		return
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		checkLength(errs, "username", username, maxUsernameLength)
		return
	}
	if !usernameRegex.MatchString(username) {
		errs.Add("username", "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	}
}

func checkLength(errs utils.FieldErrors, field, value string, limit int) {
	if utf8.RuneCountInString(value) > limit {
		errs.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", limit))
	}
}

// CheckUsernameAvailable adds a username error when a user other than
// exceptID already holds the (normalised) username in.
func CheckUsernameAvailable(ctx context.Context, store Store, in *ProfileInput, exceptID uint, errs utils.FieldErrors) error {
	if in.Username == nil {
		return nil
	}
	if _, bad := errs["username"]; bad {
		return nil
	}
	taken, err := store.UsernameExists(ctx, *in.Username, exceptID)
	if err != nil {
		return err
	}
	if taken {
		errs.Add("username", MsgUsernameTaken)
	}
	return nil
}

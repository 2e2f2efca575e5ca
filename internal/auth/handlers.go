package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/vivaldi20/member-directory/internal/reporting"
	"github.com/vivaldi20/member-directory/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// MaxJSONBody caps JSON request bodies.
const MaxJSONBody = 1 << 20 // 1 MiB

type Handler struct {
	store    Store
	photoURL func(key string) string
	reporter *reporting.Reporter
	now      func() time.Time
}

// NewHandler builds the register/login/logout handlers. photoURL turns a
// stored photo key into the URL clients fetch it from.
func NewHandler(store Store, photoURL func(key string) string, reporter *reporting.Reporter) *Handler {
	return &Handler{
		store:    store,
		photoURL: photoURL,
		reporter: reporter,
		now:      time.Now,
	}
}

// UserSummary is the user block returned by login.
type UserSummary struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Username        string  `json:"username"`
	Profession      string  `json:"profession"`
	ProfilePhotoURL *string `json:"profile_photo_url"`
}

func (h *Handler) summary(u *User) UserSummary {
	s := UserSummary{
		ID:         u.ID,
		Name:       u.FirstName,
		Username:   u.Username,
		Profession: u.Profession,
	}
	if u.HasPhoto() {
		url := h.photoURL(*u.ProfilePhoto)
		s.ProfilePhotoURL = &url
	}
	return s
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.reporter.Error(r.Context(), op, err)
	utils.WriteMessage(w, http.StatusInternalServerError, "Internal server error.")
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var input RegisterInput
	if !utils.DecodeJSON(w, r, &input, MaxJSONBody) {
		return
	}

	errs := input.Validate()
	if err := CheckUsernameAvailable(r.Context(), h.store, &input.ProfileInput, 0, errs); err != nil {
		h.internalError(w, r, "auth.register", err)
		return
	}
	if errs.HasErrors() {
		utils.WriteValidationErrors(w, "Registration failed.", errs)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalError(w, r, "auth.register", err)
		return
	}

	user := User{
		HashedPassword: string(hashed),
		Profession:     DefaultProfession,
		Bio:            DefaultBio,
		DateJoined:     h.now(),
	}
	input.Apply(&user)

	if err := h.store.CreateUser(r.Context(), &user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			utils.WriteValidationErrors(w, "Registration failed.", utils.FieldErrors{"username": {MsgUsernameTaken}})
			return
		}
		h.internalError(w, r, "auth.register", err)
		return
	}

	utils.WriteDataMessage(w, http.StatusCreated, "User account created successfully.")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if !utils.DecodeJSON(w, r, &input, MaxJSONBody) {
		return
	}

	if errs := input.Validate(); errs.HasErrors() {
		utils.WriteValidationErrors(w, "Both username and password are required.", errs)
		return
	}

	user, err := h.store.UserByUsername(r.Context(), NormalizeUsername(input.Username))
	if errors.Is(err, ErrNotFound) {
		writeLoginFailure(w, "username", "User with that username does not exist.")
		return
	}
	if err != nil {
		h.internalError(w, r, "auth.login", err)
		return
	}

	// Compare hashed password with plaintext password
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(input.Password)); err != nil {
		writeLoginFailure(w, "password", "The password entered is invalid.")
		return
	}

	key, err := GenerateKey()
	if err != nil {
		h.internalError(w, r, "auth.login", err)
		return
	}
	token, err := h.store.GetOrCreateToken(r.Context(), user.ID, key)
	if err != nil {
		h.internalError(w, r, "auth.login", err)
		return
	}

	if err := h.store.SetLastLogin(r.Context(), user.ID, h.now()); err != nil {
		h.reporter.Error(r.Context(), "auth.login", err)
	}

	utils.WriteData(w, http.StatusOK, map[string]any{
		"user":  h.summary(user),
		"token": token.Key,
	})
}

func writeLoginFailure(w http.ResponseWriter, field, msg string) {
	utils.WriteData(w, http.StatusUnauthorized, map[string]any{
		"message": msg,
		"errors":  utils.FieldErrors{field: {msg}},
	})
}

// Logout deletes the token the caller authenticated with.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	key, ok := utils.GetTokenFromContext(r.Context())
	if !ok {
		utils.WriteMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return
	}

	if err := h.store.DeleteToken(r.Context(), key); err != nil {
		if errors.Is(err, ErrNotFound) {
			utils.WriteDataMessage(w, http.StatusBadRequest, "Token not found.")
			return
		}
		h.internalError(w, r, "auth.logout", err)
		return
	}

	utils.WriteDataMessage(w, http.StatusOK, "Successfully logged out.")
}

package members

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vivaldi20/member-directory/internal/auth"
	"github.com/vivaldi20/member-directory/internal/reporting"
	"github.com/vivaldi20/member-directory/internal/storage"
	"github.com/vivaldi20/member-directory/internal/utils"
)

const (
	photoField = "profile_photo"

	msgNotFound       = "Member not found."
	msgInternal       = "Internal server error."
	msgInvalidImage   = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	msgPhotoDeleteErr = "Failed to delete the existing profile photo."
	msgPhotoUploadErr = "Failed to store the profile photo."
)

type Handler struct {
	store     auth.Store
	files     storage.Storage
	reporter  *reporting.Reporter
	maxUpload int64
	now       func() time.Time
}

// NewHandler wires the member endpoints. maxUpload caps the multipart body of
// a photo upload in bytes.
func NewHandler(store auth.Store, files storage.Storage, reporter *reporting.Reporter, maxUpload int64) *Handler {
	return &Handler{
		store:     store,
		files:     files,
		reporter:  reporter,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.reporter.Error(r.Context(), op, err)
	utils.WriteMessage(w, http.StatusInternalServerError, msgInternal)
}

// loadMember resolves {id} to a user, writing 404/500 itself when it can't.
func (h *Handler) loadMember(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		utils.WriteMessage(w, http.StatusNotFound, msgNotFound)
		return nil, false
	}

	user, err := h.store.UserByID(r.Context(), uint(id))
	if errors.Is(err, auth.ErrNotFound) {
		utils.WriteMessage(w, http.StatusNotFound, msgNotFound)
		return nil, false
	}
	if err != nil {
		h.internalError(w, r, "members.load", err)
		return nil, false
	}
	return user, true
}

// List returns every member ordered by id.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.internalError(w, r, "members.list", err)
		return
	}

	members := make([]Member, 0, len(users))
	for i := range users {
		members = append(members, h.member(&users[i]))
	}
	utils.WriteData(w, http.StatusOK, map[string]any{"members": members})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadMember(w, r)
	if !ok {
		return
	}
	utils.WriteData(w, http.StatusOK, h.member(user))
}

// Update serves PUT (all fields, username required) and PATCH (supplied fields only).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadMember(w, r)
	if !ok {
		return
	}

	var input auth.ProfileInput
	if !utils.DecodeJSON(w, r, &input, auth.MaxJSONBody) {
		return
	}

	errs := input.Validate(r.Method == http.MethodPatch)
	if err := auth.CheckUsernameAvailable(r.Context(), h.store, &input, user.ID, errs); err != nil {
		h.internalError(w, r, "members.update", err)
		return
	}
	if errs.HasErrors() {
		utils.WriteValidationErrors(w, "Member update failed.", errs)
		return
	}

	input.Apply(user)
	if err := h.store.SaveUser(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			utils.WriteValidationErrors(w, "Member update failed.", utils.FieldErrors{"username": {auth.MsgUsernameTaken}})
		case errors.Is(err, auth.ErrNotFound):
			utils.WriteMessage(w, http.StatusNotFound, msgNotFound)
		default:
			h.internalError(w, r, "members.update", err)
		}
		return
	}

	utils.WriteData(w, http.StatusOK, map[string]any{
		"message": "Member updated successfully.",
		"member":  h.member(user),
	})
}

// Delete removes the member's stored photo first; if that fails the member is kept.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadMember(w, r)
	if !ok {
		return
	}

	if user.HasPhoto() {
		if err := h.files.Delete(r.Context(), *user.ProfilePhoto); err != nil {
			h.reporter.Error(r.Context(), "members.delete", err)
			utils.WriteMessage(w, http.StatusInternalServerError, msgPhotoDeleteErr)
			return
		}
	}

	if err := h.store.DeleteUser(r.Context(), user.ID); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			utils.WriteMessage(w, http.StatusNotFound, msgNotFound)
			return
		}
		h.internalError(w, r, "members.delete", err)
		return
	}

	utils.WriteDataMessage(w, http.StatusOK, "User deleted successfully.")
}

// UpdateProfilePhoto replaces the member's photo with the multipart part
// "profile_photo".
func (h *Handler) UpdateProfilePhoto(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadMember(w, r)
	if !ok {
		return
	}

	data, filename, ok := h.readPhoto(w, r)
	if !ok {
		return
	}

	contentType, err := storage.DetectImage(data)
	if err != nil {
		utils.WriteValidationErrors(w, "Invalid profile photo.", utils.FieldErrors{photoField: {msgInvalidImage}})
		return
	}

	ctx := r.Context()
	previous := user.ProfilePhoto
	key := storage.ProfilePhotoKey(user.Username, filename, h.now())
	sameObject := user.HasPhoto() && *previous == key
	replacesPrevious := user.HasPhoto() && !sameObject

	// The record only ever names an object that exists: write the new
	// object, point the record at it, then drop the previous object.
	if err := h.files.Save(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		h.reporter.Error(ctx, "members.photo", err)
		utils.WriteMessage(w, http.StatusInternalServerError, msgPhotoUploadErr)
		return
	}

	user.ProfilePhoto = &key
	if err := h.store.SaveUser(ctx, user); err != nil {
		user.ProfilePhoto = previous
		if !sameObject {
			h.discard(ctx, key)
		}
		h.internalError(w, r, "members.photo", err)
		return
	}

	if replacesPrevious {
		if err := h.files.Delete(ctx, *previous); err != nil {
			h.reporter.Error(ctx, "members.photo", err)
			h.restorePhoto(ctx, user, previous, key)
			utils.WriteMessage(w, http.StatusInternalServerError, msgPhotoDeleteErr)
			return
		}
	}

	utils.WriteData(w, http.StatusOK, map[string]any{
		"message": "Profile photo updated successfully.",
		"member":  h.member(user),
	})
}

// readPhoto pulls the uploaded file out of the multipart body.
func (h *Handler) readPhoto(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile(photoField)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			utils.WriteValidationErrors(w, "Invalid profile photo.", utils.FieldErrors{
				photoField: {fmt.Sprintf("The uploaded file exceeds %d MB.", h.maxUpload>>20)},
			})
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			utils.WriteDataMessage(w, http.StatusBadRequest, "No photo provided.")
		default:
			utils.WriteDataMessage(w, http.StatusBadRequest, "Invalid request body.")
		}
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.WriteDataMessage(w, http.StatusBadRequest, "Invalid request body.")
		return nil, "", false
	}
	return data, header.Filename, true
}

// restorePhoto points user back at previous after the old object could not be
// removed, then discards the new object. If the record can't be restored the
// new object stays, since the record still names it.
func (h *Handler) restorePhoto(ctx context.Context, user *auth.User, previous *string, key string) {
	user.ProfilePhoto = previous
	if err := h.store.SaveUser(ctx, user); err != nil {
		h.reporter.Error(ctx, "members.photo", err)
		user.ProfilePhoto = &key
		return
	}
	h.discard(ctx, key)
}

// discard removes an object nothing references.
func (h *Handler) discard(ctx context.Context, key string) {
	if err := h.files.Delete(ctx, key); err != nil {
		h.reporter.Error(ctx, "members.photo", err)
	}
}

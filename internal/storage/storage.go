// Package storage keeps uploaded profile photos on a local directory or an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrUploadFailed = errors.New("upload failed")
	ErrDeleteFailed = errors.New("delete failed")
	ErrInvalidName  = errors.New("invalid object name")
	ErrInvalidImage = errors.New("invalid image")
)

// ProfilePhotoDir is the key prefix for profile photos.
const ProfilePhotoDir = "profile_photos"

const timestampLayout = "20060102150405"

// Storage is the file backend referenced by User.ProfilePhoto.
//
// Delete treats an object that no longer exists as already deleted.
type Storage interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

// ProfilePhotoKey builds "profile_photos/{username}_profile_{YYYYMMDDHHMMSS}{ext}".
func ProfilePhotoKey(username, originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	return path.Join(ProfilePhotoDir, username+"_profile_"+now.UTC().Format(timestampLayout)+ext)
}

// cleanName rejects keys that are absolute or climb out of the storage root.
func cleanName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", ErrInvalidName
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidName
	}
	return cleaned, nil
}

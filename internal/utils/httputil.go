package utils

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
)

// FieldErrors maps a request field to its validation messages.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

func (fe FieldErrors) HasErrors() bool {
	return len(fe) > 0
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[http] encode response: %v", err)
	}
}

// WriteData wraps body in the {"data": ...} envelope.
func WriteData(w http.ResponseWriter, status int, body any) {
	WriteJSON(w, status, map[string]any{"data": body})
}

// WriteDataMessage writes {"data": {"message": msg}}.
func WriteDataMessage(w http.ResponseWriter, status int, msg string) {
	WriteData(w, status, map[string]any{"message": msg})
}

// WriteMessage writes a bare {"message": msg} body, used for 401/404/500.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"message": msg})
}

func WriteValidationErrors(w http.ResponseWriter, msg string, errs FieldErrors) {
	WriteData(w, http.StatusBadRequest, map[string]any{
		"message": msg,
		"errors":  errs,
	})
}

// DecodeJSON reads a JSON body capped at limit bytes into dst. An empty body
// decodes as {}. On failure it writes a 400 and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		WriteDataMessage(w, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

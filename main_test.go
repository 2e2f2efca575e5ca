package main

import (
	"bytes"
	"encoding/json"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vivaldi20/member-directory/internal/auth"
	"github.com/vivaldi20/member-directory/internal/config"
	"github.com/vivaldi20/member-directory/internal/reporting"
	"github.com/vivaldi20/member-directory/internal/storage"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()

	cfg := config.Defaults()
	cfg.DatabaseURL = "unused"
	cfg.MediaRoot = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}

	files, err := storage.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	require.NoError(t, err)

	srv := httptest.NewServer(newRouter(app{
		cfg:      cfg,
		store:    auth.NewMemoryStore(),
		files:    files,
		reporter: reporting.New("", "test"),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestRootHandler(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Server is up!\n", string(body))
}

func TestRegisterLoginListFlow(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := call(t, srv, http.MethodPost, "/register/", "", map[string]string{
		"username": "alice", "password": "p@ss1", "first_name": "Alice",
	})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = call(t, srv, http.MethodPost, "/login/", "", map[string]string{
		"username": "alice", "password": "p@ss1",
	})
	require.Equal(t, http.StatusOK, status, body)
	data := body["data"].(map[string]any)
	token := data["token"].(string)
	user := data["user"].(map[string]any)
	assert.Equal(t, "Alice", user["name"])
	assert.Equal(t, "AWS Cloud Practitioner", user["profession"])
	assert.Nil(t, user["profile_photo_url"])

	// Both slash styles reach the same handler.
	for _, path := range []string{"/members/", "/members"} {
		status, body = call(t, srv, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusOK, status, path)
		members := body["data"].(map[string]any)["members"].([]any)
		require.Len(t, members, 1)
		assert.Equal(t, "alice", members[0].(map[string]any)["username"])
	}

	status, _ = call(t, srv, http.MethodPost, "/logout/", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = call(t, srv, http.MethodGet, "/members/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthenticated.", body["message"])
}

func TestUploadedPhotoIsServed(t *testing.T) {
	for _, username := range []string{"alice", "zoë+1"} {
		t.Run(username, func(t *testing.T) {
			srv := newTestServer(t, nil)

			call(t, srv, http.MethodPost, "/register/", "", map[string]string{"username": username, "password": "p@ss1"})
			_, body := call(t, srv, http.MethodPost, "/login/", "", map[string]string{"username": username, "password": "p@ss1"})
			token := body["data"].(map[string]any)["token"].(string)

			var img bytes.Buffer
			require.NoError(t, imaging.Encode(&img, imaging.New(3, 3, color.Black), imaging.JPEG))

			var form bytes.Buffer
			mw := multipart.NewWriter(&form)
			fw, err := mw.CreateFormFile("profile_photo", "me.jpg")
			require.NoError(t, err)
			_, err = fw.Write(img.Bytes())
			require.NoError(t, err)
			require.NoError(t, mw.Close())

			req, err := http.NewRequest(http.MethodPatch, srv.URL+"/members/1/update-profile-photo/", &form)
			require.NoError(t, err)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			req.Header.Set("Authorization", "Bearer "+token)
			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var out struct {
				Data struct {
					Member struct {
						ProfilePhoto string `json:"profile_photo"`
					} `json:"member"`
				} `json:"data"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			pattern := `^/media/profile_photos/` + regexp.QuoteMeta(url.PathEscape(username)) + `_profile_\d{14}\.jpg$`
			assert.Regexp(t, pattern, out.Data.Member.ProfilePhoto)

			photo, err := srv.Client().Get(srv.URL + out.Data.Member.ProfilePhoto)
			require.NoError(t, err)
			defer photo.Body.Close()
			served, _ := io.ReadAll(photo.Body)
			assert.Equal(t, http.StatusOK, photo.StatusCode)
			assert.Equal(t, img.Bytes(), served)
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.LoginRatePerMinute = 1
		cfg.LoginRateBurst = 2
	})

	creds := map[string]string{"username": "ghost", "password": "x"}
	for i := 0; i < 2; i++ {
		status, _ := call(t, srv, http.MethodPost, "/login/", "", creds)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, body := call(t, srv, http.MethodPost, "/login/", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "Request was throttled.", body["message"])
}

// loginFrom posts bad credentials claiming to come from forwardedFor.
func loginFrom(t *testing.T, srv *httptest.Server, forwardedFor string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/login/", strings.NewReader(`{"username":"ghost","password":"x"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestLoginRateLimit_IgnoresForwardedHeaders(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.LoginRatePerMinute = 1
		cfg.LoginRateBurst = 2
	})

	assert.Equal(t, http.StatusUnauthorized, loginFrom(t, srv, "203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, loginFrom(t, srv, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(t, srv, "203.0.113.3"))
}

func TestLoginRateLimit_TrustedProxy(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.TrustProxy = true
		cfg.LoginRatePerMinute = 1
		cfg.LoginRateBurst = 1
	})

	assert.Equal(t, http.StatusUnauthorized, loginFrom(t, srv, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(t, srv, "203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, loginFrom(t, srv, "203.0.113.2"))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.AllowedOrigins = []string{"https://members.example.com"}
	})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/members/", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://members.example.com")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://members.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

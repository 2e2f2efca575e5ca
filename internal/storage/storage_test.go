package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfilePhotoKey(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 30, 5, 0, time.UTC)

	assert.Equal(t, "profile_photos/alice_profile_20261017093005.png",
		ProfilePhotoKey("alice", "me.PNG", now))
	assert.Equal(t, "profile_photos/bob_profile_20261017093005",
		ProfilePhotoKey("bob", "noext", now))
	assert.Equal(t, "profile_photos/carol_profile_20261017093005.jpg",
		ProfilePhotoKey("carol", "../../etc/photo.jpg", now))

	// Non-UTC clocks are normalised.
	local := now.In(time.FixedZone("UTC+2", 2*60*60))
	assert.Equal(t, ProfilePhotoKey("alice", "a.png", now), ProfilePhotoKey("alice", "a.png", local))
}

func TestCleanName(t *testing.T) {
	for _, bad := range []string{"", "/etc/passwd", "..", "../x", "a/../../x", `a\b`} {
		_, err := cleanName(bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}
	got, err := cleanName("profile_photos/./a.png")
	require.NoError(t, err)
	assert.Equal(t, "profile_photos/a.png", got)
}

func TestLocalStorage_SaveDeleteURL(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root, "/media/")
	require.NoError(t, err)
	ctx := context.Background()

	name := "profile_photos/alice_profile_20261017093005.png"
	require.NoError(t, s.Save(ctx, name, strings.NewReader("bytes"), 5, "image/png"))

	got, err := os.ReadFile(filepath.Join(root, "profile_photos", "alice_profile_20261017093005.png"))
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(got))

	entries, err := os.ReadDir(filepath.Join(root, "profile_photos"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	assert.Equal(t, "/media/profile_photos/alice_profile_20261017093005.png", s.URL(name))

	require.NoError(t, s.Delete(ctx, name))
	_, err = os.Stat(filepath.Join(root, name))
	assert.True(t, os.IsNotExist(err))

	// Deleting a missing object is not an error.
	assert.NoError(t, s.Delete(ctx, name))
}

func TestLocalStorage_URLEscapesSegments(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/media")
	require.NoError(t, err)

	assert.Equal(t, "/media/profile_photos/zo%C3%AB+1_profile_20261017093005.png",
		s.URL("profile_photos/zoë+1_profile_20261017093005.png"))
	assert.Equal(t, "/media/profile_photos/a%20b%3F.png", s.URL("profile_photos/a b?.png"))
}

func TestLocalStorage_RejectsEscapingNames(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)

	err = s.Save(context.Background(), "../outside.png", strings.NewReader("x"), 1, "image/png")
	assert.ErrorIs(t, err, ErrInvalidName)

	err = s.Delete(context.Background(), "../outside.png")
	assert.ErrorIs(t, err, ErrDeleteFailed)
}

func TestLocalStorage_SaveHonoursCancelledContext(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = s.Save(ctx, "profile_photos/a.png", strings.NewReader("x"), 1, "image/png")
	assert.ErrorIs(t, err, ErrUploadFailed)
}

func TestMinioStorage_URL(t *testing.T) {
	s, err := NewMinioStorage(MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "member-directory",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/member-directory/profile_photos/a.png", s.URL("profile_photos/a.png"))
}

func TestDetectImage(t *testing.T) {
	var buf bytes.Buffer
	img := imaging.New(4, 4, color.NRGBA{R: 255, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))

	ct, err := DetectImage(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	_, err = DetectImage([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = DetectImage(nil)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

// pngHeader returns just the signature and IHDR chunk of a grayscale PNG,
// enough for image.DecodeConfig to report its dimensions.
func pngHeader(width, height uint32) []byte {
	var ihdr bytes.Buffer
	ihdr.WriteString("IHDR")
	binary.Write(&ihdr, binary.BigEndian, width)
	binary.Write(&ihdr, binary.BigEndian, height)
	ihdr.Write([]byte{8, 0, 0, 0, 0}) // 8-bit gray, no interlace

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(ihdr.Len()-4))
	buf.Write(ihdr.Bytes())
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(ihdr.Bytes()))
	return buf.Bytes()
}

func TestDetectImage_RejectsHugeDimensions(t *testing.T) {
	_, err := DetectImage(pngHeader(12000, 12000))
	require.ErrorIs(t, err, ErrInvalidImage)
	assert.Contains(t, err.Error(), "12000x12000 exceeds")

	// Within the limit the header alone passes the size check and fails decoding.
	_, err = DetectImage(pngHeader(100, 100))
	require.ErrorIs(t, err, ErrInvalidImage)
	assert.NotContains(t, err.Error(), "exceeds")
}

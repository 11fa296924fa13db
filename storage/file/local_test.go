package filestore

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmu-se/crms/core"
)

func newStorage(t *testing.T) *LocalStorage {
	conf := &core.Config{Upload: core.UploadConfig{
		Dir:        t.TempDir(),
		URLPrefix:  "/upload",
		AvatarSize: 32,
		MaxSize:    1 << 20,
	}}
	s, err := NewLocalStorage(conf)
	require.NoError(t, err)
	return s
}

func pngBytes(t *testing.T, w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLocalStorage_SaveAvatar(t *testing.T) {
	s := newStorage(t)

	url, err := s.SaveAvatar(context.Background(), bytes.NewReader(pngBytes(t, 120, 80)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/upload/avatars/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	saved, err := imaging.Open(filepath.Join(s.dir, avatarDir, path.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, 32, saved.Bounds().Dx())
	assert.Equal(t, 32, saved.Bounds().Dy())
}

func TestLocalStorage_SaveAvatar_Errors(t *testing.T) {
	s := newStorage(t)

	_, err := s.SaveAvatar(context.Background(), strings.NewReader("not an image"))
	assert.Equal(t, ErrNotAnImage, err)

	s.maxSize = 10
	_, err = s.SaveAvatar(context.Background(), bytes.NewReader(pngBytes(t, 10, 10)))
	assert.Equal(t, ErrTooLarge, err)
}

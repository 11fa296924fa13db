// Package filestore keeps uploaded files on the local disk.
package filestore

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core"
)

const avatarDir = "avatars"

var (
	// errors
	ErrTooLarge   = core.NewArgumentError("file is too large")
	ErrNotAnImage = core.NewArgumentError("file is not a supported image")
)

// LocalStorage saves files under a directory served at urlPrefix.
type LocalStorage struct {
	dir        string
	urlPrefix  string
	avatarSize int
	maxSize    int64
}

var _ core.FileStorage = (*LocalStorage)(nil)

func NewLocalStorage(conf *core.Config) (*LocalStorage, error) {
	if err := os.MkdirAll(filepath.Join(conf.Upload.Dir, avatarDir), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &LocalStorage{
		dir:        conf.Upload.Dir,
		urlPrefix:  conf.Upload.URLPrefix,
		avatarSize: conf.Upload.AvatarSize,
		maxSize:    conf.Upload.MaxSize,
	}, nil
}

// SaveAvatar crops the image read from r to a square thumbnail and stores it as PNG.
func (s *LocalStorage) SaveAvatar(ctx context.Context, r io.Reader) (string, error) {
	content, err := ioutil.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return "", errors.Wrap(err, "reading upload")
	}
	if int64(len(content)) > s.maxSize {
		return "", ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	img, err := imaging.Decode(bytes.NewReader(content), imaging.AutoOrientation(true))
	if err != nil {
		return "", ErrNotAnImage
	}
	thumb := imaging.Fill(img, s.avatarSize, s.avatarSize, imaging.Center, imaging.Lanczos)

	name := uuid.New().String() + ".png"
	if err := imaging.Save(thumb, filepath.Join(s.dir, avatarDir, name)); err != nil {
		return "", errors.Wrap(err, "saving avatar")
	}
	return path.Join(s.urlPrefix, avatarDir, name), nil
}

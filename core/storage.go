package core

import (
	"context"
	"io"
)

// FileStorage stores uploaded files and returns their public URL.
type FileStorage interface {
	SaveAvatar(ctx context.Context, r io.Reader) (url string, err error)
}

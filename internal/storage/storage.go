package storage

import (
	"context"
	"fmt"
	"io"
	"path"
)

// AvatarStorage stores profile pictures in an object store and knows
// their public URLs. Serving the images is left to the store or a CDN.
type AvatarStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// AvatarKey builds the object key for an account's profile picture.
// One object per account: a new upload replaces the previous one.
func AvatarKey(accountID int, filename string) string {
	return fmt.Sprintf("avatars/%d%s", accountID, path.Ext(filename))
}

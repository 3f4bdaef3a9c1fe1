package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/medconnect/apiserver/internal/storage"
	"github.com/medconnect/apiserver/internal/store"
)

// AvatarService stores profile pictures in object storage and records
// their location on the account. The avatar fields are managed state:
// they are writable only here, never via profile update.
type AvatarService struct {
	users UserRepository
	store storage.AvatarStorage
}

func NewAvatarService(users UserRepository, avatarStore storage.AvatarStorage) *AvatarService {
	return &AvatarService{users: users, store: avatarStore}
}

// Upload stores the picture and records its URL and key on the account.
func (s *AvatarService) Upload(ctx context.Context, id int, filename, contentType string, r io.Reader, size int64) (string, error) {
	if s.store == nil {
		return "", Validation("avatar storage is not configured")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", Validation("avatar must be an image")
	}

	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", NotFound("account does not exist")
		}
		return "", err
	}

	key := storage.AvatarKey(id, filename)
	if err := s.store.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}

	url := s.store.PublicURL(key)
	if err := s.users.SetAvatar(ctx, id, url, key); err != nil {
		return "", err
	}
	return url, nil
}

// Remove deletes the stored picture and clears the avatar fields.
func (s *AvatarService) Remove(ctx context.Context, id int) error {
	if s.store == nil {
		return Validation("avatar storage is not configured")
	}

	account, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound("account does not exist")
		}
		return err
	}
	if account.AvatarKey == "" {
		return nil
	}

	if err := s.store.Delete(ctx, account.AvatarKey); err != nil {
		return err
	}
	return s.users.SetAvatar(ctx, id, "", "")
}

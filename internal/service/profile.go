package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/repository"
	"github.com/iliyamo/event-platform/internal/storage"
	"github.com/iliyamo/event-platform/internal/utils"
)

// ProfileService manages the public profile and avatar of a user.
type ProfileService struct {
	profiles ProfileStore
	store    storage.Store
	maxBytes int64
	log      zerolog.Logger
	now      func() time.Time
}

func NewProfileService(profiles ProfileStore, store storage.Store, maxBytes int64, log zerolog.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		store:    store,
		maxBytes: maxBytes,
		log:      log.With().Str("service", "profiles").Logger(),
		now:      time.Now,
	}
}

// ProfileInput holds the editable profile fields.
type ProfileInput struct {
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	CompanyName string `json:"company_name"`
	Bio         string `json:"bio"`
	Website     string `json:"website"`
}

func (in ProfileInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FullName, validation.Length(0, 160)),
		validation.Field(&in.Phone, validation.Length(0, 32)),
		validation.Field(&in.CompanyName, validation.Length(0, 160)),
		validation.Field(&in.Bio, validation.Length(0, 2000)),
		validation.Field(&in.Website, is.URL),
	)
}

// Get returns the profile of userID.
func (s *ProfileService) Get(ctx context.Context, userID uint64) (*model.Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fail(s.log, err, "get profile")
	}
	return p, nil
}

// Update saves the editable fields and keeps the avatar.
func (s *ProfileService) Update(ctx context.Context, userID uint64, in ProfileInput) (*model.Profile, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := &model.Profile{
		UserID:      userID,
		FullName:    strings.TrimSpace(in.FullName),
		Phone:       strings.TrimSpace(in.Phone),
		CompanyName: strings.TrimSpace(in.CompanyName),
		Bio:         strings.TrimSpace(in.Bio),
		Website:     strings.TrimSpace(in.Website),
	}
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return nil, fail(s.log, err, "update profile")
	}
	return s.Get(ctx, userID)
}

// UploadAvatar stores an image in the avatars bucket under
// "<userID>_<unixMillis>_<random>.<ext>" and points the profile at it.
// The previous avatar is removed afterwards; a failed profile update
// removes the new object instead.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID uint64, u Upload) (*model.Profile, error) {
	sn, _, err := readUpload(u, s.maxBytes, imageTypes)
	if err != nil {
		return nil, err
	}
	prev, err := s.profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fail(s.log, err, "load profile")
	}
	rnd, err := utils.RandomHex(4)
	if err != nil {
		return nil, fail(s.log, err, "avatar name")
	}
	path := fmt.Sprintf("%d_%d_%s.%s", userID, s.now().UnixMilli(), rnd, sn.Extension)
	obj, err := putObject(ctx, s.store, storage.BucketAvatars, path, sn)
	if err != nil {
		return nil, fail(s.log, err, "upload avatar")
	}
	if err := s.profiles.UpdateAvatar(ctx, userID, obj.URL, obj.Path); err != nil {
		if rmErr := s.store.Remove(ctx, storage.BucketAvatars, obj.Path); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("path", obj.Path).Msg("remove orphaned avatar")
		}
		return nil, fail(s.log, err, "update avatar")
	}
	if prev != nil && prev.AvatarPath != "" && prev.AvatarPath != obj.Path {
		if err := s.store.Remove(ctx, storage.BucketAvatars, prev.AvatarPath); err != nil {
			s.log.Warn().Err(err).Str("path", prev.AvatarPath).Msg("remove previous avatar")
		}
	}
	return s.Get(ctx, userID)
}

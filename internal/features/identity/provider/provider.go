package provider

import (
	"context"
	"strconv"
	"strings"

	initdata "github.com/telegram-mini-apps/init-data-golang"

	"miniapp-sync-backend/internal/common/errors"
	"miniapp-sync-backend/internal/features/identity/models"
)

// HostProvider extracts an authenticated identity from the host
// platform's ambient signals. Implementations return (nil, nil) when the
// signal is simply absent and an error only for a present-but-invalid one.
type HostProvider interface {
	CurrentUser(ctx context.Context, source models.Source) (*models.Identity, error)
}

// GuestStore persists synthesized browser identities so repeated visits
// from the same browser resolve to the same id.
type GuestStore interface {
	Get(ctx context.Context, deviceID string) (*models.Identity, error)
	Put(ctx context.Context, deviceID string, identity *models.Identity) error
}

// InitDataProvider validates and parses Telegram Mini App init data.
type InitDataProvider struct {
	botToken string
}

func NewInitDataProvider(botToken string) *InitDataProvider {
	return &InitDataProvider{botToken: botToken}
}

func (p *InitDataProvider) CurrentUser(ctx context.Context, source models.Source) (*models.Identity, error) {
	if source.InitData == "" {
		return nil, nil
	}

	// Expiration check disabled: the Mini App may stay open for hours and
	// the signature alone authenticates the payload.
	if err := initdata.Validate(source.InitData, p.botToken, 0); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInitData, "init data validation failed")
	}

	parsed, err := initdata.Parse(source.InitData)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInitData, "init data parse failed")
	}

	user := parsed.User
	if user.ID == 0 || (user.FirstName == "" && user.Username == "") {
		return nil, errors.New(errors.ErrCodeInvalidInitData, "init data carries no usable user")
	}

	return &models.Identity{
		ID:              strconv.FormatInt(user.ID, 10),
		DisplayName:     displayName(user.FirstName, user.LastName, user.Username),
		ProfileImageURL: user.PhotoURL,
		LanguageCode:    user.LanguageCode,
		IsPremium:       user.IsPremium,
	}, nil
}

func displayName(first, last, username string) string {
	name := strings.TrimSpace(first + " " + last)
	if name == "" {
		name = username
	}
	return name
}

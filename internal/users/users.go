// Package users reads and edits the CRM profile of the signed-in user.
package users

import (
	"context"
	"net/url"
	"strings"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/espo"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"github.com/ariefcatur/go-warehouse-ops/internal/query"
	"go.uber.org/zap"
)

type Profile struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	UserName        string  `json:"userName"`
	Type            string  `json:"type"`
	IsActive        bool    `json:"isActive"`
	SalutationName  *string `json:"salutationName,omitempty"`
	FirstName       string  `json:"firstName"`
	MiddleName      *string `json:"middleName,omitempty"`
	LastName        string  `json:"lastName"`
	Title           *string `json:"title,omitempty"`
	EmailAddress    *string `json:"emailAddress,omitempty"`
	PhoneNumber     *string `json:"phoneNumber,omitempty"`
	Gender          *string `json:"gender,omitempty"`
	AvatarID        *string `json:"avatarId,omitempty"`
	AvatarColor     *string `json:"avatarColor,omitempty"`
	DefaultTeamID   *string `json:"defaultTeamId,omitempty"`
	DefaultTeamName *string `json:"defaultTeamName,omitempty"`
	CreatedAt       string  `json:"createdAt,omitempty"`
	ModifiedAt      string  `json:"modifiedAt,omitempty"`

	// AvatarURL is filled by the service, never read from the CRM.
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// ProfileUpdate changes only the fields that are set.
type ProfileUpdate struct {
	FirstName    *string `json:"firstName,omitempty"`
	LastName     *string `json:"lastName,omitempty"`
	MiddleName   *string `json:"middleName,omitempty"`
	Title        *string `json:"title,omitempty"`
	EmailAddress *string `json:"emailAddress,omitempty"`
	PhoneNumber  *string `json:"phoneNumber,omitempty"`
	Gender       *string `json:"gender,omitempty"`
}

func (u ProfileUpdate) validate() error {
	if u.FirstName != nil && strings.TrimSpace(*u.FirstName) == "" {
		return apperr.Invalid("firstName", "cannot be blank")
	}
	if u.LastName != nil && strings.TrimSpace(*u.LastName) == "" {
		return apperr.Invalid("lastName", "cannot be blank")
	}
	if u.EmailAddress != nil && *u.EmailAddress != "" && !strings.Contains(*u.EmailAddress, "@") {
		return apperr.Invalid("emailAddress", "not an email address")
	}
	return nil
}

type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	Password        string `json:"password"`
}

func (p PasswordChange) validate() error {
	switch {
	case p.CurrentPassword == "":
		return apperr.Invalid("currentPassword", "required")
	case p.Password == "":
		return apperr.Invalid("password", "required")
	case p.Password == p.CurrentPassword:
		return apperr.Invalid("password", "must differ from the current password")
	}
	return nil
}

// AvatarSize is one of the sizes the CRM avatar entry point renders.
type AvatarSize string

const (
	AvatarSmall  AvatarSize = "small"
	AvatarMedium AvatarSize = "medium"
	AvatarLarge  AvatarSize = "large"
)

type Service struct {
	api          espo.API
	users        espo.Collection[Profile]
	downloadBase string
	log          *zap.Logger
}

// NewService builds avatar links under downloadBase, the CRM site root.
func NewService(api espo.API, downloadBase string, log *zap.Logger) *Service {
	return &Service{
		api:          api,
		users:        espo.NewCollection[Profile](api, "User", query.ListParams{}),
		downloadBase: strings.TrimSuffix(downloadBase, "/"),
		log:          logx.OrNop(log).Named("users"),
	}
}

// AvatarURL links the avatar of a user; an unknown size falls back to small.
func (s *Service) AvatarURL(userID string, size AvatarSize) string {
	switch size {
	case AvatarSmall, AvatarMedium, AvatarLarge:
	default:
		size = AvatarSmall
	}
	v := url.Values{}
	v.Set("entryPoint", "avatar")
	v.Set("size", string(size))
	v.Set("id", userID)
	return s.downloadBase + "/?" + v.Encode()
}

func (s *Service) withAvatar(p *Profile) *Profile {
	if p.AvatarID != nil && *p.AvatarID != "" {
		p.AvatarURL = s.AvatarURL(p.ID, AvatarSmall)
	}
	return p
}

// Current returns the profile behind the credentials on ctx.
func (s *Service) Current(ctx context.Context) (*Profile, error) {
	var resp struct {
		User Profile `json:"user"`
	}
	if err := s.api.Get(ctx, "/App/user", nil, &resp); err != nil {
		return nil, err
	}
	return s.withAvatar(&resp.User), nil
}

func (s *Service) Get(ctx context.Context, id string) (*Profile, error) {
	p, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withAvatar(p), nil
}

func (s *Service) UpdateProfile(ctx context.Context, id string, u ProfileUpdate) (*Profile, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}
	p, err := s.users.Update(ctx, id, u)
	if err != nil {
		return nil, err
	}
	logx.From(ctx, s.log).Info("profile updated", zap.String("user_id", id))
	return s.withAvatar(p), nil
}

// ChangePassword changes the password of the user behind the credentials on ctx.
// Sessions holding the old password stop working, so callers must store the new one.
func (s *Service) ChangePassword(ctx context.Context, c PasswordChange) error {
	if err := c.validate(); err != nil {
		return err
	}
	if err := s.api.Put(ctx, "/UserSecurity/password", c, nil); err != nil {
		return err
	}
	logx.From(ctx, s.log).Info("password changed")
	return nil
}

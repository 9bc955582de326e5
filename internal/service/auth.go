package service

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/queue"
	"github.com/iliyamo/event-platform/internal/repository"
	"github.com/iliyamo/event-platform/internal/utils"
)

// MinPasswordLen is enforced on registration and every password change.
const MinPasswordLen = 8

// UserStore is the user persistence used by AuthService.
type UserStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, email, passwordHash, role string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
}

// TokenStore persists refresh and reset token hashes.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
	StoreReset(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ConsumeReset(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
}

// ProfileStore is the profile persistence shared by several services.
type ProfileStore interface {
	Get(ctx context.Context, userID uint64) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) error
	UpdateAvatar(ctx context.Context, userID uint64, url, path string) error
}

// AccountProfiles is the profile access AuthService needs.
type AccountProfiles interface {
	Get(ctx context.Context, userID uint64) (*model.Profile, error)
	UpsertTx(ctx context.Context, tx *sql.Tx, p *model.Profile) error
}

// AuthConfig carries the token settings.  A reset link is built on the
// caller's redirect_to only when its origin is ResetRedirectURL's or one of
// ResetRedirectAllow; otherwise ResetRedirectURL is used.
type AuthConfig struct {
	JWTSecret          string
	AccessTTLMin       int
	RefreshTTLDays     int
	ResetTTLMin        int
	BcryptCost         int
	ResetRedirectURL   string
	ResetRedirectAllow []string
}

// Session is what sign-in returns to the client.
type Session struct {
	User    *model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// AuthService implements the auth/session boundary.
type AuthService struct {
	cfg      AuthConfig
	db       TxBeginner
	users    UserStore
	tokens   TokenStore
	profiles AccountProfiles
	pub      queue.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(cfg AuthConfig, db TxBeginner, users UserStore, tokens TokenStore, profiles AccountProfiles, pub queue.Publisher, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:      cfg,
		db:       db,
		users:    users,
		tokens:   tokens,
		profiles: profiles,
		pub:      pub,
		log:      log.With().Str("service", "auth").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Password, validation.Required, validation.Length(MinPasswordLen, 72)),
		validation.Field(&in.FullName, validation.Length(0, 160)),
	)
}

// Register creates the user and its profile and signs it in.  Unknown or
// privileged roles fall back to ATTENDEE.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = repository.NormalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	role := strings.ToUpper(strings.TrimSpace(in.Role))
	if !model.SelfAssignableRole(role) {
		role = model.RoleAttendee
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fail(s.log, err, "hash password")
	}
	var uid uint64
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		id, err := s.users.CreateTx(ctx, tx, in.Email, hash, role)
		if err != nil {
			return err
		}
		uid = id
		return s.profiles.UpsertTx(ctx, tx, &model.Profile{UserID: id, FullName: strings.TrimSpace(in.FullName)})
	})
	if err != nil {
		return nil, fail(s.log, err, "create user")
	}
	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		return nil, fail(s.log, err, "load user")
	}
	return s.issue(ctx, u)
}

// Login verifies credentials and issues a new token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fail(s.log, err, "load user")
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if utils.NeedsRehash(u.PasswordHash, s.cfg.BcryptCost) {
		s.rehash(ctx, u.ID, password)
	}
	return s.issue(ctx, u)
}

// rehash upgrades a stored hash to the configured cost.  Failures only
// cost the upgrade, never the sign-in.
func (s *AuthService) rehash(ctx context.Context, uid uint64, password string) {
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err == nil {
		err = s.users.UpdatePassword(ctx, uid, hash)
	}
	if err != nil {
		s.log.Warn().Err(err).Uint64("user_id", uid).Msg("password rehash failed")
	}
}

// Refresh rotates a refresh token: the old one is revoked and a new pair
// is issued.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*Session, error) {
	u, hash, err := s.userForRefresh(ctx, raw)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		return nil, fail(s.log, err, "revoke refresh")
	}
	return s.issue(ctx, u)
}

// RefreshAccess returns a new access token and keeps the refresh token.
func (s *AuthService) RefreshAccess(ctx context.Context, raw string) (utils.AccessToken, error) {
	u, _, err := s.userForRefresh(ctx, raw)
	if err != nil {
		return utils.AccessToken{}, err
	}
	return utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role, s.cfg.AccessTTLMin)
}

// Logout revokes one refresh token.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if err := s.tokens.RevokeByHash(ctx, utils.HashToken(strings.TrimSpace(raw))); err != nil {
		return fail(s.log, err, "revoke refresh")
	}
	return nil
}

// LogoutAll revokes every session of a user.
func (s *AuthService) LogoutAll(ctx context.Context, userID uint64) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return fail(s.log, err, "revoke all")
	}
	return nil
}

// Me returns the user and profile behind a session.  A missing profile is
// returned empty rather than as an error.
func (s *AuthService) Me(ctx context.Context, userID uint64) (*model.User, *model.Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, fail(s.log, err, "load user")
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fail(s.log, err, "load profile")
		}
		p = &model.Profile{UserID: userID}
	}
	return u, p, nil
}

// RequestPasswordReset queues a reset mail when the address is known.  It
// reports success either way so addresses cannot be probed.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fail(s.log, err, "load user")
	}
	raw, err := utils.RandomHex(32)
	if err != nil {
		return fail(s.log, err, "reset token")
	}
	exp := s.now().Add(time.Duration(s.cfg.ResetTTLMin) * time.Minute)
	if err := s.tokens.StoreReset(ctx, u.ID, utils.HashToken(raw), exp); err != nil {
		return fail(s.log, err, "store reset")
	}
	msg := queue.MailMessage{
		Template: "auth.password_reset",
		To:       u.Email,
		Data: map[string]string{
			"link":       resetLink(s.resetTarget(redirectTo), raw),
			"expires_at": exp.Format(time.RFC3339),
		},
		QueuedAt: s.now(),
	}
	if err := s.pub.Publish(ctx, queue.MailOutbox, msg); err != nil {
		return fail(s.log, err, "queue reset mail")
	}
	return nil
}

// ResetPassword sets a new password using a reset token and signs the
// user out everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	uid, err := s.tokens.ConsumeReset(ctx, utils.HashToken(strings.TrimSpace(token)), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fail(s.log, err, "consume reset")
	}
	return s.setPassword(ctx, uid, password)
}

// ChangePassword updates the password of a signed-in user after checking
// the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint64, current, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fail(s.log, err, "load user")
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	return s.setPassword(ctx, userID, password)
}

func (s *AuthService) setPassword(ctx context.Context, uid uint64, password string) error {
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return fail(s.log, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, uid, hash); err != nil {
		return fail(s.log, err, "update password")
	}
	if err := s.tokens.RevokeAllForUser(ctx, uid); err != nil {
		return fail(s.log, err, "revoke sessions")
	}
	return nil
}

func (s *AuthService) userForRefresh(ctx context.Context, raw string) (*model.User, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, "", ErrInvalidCredentials
	}
	hash := utils.HashToken(raw)
	uid, err := s.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fail(s.log, err, "validate refresh")
	}
	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fail(s.log, err, "load user")
	}
	return u, hash, nil
}

func (s *AuthService) issue(ctx context.Context, u *model.User) (*Session, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role, s.cfg.AccessTTLMin)
	if err != nil {
		return nil, fail(s.log, err, "issue access")
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return nil, fail(s.log, err, "issue refresh")
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashToken(refresh.Raw), refresh.Exp); err != nil {
		return nil, fail(s.log, err, "store refresh")
	}
	return &Session{User: u, Access: access, Refresh: refresh}, nil
}

func validatePassword(p string) error {
	return validation.Errors{
		"password": validation.Validate(p, validation.Required, validation.Length(MinPasswordLen, 72)),
	}.Filter()
}

// resetTarget returns redirectTo when its origin is allowed and the
// configured default otherwise.
func (s *AuthService) resetTarget(redirectTo string) string {
	redirectTo = strings.TrimSpace(redirectTo)
	if redirectTo == "" {
		return s.cfg.ResetRedirectURL
	}
	origin, ok := originOf(redirectTo)
	if ok {
		for _, a := range append([]string{s.cfg.ResetRedirectURL}, s.cfg.ResetRedirectAllow...) {
			if o, aok := originOf(a); aok && o == origin {
				return redirectTo
			}
		}
	}
	s.log.Warn().Str("redirect_to", redirectTo).Msg("reset redirect not allowed")
	return s.cfg.ResetRedirectURL
}

// originOf returns "scheme://host[:port]" of an absolute http(s) URL.
func originOf(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || u.User != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	return scheme + "://" + strings.ToLower(u.Host), true
}

// resetLink appends token to redirectTo, keeping its existing query.
func resetLink(redirectTo, token string) string {
	u, err := url.Parse(redirectTo)
	if err != nil || redirectTo == "" {
		return "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

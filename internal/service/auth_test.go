package service

import (
	"context"
	"net/url"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/queue"
	"github.com/iliyamo/event-platform/internal/utils"
)

type authFixture struct {
	mock     sqlmock.Sqlmock
	svc      *AuthService
	users    *memUsers
	tokens   *memTokens
	profiles *memProfiles
	pub      *recordPublisher
}

func newAuth(t *testing.T) authFixture {
	db, mock := txDB(t)
	f := authFixture{mock: mock, users: newMemUsers(), tokens: newMemTokens(), profiles: newMemProfiles(), pub: &recordPublisher{}}
	cfg := AuthConfig{
		JWTSecret: "secret", AccessTTLMin: 15, RefreshTTLDays: 7, ResetTTLMin: 30, BcryptCost: bcrypt.MinCost,
		ResetRedirectURL:   "https://app/reset",
		ResetRedirectAllow: []string{"https://admin.app"},
	}
	f.svc = NewAuthService(cfg, db, f.users, f.tokens, f.profiles, f.pub, nopLog)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return f
}

// register expects one committed transaction around the sign-up.
func (f authFixture) register(t *testing.T, in RegisterInput) *Session {
	t.Helper()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	sess, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)
	return sess
}

func TestAuth_RegisterDowngradesAdmin(t *testing.T) {
	f := newAuth(t)
	sess := f.register(t, RegisterInput{
		Email: " Ann@Example.com ", Password: "longenough", Role: "admin", FullName: "Ann Lee",
	})
	assert.Equal(t, "ann@example.com", sess.User.Email)
	assert.Equal(t, model.RoleAttendee, sess.User.Role)
	assert.Equal(t, "Ann Lee", f.profiles.m[sess.User.ID].FullName)

	uid, role, err := utils.ParseAccessToken("secret", sess.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, uid)
	assert.Equal(t, model.RoleAttendee, role)
	assert.Contains(t, f.tokens.refresh, utils.HashToken(sess.Refresh.Raw))
}

func TestAuth_RegisterKeepsSelfAssignableRole(t *testing.T) {
	f := newAuth(t)
	sess := f.register(t, RegisterInput{Email: "p@x.io", Password: "longenough", Role: "venue_owner"})
	assert.Equal(t, model.RoleVenueOwner, sess.User.Role)
}

func TestAuth_RegisterValidation(t *testing.T) {
	f := newAuth(t)
	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "nope", Password: "short"})
	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "email")
	assert.Contains(t, verr, "password")
	assert.Empty(t, f.users.byID)
}

func TestAuth_LoginAndRefreshRotation(t *testing.T) {
	f := newAuth(t)
	ctx := context.Background()
	f.register(t, RegisterInput{Email: "a@b.co", Password: "password1"})

	_, err := f.svc.Login(ctx, "a@b.co", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "missing@b.co", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := f.svc.Login(ctx, "A@B.co", "password1")
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(ctx, sess.Refresh.Raw)
	require.NoError(t, err)
	assert.NotEqual(t, sess.Refresh.Raw, rotated.Refresh.Raw)

	_, err = f.svc.Refresh(ctx, sess.Refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "old refresh token is revoked")

	access, err := f.svc.RefreshAccess(ctx, rotated.Refresh.Raw)
	require.NoError(t, err)
	assert.NotEmpty(t, access.Token)

	require.NoError(t, f.svc.Logout(ctx, rotated.Refresh.Raw))
	_, err = f.svc.RefreshAccess(ctx, rotated.Refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuth_PasswordResetFlow(t *testing.T) {
	f := newAuth(t)
	ctx := context.Background()
	sess := f.register(t, RegisterInput{Email: "r@b.co", Password: "password1"})

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "unknown@b.co", "https://app/reset"))
	assert.Empty(t, f.pub.on(queue.MailOutbox))

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "r@b.co", "https://app/reset?lang=en"))
	mails := f.pub.on(queue.MailOutbox)
	require.Len(t, mails, 1)
	msg := mails[0].(queue.MailMessage)
	assert.Equal(t, "auth.password_reset", msg.Template)
	assert.Equal(t, "r@b.co", msg.To)

	link, err := url.Parse(msg.Data["link"])
	require.NoError(t, err)
	assert.Equal(t, "en", link.Query().Get("lang"))
	token := link.Query().Get("token")
	require.NotEmpty(t, token)
	assert.Contains(t, f.tokens.reset, utils.HashToken(token))

	require.NoError(t, f.svc.ResetPassword(ctx, token, "brand-new-pass"))
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "another-pass"), ErrInvalidCredentials, "reset tokens are single use")

	_, err = f.svc.Refresh(ctx, sess.Refresh.Raw)
	assert.ErrorIs(t, err, ErrInvalidCredentials, "sessions revoked")
	_, err = f.svc.Login(ctx, "r@b.co", "brand-new-pass")
	assert.NoError(t, err)
}

func TestAuth_ChangePassword(t *testing.T) {
	f := newAuth(t)
	ctx := context.Background()
	sess := f.register(t, RegisterInput{Email: "c@b.co", Password: "password1"})

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, sess.User.ID, "bad", "password2"), ErrInvalidCredentials)
	var verr validation.Errors
	assert.ErrorAs(t, f.svc.ChangePassword(ctx, sess.User.ID, "password1", "short"), &verr)
	require.NoError(t, f.svc.ChangePassword(ctx, sess.User.ID, "password1", "password2"))
	_, err := f.svc.Login(ctx, "c@b.co", "password2")
	assert.NoError(t, err)
}

func TestAuth_MeWithoutProfile(t *testing.T) {
	f := newAuth(t)
	id, err := f.users.Create(context.Background(), "m@b.co", "x", model.RolePlanner)
	require.NoError(t, err)
	u, p, err := f.svc.Me(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.RolePlanner, u.Role)
	assert.Equal(t, id, p.UserID)
}

func TestAuth_LoginUpgradesHashCost(t *testing.T) {
	f := newAuth(t)
	old, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost+1)
	require.NoError(t, err)
	uid, err := f.users.Create(context.Background(), "old@b.co", string(old), model.RoleAttendee)
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), "old@b.co", "password1")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(f.users.byID[uid].PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
	assert.True(t, utils.VerifyPassword(f.users.byID[uid].PasswordHash, "password1"))
}

func TestAuth_RegisterRollsBackWithoutProfile(t *testing.T) {
	f := newAuth(t)
	f.profiles.upsertErr = assert.AnError
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Register(context.Background(), RegisterInput{Email: "x@b.co", Password: "password1"})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, f.profiles.m)
}

func TestAuth_RegisterAcceptsAnyWellFormedDomain(t *testing.T) {
	in := RegisterInput{Email: "someone@no-mx-record.invalid", Password: "password1"}
	assert.NoError(t, in.Validate())
}

func TestAuth_ResetLinkStaysOnAllowedOrigins(t *testing.T) {
	f := newAuth(t)
	ctx := context.Background()
	f.register(t, RegisterInput{Email: "v@b.co", Password: "password1"})

	cases := []struct {
		redirect string
		host     string
		path     string
	}{
		{"https://attacker.example/steal", "app", "/reset"},
		{"javascript:alert(1)", "app", "/reset"},
		{"https://user@app/reset", "app", "/reset"},
		{"", "app", "/reset"},
		{"https://APP/other", "APP", "/other"},
		{"https://admin.app/recover", "admin.app", "/recover"},
	}
	for i, tc := range cases {
		require.NoError(t, f.svc.RequestPasswordReset(ctx, "v@b.co", tc.redirect))
		msg := f.pub.on(queue.MailOutbox)[i].(queue.MailMessage)
		link, err := url.Parse(msg.Data["link"])
		require.NoError(t, err)
		assert.Equal(t, tc.host, link.Host, tc.redirect)
		assert.Equal(t, tc.path, link.Path, tc.redirect)
		assert.NotEmpty(t, link.Query().Get("token"))
	}
}
